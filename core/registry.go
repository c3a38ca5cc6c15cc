package core

import (
	"sort"
	"sync"
)

// ── Registry ──────────────────────────────────────────────────────────────────

// DefaultRegistry is a thread-safe implementation of Registry.
type DefaultRegistry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

// NewRegistry returns an empty DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{codecs: make(map[string]Codec)}
}

func (r *DefaultRegistry) RegisterCodec(name string, c Codec) {
	r.mu.Lock()
	r.codecs[name] = c
	r.mu.Unlock()
}

func (r *DefaultRegistry) CodecFor(name string) (Codec, bool) {
	r.mu.RLock()
	c, ok := r.codecs[name]
	r.mu.RUnlock()
	return c, ok
}

// Names returns the registered backend names in sorted order.
func (r *DefaultRegistry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.codecs))
	for n := range r.codecs {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
