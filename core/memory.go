package core

import (
	"fmt"
	"math"

	apperrors "github.com/Skryldev/webpio/errors"
)

// HeapAllocator allocates from the Go heap and refuses requests above Limit.
type HeapAllocator struct {
	Limit int64 // bytes; 0 = no limit
}

func (a HeapAllocator) Alloc(n int) ([]byte, error) {
	if n < 0 {
		return nil, apperrors.New(apperrors.StatusInvalidParam, "alloc", apperrors.ErrInvalidParam)
	}
	if a.Limit > 0 && int64(n) > a.Limit {
		return nil, apperrors.New(apperrors.StatusOutOfMemory, "alloc",
			fmt.Errorf("%w: %d bytes over limit %d", apperrors.ErrOutOfMemory, n, a.Limit))
	}
	return make([]byte, n), nil
}

func (a HeapAllocator) Free([]byte) {}

// ── MemorySink ────────────────────────────────────────────────────────────────

const minSinkSize = 8192

// MemorySink is a growable in-memory encoder target.  Its storage comes from
// an Allocator and must be returned with Free.
type MemorySink struct {
	alloc Allocator
	mem   []byte
	size  int
}

// NewMemorySink returns an empty sink; no memory is taken until the first
// Write.
func NewMemorySink(alloc Allocator) *MemorySink {
	return &MemorySink{alloc: alloc}
}

// Write appends p, growing the backing store by half its size (at least
// enough for p).
func (s *MemorySink) Write(p []byte) (int, error) {
	need := int64(s.size) + int64(len(p))
	if need > math.MaxInt32 {
		return 0, apperrors.New(apperrors.StatusOutOfMemory, "sink.write", apperrors.ErrOutOfMemory)
	}
	if int(need) > len(s.mem) {
		next := int64(len(s.mem)) * 3 / 2
		if next < need {
			next = need
		}
		if next < minSinkSize {
			next = minSinkSize
		}
		mem, err := s.alloc.Alloc(int(next))
		if err != nil {
			return 0, err
		}
		copy(mem, s.mem[:s.size])
		if s.mem != nil {
			s.alloc.Free(s.mem)
		}
		s.mem = mem
	}
	copy(s.mem[s.size:], p)
	s.size += len(p)
	return len(p), nil
}

// Bytes returns the accumulated output.  It aliases the sink's storage.
func (s *MemorySink) Bytes() []byte { return s.mem[:s.size] }

// Len returns the number of bytes written.
func (s *MemorySink) Len() int { return s.size }

// Reset discards the output but keeps the storage.
func (s *MemorySink) Reset() { s.size = 0 }

// Free returns the storage to the allocator.  The sink is empty afterwards.
func (s *MemorySink) Free() {
	if s.mem != nil {
		s.alloc.Free(s.mem)
	}
	s.mem = nil
	s.size = 0
}
