package host

import (
	"fmt"
	"sync"

	apperrors "github.com/Skryldev/webpio/errors"
)

// Handle is an opaque reference to an options object owned by a Host.
// Zero is never issued.
type Handle uint64

// table owns the objects behind handles of one kind.
type table[T any] struct {
	mu    sync.RWMutex
	next  Handle
	items map[Handle]*T
}

func newTable[T any]() *table[T] {
	return &table[T]{items: make(map[Handle]*T)}
}

func (t *table[T]) create(v *T) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.items[t.next] = v
	return t.next
}

// with runs fn on the object behind h while holding the table lock, so a
// concurrent delete cannot free it mid-access.
func (t *table[T]) with(op string, h Handle, fn func(*T) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.items[h]
	if !ok {
		return unknownHandle(op, h)
	}
	return fn(v)
}

// snapshot returns a copy of the object behind h.
func (t *table[T]) snapshot(op string, h Handle) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.items[h]
	if !ok {
		var zero T
		return zero, unknownHandle(op, h)
	}
	return *v, nil
}

func (t *table[T]) delete(op string, h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[h]; !ok {
		return unknownHandle(op, h)
	}
	delete(t.items, h)
	return nil
}

func (t *table[T]) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

func unknownHandle(op string, h Handle) error {
	return apperrors.New(apperrors.StatusInvalidParam, op,
		fmt.Errorf("%w: %d", apperrors.ErrUnknownHandle, uint64(h)))
}
