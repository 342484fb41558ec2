// Package history keeps a bounded, most-recent-last record of generated
// snapshots.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSize matches the 48 refreshes kept by the dashboard.
const DefaultSize = 48

// Entry is one recorded value.
type Entry[T any] struct {
	ID    uuid.UUID `json:"id"`
	At    time.Time `json:"at"`
	Value T         `json:"value"`
}

// Buffer is a fixed-capacity history that drops its oldest entry when
// full. It is safe for concurrent use.
type Buffer[T any] struct {
	mu      sync.RWMutex
	size    int
	entries []Entry[T]
}

// New returns a Buffer holding at most size entries. A non-positive size
// uses DefaultSize.
func New[T any](size int) *Buffer[T] {
	if size <= 0 {
		size = DefaultSize
	}
	return &Buffer[T]{size: size, entries: make([]Entry[T], 0, size)}
}

// Append records v at time at and returns the new entry.
func (b *Buffer[T]) Append(at time.Time, v T) Entry[T] {
	e := Entry[T]{ID: uuid.New(), At: at, Value: v}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) == b.size {
		copy(b.entries, b.entries[1:])
		b.entries = b.entries[:b.size-1]
	}
	b.entries = append(b.entries, e)
	return e
}

// Items returns a copy of the entries, oldest first.
func (b *Buffer[T]) Items() []Entry[T] {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Entry[T], len(b.entries))
	copy(out, b.entries)
	return out
}

// Latest returns the newest entry, if any.
func (b *Buffer[T]) Latest() (Entry[T], bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.entries) == 0 {
		return Entry[T]{}, false
	}
	return b.entries[len(b.entries)-1], true
}

// Find returns the entry with the given id.
func (b *Buffer[T]) Find(id uuid.UUID) (Entry[T], bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, e := range b.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry[T]{}, false
}

// Len reports the number of entries held.
func (b *Buffer[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
