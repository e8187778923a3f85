package resource

import (
	"errors"
	"math"
	"sync"
)

var (
	ErrClosed = errors.New("resource backend closed")
	ErrFull   = errors.New("resource backend full")
)

// LocalBackend is an in-memory slot allocator with generation counters.
// A released slot is reused with its generation bumped, so handles that
// referred to the previous occupant no longer resolve.
type LocalBackend struct {
	entries  []entry
	freeList []uint32
	live     int
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value  any
	typeID TypeID
	gen    uint32
	valid  bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

// Create stores a value and returns a handle.
func (b *LocalBackend) Create(typeID TypeID, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	if n := len(b.freeList); n > 0 {
		idx := b.freeList[n-1]
		b.freeList = b.freeList[:n-1]
		e := &b.entries[idx]
		e.gen++
		if e.gen == 0 {
			e.gen = 1
		}
		e.typeID = typeID
		e.value = value
		e.valid = true
		b.live++
		return makeHandle(idx, e.gen), nil
	}

	if len(b.entries) >= math.MaxUint32-1 {
		return 0, ErrFull
	}

	b.entries = append(b.entries, entry{
		typeID: typeID,
		value:  value,
		gen:    1,
		valid:  true,
	})
	b.live++
	return makeHandle(uint32(len(b.entries)-1), 1), nil
}

// lookup returns the live entry for handle. Callers hold b.mu.
func (b *LocalBackend) lookup(handle Handle) (*entry, bool) {
	idx, ok := handle.slot()
	if !ok || int(idx) >= len(b.entries) {
		return nil, false
	}
	e := &b.entries[idx]
	if !e.valid || e.gen != handle.Generation() {
		return nil, false
	}
	return e, true
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.lookup(handle)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// TypeID returns the type ID for a handle.
func (b *LocalBackend) TypeID(handle Handle) (TypeID, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.lookup(handle)
	if !ok {
		return 0, false
	}
	return e.typeID, true
}

// Drop removes a resource and returns (value, true) if it was live.
func (b *LocalBackend) Drop(handle Handle) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.dropLocked(handle, nil)
}

// DropTyped removes a resource only when its type tag matches.
func (b *LocalBackend) DropTyped(handle Handle, typeID TypeID) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.dropLocked(handle, &typeID)
}

func (b *LocalBackend) dropLocked(handle Handle, want *TypeID) (any, bool) {
	e, ok := b.lookup(handle)
	if !ok {
		return nil, false
	}
	if want != nil && e.typeID != *want {
		return nil, false
	}

	value := e.value
	e.valid = false
	e.value = nil
	b.live--
	idx, _ := handle.slot()
	b.freeList = append(b.freeList, idx)

	return value, true
}

// Close releases all resources.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for i := range b.entries {
		if b.entries[i].valid {
			if d, ok := b.entries[i].value.(Dropper); ok {
				d.Drop()
			}
			b.entries[i].valid = false
			b.entries[i].value = nil
		}
	}

	b.entries = nil
	b.freeList = nil
	b.live = 0
	return nil
}

// Len returns the number of active resources.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.live
}

// Each iterates over all active resources.
func (b *LocalBackend) Each(fn func(Handle, TypeID, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(makeHandle(uint32(i), e.gen), e.typeID, e.value) {
				break
			}
		}
	}
}
