package blockstore

import (
	"sync"

	"github.com/ipfs/go-cid"
)

// Memory is a map-backed Blockstore safe for concurrent use.
type Memory struct {
	blocks map[cid.Cid][]byte
	mu     sync.RWMutex
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blocks: make(map[cid.Cid][]byte)}
}

// Get returns a copy of the block for c.
func (m *Memory) Get(c cid.Cid) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blocks[c]
	if !ok {
		return nil, notFound(c)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put stores a copy of data under c.
func (m *Memory) Put(c cid.Cid, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)

	m.mu.Lock()
	m.blocks[c] = cp
	m.mu.Unlock()
	return nil
}

// Has reports whether c is present.
func (m *Memory) Has(c cid.Cid) (bool, error) {
	m.mu.RLock()
	_, ok := m.blocks[c]
	m.mu.RUnlock()
	return ok, nil
}

// Len returns the number of stored blocks.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blocks)
}
