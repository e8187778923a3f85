package blockstore

import (
	"sync"

	"github.com/ipfs/go-cid"

	"github.com/wippyai/fvm-ffi/errors"
)

// Buffered collects writes in memory on top of a base store. Reads see the
// buffer first. Nothing reaches the base store until Commit.
type Buffered struct {
	base Blockstore
	buf  *Memory
	mu   sync.RWMutex
}

// NewBuffered creates a write buffer over base.
func NewBuffered(base Blockstore) *Buffered {
	return &Buffered{base: base, buf: NewMemory()}
}

// Get returns the block for c from the buffer or the base store.
func (b *Buffered) Get(c cid.Cid) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if data, err := b.buf.Get(c); err == nil {
		return data, nil
	}
	return b.base.Get(c)
}

// Put buffers data under c.
func (b *Buffered) Put(c cid.Cid, data []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.buf.Put(c, data)
}

// Has reports whether c is buffered or present in the base store.
func (b *Buffered) Has(c cid.Cid) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if ok, _ := b.buf.Has(c); ok {
		return true, nil
	}
	return b.base.Has(c)
}

// Pending returns the number of buffered blocks.
func (b *Buffered) Pending() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.buf.Len()
}

// Commit writes every buffered block reachable from root to the base store
// in one batch and discards the rest of the buffer. Links into blocks that
// are not buffered are not followed; those already live in the base store.
func (b *Buffered) Commit(root cid.Cid) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var (
		blocks []Block
		seen   = map[cid.Cid]struct{}{}
		queue  = []cid.Cid{root}
	)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}

		data, err := b.buf.Get(c)
		if err != nil {
			continue
		}
		links, err := Links(c, data)
		if err != nil {
			return 0, errors.Flush(err)
		}
		blocks = append(blocks, Block{Cid: c, Data: data})
		queue = append(queue, links...)
	}

	if len(blocks) > 0 {
		if err := PutMany(b.base, blocks); err != nil {
			return 0, errors.Flush(err)
		}
	}
	b.buf = NewMemory()

	Logger().Debug("committed buffered blocks")
	return len(blocks), nil
}
