package blockstore

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/ipfs/go-cid"

	"github.com/wippyai/fvm-ffi/errors"
)

// Cached is a read-through LRU cache in front of another Blockstore. Writes
// go to the underlying store and populate the cache.
type Cached struct {
	base  Blockstore
	cache *lru.Cache
}

// NewCached wraps base with an LRU of size entries.
func NewCached(base Blockstore, size int) (*Cached, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseStore, errors.KindInvalidInput, err, "create block cache")
	}
	return &Cached{base: base, cache: cache}, nil
}

// Get returns the block for c, consulting the cache first.
func (s *Cached) Get(c cid.Cid) ([]byte, error) {
	if v, ok := s.cache.Get(c); ok {
		data := v.([]byte)
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}

	data, err := s.base.Get(c)
	if err != nil {
		return nil, err
	}
	s.add(c, data)
	return data, nil
}

// Put writes through to the base store.
func (s *Cached) Put(c cid.Cid, data []byte) error {
	if err := s.base.Put(c, data); err != nil {
		return err
	}
	s.add(c, data)
	return nil
}

// PutMany writes through to the base store.
func (s *Cached) PutMany(blocks []Block) error {
	if err := PutMany(s.base, blocks); err != nil {
		return err
	}
	for _, blk := range blocks {
		s.add(blk.Cid, blk.Data)
	}
	return nil
}

// Has reports whether c is cached or present in the base store.
func (s *Cached) Has(c cid.Cid) (bool, error) {
	if s.cache.Contains(c) {
		return true, nil
	}
	return s.base.Has(c)
}

func (s *Cached) add(c cid.Cid, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	s.cache.Add(c, cp)
}
