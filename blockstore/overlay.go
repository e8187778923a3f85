package blockstore

import (
	"github.com/ipfs/go-cid"
)

// Overlay reads from primary and falls back to a read-only lower store.
// Writes go to primary only.
type Overlay struct {
	primary Blockstore
	lower   Blockstore
}

// NewOverlay layers primary over lower.
func NewOverlay(primary, lower Blockstore) *Overlay {
	return &Overlay{primary: primary, lower: lower}
}

// Get returns the block for c from primary, then lower.
func (o *Overlay) Get(c cid.Cid) ([]byte, error) {
	data, err := o.primary.Get(c)
	if err == nil {
		return data, nil
	}
	if ok, _ := o.lower.Has(c); ok {
		return o.lower.Get(c)
	}
	return nil, err
}

// Put writes to primary.
func (o *Overlay) Put(c cid.Cid, data []byte) error {
	return o.primary.Put(c, data)
}

// Has reports whether either layer holds c.
func (o *Overlay) Has(c cid.Cid) (bool, error) {
	if ok, err := o.primary.Has(c); ok || err != nil {
		return ok, err
	}
	return o.lower.Has(c)
}
