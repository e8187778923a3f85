// Package blockstore provides the content-addressed stores the engine reads
// and writes state through.
package blockstore

import (
	"github.com/ipfs/go-cid"

	"github.com/wippyai/fvm-ffi/errors"
)

// Blockstore is a content-addressed block store.
type Blockstore interface {
	// Get returns the block for c or an error matching ErrNotFound.
	Get(c cid.Cid) ([]byte, error)

	// Put stores data under c. The caller is responsible for c matching data.
	Put(c cid.Cid, data []byte) error

	// Has reports whether c is present.
	Has(c cid.Cid) (bool, error)
}

// Block pairs a CID with its data.
type Block struct {
	Cid  cid.Cid
	Data []byte
}

// Batcher is implemented by stores that can write several blocks atomically.
type Batcher interface {
	PutMany(blocks []Block) error
}

// ErrNotFound matches (via errors.Is) every missing-block error returned by
// stores in this package.
var ErrNotFound = &errors.Error{Phase: errors.PhaseStore, Kind: errors.KindNotFound}

func notFound(c cid.Cid) error {
	return errors.NotFound(errors.PhaseStore, "block", c.String())
}

// PutMany writes blocks through a Batcher when bs supports it, one by one
// otherwise.
func PutMany(bs Blockstore, blocks []Block) error {
	if b, ok := bs.(Batcher); ok {
		return b.PutMany(blocks)
	}
	for _, blk := range blocks {
		if err := bs.Put(blk.Cid, blk.Data); err != nil {
			return err
		}
	}
	return nil
}
