package blockstore

import (
	stderrors "errors"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/ipfs/go-cid"

	"github.com/wippyai/fvm-ffi/errors"
)

// Pebble is an on-disk Blockstore keyed by raw CID bytes.
type Pebble struct {
	db *pebble.DB
}

// NewPebble opens (or creates) a store in dir. opts may be nil.
func NewPebble(dir string, opts *pebble.Options) (*Pebble, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	if opts.Logger == nil {
		opts.Logger = Logger().Sugar()
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.IO(errors.PhaseStore, "open pebble store "+dir, err)
	}
	Logger().Debug("opened pebble blockstore")
	return &Pebble{db: db}, nil
}

// NewPebbleInMemory opens a store backed by an in-memory filesystem.
func NewPebbleInMemory() (*Pebble, error) {
	return NewPebble("/blocks", &pebble.Options{FS: vfs.NewMem()})
}

// Get returns the block for c.
func (p *Pebble) Get(c cid.Cid) ([]byte, error) {
	value, closer, err := p.db.Get(c.Bytes())
	if stderrors.Is(err, pebble.ErrNotFound) {
		return nil, notFound(c)
	}
	if err != nil {
		return nil, errors.IO(errors.PhaseStore, "get "+c.String(), err)
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Put stores data under c.
func (p *Pebble) Put(c cid.Cid, data []byte) error {
	if err := p.db.Set(c.Bytes(), data, pebble.NoSync); err != nil {
		return errors.IO(errors.PhaseStore, "put "+c.String(), err)
	}
	return nil
}

// PutMany writes all blocks in one synced batch.
func (p *Pebble) PutMany(blocks []Block) error {
	b := p.db.NewBatch()
	defer b.Close()

	for _, blk := range blocks {
		if err := b.Set(blk.Cid.Bytes(), blk.Data, nil); err != nil {
			return errors.IO(errors.PhaseStore, "batch put "+blk.Cid.String(), err)
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return errors.IO(errors.PhaseStore, "commit batch", err)
	}
	return nil
}

// Has reports whether c is present.
func (p *Pebble) Has(c cid.Cid) (bool, error) {
	_, closer, err := p.db.Get(c.Bytes())
	if stderrors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.IO(errors.PhaseStore, "has "+c.String(), err)
	}
	closer.Close()
	return true, nil
}

// Close flushes and closes the database.
func (p *Pebble) Close() error {
	return p.db.Close()
}
