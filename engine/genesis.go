package engine

import (
	"github.com/ipfs/go-cid"

	"github.com/wippyai/fvm-ffi/blockstore"
	"github.com/wippyai/fvm-ffi/errors"
	"github.com/wippyai/fvm-ffi/manifest"
	"github.com/wippyai/fvm-ffi/types"
)

// GenesisActor describes one actor of an initial state tree.
type GenesisActor struct {
	ID types.ActorID
	// Name selects builtin code from the manifest. Ignored when Code is set.
	Name    string
	Code    cid.Cid
	Balance types.TokenAmount
	Nonce   uint64
}

// GenesisConfig describes an initial state tree.
type GenesisConfig struct {
	Manifest cid.Cid
	// Lower is consulted for the manifest and actor code when they are not
	// in the target store. May be nil.
	Lower blockstore.Blockstore
	// Embed copies the manifest and the code it names into the target
	// store, so the state is usable without the lower store.
	Embed  bool
	Actors []GenesisActor
}

// Genesis writes a state tree to bs and returns its root.
func Genesis(bs blockstore.Blockstore, cfg GenesisConfig) (cid.Cid, error) {
	read := bs
	if cfg.Lower != nil {
		read = blockstore.NewOverlay(bs, cfg.Lower)
	}
	m, err := manifest.Load(read, cfg.Manifest)
	if err != nil {
		return cid.Undef, err
	}

	if cfg.Embed {
		want := []cid.Cid{cfg.Manifest}
		for _, e := range m.Entries {
			want = append(want, e.Code.Cid)
		}
		if err := copyBlocks(bs, read, want); err != nil {
			return cid.Undef, err
		}
	}

	st := &stateTree{
		manifest: cfg.Manifest,
		actors:   make(map[types.ActorID]actorState, len(cfg.Actors)),
	}
	for _, a := range cfg.Actors {
		code := a.Code
		if !code.Defined() {
			c, ok := m.CodeFor(a.Name)
			if !ok {
				return cid.Undef, errors.NotFound(errors.PhaseCreate, "actor code", a.Name)
			}
			code = c
		}
		if _, dup := st.actors[a.ID]; dup {
			return cid.Undef, errors.InvalidInput(errors.PhaseCreate, "duplicate genesis actor "+types.NewIDAddress(a.ID).String())
		}
		st.actors[a.ID] = actorState{
			Code:    types.NewLink(code),
			Nonce:   a.Nonce,
			Balance: a.Balance,
		}
		if uint64(a.ID) >= st.nextID {
			st.nextID = uint64(a.ID) + 1
		}
	}
	return st.store(bs)
}

func copyBlocks(dst, src blockstore.Blockstore, cids []cid.Cid) error {
	blocks := make([]blockstore.Block, 0, len(cids))
	for _, c := range cids {
		if ok, _ := dst.Has(c); ok {
			continue
		}
		data, err := src.Get(c)
		if err != nil {
			return err
		}
		blocks = append(blocks, blockstore.Block{Cid: c, Data: data})
	}
	return blockstore.PutMany(dst, blocks)
}
