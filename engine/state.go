package engine

import (
	"sort"

	"github.com/ipfs/go-cid"

	"github.com/wippyai/fvm-ffi/blockstore"
	"github.com/wippyai/fvm-ffi/errors"
	"github.com/wippyai/fvm-ffi/types"
)

// StateVersion is the encoding version of state roots written by the
// reference engine.
const StateVersion = 1

// stateRoot is the block a state root CID points at.
type stateRoot struct {
	_        struct{} `cbor:",toarray"`
	Version  uint64
	Manifest types.Link
	Actors   types.Link
	NextID   uint64
}

type actorState struct {
	_       struct{} `cbor:",toarray"`
	Code    types.Link
	Head    types.Link
	Nonce   uint64
	Balance types.TokenAmount
}

type actorEntry struct {
	_     struct{} `cbor:",toarray"`
	ID    types.ActorID
	Actor actorState
}

// stateTree is the in-memory actor table of one machine.
type stateTree struct {
	manifest cid.Cid
	actors   map[types.ActorID]actorState
	nextID   uint64
}

func loadState(bs blockstore.Blockstore, root cid.Cid) (*stateTree, error) {
	var sr stateRoot
	if err := blockstore.GetCBOR(bs, root, &sr); err != nil {
		return nil, errors.Construction("load state root "+root.String(), err)
	}
	if sr.Version != StateVersion {
		return nil, errors.New(errors.PhaseCreate, errors.KindConstruction).
			Value(sr.Version).
			Detail("unsupported state version %d", sr.Version).
			Build()
	}

	var entries []actorEntry
	if sr.Actors.Defined() {
		if err := blockstore.GetCBOR(bs, sr.Actors.Cid, &entries); err != nil {
			return nil, errors.Construction("load actor table", err)
		}
	}

	st := &stateTree{
		manifest: sr.Manifest.Cid,
		actors:   make(map[types.ActorID]actorState, len(entries)),
		nextID:   sr.NextID,
	}
	for _, e := range entries {
		if _, dup := st.actors[e.ID]; dup {
			return nil, errors.Construction("duplicate actor "+types.NewIDAddress(e.ID).String(), nil)
		}
		st.actors[e.ID] = e.Actor
	}
	return st, nil
}

// store writes the actor table and the root block and returns the root CID.
func (st *stateTree) store(bs blockstore.Blockstore) (cid.Cid, error) {
	ids := make([]types.ActorID, 0, len(st.actors))
	for id := range st.actors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	entries := make([]actorEntry, len(ids))
	for i, id := range ids {
		entries[i] = actorEntry{ID: id, Actor: st.actors[id]}
	}
	actors, err := blockstore.PutCBOR(bs, entries)
	if err != nil {
		return cid.Undef, err
	}
	return blockstore.PutCBOR(bs, &stateRoot{
		Version:  StateVersion,
		Manifest: types.NewLink(st.manifest),
		Actors:   types.NewLink(actors),
		NextID:   st.nextID,
	})
}

func (st *stateTree) snapshot() map[types.ActorID]actorState {
	out := make(map[types.ActorID]actorState, len(st.actors))
	for id, a := range st.actors {
		out[id] = a
	}
	return out
}

func (st *stateTree) restore(snap map[types.ActorID]actorState) {
	st.actors = snap
}

func (st *stateTree) get(id types.ActorID) (actorState, bool) {
	a, ok := st.actors[id]
	return a, ok
}

func (st *stateTree) set(id types.ActorID, a actorState) {
	st.actors[id] = a
}

func (st *stateTree) lookup(addr types.Address) (types.ActorID, actorState, bool) {
	id, err := addr.ID()
	if err != nil {
		return 0, actorState{}, false
	}
	a, ok := st.actors[id]
	return id, a, ok
}
