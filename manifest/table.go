package manifest

import (
	"fmt"
	"sync"

	"github.com/ipfs/go-cid"

	"github.com/wippyai/fvm-ffi/blockstore"
	"github.com/wippyai/fvm-ffi/errors"
	"github.com/wippyai/fvm-ffi/types"
)

// Source says where a network version's actor code comes from.
type Source uint8

const (
	// SourceBundle loads a named bundle shipped with the process.
	SourceBundle Source = iota
	// SourceState reads the manifest already migrated into the state tree.
	SourceState
	// SourceExplicit uses a manifest CID supplied by the caller.
	SourceExplicit
)

func (s Source) String() string {
	switch s {
	case SourceBundle:
		return "bundle"
	case SourceState:
		return "state"
	case SourceExplicit:
		return "explicit"
	}
	return fmt.Sprintf("Source(%d)", uint8(s))
}

// TableEntry describes how to obtain actor code for one network version.
type TableEntry struct {
	Source Source
	Bundle string
}

// Table maps network versions to their actor code source.
type Table map[types.NetworkVersion]TableEntry

// DefaultTable is the version table used when the caller supplies no
// manifest.
var DefaultTable = Table{
	types.Version14: {Source: SourceBundle, Bundle: "actors/v6"},
	types.Version15: {Source: SourceBundle, Bundle: "actors/v7"},
	types.Version16: {Source: SourceState},
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	// Manifest is cid.Undef when Source is SourceState.
	Manifest cid.Cid
	// Blocks holds bundle code loaded by the resolver; nil unless Source
	// is SourceBundle.
	Blocks blockstore.Blockstore
	Bundle string
	Source Source
}

// Registry holds the bundles a process can load by name. Each bundle is
// written once into the registry's own store the first time it is resolved.
type Registry struct {
	bundles map[string]Bundle
	loaded  map[string]cid.Cid
	store   *blockstore.Memory
	mu      sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bundles: make(map[string]Bundle),
		loaded:  make(map[string]cid.Cid),
		store:   blockstore.NewMemory(),
	}
}

// Register adds or replaces a bundle.
func (r *Registry) Register(b Bundle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bundles[b.Name] = b
	delete(r.loaded, b.Name)
}

// Store returns the blockstore holding loaded bundle code.
func (r *Registry) Store() blockstore.Blockstore {
	return r.store
}

// Load writes the named bundle into the registry store on first use and
// returns its manifest CID.
func (r *Registry) Load(name string) (cid.Cid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.loaded[name]; ok {
		return c, nil
	}
	b, ok := r.bundles[name]
	if !ok {
		return cid.Undef, errors.NotFound(errors.PhaseCreate, "bundle", name)
	}
	c, err := b.Store(r.store)
	if err != nil {
		return cid.Undef, err
	}
	r.loaded[name] = c
	return c, nil
}

// Resolver picks the manifest for a machine.
type Resolver struct {
	Table    Table
	Registry *Registry
}

// Resolve selects actor code. An explicit manifest CID always wins and must
// load from bs. Otherwise the version table decides.
func (r Resolver) Resolve(bs blockstore.Blockstore, manifest cid.Cid, nv types.NetworkVersion) (Resolution, error) {
	if manifest.Defined() {
		if _, err := Load(bs, manifest); err != nil {
			return Resolution{}, err
		}
		return Resolution{Source: SourceExplicit, Manifest: manifest}, nil
	}

	entry, ok := r.Table[nv]
	if !ok {
		return Resolution{}, errors.New(errors.PhaseCreate, errors.KindConstruction).
			Value(nv).
			Detail("unsupported network version: %d", uint32(nv)).
			Build()
	}

	switch entry.Source {
	case SourceState:
		return Resolution{Source: SourceState, Manifest: cid.Undef}, nil
	case SourceBundle:
		if r.Registry == nil {
			return Resolution{}, errors.Construction("no bundle registry configured", nil)
		}
		c, err := r.Registry.Load(entry.Bundle)
		if err != nil {
			return Resolution{}, errors.Construction("load bundle "+entry.Bundle, err)
		}
		return Resolution{
			Source:   SourceBundle,
			Bundle:   entry.Bundle,
			Manifest: c,
			Blocks:   r.Registry.Store(),
		}, nil
	}
	return Resolution{}, errors.Construction("unknown manifest source "+entry.Source.String(), nil)
}
