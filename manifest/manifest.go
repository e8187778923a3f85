// Package manifest resolves which actor code a machine runs for a given
// network version.
package manifest

import (
	"sort"

	"github.com/ipfs/go-cid"

	"github.com/wippyai/fvm-ffi/blockstore"
	"github.com/wippyai/fvm-ffi/errors"
	"github.com/wippyai/fvm-ffi/types"
)

// ManifestVersion is the encoding version written into manifests.
const ManifestVersion = 1

// Entry maps an actor name to its code CID.
type Entry struct {
	_    struct{} `cbor:",toarray"`
	Name string
	Code types.Link
}

// Manifest is the decoded name-to-code table of an actor bundle.
type Manifest struct {
	_       struct{} `cbor:",toarray"`
	Version uint64
	Entries []Entry

	byName map[string]cid.Cid
	byCode map[cid.Cid]string
}

// CodeFor returns the code CID registered under name.
func (m *Manifest) CodeFor(name string) (cid.Cid, bool) {
	m.index()
	c, ok := m.byName[name]
	return c, ok
}

// NameOf returns the actor name for a code CID.
func (m *Manifest) NameOf(code cid.Cid) (string, bool) {
	m.index()
	n, ok := m.byCode[code]
	return n, ok
}

func (m *Manifest) index() {
	if m.byName != nil {
		return
	}
	m.byName = make(map[string]cid.Cid, len(m.Entries))
	m.byCode = make(map[cid.Cid]string, len(m.Entries))
	for _, e := range m.Entries {
		m.byName[e.Name] = e.Code.Cid
		m.byCode[e.Code.Cid] = e.Name
	}
}

// Load decodes and validates the manifest stored under c.
func Load(bs blockstore.Blockstore, c cid.Cid) (*Manifest, error) {
	var m Manifest
	if err := blockstore.GetCBOR(bs, c, &m); err != nil {
		return nil, errors.Construction("load manifest "+c.String(), err)
	}
	if m.Version != ManifestVersion {
		return nil, errors.New(errors.PhaseCreate, errors.KindConstruction).
			Value(m.Version).
			Detail("unsupported manifest version %d", m.Version).
			Build()
	}
	m.index()
	if len(m.byName) != len(m.Entries) {
		return nil, errors.Construction("manifest has duplicate actor names", nil)
	}
	return &m, nil
}

// Bundle is a named set of actor code.
type Bundle struct {
	Name   string
	Actors map[string][]byte
}

// Store writes each actor's code as a raw block and then the manifest, and
// returns the manifest CID. Entries are written in name order so the same
// bundle always yields the same CID.
func (b Bundle) Store(bs blockstore.Blockstore) (cid.Cid, error) {
	names := make([]string, 0, len(b.Actors))
	for name := range b.Actors {
		names = append(names, name)
	}
	sort.Strings(names)

	m := Manifest{Version: ManifestVersion}
	for _, name := range names {
		code, err := blockstore.PutRaw(bs, b.Actors[name])
		if err != nil {
			return cid.Undef, errors.Construction("store actor code "+name, err)
		}
		m.Entries = append(m.Entries, Entry{Name: name, Code: types.NewLink(code)})
	}

	c, err := blockstore.PutCBOR(bs, &m)
	if err != nil {
		return cid.Undef, errors.Construction("store manifest "+b.Name, err)
	}
	return c, nil
}
