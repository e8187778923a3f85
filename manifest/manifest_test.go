package manifest

import (
	"testing"

	"github.com/ipfs/go-cid"

	"github.com/wippyai/fvm-ffi/blockstore"
	"github.com/wippyai/fvm-ffi/errors"
	"github.com/wippyai/fvm-ffi/types"
)

func TestResolve_Table(t *testing.T) {
	r := DefaultResolver()
	bs := blockstore.NewMemory()

	tests := []struct {
		nv         types.NetworkVersion
		wantSource Source
		wantBundle string
	}{
		{types.Version14, SourceBundle, "actors/v6"},
		{types.Version15, SourceBundle, "actors/v7"},
		{types.Version16, SourceState, ""},
	}

	for _, tt := range tests {
		t.Run(tt.nv.String(), func(t *testing.T) {
			res, err := r.Resolve(bs, cid.Undef, tt.nv)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if res.Source != tt.wantSource || res.Bundle != tt.wantBundle {
				t.Fatalf("Resolve = %+v", res)
			}
			if tt.wantSource == SourceState {
				if res.Manifest.Defined() {
					t.Fatal("state-sourced resolution must not carry a manifest")
				}
				return
			}

			m, err := Load(res.Blocks, res.Manifest)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			code, ok := m.CodeFor(ActorAccount)
			if !ok {
				t.Fatal("bundle has no account actor")
			}
			if name, ok := m.NameOf(code); !ok || name != ActorAccount {
				t.Fatalf("NameOf = %q, %v", name, ok)
			}
		})
	}
}

func TestResolve_BundlesDiffer(t *testing.T) {
	r := DefaultResolver()
	bs := blockstore.NewMemory()

	v6, err := r.Resolve(bs, cid.Undef, types.Version14)
	if err != nil {
		t.Fatal(err)
	}
	v7, err := r.Resolve(bs, cid.Undef, types.Version15)
	if err != nil {
		t.Fatal(err)
	}
	if v6.Manifest.Equals(v7.Manifest) {
		t.Fatal("distinct bundles must have distinct manifests")
	}

	again, err := r.Resolve(bs, cid.Undef, types.Version14)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Manifest.Equals(v6.Manifest) {
		t.Fatal("bundle manifest must be stable across loads")
	}
}

func TestResolve_Unsupported(t *testing.T) {
	r := DefaultResolver()
	for _, nv := range []types.NetworkVersion{0, types.Version13, 17} {
		_, err := r.Resolve(blockstore.NewMemory(), cid.Undef, nv)
		if err == nil {
			t.Fatalf("Resolve(%v) should fail", nv)
		}
		if errors.KindOf(err) != errors.KindConstruction {
			t.Errorf("KindOf = %v", errors.KindOf(err))
		}
	}
}

func TestResolve_Explicit(t *testing.T) {
	bs := blockstore.NewMemory()
	c, err := Bundle{
		Name:   "custom",
		Actors: map[string][]byte{"account": NativeCode("account", "custom")},
	}.Store(bs)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	res, err := DefaultResolver().Resolve(bs, c, 99)
	if err != nil {
		t.Fatalf("explicit manifest should bypass the table: %v", err)
	}
	if res.Source != SourceExplicit || !res.Manifest.Equals(c) {
		t.Fatalf("Resolve = %+v", res)
	}

	missing, _ := types.CBORPrefix.Sum([]byte("nothing"))
	if _, err := DefaultResolver().Resolve(bs, missing, types.Version14); err == nil {
		t.Fatal("unloadable explicit manifest should fail")
	}

	notManifest, _ := blockstore.PutCBOR(bs, "just a string")
	if _, err := DefaultResolver().Resolve(bs, notManifest, types.Version14); err == nil {
		t.Fatal("malformed manifest should fail")
	}
}

func TestResolve_MissingBundle(t *testing.T) {
	r := Resolver{
		Table:    Table{types.Version14: {Source: SourceBundle, Bundle: "actors/v99"}},
		Registry: NewRegistry(),
	}
	_, err := r.Resolve(blockstore.NewMemory(), cid.Undef, types.Version14)
	if err == nil {
		t.Fatal("unknown bundle should fail")
	}
	if errors.KindOf(err) != errors.KindConstruction {
		t.Errorf("KindOf = %v", errors.KindOf(err))
	}
}

func TestNativeCode(t *testing.T) {
	name, ok := ParseNativeCode(NativeCode(ActorRelay, "v7"))
	if !ok || name != ActorRelay {
		t.Fatalf("ParseNativeCode = %q, %v", name, ok)
	}
	if _, ok := ParseNativeCode([]byte("\x00asm")); ok {
		t.Fatal("wasm code is not native")
	}
}
