package blockstore

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"

	"github.com/wippyai/fvm-ffi/errors"
	"github.com/wippyai/fvm-ffi/types"
)

// Links returns the CIDs a block links to. Only dag-cbor blocks carry
// links; every other codec is opaque.
func Links(c cid.Cid, data []byte) ([]cid.Cid, error) {
	if c.Prefix().Codec != cid.DagCBOR {
		return nil, nil
	}

	var v any
	if err := types.Unmarshal(data, &v); err != nil {
		return nil, errors.Decode("dag-cbor block "+c.String(), err)
	}

	var out []cid.Cid
	if err := collectLinks(v, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func collectLinks(v any, out *[]cid.Cid) error {
	switch x := v.(type) {
	case cbor.Tag:
		if x.Number != 42 {
			return collectLinks(x.Content, out)
		}
		raw, ok := x.Content.([]byte)
		if !ok || len(raw) < 2 || raw[0] != 0 {
			return errors.InvalidInput(errors.PhaseStore, "malformed cid link")
		}
		c, err := cid.Cast(raw[1:])
		if err != nil {
			return errors.Decode("cid link", err)
		}
		*out = append(*out, c)
	case []any:
		for _, e := range x {
			if err := collectLinks(e, out); err != nil {
				return err
			}
		}
	case map[any]any:
		for k, e := range x {
			if err := collectLinks(k, out); err != nil {
				return err
			}
			if err := collectLinks(e, out); err != nil {
				return err
			}
		}
	}
	return nil
}
