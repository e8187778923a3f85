package blockstore

import (
	"github.com/ipfs/go-cid"

	"github.com/wippyai/fvm-ffi/errors"
	"github.com/wippyai/fvm-ffi/types"
)

// PutCBOR encodes v as dag-cbor, stores it and returns its CID.
func PutCBOR(bs Blockstore, v any) (cid.Cid, error) {
	data, err := types.Marshal(v)
	if err != nil {
		return cid.Undef, errors.Wrap(errors.PhaseStore, errors.KindInvalidInput, err, "encode block")
	}
	return put(bs, types.CBORPrefix, data)
}

// PutRaw stores opaque data under a raw-codec CID.
func PutRaw(bs Blockstore, data []byte) (cid.Cid, error) {
	return put(bs, types.RawPrefix, data)
}

func put(bs Blockstore, prefix cid.Prefix, data []byte) (cid.Cid, error) {
	c, err := prefix.Sum(data)
	if err != nil {
		return cid.Undef, errors.Wrap(errors.PhaseStore, errors.KindFault, err, "hash block")
	}
	if err := bs.Put(c, data); err != nil {
		return cid.Undef, err
	}
	return c, nil
}

// GetCBOR loads the block for c and decodes it into v.
func GetCBOR(bs Blockstore, c cid.Cid, v any) error {
	data, err := bs.Get(c)
	if err != nil {
		return err
	}
	if err := types.Unmarshal(data, v); err != nil {
		return errors.Decode("block "+c.String(), err)
	}
	return nil
}
