package types

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/wippyai/fvm-ffi/errors"
)

// cidTag is the CBOR tag carrying a content link in dag-cbor.
const cidTag = 42

// Link is a CID that encodes as a dag-cbor link. The undefined CID encodes
// as null.
type Link struct {
	cid.Cid
}

// NewLink wraps c.
func NewLink(c cid.Cid) Link {
	return Link{Cid: c}
}

// MarshalCBOR encodes the link as tag 42 over a multibase-identity prefixed
// CID.
func (l Link) MarshalCBOR() ([]byte, error) {
	if !l.Defined() {
		return encMode.Marshal(nil)
	}
	raw := l.Bytes()
	content := make([]byte, 1+len(raw))
	copy(content[1:], raw)
	return encMode.Marshal(cbor.Tag{Number: cidTag, Content: content})
}

// UnmarshalCBOR decodes a tag-42 link or null.
func (l *Link) UnmarshalCBOR(data []byte) error {
	if len(data) == 1 && data[0] == 0xf6 {
		*l = Link{}
		return nil
	}
	var tag cbor.RawTag
	if err := decMode.Unmarshal(data, &tag); err != nil {
		return err
	}
	if tag.Number != cidTag {
		return errors.InvalidInput(errors.PhaseDecode, "link without cid tag")
	}
	var content []byte
	if err := decMode.Unmarshal(tag.Content, &content); err != nil {
		return err
	}
	if len(content) < 2 || content[0] != 0 {
		return errors.InvalidInput(errors.PhaseDecode, "malformed cid link")
	}
	c, err := cid.Cast(content[1:])
	if err != nil {
		return errors.Decode("cid link", err)
	}
	l.Cid = c
	return nil
}

// CBORPrefix is the CID prefix of dag-cbor blocks written by this module.
var CBORPrefix = cid.Prefix{
	Version:  1,
	Codec:    cid.DagCBOR,
	MhType:   multihash.SHA2_256,
	MhLength: -1,
}

// RawPrefix is the CID prefix of opaque blocks such as actor code.
var RawPrefix = cid.Prefix{
	Version:  1,
	Codec:    cid.Raw,
	MhType:   multihash.SHA2_256,
	MhLength: -1,
}

// ParseCID decodes CID bytes received over the boundary. Empty input yields
// cid.Undef.
func ParseCID(b []byte) (cid.Cid, error) {
	if len(b) == 0 {
		return cid.Undef, nil
	}
	c, err := cid.Cast(b)
	if err != nil {
		return cid.Undef, errors.Decode("cid", err)
	}
	return c, nil
}
