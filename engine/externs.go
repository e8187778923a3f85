package engine

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"github.com/ipfs/go-cid"

	"github.com/wippyai/fvm-ffi/types"
)

// DeterministicExterns derives randomness and tipset CIDs from a seed and
// the requested epoch. It stands in for a chain where none is available.
type DeterministicExterns struct {
	Seed []byte
}

// NewDeterministicExterns returns externs seeded with seed.
func NewDeterministicExterns(seed string) *DeterministicExterns {
	return &DeterministicExterns{Seed: []byte(seed)}
}

func (d *DeterministicExterns) digest(domain string, epoch types.ChainEpoch) [32]byte {
	h := sha256.New()
	h.Write(d.Seed)
	h.Write([]byte(domain))
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(epoch))
	h.Write(b[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ChainRandomness implements Externs.
func (d *DeterministicExterns) ChainRandomness(_ context.Context, round types.ChainEpoch) ([32]byte, error) {
	return d.digest("chain", round), nil
}

// BeaconRandomness implements Externs.
func (d *DeterministicExterns) BeaconRandomness(_ context.Context, round types.ChainEpoch) ([32]byte, error) {
	return d.digest("beacon", round), nil
}

// TipsetCID implements Externs.
func (d *DeterministicExterns) TipsetCID(_ context.Context, epoch types.ChainEpoch) (cid.Cid, error) {
	sum := d.digest("tipset", epoch)
	return types.CBORPrefix.Sum(sum[:])
}

var _ Externs = (*DeterministicExterns)(nil)
