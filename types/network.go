package types

import (
	"fmt"

	"github.com/wippyai/fvm-ffi/errors"
)

// NetworkVersion selects the protocol rules and actor code in force.
type NetworkVersion uint32

const (
	Version13 NetworkVersion = 13
	Version14 NetworkVersion = 14
	Version15 NetworkVersion = 15
	Version16 NetworkVersion = 16

	MaxNetworkVersion = Version16
)

// ParseNetworkVersion validates a version received over the boundary.
func ParseNetworkVersion(v uint64) (NetworkVersion, error) {
	if v > uint64(MaxNetworkVersion) {
		return 0, errors.New(errors.PhaseCreate, errors.KindConstruction).
			Value(v).
			Detail("unsupported network version: %d", v).
			Build()
	}
	return NetworkVersion(v), nil
}

func (nv NetworkVersion) String() string {
	return fmt.Sprintf("nv%d", uint32(nv))
}
