package ffi

import (
	"sync"

	"github.com/wippyai/fvm-ffi/blockstore"
	"github.com/wippyai/fvm-ffi/config"
	"github.com/wippyai/fvm-ffi/engine"
	"github.com/wippyai/fvm-ffi/machine"
	"github.com/wippyai/fvm-ffi/resource"
	"github.com/wippyai/fvm-ffi/response"
	"github.com/wippyai/fvm-ffi/timing"
)

var (
	defaultBoundary *Boundary
	defaultOnce     sync.Once
)

// Default returns the process-wide Boundary. The first call reads the
// environment, installs the configured logger into every package that logs
// and opens the timing log.
func Default() *Boundary {
	defaultOnce.Do(func() {
		cfg := config.Load()
		l := cfg.NewLogger()
		SetLogger(l.Named("ffi"))
		machine.SetLogger(l.Named("machine"))
		engine.SetLogger(l.Named("engine"))
		blockstore.SetLogger(l.Named("blockstore"))

		defaultBoundary = New(Options{
			Timing:    timing.Default(),
			CacheSize: cfg.BlockstoreCache,
		})
	})
	return defaultBoundary
}

// RegisterBlockstore registers bs with the default boundary.
func RegisterBlockstore(bs blockstore.Blockstore) (uint64, error) {
	return Default().RegisterBlockstore(bs)
}

// ReleaseBlockstore releases a blockstore handle of the default boundary.
func ReleaseBlockstore(id uint64) error {
	return Default().ReleaseBlockstore(id)
}

// RegisterExterns registers ext with the default boundary.
func RegisterExterns(ext engine.Externs) (uint64, error) {
	return Default().RegisterExterns(ext)
}

// ReleaseExterns releases an externs handle of the default boundary.
func ReleaseExterns(id uint64) error {
	return Default().ReleaseExterns(id)
}

// CreateMachine creates a machine on the default boundary.
func CreateMachine(
	version, epoch, baseFeeHi, baseFeeLo, circSupplyHi, circSupplyLo, networkVersion uint64,
	stateRoot, manifestCID []byte,
	tracing bool,
	blockstoreID, externsID uint64,
) *response.CreateResponse {
	return Default().CreateMachine(version, epoch, baseFeeHi, baseFeeLo, circSupplyHi, circSupplyLo,
		networkVersion, stateRoot, manifestCID, tracing, blockstoreID, externsID)
}

// ExecuteMessage executes a message on a machine of the default boundary.
func ExecuteMessage(machineID uint64, msg []byte, chainLen, applyKind uint64) *response.ExecuteResponse {
	return Default().ExecuteMessage(machineID, msg, chainLen, applyKind)
}

// FlushMachine flushes a machine of the default boundary.
func FlushMachine(machineID uint64) *response.FlushResponse {
	return Default().FlushMachine(machineID)
}

// DropMachine drops a machine of the default boundary.
func DropMachine(machineID uint64) error {
	return Default().DropMachine(machineID)
}

func DestroyCreateResponse(h resource.Handle) error {
	return Default().DestroyCreateResponse(h)
}

func DestroyExecuteResponse(h resource.Handle) error {
	return Default().DestroyExecuteResponse(h)
}

func DestroyFlushResponse(h resource.Handle) error {
	return Default().DestroyFlushResponse(h)
}
