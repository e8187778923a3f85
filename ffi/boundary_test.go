package ffi

import (
	"context"
	"strings"
	"testing"

	"github.com/ipfs/go-cid"

	"github.com/wippyai/fvm-ffi/blockstore"
	"github.com/wippyai/fvm-ffi/engine"
	"github.com/wippyai/fvm-ffi/exitcode"
	"github.com/wippyai/fvm-ffi/manifest"
	"github.com/wippyai/fvm-ffi/response"
	"github.com/wippyai/fvm-ffi/trace"
	"github.com/wippyai/fvm-ffi/types"
)

type panicFactory struct{}

func (panicFactory) NewEngine(context.Context, engine.MachineContext, blockstore.Blockstore, engine.Externs) (engine.Engine, error) {
	var m map[string]int
	m["boom"]++
	return nil, nil
}

type setup struct {
	b       *Boundary
	bs      *blockstore.Memory
	root    cid.Cid
	storeID uint64
	extID   uint64
}

func newSetup(t *testing.T, opts Options) *setup {
	t.Helper()
	mc, err := manifest.Builtin.Load("actors/v7")
	if err != nil {
		t.Fatal(err)
	}
	bs := blockstore.NewMemory()
	root, err := engine.Genesis(bs, engine.GenesisConfig{
		Manifest: mc,
		Lower:    manifest.Builtin.Store(),
		Embed:    true,
		Actors: []engine.GenesisActor{
			{ID: 0, Name: manifest.ActorSystem},
			{ID: 10, Name: manifest.ActorAccount, Balance: types.NewTokenAmount(1_000_000_000)},
			{ID: 11, Name: manifest.ActorAccount},
			{ID: 20, Name: manifest.ActorRelay},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	b := New(opts)
	t.Cleanup(func() { b.Close() })
	storeID, err := b.RegisterBlockstore(bs)
	if err != nil {
		t.Fatal(err)
	}
	extID, err := b.RegisterExterns(engine.NewDeterministicExterns("ffi"))
	if err != nil {
		t.Fatal(err)
	}
	return &setup{b: b, bs: bs, root: root, storeID: storeID, extID: extID}
}

func (s *setup) create(t *testing.T, tracing bool) uint64 {
	t.Helper()
	r := s.b.CreateMachine(0, 5, 0, 5, 0, 0, uint64(types.Version16), s.root.Bytes(), nil, tracing, s.storeID, s.extID)
	defer s.b.DestroyCreateResponse(r.Handle)
	if r.Status != response.StatusOK {
		t.Fatalf("create: %s %s", r.Status, r.Message.String())
	}
	if r.Machine == 0 {
		t.Fatal("no machine handle")
	}
	return r.Machine
}

func encode(t *testing.T, msg types.Message) []byte {
	t.Helper()
	b, err := msg.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func send(to types.ActorID, nonce uint64, method types.MethodNum, params []byte) types.Message {
	return types.Message{
		To:         types.NewIDAddress(to),
		From:       types.NewIDAddress(10),
		Nonce:      nonce,
		Value:      types.NewTokenAmount(0),
		GasLimit:   1_000_000,
		GasFeeCap:  types.NewTokenAmount(10),
		GasPremium: types.NewTokenAmount(1),
		Method:     method,
		Params:     params,
	}
}

func TestCreateMachine_Statuses(t *testing.T) {
	s := newSetup(t, Options{})
	tests := []struct {
		name string
		call func() *response.CreateResponse
		want response.Status
	}{
		{"bad registered version", func() *response.CreateResponse {
			return s.b.CreateMachine(3, 0, 0, 0, 0, 0, 16, s.root.Bytes(), nil, false, s.storeID, 0)
		}, response.StatusConstructionError},
		{"bad network version", func() *response.CreateResponse {
			return s.b.CreateMachine(0, 0, 0, 0, 0, 0, 1000, s.root.Bytes(), nil, false, s.storeID, 0)
		}, response.StatusConstructionError},
		{"malformed state root", func() *response.CreateResponse {
			return s.b.CreateMachine(0, 0, 0, 0, 0, 0, 16, []byte{0xde, 0xad}, nil, false, s.storeID, 0)
		}, response.StatusConstructionError},
		{"unknown blockstore", func() *response.CreateResponse {
			return s.b.CreateMachine(0, 0, 0, 0, 0, 0, 16, s.root.Bytes(), nil, false, 12345, 0)
		}, response.StatusConstructionError},
		{"unknown externs", func() *response.CreateResponse {
			return s.b.CreateMachine(0, 0, 0, 0, 0, 0, 16, s.root.Bytes(), nil, false, s.storeID, 999)
		}, response.StatusConstructionError},
		{"blockstore handle used as externs", func() *response.CreateResponse {
			return s.b.CreateMachine(0, 0, 0, 0, 0, 0, 16, s.root.Bytes(), nil, false, s.storeID, s.storeID)
		}, response.StatusConstructionError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.call()
			if r.Status != tt.want {
				t.Fatalf("status = %s, want %s", r.Status, tt.want)
			}
			if r.Message.Len() == 0 {
				t.Fatal("no error message")
			}
			if r.Machine != 0 {
				t.Fatal("machine handle set on failure")
			}
			if err := s.b.DestroyCreateResponse(r.Handle); err != nil {
				t.Fatal(err)
			}
		})
	}
	if s.b.Machines() != 0 {
		t.Fatalf("Machines = %d, want 0", s.b.Machines())
	}
}

func TestExecuteMessage_Send(t *testing.T) {
	s := newSetup(t, Options{})
	m := s.create(t, true)

	r := s.b.ExecuteMessage(m, encode(t, send(11, 0, types.MethodSend, nil)), 0, 0)
	defer s.b.DestroyExecuteResponse(r.Handle)

	if r.Status != response.StatusOK {
		t.Fatalf("status = %s: %s", r.Status, r.Message.String())
	}
	if r.ExitCode != uint64(exitcode.OK) {
		t.Fatalf("exit = %d", r.ExitCode)
	}
	if r.GasUsed != uint64(engine.GasMessageBase+engine.GasPerCall) {
		t.Fatalf("gas = %d", r.GasUsed)
	}
	if r.MinerTipHi != 0 || r.MinerTipLo != 1_000_000 {
		t.Fatalf("tip = %d/%d", r.MinerTipHi, r.MinerTipLo)
	}
	if r.Return == nil || r.Return.Bytes() == nil || r.Return.Len() != 0 {
		t.Fatal("empty return is not a present zero-length buffer")
	}
	if r.FailureInfo != nil {
		t.Fatalf("failure info = %q", r.FailureInfo.String())
	}
	root, err := trace.Decode(r.Trace.Bytes())
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if root.Msg.To != types.NewIDAddress(11) || len(root.Subcalls) != 0 {
		t.Fatalf("trace root = %+v", root)
	}
}

func TestExecuteMessage_Failure(t *testing.T) {
	s := newSetup(t, Options{})
	m := s.create(t, false)

	// relay method 3 always aborts with the first user exit code
	r := s.b.ExecuteMessage(m, encode(t, send(20, 0, 3, nil)), 0, 0)
	defer s.b.DestroyExecuteResponse(r.Handle)

	if r.Status != response.StatusOK {
		t.Fatalf("status = %s: %s", r.Status, r.Message.String())
	}
	if r.ExitCode != uint64(exitcode.FirstUserExitCode) {
		t.Fatalf("exit = %d", r.ExitCode)
	}
	if r.FailureInfo == nil || r.FailureInfo.Len() == 0 {
		t.Fatal("no failure info")
	}
	if r.Trace != nil {
		t.Fatal("trace present with tracing disabled")
	}
}

func TestExecuteMessage_Errors(t *testing.T) {
	s := newSetup(t, Options{})
	m := s.create(t, false)

	tests := []struct {
		name    string
		machine uint64
		msg     []byte
		want    response.Status
	}{
		{"undecodable message", m, []byte{0x01}, response.StatusExecutionError},
		{"unknown machine", 77, encode(t, send(11, 0, 0, nil)), response.StatusUnclassified},
		{"blockstore handle", s.storeID, encode(t, send(11, 0, 0, nil)), response.StatusUnclassified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := s.b.ExecuteMessage(tt.machine, tt.msg, 0, 0)
			defer s.b.DestroyExecuteResponse(r.Handle)
			if r.Status != tt.want {
				t.Fatalf("status = %s, want %s", r.Status, tt.want)
			}
			if r.Return != nil || r.Trace != nil {
				t.Fatal("payload populated on failure")
			}
		})
	}
}

func TestFlushAndReload(t *testing.T) {
	s := newSetup(t, Options{CacheSize: 16})
	m := s.create(t, false)

	r := s.b.ExecuteMessage(m, encode(t, send(11, 0, types.MethodSend, nil)), 0, 0)
	if r.Status != response.StatusOK || r.ExitCode != 0 {
		t.Fatalf("execute: %s exit %d", r.Status, r.ExitCode)
	}
	s.b.DestroyExecuteResponse(r.Handle)

	f := s.b.FlushMachine(m)
	if f.Status != response.StatusOK {
		t.Fatalf("flush: %s %s", f.Status, f.Message.String())
	}
	root, err := cid.Cast(f.StateRoot.Bytes())
	if err != nil {
		t.Fatalf("state root: %v", err)
	}
	if err := s.b.DestroyFlushResponse(f.Handle); err != nil {
		t.Fatal(err)
	}
	if err := s.b.DropMachine(m); err != nil {
		t.Fatal(err)
	}

	s.root = root
	m2 := s.create(t, false)
	r = s.b.ExecuteMessage(m2, encode(t, send(11, 1, types.MethodSend, nil)), 0, 0)
	defer s.b.DestroyExecuteResponse(r.Handle)
	if r.Status != response.StatusOK || r.ExitCode != 0 {
		t.Fatalf("execute on flushed root: %s exit %d", r.Status, r.ExitCode)
	}
}

func TestDropMachine(t *testing.T) {
	s := newSetup(t, Options{})
	m := s.create(t, false)

	if err := s.b.DropMachine(m); err != nil {
		t.Fatalf("DropMachine: %v", err)
	}
	if err := s.b.DropMachine(m); err == nil {
		t.Fatal("second DropMachine succeeded")
	}

	f := s.b.FlushMachine(m)
	defer s.b.DestroyFlushResponse(f.Handle)
	if f.Status == response.StatusOK {
		t.Fatal("flush on dropped machine succeeded")
	}
}

func TestPanicBecomesUnclassified(t *testing.T) {
	s := newSetup(t, Options{Factory: panicFactory{}})

	r := s.b.CreateMachine(0, 0, 0, 0, 0, 0, 16, s.root.Bytes(), nil, false, s.storeID, 0)
	defer s.b.DestroyCreateResponse(r.Handle)
	if r.Status != response.StatusUnclassified {
		t.Fatalf("status = %s, want unclassified", r.Status)
	}
	if !strings.Contains(r.Message.String(), "nil map") {
		t.Fatalf("message = %q", r.Message.String())
	}
}

func TestResponsesAccounted(t *testing.T) {
	s := newSetup(t, Options{})
	m := s.create(t, false)

	var handles []*response.ExecuteResponse
	for i := 0; i < 3; i++ {
		handles = append(handles, s.b.ExecuteMessage(m, encode(t, send(11, uint64(i), 0, nil)), 0, 0))
	}
	if s.b.Responses() != 3 {
		t.Fatalf("Responses = %d, want 3", s.b.Responses())
	}
	for _, r := range handles {
		if err := s.b.DestroyExecuteResponse(r.Handle); err != nil {
			t.Fatal(err)
		}
		if err := s.b.DestroyExecuteResponse(r.Handle); err == nil {
			t.Fatal("double destroy accepted")
		}
	}
	if s.b.Responses() != 0 {
		t.Fatalf("Responses = %d, want 0", s.b.Responses())
	}
}

func TestRegistryHandles(t *testing.T) {
	b := New(Options{})
	defer b.Close()

	if _, err := b.RegisterBlockstore(nil); err == nil {
		t.Fatal("nil blockstore accepted")
	}
	if _, err := b.RegisterExterns(nil); err == nil {
		t.Fatal("nil externs accepted")
	}

	id, err := b.RegisterBlockstore(blockstore.NewMemory())
	if err != nil {
		t.Fatal(err)
	}
	if err := b.ReleaseExterns(id); err == nil {
		t.Fatal("blockstore handle released as externs")
	}
	if err := b.ReleaseBlockstore(id); err != nil {
		t.Fatal(err)
	}
	if err := b.ReleaseBlockstore(id); err == nil {
		t.Fatal("double release accepted")
	}
}
