package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ipfs/go-cid"
	"golang.org/x/term"

	"github.com/wippyai/fvm-ffi/blockstore"
	"github.com/wippyai/fvm-ffi/config"
	"github.com/wippyai/fvm-ffi/engine"
	"github.com/wippyai/fvm-ffi/exitcode"
	"github.com/wippyai/fvm-ffi/ffi"
	"github.com/wippyai/fvm-ffi/manifest"
	"github.com/wippyai/fvm-ffi/response"
	"github.com/wippyai/fvm-ffi/timing"
	"github.com/wippyai/fvm-ffi/trace"
	"github.com/wippyai/fvm-ffi/types"
)

type options struct {
	store       string
	root        string
	params      string
	value       string
	baseFee     string
	nv          uint64
	epoch       uint64
	from        uint64
	to          uint64
	method      uint64
	nonce       uint64
	gasLimit    int64
	genesis     bool
	tracing     bool
	flush       bool
	implicit    bool
	interactive bool
}

func main() {
	var o options
	flag.StringVar(&o.store, "store", "", "Pebble blockstore directory (empty: in-memory)")
	flag.BoolVar(&o.genesis, "genesis", false, "Write a demo state tree and print its root")
	flag.StringVar(&o.root, "root", "", "State root CID")
	flag.Uint64Var(&o.nv, "nv", uint64(types.MaxNetworkVersion), "Network version")
	flag.Uint64Var(&o.epoch, "epoch", 0, "Chain epoch")
	flag.StringVar(&o.baseFee, "base-fee", "100", "Base fee in attoFIL")
	flag.Uint64Var(&o.from, "from", 10, "Sender actor ID")
	flag.Uint64Var(&o.to, "to", 11, "Receiver actor ID")
	flag.Uint64Var(&o.method, "method", 0, "Method number")
	flag.Uint64Var(&o.nonce, "nonce", 0, "Sender nonce")
	flag.StringVar(&o.value, "value", "0", "Value in attoFIL")
	flag.StringVar(&o.params, "params", "", "Hex-encoded method params")
	flag.Int64Var(&o.gasLimit, "gas-limit", 10_000_000, "Gas limit")
	flag.BoolVar(&o.implicit, "implicit", false, "Apply as an implicit message")
	flag.BoolVar(&o.tracing, "trace", false, "Record and print the execution trace")
	flag.BoolVar(&o.flush, "flush", false, "Flush and print the new state root")
	flag.BoolVar(&o.interactive, "i", false, "Browse the execution trace in a TUI")
	flag.Parse()

	if !o.genesis && o.root == "" {
		fmt.Fprintln(os.Stderr, "Usage: fvm-exec -store <dir> -genesis")
		fmt.Fprintln(os.Stderr, "       fvm-exec -store <dir> -root <cid> [-from id] [-to id] [-method n] [-value v] [-trace] [-flush]")
		fmt.Fprintln(os.Stderr, "       fvm-exec -store <dir> -root <cid> -i  (trace browser)")
		os.Exit(1)
	}

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

func openStore(dir string) (*blockstore.Pebble, error) {
	if dir == "" {
		return blockstore.NewPebbleInMemory()
	}
	return blockstore.NewPebble(dir, nil)
}

func run(o options) error {
	db, err := openStore(o.store)
	if err != nil {
		return err
	}
	defer db.Close()

	if o.genesis {
		root, err := writeGenesis(db)
		if err != nil {
			return fmt.Errorf("genesis: %w", err)
		}
		fmt.Println(root)
		return nil
	}

	root, err := cid.Decode(o.root)
	if err != nil {
		return fmt.Errorf("root: %w", err)
	}
	msg, err := buildMessage(o)
	if err != nil {
		return err
	}
	baseFee, err := types.ParseTokenAmount(o.baseFee)
	if err != nil {
		return fmt.Errorf("base fee: %w", err)
	}
	feeHi, feeLo, err := baseFee.HiLo()
	if err != nil {
		return fmt.Errorf("base fee: %w", err)
	}

	cfg := config.Load()
	b := ffi.New(ffi.Options{
		Timing:    timing.Default(),
		CacheSize: cfg.BlockstoreCache,
	})
	defer b.Close()

	storeID, err := b.RegisterBlockstore(db)
	if err != nil {
		return err
	}
	externsID, err := b.RegisterExterns(engine.NewDeterministicExterns(root.String()))
	if err != nil {
		return err
	}

	cr := b.CreateMachine(0, o.epoch, feeHi, feeLo, 0, 0, o.nv, root.Bytes(), nil,
		o.tracing || o.interactive, storeID, externsID)
	defer b.DestroyCreateResponse(cr.Handle)
	if cr.Status != response.StatusOK {
		return fmt.Errorf("create machine: %s: %s", cr.Status, cr.Message)
	}
	defer b.DropMachine(cr.Machine)

	kind := uint64(0)
	if o.implicit {
		kind = 1
	}
	er := b.ExecuteMessage(cr.Machine, msg, uint64(len(msg)), kind)
	defer b.DestroyExecuteResponse(er.Handle)
	if er.Status != response.StatusOK {
		return fmt.Errorf("execute: %s: %s", er.Status, er.Message)
	}

	var frame *trace.CallFrame
	if er.Trace != nil {
		if frame, err = trace.Decode(er.Trace.Bytes()); err != nil {
			return err
		}
	}

	if o.interactive {
		if frame == nil {
			return fmt.Errorf("no execution trace recorded")
		}
		return runInteractive(frame)
	}

	color := term.IsTerminal(int(os.Stdout.Fd()))
	printReceipt(er, color)
	if o.tracing && frame != nil {
		fmt.Println()
		printTrace(frame, color)
	}

	if o.flush {
		fr := b.FlushMachine(cr.Machine)
		defer b.DestroyFlushResponse(fr.Handle)
		if fr.Status != response.StatusOK {
			return fmt.Errorf("flush: %s: %s", fr.Status, fr.Message)
		}
		newRoot, err := cid.Cast(fr.StateRoot.Bytes())
		if err != nil {
			return err
		}
		fmt.Printf("\nState root: %s\n", newRoot)
	}
	return nil
}

func buildMessage(o options) ([]byte, error) {
	value, err := types.ParseTokenAmount(o.value)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	params, err := hex.DecodeString(o.params)
	if err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	msg := &types.Message{
		To:         types.NewIDAddress(types.ActorID(o.to)),
		From:       types.NewIDAddress(types.ActorID(o.from)),
		Nonce:      o.nonce,
		Value:      value,
		GasLimit:   o.gasLimit,
		GasFeeCap:  types.NewTokenAmount(1_000),
		GasPremium: types.NewTokenAmount(1),
		Method:     types.MethodNum(o.method),
		Params:     params,
	}
	return msg.Bytes()
}

// writeGenesis stores a small state tree: the system actor, two funded
// accounts (10, 11) and two relays (20, 21), with actor code embedded.
func writeGenesis(bs blockstore.Blockstore) (cid.Cid, error) {
	mc, err := manifest.Builtin.Load("actors/v7")
	if err != nil {
		return cid.Undef, err
	}
	funds := types.NewTokenAmount(1_000_000_000_000_000)
	return engine.Genesis(bs, engine.GenesisConfig{
		Manifest: mc,
		Lower:    manifest.Builtin.Store(),
		Embed:    true,
		Actors: []engine.GenesisActor{
			{ID: 0, Name: manifest.ActorSystem},
			{ID: 10, Name: manifest.ActorAccount, Balance: funds},
			{ID: 11, Name: manifest.ActorAccount, Balance: funds},
			{ID: 20, Name: manifest.ActorRelay},
			{ID: 21, Name: manifest.ActorRelay},
		},
	})
}

func styled(s lipgloss.Style, text string, color bool) string {
	if !color {
		return text
	}
	return s.Render(text)
}

func exitStyle(code exitcode.ExitCode) lipgloss.Style {
	if code.IsSuccess() {
		return okStyle
	}
	return failStyle
}

func printReceipt(er *response.ExecuteResponse, color bool) {
	code := exitcode.ExitCode(er.ExitCode)
	fmt.Printf("Exit code: %s\n", styled(exitStyle(code), code.String(), color))
	fmt.Printf("Gas used:  %d\n", er.GasUsed)
	fmt.Printf("Miner tip: %s\n", types.FromHiLo(er.MinerTipHi, er.MinerTipLo))
	fmt.Printf("Penalty:   %s\n", types.FromHiLo(er.PenaltyHi, er.PenaltyLo))
	if er.Return.Len() > 0 {
		fmt.Printf("Return:    %x\n", er.Return.Bytes())
	}
	if er.FailureInfo != nil {
		fmt.Printf("Failure:   %s\n", styled(failStyle, er.FailureInfo.String(), color))
	}
}

func frameLine(f *trace.CallFrame) string {
	return fmt.Sprintf("%s -> %s method %d value %s: %s",
		f.Msg.From, f.Msg.To, f.Msg.Method, f.Msg.Value, f.Receipt.ExitCode)
}

func printTrace(root *trace.CallFrame, color bool) {
	fmt.Printf("Trace: %d calls, depth %d\n", trace.Count(root)+1, trace.Depth(root))
	trace.Walk(root, func(depth int, f *trace.CallFrame) bool {
		indent := strings.Repeat("  ", depth-1)
		line := indent + frameLine(f)
		fmt.Println(styled(exitStyle(f.Receipt.ExitCode), line, color))
		if f.Error != "" {
			fmt.Println(styled(dimStyle, indent+"  "+f.Error, color))
		}
		return true
	})
}
