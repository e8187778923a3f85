// Package timing appends per-message and per-flush performance records to
// a log file. Recording never fails the operation being recorded: write
// errors are dropped and a nil *Recorder records nothing.
//
// Each record is one JSON object per line, "type" first:
//
//	{"type":"apply","epoch":10,"fuel":2000,"wasm_time":51234,"call_overhead":812,...}
//	{"type":"flush","epoch":10,"time":90211}
package timing

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/fvm-ffi/config"
	"github.com/wippyai/fvm-ffi/engine"
	"github.com/wippyai/fvm-ffi/errors"
	"github.com/wippyai/fvm-ffi/types"
)

// Recorder writes timing records.
type Recorder struct {
	logger *zap.Logger
	closer io.Closer
}

// Open opens path for appending, creating it if needed. Existing content is
// never truncated.
func Open(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.IO(errors.PhaseTiming, "open timing log "+path, err)
	}
	r := New(f)
	r.closer = f
	return r, nil
}

// New returns a Recorder writing to w.
func New(w io.Writer) *Recorder {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		LineEnding: zapcore.DefaultLineEnding,
	})
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), zapcore.DebugLevel)
	return &Recorder{
		logger: zap.New(core, zap.ErrorOutput(zapcore.AddSync(io.Discard))),
	}
}

// ApplyRecord describes one applied message.
type ApplyRecord struct {
	Stats   engine.ExecStats
	Code    cid.Cid
	Time    time.Duration
	GasUsed int64
	Epoch   types.ChainEpoch
	Method  types.MethodNum
}

// Apply records an applied message. Code is written as null when undefined,
// call_overhead as null when no calls were made.
func (r *Recorder) Apply(rec ApplyRecord) {
	if r == nil {
		return
	}

	var overhead *int64
	if rec.Stats.CallCount > 0 {
		per := rec.Stats.CallOverhead.Nanoseconds() / int64(rec.Stats.CallCount)
		overhead = &per
	}
	var code *string
	if rec.Code.Defined() {
		s := rec.Code.String()
		code = &s
	}

	r.logger.Info("",
		zap.String("type", "apply"),
		zap.Int64("epoch", int64(rec.Epoch)),
		zap.Uint64("fuel", rec.Stats.Fuel),
		zap.Int64("wasm_time", rec.Stats.WasmTime.Nanoseconds()),
		zap.Int64p("call_overhead", overhead),
		zap.Int64("gas", rec.GasUsed),
		zap.Uint64("compute_gas", rec.Stats.ComputeGas),
		zap.Uint64("num_actor_calls", rec.Stats.CallCount),
		zap.Uint64("num_syscalls", rec.Stats.NumSyscalls),
		zap.Uint64("num_externs", rec.Stats.NumExterns),
		zap.Int64("time", rec.Time.Nanoseconds()),
		zap.Stringp("code", code),
		zap.Uint64("method", uint64(rec.Method)),
	)
}

// Flush records a state flush and syncs the log.
func (r *Recorder) Flush(epoch types.ChainEpoch, d time.Duration) {
	if r == nil {
		return
	}
	r.logger.Info("",
		zap.String("type", "flush"),
		zap.Int64("epoch", int64(epoch)),
		zap.Int64("time", d.Nanoseconds()),
	)
	_ = r.logger.Sync()
}

// Close closes the underlying file when the Recorder owns one.
func (r *Recorder) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	_ = r.logger.Sync()
	return r.closer.Close()
}

var (
	defaultRecorder *Recorder
	defaultOnce     sync.Once
)

// Default returns the process-wide recorder configured by FVM_TIMING_LOG,
// opened on first use. It is nil when the variable is unset or the file
// cannot be opened.
func Default() *Recorder {
	defaultOnce.Do(func() {
		path := config.Load().TimingLog
		if path == "" {
			return
		}
		r, err := Open(path)
		if err != nil {
			return
		}
		defaultRecorder = r
	})
	return defaultRecorder
}
