package engine

import (
	"context"
	"sync"

	"github.com/ipfs/go-cid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/fvm-ffi/config"
	"github.com/wippyai/fvm-ffi/errors"
	"github.com/wippyai/fvm-ffi/exitcode"
	"github.com/wippyai/fvm-ffi/types"
)

// Host module imported by wasm actors.
const (
	hostModule   = "vm"
	hostSend     = "send"
	exportInvoke = "invoke"
)

// RuntimeConfig holds configuration for runtime creation.
type RuntimeConfig struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32
}

// Runtime is a wazero runtime plus a cache of compiled actor code. One
// Runtime is shared by every machine in the process.
type Runtime struct {
	rt       wazero.Runtime
	cache    wazero.CompilationCache
	compiled map[cid.Cid]wazero.CompiledModule
	mu       sync.Mutex
}

// NewRuntime creates a runtime and instantiates the host module.
func NewRuntime(ctx context.Context, cfg RuntimeConfig) (*Runtime, error) {
	cache := wazero.NewCompilationCache()
	runtimeCfg := wazero.NewRuntimeConfig().WithCompilationCache(cache)
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	if err := instantiateHost(ctx, rt); err != nil {
		rt.Close(ctx)
		cache.Close(ctx)
		return nil, errors.Construction("instantiate host module", err)
	}

	return &Runtime{
		rt:       rt,
		cache:    cache,
		compiled: make(map[cid.Cid]wazero.CompiledModule),
	}, nil
}

func instantiateHost(ctx context.Context, rt wazero.Runtime) error {
	_, err := rt.NewHostModuleBuilder(hostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, _ api.Module, stack []uint64) {
			frame, ok := ctx.Value(frameKey{}).(*hostFrame)
			if !ok {
				stack[0] = uint64(exitcode.SysAssertionFailed)
				return
			}
			to, method := stack[0], stack[1]
			stack[0] = uint64(frame.send(ctx, types.ActorID(to), types.MethodNum(method)))
		}), []api.ValueType{api.ValueTypeI64, api.ValueTypeI64}, []api.ValueType{api.ValueTypeI32}).
		Export(hostSend).
		Instantiate(ctx)
	return err
}

// compile returns the compiled module for code, compiling on first use.
func (r *Runtime) compile(ctx context.Context, code cid.Cid, wasm []byte) (wazero.CompiledModule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.compiled[code]; ok {
		return m, nil
	}
	m, err := r.rt.CompileModule(ctx, wasm)
	if err != nil {
		return nil, err
	}
	r.compiled[code] = m
	debugf("compiled actor code %s", code)
	return m, nil
}

// Close releases compiled modules and the runtime.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	for c, m := range r.compiled {
		m.Close(ctx)
		delete(r.compiled, c)
	}
	r.mu.Unlock()

	err := r.rt.Close(ctx)
	r.cache.Close(ctx)
	return err
}

var (
	shared     *Runtime
	sharedErr  error
	sharedOnce sync.Once
)

// Shared returns the process-wide runtime, created on first use from the
// process configuration. It lives until the process exits.
func Shared() (*Runtime, error) {
	sharedOnce.Do(func() {
		cfg := config.Load()
		shared, sharedErr = NewRuntime(context.Background(), RuntimeConfig{
			MemoryLimitPages: cfg.MemoryLimitPages,
		})
		if sharedErr == nil {
			Logger().Debug("shared runtime initialized", zap.Uint32("memory_limit_pages", cfg.MemoryLimitPages))
		}
	})
	return shared, sharedErr
}
