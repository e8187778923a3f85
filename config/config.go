// Package config holds the process-wide settings read from the environment.
package config

import (
	"sync"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls process-wide behavior of the boundary layer.
type Config struct {
	// TimingLog is the path of the append-only timing log. Empty disables it.
	TimingLog string `env:"FVM_TIMING_LOG"`
	// LogLevel is a zap level name.
	LogLevel string `env:"FVM_LOG_LEVEL"          envDefault:"warn"`
	// BlockstoreCache is the number of blocks kept in each blockstore read
	// cache.
	BlockstoreCache int `env:"FVM_BLOCKSTORE_CACHE"   envDefault:"4096"`
	// MemoryLimitPages caps wasm linear memory (64KiB pages); 0 keeps the
	// runtime default.
	MemoryLimitPages uint32 `env:"FVM_MEMORY_LIMIT_PAGES" envDefault:"0"`
}

// Defaults returns the configuration used when the environment is absent or
// unparsable.
func Defaults() Config {
	return Config{
		LogLevel:        "warn",
		BlockstoreCache: 4096,
	}
}

// FromEnv parses the environment, falling back to Defaults on error.
func FromEnv() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Defaults()
	}
	if cfg.BlockstoreCache <= 0 {
		cfg.BlockstoreCache = Defaults().BlockstoreCache
	}
	return cfg
}

var (
	loaded   Config
	loadOnce sync.Once
)

// Load returns the process configuration, reading the environment on first
// use only.
func Load() Config {
	loadOnce.Do(func() {
		loaded = FromEnv()
	})
	return loaded
}

// Level parses LogLevel, defaulting to warn.
func (c Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.WarnLevel
	}
	return lvl
}

// NewLogger builds the JSON stderr logger used at the boundary.
func (c Config) NewLogger() *zap.Logger {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(c.Level())
	zc.Sampling = nil
	l, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
