package config

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("FVM_TIMING_LOG", "")
	t.Setenv("FVM_LOG_LEVEL", "")
	t.Setenv("FVM_BLOCKSTORE_CACHE", "")

	cfg := FromEnv()
	if cfg.TimingLog != "" {
		t.Errorf("TimingLog = %q, want empty", cfg.TimingLog)
	}
	if cfg.BlockstoreCache != 4096 {
		t.Errorf("BlockstoreCache = %d, want 4096", cfg.BlockstoreCache)
	}
	if cfg.Level() != zapcore.WarnLevel {
		t.Errorf("Level = %v, want warn", cfg.Level())
	}
}

func TestFromEnv_Values(t *testing.T) {
	t.Setenv("FVM_TIMING_LOG", "/tmp/timing.log")
	t.Setenv("FVM_LOG_LEVEL", "debug")
	t.Setenv("FVM_BLOCKSTORE_CACHE", "16")
	t.Setenv("FVM_MEMORY_LIMIT_PAGES", "256")

	cfg := FromEnv()
	if cfg.TimingLog != "/tmp/timing.log" {
		t.Errorf("TimingLog = %q", cfg.TimingLog)
	}
	if cfg.Level() != zapcore.DebugLevel {
		t.Errorf("Level = %v", cfg.Level())
	}
	if cfg.BlockstoreCache != 16 || cfg.MemoryLimitPages != 256 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestFromEnv_Unparsable(t *testing.T) {
	t.Setenv("FVM_TIMING_LOG", "/tmp/x")
	t.Setenv("FVM_MEMORY_LIMIT_PAGES", "lots")

	cfg := FromEnv()
	if cfg != Defaults() {
		t.Fatalf("FromEnv = %+v, want defaults", cfg)
	}
}

func TestLevel_Fallback(t *testing.T) {
	if lvl := (Config{LogLevel: "chatty"}).Level(); lvl != zapcore.WarnLevel {
		t.Fatalf("Level = %v, want warn", lvl)
	}
	if (Config{LogLevel: "error"}).NewLogger() == nil {
		t.Fatal("NewLogger returned nil")
	}
}
