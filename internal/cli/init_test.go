package cli

import (
	"context"
	"log/slog"
	"testing"

	"ledgerview/internal/config"
	"ledgerview/internal/core"
)

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"})
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level not enabled")
	}
	if logger.Component() != "app" {
		t.Errorf("Component() = %q, want app", logger.Component())
	}

	quiet := SetupLogger(&config.Config{LogLevel: "error"})
	if quiet.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be disabled at error level")
	}
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	if _, err := LoadAndValidateConfig(); err == nil {
		t.Error("LoadAndValidateConfig() error = nil, want validation error")
	}

	t.Setenv("PORT", "8099")
	t.Setenv("DATA_BACKEND", "memory")
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		t.Fatalf("LoadAndValidateConfig() error = %v", err)
	}
	if cfg.Port != "8099" {
		t.Errorf("Port = %q, want 8099", cfg.Port)
	}
}

func TestOpenStoreAndFormatter(t *testing.T) {
	cfg := &config.Config{DataBackend: "memory", CurrencyCode: "KES", CurrencySymbol: "KSh", Locale: "en-KE"}
	res, err := OpenStore(context.Background(), SetupLogger(cfg), cfg)
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer res.Cleanup()

	if _, err := res.Store.Fetch(context.Background(), core.KindInvoice, core.Scope{Rule: core.ScopeTenant, ID: "acme"}); err != nil {
		t.Errorf("Fetch() on empty store error = %v", err)
	}

	f, err := NewFormatter(cfg)
	if err != nil {
		t.Fatalf("NewFormatter() error = %v", err)
	}
	if got := f.Format(core.MustAmount("1500")); got != "KSh 1,500.00" {
		t.Errorf("Format() = %q, want KSh 1,500.00", got)
	}
}
