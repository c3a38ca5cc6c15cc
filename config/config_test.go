package config_test

import (
	"log/slog"
	"testing"

	"github.com/Skryldev/webpio/config"
)

func TestDefaultIsValid(t *testing.T) {
	if err := config.Validate(config.Default()); err != nil {
		t.Fatalf("Default: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*config.Config){
		"quality":    func(c *config.Config) { c.DefaultQuality = -1 },
		"method":     func(c *config.Config) { c.DefaultMethod = 7 },
		"step":       func(c *config.Config) { c.AdaptiveStep = 0 },
		"chunk size": func(c *config.Config) { c.ChunkSize = 0 },
		"limits":     func(c *config.Config) { c.MaxPixels = -1 },
		"backend":    func(c *config.Config) { c.Backend = "" },
		"log level":  func(c *config.Config) { c.LogLevel = "loud" },
	}
	for name, mutate := range tests {
		cfg := config.Default()
		mutate(&cfg)
		if err := config.Validate(cfg); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := config.ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v", in, got, err)
		}
	}
}
