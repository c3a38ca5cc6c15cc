package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Backend names a registered codec library binding.
type Backend string

const (
	BackendGo   Backend = "go"
	BackendVips Backend = "vips"
)

// MaxDimension is the largest width or height the bitstream can carry.
const MaxDimension = 16383

// Config is the top-level configuration struct.  All fields have safe defaults
// so callers can start with Default() and override only what they need.
type Config struct {
	// Worker pool controls.
	WorkerCount int // default: runtime.NumCPU()
	QueueSize   int // max queued jobs before backpressure; default: 256

	// Default encode options applied by callers that build options from config.
	DefaultQuality float32 // 0-100; default 75
	DefaultMethod  int     // 0-6; default 4

	// AdaptiveStep is the quality decrement between target-size passes.
	AdaptiveStep float32

	// Memory limits.
	MaxPayloadBytes int64 // 0 = no limit
	MaxPixels       int64 // decoded and picture pixel budget; 0 = no limit
	ChunkSize       int   // streaming chunk size in bytes; default 32 KiB

	// Codec backend.
	Backend Backend

	// Logging.
	LogLevel string // "debug", "info", "warn", "error"
}

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		WorkerCount:    0, // resolved at runtime to NumCPU
		QueueSize:      256,
		DefaultQuality: 75,
		DefaultMethod:  4,
		AdaptiveStep:   5,
		MaxPixels:      MaxDimension * MaxDimension,
		ChunkSize:      32 * 1024,
		Backend:        BackendGo,
		LogLevel:       "info",
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.DefaultQuality < 0 || c.DefaultQuality > 100 {
		return errors.New("config: DefaultQuality must be between 0 and 100")
	}
	if c.DefaultMethod < 0 || c.DefaultMethod > 6 {
		return errors.New("config: DefaultMethod must be between 0 and 6")
	}
	if c.AdaptiveStep <= 0 {
		return errors.New("config: AdaptiveStep must be positive")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: ChunkSize must be positive")
	}
	if c.MaxPayloadBytes < 0 || c.MaxPixels < 0 {
		return errors.New("config: limits must not be negative")
	}
	if c.Backend == "" {
		return errors.New("config: Backend must be set")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel maps LogLevel onto a slog level.  An empty string is info.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("config: unknown LogLevel %q", s)
}
