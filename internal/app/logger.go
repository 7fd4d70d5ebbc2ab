package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide logger: JSON when LOG_FORMAT=json,
// readable text otherwise. Non-production runs log at Debug so cache
// and warmup decisions are visible.
func NewLogger(cfg *Config) *slog.Logger {
	level := slog.LevelDebug
	if cfg.IsProduction() {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{AddSource: true, Level: level}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
