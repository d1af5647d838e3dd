package app

import (
	"log/slog"
	"os"
)

// NewLogger returns a configured slog.Logger. Production runs always log
// JSON; elsewhere LOG_FORMAT picks between json and the readable text
// handler ("pretty").
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && cfg.AppEnv == "development" {
		opts.Level = slog.LevelDebug
	}
	if cfg != nil && (cfg.LogFormat == "json" || cfg.IsProduction()) {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
