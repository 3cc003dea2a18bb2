// Package logging builds the process-wide slog logger from configuration.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"documentor/internal/config"
	ragerr "documentor/internal/errors"
)

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, ragerr.New(ragerr.CodeConfigInvalid, "unknown log level", ragerr.Field("level", name))
}

// New returns a logger writing to w in the configured format. verbose forces
// debug level.
func New(cfg config.LogConfig, w io.Writer, verbose bool) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch cfg.Format {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, ragerr.New(ragerr.CodeConfigInvalid, "unknown log format", ragerr.Field("format", cfg.Format))
	}
	return slog.New(h), nil
}

// Install builds the logger and makes it the slog default.
func Install(cfg config.LogConfig, w io.Writer, verbose bool) (*slog.Logger, error) {
	logger, err := New(cfg, w, verbose)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}
