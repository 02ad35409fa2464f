// Package logger builds the process-wide slog logger.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configure New.
type Options struct {
	AddSource bool
	Level     string
	// Format is "json" (default) or "text".
	Format string
	// Output defaults to stdout.
	Output io.Writer
}

// New creates a logger and installs it as the slog default. An unknown level or format falls
// back to info or json, and the parse error is returned alongside the usable logger.
func New(opt *Options) (*slog.Logger, error) {
	if opt == nil {
		return nil, fmt.Errorf("logger options are required")
	}

	out := opt.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		AddSource: opt.AddSource,
	}

	level, levelErr := ParseLevel(opt.Level)
	opts.Level = level

	var (
		handler   slog.Handler
		formatErr error
	)

	switch strings.ToLower(opt.Format) {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	case "", "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		formatErr = fmt.Errorf("unknown log format: %q", opt.Format)
		handler = slog.NewJSONHandler(out, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log, errors.Join(levelErr, formatErr)
}

// ParseLevel converts a string level to slog.Level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %q", level)
	}
}
