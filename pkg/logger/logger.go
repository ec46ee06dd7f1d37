// Package logger configures the process-wide structured logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type Options struct {
	AddSource bool
	Level     string
	// LogDir, when set, tees log output into <LogDir>/retreivr.log in
	// addition to stdout.
	LogDir string
}

const logFileName = "retreivr.log"

func New(opt *Options) (*slog.Logger, error) {
	if opt == nil {
		return nil, fmt.Errorf("logger options are required")
	}

	opts := &slog.HandlerOptions{
		AddSource: opt.AddSource,
	}

	level, err := ParseLevel(opt.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts.Level = level

	var out io.Writer = os.Stdout

	if opt.LogDir != "" {
		if mkErr := os.MkdirAll(opt.LogDir, 0o755); mkErr == nil {
			file, openErr := os.OpenFile(
				filepath.Join(opt.LogDir, logFileName),
				os.O_CREATE|os.O_WRONLY|os.O_APPEND,
				0o644,
			)
			if openErr == nil {
				out = io.MultiWriter(os.Stdout, file)
			}
		}
	}

	log := slog.New(slog.NewJSONHandler(out, opts))
	slog.SetDefault(log)

	return log, err
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
