package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/farmhand/groundskeeper/pkg/consts"
	"github.com/pkg/errors"
	slogmulti "github.com/samber/slog-multi"
)

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates the process logger: text on stderr and, when a log file is
// configured, JSON in that file as well. The returned func closes the file.
func NewLogger(cfg Logging) (*slog.Logger, func() error, error) {
	level := ParseLevel(cfg.Level)
	stderr := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	if cfg.File == "" {
		return slog.New(stderr), func() error { return nil }, nil
	}

	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, consts.ModeFile)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open log file: %s", cfg.File)
	}

	return NewLoggerWithWriters(os.Stderr, file, level), file.Close, nil
}

// NewLoggerWithWriters fans out to a text and a JSON handler on the given writers.
func NewLoggerWithWriters(text, json io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slogmulti.Fanout(
		slog.NewTextHandler(text, &slog.HandlerOptions{Level: level}),
		slog.NewJSONHandler(json, &slog.HandlerOptions{Level: level}),
	))
}
