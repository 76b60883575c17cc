// Package logging builds the process logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dwsmith1983/healthwatch/pkg/types"
)

const timeFormat = "2006-01-02 15:04:05.000"

// ParseLevel maps a config level name to a slog level. Unknown names are info.
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

// New creates a logger from cfg. Output goes to cfg.File through a rotating
// writer when set, otherwise to stderr. The returned closer releases the file.
func New(cfg *types.LoggingConfig) (*slog.Logger, io.Closer) {
	if cfg == nil {
		cfg = &types.LoggingConfig{}
	}

	var (
		writer io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		writer, closer = lj, lj
	}
	return NewWithWriter(writer, cfg.Level, cfg.Format), closer
}

// NewWithWriter creates a text or JSON logger writing to w.
func NewWithWriter(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	opts.ReplaceAttr = func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey {
			return slog.String(slog.TimeKey, a.Value.Time().Format(timeFormat))
		}
		return a
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Init builds the logger from cfg and installs it as the slog default.
func Init(cfg *types.LoggingConfig) (*slog.Logger, io.Closer) {
	logger, closer := New(cfg)
	slog.SetDefault(logger)
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
