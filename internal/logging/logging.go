package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/goatplatform/edge-chat/internal/configuration"
	"github.com/goatplatform/edge-chat/internal/file"
)

// New returns a logger writing to the configured sink. The returned closer releases the log file, if any.
func New(config *configuration.Logging) (*slog.Logger, io.Closer, error) {
	level, err := parseLevel(config.Level)
	if err != nil {
		return nil, nil, err
	}

	var writer io.WriteCloser = nopCloser{os.Stderr}
	if config.File != "" {
		if err := file.CreateParentDirectory(config.File); err != nil {
			return nil, nil, errors.Wrap(err, "creating log directory")
		}
		f, err := os.OpenFile(config.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening log file")
		}
		writer = f
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}
	var handler slog.Handler
	switch strings.ToLower(config.Format) {
	case "", "text":
		handler = slog.NewTextHandler(writer, opts)
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	default:
		writer.Close()
		return nil, nil, errors.Errorf("unknown log format (%s)", config.Format)
	}
	return slog.New(handler), writer, nil
}

// Discard returns a logger dropping every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errors.Errorf("unknown log level (%s)", level)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
