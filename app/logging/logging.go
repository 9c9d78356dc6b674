package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs the process-wide slog logger.
func Setup(format string, debug bool) *slog.Logger {
	return SetupWriter(os.Stdout, format, debug)
}

func SetupWriter(w io.Writer, format string, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
