package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var Log *slog.Logger

// output is where every handler writes. Tests swap it.
var output io.Writer = os.Stdout

func init() {
	// Auto-initialize with safe defaults for tests and development
	// Production code can override by calling Initialize() explicitly
	Initialize("info", false, "")
}

// Initialize sets up the global logger with the specified level and format.
// A non-empty service name is attached to every record so that the API and
// the import tool can share one log sink.
func Initialize(level string, useJSON bool, service string) {
	var handler slog.Handler

	// Parse log level
	logLevel := parseLevel(level)

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: true, // Equivalent to log.Lshortfile - adds file and line number
	}

	// Choose handler based on format
	if useJSON {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	Log = slog.New(handler)
	if service != "" {
		Log = Log.With("service", service)
	}
	slog.SetDefault(Log) // Make it the default for entire program
}

// Component returns a child logger tagged with the given component name.
func Component(name string) *slog.Logger {
	return Log.With("component", name)
}

// parseLevel converts string log level to slog.Level
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		// Default to Info if invalid level provided
		return slog.LevelInfo
	}
}
