// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Key selection (index, cursor position)
//   - Pagination flow (page number, continuation token)
//   - Channel cache hits/misses
//
// Info: Normal operation events
//   - Completed searches (query, item count, pages fetched)
//   - First request in a rate limit window
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - API key marked exhausted (rotation follows)
//   - Rate limiter fail-open on store errors
//   - Retry attempts on transient upstream errors
//
// Error: Error conditions requiring attention
//   - All API keys exhausted (capacity errors surfaced to users)
//   - Upstream authorization failures (operator misconfiguration)
//   - Requests failed after retries
//
// Context Fields:
//   - user_id: Authenticated caller
//   - key_index: API key position in the pool
//   - query: Search query text
//   - page: Page number within an attempt
//   - attempt: Key rotation attempt number
//   - error_class: Upstream error classification (quota, bad_request, auth, transient)
//   - retry_after: Suggested retry delay in seconds
