// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"fmt"
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

	// LevelDisabled turns logging off.
	LevelDisabled LogLevel = "disabled"
)

// Component names used with NewLogger.
const (
	ComponentClient    = "esi-client"
	ComponentCache     = "cache"
	ComponentRateLimit = "ratelimit"
	ComponentProxy     = "proxy"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel `toml:"level"`

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool `toml:"pretty"`

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer `toml:"-"`
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
// Unknown levels fall back to info; use ParseLevel to validate first.
func Setup(cfg Config) zerolog.Logger {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// ParseLevel converts a LogLevel to a zerolog.Level. The empty level is info.
func ParseLevel(level LogLevel) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "disabled", "off":
		return zerolog.Disabled, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache flow (hit/miss, sweep counts, writes, duplicate inserts)
//   - Unparsable Expires headers
//   - Error limit updates in the healthy range
//
// Info: Normal operation events
//   - Requests that succeeded after a retry
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Retry attempts
//   - Cache errors (fail-open: miss on read, skipped write)
//   - Error limit in the warning range
//   - Cancelled requests
//
// Error: Error conditions requiring attention
//   - Requests that exhausted all attempts
//   - Error limit in the critical range
//   - Configuration errors
//
// Context Fields:
//   - component: esi-client, cache, ratelimit, proxy
//   - request_id: Unique id per executed request
//   - endpoint: Logical endpoint (cache namespace)
//   - fingerprint: Request fingerprint
//   - attempt: 1-based attempt number
//   - status_code: HTTP status code
//   - error_class: Error classification (client, server, rate_limit, network, unaccepted)
//   - errors_remaining: Current ESI error limit
//   - ttl: Cache entry TTL
