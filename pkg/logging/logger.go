// Package logging configures zerolog for the sec-api.io client, its CLI and
// its HTTP service.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a level name as it appears in config files and LOG_LEVEL.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Component names used in the "component" field.
const (
	ComponentClient    = "secapi-client"
	ComponentFanout    = "fanout"
	ComponentRetriever = "retriever"
	ComponentServer    = "server"
	ComponentCLI       = "cli"
)

// ConsoleTimeFormat is the timestamp layout of pretty output.
const ConsoleTimeFormat = "15:04:05.000"

// Config holds logger configuration.
type Config struct {
	Level LogLevel

	// Pretty switches from JSON lines to zerolog's console writer.
	Pretty bool

	// Output defaults to os.Stderr so stdout stays free for documents.
	Output io.Writer
}

// DefaultConfig returns JSON logging at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// Setup sets the global level and replaces log.Logger. The configured
// logger is returned for callers that prefer not to use the global.
func Setup(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: ConsoleTimeFormat}
	}

	zerolog.SetGlobalLevel(ParseLevel(string(cfg.Level)))

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// ParseLevel converts a level name such as "debug" or "WARNING" to a
// zerolog.Level. Unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger derives a logger from the global one with a component field.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithRunID tags every line of base with a fresh run_id so the log lines of
// one report retrieval can be correlated. The id is returned as well.
func WithRunID(base zerolog.Logger) (zerolog.Logger, string) {
	id := uuid.NewString()
	return base.With().Str("run_id", id).Logger(), id
}
