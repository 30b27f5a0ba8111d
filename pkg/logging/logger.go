// Package logging configures the zerolog logger shared by the cache service.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a minimum severity, spelled the way it appears in LOG_LEVEL.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Component names used as the "component" field.
const (
	ComponentCache        = "cache"
	ComponentRedis        = "cache.redis"
	ComponentFallback     = "cache.fallback"
	ComponentMemo         = "memo"
	ComponentInvalidation = "invalidation"
	ComponentMonitor      = "monitor"
	ComponentTasks        = "tasks"
	ComponentWarm         = "warm"
	ComponentCatalog      = "catalog"
	ComponentPostgres     = "catalog.postgres"
	ComponentHTTP         = "http"
)

// Config holds logger configuration.
type Config struct {
	Level LogLevel

	// Pretty switches from JSON lines to zerolog's console writer
	Pretty bool

	// Output defaults to os.Stderr
	Output io.Writer
}

// DefaultConfig returns JSON output at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
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

// NewLogger derives a logger from the global one tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: per-call detail
//   - cache hit/miss with key and store
//   - memoized function executions
//   - fallback sweeps that removed nothing
//
// Info: lifecycle and maintenance
//   - store selection at startup (primary or fallback)
//   - invalidation fan-out with removed counts
//   - sweep and warm task completions
//   - server startup/shutdown
//
// Warn: degraded but serving
//   - primary store errors absorbed as misses
//   - circuit breaker state changes
//   - corrupted entries skipped during lookup
//   - background task failures (the task backs off and retries)
//
// Error: needs attention
//   - values that cannot be encoded
//   - catalog source failures surfaced to callers
//   - configuration errors
//
// Context Fields:
//   - component: one of the Component* constants
//   - key: cache key
//   - pattern: invalidation pattern
//   - store: "redis" or "memory"
//   - operation: monitored operation name
//   - removed: number of keys removed
//   - ttl: requested entry lifetime
//   - task: background task name
//   - run_id: background task run identifier
