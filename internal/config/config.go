package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultEndpoint = "http://localhost:5000/query"
	DefaultLogDir   = "logs"

	// DefaultEventsDB places the event ledger inside the log directory,
	// whichever one is finally chosen.
	DefaultEventsDB = "<log-dir>/querychat_events.db"
	eventsDBName    = "querychat_events.db"
)

// Config holds application configuration
type Config struct {
	Endpoint string        // Full URL of the query endpoint
	Timeout  time.Duration // Zero means requests never time out
	Plain    bool          // Force the line-oriented console even on a TTY
	Debug    bool
	LogDir   string
	EventsDB string // SQLite path for the query event ledger; empty disables it
	NoTrace  bool   // Skip the trace and metric exporters
}

// Load builds a Config from the environment, reading a .env file first when
// one exists. Command-line flags override these values afterwards.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := Config{
		Endpoint: getEnv("QUERYCHAT_ENDPOINT", DefaultEndpoint),
		LogDir:   getEnv("QUERYCHAT_LOG_DIR", DefaultLogDir),
		EventsDB: getEnv("QUERYCHAT_EVENTS_DB", DefaultEventsDB),
	}

	if raw, ok := os.LookupEnv("QUERYCHAT_TIMEOUT"); ok && raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid QUERYCHAT_TIMEOUT %q: %w", raw, err)
		}
		cfg.Timeout = d
	}

	if raw, ok := os.LookupEnv("QUERYCHAT_DEBUG"); ok && raw != "" {
		debug, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid QUERYCHAT_DEBUG %q: %w", raw, err)
		}
		cfg.Debug = debug
	}

	if raw, ok := os.LookupEnv("QUERYCHAT_NO_TRACE"); ok && raw != "" {
		noTrace, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid QUERYCHAT_NO_TRACE %q: %w", raw, err)
		}
		cfg.NoTrace = noTrace
	}

	return cfg, nil
}

// EventsPath is the ledger file to open, or "" when the ledger is disabled
func (c Config) EventsPath() string {
	if c.EventsDB == DefaultEventsDB {
		return filepath.Join(c.LogDir, eventsDBName)
	}
	return c.EventsDB
}

// Validate reports the first problem with the configuration.
func (c Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", c.Endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid endpoint %q: scheme must be http or https", c.Endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: missing host", c.Endpoint)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout %s: must not be negative", c.Timeout)
	}
	if c.LogDir == "" {
		return fmt.Errorf("log directory must not be empty")
	}
	return nil
}

// LogValue keeps startup logging to one structured line.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("endpoint", c.Endpoint),
		slog.Duration("timeout", c.Timeout),
		slog.Bool("plain", c.Plain),
		slog.Bool("debug", c.Debug),
		slog.String("log_dir", c.LogDir),
		slog.String("events_db", c.EventsPath()),
		slog.Bool("no_trace", c.NoTrace),
	)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
