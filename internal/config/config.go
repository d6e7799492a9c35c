// Package config provides centralized configuration management for dwcheck.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"

	"github.com/JonMunkholm/dwcheck/internal/core"
	"github.com/JonMunkholm/dwcheck/internal/loader"
	"github.com/JonMunkholm/dwcheck/internal/taxon"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Taxonomy TaxonomyConfig
	Linkage  LinkageConfig
	Database DatabaseConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 10m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"10m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds a whole validation request, taxonomy included (default: 10m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"10m"`
}

// UploadConfig holds limits for uploaded datasets.
type UploadConfig struct {
	// MaxFileSize is the maximum size of each uploaded table in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of validation runs at once (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a request waits for a run slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// TaxonomyConfig holds taxonomic authority client settings.
type TaxonomyConfig struct {
	// Enabled turns the taxonomy stage on (default: true)
	Enabled bool `env:"TAXON_ENABLED" default:"true"`

	// BaseURL is the WoRMS REST root (default: https://www.marinespecies.org/rest)
	BaseURL string `env:"TAXON_BASE_URL" default:"https://www.marinespecies.org/rest"`

	// BatchSize is the number of names per request (default: 50)
	BatchSize int `env:"TAXON_BATCH_SIZE" default:"50"`

	// Concurrency is the number of batches in flight (default: 2)
	Concurrency int `env:"TAXON_CONCURRENCY" default:"2"`

	// Pause is held after each batch but the last (default: 500ms)
	Pause time.Duration `env:"TAXON_PAUSE" default:"500ms"`

	// Timeout bounds each request attempt (default: 60s)
	Timeout time.Duration `env:"TAXON_TIMEOUT" default:"60s"`

	// MaxAttempts is the retry budget per batch, first try included (default: 3)
	MaxAttempts int `env:"TAXON_MAX_ATTEMPTS" default:"3"`

	// InitialBackoff is the wait after the first failed attempt (default: 1s)
	InitialBackoff time.Duration `env:"TAXON_INITIAL_BACKOFF" default:"1s"`

	// BackoffMultiplier grows the wait per attempt; 1 means fixed backoff (default: 2)
	BackoffMultiplier float64 `env:"TAXON_BACKOFF_MULTIPLIER" default:"2"`

	// MaxBackoff caps the wait between attempts (default: 10s)
	MaxBackoff time.Duration `env:"TAXON_MAX_BACKOFF" default:"10s"`

	// CacheSize bounds the memoized names (default: 10000)
	CacheSize int `env:"TAXON_CACHE_SIZE" default:"10000"`

	// MarineOnly restricts matches to marine taxa (default: true)
	MarineOnly bool `env:"TAXON_MARINE_ONLY" default:"true"`
}

// LinkageConfig holds join settings.
type LinkageConfig struct {
	// CollisionPolicy is reject, prefer-left or prefer-right (default: reject)
	CollisionPolicy string `env:"LINK_COLLISION_POLICY" default:"reject"`
}

// DatabaseConfig holds settings for reading datasets from PostgreSQL.
// The database is optional; without a URL only CSV input is available.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// EventTable is the source table for events (default: event)
	EventTable string `env:"DWC_EVENT_TABLE" default:"event"`

	// OccurrenceTable is the source table for occurrences (default: occurrence)
	OccurrenceTable string `env:"DWC_OCCURRENCE_TABLE" default:"occurrence"`

	// EmofTable is the source table for extended measurements (default: emof)
	EmofTable string `env:"DWC_EMOF_TABLE" default:"emof"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// ClientConfig converts the settings to a taxon.Config.
func (c *TaxonomyConfig) ClientConfig() taxon.Config {
	return taxon.Config{
		BaseURL:     c.BaseURL,
		BatchSize:   c.BatchSize,
		Concurrency: c.Concurrency,
		Pause:       c.Pause,
		Timeout:     c.Timeout,
		MarineOnly:  c.MarineOnly,
	}
}

// RetryPolicy converts the settings to a taxon.RetryPolicy.
func (c *TaxonomyConfig) RetryPolicy() taxon.RetryPolicy {
	return taxon.RetryPolicy{
		MaxAttempts:    c.MaxAttempts,
		InitialBackoff: c.InitialBackoff,
		Multiplier:     c.BackoffMultiplier,
		MaxBackoff:     c.MaxBackoff,
		Retryable:      taxon.IsTransient,
	}
}

// Policy returns the parsed collision policy. Validate has already
// rejected unknown values.
func (c *LinkageConfig) Policy() core.CollisionPolicy {
	p, err := core.ParseCollisionPolicy(c.CollisionPolicy)
	if err != nil {
		return core.CollisionReject
	}
	return p
}

// Enabled reports whether a database URL was configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// PoolConfig converts the settings to a loader.PoolConfig.
func (c *DatabaseConfig) PoolConfig() loader.PoolConfig {
	return loader.PoolConfig{
		URL:             c.URL,
		MaxConns:        c.MaxConns,
		MinConns:        c.MinConns,
		MaxConnLifetime: c.MaxConnLifetime,
		MaxConnIdleTime: c.MaxConnIdleTime,
	}
}

// TableNames returns the configured source tables.
func (c *DatabaseConfig) TableNames() loader.TableNames {
	return loader.TableNames{
		Event:      c.EventTable,
		Occurrence: c.OccurrenceTable,
		Emof:       c.EmofTable,
	}
}
