package config

import (
	"context"
	"time"
)

// ListenerConfig holds the network settings for the HTTP listener.
type ListenerConfig struct {
	Port              int
	ReadHeaderTimeout time.Duration
}

type contextKey struct{}

// WithContext returns a new context carrying the given Config.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves the Config from the context.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}

const (
	ModeProd    = "prod"
	ModeTesting = "testing"
)

// Config holds all configuration for the sync service.
type Config struct {
	// Mode controls auth behavior: "prod" (default) or "testing".
	// In testing mode the X-User-ID header is accepted in place of a token.
	Mode string

	// Database
	DBURL          string
	DatastoreType  string // "postgres" or "sqlite"
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Run datastore migrations on startup.
	DatastoreMigrateAtStart bool

	// Poll wakeup backend: "local", "noop" or "redis".
	NotifyType string
	RedisURL   string

	// Sync engine tuning. A bulk batch is truncated to SyncMaxBulkRecords
	// items (0 disables the cap). The long-poll loop gives up after
	// SyncPollCutoff, re-scans every SyncPollInterval, and delays a
	// non-empty poll result by SyncSettleDelay to let sibling fan-out
	// rows commit.
	SyncMaxBulkRecords int
	SyncPollCutoff     time.Duration
	SyncPollInterval   time.Duration
	SyncSettleDelay    time.Duration

	// HTTP
	Listener    ListenerConfig
	MaxBodySize int64
	AccessLog   bool

	// Seconds to wait for in-flight requests on shutdown.
	DrainTimeout int

	// Prometheus constant labels, "key=value,key=value".
	MetricsLabels string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mode:                    ModeProd,
		DatastoreType:           "postgres",
		DatastoreMigrateAtStart: true,
		DBMaxOpenConns:          25,
		DBMaxIdleConns:          5,
		NotifyType:              "local",
		SyncMaxBulkRecords:      32,
		SyncPollCutoff:          30 * time.Second,
		SyncPollInterval:        2500 * time.Millisecond,
		SyncSettleDelay:         500 * time.Millisecond,
		Listener: ListenerConfig{
			Port:              8181,
			ReadHeaderTimeout: 5 * time.Second,
		},
		MaxBodySize:  4 * 1024 * 1024,
		AccessLog:    true,
		DrainTimeout: 10,
	}
}
