package serve

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chirino/spaces-sync-service/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	// Import all plugins to trigger init() registration
	_ "github.com/chirino/spaces-sync-service/internal/plugin/notify/local"
	_ "github.com/chirino/spaces-sync-service/internal/plugin/notify/noop"
	_ "github.com/chirino/spaces-sync-service/internal/plugin/notify/redis"
	_ "github.com/chirino/spaces-sync-service/internal/plugin/route/system"
	_ "github.com/chirino/spaces-sync-service/internal/plugin/store/postgres"
	_ "github.com/chirino/spaces-sync-service/internal/plugin/store/sqlite"
)

// Command returns the serve sub-command.
func Command() *cli.Command {
	cfg := config.DefaultConfig()
	var readHeaderTimeoutSecs int = 5
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the sync service HTTP server",
		Flags: flags(&cfg, &readHeaderTimeoutSecs),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg.Listener.ReadHeaderTimeout = time.Duration(readHeaderTimeoutSecs) * time.Second
			return run(config.WithContext(ctx, &cfg), cfg)
		},
	}
}

func flags(cfg *config.Config, readHeaderTimeoutSecs *int) []cli.Flag {
	return []cli.Flag{

		// ── Server ────────────────────────────────────────────────
		&cli.IntFlag{
			Name:        "port",
			Category:    "Server:",
			Sources:     cli.EnvVars("SPACES_SYNC_PORT"),
			Destination: &cfg.Listener.Port,
			Value:       cfg.Listener.Port,
			Usage:       "HTTP server port",
		},
		&cli.IntFlag{
			Name:        "read-header-timeout-seconds",
			Category:    "Server:",
			Sources:     cli.EnvVars("SPACES_SYNC_READ_HEADER_TIMEOUT_SECONDS"),
			Destination: readHeaderTimeoutSecs,
			Value:       *readHeaderTimeoutSecs,
			Usage:       "HTTP read header timeout in seconds",
		},
		&cli.IntFlag{
			Name:        "drain-timeout-seconds",
			Category:    "Server:",
			Sources:     cli.EnvVars("SPACES_SYNC_DRAIN_TIMEOUT_SECONDS"),
			Destination: &cfg.DrainTimeout,
			Value:       cfg.DrainTimeout,
			Usage:       "Seconds to wait for in-flight requests on shutdown",
		},
		&cli.StringFlag{
			Name:        "mode",
			Category:    "Server:",
			Sources:     cli.EnvVars("SPACES_SYNC_MODE"),
			Destination: &cfg.Mode,
			Value:       cfg.Mode,
			Usage:       "Run mode (prod|testing); testing accepts the X-User-ID header in place of a token",
		},
		&cli.BoolFlag{
			Name:        "access-log",
			Category:    "Server:",
			Sources:     cli.EnvVars("SPACES_SYNC_ACCESS_LOG"),
			Destination: &cfg.AccessLog,
			Value:       cfg.AccessLog,
			Usage:       "Enable HTTP access logging",
		},
		&cli.Int64Flag{
			Name:        "max-body-size",
			Category:    "Server:",
			Sources:     cli.EnvVars("SPACES_SYNC_MAX_BODY_SIZE"),
			Destination: &cfg.MaxBodySize,
			Value:       cfg.MaxBodySize,
			Usage:       "Maximum request body size in bytes",
		},
		&cli.StringFlag{
			Name:        "metrics-labels",
			Category:    "Server:",
			Sources:     cli.EnvVars("SPACES_SYNC_METRICS_LABELS"),
			Destination: &cfg.MetricsLabels,
			Usage:       "Constant Prometheus labels, e.g. 'env=prod,region=us-east-1'; values may reference env vars with ${VAR}",
		},

		// ── Database ──────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "db-url",
			Category:    "Database:",
			Sources:     cli.EnvVars("SPACES_SYNC_DB_URL"),
			Destination: &cfg.DBURL,
			Usage:       "Database connection URL",
		},
		&cli.StringFlag{
			Name:        "db-kind",
			Category:    "Database:",
			Sources:     cli.EnvVars("SPACES_SYNC_DB_KIND"),
			Destination: &cfg.DatastoreType,
			Value:       cfg.DatastoreType,
			Usage:       "Store backend (postgres|sqlite)",
		},
		&cli.IntFlag{
			Name:        "db-max-open-conns",
			Category:    "Database:",
			Sources:     cli.EnvVars("SPACES_SYNC_DB_MAX_OPEN_CONNS"),
			Destination: &cfg.DBMaxOpenConns,
			Value:       cfg.DBMaxOpenConns,
			Usage:       "Maximum open database connections",
		},
		&cli.IntFlag{
			Name:        "db-max-idle-conns",
			Category:    "Database:",
			Sources:     cli.EnvVars("SPACES_SYNC_DB_MAX_IDLE_CONNS"),
			Destination: &cfg.DBMaxIdleConns,
			Value:       cfg.DBMaxIdleConns,
			Usage:       "Maximum idle database connections",
		},
		&cli.BoolFlag{
			Name:        "db-migrate-at-start",
			Category:    "Database:",
			Sources:     cli.EnvVars("SPACES_SYNC_DB_MIGRATE_AT_START"),
			Destination: &cfg.DatastoreMigrateAtStart,
			Value:       cfg.DatastoreMigrateAtStart,
			Usage:       "Run schema migrations on startup",
		},

		// ── Sync ──────────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "notify-kind",
			Category:    "Sync:",
			Sources:     cli.EnvVars("SPACES_SYNC_NOTIFY_KIND"),
			Destination: &cfg.NotifyType,
			Value:       cfg.NotifyType,
			Usage:       "Poll wakeup backend (local|redis|noop)",
		},
		&cli.StringFlag{
			Name:        "redis-url",
			Category:    "Sync:",
			Sources:     cli.EnvVars("SPACES_SYNC_REDIS_URL"),
			Destination: &cfg.RedisURL,
			Usage:       "Redis connection URL for the redis notify backend",
		},
		&cli.IntFlag{
			Name:        "sync-max-bulk-records",
			Category:    "Sync:",
			Sources:     cli.EnvVars("SPACES_SYNC_MAX_BULK_RECORDS"),
			Destination: &cfg.SyncMaxBulkRecords,
			Value:       cfg.SyncMaxBulkRecords,
			Usage:       "Maximum items accepted per bulk sync request (0 = unlimited)",
		},
		&cli.DurationFlag{
			Name:        "sync-poll-cutoff",
			Category:    "Sync:",
			Sources:     cli.EnvVars("SPACES_SYNC_POLL_CUTOFF"),
			Destination: &cfg.SyncPollCutoff,
			Value:       cfg.SyncPollCutoff,
			Usage:       "How long a long-poll request waits before returning empty",
		},
		&cli.DurationFlag{
			Name:        "sync-poll-interval",
			Category:    "Sync:",
			Sources:     cli.EnvVars("SPACES_SYNC_POLL_INTERVAL"),
			Destination: &cfg.SyncPollInterval,
			Value:       cfg.SyncPollInterval,
			Usage:       "How often a long-poll request re-scans for new records",
		},
		&cli.DurationFlag{
			Name:        "sync-settle-delay",
			Category:    "Sync:",
			Sources:     cli.EnvVars("SPACES_SYNC_SETTLE_DELAY"),
			Destination: &cfg.SyncSettleDelay,
			Value:       cfg.SyncSettleDelay,
			Usage:       "Delay before re-reading a non-empty poll result so sibling records can commit",
		},
	}
}

func run(ctx context.Context, cfg config.Config) error {
	srv, err := StartServer(ctx, &cfg)
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("Shutting down...")

	drainCtx, drainCancel := context.WithTimeout(context.Background(), time.Duration(cfg.DrainTimeout)*time.Second)
	defer drainCancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error("Shutdown error", "err", err)
	}
	log.Info("Server stopped")
	return nil
}

func maxBodySizeMiddleware(maxBodySize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
		c.Next()
	}
}
