package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/chirino/spaces-sync-service/internal/config"
	"github.com/chirino/spaces-sync-service/internal/plugin/route/spaces"
	"github.com/chirino/spaces-sync-service/internal/plugin/route/syncapi"
	routesystem "github.com/chirino/spaces-sync-service/internal/plugin/route/system"
	"github.com/chirino/spaces-sync-service/internal/plugin/route/users"
	storemetrics "github.com/chirino/spaces-sync-service/internal/plugin/store/metrics"
	"github.com/chirino/spaces-sync-service/internal/profile"
	registrymigrate "github.com/chirino/spaces-sync-service/internal/registry/migrate"
	registrynotify "github.com/chirino/spaces-sync-service/internal/registry/notify"
	registryroute "github.com/chirino/spaces-sync-service/internal/registry/route"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
	"github.com/chirino/spaces-sync-service/internal/security"
	syncengine "github.com/chirino/spaces-sync-service/internal/sync"
	"github.com/gin-gonic/gin"
)

// Server holds the running server and its subsystems.
type Server struct {
	Config *config.Config
	Store  registrystore.Store
	Router *gin.Engine
	Port   int

	httpServer *http.Server
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// StartServer initializes all subsystems and starts the HTTP listener.
// Use cfg.Listener.Port=0 for a random port. Actual port: Server.Port.
func StartServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	log.Info("Starting sync service",
		"httpPort", cfg.Listener.Port,
		"db", cfg.DatastoreType,
		"notify", cfg.NotifyType,
		"mode", cfg.Mode,
	)

	// Initialize Prometheus metrics with configured constant labels.
	metricsLabels, err := security.ParseMetricsLabels(cfg.MetricsLabels)
	if err != nil {
		return nil, fmt.Errorf("invalid --metrics-labels: %w", err)
	}
	security.InitMetrics(metricsLabels)

	// Run migrations
	if err := registrymigrate.RunAll(ctx); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	// Initialize store
	storeLoader, err := registrystore.Select(cfg.DatastoreType)
	if err != nil {
		return nil, err
	}
	store, err := storeLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	store = storemetrics.Wrap(store)

	// Initialize the poll wakeup backend.
	notifyLoader, err := registrynotify.Select(cfg.NotifyType)
	if err != nil {
		return nil, err
	}
	notifier, err := notifyLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notifier: %w", err)
	}

	// Wire the sync engine. Verify fails startup when a registered item
	// type is missing its link handler.
	ledger := syncengine.NewLedger(store, notifier)
	svc := profile.NewService(store, ledger)
	registry := profile.BuildRegistry(svc)
	if err := registry.Verify(); err != nil {
		return nil, err
	}
	engine := syncengine.NewEngine(cfg, store, registry, notifier, svc, svc)

	// Set up gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.AccessLog {
		router.Use(security.AccessLogMiddleware("/health", "/ready", "/metrics"))
	}
	router.Use(security.MetricsMiddleware())
	router.Use(maxBodySizeMiddleware(cfg.MaxBodySize))

	// Mount route plugins (health, ready, metrics).
	for _, loader := range registryroute.Loaders() {
		if err := loader(router); err != nil {
			return nil, fmt.Errorf("failed to load routes: %w", err)
		}
	}

	// Mount API routes
	auth := security.AuthMiddleware(cfg, store)
	syncapi.MountRoutes(router, engine, auth)
	spaces.MountRoutes(router, svc, auth)
	users.MountRoutes(router, svc, auth)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Listener.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", cfg.Listener.Port, err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: cfg.Listener.ReadHeaderTimeout,
	}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "err", err)
		}
	}()

	log.Info("Server listening", "port", port)

	routesystem.MarkReady()
	return &Server{
		Config:     cfg,
		Store:      store,
		Router:     router,
		Port:       port,
		httpServer: httpServer,
	}, nil
}
