// Package api provides the HTTP REST API and WebSocket server for
// AutoScribe Core.
//
// It exposes automation generation and persistence, the entity catalog,
// compile history, and system status to user interfaces (the add-on panel,
// web admin, scripts).
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/autoscribe/autoscribe-core/internal/astro"
	"github.com/autoscribe/autoscribe-core/internal/catalog"
	"github.com/autoscribe/autoscribe-core/internal/compiler"
	"github.com/autoscribe/autoscribe-core/internal/history"
	"github.com/autoscribe/autoscribe-core/internal/inference"
	"github.com/autoscribe/autoscribe-core/internal/infrastructure/config"
	"github.com/autoscribe/autoscribe-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HomeAssistant is the subset of the Home Assistant client the API uses.
// The interface lives here so handlers can be tested without a live
// supervisor proxy.
type HomeAssistant interface {
	CallService(ctx context.Context, domain, service string, payload map[string]any) error
	SaveAutomation(ctx context.Context, objectID, yamlContent string) error
	ReloadAutomations(ctx context.Context) error
	Ping(ctx context.Context) error
}

// HealthChecker reports the health of one infrastructure component.
// Implemented by the MQTT, InfluxDB, and database clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config       config.APIConfig
	WS           config.WebSocketConfig
	Logger       *logging.Logger
	Compiler     *compiler.Compiler
	Store        *catalog.Store
	Refresher    *catalog.Refresher
	HA           HomeAssistant
	History      history.Repository
	Availability *inference.Controller
	Astro        *astro.Calculator

	// Optional infrastructure health probes for /system/status.
	// A nil probe reports the component as disabled.
	MQTT   HealthChecker
	Influx HealthChecker
	DB     HealthChecker

	ExternalHub *Hub // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server for AutoScribe Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg          config.APIConfig
	wsCfg        config.WebSocketConfig
	logger       *logging.Logger
	compiler     *compiler.Compiler
	store        *catalog.Store
	refresher    *catalog.Refresher
	ha           HomeAssistant
	historyRepo  history.Repository
	availability *inference.Controller
	astro        *astro.Calculator
	mqttHealth   HealthChecker
	influxHealth HealthChecker
	dbHealth     HealthChecker
	version      string
	server       *http.Server
	hub          *Hub
	cancel       context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, compiler, store)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Compiler == nil {
		return nil, fmt.Errorf("compiler is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("catalog store is required")
	}
	// HA is optional: generation works offline, persistence returns 503

	s := &Server{
		cfg:          deps.Config,
		wsCfg:        deps.WS,
		logger:       deps.Logger,
		compiler:     deps.Compiler,
		store:        deps.Store,
		refresher:    deps.Refresher,
		ha:           deps.HA,
		historyRepo:  deps.History,
		availability: deps.Availability,
		astro:        deps.Astro,
		mqttHealth:   deps.MQTT,
		influxHealth: deps.Influx,
		dbHealth:     deps.DB,
		version:      deps.Version,
	}

	// Use externally-provided hub if available (needed when the compiler's
	// event fan-out also requires the hub for WebSocket broadcasting).
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
	}

	return s, nil
}

// Hub returns the server's WebSocket hub. Valid after Start() unless an
// external hub was provided, in which case it is valid immediately.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// Create WebSocket hub (unless one was injected externally)
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	// Build router
	router := s.buildRouter()

	// Create HTTP server
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
