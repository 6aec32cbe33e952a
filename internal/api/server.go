// Package api provides the HTTP server for Lock Bridge.
//
// It exposes the smart home fulfillment endpoint, the account-linking
// OAuth stubs, direct device state endpoints for sensors and tooling, the
// request-sync trigger, and a WebSocket state stream.
//
// The server follows the same lifecycle pattern as other components:
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

	"github.com/nerrad567/lockbridge/internal/device"
	"github.com/nerrad567/lockbridge/internal/fulfillment"
	"github.com/nerrad567/lockbridge/internal/infrastructure/config"
	"github.com/nerrad567/lockbridge/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// SyncRequester triggers a platform re-sync. Satisfied by the homegraph
// client; an interface so the relay endpoint is testable without the
// platform.
type SyncRequester interface {
	RequestSync(ctx context.Context, agentUserID string) ([]byte, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Security    config.SecurityConfig
	Logger      *logging.Logger
	Store       *device.Store
	Fulfillment *fulfillment.Service
	HomeGraph   SyncRequester
	History     device.StateHistoryRepository // optional
	AgentUserID string
	Version     string
}

// Server is the HTTP server for Lock Bridge.
//
// It manages the HTTP listener, routes, middleware, and the WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	store       *device.Store
	fulfillment *fulfillment.Service
	homegraph   SyncRequester
	history     device.StateHistoryRepository
	agentUserID string
	version     string

	server *http.Server
	hub    *Hub
	cancel context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("device store is required")
	}
	if deps.Fulfillment == nil {
		return nil, fmt.Errorf("fulfillment service is required")
	}

	return &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		secCfg:      deps.Security,
		logger:      deps.Logger,
		store:       deps.Store,
		fulfillment: deps.Fulfillment,
		homegraph:   deps.HomeGraph,
		history:     deps.History,
		agentUserID: deps.AgentUserID,
		version:     deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, subscribes to the device
// store's change feed for real-time broadcast, and launches the HTTP
// listener in a background goroutine. The server is stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	s.subscribeStateUpdates(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

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

// HealthCheck verifies the API server is running.
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

// subscribeStateUpdates relays committed store mutations to WebSocket
// clients subscribed to "device.state_changed".
func (s *Server) subscribeStateUpdates(ctx context.Context) {
	events, cancelSub := s.store.Subscribe()

	go func() {
		defer cancelSub()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				s.hub.Broadcast("device.state_changed", map[string]any{
					"device_id": ev.DeviceID,
					"state":     ev.State.Flatten(),
					"source":    string(ev.Source),
					"timestamp": ev.At.UTC().Format(time.RFC3339),
				})
			}
		}
	}()
}
