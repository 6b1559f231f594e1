// Package server wires the HTTP router for the escrow API.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/commonfund/escrowd/internal/config"
	"github.com/commonfund/escrowd/internal/handler"
	"github.com/commonfund/escrowd/internal/health"
	"github.com/commonfund/escrowd/internal/middleware"
)

// Server is the HTTP server for the escrow API.
type Server struct {
	cfg          config.ServerConfig
	router       *mux.Router
	httpServer   *http.Server
	handler      *handler.Handler
	errorHandler *handler.ErrorHandler
	checker      *health.Checker
	logger       *zap.Logger
}

// New creates a new server with routes and middleware configured.
func New(
	cfg config.ServerConfig,
	rlCfg config.RateLimiterConfig,
	h *handler.Handler,
	eh *handler.ErrorHandler,
	checker *health.Checker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		cfg:          cfg,
		router:       mux.NewRouter(),
		handler:      h,
		errorHandler: eh,
		checker:      checker,
		logger:       logger,
	}

	s.setupMiddleware(rlCfg)
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

func (s *Server) setupMiddleware(rlCfg config.RateLimiterConfig) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recovery(s.logger))
	s.router.Use(middleware.Logging(s.logger))

	if rlCfg.Enabled {
		limiter := middleware.NewRateLimiter(rlCfg.RequestsPerSecond, rlCfg.BurstSize, s.logger)
		s.router.Use(limiter.Limit)
	}
}

func (s *Server) setupRoutes() {
	// Health endpoints are unversioned
	s.router.HandleFunc("/health/live", s.checker.LivenessHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/health/ready", s.checker.ReadinessHandler).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/v1").Subrouter()

	// Tenant treasury
	v1.HandleFunc("/tenants", s.handler.RegisterTenant).Methods(http.MethodPost)
	v1.HandleFunc("/tenants/{tenant_id}", s.handler.GetTenant).Methods(http.MethodGet)
	v1.HandleFunc("/tenants/{tenant_id}/deposit", s.handler.Deposit).Methods(http.MethodPost)
	v1.HandleFunc("/tenants/{tenant_id}/withdraw", s.handler.Withdraw).Methods(http.MethodPost)
	v1.HandleFunc("/tenants/{tenant_id}/deactivate", s.handler.DeactivateTenant).Methods(http.MethodPost)

	// Commitments
	v1.HandleFunc("/commitments", s.handler.CreateCommitment).Methods(http.MethodPost)
	v1.HandleFunc("/commitments/{commitment_id}", s.handler.GetCommitment).Methods(http.MethodGet)
	v1.HandleFunc("/commitments/{commitment_id}/submit", s.handler.SubmitWork).Methods(http.MethodPost)
	v1.HandleFunc("/commitments/{commitment_id}/settle", s.handler.Settle).Methods(http.MethodPost)
	v1.HandleFunc("/commitments/{commitment_id}/can-settle", s.handler.CanSettle).Methods(http.MethodGet)
	v1.HandleFunc("/commitments/{commitment_id}/required-stake", s.handler.RequiredStake).Methods(http.MethodGet)

	// Disputes
	v1.HandleFunc("/commitments/{commitment_id}/dispute", s.handler.OpenDispute).Methods(http.MethodPost)
	v1.HandleFunc("/commitments/{commitment_id}/dispute", s.handler.GetDispute).Methods(http.MethodGet)
	v1.HandleFunc("/commitments/{commitment_id}/resolve", s.handler.ResolveDispute).Methods(http.MethodPost)

	// Settlement batches
	v1.HandleFunc("/settlements/check", s.handler.CheckSettleable).Methods(http.MethodGet)
	v1.HandleFunc("/settlements/execute", s.handler.ExecuteSettlement).Methods(http.MethodPost)

	// Role administration
	v1.HandleFunc("/roles", s.handler.GetRoles).Methods(http.MethodGet)
	v1.HandleFunc("/roles/{role}", s.handler.RotateRole).Methods(http.MethodPut)
	v1.HandleFunc("/config/baseline-stake", s.handler.SetBaselineStake).Methods(http.MethodPut)

	// Reputation
	v1.HandleFunc("/contributors/{contributor_id}/reputation", s.handler.ContributorReputation).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.errorHandler.WriteErrorResponse(w, http.StatusNotFound, "NOT_FOUND",
			"endpoint not found", r.Header.Get("X-Request-ID"))
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.errorHandler.WriteErrorResponse(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"method not allowed", r.Header.Get("X-Request-ID"))
	})
}

// Start starts the HTTP server. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the underlying router, used by tests.
func (s *Server) Router() *mux.Router {
	return s.router
}
