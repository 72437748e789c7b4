package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/profile"
	"github.com/davidleathers/transaction-shield-backend/internal/infrastructure/cache"
	"github.com/davidleathers/transaction-shield-backend/internal/infrastructure/config"
	"github.com/davidleathers/transaction-shield-backend/internal/infrastructure/database"
	"github.com/davidleathers/transaction-shield-backend/internal/infrastructure/repository"
	"github.com/davidleathers/transaction-shield-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/transaction-shield-backend/internal/service/assessment"
	"github.com/davidleathers/transaction-shield-backend/internal/service/behavior"
	"github.com/davidleathers/transaction-shield-backend/internal/service/policy"
	"github.com/davidleathers/transaction-shield-backend/internal/service/profilestore"
	"github.com/davidleathers/transaction-shield-backend/internal/service/signals"
)

// Server is the API server with all its dependencies.
type Server struct {
	config     *config.Config
	httpServer *http.Server
	logger     *slog.Logger

	db           *database.ConnectionPool
	summaryCache *cache.SummaryCache
}

// NewServer builds the full dependency graph from config. Postgres and
// Redis are both optional: without a database URL profiles live in
// memory, without a Redis URL summaries are always computed.
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	zapLogger, err := telemetry.SetupZapLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to set up zap logger: %w", err)
	}

	srv := &Server{config: cfg, logger: logger}

	var repo profile.Repository
	if cfg.Database.URL != "" {
		pool, err := database.NewConnectionPool(&cfg.Database, zapLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		srv.db = pool
		repo = repository.NewProfileRepository(pool.GetDB())
	} else {
		logger.Warn("no database configured, using in-memory profiles")
		repo = repository.NewMemoryProfileRepository()
	}

	storeOpts := []profilestore.Option{}
	if cfg.Redis.URL != "" {
		summaryCache, err := cache.NewSummaryCache(&cfg.Redis, zapLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		srv.summaryCache = summaryCache
		storeOpts = append(storeOpts, profilestore.WithInvalidator(summaryCache))
	}

	store := profilestore.New(repo, zapLogger, storeOpts...)
	model := behavior.NewModel(store, zapLogger)

	decisionPolicy := policy.New()
	if err := decisionPolicy.UpdateThresholds(&cfg.Risk.AllowThreshold, &cfg.Risk.BlockThreshold); err != nil {
		return nil, fmt.Errorf("invalid risk thresholds: %w", err)
	}

	svc := assessment.NewService(
		store,
		model,
		decisionPolicy,
		signals.NewSimulatedLiveness(),
		assessment.NewMemoryConstraintStore(),
		zapLogger,
	)

	auth := NewAuthenticator(cfg.Security.JWTSecret, cfg.Security.TokenExpiry)
	handler := NewHandler(svc, auth, srv.summaryCache, logger, cfg.Version)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return srv, nil
}

// Start runs the HTTP server until it fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		"addr", s.httpServer.Addr,
		"version", s.config.Version,
		"environment", s.config.Environment,
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)

	if s.summaryCache != nil {
		if cerr := s.summaryCache.Close(); cerr != nil {
			s.logger.Warn("failed to close summary cache", "error", cerr)
		}
	}
	if s.db != nil {
		s.db.Close()
	}

	return err
}
