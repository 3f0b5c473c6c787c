package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/yigit/thesisflow/internal/bootstrap"
	"github.com/yigit/thesisflow/internal/config"
)

// Server holds the state for the HTTP server.
type Server struct {
	config    *config.Config
	deps      *bootstrap.Dependencies
	router    *gin.Engine
	scheduler *cron.Cron
	logger    zerolog.Logger
	http      *http.Server
	stopHub   context.CancelFunc
}

// NewServer loads configuration from configPath and wires the application.
func NewServer(configPath string) (*Server, error) {
	deps, err := bootstrap.Build(context.Background(), configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to setup dependencies: %w", err)
	}
	cfg, lgr := deps.Config, deps.Logger

	s := &Server{
		config: cfg,
		deps:   deps,
		router: bootstrap.SetupRouter(cfg, deps, lgr),
		logger: lgr,
	}

	if cfg.Scheduler.Enabled {
		s.scheduler, err = NewScheduler(SchedulerConfig{
			SweepSpec:  cfg.Scheduler.SweepCron,
			ResyncSpec: cfg.Scheduler.ResyncCron,
			DryRun:     cfg.Scheduler.DryRun,
			Location:   cfg.Location(),
		}, deps.SweeperService, deps.SyncService, lgr.With().Str("component", "scheduler").Logger())
		if err != nil {
			deps.Close()
			return nil, err
		}
	}

	return s, nil
}

// Run starts the HTTP server, the event hub and the scheduler, and blocks
// until a signal or a server error.
func (s *Server) Run() error {
	s.logger.Info().Str("port", s.config.Server.Port).Msg("Starting server...")

	hubCtx, cancel := context.WithCancel(context.Background())
	s.stopHub = cancel
	go s.deps.Hub.Run(hubCtx)

	if s.scheduler != nil {
		s.scheduler.Start()
		s.logger.Info().
			Str("sweep", s.config.Scheduler.SweepCron).
			Str("resync", s.config.Scheduler.ResyncCron).
			Bool("dryRun", s.config.Scheduler.DryRun).
			Msg("Scheduler started")
	}

	s.http = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
		serverErrors <- s.http.ListenAndServe()
	}()

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			s.Shutdown(context.Background())
			return fmt.Errorf("error starting server: %w", err)
		}
	case sig := <-osSignals:
		s.logger.Info().Str("signal", sig.String()).Msg("Received OS signal, initiating shutdown...")
	}

	return s.Shutdown(context.Background())
}

// Shutdown stops the scheduler, waiting for running jobs, then the HTTP
// server, the event hub and the database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var shutdownErr error

	if s.scheduler != nil {
		s.logger.Info().Msg("Stopping scheduler...")
		select {
		case <-s.scheduler.Stop().Done():
			s.logger.Info().Msg("Scheduler stopped.")
		case <-ctx.Done():
			s.logger.Warn().Msg("Scheduled jobs still running at shutdown")
			shutdownErr = errors.Join(shutdownErr, ctx.Err())
		}
	}

	if s.http != nil {
		s.logger.Info().Msg("Shutting down HTTP server...")
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error().Err(err).Msg("HTTP server shutdown error")
			shutdownErr = errors.Join(shutdownErr, err)
		} else {
			s.logger.Info().Msg("HTTP server gracefully stopped.")
		}
	}

	if s.stopHub != nil {
		s.stopHub()
	}

	s.logger.Info().Msg("Closing store...")
	s.deps.Close()

	s.logger.Info().Msg("Server shutdown process complete.")
	if shutdownErr != nil {
		return fmt.Errorf("server shutdown completed with errors: %w", shutdownErr)
	}
	return nil
}
