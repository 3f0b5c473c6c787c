package server

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/yigit/thesisflow/internal/app/services"
)

const (
	jobTimeout  = 4 * time.Minute
	resyncLimit = 100
)

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// SchedulerConfig selects which jobs run and when
type SchedulerConfig struct {
	SweepSpec  string
	ResyncSpec string
	DryRun     bool
	Location   *time.Location
}

// NewScheduler registers the sweep and resync jobs. An empty spec disables
// that job. Overlapping runs of the same job are skipped.
func NewScheduler(cfg SchedulerConfig, sweeper services.SweeperService, sync services.SyncService, lgr zerolog.Logger) (*cron.Cron, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{logger: lgr}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if cfg.SweepSpec != "" {
		if _, err := c.AddFunc(cfg.SweepSpec, func() { runSweep(sweeper, cfg.DryRun, lgr) }); err != nil {
			return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.SweepSpec, err)
		}
	}
	if cfg.ResyncSpec != "" {
		if _, err := c.AddFunc(cfg.ResyncSpec, func() { runResync(sync, lgr) }); err != nil {
			return nil, fmt.Errorf("invalid resync schedule %q: %w", cfg.ResyncSpec, err)
		}
	}
	return c, nil
}

func runSweep(sweeper services.SweeperService, dryRun bool, lgr zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	report, err := sweeper.Sweep(ctx, dryRun)
	if err != nil {
		lgr.Error().Err(err).Msg("Scheduled sweep failed")
		return
	}
	lgr.Info().
		Bool("dryRun", report.DryRun).
		Int("checked", report.Checked).
		Int("due", len(report.Due)).
		Int("completed", len(report.Completed)).
		Int("failed", len(report.Failed)).
		Msg("Scheduled sweep finished")
}

func runResync(sync services.SyncService, lgr zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	result, err := sync.Resync(ctx, resyncLimit)
	if err != nil {
		lgr.Error().Err(err).Msg("Scheduled resync failed")
		return
	}
	lgr.Info().
		Int("changed", len(result.Changed)).
		Int("failed", len(result.Failed)).
		Msg("Scheduled resync finished")
}
