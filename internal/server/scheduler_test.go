package server

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/app/services"
)

type stubSweeper struct {
	calls  int
	dryRun bool
	err    error
}

func (s *stubSweeper) Sweep(_ context.Context, dryRun bool) (*services.SweepReport, error) {
	s.calls++
	s.dryRun = dryRun
	if s.err != nil {
		return nil, s.err
	}
	return &services.SweepReport{DryRun: dryRun}, nil
}

type stubSync struct {
	services.SyncService
	limit int
}

func (s *stubSync) Resync(_ context.Context, limit int) (*models.BulkResult, error) {
	s.limit = limit
	return &models.BulkResult{}, nil
}

func TestNewSchedulerRegistersConfiguredJobs(t *testing.T) {
	c, err := NewScheduler(SchedulerConfig{SweepSpec: "*/15 * * * *", ResyncSpec: "0 * * * *"}, &stubSweeper{}, &stubSync{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if n := len(c.Entries()); n != 2 {
		t.Fatalf("entries = %d, want 2", n)
	}

	c, err = NewScheduler(SchedulerConfig{SweepSpec: "*/15 * * * *"}, &stubSweeper{}, &stubSync{}, zerolog.Nop())
	if err != nil || len(c.Entries()) != 1 {
		t.Fatalf("sweep only: %v", err)
	}

	if _, err := NewScheduler(SchedulerConfig{SweepSpec: "every now and then"}, &stubSweeper{}, &stubSync{}, zerolog.Nop()); err == nil {
		t.Fatal("invalid spec accepted")
	}
}

func TestJobsCallTheServices(t *testing.T) {
	sweeper := &stubSweeper{}
	runSweep(sweeper, true, zerolog.Nop())
	if sweeper.calls != 1 || !sweeper.dryRun {
		t.Fatalf("sweeper = %+v", sweeper)
	}

	sweeper.err = errors.New("store unavailable")
	runSweep(sweeper, false, zerolog.Nop())
	if sweeper.calls != 2 {
		t.Fatalf("sweeper calls = %d", sweeper.calls)
	}

	sync := &stubSync{}
	runResync(sync, zerolog.Nop())
	if sync.limit != resyncLimit {
		t.Fatalf("resync limit = %d", sync.limit)
	}
}
