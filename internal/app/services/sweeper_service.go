package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/app/repositories"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
)

// SweepReport describes one auto-completion run
type SweepReport struct {
	DryRun bool      `json:"dryRun"`
	RanAt  time.Time `json:"ranAt"`
	// Checked counts the scheduled requests dated today or earlier.
	Checked int `json:"checked"`
	// Due lists requests whose defense has ended.
	Due       []int64                `json:"due"`
	Completed []int64                `json:"completed"`
	Failed    []models.BulkItemError `json:"failed"`
}

// SweeperService completes scheduled defenses whose time slot has passed
type SweeperService interface {
	// Sweep completes every due request with a system actor. In dry-run mode
	// it only reports what it would complete.
	Sweep(ctx context.Context, dryRun bool) (*SweepReport, error)
}

// sweeperServiceImpl implements SweeperService
type sweeperServiceImpl struct {
	store    repositories.Store
	requests DefenseRequestService
	opts     WorkflowOptions
	logger   zerolog.Logger
}

// NewSweeperService creates a new SweeperService
func NewSweeperService(store repositories.Store, requests DefenseRequestService, opts WorkflowOptions, logger zerolog.Logger) SweeperService {
	return &sweeperServiceImpl{
		store:    store,
		requests: requests,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

func (s *sweeperServiceImpl) Sweep(ctx context.Context, dryRun bool) (*SweepReport, error) {
	now := s.opts.Now()
	report := &SweepReport{
		DryRun:    dryRun,
		RanAt:     now.UTC(),
		Due:       []int64{},
		Completed: []int64{},
		Failed:    []models.BulkItemError{},
	}

	candidates, err := s.store.DefenseRequests().ListScheduledBefore(ctx, s.opts.today())
	if err != nil {
		return nil, fmt.Errorf("error listing scheduled defenses: %w", err)
	}
	report.Checked = len(candidates)

	for _, req := range candidates {
		if req.Schedule == nil {
			continue
		}
		endsAt, err := req.Schedule.EndsAt(s.opts.Location, s.opts.DefaultDuration)
		if err != nil {
			report.Failed = append(report.Failed, models.BulkItemError{ID: req.ID, Code: apperrors.CodeValidation, Error: err.Error()})
			continue
		}
		if !endsAt.Before(now) {
			continue
		}
		report.Due = append(report.Due, req.ID)
		if dryRun {
			s.logger.Info().Int64("requestID", req.ID).Time("endedAt", endsAt).Msg("[DRY RUN] Would complete defense")
			continue
		}

		if _, err := s.requests.MarkCompleted(ctx, req.ID, ""); err != nil {
			if errors.Is(err, apperrors.ErrIllegalTransition) || errors.Is(err, apperrors.ErrConcurrentUpdate) {
				// Completed or moved by someone else since the listing.
				s.logger.Debug().Int64("requestID", req.ID).Msg("Defense no longer scheduled, skipping")
				continue
			}
			s.logger.Error().Err(err).Int64("requestID", req.ID).Msg("Auto-completion failed")
			report.Failed = append(report.Failed, models.BulkItemError{ID: req.ID, Code: apperrors.Code(err), Error: err.Error()})
			continue
		}
		report.Completed = append(report.Completed, req.ID)
	}

	s.logger.Info().
		Bool("dryRun", dryRun).
		Int("checked", report.Checked).
		Int("due", len(report.Due)).
		Int("completed", len(report.Completed)).
		Int("failed", len(report.Failed)).
		Msg("Auto-completion sweep finished")
	return report, nil
}
