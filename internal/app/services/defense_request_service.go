package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/app/repositories"
	"github.com/yigit/thesisflow/internal/app/scheduling"
	"github.com/yigit/thesisflow/internal/app/workflow"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
	"github.com/yigit/thesisflow/internal/pkg/notify"
)

const requestEntity = "defense request"

// SubmitInput is what a student provides when filing a defense request
type SubmitInput struct {
	StudentID   string
	StudentName string
	Program     string
	ThesisTitle string
	DefenseType models.DefenseType
	AdviserName string
	Priority    models.Priority
	// Actor defaults to the student id.
	Actor string
}

// Corrections are the fields a student may change before resubmitting.
// Empty fields keep their current value.
type Corrections struct {
	Program     string
	ThesisTitle string
	DefenseType models.DefenseType
	AdviserName string
}

// Decision is an approve or reject verdict. A rejection needs a reason.
type Decision struct {
	Approve bool
	Reason  string
}

// PanelInput lists the seats filled by the coordinator. Chairperson and
// Panelist1 are mandatory.
type PanelInput struct {
	Chairperson models.MemberRef
	Panelist1   models.MemberRef
	Panelist2   models.MemberRef
	Panelist3   models.MemberRef
	Panelist4   models.MemberRef
}

// ScheduleInput is a proposed defense slot. Date uses models.DateLayout and
// the times are "HH:MM".
type ScheduleInput struct {
	Date      string
	StartTime string
	EndTime   string
	Mode      models.DefenseMode
	Venue     string
	Notes     string
}

// DefenseRequestService drives defense requests through their workflow
type DefenseRequestService interface {
	Submit(ctx context.Context, in SubmitInput) (*models.DefenseRequest, error)
	Get(ctx context.Context, id int64) (*models.DefenseRequest, error)
	List(ctx context.Context, filter repositories.RequestFilter) ([]*models.DefenseRequest, int64, error)
	StartAdviserReview(ctx context.Context, id int64, actor string) (*models.DefenseRequest, error)
	AdviserDecision(ctx context.Context, id int64, actor string, d Decision) (*models.DefenseRequest, error)
	ForwardToCoordinator(ctx context.Context, id int64, actor string) (*models.DefenseRequest, error)
	CoordinatorDecision(ctx context.Context, id int64, actor string, d Decision) (*models.DefenseRequest, error)
	// BulkCoordinatorDecision applies d to every id independently and reports
	// which ones changed.
	BulkCoordinatorDecision(ctx context.Context, ids []int64, actor string, d Decision) (*models.BulkResult, error)
	Retrieve(ctx context.Context, id int64, actor string) (*models.DefenseRequest, error)
	Resubmit(ctx context.Context, id int64, actor string, c Corrections) (*models.DefenseRequest, error)
	AssignPanels(ctx context.Context, id int64, actor string, in PanelInput) (*models.DefenseRequest, error)
	Schedule(ctx context.Context, id int64, actor string, in ScheduleInput) (*models.DefenseRequest, error)
	// MarkCompleted completes a scheduled defense. An empty actor records a
	// system completion.
	MarkCompleted(ctx context.Context, id int64, actor string) (*models.DefenseRequest, error)
}

// defenseRequestServiceImpl implements DefenseRequestService
type defenseRequestServiceImpl struct {
	store     repositories.Store
	directory DirectoryService
	publisher notify.Publisher
	checker   scheduling.Checker
	opts      WorkflowOptions
	logger    zerolog.Logger
}

// NewDefenseRequestService creates a new DefenseRequestService
func NewDefenseRequestService(
	store repositories.Store,
	directory DirectoryService,
	publisher notify.Publisher,
	opts WorkflowOptions,
	logger zerolog.Logger,
) DefenseRequestService {
	opts = opts.withDefaults()
	return &defenseRequestServiceImpl{
		store:     store,
		directory: directory,
		publisher: publisherOrDiscard(publisher),
		checker:   scheduling.NewChecker(opts.DefaultDuration),
		opts:      opts,
		logger:    logger,
	}
}

// transition is the staged change handed to a step's mutate hook
type transition struct {
	Req  *models.DefenseRequest
	From models.RequestStatus
	Now  time.Time
	// History is appended on commit. Its kind, note and schedule snapshot
	// may be adjusted by the hook.
	History models.HistoryEvent
	Events  []notify.Event
}

type step struct {
	action  workflow.Action
	history models.HistoryKind
	note    string
	mutate  func(ctx context.Context, tx repositories.Store, t *transition) error
}

// apply loads the request, checks the edge, lets the step mutate a copy and
// writes it with a compare-and-set on the old status, all in one transaction.
// Events are published after commit.
func (s *defenseRequestServiceImpl) apply(ctx context.Context, id int64, actor string, st step) (*models.DefenseRequest, error) {
	var (
		out     *models.DefenseRequest
		pending afterCommit
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		out, pending = nil, afterCommit{}
		req, err := tx.DefenseRequests().GetByID(ctx, id)
		if err != nil {
			return err
		}
		to, ok := s.opts.Rules.Next(req.Status, st.action)
		if !ok {
			return apperrors.NewIllegalTransition(requestEntity, id, string(st.action), string(req.Status))
		}

		now := s.opts.Now().UTC()
		t := &transition{
			Req:  req.Clone(),
			From: req.Status,
			Now:  now,
			History: models.HistoryEvent{
				Kind:       st.history,
				Actor:      actor,
				FromStatus: req.Status,
				ToStatus:   to,
				Note:       st.note,
				OccurredAt: now,
			},
		}
		t.Req.Status = to
		if st.mutate != nil {
			if err := st.mutate(ctx, tx, t); err != nil {
				return err
			}
		}

		if err := tx.DefenseRequests().Transition(ctx, t.Req, t.From, t.History); err != nil {
			return err
		}
		out = t.Req
		pending.add(t.Events...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("requestID", id).
		Str("action", string(st.action)).
		Str("status", string(out.Status)).
		Str("actor", actor).
		Msg("Defense request transitioned")
	pending.flush(ctx, s.publisher)
	return out, nil
}

func (s *defenseRequestServiceImpl) event(kind notify.EventKind, t *transition, actor string, data map[string]interface{}) notify.Event {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["status"] = string(t.Req.Status)
	data["thesisTitle"] = t.Req.ThesisTitle
	return notify.NewEvent(kind, t.Req.ID, actor, t.Now, data)
}

func (s *defenseRequestServiceImpl) Submit(ctx context.Context, in SubmitInput) (*models.DefenseRequest, error) {
	req := &models.DefenseRequest{
		StudentID:   strings.TrimSpace(in.StudentID),
		StudentName: strings.TrimSpace(in.StudentName),
		Program:     strings.TrimSpace(in.Program),
		ThesisTitle: strings.TrimSpace(in.ThesisTitle),
		DefenseType: in.DefenseType,
		Priority:    in.Priority,
		Status:      models.StatusSubmitted,
	}
	if req.Priority == "" {
		req.Priority = models.PriorityNormal
	}
	if err := validateSubmission(req, in.AdviserName); err != nil {
		return nil, err
	}

	adviser, err := s.adviserRef(ctx, in.AdviserName)
	if err != nil {
		return nil, err
	}
	req.Committee.Adviser = adviser

	actor := in.Actor
	if actor == "" {
		actor = req.StudentID
	}
	now := s.opts.Now().UTC()
	req.SubmittedAt = now
	req.History = []models.HistoryEvent{{
		Kind:       models.HistorySubmitted,
		Actor:      actor,
		ToStatus:   models.StatusSubmitted,
		OccurredAt: now,
	}}

	if err := s.store.DefenseRequests().Create(ctx, req); err != nil {
		s.logger.Error().Err(err).Str("studentID", req.StudentID).Msg("Error creating defense request")
		return nil, fmt.Errorf("error creating defense request: %w", err)
	}

	s.logger.Info().Int64("requestID", req.ID).Str("studentID", req.StudentID).Msg("Defense request submitted")
	s.publisher.Publish(ctx, notify.NewEvent(notify.EventRequestSubmitted, req.ID, actor, now, map[string]interface{}{
		"status":      string(req.Status),
		"thesisTitle": req.ThesisTitle,
		"studentName": req.StudentName,
	}))
	return req, nil
}

func validateSubmission(req *models.DefenseRequest, adviserName string) error {
	required := []struct{ field, value string }{
		{"studentId", req.StudentID},
		{"studentName", req.StudentName},
		{"program", req.Program},
		{"thesisTitle", req.ThesisTitle},
		{"adviserName", strings.TrimSpace(adviserName)},
	}
	for _, r := range required {
		if r.value == "" {
			return apperrors.NewValidationError(r.field, "must not be empty")
		}
	}
	if !req.DefenseType.Valid() {
		return apperrors.NewValidationError("defenseType", "must be one of proposal, prefinal, final")
	}
	if !req.Priority.Valid() {
		return apperrors.NewValidationError("priority", "must be one of low, normal, high, urgent")
	}
	return nil
}

// adviserRef links the adviser to the directory when possible. Advisers are
// weak references, so an unknown name is kept as typed.
func (s *defenseRequestServiceImpl) adviserRef(ctx context.Context, name string) (models.MemberRef, error) {
	ref := models.MemberRef{Name: strings.Join(strings.Fields(name), " ")}
	resolved, err := s.directory.Resolve(ctx, "adviserName", ref)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			return ref, nil
		}
		return models.MemberRef{}, err
	}
	return resolved, nil
}

func (s *defenseRequestServiceImpl) Get(ctx context.Context, id int64) (*models.DefenseRequest, error) {
	return s.store.DefenseRequests().GetByID(ctx, id)
}

func (s *defenseRequestServiceImpl) List(ctx context.Context, filter repositories.RequestFilter) ([]*models.DefenseRequest, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperrors.NewValidationError("status", "unknown status %q", filter.Status)
	}
	list, total, err := s.store.DefenseRequests().List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing defense requests: %w", err)
	}
	return list, total, nil
}

func (s *defenseRequestServiceImpl) StartAdviserReview(ctx context.Context, id int64, actor string) (*models.DefenseRequest, error) {
	return s.apply(ctx, id, actor, step{
		action:  workflow.ActionStartAdviserReview,
		history: models.HistoryAdviserReviewStarted,
		mutate: func(_ context.Context, _ repositories.Store, t *transition) error {
			t.Req.AdviserReviewedAt = &t.Now
			return nil
		},
	})
}

func (s *defenseRequestServiceImpl) AdviserDecision(ctx context.Context, id int64, actor string, d Decision) (*models.DefenseRequest, error) {
	reason, err := decisionReason(d)
	if err != nil {
		return nil, err
	}
	st := step{
		action:  workflow.ActionAdviserApprove,
		history: models.HistoryAdviserApproved,
		note:    reason,
	}
	if !d.Approve {
		st.action, st.history = workflow.ActionAdviserReject, models.HistoryAdviserRejected
	}
	st.mutate = func(_ context.Context, _ repositories.Store, t *transition) error {
		t.Req.AdviserReviewedAt = &t.Now
		if d.Approve {
			t.Events = append(t.Events, s.event(notify.EventRequestApproved, t, actor, map[string]interface{}{"stage": "adviser"}))
			return nil
		}
		t.Req.LastRejectionReason = reason
		t.Events = append(t.Events, s.event(notify.EventRequestRejected, t, actor, map[string]interface{}{"stage": "adviser", "reason": reason}))
		return nil
	}
	return s.apply(ctx, id, actor, st)
}

func (s *defenseRequestServiceImpl) ForwardToCoordinator(ctx context.Context, id int64, actor string) (*models.DefenseRequest, error) {
	return s.apply(ctx, id, actor, step{
		action:  workflow.ActionForwardToCoordinator,
		history: models.HistoryForwardedToCoordinator,
	})
}

func (s *defenseRequestServiceImpl) CoordinatorDecision(ctx context.Context, id int64, actor string, d Decision) (*models.DefenseRequest, error) {
	reason, err := decisionReason(d)
	if err != nil {
		return nil, err
	}
	st := step{
		action:  workflow.ActionCoordinatorApprove,
		history: models.HistoryCoordinatorApproved,
		note:    reason,
	}
	if !d.Approve {
		st.action, st.history = workflow.ActionCoordinatorReject, models.HistoryCoordinatorRejected
	}
	st.mutate = func(_ context.Context, _ repositories.Store, t *transition) error {
		t.Req.CoordinatorReviewedAt = &t.Now
		if d.Approve {
			t.Events = append(t.Events, s.event(notify.EventRequestApproved, t, actor, map[string]interface{}{"stage": "coordinator"}))
			return nil
		}
		t.Req.LastRejectionReason = reason
		t.Events = append(t.Events, s.event(notify.EventRequestRejected, t, actor, map[string]interface{}{"stage": "coordinator", "reason": reason}))
		return nil
	}
	return s.apply(ctx, id, actor, st)
}

func decisionReason(d Decision) (string, error) {
	reason := strings.TrimSpace(d.Reason)
	if !d.Approve && reason == "" {
		return "", apperrors.NewValidationError("reason", "a rejection needs a reason")
	}
	return reason, nil
}

func (s *defenseRequestServiceImpl) BulkCoordinatorDecision(ctx context.Context, ids []int64, actor string, d Decision) (*models.BulkResult, error) {
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("ids", "at least one id is required")
	}
	if _, err := decisionReason(d); err != nil {
		return nil, err
	}

	result := &models.BulkResult{Changed: []int64{}, Failed: []models.BulkItemError{}}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.CoordinatorDecision(ctx, id, actor, d); err != nil {
			s.logger.Warn().Err(err).Int64("requestID", id).Msg("Bulk coordinator decision skipped request")
			result.Failed = append(result.Failed, models.BulkItemError{ID: id, Code: apperrors.Code(err), Error: err.Error()})
			continue
		}
		result.Changed = append(result.Changed, id)
	}
	return result, nil
}

func (s *defenseRequestServiceImpl) Retrieve(ctx context.Context, id int64, actor string) (*models.DefenseRequest, error) {
	return s.apply(ctx, id, actor, step{
		action:  workflow.ActionRetrieve,
		history: models.HistoryRetrieved,
	})
}

func (s *defenseRequestServiceImpl) Resubmit(ctx context.Context, id int64, actor string, c Corrections) (*models.DefenseRequest, error) {
	if c.DefenseType != "" && !c.DefenseType.Valid() {
		return nil, apperrors.NewValidationError("defenseType", "must be one of proposal, prefinal, final")
	}
	var adviser *models.MemberRef
	if strings.TrimSpace(c.AdviserName) != "" {
		ref, err := s.adviserRef(ctx, c.AdviserName)
		if err != nil {
			return nil, err
		}
		adviser = &ref
	}

	return s.apply(ctx, id, actor, step{
		action:  workflow.ActionResubmit,
		history: models.HistoryResubmitted,
		mutate: func(_ context.Context, _ repositories.Store, t *transition) error {
			if v := strings.TrimSpace(c.Program); v != "" {
				t.Req.Program = v
			}
			if v := strings.TrimSpace(c.ThesisTitle); v != "" {
				t.Req.ThesisTitle = v
			}
			if c.DefenseType != "" {
				t.Req.DefenseType = c.DefenseType
			}
			if adviser != nil {
				t.Req.Committee.Adviser = *adviser
			}
			t.Events = append(t.Events, s.event(notify.EventRequestSubmitted, t, actor, map[string]interface{}{"resubmitted": true}))
			return nil
		},
	})
}

func (s *defenseRequestServiceImpl) AssignPanels(ctx context.Context, id int64, actor string, in PanelInput) (*models.DefenseRequest, error) {
	if in.Chairperson.IsZero() {
		return nil, apperrors.NewValidationError("chairperson", "must not be empty")
	}
	if in.Panelist1.IsZero() {
		return nil, apperrors.NewValidationError("panelist1", "must not be empty")
	}

	seats := []struct {
		field string
		ref   *models.MemberRef
	}{
		{"chairperson", &in.Chairperson},
		{"panelist1", &in.Panelist1},
		{"panelist2", &in.Panelist2},
		{"panelist3", &in.Panelist3},
		{"panelist4", &in.Panelist4},
	}
	var filled []models.MemberRef
	for _, seat := range seats {
		if seat.ref.IsZero() {
			continue
		}
		resolved, err := s.directory.Resolve(ctx, seat.field, *seat.ref)
		if err != nil {
			return nil, err
		}
		for _, other := range filled {
			if resolved.SamePerson(other) {
				return nil, apperrors.NewValidationError(seat.field, "%s already sits on this committee", resolved.Name)
			}
		}
		*seat.ref = resolved
		filled = append(filled, resolved)
	}

	return s.apply(ctx, id, actor, step{
		action:  workflow.ActionAssignPanels,
		history: models.HistoryPanelsAssigned,
		mutate: func(_ context.Context, _ repositories.Store, t *transition) error {
			for _, seat := range seats {
				if seat.ref.SamePerson(t.Req.Committee.Adviser) {
					return apperrors.NewValidationError(seat.field, "%s is the adviser of this request", seat.ref.Name)
				}
			}
			t.Req.Committee.Chairperson = in.Chairperson
			t.Req.Committee.Panelist1 = in.Panelist1
			t.Req.Committee.Panelist2 = in.Panelist2
			t.Req.Committee.Panelist3 = in.Panelist3
			t.Req.Committee.Panelist4 = in.Panelist4
			t.Req.PanelsAssignedAt = &t.Now

			names := make([]string, 0, len(filled))
			for _, m := range filled {
				names = append(names, m.Name)
			}
			t.Events = append(t.Events, s.event(notify.EventPanelsAssigned, t, actor, map[string]interface{}{"members": names}))
			return nil
		},
	})
}

func (s *defenseRequestServiceImpl) Schedule(ctx context.Context, id int64, actor string, in ScheduleInput) (*models.DefenseRequest, error) {
	sched, err := s.validateSchedule(in)
	if err != nil {
		return nil, err
	}

	return s.apply(ctx, id, actor, step{
		action:  workflow.ActionSchedule,
		history: models.HistoryScheduleSet,
		note:    sched.Notes,
		mutate: func(ctx context.Context, tx repositories.Store, t *transition) error {
			if err := tx.Lock(ctx, "schedule:"+sched.DateString()); err != nil {
				return fmt.Errorf("error locking schedule date: %w", err)
			}
			existing, err := tx.DefenseRequests().ListScheduledOn(ctx, sched.Date)
			if err != nil {
				return fmt.Errorf("error loading scheduled defenses: %w", err)
			}
			if err := s.checker.Check(scheduling.Candidate{
				RequestID: t.Req.ID,
				Schedule:  *sched,
				Committee: t.Req.Committee,
			}, existing); err != nil {
				return err
			}

			rescheduled := t.From == models.StatusScheduled
			if rescheduled {
				t.History.Kind = models.HistoryRescheduled
			}
			t.Req.Schedule = sched
			t.Req.ScheduleSetAt = &t.Now
			snapshot := *sched
			t.History.Schedule = &snapshot
			t.Events = append(t.Events, s.event(notify.EventScheduleSet, t, actor, map[string]interface{}{
				"date":        sched.DateString(),
				"startTime":   sched.StartTime,
				"endTime":     sched.EndTime,
				"venue":       sched.Venue,
				"mode":        string(sched.Mode),
				"rescheduled": rescheduled,
			}))
			return nil
		},
	})
}

func (s *defenseRequestServiceImpl) validateSchedule(in ScheduleInput) (*models.Schedule, error) {
	date, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(in.Date), s.opts.Location)
	if err != nil {
		return nil, apperrors.NewValidationError("date", "must be a date formatted YYYY-MM-DD")
	}
	if date.Before(s.opts.today()) {
		return nil, apperrors.NewValidationError("date", "must not be in the past")
	}
	start, err := models.ParseClock(in.StartTime)
	if err != nil {
		return nil, apperrors.NewValidationError("startTime", "%v", err)
	}
	end, err := models.ParseClock(in.EndTime)
	if err != nil {
		return nil, apperrors.NewValidationError("endTime", "%v", err)
	}
	if end <= start {
		return nil, apperrors.NewValidationError("endTime", "must be after the start time")
	}
	if !in.Mode.Valid() {
		return nil, apperrors.NewValidationError("mode", "must be face-to-face or online")
	}
	venue := strings.Join(strings.Fields(in.Venue), " ")
	if venue == "" {
		return nil, apperrors.NewValidationError("venue", "must not be empty")
	}
	return &models.Schedule{
		Date:      date,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Mode:      in.Mode,
		Venue:     venue,
		Notes:     strings.TrimSpace(in.Notes),
	}, nil
}

func (s *defenseRequestServiceImpl) MarkCompleted(ctx context.Context, id int64, actor string) (*models.DefenseRequest, error) {
	return s.apply(ctx, id, actor, step{
		action:  workflow.ActionMarkCompleted,
		history: models.HistoryCompleted,
		mutate: func(_ context.Context, _ repositories.Store, t *transition) error {
			t.Req.CompletedAt = &t.Now
			t.Events = append(t.Events, s.event(notify.EventRequestCompleted, t, actor, map[string]interface{}{"automatic": actor == ""}))
			return nil
		},
	})
}
