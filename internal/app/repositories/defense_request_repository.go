package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
	"github.com/yigit/thesisflow/internal/pkg/helpers"
	"github.com/yigit/thesisflow/internal/pkg/logger"
)

var requestColumns = []string{
	"id", "student_id", "student_name", "program", "thesis_title", "defense_type", "status", "priority",
	"adviser_id", "adviser_name", "chairperson_id", "chairperson_name",
	"panelist1_id", "panelist1_name", "panelist2_id", "panelist2_name",
	"panelist3_id", "panelist3_name", "panelist4_id", "panelist4_name",
	"schedule_date", "start_time", "end_time", "mode", "venue", "schedule_notes",
	"submitted_at", "adviser_reviewed_at", "coordinator_reviewed_at", "panels_assigned_at",
	"schedule_set_at", "completed_at", "last_rejection_reason", "created_at", "updated_at",
}

var historyColumns = []string{"seq", "kind", "actor", "from_status", "to_status", "note", "schedule", "occurred_at"}

// PgDefenseRequestRepository handles defense request database operations
type PgDefenseRequestRepository struct {
	q  querier
	sb squirrel.StatementBuilderType
}

// NewDefenseRequestRepository creates a new PgDefenseRequestRepository
func NewDefenseRequestRepository(q querier) *PgDefenseRequestRepository {
	return &PgDefenseRequestRepository{q: q, sb: newBuilder()}
}

// Create inserts the request and its initial history entries
func (r *PgDefenseRequestRepository) Create(ctx context.Context, req *models.DefenseRequest) error {
	fields := mutableRequestFields(req)
	fields["student_id"] = req.StudentID
	fields["student_name"] = req.StudentName
	fields["submitted_at"] = req.SubmittedAt

	sql, args, err := r.sb.Insert("defense_requests").
		SetMap(fields).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create defense request SQL")
		return fmt.Errorf("failed to build create defense request query: %w", err)
	}

	if err := r.q.QueryRow(ctx, sql, args...).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt); err != nil {
		logger.Error().Err(err).Str("studentID", req.StudentID).Msg("Error executing create defense request query")
		return fmt.Errorf("error creating defense request: %w", err)
	}

	events := req.History
	req.History = nil
	return r.appendHistory(ctx, req, events)
}

// GetByID retrieves a defense request together with its full history
func (r *PgDefenseRequestRepository) GetByID(ctx context.Context, id int64) (*models.DefenseRequest, error) {
	sql, args, err := r.sb.Select(requestColumns...).
		From("defense_requests").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get defense request query: %w", err)
	}

	req, err := scanRequest(r.q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("defense request", id)
		}
		logger.Error().Err(err).Int64("requestID", id).Msg("Error scanning defense request row")
		return nil, fmt.Errorf("error getting defense request: %w", err)
	}

	if req.History, err = r.loadHistory(ctx, id); err != nil {
		return nil, err
	}
	return req, nil
}

// List returns a page of requests matching f and the total match count
func (r *PgDefenseRequestRepository) List(ctx context.Context, f RequestFilter) ([]*models.DefenseRequest, int64, error) {
	where := squirrel.And{}
	if f.Status != "" {
		where = append(where, squirrel.Eq{"status": string(f.Status)})
	}
	if f.StudentID != "" {
		where = append(where, squirrel.Eq{"student_id": f.StudentID})
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("defense_requests").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count defense requests query: %w", err)
	}
	var total int64
	if err := r.q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting defense requests: %w", err)
	}

	q := r.sb.Select(requestColumns...).From("defense_requests").Where(where).OrderBy("id ASC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit)).Offset(f.Offset)
	}
	reqs, err := r.query(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

// ListScheduledOn returns scheduled requests on the date of day
func (r *PgDefenseRequestRepository) ListScheduledOn(ctx context.Context, day time.Time) ([]*models.DefenseRequest, error) {
	return r.query(ctx, r.sb.Select(requestColumns...).
		From("defense_requests").
		Where(squirrel.Eq{"status": string(models.StatusScheduled), "schedule_date": helpers.DateOnly(day)}).
		OrderBy("start_time ASC", "id ASC"))
}

// ListScheduledBefore returns scheduled requests dated on or before day
func (r *PgDefenseRequestRepository) ListScheduledBefore(ctx context.Context, day time.Time) ([]*models.DefenseRequest, error) {
	return r.query(ctx, r.sb.Select(requestColumns...).
		From("defense_requests").
		Where(squirrel.Eq{"status": string(models.StatusScheduled)}).
		Where(squirrel.LtOrEq{"schedule_date": helpers.DateOnly(day)}).
		OrderBy("schedule_date ASC", "id ASC"))
}

// Transition applies a compare-and-set update on status and appends events
func (r *PgDefenseRequestRepository) Transition(ctx context.Context, req *models.DefenseRequest, expected models.RequestStatus, events ...models.HistoryEvent) error {
	sql, args, err := r.sb.Update("defense_requests").
		SetMap(mutableRequestFields(req)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": req.ID, "status": string(expected)}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build transition query: %w", err)
	}

	if err := r.q.QueryRow(ctx, sql, args...).Scan(&req.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missingOrMoved(ctx, req.ID, expected)
		}
		logger.Error().Err(err).Int64("requestID", req.ID).Msg("Error executing transition query")
		return fmt.Errorf("error updating defense request: %w", err)
	}

	return r.appendHistory(ctx, req, events)
}

func (r *PgDefenseRequestRepository) missingOrMoved(ctx context.Context, id int64, expected models.RequestStatus) error {
	var current string
	err := r.q.QueryRow(ctx, "SELECT status FROM defense_requests WHERE id = $1", id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("defense request", id)
	}
	if err != nil {
		return fmt.Errorf("error reading defense request status: %w", err)
	}
	return apperrors.NewCustomError(apperrors.ErrConcurrentUpdate,
		fmt.Sprintf("defense request %d moved from %s to %s during the update", id, expected, current))
}

func (r *PgDefenseRequestRepository) appendHistory(ctx context.Context, req *models.DefenseRequest, events []models.HistoryEvent) error {
	for _, ev := range events {
		var schedule []byte
		if ev.Schedule != nil {
			b, err := json.Marshal(ev.Schedule)
			if err != nil {
				return fmt.Errorf("failed to encode history schedule: %w", err)
			}
			schedule = b
		}

		sql, args, err := r.sb.Insert("defense_request_history").
			Columns("defense_request_id", "seq", "kind", "actor", "from_status", "to_status", "note", "schedule", "occurred_at").
			Values(req.ID,
				squirrel.Expr("(SELECT COALESCE(MAX(seq), 0) + 1 FROM defense_request_history WHERE defense_request_id = ?)", req.ID),
				string(ev.Kind), ev.Actor, string(ev.FromStatus), string(ev.ToStatus), ev.Note, schedule, ev.OccurredAt).
			Suffix("RETURNING seq").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build history insert: %w", err)
		}
		if err := r.q.QueryRow(ctx, sql, args...).Scan(&ev.Seq); err != nil {
			logger.Error().Err(err).Int64("requestID", req.ID).Str("kind", string(ev.Kind)).Msg("Error appending history")
			return fmt.Errorf("error appending history: %w", err)
		}
		req.History = append(req.History, ev)
	}
	return nil
}

func (r *PgDefenseRequestRepository) loadHistory(ctx context.Context, id int64) ([]models.HistoryEvent, error) {
	sql, args, err := r.sb.Select(historyColumns...).
		From("defense_request_history").
		Where(squirrel.Eq{"defense_request_id": id}).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build history query: %w", err)
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying history: %w", err)
	}
	defer rows.Close()

	var history []models.HistoryEvent
	for rows.Next() {
		var (
			ev             models.HistoryEvent
			kind, from, to string
			schedule       []byte
		)
		if err := rows.Scan(&ev.Seq, &kind, &ev.Actor, &from, &to, &ev.Note, &schedule, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("error scanning history row: %w", err)
		}
		ev.Kind = models.HistoryKind(kind)
		ev.FromStatus = models.RequestStatus(from)
		ev.ToStatus = models.RequestStatus(to)
		if len(schedule) > 0 {
			ev.Schedule = &models.Schedule{}
			if err := json.Unmarshal(schedule, ev.Schedule); err != nil {
				return nil, fmt.Errorf("error decoding history schedule: %w", err)
			}
		}
		history = append(history, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}
	return history, nil
}

func (r *PgDefenseRequestRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]*models.DefenseRequest, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build defense request query: %w", err)
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing defense request query")
		return nil, fmt.Errorf("error querying defense requests: %w", err)
	}
	defer rows.Close()

	reqs := []*models.DefenseRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning defense request row: %w", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating defense request rows: %w", err)
	}
	return reqs, nil
}

// mutableRequestFields lists the columns a transition may rewrite.
func mutableRequestFields(req *models.DefenseRequest) map[string]interface{} {
	fields := map[string]interface{}{
		"program":                 req.Program,
		"thesis_title":            req.ThesisTitle,
		"defense_type":            string(req.DefenseType),
		"status":                  string(req.Status),
		"priority":                string(req.Priority),
		"adviser_reviewed_at":     req.AdviserReviewedAt,
		"coordinator_reviewed_at": req.CoordinatorReviewedAt,
		"panels_assigned_at":      req.PanelsAssignedAt,
		"schedule_set_at":         req.ScheduleSetAt,
		"completed_at":            req.CompletedAt,
		"last_rejection_reason":   req.LastRejectionReason,
	}
	for _, seat := range []struct {
		prefix string
		m      models.MemberRef
	}{
		{"adviser", req.Committee.Adviser},
		{"chairperson", req.Committee.Chairperson},
		{"panelist1", req.Committee.Panelist1},
		{"panelist2", req.Committee.Panelist2},
		{"panelist3", req.Committee.Panelist3},
		{"panelist4", req.Committee.Panelist4},
	} {
		fields[seat.prefix+"_id"] = helpers.NullID(seat.m.FacultyID)
		fields[seat.prefix+"_name"] = seat.m.Name
	}

	if s := req.Schedule; s != nil {
		fields["schedule_date"] = helpers.DateOnly(s.Date)
		fields["start_time"] = s.StartTime
		fields["end_time"] = s.EndTime
		fields["mode"] = string(s.Mode)
		fields["venue"] = s.Venue
		fields["schedule_notes"] = s.Notes
	} else {
		fields["schedule_date"] = nil
		fields["start_time"] = ""
		fields["end_time"] = ""
		fields["mode"] = ""
		fields["venue"] = ""
		fields["schedule_notes"] = ""
	}
	return fields
}

func scanRequest(row pgx.Row) (*models.DefenseRequest, error) {
	var (
		req                                 models.DefenseRequest
		defenseType, status, priority, mode string
		ids                                 [6]*int64
		names                               [6]string
		scheduleDate                        *time.Time
		startTime, endTime, venue, notes    string
	)
	err := row.Scan(
		&req.ID, &req.StudentID, &req.StudentName, &req.Program, &req.ThesisTitle, &defenseType, &status, &priority,
		&ids[0], &names[0], &ids[1], &names[1],
		&ids[2], &names[2], &ids[3], &names[3],
		&ids[4], &names[4], &ids[5], &names[5],
		&scheduleDate, &startTime, &endTime, &mode, &venue, &notes,
		&req.SubmittedAt, &req.AdviserReviewedAt, &req.CoordinatorReviewedAt, &req.PanelsAssignedAt,
		&req.ScheduleSetAt, &req.CompletedAt, &req.LastRejectionReason, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.DefenseType = models.DefenseType(defenseType)
	req.Status = models.RequestStatus(status)
	req.Priority = models.Priority(priority)

	refs := make([]models.MemberRef, 6)
	for i := range refs {
		refs[i].Name = names[i]
		if ids[i] != nil {
			refs[i].FacultyID = *ids[i]
		}
	}
	req.Committee = models.Committee{
		Adviser: refs[0], Chairperson: refs[1],
		Panelist1: refs[2], Panelist2: refs[3], Panelist3: refs[4], Panelist4: refs[5],
	}

	if scheduleDate != nil {
		req.Schedule = &models.Schedule{
			Date:      *scheduleDate,
			StartTime: startTime,
			EndTime:   endTime,
			Mode:      models.DefenseMode(mode),
			Venue:     venue,
			Notes:     notes,
		}
	}
	return &req, nil
}
