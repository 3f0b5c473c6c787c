package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
	"github.com/yigit/thesisflow/internal/pkg/dberrors"
	"github.com/yigit/thesisflow/internal/pkg/helpers"
	"github.com/yigit/thesisflow/internal/pkg/logger"
)

// PgFinanceRepository handles the records written by a student record sync
type PgFinanceRepository struct {
	q  querier
	sb squirrel.StatementBuilderType
}

// NewFinanceRepository creates a new PgFinanceRepository
func NewFinanceRepository(q querier) *PgFinanceRepository {
	return &PgFinanceRepository{q: q, sb: newBuilder()}
}

// FindStudentRecordByRequest returns the student record of a defense request
func (r *PgFinanceRepository) FindStudentRecordByRequest(ctx context.Context, requestID int64) (*models.StudentRecord, error) {
	sql, args, err := r.sb.Select("id", "defense_request_id", "program_record_id", "student_id", "student_name",
		"thesis_title", "defense_type", "defense_date", "created_at").
		From("student_records").
		Where(squirrel.Eq{"defense_request_id": requestID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build find student record query: %w", err)
	}

	var (
		s           models.StudentRecord
		defenseType string
	)
	err = r.q.QueryRow(ctx, sql, args...).Scan(&s.ID, &s.DefenseRequestID, &s.ProgramRecordID, &s.StudentID,
		&s.StudentName, &s.ThesisTitle, &defenseType, &s.DefenseDate, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundKey("student record", fmt.Sprintf("for defense request %d", requestID))
		}
		return nil, fmt.Errorf("error finding student record: %w", err)
	}
	s.DefenseType = models.DefenseType(defenseType)
	return &s, nil
}

// CreateStudentRecord inserts a student record
func (r *PgFinanceRepository) CreateStudentRecord(ctx context.Context, s *models.StudentRecord) error {
	sql, args, err := r.sb.Insert("student_records").
		Columns("defense_request_id", "program_record_id", "student_id", "student_name", "thesis_title", "defense_type", "defense_date").
		Values(s.DefenseRequestID, s.ProgramRecordID, s.StudentID, s.StudentName, s.ThesisTitle, string(s.DefenseType), s.DefenseDate).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create student record query: %w", err)
	}
	return r.insert(ctx, "student record", sql, args, &s.ID, &s.CreatedAt)
}

// FindProgramRecord looks up a program record by normalized name and category
func (r *PgFinanceRepository) FindProgramRecord(ctx context.Context, nameKey, category string) (*models.ProgramRecord, error) {
	return r.programRecord(ctx, squirrel.Eq{"name_key": nameKey, "category": category}, nameKey+"/"+category)
}

// GetProgramRecord retrieves a program record by ID
func (r *PgFinanceRepository) GetProgramRecord(ctx context.Context, id int64) (*models.ProgramRecord, error) {
	return r.programRecord(ctx, squirrel.Eq{"id": id}, fmt.Sprintf("%d", id))
}

func (r *PgFinanceRepository) programRecord(ctx context.Context, where squirrel.Eq, key string) (*models.ProgramRecord, error) {
	sql, args, err := r.sb.Select("id", "name", "category", "name_key", "created_at").
		From("program_records").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build program record query: %w", err)
	}

	var p models.ProgramRecord
	if err := r.q.QueryRow(ctx, sql, args...).Scan(&p.ID, &p.Name, &p.Category, &p.NameKey, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundKey("program record", key)
		}
		return nil, fmt.Errorf("error finding program record: %w", err)
	}
	return &p, nil
}

// CreateProgramRecord inserts a program record
func (r *PgFinanceRepository) CreateProgramRecord(ctx context.Context, p *models.ProgramRecord) error {
	sql, args, err := r.sb.Insert("program_records").
		Columns("name", "category", "name_key").
		Values(p.Name, p.Category, p.NameKey).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create program record query: %w", err)
	}
	return r.insert(ctx, "program record", sql, args, &p.ID, &p.CreatedAt)
}

// FindPanelistRecord finds a panelist in a program by faculty id, falling back to the name key
func (r *PgFinanceRepository) FindPanelistRecord(ctx context.Context, programRecordID, facultyID int64, nameKey string) (*models.PanelistRecord, error) {
	match := squirrel.Or{squirrel.Eq{"name_key": nameKey}}
	if facultyID > 0 {
		match = append(match, squirrel.Eq{"faculty_id": facultyID})
	}
	sql, args, err := r.sb.Select("id", "program_record_id", "faculty_id", "name", "name_key", "created_at").
		From("panelist_records").
		Where(squirrel.Eq{"program_record_id": programRecordID}).
		Where(match).
		OrderBy("id ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build find panelist record query: %w", err)
	}

	var (
		p   models.PanelistRecord
		fid *int64
	)
	if err := r.q.QueryRow(ctx, sql, args...).Scan(&p.ID, &p.ProgramRecordID, &fid, &p.Name, &p.NameKey, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundKey("panelist record", nameKey)
		}
		return nil, fmt.Errorf("error finding panelist record: %w", err)
	}
	if fid != nil {
		p.FacultyID = *fid
	}
	return &p, nil
}

// CreatePanelistRecord inserts a panelist record
func (r *PgFinanceRepository) CreatePanelistRecord(ctx context.Context, p *models.PanelistRecord) error {
	sql, args, err := r.sb.Insert("panelist_records").
		Columns("program_record_id", "faculty_id", "name", "name_key").
		Values(p.ProgramRecordID, helpers.NullID(p.FacultyID), p.Name, p.NameKey).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create panelist record query: %w", err)
	}
	return r.insert(ctx, "panelist record", sql, args, &p.ID, &p.CreatedAt)
}

var assignmentColumns = []string{"id", "panelist_record_id", "student_record_id", "role", "slot", "defense_type", "receivable", "created_at"}

// FindAssignment finds the pivot row for one committee seat
func (r *PgFinanceRepository) FindAssignment(ctx context.Context, panelistRecordID, studentRecordID int64, role models.CommitteeRole, slot int) (*models.PanelistAssignment, error) {
	list, err := r.assignments(ctx, squirrel.Eq{
		"panelist_record_id": panelistRecordID,
		"student_record_id":  studentRecordID,
		"role":               string(role),
		"slot":               slot,
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, apperrors.NewNotFoundKey("panelist assignment", fmt.Sprintf("%s/%d", role, slot))
	}
	return &list[0], nil
}

// ListAssignments returns the pivot rows of a student record
func (r *PgFinanceRepository) ListAssignments(ctx context.Context, studentRecordID int64) ([]models.PanelistAssignment, error) {
	return r.assignments(ctx, squirrel.Eq{"student_record_id": studentRecordID})
}

func (r *PgFinanceRepository) assignments(ctx context.Context, where squirrel.Eq) ([]models.PanelistAssignment, error) {
	sql, args, err := r.sb.Select(assignmentColumns...).
		From("panelist_assignments").
		Where(where).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build assignments query: %w", err)
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying assignments: %w", err)
	}
	defer rows.Close()

	var list []models.PanelistAssignment
	for rows.Next() {
		var (
			a                 models.PanelistAssignment
			role, defenseType string
		)
		if err := rows.Scan(&a.ID, &a.PanelistRecordID, &a.StudentRecordID, &role, &a.Slot, &defenseType, &a.Receivable, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning assignment row: %w", err)
		}
		a.Role = models.CommitteeRole(role)
		a.DefenseType = models.DefenseType(defenseType)
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignment rows: %w", err)
	}
	return list, nil
}

// CreateAssignment inserts a pivot row. A nil receivable is stored as NULL.
func (r *PgFinanceRepository) CreateAssignment(ctx context.Context, a *models.PanelistAssignment) error {
	sql, args, err := r.sb.Insert("panelist_assignments").
		Columns("panelist_record_id", "student_record_id", "role", "slot", "defense_type", "receivable").
		Values(a.PanelistRecordID, a.StudentRecordID, string(a.Role), a.Slot, string(a.DefenseType), a.Receivable).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create assignment query: %w", err)
	}
	return r.insert(ctx, "panelist assignment", sql, args, &a.ID, &a.CreatedAt)
}

// FindPaymentRecord returns the payment record of a student record
func (r *PgFinanceRepository) FindPaymentRecord(ctx context.Context, studentRecordID int64) (*models.PaymentRecord, error) {
	sql, args, err := r.sb.Select("id", "student_record_id", "defense_request_id", "verification_id", "amount", "reference_number", "created_at").
		From("payment_records").
		Where(squirrel.Eq{"student_record_id": studentRecordID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build find payment record query: %w", err)
	}

	var p models.PaymentRecord
	err = r.q.QueryRow(ctx, sql, args...).Scan(&p.ID, &p.StudentRecordID, &p.DefenseRequestID, &p.VerificationID,
		&p.Amount, &p.ReferenceNumber, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundKey("payment record", fmt.Sprintf("for student record %d", studentRecordID))
		}
		return nil, fmt.Errorf("error finding payment record: %w", err)
	}
	return &p, nil
}

// CreatePaymentRecord inserts a payment record
func (r *PgFinanceRepository) CreatePaymentRecord(ctx context.Context, p *models.PaymentRecord) error {
	sql, args, err := r.sb.Insert("payment_records").
		Columns("student_record_id", "defense_request_id", "verification_id", "amount", "reference_number").
		Values(p.StudentRecordID, p.DefenseRequestID, p.VerificationID, p.Amount, p.ReferenceNumber).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create payment record query: %w", err)
	}
	return r.insert(ctx, "payment record", sql, args, &p.ID, &p.CreatedAt)
}

func (r *PgFinanceRepository) insert(ctx context.Context, entity, sql string, args []interface{}, dest ...interface{}) error {
	if err := r.q.QueryRow(ctx, sql, args...).Scan(dest...); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.NewCustomError(apperrors.ErrAlreadyExists, entity+" already exists")
		}
		logger.Error().Err(err).Str("entity", entity).Msg("Error inserting finance record")
		return fmt.Errorf("error creating %s: %w", entity, err)
	}
	return nil
}
