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
	"github.com/yigit/thesisflow/internal/pkg/logger"
)

const readyVerificationConstraint = "uq_payment_verifications_ready"

var verificationColumns = []string{
	"id", "defense_request_id", "amount", "reference_number", "proof_ref", "status",
	"note", "decided_by", "decided_at", "created_at", "updated_at",
}

// PgVerificationRepository handles payment verification database operations
type PgVerificationRepository struct {
	q  querier
	sb squirrel.StatementBuilderType
}

// NewVerificationRepository creates a new PgVerificationRepository
func NewVerificationRepository(q querier) *PgVerificationRepository {
	return &PgVerificationRepository{q: q, sb: newBuilder()}
}

// Create inserts a verification and fills in its id and timestamps
func (r *PgVerificationRepository) Create(ctx context.Context, v *models.PaymentVerification) error {
	sql, args, err := r.sb.Insert("payment_verifications").
		Columns("defense_request_id", "amount", "reference_number", "proof_ref", "status", "note").
		Values(v.DefenseRequestID, v.Amount, v.ReferenceNumber, v.ProofRef, string(v.Status), v.Note).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create verification query: %w", err)
	}

	if err := r.q.QueryRow(ctx, sql, args...).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt); err != nil {
		logger.Error().Err(err).Int64("requestID", v.DefenseRequestID).Msg("Error creating payment verification")
		return fmt.Errorf("error creating payment verification: %w", err)
	}
	return nil
}

// GetByID retrieves a verification by ID
func (r *PgVerificationRepository) GetByID(ctx context.Context, id int64) (*models.PaymentVerification, error) {
	sql, args, err := r.sb.Select(verificationColumns...).
		From("payment_verifications").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get verification query: %w", err)
	}

	v, err := scanVerification(r.q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("payment verification", id)
		}
		return nil, fmt.Errorf("error getting payment verification: %w", err)
	}
	return v, nil
}

// ListByRequest returns every verification recorded for a defense request
func (r *PgVerificationRepository) ListByRequest(ctx context.Context, requestID int64) ([]*models.PaymentVerification, error) {
	return r.query(ctx, r.sb.Select(verificationColumns...).
		From("payment_verifications").
		Where(squirrel.Eq{"defense_request_id": requestID}).
		OrderBy("id ASC"))
}

// List returns a page of verifications and the total match count
func (r *PgVerificationRepository) List(ctx context.Context, f VerificationFilter) ([]*models.PaymentVerification, int64, error) {
	where := squirrel.And{}
	if f.Status != "" {
		where = append(where, squirrel.Eq{"status": string(f.Status)})
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("payment_verifications").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count verifications query: %w", err)
	}
	var total int64
	if err := r.q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting verifications: %w", err)
	}

	q := r.sb.Select(verificationColumns...).From("payment_verifications").Where(where).OrderBy("id ASC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit)).Offset(f.Offset)
	}
	list, err := r.query(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// UpdateStatus writes the decision fields if the stored status equals expected
func (r *PgVerificationRepository) UpdateStatus(ctx context.Context, v *models.PaymentVerification, expected models.VerificationStatus) error {
	sql, args, err := r.sb.Update("payment_verifications").
		SetMap(map[string]interface{}{
			"status":     string(v.Status),
			"note":       v.Note,
			"decided_by": v.DecidedBy,
			"decided_at": v.DecidedAt,
			"updated_at": squirrel.Expr("NOW()"),
		}).
		Where(squirrel.Eq{"id": v.ID, "status": string(expected)}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update verification query: %w", err)
	}

	if err := r.q.QueryRow(ctx, sql, args...).Scan(&v.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.GetByID(ctx, v.ID); getErr != nil {
				return getErr
			}
			return apperrors.NewCustomError(apperrors.ErrConcurrentUpdate,
				fmt.Sprintf("payment verification %d is no longer %s", v.ID, expected))
		}
		if dberrors.IsDuplicateConstraintError(err, readyVerificationConstraint) {
			return apperrors.NewCustomError(apperrors.ErrAlreadyExists,
				fmt.Sprintf("defense request %d already has a ready-for-finance verification", v.DefenseRequestID))
		}
		logger.Error().Err(err).Int64("verificationID", v.ID).Msg("Error updating payment verification")
		return fmt.Errorf("error updating payment verification: %w", err)
	}
	return nil
}

// SetProof stores the attachment reference of a verification
func (r *PgVerificationRepository) SetProof(ctx context.Context, id int64, ref string) error {
	sql, args, err := r.sb.Update("payment_verifications").
		Set("proof_ref", ref).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build set proof query: %w", err)
	}

	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error setting verification proof: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFound("payment verification", id)
	}
	return nil
}

// ListReadyUnsynced finds ready-for-finance verifications without a student record
func (r *PgVerificationRepository) ListReadyUnsynced(ctx context.Context, limit int) ([]*models.PaymentVerification, error) {
	q := r.sb.Select(verificationColumns...).
		From("payment_verifications pv").
		Where(squirrel.Eq{"pv.status": string(models.VerificationReadyForFinance)}).
		Where("NOT EXISTS (SELECT 1 FROM student_records sr WHERE sr.defense_request_id = pv.defense_request_id)").
		OrderBy("pv.id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return r.query(ctx, q)
}

func (r *PgVerificationRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]*models.PaymentVerification, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build verification query: %w", err)
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing verification query")
		return nil, fmt.Errorf("error querying verifications: %w", err)
	}
	defer rows.Close()

	list := []*models.PaymentVerification{}
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning verification row: %w", err)
		}
		list = append(list, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating verification rows: %w", err)
	}
	return list, nil
}

func scanVerification(row pgx.Row) (*models.PaymentVerification, error) {
	var (
		v      models.PaymentVerification
		status string
	)
	err := row.Scan(&v.ID, &v.DefenseRequestID, &v.Amount, &v.ReferenceNumber, &v.ProofRef, &status,
		&v.Note, &v.DecidedBy, &v.DecidedAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.Status = models.VerificationStatus(status)
	return &v, nil
}
