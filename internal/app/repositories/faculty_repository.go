package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
	"github.com/yigit/thesisflow/internal/pkg/logger"
)

var facultyColumns = []string{"id", "full_name", "title", "name_key", "active"}

// PgFacultyRepository handles panel directory database operations
type PgFacultyRepository struct {
	q querier
	// Use squirrel instance with placeholder format
	sb squirrel.StatementBuilderType
}

// NewFacultyRepository creates a new PgFacultyRepository
func NewFacultyRepository(q querier) *PgFacultyRepository {
	return &PgFacultyRepository{q: q, sb: newBuilder()}
}

// GetByID retrieves a faculty member by ID
func (r *PgFacultyRepository) GetByID(ctx context.Context, id int64) (*models.Faculty, error) {
	f, err := r.one(ctx, squirrel.Eq{"id": id})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("faculty", id)
	}
	return f, err
}

// FindByNameKey retrieves a faculty member by normalized full name
func (r *PgFacultyRepository) FindByNameKey(ctx context.Context, key string) (*models.Faculty, error) {
	f, err := r.one(ctx, squirrel.Eq{"name_key": key})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFoundKey("faculty", key)
	}
	return f, err
}

func (r *PgFacultyRepository) one(ctx context.Context, where squirrel.Eq) (*models.Faculty, error) {
	sql, args, err := r.sb.Select(facultyColumns...).
		From("faculty_directory").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get faculty SQL")
		return nil, fmt.Errorf("failed to build get faculty query: %w", err)
	}

	f := &models.Faculty{}
	if err := r.q.QueryRow(ctx, sql, args...).Scan(&f.ID, &f.FullName, &f.Title, &f.NameKey, &f.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		logger.Error().Err(err).Msg("Error scanning faculty row")
		return nil, fmt.Errorf("error getting faculty: %w", err)
	}
	return f, nil
}

// List returns the directory ordered by name
func (r *PgFacultyRepository) List(ctx context.Context, activeOnly bool) ([]*models.Faculty, error) {
	q := r.sb.Select(facultyColumns...).From("faculty_directory").OrderBy("full_name ASC")
	if activeOnly {
		q = q.Where(squirrel.Eq{"active": true})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list faculty query: %w", err)
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list faculty query")
		return nil, fmt.Errorf("error querying faculty: %w", err)
	}
	defer rows.Close()

	list := []*models.Faculty{}
	for rows.Next() {
		f := &models.Faculty{}
		if err := rows.Scan(&f.ID, &f.FullName, &f.Title, &f.NameKey, &f.Active); err != nil {
			return nil, fmt.Errorf("error scanning faculty row: %w", err)
		}
		list = append(list, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating faculty rows: %w", err)
	}
	return list, nil
}

// Upsert inserts a directory entry or refreshes the one with the same name key
func (r *PgFacultyRepository) Upsert(ctx context.Context, f *models.Faculty) error {
	f.NameKey = models.NormalizeName(f.FullName)
	sql, args, err := r.sb.Insert("faculty_directory").
		Columns("full_name", "title", "name_key", "active").
		Values(f.FullName, f.Title, f.NameKey, f.Active).
		Suffix("ON CONFLICT (name_key) DO UPDATE SET full_name = EXCLUDED.full_name, title = EXCLUDED.title, active = EXCLUDED.active, updated_at = NOW() RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert faculty query: %w", err)
	}

	if err := r.q.QueryRow(ctx, sql, args...).Scan(&f.ID); err != nil {
		logger.Error().Err(err).Str("name", f.FullName).Msg("Error executing upsert faculty query")
		return fmt.Errorf("error upserting faculty: %w", err)
	}
	return nil
}
