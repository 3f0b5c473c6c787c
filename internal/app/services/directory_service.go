package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/app/repositories"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
)

// DirectoryService resolves committee references against the faculty directory
type DirectoryService interface {
	// Resolve returns the canonical reference for ref. Unknown or inactive
	// faculty are reported as a validation error on field.
	Resolve(ctx context.Context, field string, ref models.MemberRef) (models.MemberRef, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Faculty, error)
	Upsert(ctx context.Context, f *models.Faculty) error
}

// directoryServiceImpl implements DirectoryService
type directoryServiceImpl struct {
	dir repositories.FacultyDirectory
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(dir repositories.FacultyDirectory) DirectoryService {
	return &directoryServiceImpl{dir: dir}
}

func (s *directoryServiceImpl) Resolve(ctx context.Context, field string, ref models.MemberRef) (models.MemberRef, error) {
	f, err := s.lookup(ctx, ref)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return models.MemberRef{}, apperrors.NewValidationError(field, "%s is not in the faculty directory", describeRef(ref))
		}
		return models.MemberRef{}, fmt.Errorf("error resolving %s: %w", field, err)
	}
	if !f.Active {
		return models.MemberRef{}, apperrors.NewValidationError(field, "%s is no longer active in the faculty directory", f.FullName)
	}
	return f.Ref(), nil
}

func (s *directoryServiceImpl) lookup(ctx context.Context, ref models.MemberRef) (*models.Faculty, error) {
	if ref.FacultyID > 0 {
		return s.dir.GetByID(ctx, ref.FacultyID)
	}
	return s.dir.FindByNameKey(ctx, models.NormalizeName(ref.Name))
}

func (s *directoryServiceImpl) List(ctx context.Context, activeOnly bool) ([]*models.Faculty, error) {
	list, err := s.dir.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("error listing faculty: %w", err)
	}
	return list, nil
}

func (s *directoryServiceImpl) Upsert(ctx context.Context, f *models.Faculty) error {
	f.FullName = strings.Join(strings.Fields(f.FullName), " ")
	if f.FullName == "" {
		return apperrors.NewValidationError("fullName", "must not be empty")
	}
	return s.dir.Upsert(ctx, f)
}

func describeRef(ref models.MemberRef) string {
	if ref.FacultyID > 0 {
		return fmt.Sprintf("faculty %d", ref.FacultyID)
	}
	return fmt.Sprintf("%q", strings.TrimSpace(ref.Name))
}
