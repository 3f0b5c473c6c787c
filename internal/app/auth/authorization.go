package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
	"github.com/yigit/thesisflow/internal/pkg/logger"
)

// Action names something an actor asks the workflow to do
type Action string

const (
	ActionView              Action = "view"
	ActionSubmit            Action = "submit"
	ActionRetrieve          Action = "retrieve"
	ActionResubmit          Action = "resubmit"
	ActionAdviserReview     Action = "adviser-review"
	ActionCoordinatorReview Action = "coordinator-review"
	ActionAssignPanels      Action = "assign-panels"
	ActionSchedule          Action = "schedule"
	ActionComplete          Action = "complete"
	ActionRecordPayment     Action = "record-payment"
	ActionVerifyPayment     Action = "verify-payment"
	ActionRunJobs           Action = "run-jobs"
	ActionManageDirectory   Action = "manage-directory"
)

// policy lists the roles allowed to perform each action. Administrators may do
// everything.
var policy = map[Action][]models.RoleType{
	ActionView:              {models.RoleStudent, models.RoleAdviser, models.RoleCoordinator, models.RoleAdminAssistant},
	ActionSubmit:            {models.RoleStudent},
	ActionRetrieve:          {models.RoleStudent},
	ActionResubmit:          {models.RoleStudent},
	ActionAdviserReview:     {models.RoleAdviser},
	ActionCoordinatorReview: {models.RoleCoordinator},
	ActionAssignPanels:      {models.RoleCoordinator},
	ActionSchedule:          {models.RoleCoordinator},
	ActionComplete:          {models.RoleCoordinator},
	ActionRecordPayment:     {models.RoleStudent, models.RoleAdminAssistant},
	ActionVerifyPayment:     {models.RoleAdminAssistant},
	ActionRunJobs:           {models.RoleSystem},
	ActionManageDirectory:   {models.RoleCoordinator},
}

// Principal is the authenticated actor behind a request
type Principal struct {
	ID    string
	Name  string
	Roles []models.RoleType
}

// Has reports whether the principal carries role.
func (p Principal) Has(role models.RoleType) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Staff reports whether the principal sees every request regardless of
// ownership.
func (p Principal) Staff() bool {
	return p.Has(models.RoleAdministrator) || p.Has(models.RoleCoordinator) || p.Has(models.RoleAdminAssistant)
}

// RequestReader loads defense requests for ownership checks
type RequestReader interface {
	Get(ctx context.Context, id int64) (*models.DefenseRequest, error)
}

// AuthorizationService decides whether a principal may act on a request
type AuthorizationService struct {
	requests RequestReader
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(requests RequestReader) *AuthorizationService {
	return &AuthorizationService{requests: requests}
}

// Allowed reports whether any of the principal's roles may perform action.
func Allowed(p Principal, action Action) bool {
	if p.Has(models.RoleAdministrator) {
		return true
	}
	for _, role := range policy[action] {
		if p.Has(role) {
			return true
		}
	}
	return false
}

// Authorize checks the role policy only.
func (s *AuthorizationService) Authorize(p Principal, action Action) error {
	if !Allowed(p, action) {
		return apperrors.NewCustomError(apperrors.ErrPermissionDenied, fmt.Sprintf("%s may not %s", p.ID, action))
	}
	return nil
}

// AuthorizeRequest checks the role policy and then ownership of the request:
// students act only on their own requests and advisers only review requests
// that name them. Staff roles with the permission are not restricted.
func (s *AuthorizationService) AuthorizeRequest(ctx context.Context, p Principal, action Action, requestID int64) error {
	if err := s.Authorize(p, action); err != nil {
		return err
	}
	if p.Staff() {
		return nil
	}

	req, err := s.requests.Get(ctx, requestID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error().Err(err).Int64("requestID", requestID).Str("actor", p.ID).Msg("Error loading request for authorization")
		}
		return err
	}

	switch {
	case p.Has(models.RoleStudent) && req.StudentID == p.ID:
		return nil
	case p.Has(models.RoleAdviser) && isAdviserOf(p, req):
		return nil
	}
	return apperrors.NewCustomError(apperrors.ErrPermissionDenied,
		fmt.Sprintf("%s may not %s defense request %d", p.ID, action, requestID))
}

func isAdviserOf(p Principal, req *models.DefenseRequest) bool {
	adviser := req.Committee.Adviser
	if p.Name == "" {
		return false
	}
	return models.NormalizeName(adviser.Name) == models.NormalizeName(p.Name)
}
