package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
)

type stubRequests map[int64]*models.DefenseRequest

func (s stubRequests) Get(_ context.Context, id int64) (*models.DefenseRequest, error) {
	if r, ok := s[id]; ok {
		return r, nil
	}
	return nil, apperrors.NewNotFound("defense request", id)
}

func TestAllowed(t *testing.T) {
	student := Principal{ID: "2021-00123", Roles: []models.RoleType{models.RoleStudent}}
	admin := Principal{ID: "root", Roles: []models.RoleType{models.RoleAdministrator}}
	assistant := Principal{ID: "ga.cruz", Roles: []models.RoleType{models.RoleAdminAssistant}}

	tests := []struct {
		p      Principal
		action Action
		want   bool
	}{
		{student, ActionSubmit, true},
		{student, ActionSchedule, false},
		{student, ActionVerifyPayment, false},
		{assistant, ActionVerifyPayment, true},
		{assistant, ActionCoordinatorReview, false},
		{admin, ActionRunJobs, true},
		{Principal{ID: "nobody"}, ActionView, false},
	}
	for _, tt := range tests {
		if got := Allowed(tt.p, tt.action); got != tt.want {
			t.Fatalf("Allowed(%s, %s) = %v, want %v", tt.p.ID, tt.action, got, tt.want)
		}
	}
}

func TestAuthorizeRequestOwnership(t *testing.T) {
	reqs := stubRequests{
		1: {ID: 1, StudentID: "2021-00123", Committee: models.Committee{Adviser: models.MemberRef{Name: "Dr. Jose  Rizal"}}},
	}
	s := NewAuthorizationService(reqs)
	ctx := context.Background()

	owner := Principal{ID: "2021-00123", Roles: []models.RoleType{models.RoleStudent}}
	if err := s.AuthorizeRequest(ctx, owner, ActionRetrieve, 1); err != nil {
		t.Fatalf("owner retrieve: %v", err)
	}
	stranger := Principal{ID: "2021-00999", Roles: []models.RoleType{models.RoleStudent}}
	if err := s.AuthorizeRequest(ctx, stranger, ActionRetrieve, 1); !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("stranger retrieve: %v", err)
	}

	adviser := Principal{ID: "jrizal", Name: "dr. jose rizal", Roles: []models.RoleType{models.RoleAdviser}}
	if err := s.AuthorizeRequest(ctx, adviser, ActionAdviserReview, 1); err != nil {
		t.Fatalf("named adviser: %v", err)
	}
	other := Principal{ID: "aluna", Name: "Dr. Antonio Luna", Roles: []models.RoleType{models.RoleAdviser}}
	if err := s.AuthorizeRequest(ctx, other, ActionAdviserReview, 1); !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("other adviser: %v", err)
	}

	coordinator := Principal{ID: "coord", Roles: []models.RoleType{models.RoleCoordinator}}
	if err := s.AuthorizeRequest(ctx, coordinator, ActionSchedule, 99); err != nil {
		t.Fatalf("coordinator is not restricted by ownership: %v", err)
	}
	if err := s.AuthorizeRequest(ctx, owner, ActionRetrieve, 99); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("missing request: %v", err)
	}
}
