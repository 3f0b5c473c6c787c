package scheduling

import (
	"errors"
	"testing"
	"time"

	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
)

func day(t *testing.T, v string) time.Time {
	t.Helper()
	d, err := time.Parse(models.DateLayout, v)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func member(id int64, name string) models.MemberRef {
	return models.MemberRef{FacultyID: id, Name: name}
}

func scheduled(t *testing.T, id int64, date, start, end, venue string, c models.Committee) *models.DefenseRequest {
	t.Helper()
	return &models.DefenseRequest{
		ID:          id,
		ThesisTitle: "Thesis " + venue,
		Status:      models.StatusScheduled,
		Committee:   c,
		Schedule: &models.Schedule{
			Date: day(t, date), StartTime: start, EndTime: end,
			Mode: models.ModeFaceToFace, Venue: venue,
		},
	}
}

func candidate(t *testing.T, id int64, date, start, end, venue string, c models.Committee) Candidate {
	t.Helper()
	return Candidate{
		RequestID: id,
		Committee: c,
		Schedule: models.Schedule{
			Date: day(t, date), StartTime: start, EndTime: end,
			Mode: models.ModeFaceToFace, Venue: venue,
		},
	}
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	cases := []struct {
		s1, e1, s2, e2 int
		want           bool
	}{
		{540, 600, 570, 630, true},
		{540, 600, 600, 660, false},
		{600, 660, 540, 600, false},
		{540, 660, 570, 600, true},
		{570, 600, 540, 660, true},
		{540, 600, 420, 480, false},
	}
	for _, tc := range cases {
		if got := Overlaps(tc.s1, tc.e1, tc.s2, tc.e2); got != tc.want {
			t.Fatalf("Overlaps(%d,%d,%d,%d) = %v, want %v", tc.s1, tc.e1, tc.s2, tc.e2, got, tc.want)
		}
	}
}

func TestRoom301Example(t *testing.T) {
	checker := NewChecker(0)
	a := scheduled(t, 1, "2025-03-01", "09:00", "10:00", "Room 301", models.Committee{
		Chairperson: member(10, "X"), Panelist1: member(11, "Y"),
	})
	existing := []*models.DefenseRequest{a}

	b := candidate(t, 2, "2025-03-01", "09:30", "10:30", "Room 301", models.Committee{
		Chairperson: member(20, "P"), Panelist1: member(21, "Q"),
	})
	err := checker.Check(b, existing)
	var conflict *apperrors.SchedulingConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("request B: expected scheduling conflict, got %v", err)
	}
	if !errors.Is(err, apperrors.ErrSchedulingConflict) || errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("conflict must be distinguishable from validation errors")
	}
	if len(conflict.Collisions) != 1 || conflict.Collisions[0].RequestID != 1 {
		t.Fatalf("collisions = %+v, want request 1", conflict.Collisions)
	}
	col := conflict.Collisions[0]
	if len(col.Kinds) != 1 || col.Kinds[0] != apperrors.ConflictVenue {
		t.Fatalf("kinds = %v, want venue only", col.Kinds)
	}
	if col.StartTime != "09:00" || col.EndTime != "10:00" || col.ThesisTitle != a.ThesisTitle {
		t.Fatalf("collision window/title = %+v", col)
	}

	c := candidate(t, 3, "2025-03-01", "10:00", "11:00", "Room 301", models.Committee{
		Chairperson: member(10, "X"),
	})
	if err := checker.Check(c, existing); err != nil {
		t.Fatalf("request C back-to-back should be free, got %v", err)
	}
}

func TestVenueMatchIgnoresCaseAndSpacing(t *testing.T) {
	checker := NewChecker(0)
	existing := []*models.DefenseRequest{
		scheduled(t, 1, "2025-03-01", "13:00", "14:00", "  room   301 ", models.Committee{}),
	}
	cand := candidate(t, 2, "2025-03-01", "13:30", "14:30", "ROOM 301", models.Committee{})
	cols, err := checker.Collisions(cand, existing)
	if err != nil {
		t.Fatalf("collisions: %v", err)
	}
	if len(cols) != 1 || cols[0].Kinds[0] != apperrors.ConflictVenue {
		t.Fatalf("expected venue conflict, got %+v", cols)
	}
}

func TestCommitteeConflictNamesSharedMembers(t *testing.T) {
	checker := NewChecker(0)
	existing := []*models.DefenseRequest{
		scheduled(t, 1, "2025-03-01", "09:00", "11:00", "Room 101", models.Committee{
			Adviser: member(1, "Dr. Ana Cruz"), Chairperson: member(2, "Dr. Ben Reyes"), Panelist1: member(3, "Dr. Carla Lim"),
		}),
	}
	cand := candidate(t, 2, "2025-03-01", "10:00", "12:00", "Room 202", models.Committee{
		Adviser: member(9, "Dr. Dan Uy"), Chairperson: member(3, "Dr. Carla Lim"), Panelist2: member(1, "Dr. Ana Cruz"),
	})
	cols, err := checker.Collisions(cand, existing)
	if err != nil {
		t.Fatalf("collisions: %v", err)
	}
	if len(cols) != 1 {
		t.Fatalf("len(cols) = %d, want 1", len(cols))
	}
	if len(cols[0].Kinds) != 1 || cols[0].Kinds[0] != apperrors.ConflictCommittee {
		t.Fatalf("kinds = %v, want committee", cols[0].Kinds)
	}
	want := []string{"Dr. Ana Cruz", "Dr. Carla Lim"}
	if len(cols[0].Members) != len(want) {
		t.Fatalf("members = %v, want %v", cols[0].Members, want)
	}
	for i := range want {
		if cols[0].Members[i] != want[i] {
			t.Fatalf("members = %v, want %v", cols[0].Members, want)
		}
	}
}

func TestUnresolvedMembersCompareByNormalizedName(t *testing.T) {
	checker := NewChecker(0)
	existing := []*models.DefenseRequest{
		scheduled(t, 1, "2025-03-01", "09:00", "10:00", "Room 1", models.Committee{Adviser: member(0, "Dr.  Ana CRUZ")}),
	}
	cand := candidate(t, 2, "2025-03-01", "09:00", "10:00", "Room 2", models.Committee{Panelist1: member(0, "dr. ana cruz")})
	if err := checker.Check(cand, existing); !errors.Is(err, apperrors.ErrSchedulingConflict) {
		t.Fatalf("expected committee conflict, got %v", err)
	}
}

func TestVenueAndCommitteeReportedTogether(t *testing.T) {
	checker := NewChecker(0)
	shared := member(5, "Dr. Eve Tan")
	existing := []*models.DefenseRequest{
		scheduled(t, 1, "2025-03-01", "09:00", "10:00", "Room 301", models.Committee{Chairperson: shared}),
	}
	cand := candidate(t, 2, "2025-03-01", "09:15", "09:45", "Room 301", models.Committee{Panelist1: shared})
	cols, err := checker.Collisions(cand, existing)
	if err != nil {
		t.Fatalf("collisions: %v", err)
	}
	if len(cols) != 1 || len(cols[0].Kinds) != 2 {
		t.Fatalf("expected venue and committee on one collision, got %+v", cols)
	}
}

func TestRescheduleExcludesItself(t *testing.T) {
	checker := NewChecker(0)
	c := models.Committee{Chairperson: member(1, "X")}
	existing := []*models.DefenseRequest{scheduled(t, 7, "2025-03-01", "09:00", "10:00", "Room 301", c)}
	cand := candidate(t, 7, "2025-03-01", "09:30", "10:30", "Room 301", c)
	if err := checker.Check(cand, existing); err != nil {
		t.Fatalf("request must not conflict with itself, got %v", err)
	}
}

func TestIgnoresOtherDatesAndNonScheduledRequests(t *testing.T) {
	checker := NewChecker(0)
	c := models.Committee{Chairperson: member(1, "X")}
	completed := scheduled(t, 2, "2025-03-01", "09:00", "10:00", "Room 301", c)
	completed.Status = models.StatusCompleted
	existing := []*models.DefenseRequest{
		scheduled(t, 1, "2025-03-02", "09:00", "10:00", "Room 301", c),
		completed,
	}
	cand := candidate(t, 3, "2025-03-01", "09:00", "10:00", "Room 301", c)
	if err := checker.Check(cand, existing); err != nil {
		t.Fatalf("expected free slot, got %v", err)
	}
}

func TestMissingEndTimeUsesDefaultDuration(t *testing.T) {
	checker := NewChecker(90 * time.Minute)
	existing := []*models.DefenseRequest{
		scheduled(t, 1, "2025-03-01", "09:00", "", "Room 301", models.Committee{}),
	}
	if err := checker.Check(candidate(t, 2, "2025-03-01", "10:00", "11:00", "Room 301", models.Committee{}), existing); err == nil {
		t.Fatalf("09:00 + 90m overlaps 10:00, expected conflict")
	}
	if err := checker.Check(candidate(t, 3, "2025-03-01", "10:30", "11:00", "Room 301", models.Committee{}), existing); err != nil {
		t.Fatalf("10:30 is after 09:00 + 90m, got %v", err)
	}
}

func TestInvalidCandidateWindowIsValidationError(t *testing.T) {
	checker := NewChecker(0)
	err := checker.Check(candidate(t, 1, "2025-03-01", "10:00", "09:00", "Room 1", models.Committee{}), nil)
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNameOnlyMemberMatchesResolvedMember(t *testing.T) {
	checker := NewChecker(0)
	existing := []*models.DefenseRequest{
		scheduled(t, 1, "2025-03-01", "09:00", "10:00", "Room 301", models.Committee{
			Adviser: member(0, "Dr. New Person"), Chairperson: member(2, "Dr. Ben Reyes"), Panelist1: member(3, "Dr. Carla Lim"),
		}),
	}
	cand := candidate(t, 2, "2025-03-01", "09:30", "10:30", "Room 999", models.Committee{
		Adviser: member(4, "Dr. Dan Uy"), Chairperson: member(8, "Dr.  new person"), Panelist1: member(5, "Dr. Eve Tan"),
	})
	cols, err := checker.Collisions(cand, existing)
	if err != nil {
		t.Fatalf("collisions: %v", err)
	}
	if len(cols) != 1 || len(cols[0].Members) != 1 || cols[0].Members[0] != "Dr.  new person" {
		t.Fatalf("collisions = %+v, want the shared chairperson", cols)
	}
}

func TestSameDirectoryIDMatchesAcrossRenames(t *testing.T) {
	checker := NewChecker(0)
	existing := []*models.DefenseRequest{
		scheduled(t, 1, "2025-03-01", "09:00", "10:00", "Room 1", models.Committee{Chairperson: member(7, "Dr. Ana Cruz")}),
	}
	cand := candidate(t, 2, "2025-03-01", "09:00", "10:00", "Room 2", models.Committee{Panelist1: member(7, "Dr. Ana Cruz-Reyes")})
	if err := checker.Check(cand, existing); !errors.Is(err, apperrors.ErrSchedulingConflict) {
		t.Fatalf("expected committee conflict, got %v", err)
	}
}
