// Package scheduling decides whether a proposed defense slot collides with
// defenses that are already scheduled. Everything here is a pure function of
// its inputs; loading the existing schedules is the caller's job.
package scheduling

import (
	"fmt"
	"time"

	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
)

// DefaultDuration is used for schedules stored without an end time.
const DefaultDuration = 60 * time.Minute

// Candidate is a proposed slot for one request
type Candidate struct {
	RequestID int64
	Schedule  models.Schedule
	Committee models.Committee
}

// Checker tests candidates against existing scheduled defenses
type Checker struct {
	// DefaultDuration fills in missing end times on existing schedules.
	DefaultDuration time.Duration
}

// NewChecker creates a Checker; a non-positive duration selects DefaultDuration.
func NewChecker(defaultDuration time.Duration) Checker {
	if defaultDuration <= 0 {
		defaultDuration = DefaultDuration
	}
	return Checker{DefaultDuration: defaultDuration}
}

// Overlaps reports whether [s1,e1) and [s2,e2) intersect. Touching intervals do not.
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

// Collisions returns every existing defense that shares the candidate's date,
// overlaps its window and uses the same venue or a shared committee member.
// The candidate's own request is never reported.
func (c Checker) Collisions(cand Candidate, existing []*models.DefenseRequest) ([]apperrors.Collision, error) {
	s1, e1, err := cand.Schedule.Minutes(c.DefaultDuration)
	if err != nil {
		return nil, apperrors.NewValidationError("startTime", "%v", err)
	}
	if e1 <= s1 {
		return nil, apperrors.NewValidationError("endTime", "must be after start time")
	}
	date := cand.Schedule.DateString()
	venue := models.NormalizeName(cand.Schedule.Venue)
	members := memberIndex(cand.Committee)

	var out []apperrors.Collision
	for _, other := range existing {
		if other == nil || other.ID == cand.RequestID || other.Schedule == nil {
			continue
		}
		if other.Status != models.StatusScheduled {
			continue
		}
		if other.Schedule.DateString() != date {
			continue
		}
		s2, e2, err := other.Schedule.Minutes(c.DefaultDuration)
		if err != nil {
			return nil, fmt.Errorf("existing schedule of request %d: %w", other.ID, err)
		}
		if !Overlaps(s1, e1, s2, e2) {
			continue
		}

		col := apperrors.Collision{
			RequestID:   other.ID,
			ThesisTitle: other.ThesisTitle,
			Date:        date,
			StartTime:   models.FormatClock(s2),
			EndTime:     models.FormatClock(e2),
		}
		if venue != "" && models.NormalizeName(other.Schedule.Venue) == venue {
			col.Kinds = append(col.Kinds, apperrors.ConflictVenue)
			col.Venue = other.Schedule.Venue
		}
		if shared := sharedMembers(members, other.Committee); len(shared) > 0 {
			col.Kinds = append(col.Kinds, apperrors.ConflictCommittee)
			col.Members = shared
		}
		if len(col.Kinds) > 0 {
			out = append(out, col)
		}
	}
	return out, nil
}

// Check returns a *apperrors.SchedulingConflictError when the candidate collides
// with anything in existing, and nil when the slot is free.
func (c Checker) Check(cand Candidate, existing []*models.DefenseRequest) error {
	cols, err := c.Collisions(cand, existing)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return nil
	}
	return &apperrors.SchedulingConflictError{RequestID: cand.RequestID, Collisions: cols}
}

func memberIndex(c models.Committee) []models.MemberRef {
	var refs []models.MemberRef
	for _, seat := range c.Seats() {
		refs = append(refs, seat.Member)
	}
	return refs
}

// sharedMembers lists, in the other committee's seat order, the candidate
// members who also sit on other. A member matches on directory id or name.
func sharedMembers(members []models.MemberRef, other models.Committee) []string {
	var shared []string
	taken := make([]bool, len(members))
	for _, seat := range other.Seats() {
		for i, m := range members {
			if taken[i] || !m.SamePerson(seat.Member) {
				continue
			}
			shared = append(shared, m.Name)
			taken[i] = true
			break
		}
	}
	return shared
}
