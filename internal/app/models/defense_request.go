package models

import "time"

// RequestStatus is the workflow state of a defense request
type RequestStatus string

const (
	StatusSubmitted           RequestStatus = "submitted"
	StatusAdviserReview       RequestStatus = "adviser-review"
	StatusAdviserApproved     RequestStatus = "adviser-approved"
	StatusCoordinatorReview   RequestStatus = "coordinator-review"
	StatusCoordinatorApproved RequestStatus = "coordinator-approved"
	StatusPanelsAssigned      RequestStatus = "panels-assigned"
	StatusScheduled           RequestStatus = "scheduled"
	StatusCompleted           RequestStatus = "completed"
	StatusRejected            RequestStatus = "rejected"
	StatusPending             RequestStatus = "pending"
)

// AllRequestStatuses lists every workflow state.
var AllRequestStatuses = []RequestStatus{
	StatusSubmitted, StatusAdviserReview, StatusAdviserApproved, StatusCoordinatorReview,
	StatusCoordinatorApproved, StatusPanelsAssigned, StatusScheduled, StatusCompleted,
	StatusRejected, StatusPending,
}

// Valid reports whether s is a known workflow state.
func (s RequestStatus) Valid() bool {
	for _, known := range AllRequestStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// DefenseRequest represents a student's request for a thesis defense
type DefenseRequest struct {
	ID          int64         `json:"id" db:"id" example:"12"`
	StudentID   string        `json:"studentId" db:"student_id" example:"2021-00123"`
	StudentName string        `json:"studentName" db:"student_name" example:"Maria Santos"`
	Program     string        `json:"program" db:"program" example:"Master of Science in Computer Science"`
	ThesisTitle string        `json:"thesisTitle" db:"thesis_title"`
	DefenseType DefenseType   `json:"defenseType" db:"defense_type" example:"final"`
	Status      RequestStatus `json:"status" db:"status" example:"submitted"`
	Priority    Priority      `json:"priority" db:"priority" example:"normal"`

	Committee Committee `json:"committee"`
	Schedule  *Schedule `json:"schedule,omitempty"`

	SubmittedAt           time.Time  `json:"submittedAt" db:"submitted_at"`
	AdviserReviewedAt     *time.Time `json:"adviserReviewedAt,omitempty" db:"adviser_reviewed_at"`
	CoordinatorReviewedAt *time.Time `json:"coordinatorReviewedAt,omitempty" db:"coordinator_reviewed_at"`
	PanelsAssignedAt      *time.Time `json:"panelsAssignedAt,omitempty" db:"panels_assigned_at"`
	ScheduleSetAt         *time.Time `json:"scheduleSetAt,omitempty" db:"schedule_set_at"`
	CompletedAt           *time.Time `json:"completedAt,omitempty" db:"completed_at"`
	LastRejectionReason   string     `json:"lastRejectionReason,omitempty" db:"last_rejection_reason"`
	CreatedAt             time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt             time.Time  `json:"updatedAt" db:"updated_at"`

	// History is loaded in insertion order; repositories only ever append to it.
	History []HistoryEvent `json:"history,omitempty"`
}

// Clone returns a deep copy so callers can stage changes without touching the original.
func (r *DefenseRequest) Clone() *DefenseRequest {
	if r == nil {
		return nil
	}
	c := *r
	if r.Schedule != nil {
		s := *r.Schedule
		c.Schedule = &s
	}
	c.AdviserReviewedAt = cloneTime(r.AdviserReviewedAt)
	c.CoordinatorReviewedAt = cloneTime(r.CoordinatorReviewedAt)
	c.PanelsAssignedAt = cloneTime(r.PanelsAssignedAt)
	c.ScheduleSetAt = cloneTime(r.ScheduleSetAt)
	c.CompletedAt = cloneTime(r.CompletedAt)
	if r.History != nil {
		c.History = make([]HistoryEvent, len(r.History))
		for i, ev := range r.History {
			c.History[i] = ev.clone()
		}
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
