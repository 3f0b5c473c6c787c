package models

import "time"

// HistoryKind tags a workflow history entry
type HistoryKind string

const (
	HistorySubmitted              HistoryKind = "submitted"
	HistoryAdviserReviewStarted   HistoryKind = "adviser-review-started"
	HistoryAdviserApproved        HistoryKind = "adviser-approved"
	HistoryAdviserRejected        HistoryKind = "adviser-rejected"
	HistoryForwardedToCoordinator HistoryKind = "forwarded-to-coordinator"
	HistoryCoordinatorApproved    HistoryKind = "coordinator-approved"
	HistoryCoordinatorRejected    HistoryKind = "coordinator-rejected"
	HistoryRetrieved              HistoryKind = "retrieved"
	HistoryResubmitted            HistoryKind = "resubmitted"
	HistoryPanelsAssigned         HistoryKind = "panels-assigned"
	HistoryScheduleSet            HistoryKind = "schedule-set"
	HistoryRescheduled            HistoryKind = "rescheduled"
	HistoryCompleted              HistoryKind = "completed"
)

// HistoryEvent is one append-only entry in a request's workflow history.
// Actor is empty when the system performed the transition.
type HistoryEvent struct {
	Seq        int           `json:"seq" db:"seq"`
	Kind       HistoryKind   `json:"kind" db:"kind"`
	Actor      string        `json:"actor,omitempty" db:"actor"`
	FromStatus RequestStatus `json:"fromStatus" db:"from_status"`
	ToStatus   RequestStatus `json:"toStatus" db:"to_status"`
	Note       string        `json:"note,omitempty" db:"note"`
	OccurredAt time.Time     `json:"occurredAt" db:"occurred_at"`

	// Schedule is set on schedule-set and rescheduled entries and records the
	// slot that was committed at that point.
	Schedule *Schedule `json:"schedule,omitempty" db:"schedule"`
}

// IsSystem reports whether the entry was written without a human actor.
func (e HistoryEvent) IsSystem() bool {
	return e.Actor == ""
}

func (e HistoryEvent) clone() HistoryEvent {
	c := e
	if e.Schedule != nil {
		s := *e.Schedule
		c.Schedule = &s
	}
	return c
}
