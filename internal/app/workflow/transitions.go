// Package workflow defines the legal state transitions of defense requests and
// payment verifications. It holds no state and performs no I/O.
package workflow

import (
	"github.com/yigit/thesisflow/internal/app/models"
)

// Action is an operation that moves a defense request between states
type Action string

const (
	ActionStartAdviserReview   Action = "start-adviser-review"
	ActionAdviserApprove       Action = "adviser-approve"
	ActionAdviserReject        Action = "adviser-reject"
	ActionForwardToCoordinator Action = "forward-to-coordinator"
	ActionCoordinatorApprove   Action = "coordinator-approve"
	ActionCoordinatorReject    Action = "coordinator-reject"
	ActionRetrieve             Action = "retrieve"
	ActionResubmit             Action = "resubmit"
	ActionAssignPanels         Action = "assign-panels"
	ActionSchedule             Action = "schedule"
	ActionMarkCompleted        Action = "mark-completed"
)

// Edge is one legal transition
type Edge struct {
	Action Action
	From   models.RequestStatus
	To     models.RequestStatus
}

// Rules holds the product switches that change the request graph.
type Rules struct {
	// SeparateCoordinatorGate parks adviser-approved requests in adviser-approved
	// until they are explicitly forwarded to the coordinator.
	SeparateCoordinatorGate bool
	// AllowRetrieveFromCoordinatorReview lets a request under coordinator review
	// be pulled back for correction without being rejected first.
	AllowRetrieveFromCoordinatorReview bool
}

// Edges returns every legal transition under r.
func (r Rules) Edges() []Edge {
	adviserApproveTo := models.StatusCoordinatorReview
	if r.SeparateCoordinatorGate {
		adviserApproveTo = models.StatusAdviserApproved
	}
	edges := []Edge{
		{ActionStartAdviserReview, models.StatusSubmitted, models.StatusAdviserReview},
		{ActionAdviserApprove, models.StatusSubmitted, adviserApproveTo},
		{ActionAdviserApprove, models.StatusAdviserReview, adviserApproveTo},
		{ActionAdviserReject, models.StatusSubmitted, models.StatusRejected},
		{ActionAdviserReject, models.StatusAdviserReview, models.StatusRejected},
		{ActionForwardToCoordinator, models.StatusAdviserApproved, models.StatusCoordinatorReview},
		{ActionCoordinatorApprove, models.StatusCoordinatorReview, models.StatusCoordinatorApproved},
		{ActionCoordinatorReject, models.StatusCoordinatorReview, models.StatusRejected},
		{ActionRetrieve, models.StatusRejected, models.StatusPending},
		{ActionResubmit, models.StatusPending, models.StatusSubmitted},
		{ActionAssignPanels, models.StatusCoordinatorApproved, models.StatusPanelsAssigned},
		{ActionSchedule, models.StatusPanelsAssigned, models.StatusScheduled},
		{ActionSchedule, models.StatusScheduled, models.StatusScheduled},
		{ActionMarkCompleted, models.StatusScheduled, models.StatusCompleted},
	}
	if r.AllowRetrieveFromCoordinatorReview {
		edges = append(edges, Edge{ActionRetrieve, models.StatusCoordinatorReview, models.StatusPending})
	}
	return edges
}

// Next returns the state reached by applying a in state from.
func (r Rules) Next(from models.RequestStatus, a Action) (models.RequestStatus, bool) {
	for _, e := range r.Edges() {
		if e.Action == a && e.From == from {
			return e.To, true
		}
	}
	return "", false
}

// Sources lists the states from which a is legal.
func (r Rules) Sources(a Action) []models.RequestStatus {
	var from []models.RequestStatus
	for _, e := range r.Edges() {
		if e.Action == a {
			from = append(from, e.From)
		}
	}
	return from
}

// IsTerminal reports whether no action leaves s.
func (r Rules) IsTerminal(s models.RequestStatus) bool {
	for _, e := range r.Edges() {
		if e.From == s {
			return false
		}
	}
	return true
}

var verificationEdges = map[models.VerificationStatus][]models.VerificationStatus{
	models.VerificationPending:  {models.VerificationVerified, models.VerificationRejected},
	models.VerificationVerified: {models.VerificationReadyForFinance, models.VerificationRejected, models.VerificationPending},
	models.VerificationRejected: {models.VerificationPending},
}

// CanVerify reports whether a payment verification may move from one status to another.
func CanVerify(from, to models.VerificationStatus) bool {
	for _, t := range verificationEdges[from] {
		if t == to {
			return true
		}
	}
	return false
}
