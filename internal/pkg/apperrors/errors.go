package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every typed error in this package unwraps to exactly one of these,
// so callers can branch with errors.Is without knowing the concrete carrier.
var (
	ErrValidation         = errors.New("validation failed")
	ErrSchedulingConflict = errors.New("scheduling conflict")
	ErrIllegalTransition  = errors.New("illegal transition")
	ErrNotFound           = errors.New("resource not found")
	ErrSyncFailure        = errors.New("sync failure")
	ErrAlreadyExists      = errors.New("resource already exists")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrConcurrentUpdate   = errors.New("concurrent update")
)

// CustomError carries a kind plus a message and optional structured details.
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{Err: err, Message: message}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// ValidationError reports malformed or missing input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IllegalTransitionError reports an action attempted from a state that does not allow it.
type IllegalTransitionError struct {
	Entity string
	ID     int64
	Action string
	From   string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("%s %d: cannot %s from state %q", e.Entity, e.ID, e.Action, e.From)
}

func (e *IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }

// NewIllegalTransition creates an IllegalTransitionError.
func NewIllegalTransition(entity string, id int64, action, from string) error {
	return &IllegalTransitionError{Entity: entity, ID: id, Action: action, From: from}
}

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFound creates a NotFoundError for an integer id.
func NewNotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, Key: fmt.Sprintf("%d", id)}
}

// NewNotFoundKey creates a NotFoundError for an arbitrary key.
func NewNotFoundKey(entity, key string) error {
	return &NotFoundError{Entity: entity, Key: fmt.Sprintf("%q", key)}
}

// ConflictKind names what collided in a scheduling conflict.
type ConflictKind string

const (
	ConflictVenue     ConflictKind = "venue"
	ConflictCommittee ConflictKind = "committee"
)

// Collision describes one existing defense that overlaps the proposed slot.
type Collision struct {
	RequestID   int64          `json:"requestId"`
	ThesisTitle string         `json:"thesisTitle"`
	Date        string         `json:"date"`
	StartTime   string         `json:"startTime"`
	EndTime     string         `json:"endTime"`
	Kinds       []ConflictKind `json:"kinds"`
	Venue       string         `json:"venue,omitempty"`
	Members     []string       `json:"members,omitempty"`
}

// SchedulingConflictError is returned when a proposed slot collides with existing defenses.
type SchedulingConflictError struct {
	RequestID  int64
	Collisions []Collision
}

func (e *SchedulingConflictError) Error() string {
	parts := make([]string, 0, len(e.Collisions))
	for _, c := range e.Collisions {
		var what []string
		for _, k := range c.Kinds {
			switch k {
			case ConflictVenue:
				what = append(what, fmt.Sprintf("venue %q", c.Venue))
			case ConflictCommittee:
				what = append(what, fmt.Sprintf("committee member(s) %s", strings.Join(c.Members, ", ")))
			}
		}
		parts = append(parts, fmt.Sprintf("request %d (%q, %s %s-%s): %s",
			c.RequestID, c.ThesisTitle, c.Date, c.StartTime, c.EndTime, strings.Join(what, " and ")))
	}
	return fmt.Sprintf("schedule for request %d conflicts with %s", e.RequestID, strings.Join(parts, "; "))
}

func (e *SchedulingConflictError) Unwrap() error { return ErrSchedulingConflict }

// SyncFailureError reports the step at which a record sync failed.
type SyncFailureError struct {
	RequestID int64
	Step      string
	Err       error
}

func (e *SyncFailureError) Error() string {
	return fmt.Sprintf("sync of defense request %d failed at %s: %v", e.RequestID, e.Step, e.Err)
}

// Unwrap exposes both the sync kind and the underlying cause.
func (e *SyncFailureError) Unwrap() []error { return []error{ErrSyncFailure, e.Err} }

// NewSyncFailure wraps err as a failure of step for requestID.
func NewSyncFailure(requestID int64, step string, err error) error {
	return &SyncFailureError{RequestID: requestID, Step: step, Err: err}
}

// Machine-readable codes reported to API clients, one per error kind.
const (
	CodeValidation         = "VAL_001"
	CodeSchedulingConflict = "SCH_001"
	CodeIllegalTransition  = "WFL_001"
	CodeNotFound           = "RES_001"
	CodeAlreadyExists      = "RES_002"
	CodeConcurrentUpdate   = "RES_004"
	CodePermissionDenied   = "FORBIDDEN"
	CodeSyncFailure        = "SYN_001"
	CodeInternal           = "SRV_001"
)

// Code returns the code for the kind of err. Sync failures are checked first
// because they also unwrap to their cause.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSyncFailure):
		return CodeSyncFailure
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrSchedulingConflict):
		return CodeSchedulingConflict
	case errors.Is(err, ErrIllegalTransition):
		return CodeIllegalTransition
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAlreadyExists):
		return CodeAlreadyExists
	case errors.Is(err, ErrConcurrentUpdate):
		return CodeConcurrentUpdate
	case errors.Is(err, ErrPermissionDenied):
		return CodePermissionDenied
	}
	return CodeInternal
}
