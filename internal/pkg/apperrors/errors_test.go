package apperrors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTypedErrorsUnwrapToTheirKind(t *testing.T) {
	cases := []struct {
		err  error
		kind error
		code string
	}{
		{NewValidationError("reason", "must not be empty"), ErrValidation, CodeValidation},
		{NewIllegalTransition("defense request", 3, "schedule", "submitted"), ErrIllegalTransition, CodeIllegalTransition},
		{NewNotFound("defense request", 9), ErrNotFound, CodeNotFound},
		{&SchedulingConflictError{RequestID: 1}, ErrSchedulingConflict, CodeSchedulingConflict},
		{NewCustomError(ErrConcurrentUpdate, "moved"), ErrConcurrentUpdate, CodeConcurrentUpdate},
		{errors.New("boom"), nil, CodeInternal},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("outer: %w", tc.err)
		if tc.kind != nil && !errors.Is(wrapped, tc.kind) {
			t.Fatalf("%v does not unwrap to %v", tc.err, tc.kind)
		}
		if got := Code(wrapped); got != tc.code {
			t.Fatalf("Code(%v) = %s, want %s", tc.err, got, tc.code)
		}
	}
}

func TestSyncFailureKeepsCauseAndStep(t *testing.T) {
	cause := NewNotFound("program record", 2)
	err := NewSyncFailure(5, "program", cause)

	if !errors.Is(err, ErrSyncFailure) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("sync failure should match both its kind and its cause")
	}
	if Code(err) != CodeSyncFailure {
		t.Fatalf("Code = %s, want sync failure", Code(err))
	}
	var sf *SyncFailureError
	if !errors.As(err, &sf) || sf.Step != "program" || sf.RequestID != 5 {
		t.Fatalf("unexpected carrier %+v", sf)
	}
}

func TestSchedulingConflictMessageNamesTheCollision(t *testing.T) {
	err := &SchedulingConflictError{RequestID: 2, Collisions: []Collision{{
		RequestID: 1, ThesisTitle: "Graph Partitioning", Date: "2025-03-01", StartTime: "09:00", EndTime: "10:00",
		Kinds: []ConflictKind{ConflictVenue, ConflictCommittee}, Venue: "Room 301", Members: []string{"Dr. Cruz"},
	}}}
	msg := err.Error()
	for _, want := range []string{"request 1", "Graph Partitioning", "09:00-10:00", `venue "Room 301"`, "Dr. Cruz"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q lacks %q", msg, want)
		}
	}
}
