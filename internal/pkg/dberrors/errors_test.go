package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassifiesPgErrors(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "student_records_defense_request_id_key"})
	serial := fmt.Errorf("commit: %w", &pgconn.PgError{Code: CodeSerializationFailure})
	deadlock := &pgconn.PgError{Code: CodeDeadlockDetected}
	plain := errors.New("boom")

	if !IsUniqueViolation(unique) || IsUniqueViolation(serial) || IsUniqueViolation(plain) {
		t.Fatalf("IsUniqueViolation misclassified")
	}
	if !IsDuplicateConstraintError(unique, "student_records_defense_request_id_key") {
		t.Fatalf("expected constraint match")
	}
	if IsDuplicateConstraintError(unique, "other") {
		t.Fatalf("unexpected constraint match")
	}
	if !IsRetryable(serial) || !IsRetryable(deadlock) {
		t.Fatalf("serialization and deadlock errors should be retryable")
	}
	if IsRetryable(unique) || IsRetryable(plain) || IsRetryable(nil) {
		t.Fatalf("only 40001/40P01 are retryable")
	}
}
