package services

import (
	"errors"
	"testing"

	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/app/repositories"
	"github.com/yigit/thesisflow/internal/app/workflow"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
)

func (f *fixture) completed(t *testing.T, title string) *models.DefenseRequest {
	t.Helper()
	req := f.withPanel(t, title, "Dr. Jose Rizal", "Dr. Andres Bonifacio", "Dr. Emilio Aguinaldo", "Dr. Antonio Luna")
	if _, err := f.requests.Schedule(f.ctx, req.ID, "coord", slot(defenseDay, "09:00", "10:00", "Room "+title)); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	out, err := f.requests.MarkCompleted(f.ctx, req.ID, "coord")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	return out
}

func (f *fixture) verified(t *testing.T, requestID int64) *models.PaymentVerification {
	t.Helper()
	v, err := f.verifications.RecordPayment(f.ctx, RecordPaymentInput{
		DefenseRequestID: requestID, Amount: 4500, ReferenceNumber: "OR-2025-00417",
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if v, err = f.verifications.Decide(f.ctx, v.ID, "assistant", models.VerificationVerified, ""); err != nil {
		t.Fatalf("verify: %v", err)
	}
	return v
}

func TestRecordPaymentPreconditions(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	early := f.submit(t, "Early", "Dr. Jose Rizal")
	if _, err := f.verifications.RecordPayment(f.ctx, RecordPaymentInput{DefenseRequestID: early.ID, Amount: 100, ReferenceNumber: "OR-1"}); !errors.Is(err, apperrors.ErrIllegalTransition) {
		t.Fatalf("payment before panels: %v", err)
	}

	req := f.withPanel(t, "Graph Partitioning", "Dr. Jose Rizal", "Dr. Andres Bonifacio", "Dr. Emilio Aguinaldo")
	for _, in := range []RecordPaymentInput{
		{DefenseRequestID: req.ID, Amount: 0, ReferenceNumber: "OR-1"},
		{DefenseRequestID: req.ID, Amount: 100, ReferenceNumber: " "},
	} {
		if _, err := f.verifications.RecordPayment(f.ctx, in); !errors.Is(err, apperrors.ErrValidation) {
			t.Fatalf("%+v: error = %v, want validation", in, err)
		}
	}

	first, err := f.verifications.RecordPayment(f.ctx, RecordPaymentInput{DefenseRequestID: req.ID, Amount: 100, ReferenceNumber: "OR-1"})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if first.Status != models.VerificationPending {
		t.Fatalf("status = %s", first.Status)
	}
	if _, err := f.verifications.RecordPayment(f.ctx, RecordPaymentInput{DefenseRequestID: req.ID, Amount: 100, ReferenceNumber: "OR-2"}); !errors.Is(err, apperrors.ErrAlreadyExists) {
		t.Fatalf("second payment while pending: %v", err)
	}

	if _, err := f.verifications.Decide(f.ctx, first.ID, "assistant", models.VerificationRejected, "Blurry receipt"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.verifications.RecordPayment(f.ctx, RecordPaymentInput{DefenseRequestID: req.ID, Amount: 100, ReferenceNumber: "OR-2"}); err != nil {
		t.Fatalf("payment after rejection: %v", err)
	}
}

func TestVerificationEdges(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	req := f.withPanel(t, "Graph Partitioning", "Dr. Jose Rizal", "Dr. Andres Bonifacio", "Dr. Emilio Aguinaldo")
	v, err := f.verifications.RecordPayment(f.ctx, RecordPaymentInput{DefenseRequestID: req.ID, Amount: 100, ReferenceNumber: "OR-1"})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	if _, err := f.verifications.Decide(f.ctx, v.ID, "assistant", models.VerificationReadyForFinance, ""); !errors.Is(err, apperrors.ErrIllegalTransition) {
		t.Fatalf("pending -> ready: %v", err)
	}
	if _, err := f.verifications.Decide(f.ctx, v.ID, "assistant", models.VerificationRejected, ""); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("reject without note: %v", err)
	}
	got, err := f.verifications.Decide(f.ctx, v.ID, "assistant", models.VerificationVerified, "")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.DecidedBy != "assistant" || got.DecidedAt == nil {
		t.Fatalf("decision not stamped: %+v", got)
	}
	// Back to pending as a correction.
	if got, err = f.verifications.Decide(f.ctx, v.ID, "assistant", models.VerificationPending, "Wrong amount"); err != nil || got.Status != models.VerificationPending {
		t.Fatalf("correction = %v, %v", got, err)
	}
}

func TestReadyForFinanceNeedsCompletedDefenseAndSyncs(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	req := f.withPanel(t, "Graph Partitioning", "Dr. Jose Rizal", "Dr. Andres Bonifacio", "Dr. Emilio Aguinaldo")
	v := f.verified(t, req.ID)

	if _, err := f.verifications.Decide(f.ctx, v.ID, "assistant", models.VerificationReadyForFinance, ""); !errors.Is(err, apperrors.ErrIllegalTransition) {
		t.Fatalf("ready before completion: %v", err)
	}

	if _, err := f.requests.Schedule(f.ctx, req.ID, "coord", slot(defenseDay, "09:00", "10:00", "Room 301")); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if _, err := f.requests.MarkCompleted(f.ctx, req.ID, "coord"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, err := f.verifications.Decide(f.ctx, v.ID, "assistant", models.VerificationReadyForFinance, "")
	if err != nil {
		t.Fatalf("ready: %v", err)
	}
	if got.Status != models.VerificationReadyForFinance {
		t.Fatalf("status = %s", got.Status)
	}

	record, err := f.sync.GetStudentRecord(f.ctx, req.ID)
	if err != nil {
		t.Fatalf("sync did not follow ready-for-finance: %v", err)
	}
	if record.Payment == nil || record.Payment.ReferenceNumber != "OR-2025-00417" {
		t.Fatalf("payment record = %+v", record.Payment)
	}

	// ready-for-finance is final.
	if _, err := f.verifications.Decide(f.ctx, v.ID, "assistant", models.VerificationPending, "oops"); !errors.Is(err, apperrors.ErrIllegalTransition) {
		t.Fatalf("ready -> pending: %v", err)
	}
}

func TestFailedAutoSyncIsPickedUpByResync(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	req := f.completed(t, "A")
	v := f.verified(t, req.ID)

	f.store.FailNext("CreatePaymentRecord", errors.New("connection reset"))
	if _, err := f.verifications.Decide(f.ctx, v.ID, "assistant", models.VerificationReadyForFinance, ""); err != nil {
		t.Fatalf("decision should not fail with the sync: %v", err)
	}
	if _, err := f.sync.GetStudentRecord(f.ctx, req.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("failed sync left a student record: %v", err)
	}

	result, err := f.sync.Resync(f.ctx, 10)
	if err != nil {
		t.Fatalf("Resync: %v", err)
	}
	if !equalKinds(result.Changed, []int64{req.ID}) || len(result.Failed) != 0 {
		t.Fatalf("resync = %+v", result)
	}
	again, err := f.sync.Resync(f.ctx, 10)
	if err != nil || len(again.Changed) != 0 {
		t.Fatalf("second resync = %+v, %v", again, err)
	}
}

func TestBulkVerificationDecisionPartialSuccess(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	a := f.withPanel(t, "A", "Adviser A", "Dr. Andres Bonifacio", "Dr. Emilio Aguinaldo")
	b := f.withPanel(t, "B", "Adviser B", "Dr. Andres Bonifacio", "Dr. Emilio Aguinaldo")
	va, err := f.verifications.RecordPayment(f.ctx, RecordPaymentInput{DefenseRequestID: a.ID, Amount: 100, ReferenceNumber: "OR-A"})
	if err != nil {
		t.Fatalf("record A: %v", err)
	}
	vb := f.verified(t, b.ID)

	result, err := f.verifications.BulkDecide(f.ctx, []int64{va.ID, vb.ID, 999}, "assistant", models.VerificationVerified, "")
	if err != nil {
		t.Fatalf("BulkDecide: %v", err)
	}
	if !equalKinds(result.Changed, []int64{va.ID}) {
		t.Fatalf("changed = %v", result.Changed)
	}
	if len(result.Failed) != 2 || result.Failed[0].ID != vb.ID || result.Failed[0].Code != apperrors.CodeIllegalTransition ||
		result.Failed[1].Code != apperrors.CodeNotFound {
		t.Fatalf("failed = %+v", result.Failed)
	}

	list, total, err := f.verifications.List(f.ctx, repositories.VerificationFilter{Status: models.VerificationVerified})
	if err != nil || total != 2 || len(list) != 2 {
		t.Fatalf("verified list = %d %v %v", total, list, err)
	}
}

func TestAttachProof(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	req := f.withPanel(t, "A", "Adviser A", "Dr. Andres Bonifacio", "Dr. Emilio Aguinaldo")
	v, err := f.verifications.RecordPayment(f.ctx, RecordPaymentInput{DefenseRequestID: req.ID, Amount: 100, ReferenceNumber: "OR-A"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	got, err := f.verifications.AttachProof(f.ctx, v.ID, "proofs/receipt.pdf")
	if err != nil || got.ProofRef != "proofs/receipt.pdf" {
		t.Fatalf("AttachProof = %+v, %v", got, err)
	}
	if _, err := f.verifications.AttachProof(f.ctx, 999, "x"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("missing verification: %v", err)
	}
}
