package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/app/repositories"
	"github.com/yigit/thesisflow/internal/app/workflow"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
)

const verificationEntity = "payment verification"

// RecordPaymentInput is a payment submitted for administrative verification
type RecordPaymentInput struct {
	DefenseRequestID int64
	Amount           float64
	ReferenceNumber  string
	ProofRef         string
}

// RecordSyncer runs the student record sync for a request
type RecordSyncer interface {
	Sync(ctx context.Context, requestID int64) (*models.SyncResult, error)
}

// VerificationService manages payment verifications
type VerificationService interface {
	RecordPayment(ctx context.Context, in RecordPaymentInput) (*models.PaymentVerification, error)
	Get(ctx context.Context, id int64) (*models.PaymentVerification, error)
	List(ctx context.Context, filter repositories.VerificationFilter) ([]*models.PaymentVerification, int64, error)
	ListByRequest(ctx context.Context, requestID int64) ([]*models.PaymentVerification, error)
	Decide(ctx context.Context, id int64, actor string, to models.VerificationStatus, note string) (*models.PaymentVerification, error)
	// BulkDecide moves every id to the same status independently.
	BulkDecide(ctx context.Context, ids []int64, actor string, to models.VerificationStatus, note string) (*models.BulkResult, error)
	AttachProof(ctx context.Context, id int64, ref string) (*models.PaymentVerification, error)
}

// verificationServiceImpl implements VerificationService
type verificationServiceImpl struct {
	store  repositories.Store
	opts   WorkflowOptions
	logger zerolog.Logger
	// syncer runs after a verification becomes ready for finance; nil disables it.
	syncer RecordSyncer
}

// NewVerificationService creates a new VerificationService. A nil syncer turns
// off the sync that otherwise follows every ready-for-finance decision.
func NewVerificationService(store repositories.Store, syncer RecordSyncer, opts WorkflowOptions, logger zerolog.Logger) VerificationService {
	return &verificationServiceImpl{
		store:  store,
		opts:   opts.withDefaults(),
		logger: logger,
		syncer: syncer,
	}
}

func (s *verificationServiceImpl) RecordPayment(ctx context.Context, in RecordPaymentInput) (*models.PaymentVerification, error) {
	if in.Amount <= 0 {
		return nil, apperrors.NewValidationError("amount", "must be greater than zero")
	}
	ref := strings.TrimSpace(in.ReferenceNumber)
	if ref == "" {
		return nil, apperrors.NewValidationError("referenceNumber", "must not be empty")
	}

	var v *models.PaymentVerification
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		v = &models.PaymentVerification{
			DefenseRequestID: in.DefenseRequestID,
			Amount:           in.Amount,
			ReferenceNumber:  ref,
			ProofRef:         strings.TrimSpace(in.ProofRef),
			Status:           models.VerificationPending,
		}
		if err := tx.Lock(ctx, fmt.Sprintf("verification:%d", in.DefenseRequestID)); err != nil {
			return fmt.Errorf("error locking defense request: %w", err)
		}
		req, err := tx.DefenseRequests().GetByID(ctx, in.DefenseRequestID)
		if err != nil {
			return err
		}
		switch req.Status {
		case models.StatusPanelsAssigned, models.StatusScheduled, models.StatusCompleted:
		default:
			return apperrors.NewIllegalTransition(requestEntity, req.ID, "record payment", string(req.Status))
		}

		existing, err := tx.Verifications().ListByRequest(ctx, req.ID)
		if err != nil {
			return fmt.Errorf("error loading verifications: %w", err)
		}
		for _, e := range existing {
			if e.Status != models.VerificationRejected {
				return apperrors.NewCustomError(apperrors.ErrAlreadyExists,
					fmt.Sprintf("defense request %d already has a %s payment verification (%d)", req.ID, e.Status, e.ID))
			}
		}
		return tx.Verifications().Create(ctx, v)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("verificationID", v.ID).Int64("requestID", v.DefenseRequestID).Msg("Payment recorded for verification")
	return v, nil
}

func (s *verificationServiceImpl) Get(ctx context.Context, id int64) (*models.PaymentVerification, error) {
	return s.store.Verifications().GetByID(ctx, id)
}

func (s *verificationServiceImpl) List(ctx context.Context, filter repositories.VerificationFilter) ([]*models.PaymentVerification, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperrors.NewValidationError("status", "unknown status %q", filter.Status)
	}
	return s.store.Verifications().List(ctx, filter)
}

func (s *verificationServiceImpl) ListByRequest(ctx context.Context, requestID int64) ([]*models.PaymentVerification, error) {
	if _, err := s.store.DefenseRequests().GetByID(ctx, requestID); err != nil {
		return nil, err
	}
	return s.store.Verifications().ListByRequest(ctx, requestID)
}

func (s *verificationServiceImpl) Decide(ctx context.Context, id int64, actor string, to models.VerificationStatus, note string) (*models.PaymentVerification, error) {
	if !to.Valid() {
		return nil, apperrors.NewValidationError("status", "unknown status %q", to)
	}
	note = strings.TrimSpace(note)
	if to == models.VerificationRejected && note == "" {
		return nil, apperrors.NewValidationError("note", "a rejection needs a note")
	}

	var out *models.PaymentVerification
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		out = nil
		v, err := tx.Verifications().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !workflow.CanVerify(v.Status, to) {
			return apperrors.NewIllegalTransition(verificationEntity, id, "mark "+string(to), string(v.Status))
		}
		if to == models.VerificationReadyForFinance {
			if err := s.checkReadyForFinance(ctx, tx, v); err != nil {
				return err
			}
		}

		from := v.Status
		now := s.opts.Now().UTC()
		v.Status = to
		v.Note = note
		v.DecidedBy = actor
		v.DecidedAt = &now
		if err := tx.Verifications().UpdateStatus(ctx, v, from); err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("verificationID", id).Str("status", string(to)).Str("actor", actor).Msg("Payment verification decided")
	if to == models.VerificationReadyForFinance && s.syncer != nil {
		if _, err := s.syncer.Sync(ctx, out.DefenseRequestID); err != nil {
			// The periodic resync picks the request up again.
			s.logger.Error().Err(err).Int64("requestID", out.DefenseRequestID).Msg("Sync after ready-for-finance failed")
		}
	}
	return out, nil
}

// checkReadyForFinance requires a completed defense and no other
// ready-for-finance verification for the same request.
func (s *verificationServiceImpl) checkReadyForFinance(ctx context.Context, tx repositories.Store, v *models.PaymentVerification) error {
	req, err := tx.DefenseRequests().GetByID(ctx, v.DefenseRequestID)
	if err != nil {
		return err
	}
	if req.Status != models.StatusCompleted {
		return apperrors.NewCustomError(apperrors.ErrIllegalTransition,
			fmt.Sprintf("defense request %d is %s; payment can only be ready for finance after the defense is completed", req.ID, req.Status))
	}
	others, err := tx.Verifications().ListByRequest(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("error loading verifications: %w", err)
	}
	for _, o := range others {
		if o.ID != v.ID && o.Status == models.VerificationReadyForFinance {
			return apperrors.NewCustomError(apperrors.ErrAlreadyExists,
				fmt.Sprintf("defense request %d already has a ready-for-finance verification", req.ID))
		}
	}
	return nil
}

func (s *verificationServiceImpl) BulkDecide(ctx context.Context, ids []int64, actor string, to models.VerificationStatus, note string) (*models.BulkResult, error) {
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("ids", "at least one id is required")
	}
	if !to.Valid() {
		return nil, apperrors.NewValidationError("status", "unknown status %q", to)
	}

	result := &models.BulkResult{Changed: []int64{}, Failed: []models.BulkItemError{}}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.Decide(ctx, id, actor, to, note); err != nil {
			s.logger.Warn().Err(err).Int64("verificationID", id).Msg("Bulk verification decision skipped item")
			result.Failed = append(result.Failed, models.BulkItemError{ID: id, Code: apperrors.Code(err), Error: err.Error()})
			continue
		}
		result.Changed = append(result.Changed, id)
	}
	return result, nil
}

func (s *verificationServiceImpl) AttachProof(ctx context.Context, id int64, ref string) (*models.PaymentVerification, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, apperrors.NewValidationError("proof", "must not be empty")
	}
	if err := s.store.Verifications().SetProof(ctx, id, ref); err != nil {
		return nil, err
	}
	return s.store.Verifications().GetByID(ctx, id)
}
