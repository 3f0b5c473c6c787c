package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/app/repositories"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
	"github.com/yigit/thesisflow/internal/pkg/notify"
)

// Sync steps reported in SyncFailure errors.
const (
	stepGuard         = "guard"
	stepProgram       = "program"
	stepStudentRecord = "student-record"
	stepPayment       = "payment"
)

// RateTable prices a committee seat for a defense type
type RateTable interface {
	Lookup(role models.CommitteeRole, defenseType models.DefenseType) (float64, bool)
}

// SyncService copies a completed, paid defense into the finance records
type SyncService interface {
	// Sync is idempotent: a request that already has a student record is
	// reported with AlreadySynced and nothing is written.
	Sync(ctx context.Context, requestID int64) (*models.SyncResult, error)
	GetStudentRecord(ctx context.Context, requestID int64) (*models.SyncResult, error)
	// Resync syncs up to limit ready-for-finance requests that have no
	// student record yet.
	Resync(ctx context.Context, limit int) (*models.BulkResult, error)
}

// syncServiceImpl implements SyncService
type syncServiceImpl struct {
	store     repositories.Store
	rates     RateTable
	publisher notify.Publisher
	opts      WorkflowOptions
	logger    zerolog.Logger
}

// NewSyncService creates a new SyncService
func NewSyncService(store repositories.Store, rates RateTable, publisher notify.Publisher, opts WorkflowOptions, logger zerolog.Logger) SyncService {
	return &syncServiceImpl{
		store:     store,
		rates:     rates,
		publisher: publisherOrDiscard(publisher),
		opts:      opts.withDefaults(),
		logger:    logger,
	}
}

func (s *syncServiceImpl) Sync(ctx context.Context, requestID int64) (*models.SyncResult, error) {
	var (
		result  *models.SyncResult
		pending afterCommit
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		result, pending = nil, afterCommit{}
		if err := tx.Lock(ctx, fmt.Sprintf("sync:%d", requestID)); err != nil {
			return apperrors.NewSyncFailure(requestID, stepGuard, err)
		}
		req, err := tx.DefenseRequests().GetByID(ctx, requestID)
		if err != nil {
			return err
		}

		existing, err := tx.Finance().FindStudentRecordByRequest(ctx, requestID)
		switch {
		case err == nil:
			result, err = loadSyncResult(ctx, tx, existing)
			if err != nil {
				return apperrors.NewSyncFailure(requestID, stepGuard, err)
			}
			result.AlreadySynced = true
			return nil
		case !errors.Is(err, apperrors.ErrNotFound):
			return apperrors.NewSyncFailure(requestID, stepGuard, err)
		}

		verification, err := readyVerification(ctx, tx, requestID)
		if err != nil {
			return err
		}

		result, err = s.fanOut(ctx, tx, req, verification)
		if err != nil {
			return err
		}
		pending.add(notify.NewEvent(notify.EventSyncCompleted, requestID, "", s.opts.Now().UTC(), map[string]interface{}{
			"studentRecordId": result.StudentRecord.ID,
			"programRecordId": result.Program.ID,
			"assignments":     len(result.Assignments),
			"amount":          result.Payment.Amount,
		}))
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("requestID", requestID).Msg("Student record sync failed")
		return nil, err
	}

	if result.AlreadySynced {
		s.logger.Info().Int64("requestID", requestID).Msg("Student record already synced")
	} else {
		s.logger.Info().
			Int64("requestID", requestID).
			Int64("studentRecordID", result.StudentRecord.ID).
			Int("assignments", len(result.Assignments)).
			Msg("Student record synced")
	}
	pending.flush(ctx, s.publisher)
	return result, nil
}

func readyVerification(ctx context.Context, tx repositories.Store, requestID int64) (*models.PaymentVerification, error) {
	list, err := tx.Verifications().ListByRequest(ctx, requestID)
	if err != nil {
		return nil, apperrors.NewSyncFailure(requestID, stepGuard, err)
	}
	for _, v := range list {
		if v.Status == models.VerificationReadyForFinance {
			return v, nil
		}
	}
	return nil, apperrors.NewCustomError(apperrors.ErrIllegalTransition,
		fmt.Sprintf("defense request %d has no ready-for-finance payment verification", requestID))
}

// fanOut writes program, student, panelist, assignment and payment rows.
// Every step looks for an existing row first so a retried sync never
// duplicates shared rows.
func (s *syncServiceImpl) fanOut(ctx context.Context, tx repositories.Store, req *models.DefenseRequest, v *models.PaymentVerification) (*models.SyncResult, error) {
	fin := tx.Finance()
	result := &models.SyncResult{DefenseRequestID: req.ID}

	program, err := s.programRecord(ctx, fin, req)
	if err != nil {
		return nil, apperrors.NewSyncFailure(req.ID, stepProgram, err)
	}
	result.Program = program

	student := &models.StudentRecord{
		DefenseRequestID: req.ID,
		ProgramRecordID:  program.ID,
		StudentID:        req.StudentID,
		StudentName:      req.StudentName,
		ThesisTitle:      req.ThesisTitle,
		DefenseType:      req.DefenseType,
	}
	if req.Schedule != nil {
		d := req.Schedule.Date
		student.DefenseDate = &d
	}
	if err := fin.CreateStudentRecord(ctx, student); err != nil {
		return nil, apperrors.NewSyncFailure(req.ID, stepStudentRecord, err)
	}
	result.StudentRecord = student

	for _, seat := range req.Committee.Seats() {
		a, err := s.assignSeat(ctx, fin, program, student, seat)
		if err != nil {
			return nil, apperrors.NewSyncFailure(req.ID, seatStep(seat), err)
		}
		result.Assignments = append(result.Assignments, *a)
	}

	payment, err := fin.FindPaymentRecord(ctx, student.ID)
	if errors.Is(err, apperrors.ErrNotFound) {
		payment = &models.PaymentRecord{
			StudentRecordID:  student.ID,
			DefenseRequestID: req.ID,
			VerificationID:   v.ID,
			Amount:           v.Amount,
			ReferenceNumber:  v.ReferenceNumber,
		}
		err = fin.CreatePaymentRecord(ctx, payment)
	}
	if err != nil {
		return nil, apperrors.NewSyncFailure(req.ID, stepPayment, err)
	}
	result.Payment = payment
	return result, nil
}

func (s *syncServiceImpl) programRecord(ctx context.Context, fin repositories.FinanceRepository, req *models.DefenseRequest) (*models.ProgramRecord, error) {
	key := models.NormalizeName(req.Program)
	category := req.DefenseType.Category()
	p, err := fin.FindProgramRecord(ctx, key, category)
	if err == nil || !errors.Is(err, apperrors.ErrNotFound) {
		return p, err
	}
	p = &models.ProgramRecord{Name: req.Program, Category: category, NameKey: key}
	if err := fin.CreateProgramRecord(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *syncServiceImpl) assignSeat(ctx context.Context, fin repositories.FinanceRepository, program *models.ProgramRecord, student *models.StudentRecord, seat models.Seat) (*models.PanelistAssignment, error) {
	key := models.NormalizeName(seat.Member.Name)
	panelist, err := fin.FindPanelistRecord(ctx, program.ID, seat.Member.FacultyID, key)
	if errors.Is(err, apperrors.ErrNotFound) {
		panelist = &models.PanelistRecord{
			ProgramRecordID: program.ID,
			FacultyID:       seat.Member.FacultyID,
			Name:            seat.Member.Name,
			NameKey:         key,
		}
		err = fin.CreatePanelistRecord(ctx, panelist)
	}
	if err != nil {
		return nil, err
	}

	a, err := fin.FindAssignment(ctx, panelist.ID, student.ID, seat.Role, seat.Slot)
	if err == nil || !errors.Is(err, apperrors.ErrNotFound) {
		return a, err
	}
	a = &models.PanelistAssignment{
		PanelistRecordID: panelist.ID,
		StudentRecordID:  student.ID,
		Role:             seat.Role,
		Slot:             seat.Slot,
		DefenseType:      student.DefenseType,
	}
	if amount, ok := s.rates.Lookup(seat.Role, student.DefenseType); ok {
		a.Receivable = &amount
	}
	if err := fin.CreateAssignment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func seatStep(seat models.Seat) string {
	if seat.Role == models.RolePanelistSeat {
		return fmt.Sprintf("panelist:%s%d", seat.Role, seat.Slot)
	}
	return "panelist:" + string(seat.Role)
}

func loadSyncResult(ctx context.Context, store repositories.Store, student *models.StudentRecord) (*models.SyncResult, error) {
	fin := store.Finance()
	result := &models.SyncResult{DefenseRequestID: student.DefenseRequestID, StudentRecord: student}

	program, err := fin.GetProgramRecord(ctx, student.ProgramRecordID)
	if err != nil {
		return nil, err
	}
	result.Program = program

	if result.Assignments, err = fin.ListAssignments(ctx, student.ID); err != nil {
		return nil, err
	}
	payment, err := fin.FindPaymentRecord(ctx, student.ID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	result.Payment = payment
	return result, nil
}

func (s *syncServiceImpl) GetStudentRecord(ctx context.Context, requestID int64) (*models.SyncResult, error) {
	student, err := s.store.Finance().FindStudentRecordByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return loadSyncResult(ctx, s.store, student)
}

func (s *syncServiceImpl) Resync(ctx context.Context, limit int) (*models.BulkResult, error) {
	ready, err := s.store.Verifications().ListReadyUnsynced(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing unsynced verifications: %w", err)
	}

	result := &models.BulkResult{Changed: []int64{}, Failed: []models.BulkItemError{}}
	for _, v := range ready {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		res, err := s.Sync(ctx, v.DefenseRequestID)
		if err != nil {
			result.Failed = append(result.Failed, models.BulkItemError{ID: v.DefenseRequestID, Code: apperrors.Code(err), Error: err.Error()})
			continue
		}
		if !res.AlreadySynced {
			result.Changed = append(result.Changed, v.DefenseRequestID)
		}
	}
	s.logger.Info().Int("checked", len(ready)).Int("synced", len(result.Changed)).Int("failed", len(result.Failed)).Msg("Resync finished")
	return result, nil
}
