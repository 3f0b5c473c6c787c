package repositories

import (
	"context"
	"time"

	"github.com/yigit/thesisflow/internal/app/models"
)

// RequestFilter narrows a defense request listing. Zero values match everything.
type RequestFilter struct {
	Status    models.RequestStatus
	StudentID string
	Offset    uint64
	Limit     int
}

// DefenseRequestRepository persists defense requests and their history.
type DefenseRequestRepository interface {
	// Create inserts r with its initial history and assigns r.ID.
	Create(ctx context.Context, r *models.DefenseRequest) error
	GetByID(ctx context.Context, id int64) (*models.DefenseRequest, error)
	List(ctx context.Context, f RequestFilter) ([]*models.DefenseRequest, int64, error)
	// ListScheduledOn returns requests in the scheduled state whose active
	// schedule falls on the calendar date of day.
	ListScheduledOn(ctx context.Context, day time.Time) ([]*models.DefenseRequest, error)
	// ListScheduledBefore returns scheduled requests dated on or before day.
	ListScheduledBefore(ctx context.Context, day time.Time) ([]*models.DefenseRequest, error)
	// Transition writes the mutable fields of r only if the stored status still
	// equals expected, then appends events. It returns apperrors.ErrConcurrentUpdate
	// when the status moved underneath the caller.
	Transition(ctx context.Context, r *models.DefenseRequest, expected models.RequestStatus, events ...models.HistoryEvent) error
}

// VerificationFilter narrows a payment verification listing.
type VerificationFilter struct {
	Status models.VerificationStatus
	Offset uint64
	Limit  int
}

// VerificationRepository persists payment verifications.
type VerificationRepository interface {
	Create(ctx context.Context, v *models.PaymentVerification) error
	GetByID(ctx context.Context, id int64) (*models.PaymentVerification, error)
	ListByRequest(ctx context.Context, requestID int64) ([]*models.PaymentVerification, error)
	List(ctx context.Context, f VerificationFilter) ([]*models.PaymentVerification, int64, error)
	// UpdateStatus is a compare-and-set on the stored status.
	UpdateStatus(ctx context.Context, v *models.PaymentVerification, expected models.VerificationStatus) error
	SetProof(ctx context.Context, id int64, ref string) error
	// ListReadyUnsynced returns ready-for-finance verifications whose request
	// has no student record yet.
	ListReadyUnsynced(ctx context.Context, limit int) ([]*models.PaymentVerification, error)
}

// FinanceRepository persists the records produced by a sync. Rows are only
// ever created.
type FinanceRepository interface {
	FindStudentRecordByRequest(ctx context.Context, requestID int64) (*models.StudentRecord, error)
	FindProgramRecord(ctx context.Context, nameKey, category string) (*models.ProgramRecord, error)
	CreateProgramRecord(ctx context.Context, p *models.ProgramRecord) error
	CreateStudentRecord(ctx context.Context, s *models.StudentRecord) error
	FindPanelistRecord(ctx context.Context, programRecordID, facultyID int64, nameKey string) (*models.PanelistRecord, error)
	CreatePanelistRecord(ctx context.Context, p *models.PanelistRecord) error
	FindAssignment(ctx context.Context, panelistRecordID, studentRecordID int64, role models.CommitteeRole, slot int) (*models.PanelistAssignment, error)
	CreateAssignment(ctx context.Context, a *models.PanelistAssignment) error
	ListAssignments(ctx context.Context, studentRecordID int64) ([]models.PanelistAssignment, error)
	FindPaymentRecord(ctx context.Context, studentRecordID int64) (*models.PaymentRecord, error)
	CreatePaymentRecord(ctx context.Context, p *models.PaymentRecord) error
	GetProgramRecord(ctx context.Context, id int64) (*models.ProgramRecord, error)
}

// FacultyDirectory is the panel directory consulted when committees are formed.
type FacultyDirectory interface {
	GetByID(ctx context.Context, id int64) (*models.Faculty, error)
	FindByNameKey(ctx context.Context, key string) (*models.Faculty, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Faculty, error)
	// Upsert inserts f or refreshes the entry with the same name key.
	Upsert(ctx context.Context, f *models.Faculty) error
}

// Store bundles the repositories behind one transactional boundary.
type Store interface {
	DefenseRequests() DefenseRequestRepository
	Verifications() VerificationRepository
	Finance() FinanceRepository
	Faculty() FacultyDirectory

	// WithinTx runs fn in a serializable transaction. The Store handed to fn is
	// bound to that transaction; nested calls reuse it. fn may be run again
	// after a serialization failure, so it must reset anything it captures.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	// Lock takes an exclusive claim on key that is released when the enclosing
	// transaction ends. Outside WithinTx it is an error.
	Lock(ctx context.Context, key string) error
}
