// Package memory is an in-process implementation of repositories.Store. A
// transaction works on a deep copy of the state and swaps it in on commit, so
// a failed transaction leaves nothing behind. It backs the service tests and
// the "memory" database driver.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/app/repositories"
)

type state struct {
	requests      map[int64]*models.DefenseRequest
	verifications map[int64]*models.PaymentVerification
	programs      map[int64]*models.ProgramRecord
	students      map[int64]*models.StudentRecord
	panelists     map[int64]*models.PanelistRecord
	assignments   map[int64]*models.PanelistAssignment
	payments      map[int64]*models.PaymentRecord
	faculty       map[int64]*models.Faculty
	lastID        int64
}

func newState() *state {
	return &state{
		requests:      map[int64]*models.DefenseRequest{},
		verifications: map[int64]*models.PaymentVerification{},
		programs:      map[int64]*models.ProgramRecord{},
		students:      map[int64]*models.StudentRecord{},
		panelists:     map[int64]*models.PanelistRecord{},
		assignments:   map[int64]*models.PanelistAssignment{},
		payments:      map[int64]*models.PaymentRecord{},
		faculty:       map[int64]*models.Faculty{},
	}
}

func (s *state) clone() *state {
	c := newState()
	c.lastID = s.lastID
	for k, v := range s.requests {
		c.requests[k] = v.Clone()
	}
	for k, v := range s.verifications {
		cp := *v
		cp.DecidedAt = cloneTime(v.DecidedAt)
		c.verifications[k] = &cp
	}
	for k, v := range s.programs {
		cp := *v
		c.programs[k] = &cp
	}
	for k, v := range s.students {
		cp := *v
		cp.DefenseDate = cloneTime(v.DefenseDate)
		c.students[k] = &cp
	}
	for k, v := range s.panelists {
		cp := *v
		c.panelists[k] = &cp
	}
	for k, v := range s.assignments {
		cp := *v
		if v.Receivable != nil {
			r := *v.Receivable
			cp.Receivable = &r
		}
		c.assignments[k] = &cp
	}
	for k, v := range s.payments {
		cp := *v
		c.payments[k] = &cp
	}
	for k, v := range s.faculty {
		cp := *v
		c.faculty[k] = &cp
	}
	return c
}

func (s *state) nextID() int64 {
	s.lastID++
	return s.lastID
}

// Store implements repositories.Store in memory.
type Store struct {
	root *root
	// tx is the working copy of an open transaction, nil outside one.
	tx *state
}

type root struct {
	mu     sync.Mutex
	state  *state
	now    func() time.Time
	faults map[string]error
	// replays is the number of upcoming transactions whose first run is
	// thrown away, as Postgres does on a serialization failure at commit.
	replays int
}

var _ repositories.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{root: &root{state: newState(), now: time.Now, faults: map[string]error{}}}
}

// SetClock overrides the clock used for created/updated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	s.root.now = now
}

// FailNext makes the next call of op (for example "CreatePaymentRecord")
// return err. It lets tests exercise rollback paths.
func (s *Store) FailNext(op string, err error) {
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	s.root.faults[op] = err
}

// ReplayNext makes the next transaction run its function twice, discarding
// the first run as if its commit had failed with a serialization error.
func (s *Store) ReplayNext() {
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	s.root.replays++
}

// view runs fn against the current state while holding the store lock,
// or directly against the working copy inside a transaction.
func (s *Store) view(fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	return fn(s.root.state)
}

func (s *Store) fault(op string) error {
	if err, ok := s.root.faults[op]; ok {
		delete(s.root.faults, op)
		return err
	}
	return nil
}

func (s *Store) now() time.Time { return s.root.now() }

func (s *Store) DefenseRequests() repositories.DefenseRequestRepository { return requestRepo{s} }
func (s *Store) Verifications() repositories.VerificationRepository     { return verificationRepo{s} }
func (s *Store) Finance() repositories.FinanceRepository                { return financeRepo{s} }
func (s *Store) Faculty() repositories.FacultyDirectory                 { return facultyRepo{s} }

// WithinTx runs fn against a copy of the state and commits it when fn succeeds.
// Transactions are serialized by the store lock.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	if s.tx != nil {
		return fn(ctx, s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.root.mu.Lock()
	defer s.root.mu.Unlock()

	if s.root.replays > 0 {
		s.root.replays--
		discarded := &Store{root: s.root, tx: s.root.state.clone()}
		if err := fn(ctx, discarded); err != nil {
			return err
		}
	}

	tx := &Store{root: s.root, tx: s.root.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.root.state = tx.tx
	return nil
}

// ErrLockOutsideTx is returned by Lock when no transaction is open.
var ErrLockOutsideTx = errors.New("lock requires an open transaction")

// Lock is satisfied by the store lock every transaction already holds.
func (s *Store) Lock(_ context.Context, _ string) error {
	if s.tx == nil {
		return ErrLockOutsideTx
	}
	return nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func page[T any](items []T, offset uint64, limit int) []T {
	if limit <= 0 {
		return items
	}
	if offset >= uint64(len(items)) {
		return []T{}
	}
	end := offset + uint64(limit)
	if end > uint64(len(items)) {
		end = uint64(len(items))
	}
	return items[offset:end]
}
