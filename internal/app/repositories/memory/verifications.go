package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/app/repositories"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
)

type verificationRepo struct{ s *Store }

func copyVerification(v *models.PaymentVerification) *models.PaymentVerification {
	cp := *v
	cp.DecidedAt = cloneTime(v.DecidedAt)
	return &cp
}

func (r verificationRepo) Create(_ context.Context, v *models.PaymentVerification) error {
	return r.s.view(func(st *state) error {
		if _, ok := st.requests[v.DefenseRequestID]; !ok {
			return apperrors.NewNotFound("defense request", v.DefenseRequestID)
		}
		now := r.s.now()
		v.ID = st.nextID()
		v.CreatedAt, v.UpdatedAt = now, now
		st.verifications[v.ID] = copyVerification(v)
		return nil
	})
}

func (r verificationRepo) GetByID(_ context.Context, id int64) (*models.PaymentVerification, error) {
	var out *models.PaymentVerification
	err := r.s.view(func(st *state) error {
		v, ok := st.verifications[id]
		if !ok {
			return apperrors.NewNotFound("payment verification", id)
		}
		out = copyVerification(v)
		return nil
	})
	return out, err
}

func (r verificationRepo) ListByRequest(_ context.Context, requestID int64) ([]*models.PaymentVerification, error) {
	return r.filter(func(v *models.PaymentVerification) bool { return v.DefenseRequestID == requestID })
}

func (r verificationRepo) List(_ context.Context, f repositories.VerificationFilter) ([]*models.PaymentVerification, int64, error) {
	list, err := r.filter(func(v *models.PaymentVerification) bool { return f.Status == "" || v.Status == f.Status })
	if err != nil {
		return nil, 0, err
	}
	return page(list, f.Offset, f.Limit), int64(len(list)), nil
}

func (r verificationRepo) ListReadyUnsynced(_ context.Context, limit int) ([]*models.PaymentVerification, error) {
	var list []*models.PaymentVerification
	err := r.s.view(func(st *state) error {
		synced := map[int64]bool{}
		for _, s := range st.students {
			synced[s.DefenseRequestID] = true
		}
		for _, v := range st.verifications {
			if v.Status == models.VerificationReadyForFinance && !synced[v.DefenseRequestID] {
				list = append(list, copyVerification(v))
			}
		}
		return nil
	})
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return page(list, 0, limit), err
}

func (r verificationRepo) filter(match func(*models.PaymentVerification) bool) ([]*models.PaymentVerification, error) {
	list := []*models.PaymentVerification{}
	err := r.s.view(func(st *state) error {
		for _, v := range st.verifications {
			if match(v) {
				list = append(list, copyVerification(v))
			}
		}
		return nil
	})
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, err
}

func (r verificationRepo) UpdateStatus(_ context.Context, v *models.PaymentVerification, expected models.VerificationStatus) error {
	return r.s.view(func(st *state) error {
		if err := r.s.fault("UpdateVerificationStatus"); err != nil {
			return err
		}
		stored, ok := st.verifications[v.ID]
		if !ok {
			return apperrors.NewNotFound("payment verification", v.ID)
		}
		if stored.Status != expected {
			return apperrors.NewCustomError(apperrors.ErrConcurrentUpdate,
				fmt.Sprintf("payment verification %d is no longer %s", v.ID, expected))
		}
		if v.Status == models.VerificationReadyForFinance {
			for _, other := range st.verifications {
				if other.ID != v.ID && other.DefenseRequestID == stored.DefenseRequestID && other.Status == models.VerificationReadyForFinance {
					return apperrors.NewCustomError(apperrors.ErrAlreadyExists,
						fmt.Sprintf("defense request %d already has a ready-for-finance verification", stored.DefenseRequestID))
				}
			}
		}
		stored.Status = v.Status
		stored.Note = v.Note
		stored.DecidedBy = v.DecidedBy
		stored.DecidedAt = cloneTime(v.DecidedAt)
		stored.UpdatedAt = r.s.now()
		v.UpdatedAt = stored.UpdatedAt
		return nil
	})
}

func (r verificationRepo) SetProof(_ context.Context, id int64, ref string) error {
	return r.s.view(func(st *state) error {
		stored, ok := st.verifications[id]
		if !ok {
			return apperrors.NewNotFound("payment verification", id)
		}
		stored.ProofRef = ref
		stored.UpdatedAt = r.s.now()
		return nil
	})
}
