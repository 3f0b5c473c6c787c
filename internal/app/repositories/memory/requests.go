package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/app/repositories"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
)

type requestRepo struct{ s *Store }

func (r requestRepo) Create(_ context.Context, req *models.DefenseRequest) error {
	return r.s.view(func(st *state) error {
		if err := r.s.fault("CreateDefenseRequest"); err != nil {
			return err
		}
		now := r.s.now()
		req.ID = st.nextID()
		req.CreatedAt, req.UpdatedAt = now, now
		for i := range req.History {
			req.History[i].Seq = i + 1
		}
		st.requests[req.ID] = req.Clone()
		return nil
	})
}

func (r requestRepo) GetByID(_ context.Context, id int64) (*models.DefenseRequest, error) {
	var out *models.DefenseRequest
	err := r.s.view(func(st *state) error {
		req, ok := st.requests[id]
		if !ok {
			return apperrors.NewNotFound("defense request", id)
		}
		out = req.Clone()
		return nil
	})
	return out, err
}

func (r requestRepo) List(_ context.Context, f repositories.RequestFilter) ([]*models.DefenseRequest, int64, error) {
	var matched []*models.DefenseRequest
	err := r.s.view(func(st *state) error {
		for _, req := range st.requests {
			if f.Status != "" && req.Status != f.Status {
				continue
			}
			if f.StudentID != "" && req.StudentID != f.StudentID {
				continue
			}
			c := req.Clone()
			c.History = nil
			matched = append(matched, c)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return page(matched, f.Offset, f.Limit), int64(len(matched)), nil
}

func (r requestRepo) ListScheduledOn(_ context.Context, day time.Time) ([]*models.DefenseRequest, error) {
	date := day.Format(models.DateLayout)
	return r.scheduled(func(s *models.Schedule) bool { return s.DateString() == date })
}

func (r requestRepo) ListScheduledBefore(_ context.Context, day time.Time) ([]*models.DefenseRequest, error) {
	date := day.Format(models.DateLayout)
	return r.scheduled(func(s *models.Schedule) bool { return s.DateString() <= date })
}

func (r requestRepo) scheduled(match func(*models.Schedule) bool) ([]*models.DefenseRequest, error) {
	var out []*models.DefenseRequest
	err := r.s.view(func(st *state) error {
		for _, req := range st.requests {
			if req.Status == models.StatusScheduled && req.Schedule != nil && match(req.Schedule) {
				c := req.Clone()
				c.History = nil
				out = append(out, c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r requestRepo) Transition(_ context.Context, req *models.DefenseRequest, expected models.RequestStatus, events ...models.HistoryEvent) error {
	return r.s.view(func(st *state) error {
		if err := r.s.fault("Transition"); err != nil {
			return err
		}
		stored, ok := st.requests[req.ID]
		if !ok {
			return apperrors.NewNotFound("defense request", req.ID)
		}
		if stored.Status != expected {
			return apperrors.NewCustomError(apperrors.ErrConcurrentUpdate,
				fmt.Sprintf("defense request %d moved from %s to %s during the update", req.ID, expected, stored.Status))
		}

		history := stored.History
		for _, ev := range events {
			ev.Seq = len(history) + 1
			history = append(history, ev)
		}
		req.UpdatedAt = r.s.now()
		req.History = history

		next := req.Clone()
		next.CreatedAt = stored.CreatedAt
		next.SubmittedAt = stored.SubmittedAt
		st.requests[req.ID] = next
		return nil
	})
}
