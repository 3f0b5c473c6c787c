package memory

import (
	"context"
	"sort"

	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
)

type facultyRepo struct{ s *Store }

func (r facultyRepo) GetByID(_ context.Context, id int64) (*models.Faculty, error) {
	var out *models.Faculty
	err := r.s.view(func(st *state) error {
		f, ok := st.faculty[id]
		if !ok {
			return apperrors.NewNotFound("faculty", id)
		}
		cp := *f
		out = &cp
		return nil
	})
	return out, err
}

func (r facultyRepo) FindByNameKey(_ context.Context, key string) (*models.Faculty, error) {
	var out *models.Faculty
	err := r.s.view(func(st *state) error {
		for _, f := range st.faculty {
			if f.NameKey == key {
				cp := *f
				out = &cp
				return nil
			}
		}
		return apperrors.NewNotFoundKey("faculty", key)
	})
	return out, err
}

func (r facultyRepo) List(_ context.Context, activeOnly bool) ([]*models.Faculty, error) {
	list := []*models.Faculty{}
	err := r.s.view(func(st *state) error {
		for _, f := range st.faculty {
			if activeOnly && !f.Active {
				continue
			}
			cp := *f
			list = append(list, &cp)
		}
		return nil
	})
	sort.Slice(list, func(i, j int) bool { return list[i].FullName < list[j].FullName })
	return list, err
}

func (r facultyRepo) Upsert(_ context.Context, f *models.Faculty) error {
	f.NameKey = models.NormalizeName(f.FullName)
	return r.s.view(func(st *state) error {
		for _, existing := range st.faculty {
			if existing.NameKey == f.NameKey {
				f.ID = existing.ID
				cp := *f
				st.faculty[f.ID] = &cp
				return nil
			}
		}
		f.ID = st.nextID()
		cp := *f
		st.faculty[f.ID] = &cp
		return nil
	})
}
