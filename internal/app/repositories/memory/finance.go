package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
)

type financeRepo struct{ s *Store }

func exists(entity string) error {
	return apperrors.NewCustomError(apperrors.ErrAlreadyExists, entity+" already exists")
}

func (r financeRepo) FindStudentRecordByRequest(_ context.Context, requestID int64) (*models.StudentRecord, error) {
	var out *models.StudentRecord
	err := r.s.view(func(st *state) error {
		for _, s := range st.students {
			if s.DefenseRequestID == requestID {
				cp := *s
				cp.DefenseDate = cloneTime(s.DefenseDate)
				out = &cp
				return nil
			}
		}
		return apperrors.NewNotFoundKey("student record", fmt.Sprintf("for defense request %d", requestID))
	})
	return out, err
}

func (r financeRepo) CreateStudentRecord(_ context.Context, s *models.StudentRecord) error {
	return r.s.view(func(st *state) error {
		if err := r.s.fault("CreateStudentRecord"); err != nil {
			return err
		}
		for _, existing := range st.students {
			if existing.DefenseRequestID == s.DefenseRequestID {
				return exists("student record")
			}
		}
		s.ID = st.nextID()
		s.CreatedAt = r.s.now()
		cp := *s
		cp.DefenseDate = cloneTime(s.DefenseDate)
		st.students[s.ID] = &cp
		return nil
	})
}

func (r financeRepo) FindProgramRecord(_ context.Context, nameKey, category string) (*models.ProgramRecord, error) {
	var out *models.ProgramRecord
	err := r.s.view(func(st *state) error {
		for _, p := range st.programs {
			if p.NameKey == nameKey && p.Category == category {
				cp := *p
				out = &cp
				return nil
			}
		}
		return apperrors.NewNotFoundKey("program record", nameKey+"/"+category)
	})
	return out, err
}

func (r financeRepo) GetProgramRecord(_ context.Context, id int64) (*models.ProgramRecord, error) {
	var out *models.ProgramRecord
	err := r.s.view(func(st *state) error {
		p, ok := st.programs[id]
		if !ok {
			return apperrors.NewNotFound("program record", id)
		}
		cp := *p
		out = &cp
		return nil
	})
	return out, err
}

func (r financeRepo) CreateProgramRecord(_ context.Context, p *models.ProgramRecord) error {
	return r.s.view(func(st *state) error {
		if err := r.s.fault("CreateProgramRecord"); err != nil {
			return err
		}
		for _, existing := range st.programs {
			if existing.NameKey == p.NameKey && existing.Category == p.Category {
				return exists("program record")
			}
		}
		p.ID = st.nextID()
		p.CreatedAt = r.s.now()
		cp := *p
		st.programs[p.ID] = &cp
		return nil
	})
}

func (r financeRepo) FindPanelistRecord(_ context.Context, programRecordID, facultyID int64, nameKey string) (*models.PanelistRecord, error) {
	var out *models.PanelistRecord
	err := r.s.view(func(st *state) error {
		var best *models.PanelistRecord
		for _, p := range st.panelists {
			if p.ProgramRecordID != programRecordID {
				continue
			}
			if p.NameKey == nameKey || (facultyID > 0 && p.FacultyID == facultyID) {
				if best == nil || p.ID < best.ID {
					best = p
				}
			}
		}
		if best == nil {
			return apperrors.NewNotFoundKey("panelist record", nameKey)
		}
		cp := *best
		out = &cp
		return nil
	})
	return out, err
}

func (r financeRepo) CreatePanelistRecord(_ context.Context, p *models.PanelistRecord) error {
	return r.s.view(func(st *state) error {
		if err := r.s.fault("CreatePanelistRecord"); err != nil {
			return err
		}
		for _, existing := range st.panelists {
			if existing.ProgramRecordID == p.ProgramRecordID && existing.NameKey == p.NameKey {
				return exists("panelist record")
			}
		}
		p.ID = st.nextID()
		p.CreatedAt = r.s.now()
		cp := *p
		st.panelists[p.ID] = &cp
		return nil
	})
}

func copyAssignment(a *models.PanelistAssignment) models.PanelistAssignment {
	cp := *a
	if a.Receivable != nil {
		v := *a.Receivable
		cp.Receivable = &v
	}
	return cp
}

func (r financeRepo) FindAssignment(_ context.Context, panelistRecordID, studentRecordID int64, role models.CommitteeRole, slot int) (*models.PanelistAssignment, error) {
	var out *models.PanelistAssignment
	err := r.s.view(func(st *state) error {
		for _, a := range st.assignments {
			if a.PanelistRecordID == panelistRecordID && a.StudentRecordID == studentRecordID && a.Role == role && a.Slot == slot {
				cp := copyAssignment(a)
				out = &cp
				return nil
			}
		}
		return apperrors.NewNotFoundKey("panelist assignment", fmt.Sprintf("%s/%d", role, slot))
	})
	return out, err
}

func (r financeRepo) ListAssignments(_ context.Context, studentRecordID int64) ([]models.PanelistAssignment, error) {
	var list []models.PanelistAssignment
	err := r.s.view(func(st *state) error {
		for _, a := range st.assignments {
			if a.StudentRecordID == studentRecordID {
				list = append(list, copyAssignment(a))
			}
		}
		return nil
	})
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, err
}

func (r financeRepo) CreateAssignment(_ context.Context, a *models.PanelistAssignment) error {
	return r.s.view(func(st *state) error {
		if err := r.s.fault("CreateAssignment"); err != nil {
			return err
		}
		for _, existing := range st.assignments {
			if existing.PanelistRecordID == a.PanelistRecordID && existing.StudentRecordID == a.StudentRecordID &&
				existing.Role == a.Role && existing.Slot == a.Slot {
				return exists("panelist assignment")
			}
		}
		a.ID = st.nextID()
		a.CreatedAt = r.s.now()
		cp := copyAssignment(a)
		st.assignments[a.ID] = &cp
		return nil
	})
}

func (r financeRepo) FindPaymentRecord(_ context.Context, studentRecordID int64) (*models.PaymentRecord, error) {
	var out *models.PaymentRecord
	err := r.s.view(func(st *state) error {
		for _, p := range st.payments {
			if p.StudentRecordID == studentRecordID {
				cp := *p
				out = &cp
				return nil
			}
		}
		return apperrors.NewNotFoundKey("payment record", fmt.Sprintf("for student record %d", studentRecordID))
	})
	return out, err
}

func (r financeRepo) CreatePaymentRecord(_ context.Context, p *models.PaymentRecord) error {
	return r.s.view(func(st *state) error {
		if err := r.s.fault("CreatePaymentRecord"); err != nil {
			return err
		}
		for _, existing := range st.payments {
			if existing.StudentRecordID == p.StudentRecordID {
				return exists("payment record")
			}
		}
		p.ID = st.nextID()
		p.CreatedAt = r.s.now()
		cp := *p
		st.payments[p.ID] = &cp
		return nil
	})
}
