package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/thesisflow/internal/app/honorarium"
	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/app/repositories/memory"
	"github.com/yigit/thesisflow/internal/app/workflow"
	"github.com/yigit/thesisflow/internal/pkg/notify"
)

// Scheduling day used across the tests; the clock starts two days earlier.
const defenseDay = "2025-03-03"

var faculty = []string{
	"Dr. Jose Rizal",
	"Dr. Andres Bonifacio",
	"Dr. Emilio Aguinaldo",
	"Dr. Apolinario Mabini",
	"Dr. Melchora Aquino",
	"Dr. Gabriela Silang",
	"Dr. Antonio Luna",
	"Dr. Marcelo del Pilar",
	"Dr. Emilio Jacinto",
}

type fixture struct {
	ctx           context.Context
	now           time.Time
	opts          WorkflowOptions
	store         *memory.Store
	events        *notify.Recorder
	directory     DirectoryService
	requests      DefenseRequestService
	verifications VerificationService
	sync          SyncService
	sweeper       SweeperService
}

func newFixture(t *testing.T, rules workflow.Rules) *fixture {
	t.Helper()
	f := &fixture{
		ctx:    context.Background(),
		now:    time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		store:  memory.New(),
		events: &notify.Recorder{},
	}
	clock := func() time.Time { return f.now }
	f.store.SetClock(clock)

	f.directory = NewDirectoryService(f.store.Faculty())
	for _, name := range faculty {
		if err := f.directory.Upsert(f.ctx, &models.Faculty{FullName: name, Active: true}); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
	if err := f.directory.Upsert(f.ctx, &models.Faculty{FullName: "Dr. Retired Member", Active: false}); err != nil {
		t.Fatalf("seed inactive: %v", err)
	}

	f.opts = WorkflowOptions{Rules: rules, Location: time.UTC, Now: clock}
	opts := f.opts
	nop := zerolog.Nop()
	rates := honorarium.NewTable(map[models.DefenseType]map[models.CommitteeRole]float64{
		models.DefenseTypeFinal: {
			models.RoleAdviserSeat:     1500,
			models.RoleChairpersonSeat: 1200,
		},
	})

	f.requests = NewDefenseRequestService(f.store, f.directory, f.events, opts, nop)
	f.sync = NewSyncService(f.store, rates, f.events, opts, nop)
	f.verifications = NewVerificationService(f.store, f.sync, opts, nop)
	f.sweeper = NewSweeperService(f.store, f.requests, opts, nop)
	return f
}

func (f *fixture) submit(t *testing.T, title, adviser string) *models.DefenseRequest {
	t.Helper()
	req, err := f.requests.Submit(f.ctx, SubmitInput{
		StudentID:   "2021-00123",
		StudentName: "Maria Santos",
		Program:     "Master of Science in Computer Science",
		ThesisTitle: title,
		DefenseType: models.DefenseTypeFinal,
		AdviserName: adviser,
	})
	if err != nil {
		t.Fatalf("Submit(%q): %v", title, err)
	}
	return req
}

// approved submits a request and walks it to coordinator-approved.
func (f *fixture) approved(t *testing.T, title, adviser string) *models.DefenseRequest {
	t.Helper()
	req := f.submit(t, title, adviser)
	if _, err := f.requests.AdviserDecision(f.ctx, req.ID, "adviser", Decision{Approve: true}); err != nil {
		t.Fatalf("adviser approve: %v", err)
	}
	out, err := f.requests.CoordinatorDecision(f.ctx, req.ID, "coordinator", Decision{Approve: true})
	if err != nil {
		t.Fatalf("coordinator approve: %v", err)
	}
	return out
}

// withPanel walks a request to panels-assigned with the given chair and panelists.
func (f *fixture) withPanel(t *testing.T, title, adviser string, members ...string) *models.DefenseRequest {
	t.Helper()
	req := f.approved(t, title, adviser)
	out, err := f.requests.AssignPanels(f.ctx, req.ID, "coordinator", panel(members...))
	if err != nil {
		t.Fatalf("AssignPanels(%q): %v", title, err)
	}
	return out
}

func panel(members ...string) PanelInput {
	refs := make([]models.MemberRef, 5)
	for i, m := range members {
		refs[i] = models.MemberRef{Name: m}
	}
	return PanelInput{
		Chairperson: refs[0],
		Panelist1:   refs[1],
		Panelist2:   refs[2],
		Panelist3:   refs[3],
		Panelist4:   refs[4],
	}
}

func slot(date, start, end, venue string) ScheduleInput {
	return ScheduleInput{Date: date, StartTime: start, EndTime: end, Mode: models.ModeFaceToFace, Venue: venue}
}

func historyKinds(req *models.DefenseRequest) []models.HistoryKind {
	kinds := make([]models.HistoryKind, 0, len(req.History))
	for _, ev := range req.History {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func equalKinds[T comparable](got, want []T) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
