package services

import (
	"errors"
	"testing"
	"time"

	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/app/workflow"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
	"github.com/yigit/thesisflow/internal/pkg/notify"
)

const sweepDay = "2025-03-01"

func (f *fixture) scheduled(t *testing.T, title, date, start, end string) *models.DefenseRequest {
	t.Helper()
	req := f.withPanel(t, title, "Dr. Jose Rizal", "Dr. Andres Bonifacio", "Dr. Emilio Aguinaldo")
	out, err := f.requests.Schedule(f.ctx, req.ID, "coord", slot(date, start, end, "Room 301"))
	if err != nil {
		t.Fatalf("schedule %q: %v", title, err)
	}
	return out
}

func TestSweepCompletesExactlyTheEndedDefenses(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	ended := f.scheduled(t, "Ended", sweepDay, "09:00", "10:00")
	endsNow := f.scheduled(t, "Ends now", sweepDay, "10:00", "12:00")
	later := f.scheduled(t, "Later today", sweepDay, "13:00", "14:00")
	f.scheduled(t, "Next week", defenseDay, "09:00", "10:00")

	// Stored without an end time: 10:30 plus the default hour.
	legacy := &models.DefenseRequest{
		StudentID: "2019-00001", StudentName: "Jose Cruz", Program: "MSCS", ThesisTitle: "Legacy",
		DefenseType: models.DefenseTypeFinal, Status: models.StatusScheduled, Priority: models.PriorityNormal,
		Schedule: &models.Schedule{
			Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), StartTime: "10:30", Mode: models.ModeOnline, Venue: "meet.example/legacy",
		},
	}
	if err := f.store.DefenseRequests().Create(f.ctx, legacy); err != nil {
		t.Fatalf("create legacy: %v", err)
	}

	f.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	eventsBefore := len(f.events.Events())

	dry, err := f.sweeper.Sweep(f.ctx, true)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	want := []int64{ended.ID, legacy.ID}
	if !dry.DryRun || dry.Checked != 4 || !equalKinds(dry.Due, want) || len(dry.Completed) != 0 {
		t.Fatalf("dry run report = %+v, want due %v", dry, want)
	}
	for _, id := range want {
		got, _ := f.requests.Get(f.ctx, id)
		if got.Status != models.StatusScheduled {
			t.Fatalf("dry run changed request %d to %s", id, got.Status)
		}
	}
	if len(f.events.Events()) != eventsBefore {
		t.Fatalf("dry run published events")
	}

	report, err := f.sweeper.Sweep(f.ctx, false)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if !equalKinds(report.Completed, want) || len(report.Failed) != 0 {
		t.Fatalf("report = %+v", report)
	}
	got, _ := f.requests.Get(f.ctx, ended.ID)
	last := got.History[len(got.History)-1]
	if got.Status != models.StatusCompleted || last.Kind != models.HistoryCompleted || !last.IsSystem() {
		t.Fatalf("auto-completed request = %s, last history %+v", got.Status, last)
	}
	for _, id := range []int64{endsNow.ID, later.ID} {
		got, _ := f.requests.Get(f.ctx, id)
		if got.Status != models.StatusScheduled {
			t.Fatalf("request %d completed early", id)
		}
	}
	events := f.events.Events()[eventsBefore:]
	if len(events) != 2 || events[0].Kind != notify.EventRequestCompleted || events[0].Actor != "" || events[0].Data["automatic"] != true {
		t.Fatalf("events = %+v", events)
	}

	again, err := f.sweeper.Sweep(f.ctx, false)
	if err != nil {
		t.Fatalf("repeat sweep: %v", err)
	}
	if len(again.Due) != 0 || len(again.Completed) != 0 {
		t.Fatalf("repeat sweep = %+v", again)
	}
}

func TestSweepContinuesPastFailures(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	first := f.scheduled(t, "First", sweepDay, "09:00", "10:00")
	second := f.scheduled(t, "Second", sweepDay, "10:00", "11:00")
	f.now = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

	f.store.FailNext("Transition", errors.New("connection reset"))
	report, err := f.sweeper.Sweep(f.ctx, false)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(report.Failed) != 1 || report.Failed[0].ID != first.ID || report.Failed[0].Code != apperrors.CodeInternal {
		t.Fatalf("failed = %+v", report.Failed)
	}
	if !equalKinds(report.Completed, []int64{second.ID}) {
		t.Fatalf("completed = %v", report.Completed)
	}

	retry, err := f.sweeper.Sweep(f.ctx, false)
	if err != nil || !equalKinds(retry.Completed, []int64{first.ID}) {
		t.Fatalf("retry = %+v, %v", retry, err)
	}
}
