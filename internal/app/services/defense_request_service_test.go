package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/app/repositories"
	"github.com/yigit/thesisflow/internal/app/workflow"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
	"github.com/yigit/thesisflow/internal/pkg/notify"
)

func TestSubmitStartsHistoryAndLinksAdviser(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	req := f.submit(t, "Graph Partitioning", "dr.  jose RIZAL")

	if req.Status != models.StatusSubmitted || req.Priority != models.PriorityNormal {
		t.Fatalf("status/priority = %s/%s", req.Status, req.Priority)
	}
	if req.Committee.Adviser.FacultyID == 0 || req.Committee.Adviser.Name != "Dr. Jose Rizal" {
		t.Fatalf("adviser not linked to the directory: %+v", req.Committee.Adviser)
	}
	if !equalKinds(historyKinds(req), []models.HistoryKind{models.HistorySubmitted}) {
		t.Fatalf("history = %v", historyKinds(req))
	}
	if !equalKinds(f.events.Kinds(), []notify.EventKind{notify.EventRequestSubmitted}) {
		t.Fatalf("events = %v", f.events.Kinds())
	}
}

func TestSubmitKeepsUnknownAdviserAsTyped(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	req := f.submit(t, "Graph Partitioning", "Prof.  Visiting Scholar")
	if req.Committee.Adviser.FacultyID != 0 || req.Committee.Adviser.Name != "Prof. Visiting Scholar" {
		t.Fatalf("adviser = %+v", req.Committee.Adviser)
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	base := SubmitInput{
		StudentID: "2021-1", StudentName: "Maria", Program: "MSCS", ThesisTitle: "T",
		DefenseType: models.DefenseTypeFinal, AdviserName: "Dr. Jose Rizal",
	}
	cases := map[string]func(in *SubmitInput){
		"thesisTitle": func(in *SubmitInput) { in.ThesisTitle = "   " },
		"adviserName": func(in *SubmitInput) { in.AdviserName = "" },
		"defenseType": func(in *SubmitInput) { in.DefenseType = "oral" },
		"priority":    func(in *SubmitInput) { in.Priority = "whenever" },
	}
	for field, mutate := range cases {
		in := base
		mutate(&in)
		_, err := f.requests.Submit(f.ctx, in)
		var verr *apperrors.ValidationError
		if !errors.As(err, &verr) || verr.Field != field {
			t.Fatalf("%s: error = %v, want validation error on that field", field, err)
		}
	}
	if _, total, _ := f.store.DefenseRequests().List(f.ctx, repositories.RequestFilter{}); total != 0 {
		t.Fatalf("invalid submissions were stored: %d", total)
	}
}

func TestFullLifecycleRecordsEveryStep(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	req := f.submit(t, "Graph Partitioning", "Dr. Jose Rizal")

	steps := []func() (*models.DefenseRequest, error){
		func() (*models.DefenseRequest, error) { return f.requests.StartAdviserReview(f.ctx, req.ID, "rizal") },
		func() (*models.DefenseRequest, error) {
			return f.requests.AdviserDecision(f.ctx, req.ID, "rizal", Decision{Approve: true})
		},
		func() (*models.DefenseRequest, error) {
			return f.requests.CoordinatorDecision(f.ctx, req.ID, "coord", Decision{Approve: true})
		},
		func() (*models.DefenseRequest, error) {
			return f.requests.AssignPanels(f.ctx, req.ID, "coord", panel("Dr. Andres Bonifacio", "Dr. Emilio Aguinaldo"))
		},
		func() (*models.DefenseRequest, error) {
			return f.requests.Schedule(f.ctx, req.ID, "coord", slot(defenseDay, "09:00", "10:00", "Room 301"))
		},
		func() (*models.DefenseRequest, error) { return f.requests.MarkCompleted(f.ctx, req.ID, "coord") },
	}
	for i, step := range steps {
		if _, err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	got, err := f.requests.Get(f.ctx, req.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.StatusCompleted {
		t.Fatalf("status = %s", got.Status)
	}
	for name, ts := range map[string]interface{ IsZero() bool }{
		"adviserReviewedAt":     *got.AdviserReviewedAt,
		"coordinatorReviewedAt": *got.CoordinatorReviewedAt,
		"panelsAssignedAt":      *got.PanelsAssignedAt,
		"scheduleSetAt":         *got.ScheduleSetAt,
		"completedAt":           *got.CompletedAt,
	} {
		if ts.IsZero() {
			t.Fatalf("%s not stamped", name)
		}
	}

	wantHistory := []models.HistoryKind{
		models.HistorySubmitted, models.HistoryAdviserReviewStarted, models.HistoryAdviserApproved,
		models.HistoryCoordinatorApproved, models.HistoryPanelsAssigned, models.HistoryScheduleSet, models.HistoryCompleted,
	}
	if !equalKinds(historyKinds(got), wantHistory) {
		t.Fatalf("history = %v, want %v", historyKinds(got), wantHistory)
	}
	for i, ev := range got.History {
		if ev.Seq != i+1 {
			t.Fatalf("history[%d].Seq = %d", i, ev.Seq)
		}
	}

	wantEvents := []notify.EventKind{
		notify.EventRequestSubmitted, notify.EventRequestApproved, notify.EventRequestApproved,
		notify.EventPanelsAssigned, notify.EventScheduleSet, notify.EventRequestCompleted,
	}
	if !equalKinds(f.events.Kinds(), wantEvents) {
		t.Fatalf("events = %v, want %v", f.events.Kinds(), wantEvents)
	}
}

func TestIllegalTransitionsChangeNothing(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	req := f.submit(t, "Graph Partitioning", "Dr. Jose Rizal")
	eventsBefore := len(f.events.Events())

	attempts := map[string]func() error{
		"schedule": func() error {
			_, err := f.requests.Schedule(f.ctx, req.ID, "coord", slot(defenseDay, "09:00", "10:00", "Room 301"))
			return err
		},
		"complete": func() error { _, err := f.requests.MarkCompleted(f.ctx, req.ID, ""); return err },
		"coordinator": func() error {
			_, err := f.requests.CoordinatorDecision(f.ctx, req.ID, "coord", Decision{Approve: true})
			return err
		},
		"retrieve": func() error { _, err := f.requests.Retrieve(f.ctx, req.ID, "student"); return err },
		"forward":  func() error { _, err := f.requests.ForwardToCoordinator(f.ctx, req.ID, "rizal"); return err },
	}
	for name, attempt := range attempts {
		err := attempt()
		var ite *apperrors.IllegalTransitionError
		if !errors.As(err, &ite) || ite.From != string(models.StatusSubmitted) {
			t.Fatalf("%s: error = %v, want illegal transition from submitted", name, err)
		}
	}

	got, _ := f.requests.Get(f.ctx, req.ID)
	if got.Status != models.StatusSubmitted || len(got.History) != 1 {
		t.Fatalf("request changed: %s with %d history entries", got.Status, len(got.History))
	}
	if len(f.events.Events()) != eventsBefore {
		t.Fatalf("illegal transitions published events")
	}
}

func TestMissingRequestIsNotFound(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	if _, err := f.requests.MarkCompleted(f.ctx, 404, ""); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestRejectionNeedsReason(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	req := f.submit(t, "Graph Partitioning", "Dr. Jose Rizal")
	_, err := f.requests.AdviserDecision(f.ctx, req.ID, "rizal", Decision{Reason: "  "})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("error = %v, want validation", err)
	}

	got, err := f.requests.AdviserDecision(f.ctx, req.ID, "rizal", Decision{Reason: "Chapter 3 incomplete"})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != models.StatusRejected || got.LastRejectionReason != "Chapter 3 incomplete" {
		t.Fatalf("got %s / %q", got.Status, got.LastRejectionReason)
	}
	last := got.History[len(got.History)-1]
	if last.Kind != models.HistoryAdviserRejected || last.Note != "Chapter 3 incomplete" {
		t.Fatalf("last history = %+v", last)
	}
}

func TestSeparateCoordinatorGateNeedsForwarding(t *testing.T) {
	f := newFixture(t, workflow.Rules{SeparateCoordinatorGate: true})
	req := f.submit(t, "Graph Partitioning", "Dr. Jose Rizal")

	got, err := f.requests.AdviserDecision(f.ctx, req.ID, "rizal", Decision{Approve: true})
	if err != nil || got.Status != models.StatusAdviserApproved {
		t.Fatalf("adviser approve = %v, %v", got, err)
	}
	if _, err := f.requests.CoordinatorDecision(f.ctx, req.ID, "coord", Decision{Approve: true}); !errors.Is(err, apperrors.ErrIllegalTransition) {
		t.Fatalf("coordinator decision before forwarding: %v", err)
	}
	if got, err = f.requests.ForwardToCoordinator(f.ctx, req.ID, "rizal"); err != nil || got.Status != models.StatusCoordinatorReview {
		t.Fatalf("forward = %v, %v", got, err)
	}
	if got, err = f.requests.CoordinatorDecision(f.ctx, req.ID, "coord", Decision{Approve: true}); err != nil || got.Status != models.StatusCoordinatorApproved {
		t.Fatalf("coordinator approve = %v, %v", got, err)
	}
}

func TestRetrieveKeepsRejectedEntryAndResubmitApplies(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	req := f.submit(t, "Graph Partitoning", "Dr. Jose Rizal")
	if _, err := f.requests.AdviserDecision(f.ctx, req.ID, "rizal", Decision{Approve: true}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.requests.CoordinatorDecision(f.ctx, req.ID, "coord", Decision{Reason: "Typo in title"}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	got, err := f.requests.Retrieve(f.ctx, req.ID, "student")
	if err != nil || got.Status != models.StatusPending {
		t.Fatalf("retrieve = %v, %v", got, err)
	}
	got, err = f.requests.Resubmit(f.ctx, req.ID, "student", Corrections{ThesisTitle: "Graph Partitioning"})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if got.Status != models.StatusSubmitted || got.ThesisTitle != "Graph Partitioning" {
		t.Fatalf("got %s %q", got.Status, got.ThesisTitle)
	}

	stored, _ := f.requests.Get(f.ctx, req.ID)
	want := []models.HistoryKind{
		models.HistorySubmitted, models.HistoryAdviserApproved, models.HistoryCoordinatorRejected,
		models.HistoryRetrieved, models.HistoryResubmitted,
	}
	if !equalKinds(historyKinds(stored), want) {
		t.Fatalf("history = %v, want %v", historyKinds(stored), want)
	}
	if stored.History[2].Note != "Typo in title" {
		t.Fatalf("rejection note lost: %+v", stored.History[2])
	}
}

func TestRetrieveFromCoordinatorReviewWhenEnabled(t *testing.T) {
	f := newFixture(t, workflow.Rules{AllowRetrieveFromCoordinatorReview: true})
	req := f.submit(t, "Graph Partitioning", "Dr. Jose Rizal")
	if _, err := f.requests.AdviserDecision(f.ctx, req.ID, "rizal", Decision{Approve: true}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, err := f.requests.Retrieve(f.ctx, req.ID, "student")
	if err != nil || got.Status != models.StatusPending {
		t.Fatalf("retrieve = %v, %v", got, err)
	}
}

func TestAssignPanelsValidation(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	req := f.approved(t, "Graph Partitioning", "Dr. Jose Rizal")

	cases := []struct {
		name  string
		in    PanelInput
		field string
	}{
		{"missing chair", panel("", "Dr. Emilio Aguinaldo"), "chairperson"},
		{"missing panelist1", panel("Dr. Andres Bonifacio"), "panelist1"},
		{"unknown member", panel("Dr. Andres Bonifacio", "Dr. Nobody"), "panelist1"},
		{"inactive member", panel("Dr. Andres Bonifacio", "Dr. Retired Member"), "panelist1"},
		{"duplicate", panel("Dr. Andres Bonifacio", "Dr. Emilio Aguinaldo", "dr. andres  bonifacio"), "panelist2"},
		{"adviser on panel", panel("Dr. Andres Bonifacio", "Dr. Jose Rizal"), "panelist1"},
	}
	for _, tc := range cases {
		_, err := f.requests.AssignPanels(f.ctx, req.ID, "coord", tc.in)
		var verr *apperrors.ValidationError
		if !errors.As(err, &verr) || verr.Field != tc.field {
			t.Fatalf("%s: error = %v, want validation error on %s", tc.name, err, tc.field)
		}
	}

	got, _ := f.requests.Get(f.ctx, req.ID)
	if got.Status != models.StatusCoordinatorApproved || !got.Committee.Chairperson.IsZero() {
		t.Fatalf("rejected panels were stored: %s %+v", got.Status, got.Committee)
	}

	got, err := f.requests.AssignPanels(f.ctx, req.ID, "coord", panel("Dr. Andres Bonifacio", "Dr. Emilio Aguinaldo", "", "Dr. Antonio Luna"))
	if err != nil {
		t.Fatalf("AssignPanels: %v", err)
	}
	if !got.Committee.Panelist2.IsZero() || got.Committee.Panelist3.FacultyID == 0 {
		t.Fatalf("committee = %+v", got.Committee)
	}
}

func TestScheduleValidation(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	req := f.withPanel(t, "Graph Partitioning", "Dr. Jose Rizal", "Dr. Andres Bonifacio", "Dr. Emilio Aguinaldo")

	cases := []struct {
		in    ScheduleInput
		field string
	}{
		{slot("2025-02-28", "09:00", "10:00", "Room 301"), "date"},
		{slot("03/03/2025", "09:00", "10:00", "Room 301"), "date"},
		{slot(defenseDay, "9:00", "10:00", "Room 301"), "startTime"},
		{slot(defenseDay, "10:00", "10:00", "Room 301"), "endTime"},
		{slot(defenseDay, "10:00", "09:00", "Room 301"), "endTime"},
		{slot(defenseDay, "09:00", "10:00", "   "), "venue"},
		{ScheduleInput{Date: defenseDay, StartTime: "09:00", EndTime: "10:00", Mode: "hybrid", Venue: "Room 301"}, "mode"},
	}
	for _, tc := range cases {
		_, err := f.requests.Schedule(f.ctx, req.ID, "coord", tc.in)
		var verr *apperrors.ValidationError
		if !errors.As(err, &verr) || verr.Field != tc.field {
			t.Fatalf("%+v: error = %v, want validation error on %s", tc.in, err, tc.field)
		}
	}

	// Today is allowed.
	if _, err := f.requests.Schedule(f.ctx, req.ID, "coord", slot("2025-03-01", "15:00", "16:00", "Room 301")); err != nil {
		t.Fatalf("schedule today: %v", err)
	}
}

func TestRoom301VenueConflictAllowsBackToBack(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	a := f.withPanel(t, "Thesis A", "Adviser A", "Dr. Andres Bonifacio", "Dr. Emilio Aguinaldo")
	b := f.withPanel(t, "Thesis B", "Adviser B", "Dr. Apolinario Mabini", "Dr. Melchora Aquino")
	c := f.withPanel(t, "Thesis C", "Adviser C", "Dr. Gabriela Silang", "Dr. Antonio Luna")

	if _, err := f.requests.Schedule(f.ctx, a.ID, "coord", slot(defenseDay, "09:00", "10:00", "Room 301")); err != nil {
		t.Fatalf("schedule A: %v", err)
	}

	_, err := f.requests.Schedule(f.ctx, b.ID, "coord", slot(defenseDay, "09:30", "10:30", "Room 301"))
	var conflict *apperrors.SchedulingConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("schedule B error = %v, want scheduling conflict", err)
	}
	if len(conflict.Collisions) != 1 {
		t.Fatalf("collisions = %+v", conflict.Collisions)
	}
	col := conflict.Collisions[0]
	if col.RequestID != a.ID || col.StartTime != "09:00" || col.EndTime != "10:00" || col.ThesisTitle != "Thesis A" {
		t.Fatalf("collision = %+v", col)
	}
	if !equalKinds(col.Kinds, []apperrors.ConflictKind{apperrors.ConflictVenue}) {
		t.Fatalf("kinds = %v", col.Kinds)
	}

	gotB, _ := f.requests.Get(f.ctx, b.ID)
	if gotB.Status != models.StatusPanelsAssigned || gotB.Schedule != nil {
		t.Fatalf("conflicting schedule was stored: %s %+v", gotB.Status, gotB.Schedule)
	}

	if _, err := f.requests.Schedule(f.ctx, c.ID, "coord", slot(defenseDay, "10:00", "11:00", " room  301 ")); err != nil {
		t.Fatalf("back-to-back schedule C: %v", err)
	}
}

func TestCommitteeConflictAcrossRooms(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	a := f.withPanel(t, "Thesis A", "Adviser A", "Dr. Andres Bonifacio", "Dr. Emilio Aguinaldo")
	d := f.withPanel(t, "Thesis D", "Adviser D", "Dr. Emilio Jacinto", "Dr. Andres Bonifacio")

	if _, err := f.requests.Schedule(f.ctx, a.ID, "coord", slot(defenseDay, "09:00", "10:00", "Room 301")); err != nil {
		t.Fatalf("schedule A: %v", err)
	}
	_, err := f.requests.Schedule(f.ctx, d.ID, "coord", slot(defenseDay, "09:59", "11:00", "Room 205"))
	var conflict *apperrors.SchedulingConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %v, want scheduling conflict", err)
	}
	col := conflict.Collisions[0]
	if !equalKinds(col.Kinds, []apperrors.ConflictKind{apperrors.ConflictCommittee}) {
		t.Fatalf("kinds = %v", col.Kinds)
	}
	if !equalKinds(col.Members, []string{"Dr. Andres Bonifacio"}) {
		t.Fatalf("members = %v", col.Members)
	}
	if !strings.Contains(err.Error(), "Dr. Andres Bonifacio") {
		t.Fatalf("message %q does not name the member", err.Error())
	}

	// Another day is free.
	if _, err := f.requests.Schedule(f.ctx, d.ID, "coord", slot("2025-03-04", "09:00", "10:00", "Room 301")); err != nil {
		t.Fatalf("schedule on another day: %v", err)
	}
}

func TestAdviserKeptByNameStillBlocksLaterDirectoryEntry(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	a := f.withPanel(t, "Thesis A", "Dr. New Person", "Dr. Jose Rizal", "Dr. Andres Bonifacio")
	if a.Committee.Adviser.FacultyID != 0 {
		t.Fatalf("adviser resolved before joining the directory: %+v", a.Committee.Adviser)
	}
	if _, err := f.requests.Schedule(f.ctx, a.ID, "coord", slot(defenseDay, "09:00", "10:00", "Room 301")); err != nil {
		t.Fatalf("schedule A: %v", err)
	}

	if err := f.directory.Upsert(f.ctx, &models.Faculty{FullName: "Dr. New Person", Active: true}); err != nil {
		t.Fatalf("add to directory: %v", err)
	}
	b := f.withPanel(t, "Thesis B", "Adviser B", "Dr. New Person", "Dr. Emilio Aguinaldo")
	if b.Committee.Chairperson.FacultyID == 0 {
		t.Fatalf("chairperson not resolved: %+v", b.Committee.Chairperson)
	}

	_, err := f.requests.Schedule(f.ctx, b.ID, "coord", slot(defenseDay, "09:30", "10:30", "Room 999"))
	var conflict *apperrors.SchedulingConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %v, want committee conflict", err)
	}
	if !equalKinds(conflict.Collisions[0].Members, []string{"Dr. New Person"}) {
		t.Fatalf("members = %v", conflict.Collisions[0].Members)
	}
}

func TestRescheduleKeepsPreviousSlotInHistory(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	req := f.withPanel(t, "Graph Partitioning", "Dr. Jose Rizal", "Dr. Andres Bonifacio", "Dr. Emilio Aguinaldo")

	if _, err := f.requests.Schedule(f.ctx, req.ID, "coord", slot(defenseDay, "09:00", "10:00", "Room 301")); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	// Overlapping its own current slot is not a conflict.
	got, err := f.requests.Schedule(f.ctx, req.ID, "coord", slot(defenseDay, "09:30", "10:30", "Room 301"))
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if got.Schedule.StartTime != "09:30" {
		t.Fatalf("active schedule = %+v", got.Schedule)
	}

	stored, _ := f.requests.Get(f.ctx, req.ID)
	n := len(stored.History)
	first, second := stored.History[n-2], stored.History[n-1]
	if first.Kind != models.HistoryScheduleSet || first.Schedule == nil || first.Schedule.StartTime != "09:00" {
		t.Fatalf("original slot lost: %+v", first)
	}
	if second.Kind != models.HistoryRescheduled || second.Schedule.StartTime != "09:30" {
		t.Fatalf("reschedule entry = %+v", second)
	}
	if second.FromStatus != models.StatusScheduled || second.ToStatus != models.StatusScheduled {
		t.Fatalf("reschedule statuses = %s -> %s", second.FromStatus, second.ToStatus)
	}
}

func TestBulkCoordinatorDecisionReportsPartialSuccess(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	var inReview []int64
	for _, title := range []string{"A", "B"} {
		req := f.submit(t, title, "Dr. Jose Rizal")
		if _, err := f.requests.AdviserDecision(f.ctx, req.ID, "rizal", Decision{Approve: true}); err != nil {
			t.Fatalf("approve: %v", err)
		}
		inReview = append(inReview, req.ID)
	}
	fresh := f.submit(t, "C", "Dr. Jose Rizal")

	ids := []int64{inReview[0], fresh.ID, inReview[1], 999, inReview[0]}
	result, err := f.requests.BulkCoordinatorDecision(f.ctx, ids, "coord", Decision{Approve: true})
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if !equalKinds(result.Changed, inReview) {
		t.Fatalf("changed = %v, want %v", result.Changed, inReview)
	}
	if len(result.Failed) != 2 {
		t.Fatalf("failed = %+v", result.Failed)
	}
	if result.Failed[0].ID != fresh.ID || result.Failed[0].Code != apperrors.CodeIllegalTransition {
		t.Fatalf("failed[0] = %+v", result.Failed[0])
	}
	if result.Failed[1].ID != 999 || result.Failed[1].Code != apperrors.CodeNotFound {
		t.Fatalf("failed[1] = %+v", result.Failed[1])
	}

	for _, id := range inReview {
		got, _ := f.requests.Get(f.ctx, id)
		if got.Status != models.StatusCoordinatorApproved {
			t.Fatalf("request %d = %s", id, got.Status)
		}
	}

	if _, err := f.requests.BulkCoordinatorDecision(f.ctx, ids, "coord", Decision{}); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("bulk reject without reason: %v", err)
	}
}

func TestFailedWriteLeavesRequestUnchanged(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	req := f.submit(t, "Graph Partitioning", "Dr. Jose Rizal")
	f.store.FailNext("Transition", errors.New("disk full"))

	if _, err := f.requests.StartAdviserReview(f.ctx, req.ID, "rizal"); err == nil {
		t.Fatalf("expected the injected failure")
	}
	got, _ := f.requests.Get(f.ctx, req.ID)
	if got.Status != models.StatusSubmitted || len(got.History) != 1 {
		t.Fatalf("request changed after failed write: %s %d", got.Status, len(got.History))
	}
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(t, workflow.Rules{})
	f.submit(t, "A", "Dr. Jose Rizal")
	b := f.submit(t, "B", "Dr. Jose Rizal")
	if _, err := f.requests.StartAdviserReview(f.ctx, b.ID, "rizal"); err != nil {
		t.Fatalf("review: %v", err)
	}

	list, total, err := f.requests.List(f.ctx, repositories.RequestFilter{Status: models.StatusAdviserReview})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].ID != b.ID {
		t.Fatalf("list = %d/%v", total, list)
	}
	if _, _, err := f.requests.List(f.ctx, repositories.RequestFilter{Status: "archived"}); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("unknown status filter: %v", err)
	}
}
