package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"renoline/internal/config"
	"renoline/internal/db"
	"renoline/internal/domain"
	"renoline/internal/engine"
	"renoline/internal/migrate"
	"renoline/internal/repo"
	"renoline/internal/validate"
)

type testEnv struct {
	Engine engine.Engine
	Store  repo.Store
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := repo.Store{DB: conn}
	eng := engine.New(store, config.Default())
	eng.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Store: store, Ctx: context.Background()}
}

func (env testEnv) createProject(t *testing.T, id string) domain.Project {
	t.Helper()
	p, err := env.Engine.CreateProject(env.Ctx, engine.CreateProjectOptions{
		ID:       id,
		Title:    "Ανακαίνιση κατοικίας",
		Deadline: "2026-12-31T00:00:00Z",
		Actor:    "tester",
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func (env testEnv) addIntervention(t *testing.T, projectID, masterID string) domain.Project {
	t.Helper()
	p, err := env.Engine.AddIntervention(env.Ctx, engine.AddInterventionOptions{
		ProjectID:    projectID,
		MasterID:     masterID,
		Category:     "Κουφώματα",
		Quantity:     10,
		MaxUnitPrice: 440,
		MaxAmount:    12000,
		Actor:        "tester",
	})
	if err != nil {
		t.Fatalf("add intervention: %v", err)
	}
	return p
}

func (env testEnv) addStage(t *testing.T, projectID, masterID, title string) domain.Project {
	t.Helper()
	p, err := env.Engine.AddStage(env.Ctx, engine.AddStageOptions{
		ProjectID: projectID,
		MasterID:  masterID,
		Title:     title,
		Actor:     "tester",
	})
	if err != nil {
		t.Fatalf("add stage: %v", err)
	}
	return p
}

func stageAt(t *testing.T, p domain.Project, masterID string, idx int) domain.Stage {
	t.Helper()
	for _, iv := range p.Interventions {
		if iv.MasterID == masterID {
			if idx >= len(iv.Stages) {
				t.Fatalf("stage index %d out of range", idx)
			}
			return iv.Stages[idx]
		}
	}
	t.Fatalf("intervention %s not found", masterID)
	return domain.Stage{}
}

func TestCreateProjectStartsAsQuotation(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "p1")
	if p.Status != domain.StatusQuotation {
		t.Fatalf("expected Quotation, got %s", p.Status)
	}
	if len(p.AuditLog) != 1 || p.AuditLog[0].Action != "project created" {
		t.Fatalf("expected creation audit entry, got %+v", p.AuditLog)
	}
	if p.Version != 1 {
		t.Fatalf("expected version 1, got %d", p.Version)
	}
}

func TestActivateProjectOneWay(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, "p1")
	p, err := env.Engine.ActivateProject(env.Ctx, "p1", "tester")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if p.Status != domain.StatusOnTrack {
		t.Fatalf("expected On Track, got %s", p.Status)
	}
	_, err = env.Engine.ActivateProject(env.Ctx, "p1", "tester")
	var ite engine.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected invalid transition on second activate, got %v", err)
	}
}

func TestInterventionSeedTotalIsCapped(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, "p1")
	p := env.addIntervention(t, "p1", "iv1")
	if got := p.Interventions[0].TotalCost; got != 4400 {
		t.Fatalf("expected 10*440=4400, got %v", got)
	}
	p, err := env.Engine.AddIntervention(env.Ctx, engine.AddInterventionOptions{
		ProjectID:    "p1",
		MasterID:     "iv2",
		Category:     "Θερμομόνωση",
		Quantity:     500,
		MaxUnitPrice: 75,
		MaxAmount:    16000,
		Actor:        "tester",
	})
	if err != nil {
		t.Fatalf("add capped intervention: %v", err)
	}
	var capped domain.Intervention
	for _, iv := range p.Interventions {
		if iv.MasterID == "iv2" {
			capped = iv
		}
	}
	if capped.TotalCost != 16000 {
		t.Fatalf("expected max_amount cap 16000, got %v", capped.TotalCost)
	}
}

func TestInterventionCapsFromCatalog(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, "p1")
	p, err := env.Engine.AddIntervention(env.Ctx, engine.AddInterventionOptions{
		ProjectID: "p1",
		MasterID:  "iv1",
		Code:      "1.A1",
		Category:  "Κουφώματα",
		Quantity:  10,
		Actor:     "tester",
	})
	if err != nil {
		t.Fatalf("add intervention from catalog: %v", err)
	}
	if got := p.Interventions[0].TotalCost; got != 4400 {
		t.Fatalf("expected catalog caps to seed 4400, got %v", got)
	}
}

func TestDuplicateMasterIDRejected(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, "p1")
	env.addIntervention(t, "p1", "iv1")
	_, err := env.Engine.AddIntervention(env.Ctx, engine.AddInterventionOptions{
		ProjectID:    "p1",
		MasterID:     "iv1",
		Category:     "Θερμομόνωση",
		Quantity:     5,
		MaxUnitPrice: 59,
		MaxAmount:    16000,
		Actor:        "tester",
	})
	var ve validate.Error
	if !errors.As(err, &ve) || ve.Kind != validate.KindDuplicateKey {
		t.Fatalf("expected duplicate-key error, got %v", err)
	}
}

func TestSubInterventionsDriveBudget(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, "p1")
	env.addIntervention(t, "p1", "iv1")
	_, err := env.Engine.AddSubIntervention(env.Ctx, engine.AddSubInterventionOptions{
		ProjectID:   "p1",
		MasterID:    "iv1",
		Description: "Παράθυρο σαλονιού",
		Cost:        120.50,
		Actor:       "tester",
	})
	if err != nil {
		t.Fatalf("add sub 1: %v", err)
	}
	p, err := env.Engine.AddSubIntervention(env.Ctx, engine.AddSubInterventionOptions{
		ProjectID:   "p1",
		MasterID:    "iv1",
		Description: "Παράθυρο κουζίνας",
		Cost:        79.50,
		Actor:       "tester",
	})
	if err != nil {
		t.Fatalf("add sub 2: %v", err)
	}
	if got := p.Interventions[0].TotalCost; got != 200 {
		t.Fatalf("expected sub sum 200 to replace seed, got %v", got)
	}
	if p.Budget != 200 {
		t.Fatalf("expected project budget 200, got %v", p.Budget)
	}
}

func TestStageStateMachine(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, "p1")
	env.addIntervention(t, "p1", "iv1")
	p := env.addStage(t, "p1", "iv1", "Αποξήλωση")
	st := stageAt(t, p, "iv1", 0)
	if st.Status != domain.StagePending {
		t.Fatalf("new stage should be pending, got %s", st.Status)
	}

	// pending -> completed is a skip, rejected
	_, err := env.Engine.TransitionStage(env.Ctx, "p1", "iv1", st.ID, domain.StageCompleted, "tester")
	var ite engine.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	p, err = env.Engine.TransitionStage(env.Ctx, "p1", "iv1", st.ID, domain.StageInProgress, "tester")
	if err != nil {
		t.Fatalf("to in progress: %v", err)
	}
	p, err = env.Engine.TransitionStage(env.Ctx, "p1", "iv1", st.ID, domain.StageFailed, "tester")
	if err != nil {
		t.Fatalf("to failed: %v", err)
	}
	// terminal restart
	p, err = env.Engine.TransitionStage(env.Ctx, "p1", "iv1", st.ID, domain.StageInProgress, "tester")
	if err != nil {
		t.Fatalf("restart from failed: %v", err)
	}
	if got := stageAt(t, p, "iv1", 0).Status; got != domain.StageInProgress {
		t.Fatalf("expected in progress after restart, got %s", got)
	}
	// back to pending is never allowed
	_, err = env.Engine.TransitionStage(env.Ctx, "p1", "iv1", st.ID, domain.StagePending, "tester")
	if !errors.As(err, &ite) {
		t.Fatalf("expected invalid transition to pending, got %v", err)
	}
}

func TestCompletedStageLocksFinancials(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, "p1")
	env.addIntervention(t, "p1", "iv1")
	p := env.addStage(t, "p1", "iv1", "Τοποθέτηση")
	st := stageAt(t, p, "iv1", 0)
	env.mustTransition(t, "p1", "iv1", st.ID, domain.StageInProgress)
	env.mustTransition(t, "p1", "iv1", st.ID, domain.StageCompleted)

	q := 20.0
	_, err := env.Engine.UpdateIntervention(env.Ctx, engine.UpdateInterventionOptions{
		ProjectID: "p1", MasterID: "iv1", Quantity: &q, Actor: "tester",
	})
	var ve validate.Error
	if !errors.As(err, &ve) || ve.Kind != validate.KindLockedForEdit {
		t.Fatalf("expected locked-for-edit on update, got %v", err)
	}
	_, err = env.Engine.AddSubIntervention(env.Ctx, engine.AddSubInterventionOptions{
		ProjectID: "p1", MasterID: "iv1", Description: "Νέο είδος", Cost: 100, Actor: "tester",
	})
	if !errors.As(err, &ve) || ve.Kind != validate.KindLockedForEdit {
		t.Fatalf("expected locked-for-edit on sub add, got %v", err)
	}
	// completed stage itself is frozen
	_, err = env.Engine.DeleteStage(env.Ctx, "p1", "iv1", st.ID, "tester")
	if !errors.As(err, &ve) || ve.Kind != validate.KindLockedForEdit {
		t.Fatalf("expected locked-for-edit on stage delete, got %v", err)
	}
	// but status transitions stay open: restart the stage
	if _, err := env.Engine.TransitionStage(env.Ctx, "p1", "iv1", st.ID, domain.StageInProgress, "tester"); err != nil {
		t.Fatalf("restart after completion: %v", err)
	}
}

func TestInterventionDeleteRequiresAllPending(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, "p1")
	env.addIntervention(t, "p1", "iv1")
	p := env.addStage(t, "p1", "iv1", "Εργασία")
	st := stageAt(t, p, "iv1", 0)
	env.mustTransition(t, "p1", "iv1", st.ID, domain.StageInProgress)

	_, err := env.Engine.DeleteIntervention(env.Ctx, "p1", "iv1", "tester")
	var ve validate.Error
	if !errors.As(err, &ve) || ve.Kind != validate.KindLockedForEdit {
		t.Fatalf("expected locked-for-edit, got %v", err)
	}
}

func TestStageDeadlineBoundedByProject(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, "p1")
	env.addIntervention(t, "p1", "iv1")

	_, err := env.Engine.AddStage(env.Ctx, engine.AddStageOptions{
		ProjectID: "p1", MasterID: "iv1", Title: "Εκπρόθεσμο",
		Deadline: "2027-06-01T00:00:00Z", Actor: "tester",
	})
	var ve validate.Error
	if !errors.As(err, &ve) || ve.Kind != validate.KindDeadlineOutOfRange {
		t.Fatalf("expected deadline-out-of-range, got %v", err)
	}
	// boundary equal is allowed
	if _, err := env.Engine.AddStage(env.Ctx, engine.AddStageOptions{
		ProjectID: "p1", MasterID: "iv1", Title: "Οριακό",
		Deadline: "2026-12-31T00:00:00Z", Actor: "tester",
	}); err != nil {
		t.Fatalf("boundary deadline should pass: %v", err)
	}
}

func TestProjectDeadlineCannotStrandStages(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, "p1")
	env.addIntervention(t, "p1", "iv1")
	if _, err := env.Engine.AddStage(env.Ctx, engine.AddStageOptions{
		ProjectID: "p1", MasterID: "iv1", Title: "Μετά τα μέσα",
		Deadline: "2026-09-01T00:00:00Z", Actor: "tester",
	}); err != nil {
		t.Fatalf("add stage: %v", err)
	}
	newDeadline := "2026-06-01T00:00:00Z"
	_, err := env.Engine.UpdateProject(env.Ctx, engine.UpdateProjectOptions{
		ProjectID: "p1", Deadline: &newDeadline, Actor: "tester",
	})
	var ve validate.Error
	if !errors.As(err, &ve) || ve.Kind != validate.KindDeadlineOutOfRange {
		t.Fatalf("expected deadline-out-of-range, got %v", err)
	}
}

func TestFullCompletionDerivesCompleted(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, "p1")
	env.addIntervention(t, "p1", "iv1")
	p := env.addStage(t, "p1", "iv1", "Μοναδικό στάδιο")
	st := stageAt(t, p, "iv1", 0)
	env.mustTransition(t, "p1", "iv1", st.ID, domain.StageInProgress)
	p = env.mustTransition(t, "p1", "iv1", st.ID, domain.StageCompleted)
	if p.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", p.Progress)
	}
	if p.Status != domain.StatusCompleted {
		t.Fatalf("expected Completed, got %s", p.Status)
	}
}

func TestOverdueStageRaisesAlert(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, "p1")
	if _, err := env.Engine.ActivateProject(env.Ctx, "p1", "tester"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	env.addIntervention(t, "p1", "iv1")
	if _, err := env.Engine.AddStage(env.Ctx, engine.AddStageOptions{
		ProjectID: "p1", MasterID: "iv1", Title: "Καθυστερημένο",
		Deadline: "2026-03-01T00:00:00Z", Actor: "tester",
	}); err != nil {
		t.Fatalf("add stage: %v", err)
	}

	// client-mode read after the deadline has passed
	env.Engine.Now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	p, err := env.Engine.GetProject(env.Ctx, "p1")
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if p.Status != domain.StatusDelayed {
		t.Fatalf("expected Delayed, got %s", p.Status)
	}
	if p.Alerts != 1 {
		t.Fatalf("expected 1 alert, got %d", p.Alerts)
	}

	// the stored document is time-insensitive: reloading directly shows no alert
	stored, err := env.Store.LoadProject(env.Ctx, "p1")
	if err != nil {
		t.Fatalf("load stored: %v", err)
	}
	if stored.Alerts != 0 || stored.Status != domain.StatusOnTrack {
		t.Fatalf("stored aggregate should be clock-free, got status=%s alerts=%d", stored.Status, stored.Alerts)
	}
}

func TestQuotationNeverDelayed(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, "p1")
	env.addIntervention(t, "p1", "iv1")
	if _, err := env.Engine.AddStage(env.Ctx, engine.AddStageOptions{
		ProjectID: "p1", MasterID: "iv1", Title: "Παλιό στάδιο",
		Deadline: "2026-02-01T00:00:00Z", Actor: "tester",
	}); err != nil {
		t.Fatalf("add stage: %v", err)
	}
	env.Engine.Now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	p, err := env.Engine.GetProject(env.Ctx, "p1")
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if p.Status != domain.StatusQuotation {
		t.Fatalf("expected sticky Quotation, got %s", p.Status)
	}
	if p.Alerts != 0 {
		t.Fatalf("quotation projects never alert, got %d", p.Alerts)
	}
}

func TestMoveSubInterventionBounds(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, "p1")
	env.addIntervention(t, "p1", "iv1")
	for _, desc := range []string{"Πρώτο είδος", "Δεύτερο είδος"} {
		if _, err := env.Engine.AddSubIntervention(env.Ctx, engine.AddSubInterventionOptions{
			ProjectID: "p1", MasterID: "iv1", Description: desc, Cost: 100, Actor: "tester",
		}); err != nil {
			t.Fatalf("add sub: %v", err)
		}
	}
	// moving the first item up has no neighbor
	p, moved, err := env.Engine.MoveSubIntervention(env.Ctx, engine.MoveSubInterventionOptions{
		ProjectID: "p1", MasterID: "iv1", Index: 0, Direction: "up", Actor: "tester",
	})
	if err != nil || moved {
		t.Fatalf("expected reported no-op, got moved=%v err=%v", moved, err)
	}
	p, moved, err = env.Engine.MoveSubIntervention(env.Ctx, engine.MoveSubInterventionOptions{
		ProjectID: "p1", MasterID: "iv1", Index: 0, Direction: "down", Actor: "tester",
	})
	if err != nil || !moved {
		t.Fatalf("expected move, got moved=%v err=%v", moved, err)
	}
	if got := p.Interventions[0].SubInterventions[0].Description; got != "Δεύτερο είδος" {
		t.Fatalf("expected swap, first item is %q", got)
	}
}

func TestMoveStageSkipsOtherLanes(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, "p1")
	env.addIntervention(t, "p1", "iv1")
	env.addStage(t, "p1", "iv1", "Πρώτο")
	p := env.addStage(t, "p1", "iv1", "Δεύτερο")
	p = env.addStage(t, "p1", "iv1", "Τρίτο")

	// middle stage moves to another lane
	mid := stageAt(t, p, "iv1", 1)
	env.mustTransition(t, "p1", "iv1", mid.ID, domain.StageInProgress)

	// moving the last pending stage up must skip the in-progress one
	p, moved, err := env.Engine.MoveStage(env.Ctx, engine.MoveStageOptions{
		ProjectID: "p1", MasterID: "iv1", Index: 2, Direction: "up", Actor: "tester",
	})
	if err != nil || !moved {
		t.Fatalf("expected lane move, got moved=%v err=%v", moved, err)
	}
	if got := stageAt(t, p, "iv1", 0).Title; got != "Τρίτο" {
		t.Fatalf("expected Τρίτο first after lane swap, got %q", got)
	}
	if got := stageAt(t, p, "iv1", 1).Title; got != "Δεύτερο" {
		t.Fatalf("expected in-progress stage untouched in the middle, got %q", got)
	}

	// the in-progress stage has no same-status neighbor: reported no-op
	_, moved, err = env.Engine.MoveStage(env.Ctx, engine.MoveStageOptions{
		ProjectID: "p1", MasterID: "iv1", Index: 1, Direction: "up", Actor: "tester",
	})
	if err != nil || moved {
		t.Fatalf("expected no-op without same-status neighbor, got moved=%v err=%v", moved, err)
	}
}

func TestAuditTrailNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, "p1")
	env.addIntervention(t, "p1", "iv1")
	p, err := env.Engine.GetProject(env.Ctx, "p1")
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if len(p.AuditLog) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(p.AuditLog))
	}
	if p.AuditLog[0].Action != "intervention added" || p.AuditLog[1].Action != "project created" {
		t.Fatalf("expected newest first, got %s then %s", p.AuditLog[0].Action, p.AuditLog[1].Action)
	}
}

func TestMissingTargetsReturnNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, "p1")

	var nfe engine.NotFoundError
	_, err := env.Engine.GetProject(env.Ctx, "nope")
	if !errors.As(err, &nfe) || nfe.Kind != "project" {
		t.Fatalf("expected project not found, got %v", err)
	}
	_, err = env.Engine.AddStage(env.Ctx, engine.AddStageOptions{
		ProjectID: "p1", MasterID: "ghost", Title: "Στάδιο", Actor: "tester",
	})
	if !errors.As(err, &nfe) || nfe.Kind != "intervention" {
		t.Fatalf("expected intervention not found, got %v", err)
	}
	_, err = env.Engine.CreateProject(env.Ctx, engine.CreateProjectOptions{
		Title: "Με ανύπαρκτη επαφή", Deadline: "2026-12-31T00:00:00Z",
		OwnerContactID: "ghost", Actor: "tester",
	})
	if !errors.As(err, &nfe) || nfe.Kind != "contact" {
		t.Fatalf("expected contact not found, got %v", err)
	}
}

func (env testEnv) mustTransition(t *testing.T, projectID, masterID, stageID, status string) domain.Project {
	t.Helper()
	p, err := env.Engine.TransitionStage(env.Ctx, projectID, masterID, stageID, status, "tester")
	if err != nil {
		t.Fatalf("transition to %s: %v", status, err)
	}
	return p
}
