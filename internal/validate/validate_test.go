package validate_test

import (
	"errors"
	"testing"

	"renoline/internal/domain"
	"renoline/internal/validate"
)

func kindOf(t *testing.T, err error) validate.Kind {
	t.Helper()
	var ve validate.Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected validate.Error, got %v", err)
	}
	return ve.Kind
}

func TestTitle(t *testing.T) {
	if err := validate.Title("title", "Ανακαίνιση"); err != nil {
		t.Fatalf("valid title rejected: %v", err)
	}
	if kind := kindOf(t, validate.Title("title", "  ab  ")); kind != validate.KindTitleTooShort {
		t.Fatalf("expected title-too-short, got %s", kind)
	}
}

func TestNumericBounds(t *testing.T) {
	if err := validate.NonNegative("cost", 0); err != nil {
		t.Fatalf("zero should be non-negative: %v", err)
	}
	if kindOf(t, validate.NonNegative("cost", -0.01)) != validate.KindNonPositiveValue {
		t.Fatal("expected non-positive-value for negative cost")
	}
	if err := validate.Positive("max_amount", 0.01); err != nil {
		t.Fatalf("positive value rejected: %v", err)
	}
	if kindOf(t, validate.Positive("max_amount", 0)) != validate.KindNonPositiveValue {
		t.Fatal("expected non-positive-value for zero max_amount")
	}
	if err := validate.MinQuantity("quantity", 0.1); err != nil {
		t.Fatalf("quantity at the floor rejected: %v", err)
	}
	if kindOf(t, validate.MinQuantity("quantity", 0.09)) != validate.KindNonPositiveValue {
		t.Fatal("expected non-positive-value below the 0.1 floor")
	}
}

func TestInstant(t *testing.T) {
	if err := validate.Instant("deadline", ""); err != nil {
		t.Fatalf("empty instant should pass: %v", err)
	}
	if err := validate.Instant("deadline", "2026-12-31T00:00:00Z"); err != nil {
		t.Fatalf("RFC3339 rejected: %v", err)
	}
	if kindOf(t, validate.Instant("deadline", "31/12/2026")) != validate.KindDeadlineOutOfRange {
		t.Fatal("expected deadline-out-of-range for non-RFC3339 value")
	}
}

func TestStageDeadline(t *testing.T) {
	p := domain.Project{Deadline: "2026-12-31T00:00:00Z"}

	if err := validate.StageDeadline(p, "2026-06-01T00:00:00Z"); err != nil {
		t.Fatalf("in-range deadline rejected: %v", err)
	}
	// exactly at the project boundary is allowed
	if err := validate.StageDeadline(p, "2026-12-31T00:00:00Z"); err != nil {
		t.Fatalf("boundary deadline rejected: %v", err)
	}
	if kindOf(t, validate.StageDeadline(p, "2027-01-01T00:00:00Z")) != validate.KindDeadlineOutOfRange {
		t.Fatal("expected deadline-out-of-range beyond the project deadline")
	}
	// a malformed project deadline behaves as absent
	loose := domain.Project{Deadline: "soon"}
	if err := validate.StageDeadline(loose, "2099-01-01T00:00:00Z"); err != nil {
		t.Fatalf("malformed project deadline should not bind: %v", err)
	}
	if err := validate.StageDeadline(domain.Project{}, "2099-01-01T00:00:00Z"); err != nil {
		t.Fatalf("unbounded project should accept any deadline: %v", err)
	}
}

func TestProjectDeadline(t *testing.T) {
	p := domain.Project{
		Deadline: "2026-12-31T00:00:00Z",
		Interventions: []domain.Intervention{{
			MasterID: "iv1",
			Stages: []domain.Stage{
				{ID: "st1", Title: "Αποξήλωση", Deadline: "2026-09-01T00:00:00Z"},
				{ID: "st2", Title: "Χωρίς προθεσμία"},
			},
		}},
	}
	if err := validate.ProjectDeadline(p, "2026-10-01T00:00:00Z"); err != nil {
		t.Fatalf("tightening above latest stage rejected: %v", err)
	}
	if kindOf(t, validate.ProjectDeadline(p, "2026-06-01T00:00:00Z")) != validate.KindDeadlineOutOfRange {
		t.Fatal("expected deadline-out-of-range when a stage would be stranded")
	}
}

func TestInterventionLocks(t *testing.T) {
	editable := domain.Intervention{Stages: []domain.Stage{
		{Title: "Α", Status: domain.StagePending},
		{Title: "Β", Status: domain.StageInProgress},
		{Title: "Γ", Status: domain.StageFailed},
	}}
	if err := validate.InterventionEditable(editable); err != nil {
		t.Fatalf("no completed stage, should be editable: %v", err)
	}
	locked := domain.Intervention{Stages: []domain.Stage{
		{Title: "Α", Status: domain.StageCompleted},
	}}
	if kindOf(t, validate.InterventionEditable(locked)) != validate.KindLockedForEdit {
		t.Fatal("expected locked-for-edit with a completed stage")
	}

	// deletion is stricter: every stage must still be pending
	if kindOf(t, validate.InterventionDeletable(editable)) != validate.KindLockedForEdit {
		t.Fatal("expected locked-for-edit with an in-progress stage")
	}
	allPending := domain.Intervention{Stages: []domain.Stage{
		{Title: "Α", Status: domain.StagePending},
	}}
	if err := validate.InterventionDeletable(allPending); err != nil {
		t.Fatalf("all-pending intervention should be deletable: %v", err)
	}
}

func TestStageEditable(t *testing.T) {
	if err := validate.StageEditable(domain.Stage{Status: domain.StageFailed}); err != nil {
		t.Fatalf("failed stage stays editable: %v", err)
	}
	if kindOf(t, validate.StageEditable(domain.Stage{Status: domain.StageCompleted})) != validate.KindLockedForEdit {
		t.Fatal("expected locked-for-edit for completed stage")
	}
}

func TestUniqueMasterID(t *testing.T) {
	p := domain.Project{Interventions: []domain.Intervention{{MasterID: "iv1"}}}
	if err := validate.UniqueMasterID(p, "iv2"); err != nil {
		t.Fatalf("fresh id rejected: %v", err)
	}
	if kindOf(t, validate.UniqueMasterID(p, "iv1")) != validate.KindDuplicateKey {
		t.Fatal("expected duplicate-key for reused master id")
	}
}
