package metrics_test

import (
	"reflect"
	"testing"
	"time"

	"renoline/internal/domain"
	"renoline/internal/metrics"
)

func fptr(v float64) *float64 { return &v }

func stage(status, deadline string) domain.Stage {
	return domain.Stage{ID: "st-" + status, Title: "Στάδιο", Status: status, Deadline: deadline}
}

func TestProgressRounding(t *testing.T) {
	p := domain.Project{
		Status: domain.StatusOnTrack,
		Interventions: []domain.Intervention{{
			MasterID: "iv1",
			Category: "Κουφώματα",
			Stages: []domain.Stage{
				stage(domain.StageCompleted, ""),
				stage(domain.StagePending, ""),
				stage(domain.StagePending, ""),
			},
		}},
	}
	out := metrics.Compute(p, metrics.Options{})
	if out.Progress != 33 {
		t.Fatalf("expected 1/3 to round to 33, got %d", out.Progress)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	p := domain.Project{
		Status: domain.StatusOnTrack,
		Interventions: []domain.Intervention{{
			MasterID:  "iv1",
			Category:  "Θερμομόνωση",
			TotalCost: 5000,
			SubInterventions: []domain.SubIntervention{
				{ID: "s1", Description: "Μόνωση", Cost: 120.50},
				{ID: "s2", Description: "Στεγάνωση", Cost: 79.50},
			},
			Stages: []domain.Stage{stage(domain.StagePending, "")},
		}},
	}
	once := metrics.Compute(p, metrics.Options{})
	twice := metrics.Compute(once, metrics.Options{})
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second pass changed the aggregate:\nonce:  %+v\ntwice: %+v", once, twice)
	}
	if once.Interventions[0].TotalCost != 200 {
		t.Fatalf("expected sub sum 200 to override seed, got %v", once.Interventions[0].TotalCost)
	}
	if once.Budget != 200 {
		t.Fatalf("expected budget 200, got %v", once.Budget)
	}
}

func TestQuotationStatusIsSticky(t *testing.T) {
	p := domain.Project{
		Status: domain.StatusQuotation,
		Interventions: []domain.Intervention{{
			MasterID: "iv1",
			Category: "Κουφώματα",
			Stages:   []domain.Stage{stage(domain.StagePending, "2020-01-01T00:00:00Z")},
		}},
	}
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	out := metrics.Compute(p, metrics.Options{TimeSensitive: true, Now: now})
	if out.Status != domain.StatusQuotation {
		t.Fatalf("expected sticky Quotation, got %s", out.Status)
	}
	if out.Alerts != 0 {
		t.Fatalf("quotation suppresses alerts, got %d", out.Alerts)
	}
}

func TestFullCompletionForcesCompleted(t *testing.T) {
	for _, stored := range []string{domain.StatusQuotation, domain.StatusOnTrack} {
		p := domain.Project{
			Status: stored,
			Interventions: []domain.Intervention{{
				MasterID: "iv1",
				Category: "Κουφώματα",
				Stages:   []domain.Stage{stage(domain.StageCompleted, "")},
			}},
		}
		out := metrics.Compute(p, metrics.Options{})
		if out.Status != domain.StatusCompleted {
			t.Fatalf("stored %s with all stages done: expected Completed, got %s", stored, out.Status)
		}
	}
}

func TestOverdueDetection(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	p := domain.Project{
		Status: domain.StatusOnTrack,
		Interventions: []domain.Intervention{{
			MasterID: "iv1",
			Category: "Κουφώματα",
			Stages: []domain.Stage{
				stage(domain.StagePending, "2026-03-01T00:00:00Z"),
				stage(domain.StageFailed, "2026-03-01T00:00:00Z"),
				stage(domain.StagePending, "not-a-date"),
				stage(domain.StagePending, ""),
			},
		}},
	}
	out := metrics.Compute(p, metrics.Options{TimeSensitive: true, Now: now})
	if out.Status != domain.StatusDelayed {
		t.Fatalf("expected Delayed, got %s", out.Status)
	}
	// failed, malformed and absent deadlines never count
	if out.Alerts != 1 {
		t.Fatalf("expected exactly 1 alert, got %d", out.Alerts)
	}

	// the canonical pass ignores the clock entirely
	out = metrics.Compute(p, metrics.Options{Now: now})
	if out.Status != domain.StatusOnTrack || out.Alerts != 0 {
		t.Fatalf("canonical pass should be clock-free, got status=%s alerts=%d", out.Status, out.Alerts)
	}
}

func TestDisplayCodeRomanSuffix(t *testing.T) {
	p := domain.Project{
		Status: domain.StatusOnTrack,
		Interventions: []domain.Intervention{{
			MasterID:        "iv1",
			Category:        "Κουφώματα",
			ExpenseCategory: "Κουφώματα (II)",
			SubInterventions: []domain.SubIntervention{
				{ID: "s1", Description: "Με δικό του", SubcategoryCode: "1.A1", ExpenseCategory: "Ειδική δαπάνη (IV)", Cost: 100},
				{ID: "s2", Description: "Κληρονομεί", SubcategoryCode: "1.B1", Cost: 100},
				{ID: "s3", Description: "Χωρίς δείκτη", SubcategoryCode: "2.A1", ExpenseCategory: "Απλή δαπάνη", Cost: 100},
			},
		}},
	}
	out := metrics.Compute(p, metrics.Options{})
	subs := out.Interventions[0].SubInterventions
	if subs[0].DisplayCode != "1.A1 (IV)" {
		t.Fatalf("own expense category: got %q", subs[0].DisplayCode)
	}
	if subs[1].DisplayCode != "1.B1 (II)" {
		t.Fatalf("inherited expense category: got %q", subs[1].DisplayCode)
	}
	if subs[2].DisplayCode != "2.A1" {
		t.Fatalf("no roman marker: got %q", subs[2].DisplayCode)
	}
}

func TestInterventionsSortedByGreekCollation(t *testing.T) {
	p := domain.Project{
		Status: domain.StatusOnTrack,
		Interventions: []domain.Intervention{
			{MasterID: "iv1", Category: "Ψύξη"},
			{MasterID: "iv2", Category: "Αντλία θερμότητας"},
			{MasterID: "iv3", Category: "Κουφώματα"},
		},
	}
	out := metrics.Compute(p, metrics.Options{})
	got := []string{
		out.Interventions[0].Category,
		out.Interventions[1].Category,
		out.Interventions[2].Category,
	}
	want := []string{"Αντλία θερμότητας", "Κουφώματα", "Ψύξη"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected Greek alphabetical order %v, got %v", want, got)
	}
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	p := domain.Project{
		Status: domain.StatusOnTrack,
		Interventions: []domain.Intervention{{
			MasterID:         "iv1",
			Category:         "Κουφώματα",
			TotalCost:        4400,
			SubInterventions: []domain.SubIntervention{{ID: "s1", Description: "Παράθυρο", Cost: 200}},
		}},
	}
	metrics.Compute(p, metrics.Options{})
	if p.Interventions[0].TotalCost != 4400 {
		t.Fatalf("input aggregate was mutated: %v", p.Interventions[0].TotalCost)
	}
}

func TestProfitability(t *testing.T) {
	s := domain.SubIntervention{
		Description:     "Αντικατάσταση λέβητα",
		Cost:            1000,
		CostOfMaterials: fptr(300),
		CostOfLabor:     fptr(200),
	}
	got := metrics.Profitability(s)
	if got.Profit != 500 || got.InternalCost != 500 {
		t.Fatalf("expected profit 500 on internal 500, got %+v", got)
	}
	if got.Margin != 50 {
		t.Fatalf("expected margin 50, got %v", got.Margin)
	}

	zero := metrics.Profitability(domain.SubIntervention{Description: "Δωρεάν", Cost: 0, CostOfLabor: fptr(100)})
	if zero.Margin != 0 {
		t.Fatalf("zero cost must have zero margin, got %v", zero.Margin)
	}
	if zero.Profit != -100 {
		t.Fatalf("expected profit -100, got %v", zero.Profit)
	}
}

func TestProjectProfitRollsUp(t *testing.T) {
	p := domain.Project{
		Interventions: []domain.Intervention{
			{
				MasterID: "iv1",
				SubInterventions: []domain.SubIntervention{
					{Description: "Πρώτο", Cost: 1000, CostOfMaterials: fptr(300), CostOfLabor: fptr(200)},
				},
			},
			{
				MasterID: "iv2",
				SubInterventions: []domain.SubIntervention{
					{Description: "Δεύτερο", Cost: 500, CostOfMaterials: fptr(250)},
				},
			},
		},
	}
	got := metrics.ProjectProfit(p)
	if got.Cost != 1500 || got.InternalCost != 750 || got.Profit != 750 {
		t.Fatalf("unexpected rollup %+v", got)
	}
	if got.Margin != 50 {
		t.Fatalf("expected margin 50, got %v", got.Margin)
	}
}
