package metrics

import "renoline/internal/domain"

// ProfitSummary compares the approved program price (revenue) against the
// actual materials + labor expense for a sub-intervention or a rollup.
type ProfitSummary struct {
	Cost         float64 `json:"cost"`
	InternalCost float64 `json:"internal_cost"`
	Profit       float64 `json:"profit"`
	Margin       float64 `json:"margin"`
}

// Profitability computes the financial rollup for one sub-intervention.
// Margin is zero when the approved cost is zero.
func Profitability(s domain.SubIntervention) ProfitSummary {
	internal := 0.0
	if s.CostOfMaterials != nil {
		internal += *s.CostOfMaterials
	}
	if s.CostOfLabor != nil {
		internal += *s.CostOfLabor
	}
	out := ProfitSummary{
		Cost:         s.Cost,
		InternalCost: internal,
		Profit:       s.Cost - internal,
	}
	if s.Cost > 0 {
		out.Margin = out.Profit / s.Cost * 100
	}
	return out
}

// InterventionProfit sums the per-sub-intervention rollups; the margin is
// recomputed from the summed figures.
func InterventionProfit(iv domain.Intervention) ProfitSummary {
	var out ProfitSummary
	for _, s := range iv.SubInterventions {
		p := Profitability(s)
		out.Cost += p.Cost
		out.InternalCost += p.InternalCost
		out.Profit += p.Profit
	}
	if out.Cost > 0 {
		out.Margin = out.Profit / out.Cost * 100
	}
	return out
}

// ProjectProfit rolls the intervention summaries up to the project.
func ProjectProfit(p domain.Project) ProfitSummary {
	var out ProfitSummary
	for _, iv := range p.Interventions {
		s := InterventionProfit(iv)
		out.Cost += s.Cost
		out.InternalCost += s.InternalCost
		out.Profit += s.Profit
	}
	if out.Cost > 0 {
		out.Margin = out.Profit / out.Cost * 100
	}
	return out
}
