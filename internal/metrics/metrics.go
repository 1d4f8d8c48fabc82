// Package metrics derives progress, status, budget and alert counts from a
// project aggregate. Compute is pure and total: it never fails, treats
// malformed optional fields as absent, and always returns a full copy.
package metrics

import (
	"math"
	"regexp"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"renoline/internal/domain"
)

// Options select the computation mode. TimeSensitive enables overdue
// detection against Now (client rendering); the server-side canonical pass
// leaves it off so stored numbers are independent of the wall clock.
type Options struct {
	TimeSensitive bool
	Now           time.Time
	Locale        language.Tag
}

var romanSuffix = regexp.MustCompile(`\((I|II|III|IV|V|VI|VII|VIII|IX|X)\)`)

// Compute recomputes every derived field of the aggregate. Calling it twice
// with the same options yields the same result.
func Compute(p domain.Project, opts Options) domain.Project {
	out := p.Clone()

	var totalStages, completedStages, overdueStages int
	for i := range out.Interventions {
		iv := &out.Interventions[i]
		for _, st := range iv.Stages {
			totalStages++
			switch st.Status {
			case domain.StageCompleted:
				completedStages++
			case domain.StageFailed:
				// terminal, never overdue
			default:
				if opts.TimeSensitive && isOverdue(st.Deadline, opts.Now) {
					overdueStages++
				}
			}
		}
		if len(iv.SubInterventions) > 0 {
			sum := 0.0
			for _, s := range iv.SubInterventions {
				sum += s.Cost
			}
			iv.TotalCost = sum
		}
		for j := range iv.SubInterventions {
			s := &iv.SubInterventions[j]
			s.DisplayCode = displayCode(*s, *iv)
		}
	}

	out.Progress = 0
	if totalStages > 0 {
		out.Progress = int(math.Round(float64(completedStages) / float64(totalStages) * 100))
	}

	out.Status = deriveStatus(p.Status, out.Progress, totalStages, overdueStages, opts.TimeSensitive)

	budget := 0.0
	for _, iv := range out.Interventions {
		budget += iv.TotalCost
	}
	out.Budget = budget

	out.Alerts = 0
	if opts.TimeSensitive && out.Status != domain.StatusQuotation {
		out.Alerts = overdueStages
	}

	sortInterventions(out.Interventions, opts.Locale)
	return out
}

func deriveStatus(stored string, progress, totalStages, overdue int, timeSensitive bool) string {
	allDone := progress == 100 && totalStages > 0
	if stored == domain.StatusQuotation || stored == domain.StatusCompleted {
		if allDone {
			return domain.StatusCompleted
		}
		return stored
	}
	if allDone {
		return domain.StatusCompleted
	}
	if timeSensitive && overdue > 0 {
		return domain.StatusDelayed
	}
	return domain.StatusOnTrack
}

func isOverdue(deadline string, now time.Time) bool {
	if deadline == "" || now.IsZero() {
		return false
	}
	d, err := time.Parse(time.RFC3339, deadline)
	if err != nil {
		return false
	}
	return d.Before(now)
}

// displayCode suffixes the subcategory code with the roman-numeral marker
// embedded in the expense-category label, e.g. "1.A1" + "… (II)" -> "1.A1 (II)".
// Cosmetic only; never part of identity.
func displayCode(s domain.SubIntervention, iv domain.Intervention) string {
	source := s.ExpenseCategory
	if source == "" {
		source = iv.ExpenseCategory
	}
	code := s.SubcategoryCode
	if m := romanSuffix.FindStringSubmatch(source); m != nil {
		code += " (" + m[1] + ")"
	}
	return code
}

// sortInterventions orders interventions by display name with a
// locale-aware comparator. The stored titles are Greek, so the default
// collator is Greek; the sort is stable and re-applied on every pass rather
// than persisted.
func sortInterventions(ivs []domain.Intervention, locale language.Tag) {
	if locale == (language.Tag{}) {
		locale = language.Greek
	}
	c := collate.New(locale)
	sort.SliceStable(ivs, func(i, j int) bool {
		return c.CompareString(ivs[i].DisplayName(), ivs[j].DisplayName()) < 0
	})
}
