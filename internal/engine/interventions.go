package engine

import (
	"context"
	"fmt"

	"renoline/internal/domain"
	"renoline/internal/validate"
)

// AddInterventionOptions are parameters for adding an intervention. When
// MaxUnitPrice/MaxAmount are zero they are resolved from the program
// catalog by Code.
type AddInterventionOptions struct {
	ProjectID       string
	MasterID        string
	Code            string
	ExpenseCategory string
	Category        string
	Subcategory     string
	Quantity        float64
	MaxUnitPrice    float64
	MaxAmount       float64
	CostOfMaterials *float64
	CostOfLabor     *float64
	Actor           string
}

// AddIntervention appends an intervention and seeds its total cost from the
// capped program price: min(quantity * max unit price, max amount). The seed
// holds only until sub-interventions exist; from then on their cost sum wins.
func (e Engine) AddIntervention(ctx context.Context, opts AddInterventionOptions) (domain.Project, error) {
	p, err := e.load(ctx, opts.ProjectID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := validate.Title("intervention_category", opts.Category); err != nil {
		return domain.Project{}, err
	}
	if err := validate.MinQuantity("quantity", opts.Quantity); err != nil {
		return domain.Project{}, err
	}
	masterID := opts.MasterID
	if masterID == "" {
		masterID = e.newID()
	}
	if err := validate.UniqueMasterID(p, masterID); err != nil {
		return domain.Project{}, err
	}
	maxUnitPrice, maxAmount := opts.MaxUnitPrice, opts.MaxAmount
	if maxUnitPrice == 0 || maxAmount == 0 {
		if cat, ok := e.Config.Categories[opts.Code]; ok {
			if maxUnitPrice == 0 {
				maxUnitPrice = cat.MaxUnitPrice
			}
			if maxAmount == 0 {
				maxAmount = cat.MaxAmount
			}
		}
	}
	if err := validate.Positive("max_unit_price", maxUnitPrice); err != nil {
		return domain.Project{}, err
	}
	if err := validate.Positive("max_amount", maxAmount); err != nil {
		return domain.Project{}, err
	}
	if opts.CostOfMaterials != nil {
		if err := validate.NonNegative("cost_of_materials", *opts.CostOfMaterials); err != nil {
			return domain.Project{}, err
		}
	}
	if opts.CostOfLabor != nil {
		if err := validate.NonNegative("cost_of_labor", *opts.CostOfLabor); err != nil {
			return domain.Project{}, err
		}
	}
	total := opts.Quantity * maxUnitPrice
	if total > maxAmount {
		total = maxAmount
	}
	iv := domain.Intervention{
		MasterID:         masterID,
		Code:             opts.Code,
		ExpenseCategory:  opts.ExpenseCategory,
		Category:         opts.Category,
		Subcategory:      opts.Subcategory,
		Quantity:         opts.Quantity,
		TotalCost:        total,
		CostOfMaterials:  opts.CostOfMaterials,
		CostOfLabor:      opts.CostOfLabor,
		SubInterventions: []domain.SubIntervention{},
		Stages:           []domain.Stage{},
	}
	p.Interventions = append(p.Interventions, iv)
	return e.commit(ctx, p, opts.Actor, "intervention added",
		fmt.Sprintf("added intervention %q (%.2f EUR)", iv.DisplayName(), total))
}

// UpdateInterventionOptions encapsulates allowed intervention updates.
type UpdateInterventionOptions struct {
	ProjectID       string
	MasterID        string
	Code            *string
	ExpenseCategory *string
	Category        *string
	Subcategory     *string
	Quantity        *float64
	CostOfMaterials *float64
	CostOfLabor     *float64
	Actor           string
}

func (e Engine) UpdateIntervention(ctx context.Context, opts UpdateInterventionOptions) (domain.Project, error) {
	p, err := e.load(ctx, opts.ProjectID)
	if err != nil {
		return domain.Project{}, err
	}
	iv, err := findIntervention(&p, opts.MasterID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := validate.InterventionEditable(*iv); err != nil {
		return domain.Project{}, err
	}
	if opts.Category != nil {
		if err := validate.Title("intervention_category", *opts.Category); err != nil {
			return domain.Project{}, err
		}
		iv.Category = *opts.Category
	}
	if opts.Code != nil {
		iv.Code = *opts.Code
	}
	if opts.ExpenseCategory != nil {
		iv.ExpenseCategory = *opts.ExpenseCategory
	}
	if opts.Subcategory != nil {
		iv.Subcategory = *opts.Subcategory
	}
	if opts.Quantity != nil {
		if err := validate.MinQuantity("quantity", *opts.Quantity); err != nil {
			return domain.Project{}, err
		}
		iv.Quantity = *opts.Quantity
	}
	if opts.CostOfMaterials != nil {
		if err := validate.NonNegative("cost_of_materials", *opts.CostOfMaterials); err != nil {
			return domain.Project{}, err
		}
		iv.CostOfMaterials = opts.CostOfMaterials
	}
	if opts.CostOfLabor != nil {
		if err := validate.NonNegative("cost_of_labor", *opts.CostOfLabor); err != nil {
			return domain.Project{}, err
		}
		iv.CostOfLabor = opts.CostOfLabor
	}
	return e.commit(ctx, p, opts.Actor, "intervention updated",
		fmt.Sprintf("updated intervention %q", iv.DisplayName()))
}

// DeleteIntervention removes an intervention; allowed only while all its
// stages are still pending.
func (e Engine) DeleteIntervention(ctx context.Context, projectID, masterID, actor string) (domain.Project, error) {
	p, err := e.load(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	iv, err := findIntervention(&p, masterID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := validate.InterventionDeletable(*iv); err != nil {
		return domain.Project{}, err
	}
	name := iv.DisplayName()
	kept := p.Interventions[:0]
	for _, cur := range p.Interventions {
		if cur.MasterID != masterID {
			kept = append(kept, cur)
		}
	}
	p.Interventions = kept
	return e.commit(ctx, p, actor, "intervention deleted",
		fmt.Sprintf("deleted intervention %q", name))
}
