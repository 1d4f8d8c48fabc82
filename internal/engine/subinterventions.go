package engine

import (
	"context"
	"fmt"

	"renoline/internal/domain"
	"renoline/internal/validate"
)

// AddSubInterventionOptions are parameters for adding a priced line item
// under an intervention.
type AddSubInterventionOptions struct {
	ProjectID          string
	MasterID           string
	SubcategoryCode    string
	ExpenseCategory    string
	Description        string
	Quantity           *float64
	QuantityUnit       string
	Cost               float64
	CostOfMaterials    *float64
	CostOfLabor        *float64
	UnitCost           *float64
	SelectedEnergySpec string
	Actor              string
}

func (e Engine) AddSubIntervention(ctx context.Context, opts AddSubInterventionOptions) (domain.Project, error) {
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
	if err := validateSubFields(opts.Description, opts.Cost, opts.Quantity, opts.CostOfMaterials, opts.CostOfLabor); err != nil {
		return domain.Project{}, err
	}
	sub := domain.SubIntervention{
		ID:                 e.newID(),
		SubcategoryCode:    opts.SubcategoryCode,
		ExpenseCategory:    opts.ExpenseCategory,
		Description:        opts.Description,
		Quantity:           opts.Quantity,
		QuantityUnit:       opts.QuantityUnit,
		Cost:               opts.Cost,
		CostOfMaterials:    opts.CostOfMaterials,
		CostOfLabor:        opts.CostOfLabor,
		UnitCost:           opts.UnitCost,
		SelectedEnergySpec: opts.SelectedEnergySpec,
	}
	iv.SubInterventions = append(iv.SubInterventions, sub)
	iv.TotalCost = subTotal(*iv)
	return e.commit(ctx, p, opts.Actor, "sub-intervention added",
		fmt.Sprintf("added %q (%.2f EUR) to intervention %q", sub.Description, sub.Cost, iv.DisplayName()))
}

// UpdateSubInterventionOptions encapsulates allowed sub-intervention updates.
type UpdateSubInterventionOptions struct {
	ProjectID           string
	MasterID            string
	SubID               string
	SubcategoryCode     *string
	ExpenseCategory     *string
	Description         *string
	Quantity            *float64
	QuantityUnit        *string
	Cost                *float64
	CostOfMaterials     *float64
	CostOfLabor         *float64
	UnitCost            *float64
	ImplementedQuantity *float64
	SelectedEnergySpec  *string
	Actor               string
}

func (e Engine) UpdateSubIntervention(ctx context.Context, opts UpdateSubInterventionOptions) (domain.Project, error) {
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
	sub, _, err := findSubIntervention(iv, opts.SubID)
	if err != nil {
		return domain.Project{}, err
	}
	if opts.Description != nil {
		if err := validate.Title("description", *opts.Description); err != nil {
			return domain.Project{}, err
		}
		sub.Description = *opts.Description
	}
	if opts.Cost != nil {
		if err := validate.Positive("cost", *opts.Cost); err != nil {
			return domain.Project{}, err
		}
		sub.Cost = *opts.Cost
	}
	if opts.Quantity != nil {
		if err := validate.NonNegative("quantity", *opts.Quantity); err != nil {
			return domain.Project{}, err
		}
		sub.Quantity = opts.Quantity
	}
	if opts.CostOfMaterials != nil {
		if err := validate.NonNegative("cost_of_materials", *opts.CostOfMaterials); err != nil {
			return domain.Project{}, err
		}
		sub.CostOfMaterials = opts.CostOfMaterials
	}
	if opts.CostOfLabor != nil {
		if err := validate.NonNegative("cost_of_labor", *opts.CostOfLabor); err != nil {
			return domain.Project{}, err
		}
		sub.CostOfLabor = opts.CostOfLabor
	}
	if opts.ImplementedQuantity != nil {
		if err := validate.NonNegative("implemented_quantity", *opts.ImplementedQuantity); err != nil {
			return domain.Project{}, err
		}
		sub.ImplementedQuantity = opts.ImplementedQuantity
	}
	if opts.SubcategoryCode != nil {
		sub.SubcategoryCode = *opts.SubcategoryCode
	}
	if opts.ExpenseCategory != nil {
		sub.ExpenseCategory = *opts.ExpenseCategory
	}
	if opts.QuantityUnit != nil {
		sub.QuantityUnit = *opts.QuantityUnit
	}
	if opts.UnitCost != nil {
		sub.UnitCost = opts.UnitCost
	}
	if opts.SelectedEnergySpec != nil {
		sub.SelectedEnergySpec = *opts.SelectedEnergySpec
	}
	iv.TotalCost = subTotal(*iv)
	return e.commit(ctx, p, opts.Actor, "sub-intervention updated",
		fmt.Sprintf("updated %q under intervention %q", sub.Description, iv.DisplayName()))
}

func (e Engine) DeleteSubIntervention(ctx context.Context, projectID, masterID, subID, actor string) (domain.Project, error) {
	p, err := e.load(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	iv, err := findIntervention(&p, masterID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := validate.InterventionEditable(*iv); err != nil {
		return domain.Project{}, err
	}
	sub, idx, err := findSubIntervention(iv, subID)
	if err != nil {
		return domain.Project{}, err
	}
	desc := sub.Description
	iv.SubInterventions = append(iv.SubInterventions[:idx], iv.SubInterventions[idx+1:]...)
	iv.TotalCost = subTotal(*iv)
	return e.commit(ctx, p, actor, "sub-intervention deleted",
		fmt.Sprintf("deleted %q from intervention %q", desc, iv.DisplayName()))
}

// MoveSubInterventionOptions reorder a line item by swapping it with its
// physically adjacent neighbor.
type MoveSubInterventionOptions struct {
	ProjectID string
	MasterID  string
	Index     int
	Direction string // "up" or "down"
	Actor     string
}

// MoveSubIntervention swaps the item at Index with the adjacent one in the
// requested direction. Out of bounds is a reported no-op, not an error.
func (e Engine) MoveSubIntervention(ctx context.Context, opts MoveSubInterventionOptions) (domain.Project, bool, error) {
	p, err := e.load(ctx, opts.ProjectID)
	if err != nil {
		return domain.Project{}, false, err
	}
	iv, err := findIntervention(&p, opts.MasterID)
	if err != nil {
		return domain.Project{}, false, err
	}
	subs := iv.SubInterventions
	if opts.Index < 0 || opts.Index >= len(subs) {
		return p, false, nil
	}
	target := opts.Index - 1
	if opts.Direction == "down" {
		target = opts.Index + 1
	}
	if target < 0 || target >= len(subs) {
		return p, false, nil
	}
	subs[opts.Index], subs[target] = subs[target], subs[opts.Index]
	p, err = e.commit(ctx, p, opts.Actor, "sub-intervention moved",
		fmt.Sprintf("moved %q %s in intervention %q", subs[target].Description, opts.Direction, iv.DisplayName()))
	if err != nil {
		return domain.Project{}, false, err
	}
	return p, true, nil
}

func validateSubFields(description string, cost float64, quantity, materials, labor *float64) error {
	if err := validate.Title("description", description); err != nil {
		return err
	}
	if err := validate.Positive("cost", cost); err != nil {
		return err
	}
	if quantity != nil {
		if err := validate.NonNegative("quantity", *quantity); err != nil {
			return err
		}
	}
	if materials != nil {
		if err := validate.NonNegative("cost_of_materials", *materials); err != nil {
			return err
		}
	}
	if labor != nil {
		if err := validate.NonNegative("cost_of_labor", *labor); err != nil {
			return err
		}
	}
	return nil
}
