package engine

import (
	"context"
	"fmt"

	"renoline/internal/domain"
	"renoline/internal/validate"
)

// ensureStageTransition guards the stage state machine:
// pending -> in progress -> {completed | failed}; a terminal stage can only
// be restarted back to in progress. Invalid requests are rejected, never
// clamped.
func ensureStageTransition(oldStatus, newStatus string) error {
	switch oldStatus {
	case domain.StagePending:
		if newStatus == domain.StageInProgress {
			return nil
		}
	case domain.StageInProgress:
		if newStatus == domain.StageCompleted || newStatus == domain.StageFailed {
			return nil
		}
	case domain.StageCompleted, domain.StageFailed:
		if newStatus == domain.StageInProgress {
			return nil
		}
	}
	return InvalidTransitionError{Entity: "stage", From: oldStatus, To: newStatus}
}

// AddStageOptions are parameters for adding an execution stage.
type AddStageOptions struct {
	ProjectID           string
	MasterID            string
	Title               string
	Deadline            string
	Notes               string
	AssigneeContactID   string
	SupervisorContactID string
	Actor               string
}

func (e Engine) AddStage(ctx context.Context, opts AddStageOptions) (domain.Project, error) {
	p, err := e.load(ctx, opts.ProjectID)
	if err != nil {
		return domain.Project{}, err
	}
	iv, err := findIntervention(&p, opts.MasterID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := validate.Title("title", opts.Title); err != nil {
		return domain.Project{}, err
	}
	if err := validate.StageDeadline(p, opts.Deadline); err != nil {
		return domain.Project{}, err
	}
	if err := e.ensureContact(ctx, opts.AssigneeContactID); err != nil {
		return domain.Project{}, err
	}
	if err := e.ensureContact(ctx, opts.SupervisorContactID); err != nil {
		return domain.Project{}, err
	}
	st := domain.Stage{
		ID:                  e.newID(),
		Title:               opts.Title,
		Status:              domain.StagePending,
		Deadline:            opts.Deadline,
		LastUpdated:         e.nowString(),
		Notes:               opts.Notes,
		AssigneeContactID:   opts.AssigneeContactID,
		SupervisorContactID: opts.SupervisorContactID,
		Files:               []domain.StageFile{},
	}
	iv.Stages = append(iv.Stages, st)
	return e.commit(ctx, p, opts.Actor, "stage added",
		fmt.Sprintf("added stage %q to intervention %q", st.Title, iv.DisplayName()))
}

// UpdateStageOptions encapsulates allowed stage updates. Status is not among
// them: TransitionStage is the only writer of stage status.
type UpdateStageOptions struct {
	ProjectID           string
	MasterID            string
	StageID             string
	Title               *string
	Deadline            *string
	Notes               *string
	AssigneeContactID   *string
	SupervisorContactID *string
	AddFiles            []domain.StageFile
	RemoveFileName      string
	Actor               string
}

func (e Engine) UpdateStage(ctx context.Context, opts UpdateStageOptions) (domain.Project, error) {
	p, err := e.load(ctx, opts.ProjectID)
	if err != nil {
		return domain.Project{}, err
	}
	iv, err := findIntervention(&p, opts.MasterID)
	if err != nil {
		return domain.Project{}, err
	}
	st, err := findStage(iv, opts.StageID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := validate.StageEditable(*st); err != nil {
		return domain.Project{}, err
	}
	if opts.Title != nil {
		if err := validate.Title("title", *opts.Title); err != nil {
			return domain.Project{}, err
		}
		st.Title = *opts.Title
	}
	if opts.Deadline != nil {
		if err := validate.StageDeadline(p, *opts.Deadline); err != nil {
			return domain.Project{}, err
		}
		st.Deadline = *opts.Deadline
	}
	if opts.Notes != nil {
		st.Notes = *opts.Notes
	}
	if opts.AssigneeContactID != nil {
		if err := e.ensureContact(ctx, *opts.AssigneeContactID); err != nil {
			return domain.Project{}, err
		}
		st.AssigneeContactID = *opts.AssigneeContactID
	}
	if opts.SupervisorContactID != nil {
		if err := e.ensureContact(ctx, *opts.SupervisorContactID); err != nil {
			return domain.Project{}, err
		}
		st.SupervisorContactID = *opts.SupervisorContactID
	}
	if len(opts.AddFiles) > 0 {
		st.Files = append(st.Files, opts.AddFiles...)
	}
	if opts.RemoveFileName != "" {
		kept := st.Files[:0]
		for _, f := range st.Files {
			if f.Name != opts.RemoveFileName {
				kept = append(kept, f)
			}
		}
		st.Files = kept
	}
	st.LastUpdated = e.nowString()
	return e.commit(ctx, p, opts.Actor, "stage updated",
		fmt.Sprintf("updated stage %q in intervention %q", st.Title, iv.DisplayName()))
}

func (e Engine) DeleteStage(ctx context.Context, projectID, masterID, stageID, actor string) (domain.Project, error) {
	p, err := e.load(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	iv, err := findIntervention(&p, masterID)
	if err != nil {
		return domain.Project{}, err
	}
	st, err := findStage(iv, stageID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := validate.StageEditable(*st); err != nil {
		return domain.Project{}, err
	}
	title := st.Title
	kept := iv.Stages[:0]
	for _, cur := range iv.Stages {
		if cur.ID != stageID {
			kept = append(kept, cur)
		}
	}
	iv.Stages = kept
	return e.commit(ctx, p, actor, "stage deleted",
		fmt.Sprintf("deleted stage %q from intervention %q", title, iv.DisplayName()))
}

// TransitionStage applies one state-machine step and stamps LastUpdated.
func (e Engine) TransitionStage(ctx context.Context, projectID, masterID, stageID, newStatus, actor string) (domain.Project, error) {
	p, err := e.load(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	iv, err := findIntervention(&p, masterID)
	if err != nil {
		return domain.Project{}, err
	}
	st, err := findStage(iv, stageID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := ensureStageTransition(st.Status, newStatus); err != nil {
		return domain.Project{}, err
	}
	from := st.Status
	st.Status = newStatus
	st.LastUpdated = e.nowString()
	return e.commit(ctx, p, actor, "stage status changed",
		fmt.Sprintf("stage %q moved from %s to %s", st.Title, from, newStatus))
}

// MoveStageOptions reorder a stage within its status lane.
type MoveStageOptions struct {
	ProjectID string
	MasterID  string
	Index     int
	Direction string // "up" or "down"
	Actor     string
}

// MoveStage swaps the stage at Index with the nearest neighbor of the same
// status in the requested direction, skipping over stages in other lanes.
// When no such neighbor exists the call reports an unchanged order.
func (e Engine) MoveStage(ctx context.Context, opts MoveStageOptions) (domain.Project, bool, error) {
	p, err := e.load(ctx, opts.ProjectID)
	if err != nil {
		return domain.Project{}, false, err
	}
	iv, err := findIntervention(&p, opts.MasterID)
	if err != nil {
		return domain.Project{}, false, err
	}
	stages := iv.Stages
	if opts.Index < 0 || opts.Index >= len(stages) {
		return p, false, nil
	}
	status := stages[opts.Index].Status
	target := -1
	if opts.Direction == "down" {
		for i := opts.Index + 1; i < len(stages); i++ {
			if stages[i].Status == status {
				target = i
				break
			}
		}
	} else {
		for i := opts.Index - 1; i >= 0; i-- {
			if stages[i].Status == status {
				target = i
				break
			}
		}
	}
	if target < 0 {
		return p, false, nil
	}
	stages[opts.Index], stages[target] = stages[target], stages[opts.Index]
	p, err = e.commit(ctx, p, opts.Actor, "stage moved",
		fmt.Sprintf("moved stage %q %s in intervention %q", stages[target].Title, opts.Direction, iv.DisplayName()))
	if err != nil {
		return domain.Project{}, false, err
	}
	return p, true, nil
}

// StageLanes groups an intervention's stages into the four presentation
// lanes without changing the underlying order.
func StageLanes(iv domain.Intervention) map[string][]domain.Stage {
	lanes := map[string][]domain.Stage{}
	for _, st := range iv.Stages {
		lanes[st.Status] = append(lanes[st.Status], st)
	}
	return lanes
}
