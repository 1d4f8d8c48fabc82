package engine

import (
	"context"
	"fmt"

	"renoline/internal/domain"
	"renoline/internal/metrics"
	"renoline/internal/validate"
)

// CreateProjectOptions are parameters for creating a project.
type CreateProjectOptions struct {
	ID                string
	Title             string
	ApplicationNumber string
	OwnerContactID    string
	Deadline          string
	Actor             string
}

// CreateProject starts a new project in Quotation status with an empty
// intervention list and a creation audit entry.
func (e Engine) CreateProject(ctx context.Context, opts CreateProjectOptions) (domain.Project, error) {
	if err := validate.Title("title", opts.Title); err != nil {
		return domain.Project{}, err
	}
	if err := validate.Instant("deadline", opts.Deadline); err != nil {
		return domain.Project{}, err
	}
	if err := e.ensureContact(ctx, opts.OwnerContactID); err != nil {
		return domain.Project{}, err
	}
	id := opts.ID
	if id == "" {
		id = e.newID()
	}
	now := e.nowString()
	p := domain.Project{
		ID:                id,
		Title:             opts.Title,
		ApplicationNumber: opts.ApplicationNumber,
		OwnerContactID:    opts.OwnerContactID,
		Deadline:          opts.Deadline,
		Status:            domain.StatusQuotation,
		Interventions:     []domain.Intervention{},
		CreatedAt:         now,
		AuditLog: []domain.AuditEntry{{
			ID:        e.newID(),
			Actor:     opts.Actor,
			Action:    "project created",
			Timestamp: now,
			Details:   fmt.Sprintf("created project %q", opts.Title),
		}},
	}
	return e.Store.InsertProject(ctx, p)
}

// UpdateProjectOptions encapsulates allowed project header updates.
type UpdateProjectOptions struct {
	ProjectID         string
	Title             *string
	ApplicationNumber *string
	OwnerContactID    *string
	Deadline          *string
	Actor             string
}

func (e Engine) UpdateProject(ctx context.Context, opts UpdateProjectOptions) (domain.Project, error) {
	p, err := e.load(ctx, opts.ProjectID)
	if err != nil {
		return domain.Project{}, err
	}
	if opts.Title != nil {
		if err := validate.Title("title", *opts.Title); err != nil {
			return domain.Project{}, err
		}
		p.Title = *opts.Title
	}
	if opts.ApplicationNumber != nil {
		p.ApplicationNumber = *opts.ApplicationNumber
	}
	if opts.OwnerContactID != nil {
		if err := e.ensureContact(ctx, *opts.OwnerContactID); err != nil {
			return domain.Project{}, err
		}
		p.OwnerContactID = *opts.OwnerContactID
	}
	if opts.Deadline != nil {
		if err := validate.Instant("deadline", *opts.Deadline); err != nil {
			return domain.Project{}, err
		}
		if err := validate.ProjectDeadline(p, *opts.Deadline); err != nil {
			return domain.Project{}, err
		}
		p.Deadline = *opts.Deadline
	}
	return e.commit(ctx, p, opts.Actor, "project updated", fmt.Sprintf("updated project %q", p.Title))
}

// ActivateProject moves a project out of Quotation. One-way: there is no
// path back to Quotation.
func (e Engine) ActivateProject(ctx context.Context, projectID, actor string) (domain.Project, error) {
	p, err := e.load(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if p.Status != domain.StatusQuotation {
		return domain.Project{}, InvalidTransitionError{Entity: "project", From: p.Status, To: domain.StatusOnTrack}
	}
	p.Status = domain.StatusOnTrack
	return e.commit(ctx, p, actor, "project activated", fmt.Sprintf("activated project %q", p.Title))
}

// DeleteProject removes the aggregate entirely; there is no soft delete.
func (e Engine) DeleteProject(ctx context.Context, projectID string) error {
	if _, err := e.load(ctx, projectID); err != nil {
		return err
	}
	return e.Store.DeleteProject(ctx, projectID)
}

// GetProject loads the aggregate and applies the time-sensitive client-mode
// metrics pass, so overdue stages surface as alerts and Delayed status.
func (e Engine) GetProject(ctx context.Context, projectID string) (domain.Project, error) {
	p, err := e.load(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	return metrics.Compute(p, metrics.Options{
		TimeSensitive: true,
		Now:           e.now(),
		Locale:        e.Config.SortLocale(),
	}), nil
}
