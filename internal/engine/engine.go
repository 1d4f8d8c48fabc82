// Package engine implements the mutation operations over the project
// aggregate. Every operation follows the same cycle: load the aggregate,
// validate, apply a pure transform, recompute rollups, prepend one audit
// entry, and write the whole aggregate back under a version check.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"renoline/internal/config"
	"renoline/internal/domain"
	"renoline/internal/metrics"
	"renoline/internal/repo"
)

// Store is the storage collaborator. Save must be atomic per project id and
// reject stale versions; the engine never performs partial writes.
type Store interface {
	InsertProject(ctx context.Context, p domain.Project) (domain.Project, error)
	LoadProject(ctx context.Context, id string) (domain.Project, error)
	SaveProject(ctx context.Context, p domain.Project) (domain.Project, error)
	DeleteProject(ctx context.Context, id string) error
	GetContact(ctx context.Context, id string) (domain.Contact, error)
	InsertContact(ctx context.Context, c domain.Contact) error
}

type Engine struct {
	Store  Store
	Config *config.Config
	Now    func() time.Time
	NewID  func() string
}

func New(store Store, cfg *config.Config) Engine {
	return Engine{
		Store:  store,
		Config: cfg,
		Now:    time.Now,
		NewID:  uuid.NewString,
	}
}

// NotFoundError reports a mutation target missing from the aggregate or the
// store. Kind is one of "project", "intervention", "sub-intervention",
// "stage", "contact".
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// InvalidTransitionError reports a disallowed status change.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition %s -> %s", e.Entity, e.From, e.To)
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

func (e Engine) nowString() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) load(ctx context.Context, projectID string) (domain.Project, error) {
	p, err := e.Store.LoadProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Project{}, NotFoundError{Kind: "project", ID: projectID}
		}
		return domain.Project{}, err
	}
	return p, nil
}

// commit recomputes the canonical (time-insensitive) rollups, prepends the
// audit entry for this mutation, and saves the whole aggregate.
func (e Engine) commit(ctx context.Context, p domain.Project, actor, action, details string) (domain.Project, error) {
	p = metrics.Compute(p, metrics.Options{Now: e.now(), Locale: e.Config.SortLocale()})
	entry := domain.AuditEntry{
		ID:        e.newID(),
		Actor:     actor,
		Action:    action,
		Timestamp: e.nowString(),
		Details:   details,
	}
	p.AuditLog = append([]domain.AuditEntry{entry}, p.AuditLog...)
	return e.Store.SaveProject(ctx, p)
}

func findIntervention(p *domain.Project, masterID string) (*domain.Intervention, error) {
	for i := range p.Interventions {
		if p.Interventions[i].MasterID == masterID {
			return &p.Interventions[i], nil
		}
	}
	return nil, NotFoundError{Kind: "intervention", ID: masterID}
}

func findStage(iv *domain.Intervention, stageID string) (*domain.Stage, error) {
	for i := range iv.Stages {
		if iv.Stages[i].ID == stageID {
			return &iv.Stages[i], nil
		}
	}
	return nil, NotFoundError{Kind: "stage", ID: stageID}
}

func findSubIntervention(iv *domain.Intervention, subID string) (*domain.SubIntervention, int, error) {
	for i := range iv.SubInterventions {
		if iv.SubInterventions[i].ID == subID {
			return &iv.SubInterventions[i], i, nil
		}
	}
	return nil, -1, NotFoundError{Kind: "sub-intervention", ID: subID}
}

// ensureContact verifies a weak contact reference when one is supplied.
func (e Engine) ensureContact(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if _, err := e.Store.GetContact(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NotFoundError{Kind: "contact", ID: id}
		}
		return err
	}
	return nil
}

func subTotal(iv domain.Intervention) float64 {
	sum := 0.0
	for _, s := range iv.SubInterventions {
		sum += s.Cost
	}
	return sum
}
