package engine

import (
	"context"

	"renoline/internal/domain"
	"renoline/internal/validate"
)

// CreateContactOptions are parameters for adding a directory contact.
type CreateContactOptions struct {
	ID    string
	Name  string
	Role  string
	Email string
	Phone string
}

func (e Engine) CreateContact(ctx context.Context, opts CreateContactOptions) (domain.Contact, error) {
	if err := validate.Title("name", opts.Name); err != nil {
		return domain.Contact{}, err
	}
	id := opts.ID
	if id == "" {
		id = e.newID()
	}
	c := domain.Contact{
		ID:        id,
		Name:      opts.Name,
		Role:      opts.Role,
		Email:     opts.Email,
		Phone:     opts.Phone,
		CreatedAt: e.nowString(),
	}
	if err := e.Store.InsertContact(ctx, c); err != nil {
		return domain.Contact{}, err
	}
	return c, nil
}
