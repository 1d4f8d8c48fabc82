package repo

import (
	"context"
	"database/sql"

	"renoline/internal/domain"
)

func (s Store) InsertContact(ctx context.Context, c domain.Contact) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO contacts(id,name,role,email,phone,created_at) VALUES (?,?,?,?,?,?)`,
		c.ID, c.Name, nullable(c.Role), nullable(c.Email), nullable(c.Phone), c.CreatedAt)
	return err
}

func (s Store) GetContact(ctx context.Context, id string) (domain.Contact, error) {
	var c domain.Contact
	var role, email, phone sql.NullString
	err := s.DB.QueryRowContext(ctx, `SELECT id,name,role,email,phone,created_at FROM contacts WHERE id=?`, id).
		Scan(&c.ID, &c.Name, &role, &email, &phone, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if role.Valid {
		c.Role = role.String
	}
	if email.Valid {
		c.Email = email.String
	}
	if phone.Valid {
		c.Phone = phone.String
	}
	return c, nil
}

func (s Store) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id,name,role,email,phone,created_at FROM contacts ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Contact
	for rows.Next() {
		var c domain.Contact
		var role, email, phone sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &role, &email, &phone, &c.CreatedAt); err != nil {
			return nil, err
		}
		if role.Valid {
			c.Role = role.String
		}
		if email.Valid {
			c.Email = email.String
		}
		if phone.Valid {
			c.Phone = phone.String
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (s Store) DeleteContact(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM contacts WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
