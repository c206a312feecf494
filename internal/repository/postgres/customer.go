package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/Edward-Mann/book-store/internal/repository"
)

type customerRepository struct {
	q querier
}

const customerColumns = `id, username, password_hash, role, status, name, email, phone, address, registered_date`

func scanCustomer(row pgx.Row) (repository.Customer, error) {
	var c repository.Customer
	var role, status string
	err := row.Scan(&c.ID, &c.Username, &c.PasswordHash, &role, &status,
		&c.Name, &c.Email, &c.Phone, &c.Address, &c.RegisteredDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Customer{}, repository.ErrNotFound
		}
		return repository.Customer{}, err
	}
	c.Role = repository.Role(role)
	c.Status = repository.CustomerStatus(status)
	return c, nil
}

// Create сохраняет покупателя; нарушение уникальности username/email → ErrAlreadyExists
func (r *customerRepository) Create(ctx context.Context, customer repository.Customer) (repository.Customer, error) {
	err := r.q.QueryRow(ctx,
		`INSERT INTO customers (username, password_hash, role, status, name, email, phone, address, registered_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		customer.Username, customer.PasswordHash, string(customer.Role), string(customer.Status),
		customer.Name, customer.Email, customer.Phone, customer.Address, customer.RegisteredDate,
	).Scan(&customer.ID)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return repository.Customer{}, repository.ErrAlreadyExists
		}
		return repository.Customer{}, err
	}
	return customer, nil
}

func (r *customerRepository) GetByID(ctx context.Context, id int64) (repository.Customer, error) {
	return scanCustomer(r.q.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

func (r *customerRepository) GetByUsername(ctx context.Context, username string) (repository.Customer, error) {
	return scanCustomer(r.q.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE username = $1`, username))
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (repository.Customer, error) {
	return scanCustomer(r.q.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE email = $1`, email))
}

func (r *customerRepository) List(ctx context.Context) ([]repository.Customer, error) {
	rows, err := r.q.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update перезаписывает роль, статус и профиль. Username, пароль и дата регистрации не меняются.
func (r *customerRepository) Update(ctx context.Context, customer repository.Customer) (repository.Customer, error) {
	updated, err := scanCustomer(r.q.QueryRow(ctx,
		`UPDATE customers
		 SET role = $2, status = $3, name = $4, email = $5, phone = $6, address = $7
		 WHERE id = $1
		 RETURNING `+customerColumns,
		customer.ID, string(customer.Role), string(customer.Status),
		customer.Name, customer.Email, customer.Phone, customer.Address,
	))
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return repository.Customer{}, repository.ErrAlreadyExists
		}
		return repository.Customer{}, err
	}
	return updated, nil
}
