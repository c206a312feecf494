package memory

import (
	"context"

	"github.com/Edward-Mann/book-store/internal/repository"
)

type customerRepository struct {
	db handle
}

func (r *customerRepository) Create(ctx context.Context, customer repository.Customer) (repository.Customer, error) {
	var err error
	r.db.write(func(st *state, undo *undoLog) {
		if conflict(st, customer) {
			err = repository.ErrAlreadyExists
			return
		}
		customer.ID = st.nextID("customers")
		saveKey(undo, st.customers, customer.ID)
		st.customers[customer.ID] = customer
	})
	if err != nil {
		return repository.Customer{}, err
	}
	return customer, nil
}

// conflict проверяет уникальность username и email среди остальных покупателей
func conflict(st *state, c repository.Customer) bool {
	for id, existing := range st.customers {
		if id == c.ID {
			continue
		}
		if existing.Username == c.Username || (c.Email != "" && existing.Email == c.Email) {
			return true
		}
	}
	return false
}

func (r *customerRepository) GetByID(ctx context.Context, id int64) (repository.Customer, error) {
	var (
		c  repository.Customer
		ok bool
	)
	r.db.read(func(st *state) { c, ok = st.customers[id] })
	if !ok {
		return repository.Customer{}, repository.ErrNotFound
	}
	return c, nil
}

func (r *customerRepository) GetByUsername(ctx context.Context, username string) (repository.Customer, error) {
	return r.find(func(c repository.Customer) bool { return c.Username == username })
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (repository.Customer, error) {
	return r.find(func(c repository.Customer) bool { return c.Email == email })
}

func (r *customerRepository) find(match func(repository.Customer) bool) (repository.Customer, error) {
	var (
		found repository.Customer
		ok    bool
	)
	r.db.read(func(st *state) {
		for _, c := range st.customers {
			if match(c) {
				found, ok = c, true
				return
			}
		}
	})
	if !ok {
		return repository.Customer{}, repository.ErrNotFound
	}
	return found, nil
}

func (r *customerRepository) List(ctx context.Context) ([]repository.Customer, error) {
	var out []repository.Customer
	r.db.read(func(st *state) {
		for _, id := range sortedKeys(st.customers) {
			out = append(out, st.customers[id])
		}
	})
	return out, nil
}

func (r *customerRepository) Update(ctx context.Context, customer repository.Customer) (repository.Customer, error) {
	var err error
	r.db.write(func(st *state, undo *undoLog) {
		existing, ok := st.customers[customer.ID]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		if conflict(st, customer) {
			err = repository.ErrAlreadyExists
			return
		}
		// username, пароль и дата регистрации не меняются
		customer.Username = existing.Username
		customer.PasswordHash = existing.PasswordHash
		customer.RegisteredDate = existing.RegisteredDate
		saveKey(undo, st.customers, customer.ID)
		st.customers[customer.ID] = customer
	})
	if err != nil {
		return repository.Customer{}, err
	}
	return customer, nil
}
