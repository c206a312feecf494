package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Edward-Mann/book-store/internal/repository"
	"github.com/Edward-Mann/book-store/internal/repository/mocks"
)

func TestCustomerService_Register(t *testing.T) {
	ctx := context.Background()
	input := RegisterInput{Username: "alice", Password: "secret1", Name: "Alice", Email: "alice@example.com"}

	tests := []struct {
		name          string
		input         RegisterInput
		setup         func(repo *mocks.CustomerRepository)
		expectedErr   error
		errorContains string
	}{
		{
			name:  "success",
			input: input,
			setup: func(repo *mocks.CustomerRepository) {
				repo.On("GetByUsername", ctx, "alice").Return(repository.Customer{}, repository.ErrNotFound).Once()
				repo.On("GetByEmail", ctx, "alice@example.com").Return(repository.Customer{}, repository.ErrNotFound).Once()
				repo.On("Create", ctx, mock.MatchedBy(func(c repository.Customer) bool {
					return c.Username == "alice" &&
						c.Role == repository.RoleUser &&
						c.Status == repository.CustomerStatusActive &&
						bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte("secret1")) == nil
				})).Return(func(_ context.Context, c repository.Customer) (repository.Customer, error) {
					c.ID = 1
					return c, nil
				}).Once()
			},
		},
		{
			name:          "error: short password",
			input:         RegisterInput{Username: "alice", Password: "123", Name: "A", Email: "a@example.com"},
			setup:         func(repo *mocks.CustomerRepository) {},
			expectedErr:   ErrInvalidArgument,
			errorContains: "Password must be at least 6 characters",
		},
		{
			name:  "error: username taken",
			input: input,
			setup: func(repo *mocks.CustomerRepository) {
				repo.On("GetByUsername", ctx, "alice").Return(repository.Customer{ID: 9}, nil).Once()
			},
			expectedErr:   ErrConflict,
			errorContains: "Username already exists: alice",
		},
		{
			name:  "error: email taken",
			input: input,
			setup: func(repo *mocks.CustomerRepository) {
				repo.On("GetByUsername", ctx, "alice").Return(repository.Customer{}, repository.ErrNotFound).Once()
				repo.On("GetByEmail", ctx, "alice@example.com").Return(repository.Customer{ID: 9}, nil).Once()
			},
			expectedErr:   ErrConflict,
			errorContains: "Email already exists: alice@example.com",
		},
		{
			name:  "error: repository failure is not classified",
			input: input,
			setup: func(repo *mocks.CustomerRepository) {
				repo.On("GetByUsername", ctx, "alice").Return(repository.Customer{}, errors.New("connection reset")).Once()
			},
			errorContains: "connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewCustomerRepository(t)
			tt.setup(repo)
			svc := NewCustomerService(nopLogger(), repo, bcrypt.MinCost)

			customer, err := svc.Register(ctx, tt.input)
			if tt.errorContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				if tt.expectedErr != nil {
					require.ErrorIs(t, err, tt.expectedErr)
				} else {
					assert.False(t, IsClassified(err))
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(1), customer.ID)
			assert.False(t, customer.RegisteredDate.IsZero())
		})
	}
}

func TestCustomerService_CreateAdmin(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewCustomerRepository(t)
	svc := NewCustomerService(nopLogger(), repo, bcrypt.MinCost)

	repo.On("GetByUsername", ctx, "root").Return(repository.Customer{}, repository.ErrNotFound).Once()
	repo.On("GetByEmail", ctx, "root@example.com").Return(repository.Customer{}, repository.ErrNotFound).Once()
	repo.On("Create", ctx, mock.MatchedBy(func(c repository.Customer) bool {
		return c.Role == repository.RoleAdmin
	})).Return(repository.Customer{ID: 2, Role: repository.RoleAdmin}, nil).Once()

	admin, err := svc.CreateAdmin(ctx, RegisterInput{Username: "root", Password: "secret1", Name: "Root", Email: "root@example.com"})
	require.NoError(t, err)
	assert.Equal(t, repository.RoleAdmin, admin.Role)
}

func TestCustomerService_EnsureAdmin_SkipsExisting(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewCustomerRepository(t)
	svc := NewCustomerService(nopLogger(), repo, bcrypt.MinCost)

	repo.On("GetByUsername", ctx, "root").Return(repository.Customer{ID: 1}, nil).Once()

	created, err := svc.EnsureAdmin(ctx, RegisterInput{Username: "root", Password: "secret1"})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestCustomerService_UpgradeToAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo := mocks.NewCustomerRepository(t)
		svc := NewCustomerService(nopLogger(), repo, bcrypt.MinCost)

		repo.On("GetByID", ctx, int64(3)).Return(repository.Customer{ID: 3, Role: repository.RoleUser}, nil).Once()
		repo.On("Update", ctx, repository.Customer{ID: 3, Role: repository.RoleAdmin}).
			Return(repository.Customer{ID: 3, Role: repository.RoleAdmin}, nil).Once()

		c, err := svc.UpgradeToAdmin(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, repository.RoleAdmin, c.Role)
	})

	t.Run("not found", func(t *testing.T) {
		repo := mocks.NewCustomerRepository(t)
		svc := NewCustomerService(nopLogger(), repo, bcrypt.MinCost)

		repo.On("GetByID", ctx, int64(404)).Return(repository.Customer{}, repository.ErrNotFound).Once()

		_, err := svc.UpgradeToAdmin(ctx, 404)
		require.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, "Customer not found", err.Error())
	})
}

func TestCustomerService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	existing := repository.Customer{ID: 1, Username: "alice", Name: "Alice", Email: "alice@example.com"}

	t.Run("email taken by another customer", func(t *testing.T) {
		repo := mocks.NewCustomerRepository(t)
		svc := NewCustomerService(nopLogger(), repo, bcrypt.MinCost)

		repo.On("GetByID", ctx, int64(1)).Return(existing, nil).Once()
		repo.On("GetByEmail", ctx, "bob@example.com").Return(repository.Customer{ID: 2}, nil).Once()

		email := "bob@example.com"
		_, err := svc.UpdateProfile(ctx, 1, ProfilePatch{Email: &email})
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("partial update keeps other fields", func(t *testing.T) {
		repo := mocks.NewCustomerRepository(t)
		svc := NewCustomerService(nopLogger(), repo, bcrypt.MinCost)

		repo.On("GetByID", ctx, int64(1)).Return(existing, nil).Once()
		repo.On("Update", ctx, mock.MatchedBy(func(c repository.Customer) bool {
			return c.Name == "Alice" && c.Email == "alice@example.com" && c.Phone == "+100"
		})).Return(func(_ context.Context, c repository.Customer) (repository.Customer, error) {
			return c, nil
		}).Once()

		phone := "+100"
		c, err := svc.UpdateProfile(ctx, 1, ProfilePatch{Phone: &phone})
		require.NoError(t, err)
		assert.Equal(t, "+100", c.Phone)
	})
}

func TestCustomerService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("soft delete", func(t *testing.T) {
		repo := mocks.NewCustomerRepository(t)
		svc := NewCustomerService(nopLogger(), repo, bcrypt.MinCost)

		repo.On("GetByID", ctx, int64(1)).Return(repository.Customer{ID: 1, Status: repository.CustomerStatusActive}, nil).Once()
		repo.On("Update", ctx, repository.Customer{ID: 1, Status: repository.CustomerStatusDeleted}).
			Return(repository.Customer{ID: 1, Status: repository.CustomerStatusDeleted}, nil).Once()

		require.NoError(t, svc.Delete(ctx, 1))
	})

	t.Run("already deleted is a no-op", func(t *testing.T) {
		repo := mocks.NewCustomerRepository(t)
		svc := NewCustomerService(nopLogger(), repo, bcrypt.MinCost)

		repo.On("GetByID", ctx, int64(1)).Return(repository.Customer{ID: 1, Status: repository.CustomerStatusDeleted}, nil).Once()

		require.NoError(t, svc.Delete(ctx, 1))
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestCustomerService_RegisteredDateIsCalendarDay(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewCustomerRepository(t)
	svc := NewCustomerService(nopLogger(), repo, bcrypt.MinCost)
	svc.now = func() time.Time { return time.Date(2024, 3, 9, 17, 45, 0, 0, time.UTC) }

	repo.On("GetByUsername", ctx, "alice").Return(repository.Customer{}, repository.ErrNotFound).Once()
	repo.On("GetByEmail", ctx, "alice@example.com").Return(repository.Customer{}, repository.ErrNotFound).Once()
	repo.On("Create", ctx, mock.Anything).Return(func(_ context.Context, c repository.Customer) (repository.Customer, error) {
		return c, nil
	}).Once()

	c, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "secret1", Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), c.RegisteredDate)
}

func TestCustomerService_RegisterSurvivesUnrelatedRollback(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewCustomerService(nopLogger(), f.store.Customers(), bcrypt.MinCost)
	errCheckout := errors.New("checkout failed")

	var carol repository.Customer
	err := f.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Catalog().DecrementStock(ctx, f.bookA.ID, 1); err != nil {
			return err
		}
		var err error
		carol, err = svc.Register(ctx, RegisterInput{
			Username: "carol", Password: "secret1", Name: "Carol", Email: "carol@example.com",
		})
		require.NoError(t, err)
		return errCheckout
	})
	require.ErrorIs(t, err, errCheckout)

	got, err := svc.GetByID(ctx, carol.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", got.Username)
	assert.Equal(t, 5, f.stock(t, f.bookA.ID))
}
