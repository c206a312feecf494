package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Edward-Mann/book-store/internal/repository"
)

const customerNotFound = "Customer not found"

// CustomerService содержит бизнес-логику работы с покупателями
type CustomerService struct {
	logger     *zap.Logger
	repo       repository.CustomerRepository
	bcryptCost int
	now        func() time.Time
}

// NewCustomerService создаёт новый экземпляр CustomerService.
// bcryptCost <= 0 означает bcrypt.DefaultCost.
func NewCustomerService(logger *zap.Logger, repo repository.CustomerRepository, bcryptCost int) *CustomerService {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &CustomerService{
		logger:     logger,
		repo:       repo,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// RegisterInput содержит входные данные для регистрации покупателя
type RegisterInput struct {
	Username string
	Password string
	Name     string
	Email    string
	Phone    string
	Address  string
}

// Register регистрирует покупателя с ролью USER
func (s *CustomerService) Register(ctx context.Context, input RegisterInput) (repository.Customer, error) {
	return s.create(ctx, input, repository.RoleUser)
}

// CreateAdmin регистрирует покупателя с ролью ADMIN
func (s *CustomerService) CreateAdmin(ctx context.Context, input RegisterInput) (repository.Customer, error) {
	return s.create(ctx, input, repository.RoleAdmin)
}

// EnsureAdmin создаёт администратора, если username ещё свободен. Возвращает true, если создан.
func (s *CustomerService) EnsureAdmin(ctx context.Context, input RegisterInput) (bool, error) {
	_, err := s.repo.GetByUsername(ctx, input.Username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("get customer: %w", err)
	}
	if _, err := s.CreateAdmin(ctx, input); err != nil {
		return false, err
	}
	return true, nil
}

func (s *CustomerService) create(ctx context.Context, input RegisterInput, role repository.Role) (repository.Customer, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	input.Name = strings.TrimSpace(input.Name)

	switch {
	case input.Username == "":
		return repository.Customer{}, invalidArgument("Username is required")
	case len(input.Password) < 6:
		return repository.Customer{}, invalidArgument("Password must be at least 6 characters")
	case input.Name == "":
		return repository.Customer{}, invalidArgument("Name is required")
	case input.Email == "":
		return repository.Customer{}, invalidArgument("Email is required")
	}

	if err := s.checkUnique(ctx, input.Username, input.Email); err != nil {
		return repository.Customer{}, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return repository.Customer{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	customer, err := s.repo.Create(ctx, repository.Customer{
		Username:       input.Username,
		PasswordHash:   string(passwordHash),
		Role:           role,
		Status:         repository.CustomerStatusActive,
		Name:           input.Name,
		Email:          input.Email,
		Phone:          input.Phone,
		Address:        input.Address,
		RegisteredDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			// Гонка двух регистраций: проверка выше прошла у обеих
			return repository.Customer{}, conflict("Username or email already exists: %s", input.Username)
		}
		s.logger.Error("failed to create customer", zap.Error(err), zap.String("username", input.Username))
		return repository.Customer{}, fmt.Errorf("create customer: %w", err)
	}

	s.logger.Info("customer registered",
		zap.Int64("customer_id", customer.ID),
		zap.String("username", customer.Username),
		zap.String("role", string(customer.Role)),
	)
	return customer, nil
}

func (s *CustomerService) checkUnique(ctx context.Context, username, email string) error {
	_, err := s.repo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return conflict("Username already exists: %s", username)
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("get customer by username: %w", err)
	}

	_, err = s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return conflict("Email already exists: %s", email)
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("get customer by email: %w", err)
	}
	return nil
}

func (s *CustomerService) GetByID(ctx context.Context, id int64) (repository.Customer, error) {
	customer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Customer{}, notFound(customerNotFound)
		}
		return repository.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return customer, nil
}

func (s *CustomerService) GetByUsername(ctx context.Context, username string) (repository.Customer, error) {
	customer, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Customer{}, notFound("%s for username: %s", customerNotFound, username)
		}
		return repository.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return customer, nil
}

// List возвращает всех покупателей, включая удалённых
func (s *CustomerService) List(ctx context.Context) ([]repository.Customer, error) {
	customers, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

// UpgradeToAdmin выдаёт покупателю роль ADMIN
func (s *CustomerService) UpgradeToAdmin(ctx context.Context, id int64) (repository.Customer, error) {
	customer, err := s.GetByID(ctx, id)
	if err != nil {
		return repository.Customer{}, err
	}
	customer.Role = repository.RoleAdmin

	updated, err := s.repo.Update(ctx, customer)
	if err != nil {
		return repository.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	s.logger.Info("customer upgraded to admin", zap.Int64("customer_id", id))
	return updated, nil
}

// ProfilePatch частичное обновление профиля: nil-поля не меняются
type ProfilePatch struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}

// UpdateProfile обновляет профиль; новый email проверяется на уникальность среди остальных покупателей
func (s *CustomerService) UpdateProfile(ctx context.Context, id int64, patch ProfilePatch) (repository.Customer, error) {
	customer, err := s.GetByID(ctx, id)
	if err != nil {
		return repository.Customer{}, err
	}

	if patch.Name != nil {
		customer.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		if email != customer.Email {
			other, err := s.repo.GetByEmail(ctx, email)
			switch {
			case err == nil && other.ID != id:
				return repository.Customer{}, conflict("Email already exists: %s", email)
			case err != nil && !errors.Is(err, repository.ErrNotFound):
				return repository.Customer{}, fmt.Errorf("get customer by email: %w", err)
			}
			customer.Email = email
		}
	}
	if patch.Phone != nil {
		customer.Phone = *patch.Phone
	}
	if patch.Address != nil {
		customer.Address = *patch.Address
	}

	updated, err := s.repo.Update(ctx, customer)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return repository.Customer{}, conflict("Email already exists: %s", customer.Email)
		}
		return repository.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	return updated, nil
}

// Delete мягко удаляет покупателя: статус DELETED, запись остаётся. Повторный вызов ничего не меняет.
func (s *CustomerService) Delete(ctx context.Context, id int64) error {
	customer, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if customer.Status == repository.CustomerStatusDeleted {
		return nil
	}

	customer.Status = repository.CustomerStatusDeleted
	if _, err := s.repo.Update(ctx, customer); err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	s.logger.Info("customer deleted", zap.Int64("customer_id", id))
	return nil
}
