package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Edward-Mann/book-store/internal/repository"
)

const invalidCredentials = "Invalid username or password"

// AuthService отвечает за вход по логину/паролю и проверку сессий
type AuthService struct {
	logger      *zap.Logger
	customers   repository.CustomerRepository
	sessionRepo repository.SessionRepository
	sessionTTL  time.Duration
}

// NewAuthService создаёт новый экземпляр AuthService
func NewAuthService(logger *zap.Logger, customers repository.CustomerRepository, sessionRepo repository.SessionRepository, sessionTTL time.Duration) *AuthService {
	return &AuthService{
		logger:      logger,
		customers:   customers,
		sessionRepo: sessionRepo,
		sessionTTL:  sessionTTL,
	}
}

// LoginInput содержит входные данные для входа
type LoginInput struct {
	Username string
	Password string
}

// LoginOutput содержит результат входа
type LoginOutput struct {
	SessionID string
	Customer  repository.Customer
}

// Login проверяет пароль и создаёт сессию. Неизвестный пользователь, неверный пароль
// и неактивный аккаунт неразличимы для клиента.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	customer, err := s.customers.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Debug("login failed: unknown username", zap.String("username", input.Username))
			return nil, unauthenticated(invalidCredentials)
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(input.Password)); err != nil {
		s.logger.Debug("login failed: wrong password", zap.Int64("customer_id", customer.ID))
		return nil, unauthenticated(invalidCredentials)
	}

	if customer.Status != repository.CustomerStatusActive {
		s.logger.Warn("login rejected: customer not active",
			zap.Int64("customer_id", customer.ID),
			zap.String("status", string(customer.Status)),
		)
		return nil, unauthenticated(invalidCredentials)
	}

	sessionID, err := s.sessionRepo.CreateSession(ctx, customer.ID, s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("customer logged in",
		zap.Int64("customer_id", customer.ID),
		zap.String("username", customer.Username),
	)
	return &LoginOutput{SessionID: sessionID, Customer: customer}, nil
}

// Logout удаляет сессию
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessionRepo.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Authenticate возвращает покупателя по сессии и продлевает её TTL (скользящее окно)
func (s *AuthService) Authenticate(ctx context.Context, sessionID string) (repository.Customer, error) {
	if sessionID == "" {
		return repository.Customer{}, unauthenticated("Authentication required")
	}

	customerID, err := s.sessionRepo.GetCustomerIDBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return repository.Customer{}, unauthenticated("Session not found or expired")
		}
		return repository.Customer{}, fmt.Errorf("get session: %w", err)
	}

	if err := s.sessionRepo.RefreshSession(ctx, sessionID, s.sessionTTL); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return repository.Customer{}, unauthenticated("Session not found or expired")
		}
		return repository.Customer{}, fmt.Errorf("refresh session: %w", err)
	}

	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Customer{}, unauthenticated("Session not found or expired")
		}
		return repository.Customer{}, fmt.Errorf("get customer: %w", err)
	}

	if customer.Status != repository.CustomerStatusActive {
		return repository.Customer{}, unauthenticated("Account is not active")
	}
	return customer, nil
}
