package repository

import (
	"context"
	"errors"
	"time"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=SessionRepository --dir=. --output=./mocks --outpkg=mocks

// SessionRepository определяет интерфейс для работы с сессиями
type SessionRepository interface {
	// CreateSession создаёт новую сессию для покупателя и возвращает её ID
	CreateSession(ctx context.Context, customerID int64, ttl time.Duration) (sessionID string, err error)

	// GetCustomerIDBySession возвращает ErrSessionNotFound, если сессия не найдена или истекла
	GetCustomerIDBySession(ctx context.Context, sessionID string) (customerID int64, err error)

	// DeleteSession удаляет сессию; отсутствие сессии не ошибка
	DeleteSession(ctx context.Context, sessionID string) error

	// RefreshSession продлевает TTL сессии; ErrSessionNotFound, если её уже нет
	RefreshSession(ctx context.Context, sessionID string, ttl time.Duration) error
}

// ErrSessionNotFound возвращается, когда сессия не найдена или истекла
var ErrSessionNotFound = errors.New("session not found")
