package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Edward-Mann/book-store/internal/repository"
)

const (
	keyPrefix = "bookstore:session:"

	fieldCustomerID = "customer_id"
	fieldCreatedAt  = "created_at"
	fieldLastSeenAt = "last_seen_at"
)

// SessionRepository хранит сессии покупателей в Redis hash с TTL
type SessionRepository struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewSessionRepository создаёт Redis session repository
func NewSessionRepository(client redis.UniversalClient, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{
		client: client,
		logger: logger,
	}
}

func sessionKey(sessionID string) string {
	return keyPrefix + sessionID
}

// CreateSession создаёт hash сессии и выставляет TTL одной транзакцией MULTI/EXEC
func (r *SessionRepository) CreateSession(ctx context.Context, customerID int64, ttl time.Duration) (string, error) {
	sessionID := uuid.NewString()
	key := sessionKey(sessionID)
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldCustomerID, strconv.FormatInt(customerID, 10),
			fieldCreatedAt, now,
			fieldLastSeenAt, now,
		)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to create session",
			zap.Error(err),
			zap.Int64("customer_id", customerID),
		)
		return "", fmt.Errorf("create session: %w", err)
	}

	r.logger.Debug("session created",
		zap.Int64("customer_id", customerID),
		zap.Duration("ttl", ttl),
	)
	return sessionID, nil
}

// GetCustomerIDBySession читает customer_id из hash; отсутствие ключа или мусор в поле → ErrSessionNotFound
func (r *SessionRepository) GetCustomerIDBySession(ctx context.Context, sessionID string) (int64, error) {
	raw, err := r.client.HGet(ctx, sessionKey(sessionID), fieldCustomerID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, repository.ErrSessionNotFound
		}
		r.logger.Error("failed to read session", zap.Error(err))
		return 0, fmt.Errorf("get session: %w", err)
	}

	customerID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || customerID <= 0 {
		r.logger.Warn("session has malformed customer_id", zap.String("value", raw))
		return 0, repository.ErrSessionNotFound
	}
	return customerID, nil
}

// DeleteSession удаляет hash сессии
func (r *SessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		r.logger.Error("failed to delete session", zap.Error(err))
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// RefreshSession продлевает TTL. EXPIRE на отсутствующем ключе возвращает false и ключ не создаёт.
func (r *SessionRepository) RefreshSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	key := sessionKey(sessionID)

	ok, err := r.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		r.logger.Error("failed to refresh session ttl", zap.Error(err))
		return fmt.Errorf("refresh session: %w", err)
	}
	if !ok {
		return repository.ErrSessionNotFound
	}

	if err := r.client.HSet(ctx, key, fieldLastSeenAt, time.Now().UTC().Format(time.RFC3339)).Err(); err != nil {
		// TTL уже продлён, last_seen_at носит справочный характер
		r.logger.Warn("failed to update session last_seen_at", zap.Error(err))
	}
	return nil
}
