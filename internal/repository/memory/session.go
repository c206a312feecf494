package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Edward-Mann/book-store/internal/repository"
)

type session struct {
	customerID int64
	expiresAt  time.Time
}

// SessionRepository хранит сессии в памяти процесса (SESSION_STORE=memory)
type SessionRepository struct {
	mu       sync.Mutex
	sessions map[string]session
	now      func() time.Time
}

// NewSessionRepository создаёт in-memory хранилище сессий
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]session),
		now:      time.Now,
	}
}

func (r *SessionRepository) CreateSession(ctx context.Context, customerID int64, ttl time.Duration) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	r.sessions[id] = session{customerID: customerID, expiresAt: r.now().Add(ttl)}
	return id, nil
}

func (r *SessionRepository) GetCustomerIDBySession(ctx context.Context, sessionID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.live(sessionID)
	if !ok {
		return 0, repository.ErrSessionNotFound
	}
	return s.customerID, nil
}

func (r *SessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	return nil
}

func (r *SessionRepository) RefreshSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.live(sessionID)
	if !ok {
		return repository.ErrSessionNotFound
	}
	s.expiresAt = r.now().Add(ttl)
	r.sessions[sessionID] = s
	return nil
}

// live возвращает неистёкшую сессию, истёкшие удаляет. Вызывается под r.mu.
func (r *SessionRepository) live(sessionID string) (session, bool) {
	s, ok := r.sessions[sessionID]
	if !ok {
		return session{}, false
	}
	if !r.now().Before(s.expiresAt) {
		delete(r.sessions, sessionID)
		return session{}, false
	}
	return s, true
}
