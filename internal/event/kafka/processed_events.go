package kafka

import (
	"context"
	"sync"
	"time"
)

// ProcessedEvents запоминает event_id обработанных событий, чтобы повторная доставка
// (outbox публикует at-least-once) не обрабатывалась дважды.
type ProcessedEvents interface {
	// MarkProcessed сохраняет eventID на ttl; повторный вызов продлевает срок
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) error
	// IsProcessed возвращает true, если eventID обработан и срок ещё не истёк
	IsProcessed(ctx context.Context, eventID string) (bool, error)
}

// MemoryProcessedEvents хранит обработанные event_id в памяти процесса
type MemoryProcessedEvents struct {
	mu     sync.Mutex
	events map[string]time.Time // eventID -> expiresAt
	now    func() time.Time
}

// NewMemoryProcessedEvents создаёт пустое in-memory хранилище
func NewMemoryProcessedEvents() *MemoryProcessedEvents {
	return &MemoryProcessedEvents{
		events: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (s *MemoryProcessedEvents) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictLocked(now)
	s.events[eventID] = now.Add(ttl)
	return nil
}

func (s *MemoryProcessedEvents) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.events[eventID]
	if !ok {
		return false, nil
	}
	if !s.now().Before(expiresAt) {
		delete(s.events, eventID)
		return false, nil
	}
	return true, nil
}

// evictLocked удаляет истёкшие записи; вызывается под mu
func (s *MemoryProcessedEvents) evictLocked(now time.Time) {
	for id, expiresAt := range s.events {
		if !now.Before(expiresAt) {
			delete(s.events, id)
		}
	}
}
