package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatusNew единственный статус в текущем жизненном цикле заказа
const OrderStatusNew = "NEW"

// Order заказ. Неизменяем после создания; TotalPrice == Σ Price × Quantity.
type Order struct {
	ID         int64
	CustomerID int64
	OrderDate  time.Time
	Status     string
	TotalPrice decimal.Decimal
	Items      []OrderItem
}

// OrderItem позиция заказа. Price - цена книги в момент покупки, не меняется вслед за Book.Price.
type OrderItem struct {
	ID       int64
	OrderID  int64
	BookID   int64
	Book     Book
	Quantity int
	Price    decimal.Decimal
}

// LineTotal стоимость позиции без округления
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OutboxEvent событие, записанное в outbox в транзакции заказа и ожидающее публикации
type OutboxEvent struct {
	EventID     string
	Topic       string
	AggregateID string
	Payload     []byte
	Status      string
	Attempts    int
	LastError   string
	CreatedAt   time.Time
}

// Статусы outbox
const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
	OutboxStatusFailed  = "failed"
)

// OrderRepository определяет интерфейс для работы с хранилищем заказов и outbox
type OrderRepository interface {
	// Create сохраняет заказ вместе с позициями и возвращает его с присвоенными ID
	Create(ctx context.Context, order Order) (Order, error)

	// ListByCustomer возвращает заказы покупателя в порядке создания
	ListByCustomer(ctx context.Context, customerID int64) ([]Order, error)

	// ListAll возвращает все заказы в порядке создания
	ListAll(ctx context.Context) ([]Order, error)

	// AddOutboxEvent сохраняет событие со статусом pending
	AddOutboxEvent(ctx context.Context, event OutboxEvent) error

	// GetPendingOutboxEvents возвращает до limit событий в статусе pending: сначала с меньшим числом
	// неудачных попыток, затем старые. Событие, которое не удаётся опубликовать, не блокирует новые.
	GetPendingOutboxEvents(ctx context.Context, limit int) ([]OutboxEvent, error)

	MarkOutboxEventSent(ctx context.Context, eventID string) error
	MarkOutboxEventFailed(ctx context.Context, eventID string, lastError string) error
	ResetOutboxEventPending(ctx context.Context, eventID string) error
}
