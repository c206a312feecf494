package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Edward-Mann/book-store/internal/repository"
)

type orderRepository struct {
	q querier
}

// Create сохраняет заказ и позиции. Транзакцией управляет вызывающий (Store.WithinTx).
func (r *orderRepository) Create(ctx context.Context, order repository.Order) (repository.Order, error) {
	err := r.q.QueryRow(ctx,
		`INSERT INTO orders (customer_id, order_date, status, total_price)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		order.CustomerID, order.OrderDate, order.Status, order.TotalPrice,
	).Scan(&order.ID)
	if err != nil {
		return repository.Order{}, fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err := r.q.QueryRow(ctx,
			`INSERT INTO order_items (order_id, book_id, quantity, price)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			order.ID, item.BookID, item.Quantity, item.Price,
		).Scan(&item.ID)
		if err != nil {
			return repository.Order{}, fmt.Errorf("insert order item: %w", err)
		}
	}

	return order, nil
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID int64) ([]repository.Order, error) {
	return r.list(ctx, "WHERE customer_id = $1", customerID)
}

func (r *orderRepository) ListAll(ctx context.Context) ([]repository.Order, error) {
	return r.list(ctx, "")
}

func (r *orderRepository) list(ctx context.Context, where string, args ...any) ([]repository.Order, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, customer_id, order_date, status, total_price FROM orders `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (repository.Order, error) {
		var o repository.Order
		err := row.Scan(&o.ID, &o.CustomerID, &o.OrderDate, &o.Status, &o.TotalPrice)
		o.Items = []repository.OrderItem{}
		return o, err
	})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []repository.Order{}, nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	itemRows, err := r.q.Query(ctx,
		`SELECT id, order_id, book_id, quantity, price FROM order_items
		 WHERE order_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	items, err := pgx.CollectRows(itemRows, func(row pgx.CollectableRow) (repository.OrderItem, error) {
		var it repository.OrderItem
		err := row.Scan(&it.ID, &it.OrderID, &it.BookID, &it.Quantity, &it.Price)
		return it, err
	})
	if err != nil {
		return nil, err
	}

	bookIDs := make([]int64, 0, len(items))
	for _, it := range items {
		bookIDs = append(bookIDs, it.BookID)
	}
	books, err := booksByID(ctx, r.q, bookIDs)
	if err != nil {
		return nil, err
	}

	for _, it := range items {
		it.Book = books[it.BookID]
		i := index[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return orders, nil
}

// AddOutboxEvent сохраняет событие в outbox таблицу в текущей транзакции
func (r *orderRepository) AddOutboxEvent(ctx context.Context, event repository.OutboxEvent) error {
	eventID, err := uuid.Parse(event.EventID)
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	_, err = r.q.Exec(ctx,
		`INSERT INTO outbox_events (event_id, topic, aggregate_id, payload, status)
		 VALUES ($1, $2, $3, $4, 'pending')`,
		eventID, event.Topic, event.AggregateID, event.Payload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r *orderRepository) GetPendingOutboxEvents(ctx context.Context, limit int) ([]repository.OutboxEvent, error) {
	rows, err := r.q.Query(ctx,
		`SELECT event_id::text, topic, aggregate_id, payload, status, attempts, last_error, created_at
		 FROM outbox_events
		 WHERE status = 'pending'
		 ORDER BY attempts, created_at, event_id
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (repository.OutboxEvent, error) {
		var e repository.OutboxEvent
		err := row.Scan(&e.EventID, &e.Topic, &e.AggregateID, &e.Payload, &e.Status,
			&e.Attempts, &e.LastError, &e.CreatedAt)
		return e, err
	})
}

func (r *orderRepository) MarkOutboxEventSent(ctx context.Context, eventID string) error {
	return r.execOutbox(ctx, `UPDATE outbox_events SET status = 'sent' WHERE event_id = $1`, eventID)
}

func (r *orderRepository) MarkOutboxEventFailed(ctx context.Context, eventID string, lastError string) error {
	return r.execOutbox(ctx,
		`UPDATE outbox_events SET status = 'failed', attempts = attempts + 1, last_error = $2 WHERE event_id = $1`,
		eventID, lastError)
}

func (r *orderRepository) ResetOutboxEventPending(ctx context.Context, eventID string) error {
	return r.execOutbox(ctx, `UPDATE outbox_events SET status = 'pending' WHERE event_id = $1`, eventID)
}

// execOutbox обновляет одну строку outbox, event_id передаётся как $1
func (r *orderRepository) execOutbox(ctx context.Context, sql string, eventID string, args ...any) error {
	id, err := uuid.Parse(eventID)
	if err != nil {
		return repository.ErrNotFound
	}
	tag, err := r.q.Exec(ctx, sql, append([]any{id}, args...)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
