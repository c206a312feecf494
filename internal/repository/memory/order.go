package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/Edward-Mann/book-store/internal/repository"
)

type orderRepository struct {
	db handle
}

func (r *orderRepository) Create(ctx context.Context, order repository.Order) (repository.Order, error) {
	r.db.write(func(st *state, undo *undoLog) {
		order.ID = st.nextID("orders")
		order.Items = slices.Clone(order.Items)
		for i := range order.Items {
			order.Items[i].ID = st.nextID("order_items")
			order.Items[i].OrderID = order.ID
		}
		stored := order
		stored.Items = slices.Clone(order.Items)
		for i := range stored.Items {
			stored.Items[i].Book = repository.Book{}
		}
		saveKey(undo, st.orders, order.ID)
		st.orders[order.ID] = stored
	})
	return order, nil
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID int64) ([]repository.Order, error) {
	return r.list(func(o repository.Order) bool { return o.CustomerID == customerID }), nil
}

func (r *orderRepository) ListAll(ctx context.Context) ([]repository.Order, error) {
	return r.list(func(repository.Order) bool { return true }), nil
}

func (r *orderRepository) list(match func(repository.Order) bool) []repository.Order {
	out := []repository.Order{}
	r.db.read(func(st *state) {
		for _, id := range sortedKeys(st.orders) {
			o := st.orders[id]
			if !match(o) {
				continue
			}
			o.Items = slices.Clone(o.Items)
			for i := range o.Items {
				if rec, ok := st.books[o.Items[i].BookID]; ok {
					o.Items[i].Book = st.hydrateBook(rec)
				}
			}
			out = append(out, o)
		}
	})
	return out
}

func (r *orderRepository) AddOutboxEvent(ctx context.Context, event repository.OutboxEvent) error {
	r.db.write(func(st *state, undo *undoLog) {
		event.Status = repository.OutboxStatusPending
		if event.CreatedAt.IsZero() {
			event.CreatedAt = time.Now().UTC()
		}
		saveOutbox(undo, st, event.EventID)
		st.outbox = append(st.outbox, event)
	})
	return nil
}

func (r *orderRepository) GetPendingOutboxEvents(ctx context.Context, limit int) ([]repository.OutboxEvent, error) {
	var out []repository.OutboxEvent
	r.db.read(func(st *state) {
		for _, e := range st.outbox {
			if e.Status == repository.OutboxStatusPending {
				out = append(out, e)
			}
		}
	})
	// outbox хранится в порядке добавления, стабильная сортировка сохраняет его внутри одного attempts
	slices.SortStableFunc(out, func(a, b repository.OutboxEvent) int { return cmp.Compare(a.Attempts, b.Attempts) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *orderRepository) MarkOutboxEventSent(ctx context.Context, eventID string) error {
	return r.updateOutbox(eventID, func(e *repository.OutboxEvent) {
		e.Status = repository.OutboxStatusSent
	})
}

func (r *orderRepository) MarkOutboxEventFailed(ctx context.Context, eventID string, lastError string) error {
	return r.updateOutbox(eventID, func(e *repository.OutboxEvent) {
		e.Status = repository.OutboxStatusFailed
		e.Attempts++
		e.LastError = lastError
	})
}

func (r *orderRepository) ResetOutboxEventPending(ctx context.Context, eventID string) error {
	return r.updateOutbox(eventID, func(e *repository.OutboxEvent) {
		e.Status = repository.OutboxStatusPending
	})
}

func (r *orderRepository) updateOutbox(eventID string, f func(e *repository.OutboxEvent)) error {
	err := repository.ErrNotFound
	r.db.write(func(st *state, undo *undoLog) {
		for i := range st.outbox {
			if st.outbox[i].EventID == eventID {
				saveOutbox(undo, st, eventID)
				f(&st.outbox[i])
				err = nil
				return
			}
		}
	})
	return err
}
