package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Edward-Mann/book-store/internal/repository"
)

// OrderPlacedEventType тип события оформления заказа в outbox
const OrderPlacedEventType = "order.placed"

// OrderService превращает корзину в заказ: проверка и списание остатков, фиксация цен, очистка корзины
type OrderService struct {
	logger      *zap.Logger
	store       repository.Store
	eventsTopic string
	now         func() time.Time
}

// NewOrderService создаёт новый экземпляр OrderService.
// Если eventsTopic не пуст, PlaceOrder пишет событие order.placed в outbox в той же транзакции.
func NewOrderService(logger *zap.Logger, store repository.Store, eventsTopic string) *OrderService {
	return &OrderService{
		logger:      logger,
		store:       store,
		eventsTopic: eventsTopic,
		now:         time.Now,
	}
}

// maxOrderTotal предел orders.total_price NUMERIC(12, 2)
var maxOrderTotal = decimal.RequireFromString("9999999999.99")

// PlaceOrder оформляет заказ из корзины покупателя.
// Все шаги выполняются в одной транзакции: при любой ошибке ни заказ, ни списание остатков не сохраняются.
func (s *OrderService) PlaceOrder(ctx context.Context, customerID int64) (repository.Order, error) {
	var placed repository.Order
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := findCustomer(ctx, tx.Customers(), customerID); err != nil {
			return err
		}

		cart, err := tx.Carts().GetByCustomerID(ctx, customerID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("get cart: %w", err)
		}
		if err != nil || len(cart.Items) == 0 {
			return invalidState("Cannot place order: cart is empty")
		}

		order := repository.Order{
			CustomerID: customerID,
			OrderDate:  s.now().UTC(),
			Status:     repository.OrderStatusNew,
			TotalPrice: decimal.Zero,
			Items:      make([]repository.OrderItem, 0, len(cart.Items)),
		}

		for _, cartItem := range cart.Items {
			book := cartItem.Book
			if book.StockQuantity < cartItem.Quantity {
				return insufficientStock(book, cartItem.Quantity)
			}

			item := repository.OrderItem{
				BookID:   book.ID,
				Book:     book,
				Quantity: cartItem.Quantity,
				Price:    book.Price,
			}

			// Условное списание: между чтением корзины и UPDATE остаток мог уменьшиться
			ok, err := tx.Catalog().DecrementStock(ctx, book.ID, cartItem.Quantity)
			if err != nil {
				return fmt.Errorf("decrement stock for book %d: %w", book.ID, err)
			}
			if !ok {
				fresh, err := tx.Catalog().GetBook(ctx, book.ID)
				if err != nil {
					return fmt.Errorf("get book: %w", err)
				}
				return insufficientStock(fresh, cartItem.Quantity)
			}
			item.Book.StockQuantity -= cartItem.Quantity

			order.Items = append(order.Items, item)
			order.TotalPrice = order.TotalPrice.Add(item.LineTotal())
		}

		if order.TotalPrice.GreaterThan(maxOrderTotal) {
			return invalidState("Order total %s exceeds the maximum of %s",
				order.TotalPrice.StringFixed(2), maxOrderTotal.StringFixed(2))
		}

		placed, err = tx.Orders().Create(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		if err := tx.Carts().ClearItems(ctx, cart.ID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		if s.eventsTopic != "" {
			event, err := newOrderPlacedEvent(placed, s.eventsTopic, s.now())
			if err != nil {
				return err
			}
			if err := tx.Orders().AddOutboxEvent(ctx, event); err != nil {
				return fmt.Errorf("add outbox event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if IsClassified(err) {
			s.logger.Warn("order rejected", zap.Int64("customer_id", customerID), zap.Error(err))
		} else {
			s.logger.Error("failed to place order", zap.Int64("customer_id", customerID), zap.Error(err))
		}
		return repository.Order{}, err
	}

	s.logger.Info("order placed",
		zap.Int64("order_id", placed.ID),
		zap.Int64("customer_id", customerID),
		zap.Int("items", len(placed.Items)),
		zap.String("total_price", placed.TotalPrice.StringFixed(2)),
	)
	return placed, nil
}

func insufficientStock(book repository.Book, requested int) error {
	return invalidState("Insufficient stock for book: %s. Available: %d, Requested: %d",
		book.Title, book.StockQuantity, requested)
}

// GetOrdersForCustomer возвращает заказы покупателя в порядке оформления
func (s *OrderService) GetOrdersForCustomer(ctx context.Context, customerID int64) ([]repository.Order, error) {
	if _, err := findCustomer(ctx, s.store.Customers(), customerID); err != nil {
		return nil, err
	}
	orders, err := s.store.Orders().ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// GetAllOrders возвращает все заказы (для администратора)
func (s *OrderService) GetAllOrders(ctx context.Context) ([]repository.Order, error) {
	orders, err := s.store.Orders().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// OrderPlacedEvent payload события order.placed
type OrderPlacedEvent struct {
	EventID      string                 `json:"event_id"`
	EventType    string                 `json:"event_type"`
	EventVersion int                    `json:"event_version"`
	OccurredAt   time.Time              `json:"occurred_at"`
	OrderID      int64                  `json:"order_id"`
	CustomerID   int64                  `json:"customer_id"`
	TotalPrice   decimal.Decimal        `json:"total_price"`
	Items        []OrderPlacedEventItem `json:"items"`
}

// OrderPlacedEventItem позиция заказа в событии
type OrderPlacedEventItem struct {
	BookID   int64           `json:"book_id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

func newOrderPlacedEvent(order repository.Order, topic string, now time.Time) (repository.OutboxEvent, error) {
	eventID := uuid.NewString()
	payload, err := json.Marshal(OrderPlacedEvent{
		EventID:      eventID,
		EventType:    OrderPlacedEventType,
		EventVersion: 1,
		OccurredAt:   now.UTC(),
		OrderID:      order.ID,
		CustomerID:   order.CustomerID,
		TotalPrice:   order.TotalPrice,
		Items: lo.Map(order.Items, func(item repository.OrderItem, _ int) OrderPlacedEventItem {
			return OrderPlacedEventItem{BookID: item.BookID, Quantity: item.Quantity, Price: item.Price}
		}),
	})
	if err != nil {
		return repository.OutboxEvent{}, fmt.Errorf("marshal order placed event: %w", err)
	}

	return repository.OutboxEvent{
		EventID:     eventID,
		Topic:       topic,
		AggregateID: strconv.FormatInt(order.ID, 10),
		Payload:     payload,
		CreatedAt:   now.UTC(),
	}, nil
}
