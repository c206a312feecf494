package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/Edward-Mann/book-store/internal/repository"
)

// CartService управляет корзиной покупателя: ленивое создание, добавление с объединением по книге,
// удаление с проверкой владельца. Каждая операция выполняется в одной транзакции.
type CartService struct {
	logger *zap.Logger
	store  repository.Store
	now    func() time.Time
}

// NewCartService создаёт новый экземпляр CartService
func NewCartService(logger *zap.Logger, store repository.Store) *CartService {
	return &CartService{
		logger: logger,
		store:  store,
		now:    time.Now,
	}
}

// GetOrCreateCart возвращает корзину покупателя, создавая её при первом обращении
func (s *CartService) GetOrCreateCart(ctx context.Context, customerID int64) (repository.Cart, error) {
	var cart repository.Cart
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		cart, err = getOrCreateCart(ctx, tx, customerID, s.now())
		return err
	})
	if err != nil {
		return repository.Cart{}, err
	}
	return cart, nil
}

// maxItemQuantity предел cart_items.quantity (INTEGER), в том числе после объединения позиций
const maxItemQuantity = math.MaxInt32

// AddItemInput содержит входные данные для добавления книги в корзину
type AddItemInput struct {
	CustomerID int64
	BookID     int64
	Quantity   int
}

// AddItem добавляет книгу в корзину. Если книга уже в корзине, количество суммируется.
// Остаток не проверяется: он проверяется только при оформлении заказа.
func (s *CartService) AddItem(ctx context.Context, input AddItemInput) (repository.Cart, error) {
	// До любых обращений к хранилищу
	if input.Quantity < 1 {
		return repository.Cart{}, invalidArgument("Quantity must be positive")
	}
	if input.Quantity > maxItemQuantity {
		return repository.Cart{}, invalidArgument("Quantity must not exceed %d", maxItemQuantity)
	}

	var cart repository.Cart
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		current, err := getOrCreateCart(ctx, tx, input.CustomerID, s.now())
		if err != nil {
			return err
		}

		if _, err := tx.Catalog().GetBook(ctx, input.BookID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("Book not found with ID: %d", input.BookID)
			}
			return fmt.Errorf("get book: %w", err)
		}

		merged := false
		for _, item := range current.Items {
			if item.BookID != input.BookID {
				continue
			}
			// обе части не больше MaxInt32, поэтому сумма не переполняет int
			if item.Quantity > maxItemQuantity-input.Quantity {
				return invalidArgument("Quantity must not exceed %d in total, already in cart: %d",
					maxItemQuantity, item.Quantity)
			}
			if err := tx.Carts().UpdateItemQuantity(ctx, item.ID, item.Quantity+input.Quantity); err != nil {
				return fmt.Errorf("update cart item: %w", err)
			}
			merged = true
			break
		}

		if !merged {
			_, err := tx.Carts().AddItem(ctx, repository.CartItem{
				CartID:   current.ID,
				BookID:   input.BookID,
				Quantity: input.Quantity,
			})
			if err != nil {
				return fmt.Errorf("add cart item: %w", err)
			}
		}

		cart, err = tx.Carts().GetByCustomerID(ctx, input.CustomerID)
		if err != nil {
			return fmt.Errorf("reload cart: %w", err)
		}

		s.logger.Info("cart item added",
			zap.Int64("customer_id", input.CustomerID),
			zap.Int64("cart_id", cart.ID),
			zap.Int64("book_id", input.BookID),
			zap.Int("quantity", input.Quantity),
			zap.Bool("merged", merged),
		)
		return nil
	})
	if err != nil {
		return repository.Cart{}, err
	}
	return cart, nil
}

// RemoveItemInput содержит входные данные для удаления позиции из корзины
type RemoveItemInput struct {
	CustomerID int64
	ItemID     int64
}

// RemoveItem удаляет позицию из корзины покупателя.
// Позиция чужой корзины → ErrPermissionDenied, а не ErrNotFound; позиция при этом не удаляется.
func (s *CartService) RemoveItem(ctx context.Context, input RemoveItemInput) (repository.Cart, error) {
	var cart repository.Cart
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		current, err := getOrCreateCart(ctx, tx, input.CustomerID, s.now())
		if err != nil {
			return err
		}

		item, err := tx.Carts().GetItem(ctx, input.ItemID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("Cart item not found with ID: %d", input.ItemID)
			}
			return fmt.Errorf("get cart item: %w", err)
		}

		if !ownedBy(item, current) {
			s.logger.Warn("cart item removal denied",
				zap.Int64("customer_id", input.CustomerID),
				zap.Int64("item_id", input.ItemID),
			)
			return permissionDenied("User does not have permission to remove this item")
		}

		if err := tx.Carts().DeleteItem(ctx, item.ID); err != nil {
			return fmt.Errorf("delete cart item: %w", err)
		}

		cart, err = tx.Carts().GetByCustomerID(ctx, input.CustomerID)
		if err != nil {
			return fmt.Errorf("reload cart: %w", err)
		}

		s.logger.Info("cart item removed",
			zap.Int64("customer_id", input.CustomerID),
			zap.Int64("item_id", input.ItemID),
		)
		return nil
	})
	if err != nil {
		return repository.Cart{}, err
	}
	return cart, nil
}

func ownedBy(item repository.CartItem, cart repository.Cart) bool {
	return item.CartID == cart.ID
}

// getOrCreateCart работает внутри уже открытой транзакции
func getOrCreateCart(ctx context.Context, tx repository.Tx, customerID int64, now time.Time) (repository.Cart, error) {
	if _, err := findCustomer(ctx, tx.Customers(), customerID); err != nil {
		return repository.Cart{}, err
	}

	cart, err := tx.Carts().GetByCustomerID(ctx, customerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return repository.Cart{}, fmt.Errorf("get cart: %w", err)
	}

	if _, err := tx.Carts().Create(ctx, repository.Cart{CustomerID: customerID, CreatedAt: now}); err != nil {
		return repository.Cart{}, fmt.Errorf("create cart: %w", err)
	}

	// Перечитываем: при гонке Create вернул чужую вставку, у неё могут быть позиции
	cart, err = tx.Carts().GetByCustomerID(ctx, customerID)
	if err != nil {
		return repository.Cart{}, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// findCustomer переводит ErrNotFound репозитория в ошибку NotFound сервиса
func findCustomer(ctx context.Context, customers repository.CustomerRepository, customerID int64) (repository.Customer, error) {
	customer, err := customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Customer{}, notFound("Customer not found with ID: %d", customerID)
		}
		return repository.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return customer, nil
}
