package repository

import (
	"context"
	"time"
)

// Cart корзина покупателя (1:1). Создаётся лениво, после оформления заказа очищается, но не удаляется.
type Cart struct {
	ID         int64
	CustomerID int64
	CreatedAt  time.Time
	Items      []CartItem
}

// CartItem позиция корзины. Quantity >= 1, пара (CartID, BookID) уникальна.
type CartItem struct {
	ID       int64
	CartID   int64
	BookID   int64
	Book     Book
	Quantity int
}

// CartRepository хранилище корзин
type CartRepository interface {
	// GetByCustomerID возвращает корзину с позициями (в порядке добавления) и книгами.
	// Возвращает ErrNotFound, если корзины ещё нет.
	GetByCustomerID(ctx context.Context, customerID int64) (Cart, error)

	// Create создаёт пустую корзину. Если корзина у покупателя уже есть, возвращает существующую.
	Create(ctx context.Context, cart Cart) (Cart, error)

	// GetItem возвращает позицию по ID (без книги). ErrNotFound, если позиции нет.
	GetItem(ctx context.Context, itemID int64) (CartItem, error)

	// AddItem сохраняет новую позицию и возвращает её с присвоенным ID
	AddItem(ctx context.Context, item CartItem) (CartItem, error)

	// UpdateItemQuantity устанавливает количество. ErrNotFound, если позиции нет.
	UpdateItemQuantity(ctx context.Context, itemID int64, quantity int) error

	// DeleteItem удаляет позицию. ErrNotFound, если позиции нет.
	DeleteItem(ctx context.Context, itemID int64) error

	// ClearItems удаляет все позиции корзины; сама корзина остаётся
	ClearItems(ctx context.Context, cartID int64) error
}
