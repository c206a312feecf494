package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Edward-Mann/book-store/internal/repository"
)

type cartRepository struct {
	q querier
}

func (r *cartRepository) GetByCustomerID(ctx context.Context, customerID int64) (repository.Cart, error) {
	var cart repository.Cart
	err := r.q.QueryRow(ctx,
		`SELECT id, customer_id, created_at FROM carts WHERE customer_id = $1`, customerID,
	).Scan(&cart.ID, &cart.CustomerID, &cart.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Cart{}, repository.ErrNotFound
		}
		return repository.Cart{}, err
	}

	rows, err := r.q.Query(ctx,
		`SELECT id, cart_id, book_id, quantity FROM cart_items WHERE cart_id = $1 ORDER BY id`, cart.ID)
	if err != nil {
		return repository.Cart{}, err
	}
	items, err := pgx.CollectRows(rows, scanCartItem)
	if err != nil {
		return repository.Cart{}, err
	}

	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.BookID
	}
	books, err := booksByID(ctx, r.q, ids)
	if err != nil {
		return repository.Cart{}, err
	}
	for i := range items {
		items[i].Book = books[items[i].BookID]
	}

	cart.Items = items
	return cart, nil
}

func scanCartItem(row pgx.CollectableRow) (repository.CartItem, error) {
	var it repository.CartItem
	err := row.Scan(&it.ID, &it.CartID, &it.BookID, &it.Quantity)
	return it, err
}

// Create вставляет корзину; при гонке двух первых обращений вторая вставка ничего не делает,
// и обе возвращают одну и ту же строку (UNIQUE(customer_id)).
func (r *cartRepository) Create(ctx context.Context, cart repository.Cart) (repository.Cart, error) {
	_, err := r.q.Exec(ctx,
		`INSERT INTO carts (customer_id, created_at) VALUES ($1, $2)
		 ON CONFLICT (customer_id) DO NOTHING`,
		cart.CustomerID, cart.CreatedAt)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return repository.Cart{}, repository.ErrNotFound
		}
		return repository.Cart{}, err
	}

	var created repository.Cart
	err = r.q.QueryRow(ctx,
		`SELECT id, customer_id, created_at FROM carts WHERE customer_id = $1`, cart.CustomerID,
	).Scan(&created.ID, &created.CustomerID, &created.CreatedAt)
	if err != nil {
		return repository.Cart{}, err
	}
	created.Items = []repository.CartItem{}
	return created, nil
}

func (r *cartRepository) GetItem(ctx context.Context, itemID int64) (repository.CartItem, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, cart_id, book_id, quantity FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return repository.CartItem{}, err
	}
	it, err := pgx.CollectExactlyOneRow(rows, scanCartItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.CartItem{}, repository.ErrNotFound
		}
		return repository.CartItem{}, err
	}
	return it, nil
}

func (r *cartRepository) AddItem(ctx context.Context, item repository.CartItem) (repository.CartItem, error) {
	err := r.q.QueryRow(ctx,
		`INSERT INTO cart_items (cart_id, book_id, quantity) VALUES ($1, $2, $3) RETURNING id`,
		item.CartID, item.BookID, item.Quantity,
	).Scan(&item.ID)
	if err != nil {
		switch pgCode(err) {
		case codeUniqueViolation:
			return repository.CartItem{}, repository.ErrAlreadyExists
		case codeForeignKeyViolation:
			return repository.CartItem{}, repository.ErrNotFound
		}
		return repository.CartItem{}, err
	}
	return item, nil
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	tag, err := r.q.Exec(ctx, `UPDATE cart_items SET quantity = $2 WHERE id = $1`, itemID, quantity)
	if err != nil {
		switch pgCode(err) {
		case codeCheckViolation, codeNumericOutOfRange:
			return fmt.Errorf("%w: %v", repository.ErrConstraint, err)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *cartRepository) DeleteItem(ctx context.Context, itemID int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *cartRepository) ClearItems(ctx context.Context, cartID int64) error {
	_, err := r.q.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	return err
}
