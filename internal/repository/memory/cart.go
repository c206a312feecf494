package memory

import (
	"context"

	"github.com/Edward-Mann/book-store/internal/repository"
)

type cartRepository struct {
	db handle
}

func (r *cartRepository) GetByCustomerID(ctx context.Context, customerID int64) (repository.Cart, error) {
	var (
		cart repository.Cart
		ok   bool
	)
	r.db.read(func(st *state) {
		for _, c := range st.carts {
			if c.CustomerID == customerID {
				cart, ok = c, true
				break
			}
		}
		if !ok {
			return
		}
		cart.Items = []repository.CartItem{}
		for _, id := range sortedKeys(st.cartItems) {
			it := st.cartItems[id]
			if it.CartID != cart.ID {
				continue
			}
			if rec, found := st.books[it.BookID]; found {
				it.Book = st.hydrateBook(rec)
			}
			cart.Items = append(cart.Items, it)
		}
	})
	if !ok {
		return repository.Cart{}, repository.ErrNotFound
	}
	return cart, nil
}

func (r *cartRepository) Create(ctx context.Context, cart repository.Cart) (repository.Cart, error) {
	r.db.write(func(st *state, undo *undoLog) {
		for _, c := range st.carts {
			if c.CustomerID == cart.CustomerID {
				cart = c
				return
			}
		}
		cart.ID = st.nextID("carts")
		saveKey(undo, st.carts, cart.ID)
		cart.Items = nil
		st.carts[cart.ID] = cart
	})
	cart.Items = []repository.CartItem{}
	return cart, nil
}

func (r *cartRepository) GetItem(ctx context.Context, itemID int64) (repository.CartItem, error) {
	var (
		it repository.CartItem
		ok bool
	)
	r.db.read(func(st *state) { it, ok = st.cartItems[itemID] })
	if !ok {
		return repository.CartItem{}, repository.ErrNotFound
	}
	return it, nil
}

func (r *cartRepository) AddItem(ctx context.Context, item repository.CartItem) (repository.CartItem, error) {
	var err error
	r.db.write(func(st *state, undo *undoLog) {
		if _, ok := st.carts[item.CartID]; !ok {
			err = repository.ErrNotFound
			return
		}
		if _, ok := st.books[item.BookID]; !ok {
			err = repository.ErrNotFound
			return
		}
		for _, existing := range st.cartItems {
			if existing.CartID == item.CartID && existing.BookID == item.BookID {
				err = repository.ErrAlreadyExists
				return
			}
		}
		item.ID = st.nextID("cart_items")
		item.Book = repository.Book{}
		saveKey(undo, st.cartItems, item.ID)
		st.cartItems[item.ID] = item
	})
	if err != nil {
		return repository.CartItem{}, err
	}
	return item, nil
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	var err error
	r.db.write(func(st *state, undo *undoLog) {
		it, ok := st.cartItems[itemID]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		saveKey(undo, st.cartItems, itemID)
		it.Quantity = quantity
		st.cartItems[itemID] = it
	})
	return err
}

func (r *cartRepository) DeleteItem(ctx context.Context, itemID int64) error {
	var err error
	r.db.write(func(st *state, undo *undoLog) {
		if _, ok := st.cartItems[itemID]; !ok {
			err = repository.ErrNotFound
			return
		}
		saveKey(undo, st.cartItems, itemID)
		delete(st.cartItems, itemID)
	})
	return err
}

func (r *cartRepository) ClearItems(ctx context.Context, cartID int64) error {
	r.db.write(func(st *state, undo *undoLog) {
		for id, it := range st.cartItems {
			if it.CartID == cartID {
				saveKey(undo, st.cartItems, id)
				delete(st.cartItems, id)
			}
		}
	})
	return nil
}
