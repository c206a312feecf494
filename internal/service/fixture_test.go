package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Edward-Mann/book-store/internal/repository"
	"github.com/Edward-Mann/book-store/internal/repository/memory"
)

// fixture: два покупателя и две книги в in-memory хранилище
type fixture struct {
	store *memory.Store
	alice repository.Customer
	bob   repository.Customer
	bookA repository.Book
	bookB repository.Book
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	mustCustomer := func(username string) repository.Customer {
		c, err := store.Customers().Create(ctx, repository.Customer{
			Username: username,
			Email:    username + "@example.com",
			Name:     username,
			Role:     repository.RoleUser,
			Status:   repository.CustomerStatusActive,
		})
		require.NoError(t, err)
		return c
	}
	mustBook := func(title, price string, stock int) repository.Book {
		b, err := store.Catalog().CreateBook(ctx, repository.Book{
			Title:         title,
			Price:         decimal.RequireFromString(price),
			StockQuantity: stock,
		})
		require.NoError(t, err)
		return b
	}

	return fixture{
		store: store,
		alice: mustCustomer("alice"),
		bob:   mustCustomer("bob"),
		bookA: mustBook("Dune", "10.00", 5),
		bookB: mustBook("Solaris", "5.50", 3),
	}
}

func (f fixture) stock(t *testing.T, bookID int64) int {
	t.Helper()
	b, err := f.store.Catalog().GetBook(context.Background(), bookID)
	require.NoError(t, err)
	return b.StockQuantity
}

func (f fixture) cartService() *CartService {
	return NewCartService(zap.NewNop(), f.store)
}

func (f fixture) orderService(topic string) *OrderService {
	return NewOrderService(zap.NewNop(), f.store, topic)
}

// untouchableStore проваливает тест при любом обращении к хранилищу
type untouchableStore struct {
	t *testing.T
}

func (s untouchableStore) fail(method string) {
	s.t.Helper()
	s.t.Fatalf("store must not be touched, got call to %s", method)
}

func (s untouchableStore) Customers() repository.CustomerRepository {
	s.fail("Customers")
	return nil
}

func (s untouchableStore) Catalog() repository.CatalogRepository {
	s.fail("Catalog")
	return nil
}

func (s untouchableStore) Carts() repository.CartRepository {
	s.fail("Carts")
	return nil
}

func (s untouchableStore) Orders() repository.OrderRepository {
	s.fail("Orders")
	return nil
}

func (s untouchableStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.fail("WithinTx")
	return nil
}

func (s untouchableStore) Ping(ctx context.Context) error {
	s.fail("Ping")
	return nil
}

func nopLogger() *zap.Logger { return zap.NewNop() }

// wrappedStore - memory.Store, у которого каталог транзакции подменён обёрткой
type wrappedStore struct {
	*memory.Store
	catalog func(repository.CatalogRepository) repository.CatalogRepository
}

func wrapCatalog(store *memory.Store, catalog func(repository.CatalogRepository) repository.CatalogRepository) wrappedStore {
	return wrappedStore{Store: store, catalog: catalog}
}

func (s wrappedStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, wrappedTx{Tx: tx, catalog: s.catalog(tx.Catalog())})
	})
}

type wrappedTx struct {
	repository.Tx
	catalog repository.CatalogRepository
}

func (t wrappedTx) Catalog() repository.CatalogRepository { return t.catalog }
