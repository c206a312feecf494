package service

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Edward-Mann/book-store/internal/repository"
)

func TestOrderService_PlaceOrder_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	carts := f.cartService()
	orders := f.orderService("")

	_, err := carts.AddItem(ctx, AddItemInput{CustomerID: f.alice.ID, BookID: f.bookA.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, AddItemInput{CustomerID: f.alice.ID, BookID: f.bookB.ID, Quantity: 1})
	require.NoError(t, err)
	cartBefore, err := carts.GetOrCreateCart(ctx, f.alice.ID)
	require.NoError(t, err)

	order, err := orders.PlaceOrder(ctx, f.alice.ID)
	require.NoError(t, err)

	assert.NotZero(t, order.ID)
	assert.Equal(t, f.alice.ID, order.CustomerID)
	assert.Equal(t, repository.OrderStatusNew, order.Status)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("25.50")), "total = %s", order.TotalPrice)
	assert.Equal(t, "25.50", order.TotalPrice.StringFixed(2))
	require.Len(t, order.Items, 2)
	assert.True(t, order.Items[0].Price.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, order.Items[1].Price.Equal(decimal.RequireFromString("5.50")))

	assert.Equal(t, 3, f.stock(t, f.bookA.ID))
	assert.Equal(t, 2, f.stock(t, f.bookB.ID))

	cartAfter, err := carts.GetOrCreateCart(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, cartBefore.ID, cartAfter.ID, "cart row survives checkout")
	assert.Empty(t, cartAfter.Items)

	// Корзина переиспользуется
	cartAfter, err = carts.AddItem(ctx, AddItemInput{CustomerID: f.alice.ID, BookID: f.bookA.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, cartBefore.ID, cartAfter.ID)
	require.Len(t, cartAfter.Items, 1)
}

func TestOrderService_PlaceOrder_EmptyCart(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		prepare func(t *testing.T, f fixture)
	}{
		{
			name:    "no cart at all",
			prepare: func(t *testing.T, f fixture) {},
		},
		{
			name: "cart exists without items",
			prepare: func(t *testing.T, f fixture) {
				_, err := f.cartService().GetOrCreateCart(ctx, f.alice.ID)
				require.NoError(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.prepare(t, f)

			_, err := f.orderService("orders").PlaceOrder(ctx, f.alice.ID)
			require.ErrorIs(t, err, ErrInvalidState)
			assert.Equal(t, "Cannot place order: cart is empty", err.Error())

			all, err := f.store.Orders().ListAll(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)

			pending, err := f.store.Orders().GetPendingOutboxEvents(ctx, 10)
			require.NoError(t, err)
			assert.Empty(t, pending)
		})
	}
}

func TestOrderService_PlaceOrder_InsufficientStockRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	carts := f.cartService()

	// Первая позиция проходит и списывается, вторая - нет: списание первой должно откатиться
	_, err := carts.AddItem(ctx, AddItemInput{CustomerID: f.alice.ID, BookID: f.bookA.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, AddItemInput{CustomerID: f.alice.ID, BookID: f.bookB.ID, Quantity: 4})
	require.NoError(t, err)

	_, err = f.orderService("").PlaceOrder(ctx, f.alice.ID)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, "Insufficient stock for book: Solaris. Available: 3, Requested: 4", err.Error())

	assert.Equal(t, 5, f.stock(t, f.bookA.ID))
	assert.Equal(t, 3, f.stock(t, f.bookB.ID))

	all, err := f.store.Orders().ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	cart, err := carts.GetOrCreateCart(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2, "cart is untouched after a failed checkout")
}

func TestOrderService_PlaceOrder_UnknownCustomer(t *testing.T) {
	f := newFixture(t)
	_, err := f.orderService("").PlaceOrder(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOrderService_PriceSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.cartService().AddItem(ctx, AddItemInput{CustomerID: f.alice.ID, BookID: f.bookA.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.orderService("").PlaceOrder(ctx, f.alice.ID)
	require.NoError(t, err)

	newPrice := decimal.RequireFromString("42.00")
	_, err = NewCatalogService(nopLogger(), f.store).UpdateBook(ctx, f.bookA.ID, BookPatch{Price: &newPrice})
	require.NoError(t, err)

	orders, err := f.orderService("").GetOrdersForCustomer(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	item := orders[0].Items[0]
	assert.True(t, item.Price.Equal(decimal.RequireFromString("10.00")), "order item price must not follow book price")
	assert.True(t, item.Book.Price.Equal(newPrice))
	assert.True(t, orders[0].TotalPrice.Equal(decimal.RequireFromString("10.00")))
}

func TestOrderService_GetOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	carts := f.cartService()
	orders := f.orderService("")

	for _, c := range []repository.Customer{f.alice, f.bob, f.alice} {
		_, err := carts.AddItem(ctx, AddItemInput{CustomerID: c.ID, BookID: f.bookA.ID, Quantity: 1})
		require.NoError(t, err)
		_, err = orders.PlaceOrder(ctx, c.ID)
		require.NoError(t, err)
	}

	mine, err := orders.GetOrdersForCustomer(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Less(t, mine[0].ID, mine[1].ID)
	for _, o := range mine {
		assert.Equal(t, f.alice.ID, o.CustomerID)
	}

	all, err := orders.GetAllOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = orders.GetOrdersForCustomer(ctx, 404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOrderService_PlaceOrder_WritesOutboxEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.cartService().AddItem(ctx, AddItemInput{CustomerID: f.alice.ID, BookID: f.bookB.ID, Quantity: 2})
	require.NoError(t, err)

	order, err := f.orderService("bookstore.order.placed").PlaceOrder(ctx, f.alice.ID)
	require.NoError(t, err)

	pending, err := f.store.Orders().GetPendingOutboxEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "bookstore.order.placed", pending[0].Topic)
	assert.Equal(t, strconv.FormatInt(order.ID, 10), pending[0].AggregateID)

	var event OrderPlacedEvent
	require.NoError(t, json.Unmarshal(pending[0].Payload, &event))
	assert.Equal(t, OrderPlacedEventType, event.EventType)
	assert.Equal(t, pending[0].EventID, event.EventID)
	assert.Equal(t, order.ID, event.OrderID)
	assert.True(t, event.TotalPrice.Equal(decimal.RequireFromString("11.00")))
	require.Len(t, event.Items, 1)
	assert.Equal(t, 2, event.Items[0].Quantity)
}

// racingCatalog имитирует покупателя, который успевает купить книгу между чтением корзины и списанием:
// его покупка фиксируется вне транзакции, а условное списание в транзакции не проходит.
type racingCatalog struct {
	repository.CatalogRepository
	t          *testing.T
	competitor repository.CatalogRepository
	bookID     int64
	bought     int
}

func (c racingCatalog) DecrementStock(ctx context.Context, bookID int64, quantity int) (bool, error) {
	if bookID != c.bookID {
		return c.CatalogRepository.DecrementStock(ctx, bookID, quantity)
	}
	ok, err := c.competitor.DecrementStock(ctx, bookID, c.bought)
	require.NoError(c.t, err)
	require.True(c.t, ok)
	return false, nil
}

func TestOrderService_PlaceOrder_LostStockRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	carts := f.cartService()

	_, err := carts.AddItem(ctx, AddItemInput{CustomerID: f.alice.ID, BookID: f.bookA.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, AddItemInput{CustomerID: f.alice.ID, BookID: f.bookB.ID, Quantity: 2})
	require.NoError(t, err)

	store := wrapCatalog(f.store, func(c repository.CatalogRepository) repository.CatalogRepository {
		return racingCatalog{CatalogRepository: c, t: t, competitor: f.store.Catalog(), bookID: f.bookB.ID, bought: 2}
	})
	orders := NewOrderService(nopLogger(), store, "bookstore.order.placed")

	_, err = orders.PlaceOrder(ctx, f.alice.ID)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, "Insufficient stock for book: Solaris. Available: 1, Requested: 2", err.Error())

	assert.Equal(t, 5, f.stock(t, f.bookA.ID), "earlier line is rolled back")
	assert.Equal(t, 1, f.stock(t, f.bookB.ID), "competing purchase is kept")

	all, err := f.store.Orders().ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	pending, err := f.store.Orders().GetPendingOutboxEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	cart, err := carts.GetOrCreateCart(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
}

func TestOrderService_PlaceOrder_TotalAboveColumnRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rare, err := f.store.Catalog().CreateBook(ctx, repository.Book{
		Title:         "Rare",
		Price:         decimal.RequireFromString("99999999.99"),
		StockQuantity: 200,
	})
	require.NoError(t, err)
	_, err = f.cartService().AddItem(ctx, AddItemInput{CustomerID: f.alice.ID, BookID: rare.ID, Quantity: 101})
	require.NoError(t, err)

	_, err = f.orderService("").PlaceOrder(ctx, f.alice.ID)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, "Order total 10099999998.99 exceeds the maximum of 9999999999.99", err.Error())
	assert.Equal(t, 200, f.stock(t, rare.ID))
}
