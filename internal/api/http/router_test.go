package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Edward-Mann/book-store/internal/api/http/middleware"
	"github.com/Edward-Mann/book-store/internal/repository"
	"github.com/Edward-Mann/book-store/internal/repository/memory"
	"github.com/Edward-Mann/book-store/internal/service"
)

type testAPI struct {
	t      *testing.T
	store  *memory.Store
	router http.Handler
	svc    Services
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	sessions := memory.NewSessionRepository()

	svc := Services{
		Cart:      service.NewCartService(logger, store),
		Orders:    service.NewOrderService(logger, store, ""),
		Catalog:   service.NewCatalogService(logger, store),
		Customers: service.NewCustomerService(logger, store.Customers(), bcrypt.MinCost),
		Auth:      service.NewAuthService(logger, store.Customers(), sessions, time.Hour),
	}
	h := NewHandler(logger, svc, time.Hour, false)

	return &testAPI{
		t:      t,
		store:  store,
		router: NewRouter(h, svc.Auth, store.Ping, logger),
		svc:    svc,
	}
}

type envelope struct {
	Message string          `json:"message"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func (a *testAPI) do(method, path, sessionID string, body any) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(a.t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(middleware.SessionHeader, sessionID)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

// login регистрирует покупателя и возвращает id сессии
func (a *testAPI) registerAndLogin(username string) string {
	a.t.Helper()
	rec, _ := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"password": "secret123",
		"name":     username,
		"email":    username + "@example.com",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code)
	return a.login(username)
}

func (a *testAPI) login(username string) string {
	a.t.Helper()
	rec, _ := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": "secret123",
	})
	require.Equal(a.t, http.StatusOK, rec.Code)
	sid := rec.Header().Get(middleware.SessionHeader)
	require.NotEmpty(a.t, sid)
	return sid
}

func (a *testAPI) adminSession() string {
	a.t.Helper()
	_, err := a.svc.Customers.EnsureAdmin(context.Background(), service.RegisterInput{
		Username: "admin",
		Password: "secret123",
		Name:     "Admin",
		Email:    "admin@example.com",
	})
	require.NoError(a.t, err)
	return a.login("admin")
}

func (a *testAPI) book(title, price string, stock int) repository.Book {
	a.t.Helper()
	b, err := a.store.Catalog().CreateBook(context.Background(), repository.Book{
		Title:         title,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	})
	require.NoError(a.t, err)
	return b
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	rec, _ := api.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"ok"`)
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/cart"},
		{http.MethodPost, "/api/cart/items"},
		{http.MethodPost, "/api/orders/checkout"},
		{http.MethodGet, "/api/orders"},
		{http.MethodGet, "/api/customers/profile"},
		{http.MethodPost, "/api/books"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec, env := api.do(tt.method, tt.path, "", nil)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.False(t, env.Success)
			require.Equal(t, "Authentication required", env.Message)
		})
	}

	t.Run("unknown session", func(t *testing.T) {
		rec, env := api.do(http.MethodGet, "/api/cart", "no-such-session", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "Session not found or expired", env.Message)
	})
}

func TestCartAndCheckoutFlow(t *testing.T) {
	api := newTestAPI(t)
	dune := api.book("Dune", "10.00", 5)
	sid := api.registerAndLogin("alice")

	rec, env := api.do(http.MethodGet, "/api/cart", sid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Cart retrieved successfully", env.Message)
	var cart CartResponse
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	require.Empty(t, cart.Items)

	rec, env = api.do(http.MethodPost, "/api/cart/items", sid, map[string]any{"bookId": dune.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "Item added to cart successfully", env.Message)
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	require.Len(t, cart.Items, 1)
	require.Equal(t, 2, cart.Items[0].Quantity)
	require.Equal(t, "Dune", cart.Items[0].Book.Title)

	rec, env = api.do(http.MethodPost, "/api/orders/checkout", sid, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "Order placed successfully", env.Message)
	var order OrderResponse
	require.NoError(t, json.Unmarshal(env.Data, &order))
	require.Equal(t, repository.OrderStatusNew, order.Status)
	require.True(t, decimal.RequireFromString("20").Equal(order.TotalPrice))
	require.Len(t, order.Items, 1)

	rec, env = api.do(http.MethodGet, "/api/orders", sid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []OrderResponse
	require.NoError(t, json.Unmarshal(env.Data, &orders))
	require.Len(t, orders, 1)
	require.Equal(t, order.ID, orders[0].ID)

	rec, env = api.do(http.MethodGet, "/api/cart", sid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	require.Empty(t, cart.Items)

	b, err := api.store.Catalog().GetBook(context.Background(), dune.ID)
	require.NoError(t, err)
	require.Equal(t, 3, b.StockQuantity)
}

func TestCheckoutErrors(t *testing.T) {
	api := newTestAPI(t)
	dune := api.book("Dune", "10.00", 1)
	sid := api.registerAndLogin("alice")

	rec, env := api.do(http.MethodPost, "/api/orders/checkout", sid, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Cannot place order: cart is empty", env.Message)

	rec, _ = api.do(http.MethodPost, "/api/cart/items", sid, map[string]any{"bookId": dune.ID, "quantity": 3})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env = api.do(http.MethodPost, "/api/orders/checkout", sid, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Insufficient stock for book: Dune. Available: 1, Requested: 3", env.Message)
}

func TestAddItemValidation(t *testing.T) {
	api := newTestAPI(t)
	sid := api.registerAndLogin("alice")

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "malformed json",
			body:       "{not json",
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Malformed JSON request body",
		},
		{
			name:       "missing fields",
			body:       map[string]any{"quantity": 0},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "bookId: must not be blank, quantity: must be greater than or equal to 1",
		},
		{
			name:       "unknown book",
			body:       map[string]any{"bookId": 999, "quantity": 1},
			wantStatus: http.StatusNotFound,
			wantMsg:    "Book not found with ID: 999",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := api.do(http.MethodPost, "/api/cart/items", sid, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code)
			require.False(t, env.Success)
			require.Equal(t, tt.wantMsg, env.Message)
		})
	}
}

func TestRemoveItem(t *testing.T) {
	api := newTestAPI(t)
	dune := api.book("Dune", "10.00", 5)
	alice := api.registerAndLogin("alice")
	bob := api.registerAndLogin("bob")

	_, env := api.do(http.MethodPost, "/api/cart/items", alice, map[string]any{"bookId": dune.ID, "quantity": 1})
	var cart CartResponse
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	itemPath := fmt.Sprintf("/api/cart/items/%d", cart.Items[0].ID)

	rec, env := api.do(http.MethodDelete, itemPath, bob, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "User does not have permission to remove this item", env.Message)

	rec, _ = api.do(http.MethodDelete, "/api/cart/items/abc", alice, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = api.do(http.MethodDelete, itemPath, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Item removed from cart successfully", env.Message)
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	require.Empty(t, cart.Items)
}

func TestRoleChecks(t *testing.T) {
	api := newTestAPI(t)
	user := api.registerAndLogin("alice")
	admin := api.adminSession()

	rec, env := api.do(http.MethodPost, "/api/books", user, map[string]any{"title": "Dune", "price": 10})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "Access denied", env.Message)

	rec, _ = api.do(http.MethodGet, "/api/orders/admin/all", user, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// корзина для просмотра доступна только роли USER
	rec, _ = api.do(http.MethodGet, "/api/cart", admin, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = api.do(http.MethodGet, "/api/orders/admin/all", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "All orders retrieved successfully", env.Message)
}

func TestBookAdministration(t *testing.T) {
	api := newTestAPI(t)
	admin := api.adminSession()

	rec, env := api.do(http.MethodGet, "/api/books", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "No Books available in this category", env.Message)

	rec, env = api.do(http.MethodPost, "/api/publishers", admin, map[string]any{"name": "Chilton"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var publisher PublisherResponse
	require.NoError(t, json.Unmarshal(env.Data, &publisher))

	rec, env = api.do(http.MethodPost, "/api/authors", admin, map[string]any{"firstName": "Frank", "lastName": "Herbert"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var author AuthorResponse
	require.NoError(t, json.Unmarshal(env.Data, &author))

	rec, env = api.do(http.MethodPost, "/api/books", admin, map[string]any{
		"title":         "Dune",
		"isbn":          "978-0441013593",
		"price":         "9.99",
		"publishedDate": "1965-08-01",
		"publisherId":   publisher.ID,
		"authorIds":     []int64{author.ID},
		"stockQuantity": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "Book created successfully", env.Message)
	var book BookResponse
	require.NoError(t, json.Unmarshal(env.Data, &book))
	require.Equal(t, []string{"Frank Herbert"}, book.AuthorNames)
	require.Equal(t, "Chilton", *book.PublisherName)
	require.Equal(t, "1965-08-01", *book.PublishedDate)

	bookPath := fmt.Sprintf("/api/books/%d", book.ID)
	rec, env = api.do(http.MethodPut, bookPath, admin, map[string]any{"stockQuantity": 10})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &book))
	require.Equal(t, 10, book.StockQuantity)
	require.Equal(t, "Dune", book.Title)

	rec, env = api.do(http.MethodPost, "/api/books", admin, map[string]any{"title": "", "stockQuantity": -1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "title: must not be blank, price: must not be blank, stockQuantity: must be greater than or equal to 0", env.Message)

	rec, env = api.do(http.MethodGet, bookPath, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Book retrieved successfully", env.Message)

	rec, _ = api.do(http.MethodDelete, bookPath, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = api.do(http.MethodGet, bookPath, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, fmt.Sprintf("Book not found with ID: %d", book.ID), env.Message)
}

func TestSessionLifecycle(t *testing.T) {
	api := newTestAPI(t)
	sid := api.registerAndLogin("alice")

	// cookie SESSION принимается наравне с заголовком
	req := httptest.NewRequest(http.MethodGet, "/api/customers/profile", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: sid})
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := api.do(http.MethodPut, "/api/customers/profile", sid, map[string]any{"phone": "+32 123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var profile CustomerResponse
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	require.Equal(t, "+32 123", profile.Phone)

	rec, _ = api.do(http.MethodPost, "/api/auth/logout", sid, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = api.do(http.MethodGet, "/api/customers/profile", sid, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginAndRegistrationErrors(t *testing.T) {
	api := newTestAPI(t)
	api.registerAndLogin("alice")

	rec, env := api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "wrong-one"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid username or password", env.Message)

	rec, env = api.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"password": "secret123",
		"name":     "Alice",
		"email":    "other@example.com",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "Username already exists: alice", env.Message)

	rec, env = api.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "carol",
		"password": "123",
		"name":     "Carol",
		"email":    "not-an-email",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "password: must be at least 6 characters, email: must be a well-formed email address", env.Message)
}

func TestAdminCustomers(t *testing.T) {
	api := newTestAPI(t)
	admin := api.adminSession()
	sid := api.registerAndLogin("alice")

	alice, err := api.svc.Customers.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	path := fmt.Sprintf("/api/admin/customers/%d", alice.ID)

	rec, env := api.do(http.MethodGet, "/api/admin/customers", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var customers []CustomerResponse
	require.NoError(t, json.Unmarshal(env.Data, &customers))
	require.Len(t, customers, 2)

	rec, env = api.do(http.MethodPost, fmt.Sprintf("/api/upgrade-to-admin/%d", alice.ID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "User upgraded to admin successfully", env.Message)

	rec, _ = api.do(http.MethodDelete, path, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = api.do(http.MethodGet, path, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got CustomerResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Equal(t, string(repository.CustomerStatusDeleted), got.Status)

	// удалённый покупатель больше не проходит аутентификацию
	rec, env = api.do(http.MethodGet, "/api/customers/profile", sid, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Account is not active", env.Message)
}
