package httpapi

import (
	"errors"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/Edward-Mann/book-store/internal/repository"
)

const dateLayout = "2006-01-02"

// BookResponse представляет книгу в HTTP ответе
type BookResponse struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	ISBN          string          `json:"isbn"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	PublishedDate *string         `json:"publishedDate"`
	PublisherID   *int64          `json:"publisherId"`
	PublisherName *string         `json:"publisherName"`
	AuthorIDs     []int64         `json:"authorIds"`
	AuthorNames   []string        `json:"authorNames"`
	StockQuantity int             `json:"stockQuantity"`
}

// BookRequest - тело POST /api/books
type BookRequest struct {
	Title         string           `json:"title" validate:"required"`
	ISBN          string           `json:"isbn"`
	Description   string           `json:"description"`
	Price         *decimal.Decimal `json:"price" validate:"required"`
	PublishedDate string           `json:"publishedDate" validate:"omitempty,datetime=2006-01-02"`
	PublisherID   *int64           `json:"publisherId"`
	AuthorIDs     []int64          `json:"authorIds"`
	StockQuantity int              `json:"stockQuantity" validate:"min=0"`
}

// BookUpdateRequest - тело PUT /api/books/{id}: отсутствующие поля не меняются
type BookUpdateRequest struct {
	Title         *string          `json:"title" validate:"omitempty,min=1"`
	ISBN          *string          `json:"isbn"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	PublishedDate *string          `json:"publishedDate" validate:"omitempty,datetime=2006-01-02"`
	PublisherID   *int64           `json:"publisherId"`
	AuthorIDs     []int64          `json:"authorIds"`
	StockQuantity *int             `json:"stockQuantity" validate:"omitempty,min=0"`
}

// AuthorResponse представляет автора в HTTP ответе
type AuthorResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Bio       string `json:"bio"`
}

// AuthorRequest - тело POST /api/authors
type AuthorRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Bio       string `json:"bio"`
}

// PublisherResponse представляет издательство в HTTP ответе
type PublisherResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Website string `json:"website"`
}

// PublisherRequest - тело POST /api/publishers
type PublisherRequest struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
	Website string `json:"website" validate:"omitempty,url"`
}

// CartItemResponse представляет позицию корзины
type CartItemResponse struct {
	ID       int64        `json:"id"`
	BookID   int64        `json:"bookId"`
	Quantity int          `json:"quantity"`
	Book     BookResponse `json:"book"`
}

// CartResponse представляет корзину в HTTP ответе
type CartResponse struct {
	ID         int64              `json:"id"`
	CustomerID int64              `json:"customerId"`
	CreatedAt  time.Time          `json:"createdAt"`
	Items      []CartItemResponse `json:"items"`
}

// AddCartItemRequest - тело POST /api/cart/items
type AddCartItemRequest struct {
	BookID   *int64 `json:"bookId" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

// OrderItemResponse представляет позицию заказа
type OrderItemResponse struct {
	ID       int64           `json:"id"`
	OrderID  int64           `json:"orderId"`
	BookID   int64           `json:"bookId"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Book     BookResponse    `json:"book"`
}

// OrderResponse представляет заказ в HTTP ответе
type OrderResponse struct {
	ID         int64               `json:"id"`
	CustomerID int64               `json:"customerId"`
	OrderDate  time.Time           `json:"orderDate"`
	Status     string              `json:"status"`
	TotalPrice decimal.Decimal     `json:"totalPrice"`
	Items      []OrderItemResponse `json:"items"`
}

// CustomerResponse представляет покупателя; хэш пароля наружу не отдаётся
type CustomerResponse struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	Role           string `json:"role"`
	Status         string `json:"status"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	RegisteredDate string `json:"registeredDate"`
}

// RegisterRequest - тело POST /api/auth/register и /api/create-admin
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// LoginRequest - тело POST /api/auth/login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse возвращается после успешного входа
type LoginResponse struct {
	SessionID string           `json:"sessionId"`
	Customer  CustomerResponse `json:"customer"`
}

// ProfileUpdateRequest - тело PUT /api/customers/profile
type ProfileUpdateRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func toBookResponse(b repository.Book) BookResponse {
	resp := BookResponse{
		ID:            b.ID,
		Title:         b.Title,
		ISBN:          b.ISBN,
		Description:   b.Description,
		Price:         b.Price,
		PublisherID:   b.PublisherID,
		StockQuantity: b.StockQuantity,
		AuthorIDs:     lo.Map(b.Authors, func(a repository.Author, _ int) int64 { return a.ID }),
		AuthorNames:   lo.Map(b.Authors, func(a repository.Author, _ int) string { return a.FullName() }),
	}
	if b.PublishedDate != nil {
		resp.PublishedDate = lo.ToPtr(b.PublishedDate.Format(dateLayout))
	}
	if b.Publisher != nil {
		resp.PublisherName = lo.ToPtr(b.Publisher.Name)
	}
	return resp
}

func toBookResponses(books []repository.Book) []BookResponse {
	return lo.Map(books, func(b repository.Book, _ int) BookResponse { return toBookResponse(b) })
}

func toAuthorResponse(a repository.Author) AuthorResponse {
	return AuthorResponse{ID: a.ID, FirstName: a.FirstName, LastName: a.LastName, Bio: a.Bio}
}

func toPublisherResponse(p repository.Publisher) PublisherResponse {
	return PublisherResponse{ID: p.ID, Name: p.Name, Address: p.Address, Website: p.Website}
}

func toCartResponse(c repository.Cart) CartResponse {
	return CartResponse{
		ID:         c.ID,
		CustomerID: c.CustomerID,
		CreatedAt:  c.CreatedAt,
		Items: lo.Map(c.Items, func(it repository.CartItem, _ int) CartItemResponse {
			return CartItemResponse{
				ID:       it.ID,
				BookID:   it.BookID,
				Quantity: it.Quantity,
				Book:     toBookResponse(it.Book),
			}
		}),
	}
}

func toOrderResponse(o repository.Order) OrderResponse {
	return OrderResponse{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		OrderDate:  o.OrderDate,
		Status:     o.Status,
		TotalPrice: o.TotalPrice,
		Items: lo.Map(o.Items, func(it repository.OrderItem, _ int) OrderItemResponse {
			return OrderItemResponse{
				ID:       it.ID,
				OrderID:  it.OrderID,
				BookID:   it.BookID,
				Quantity: it.Quantity,
				Price:    it.Price,
				Book:     toBookResponse(it.Book),
			}
		}),
	}
}

func toOrderResponses(orders []repository.Order) []OrderResponse {
	return lo.Map(orders, func(o repository.Order, _ int) OrderResponse { return toOrderResponse(o) })
}

func toCustomerResponse(c repository.Customer) CustomerResponse {
	return CustomerResponse{
		ID:             c.ID,
		Username:       c.Username,
		Role:           string(c.Role),
		Status:         string(c.Status),
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		Address:        c.Address,
		RegisteredDate: c.RegisteredDate.Format(dateLayout),
	}
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, errors.New("publishedDate: must be a date in YYYY-MM-DD format")
	}
	return &t, nil
}
