package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Author автор книги
type Author struct {
	ID        int64
	FirstName string
	LastName  string
	Bio       string
}

// FullName имя для отображения в карточке книги
func (a Author) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// Publisher издательство
type Publisher struct {
	ID      int64
	Name    string
	Address string
	Website string
}

// Book позиция каталога. StockQuantity >= 0 после любой зафиксированной операции.
type Book struct {
	ID            int64
	Title         string
	ISBN          string
	Description   string
	Price         decimal.Decimal
	PublishedDate *time.Time
	StockQuantity int
	PublisherID   *int64
	Publisher     *Publisher
	Authors       []Author
}

// CatalogRepository хранилище книг, авторов и издательств
type CatalogRepository interface {
	// ListBooks возвращает книги, упорядоченные по ID, с издательством и авторами
	ListBooks(ctx context.Context) ([]Book, error)

	// GetBook возвращает ErrNotFound, если книги нет
	GetBook(ctx context.Context, id int64) (Book, error)

	// CreateBook сохраняет книгу вместе со связями с авторами (book.Authors[i].ID)
	CreateBook(ctx context.Context, book Book) (Book, error)

	// UpdateBook перезаписывает поля книги и набор авторов
	UpdateBook(ctx context.Context, book Book) (Book, error)

	// DeleteBook возвращает ErrNotFound или ErrReferenced (книга есть в заказах)
	DeleteBook(ctx context.Context, id int64) error

	// DecrementStock атомарно уменьшает остаток, если его хватает.
	// Возвращает false, если остаток меньше quantity (остаток не меняется).
	DecrementStock(ctx context.Context, bookID int64, quantity int) (bool, error)

	ListAuthors(ctx context.Context) ([]Author, error)
	GetAuthor(ctx context.Context, id int64) (Author, error)
	CreateAuthor(ctx context.Context, author Author) (Author, error)

	ListPublishers(ctx context.Context) ([]Publisher, error)
	GetPublisher(ctx context.Context, id int64) (Publisher, error)
	CreatePublisher(ctx context.Context, publisher Publisher) (Publisher, error)
}
