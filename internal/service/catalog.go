package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Edward-Mann/book-store/internal/repository"
)

// CatalogService управляет книгами, авторами и издательствами
type CatalogService struct {
	logger *zap.Logger
	store  repository.Store
}

// NewCatalogService создаёт новый экземпляр CatalogService
func NewCatalogService(logger *zap.Logger, store repository.Store) *CatalogService {
	return &CatalogService{
		logger: logger,
		store:  store,
	}
}

func (s *CatalogService) ListBooks(ctx context.Context) ([]repository.Book, error) {
	books, err := s.store.Catalog().ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

func (s *CatalogService) GetBook(ctx context.Context, id int64) (repository.Book, error) {
	book, err := s.store.Catalog().GetBook(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Book{}, notFound("Book not found with ID: %d", id)
		}
		return repository.Book{}, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// BookInput поля книги при создании
type BookInput struct {
	Title         string
	ISBN          string
	Description   string
	Price         decimal.Decimal
	PublishedDate *time.Time
	StockQuantity int
	PublisherID   *int64
	AuthorIDs     []int64
}

// CreateBook создаёт книгу, проверяя существование издательства и авторов
func (s *CatalogService) CreateBook(ctx context.Context, input BookInput) (repository.Book, error) {
	book := repository.Book{
		Title:         strings.TrimSpace(input.Title),
		ISBN:          strings.TrimSpace(input.ISBN),
		Description:   input.Description,
		Price:         input.Price,
		PublishedDate: input.PublishedDate,
		StockQuantity: input.StockQuantity,
	}
	if err := validateBook(book); err != nil {
		return repository.Book{}, err
	}

	var created repository.Book
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := resolveRefs(ctx, tx.Catalog(), &book, input.PublisherID, input.AuthorIDs); err != nil {
			return err
		}
		var err error
		created, err = tx.Catalog().CreateBook(ctx, book)
		return bookWriteError(err, book)
	})
	if err != nil {
		return repository.Book{}, err
	}

	s.logger.Info("book created", zap.Int64("book_id", created.ID), zap.String("title", created.Title))
	return created, nil
}

// BookPatch частичное обновление книги: nil-поля не меняются.
// AuthorIDs == nil оставляет авторов, пустой срез очищает их.
type BookPatch struct {
	Title         *string
	ISBN          *string
	Description   *string
	Price         *decimal.Decimal
	PublishedDate *time.Time
	StockQuantity *int
	PublisherID   *int64
	AuthorIDs     []int64
}

// UpdateBook применяет patch и проверяет итоговые значения теми же правилами, что и CreateBook
func (s *CatalogService) UpdateBook(ctx context.Context, id int64, patch BookPatch) (repository.Book, error) {
	var updated repository.Book
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		book, err := tx.Catalog().GetBook(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("Book not found with ID: %d", id)
			}
			return fmt.Errorf("get book: %w", err)
		}

		if patch.Title != nil {
			book.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.ISBN != nil {
			book.ISBN = strings.TrimSpace(*patch.ISBN)
		}
		if patch.Description != nil {
			book.Description = *patch.Description
		}
		if patch.Price != nil {
			book.Price = *patch.Price
		}
		if patch.PublishedDate != nil {
			book.PublishedDate = patch.PublishedDate
		}
		if patch.StockQuantity != nil {
			book.StockQuantity = *patch.StockQuantity
		}
		if err := validateBook(book); err != nil {
			return err
		}

		authorIDs := patch.AuthorIDs
		if authorIDs == nil {
			authorIDs = make([]int64, 0, len(book.Authors))
			for _, a := range book.Authors {
				authorIDs = append(authorIDs, a.ID)
			}
		}
		publisherID := book.PublisherID
		if patch.PublisherID != nil {
			publisherID = patch.PublisherID
		}
		if err := resolveRefs(ctx, tx.Catalog(), &book, publisherID, authorIDs); err != nil {
			return err
		}

		updated, err = tx.Catalog().UpdateBook(ctx, book)
		return bookWriteError(err, book)
	})
	if err != nil {
		return repository.Book{}, err
	}

	s.logger.Info("book updated", zap.Int64("book_id", updated.ID))
	return updated, nil
}

// DeleteBook удаляет книгу. Книгу из истории заказов удалить нельзя: ErrConflict.
func (s *CatalogService) DeleteBook(ctx context.Context, id int64) error {
	err := s.store.Catalog().DeleteBook(ctx, id)
	switch {
	case err == nil:
		s.logger.Info("book deleted", zap.Int64("book_id", id))
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound("Book not found with ID: %d", id)
	case errors.Is(err, repository.ErrReferenced):
		return conflict("Book with ID: %d is part of existing orders and cannot be deleted", id)
	}
	return fmt.Errorf("delete book: %w", err)
}

// Пределы колонок books: price NUMERIC(10, 2), stock_quantity INTEGER
var maxBookPrice = decimal.RequireFromString("99999999.99")

const maxStockQuantity = math.MaxInt32

func validateBook(book repository.Book) error {
	switch {
	case book.Title == "":
		return invalidArgument("Book title is required")
	case !book.Price.IsPositive():
		return invalidArgument("Book price must be positive")
	case !book.Price.Equal(book.Price.Round(2)):
		return invalidArgument("Book price must have at most 2 decimal places")
	case book.Price.GreaterThan(maxBookPrice):
		return invalidArgument("Book price must not exceed %s", maxBookPrice.StringFixed(2))
	case book.StockQuantity < 0:
		return invalidArgument("Stock quantity cannot be negative")
	case book.StockQuantity > maxStockQuantity:
		return invalidArgument("Stock quantity must not exceed %d", maxStockQuantity)
	}
	return nil
}

// resolveRefs проверяет издательство и авторов и подставляет их в book
func resolveRefs(ctx context.Context, catalog repository.CatalogRepository, book *repository.Book, publisherID *int64, authorIDs []int64) error {
	book.PublisherID = nil
	book.Publisher = nil
	if publisherID != nil {
		publisher, err := catalog.GetPublisher(ctx, *publisherID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("Publisher with ID: %d not found. Please check the ID and try again.", *publisherID)
			}
			return fmt.Errorf("get publisher: %w", err)
		}
		book.PublisherID = &publisher.ID
		book.Publisher = &publisher
	}

	book.Authors = make([]repository.Author, 0, len(authorIDs))
	seen := make(map[int64]struct{}, len(authorIDs))
	for _, authorID := range authorIDs {
		if _, dup := seen[authorID]; dup {
			continue
		}
		seen[authorID] = struct{}{}

		author, err := catalog.GetAuthor(ctx, authorID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("Author with ID: %d not found. Please check the ID and try again.", authorID)
			}
			return fmt.Errorf("get author: %w", err)
		}
		book.Authors = append(book.Authors, author)
	}
	return nil
}

func bookWriteError(err error, book repository.Book) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrAlreadyExists):
		return conflict("Book with ISBN already exists: %s", book.ISBN)
	case errors.Is(err, repository.ErrNotFound):
		return notFound("Book not found with ID: %d", book.ID)
	case errors.Is(err, repository.ErrConstraint):
		return invalidArgument("Book price or stock quantity is out of range")
	}
	return fmt.Errorf("save book: %w", err)
}

func (s *CatalogService) ListAuthors(ctx context.Context) ([]repository.Author, error) {
	authors, err := s.store.Catalog().ListAuthors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	return authors, nil
}

// AuthorInput поля автора при создании
type AuthorInput struct {
	FirstName string
	LastName  string
	Bio       string
}

func (s *CatalogService) CreateAuthor(ctx context.Context, input AuthorInput) (repository.Author, error) {
	author := repository.Author{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Bio:       input.Bio,
	}
	if author.FirstName == "" && author.LastName == "" {
		return repository.Author{}, invalidArgument("Author name is required")
	}

	created, err := s.store.Catalog().CreateAuthor(ctx, author)
	if err != nil {
		return repository.Author{}, fmt.Errorf("create author: %w", err)
	}
	s.logger.Info("author created", zap.Int64("author_id", created.ID))
	return created, nil
}

func (s *CatalogService) ListPublishers(ctx context.Context) ([]repository.Publisher, error) {
	publishers, err := s.store.Catalog().ListPublishers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list publishers: %w", err)
	}
	return publishers, nil
}

// PublisherInput поля издательства при создании
type PublisherInput struct {
	Name    string
	Address string
	Website string
}

func (s *CatalogService) CreatePublisher(ctx context.Context, input PublisherInput) (repository.Publisher, error) {
	publisher := repository.Publisher{
		Name:    strings.TrimSpace(input.Name),
		Address: input.Address,
		Website: input.Website,
	}
	if publisher.Name == "" {
		return repository.Publisher{}, invalidArgument("Publisher name is required")
	}

	created, err := s.store.Catalog().CreatePublisher(ctx, publisher)
	if err != nil {
		return repository.Publisher{}, fmt.Errorf("create publisher: %w", err)
	}
	s.logger.Info("publisher created", zap.Int64("publisher_id", created.ID))
	return created, nil
}
