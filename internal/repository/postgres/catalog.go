package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Edward-Mann/book-store/internal/repository"
)

type catalogRepository struct {
	q querier
}

const bookSelect = `SELECT b.id, b.title, COALESCE(b.isbn, ''), b.description, b.price, b.published_date,
       b.stock_quantity, b.publisher_id, p.name, p.address, p.website
FROM books b
LEFT JOIN publishers p ON p.id = b.publisher_id`

func scanBook(row pgx.Row) (repository.Book, error) {
	var (
		b                      repository.Book
		pubName, pubAddr, pubW *string
	)
	err := row.Scan(&b.ID, &b.Title, &b.ISBN, &b.Description, &b.Price, &b.PublishedDate,
		&b.StockQuantity, &b.PublisherID, &pubName, &pubAddr, &pubW)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Book{}, repository.ErrNotFound
		}
		return repository.Book{}, err
	}
	if b.PublisherID != nil && pubName != nil {
		b.Publisher = &repository.Publisher{
			ID:      *b.PublisherID,
			Name:    *pubName,
			Address: deref(pubAddr),
			Website: deref(pubW),
		}
	}
	b.Authors = []repository.Author{}
	return b, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// queryBooks выбирает книги по условию и подгружает авторов одним запросом
func queryBooks(ctx context.Context, q querier, where string, args ...any) ([]repository.Book, error) {
	rows, err := q.Query(ctx, bookSelect+" "+where+" ORDER BY b.id", args...)
	if err != nil {
		return nil, err
	}
	var books []repository.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		books = append(books, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return books, nil
	}

	ids := make([]int64, len(books))
	index := make(map[int64]int, len(books))
	for i, b := range books {
		ids[i] = b.ID
		index[b.ID] = i
	}

	authorRows, err := q.Query(ctx,
		`SELECT ba.book_id, a.id, a.first_name, a.last_name, a.bio
		 FROM book_authors ba
		 JOIN authors a ON a.id = ba.author_id
		 WHERE ba.book_id = ANY($1)
		 ORDER BY ba.book_id, a.id`, ids)
	if err != nil {
		return nil, err
	}
	defer authorRows.Close()

	for authorRows.Next() {
		var bookID int64
		var a repository.Author
		if err := authorRows.Scan(&bookID, &a.ID, &a.FirstName, &a.LastName, &a.Bio); err != nil {
			return nil, err
		}
		i := index[bookID]
		books[i].Authors = append(books[i].Authors, a)
	}
	return books, authorRows.Err()
}

// booksByID загружает книги по набору ID (для позиций корзины и заказа)
func booksByID(ctx context.Context, q querier, ids []int64) (map[int64]repository.Book, error) {
	out := make(map[int64]repository.Book, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	books, err := queryBooks(ctx, q, "WHERE b.id = ANY($1)", ids)
	if err != nil {
		return nil, err
	}
	for _, b := range books {
		out[b.ID] = b
	}
	return out, nil
}

func (r *catalogRepository) ListBooks(ctx context.Context) ([]repository.Book, error) {
	return queryBooks(ctx, r.q, "")
}

func (r *catalogRepository) GetBook(ctx context.Context, id int64) (repository.Book, error) {
	books, err := queryBooks(ctx, r.q, "WHERE b.id = $1", id)
	if err != nil {
		return repository.Book{}, err
	}
	if len(books) == 0 {
		return repository.Book{}, repository.ErrNotFound
	}
	return books[0], nil
}

func (r *catalogRepository) CreateBook(ctx context.Context, book repository.Book) (repository.Book, error) {
	err := r.q.QueryRow(ctx,
		`INSERT INTO books (title, isbn, description, price, published_date, stock_quantity, publisher_id)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
		 RETURNING id`,
		book.Title, book.ISBN, book.Description, book.Price, book.PublishedDate, book.StockQuantity, book.PublisherID,
	).Scan(&book.ID)
	if err != nil {
		return repository.Book{}, bookWriteError(err)
	}
	if err := r.replaceAuthors(ctx, book.ID, book.Authors); err != nil {
		return repository.Book{}, err
	}
	return r.GetBook(ctx, book.ID)
}

func (r *catalogRepository) UpdateBook(ctx context.Context, book repository.Book) (repository.Book, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE books
		 SET title = $2, isbn = NULLIF($3, ''), description = $4, price = $5,
		     published_date = $6, stock_quantity = $7, publisher_id = $8
		 WHERE id = $1`,
		book.ID, book.Title, book.ISBN, book.Description, book.Price,
		book.PublishedDate, book.StockQuantity, book.PublisherID,
	)
	if err != nil {
		return repository.Book{}, bookWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.Book{}, repository.ErrNotFound
	}
	if err := r.replaceAuthors(ctx, book.ID, book.Authors); err != nil {
		return repository.Book{}, err
	}
	return r.GetBook(ctx, book.ID)
}

func (r *catalogRepository) replaceAuthors(ctx context.Context, bookID int64, authors []repository.Author) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM book_authors WHERE book_id = $1`, bookID); err != nil {
		return err
	}
	for _, a := range authors {
		_, err := r.q.Exec(ctx,
			`INSERT INTO book_authors (book_id, author_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			bookID, a.ID)
		if err != nil {
			return bookWriteError(err)
		}
	}
	return nil
}

// bookWriteError: дубликат ISBN → ErrAlreadyExists, несуществующий издатель/автор → ErrNotFound,
// цена или остаток вне ограничений колонки → ErrConstraint
func bookWriteError(err error) error {
	switch pgCode(err) {
	case codeUniqueViolation:
		return repository.ErrAlreadyExists
	case codeForeignKeyViolation:
		return repository.ErrNotFound
	case codeCheckViolation, codeNumericOutOfRange:
		return fmt.Errorf("%w: %v", repository.ErrConstraint, err)
	}
	return err
}

func (r *catalogRepository) DeleteBook(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return repository.ErrReferenced
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DecrementStock условное уменьшение остатка одним UPDATE: проверка и запись неразделимы
func (r *catalogRepository) DecrementStock(ctx context.Context, bookID int64, quantity int) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE books SET stock_quantity = stock_quantity - $2
		 WHERE id = $1 AND stock_quantity >= $2`,
		bookID, quantity)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, bookID).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, repository.ErrNotFound
	}
	return false, nil
}

func (r *catalogRepository) ListAuthors(ctx context.Context) ([]repository.Author, error) {
	rows, err := r.q.Query(ctx, `SELECT id, first_name, last_name, bio FROM authors ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (repository.Author, error) {
		var a repository.Author
		err := row.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Bio)
		return a, err
	})
}

func (r *catalogRepository) GetAuthor(ctx context.Context, id int64) (repository.Author, error) {
	var a repository.Author
	err := r.q.QueryRow(ctx, `SELECT id, first_name, last_name, bio FROM authors WHERE id = $1`, id).
		Scan(&a.ID, &a.FirstName, &a.LastName, &a.Bio)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.Author{}, repository.ErrNotFound
	}
	return a, err
}

func (r *catalogRepository) CreateAuthor(ctx context.Context, author repository.Author) (repository.Author, error) {
	err := r.q.QueryRow(ctx,
		`INSERT INTO authors (first_name, last_name, bio) VALUES ($1, $2, $3) RETURNING id`,
		author.FirstName, author.LastName, author.Bio,
	).Scan(&author.ID)
	return author, err
}

func (r *catalogRepository) ListPublishers(ctx context.Context) ([]repository.Publisher, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, address, website FROM publishers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (repository.Publisher, error) {
		var p repository.Publisher
		err := row.Scan(&p.ID, &p.Name, &p.Address, &p.Website)
		return p, err
	})
}

func (r *catalogRepository) GetPublisher(ctx context.Context, id int64) (repository.Publisher, error) {
	var p repository.Publisher
	err := r.q.QueryRow(ctx, `SELECT id, name, address, website FROM publishers WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Address, &p.Website)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.Publisher{}, repository.ErrNotFound
	}
	return p, err
}

func (r *catalogRepository) CreatePublisher(ctx context.Context, publisher repository.Publisher) (repository.Publisher, error) {
	err := r.q.QueryRow(ctx,
		`INSERT INTO publishers (name, address, website) VALUES ($1, $2, $3) RETURNING id`,
		publisher.Name, publisher.Address, publisher.Website,
	).Scan(&publisher.ID)
	return publisher, err
}

