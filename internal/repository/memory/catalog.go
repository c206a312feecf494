package memory

import (
	"context"
	"slices"

	"github.com/Edward-Mann/book-store/internal/repository"
)

type catalogRepository struct {
	db handle
}

func (r *catalogRepository) ListBooks(ctx context.Context) ([]repository.Book, error) {
	var out []repository.Book
	r.db.read(func(st *state) {
		for _, id := range sortedKeys(st.books) {
			out = append(out, st.hydrateBook(st.books[id]))
		}
	})
	return out, nil
}

func (r *catalogRepository) GetBook(ctx context.Context, id int64) (repository.Book, error) {
	var (
		b  repository.Book
		ok bool
	)
	r.db.read(func(st *state) {
		var rec bookRecord
		if rec, ok = st.books[id]; ok {
			b = st.hydrateBook(rec)
		}
	})
	if !ok {
		return repository.Book{}, repository.ErrNotFound
	}
	return b, nil
}

func (r *catalogRepository) CreateBook(ctx context.Context, book repository.Book) (repository.Book, error) {
	var err error
	r.db.write(func(st *state, undo *undoLog) {
		if err = checkBookRefs(st, book); err != nil {
			return
		}
		book.ID = st.nextID("books")
		rec := toRecord(book)
		saveKey(undo, st.books, book.ID)
		st.books[book.ID] = rec
		book = st.hydrateBook(rec)
	})
	if err != nil {
		return repository.Book{}, err
	}
	return book, nil
}

func (r *catalogRepository) UpdateBook(ctx context.Context, book repository.Book) (repository.Book, error) {
	var err error
	r.db.write(func(st *state, undo *undoLog) {
		if _, ok := st.books[book.ID]; !ok {
			err = repository.ErrNotFound
			return
		}
		if err = checkBookRefs(st, book); err != nil {
			return
		}
		rec := toRecord(book)
		saveKey(undo, st.books, book.ID)
		st.books[book.ID] = rec
		book = st.hydrateBook(rec)
	})
	if err != nil {
		return repository.Book{}, err
	}
	return book, nil
}

// checkBookRefs проверяет уникальность ISBN и существование издательства и авторов
func checkBookRefs(st *state, book repository.Book) error {
	if book.ISBN != "" {
		for id, rec := range st.books {
			if id != book.ID && rec.book.ISBN == book.ISBN {
				return repository.ErrAlreadyExists
			}
		}
	}
	if book.PublisherID != nil {
		if _, ok := st.publishers[*book.PublisherID]; !ok {
			return repository.ErrNotFound
		}
	}
	for _, a := range book.Authors {
		if _, ok := st.authors[a.ID]; !ok {
			return repository.ErrNotFound
		}
	}
	return nil
}

func toRecord(book repository.Book) bookRecord {
	ids := make([]int64, 0, len(book.Authors))
	for _, a := range book.Authors {
		if !slices.Contains(ids, a.ID) {
			ids = append(ids, a.ID)
		}
	}
	book.Authors = nil
	book.Publisher = nil
	return bookRecord{book: book, authorIDs: ids}
}

func (r *catalogRepository) DeleteBook(ctx context.Context, id int64) error {
	var err error
	r.db.write(func(st *state, undo *undoLog) {
		if _, ok := st.books[id]; !ok {
			err = repository.ErrNotFound
			return
		}
		for _, o := range st.orders {
			for _, it := range o.Items {
				if it.BookID == id {
					err = repository.ErrReferenced
					return
				}
			}
		}
		// позиции корзин удаляются вместе с книгой
		for itemID, it := range st.cartItems {
			if it.BookID == id {
				saveKey(undo, st.cartItems, itemID)
				delete(st.cartItems, itemID)
			}
		}
		saveKey(undo, st.books, id)
		delete(st.books, id)
	})
	return err
}

func (r *catalogRepository) DecrementStock(ctx context.Context, bookID int64, quantity int) (bool, error) {
	var (
		done bool
		err  error
	)
	r.db.write(func(st *state, undo *undoLog) {
		rec, ok := st.books[bookID]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		if rec.book.StockQuantity < quantity {
			return
		}
		saveKey(undo, st.books, bookID)
		rec.book.StockQuantity -= quantity
		st.books[bookID] = rec
		done = true
	})
	return done, err
}

func (r *catalogRepository) ListAuthors(ctx context.Context) ([]repository.Author, error) {
	var out []repository.Author
	r.db.read(func(st *state) {
		for _, id := range sortedKeys(st.authors) {
			out = append(out, st.authors[id])
		}
	})
	return out, nil
}

func (r *catalogRepository) GetAuthor(ctx context.Context, id int64) (repository.Author, error) {
	var (
		a  repository.Author
		ok bool
	)
	r.db.read(func(st *state) { a, ok = st.authors[id] })
	if !ok {
		return repository.Author{}, repository.ErrNotFound
	}
	return a, nil
}

func (r *catalogRepository) CreateAuthor(ctx context.Context, author repository.Author) (repository.Author, error) {
	r.db.write(func(st *state, undo *undoLog) {
		author.ID = st.nextID("authors")
		saveKey(undo, st.authors, author.ID)
		st.authors[author.ID] = author
	})
	return author, nil
}

func (r *catalogRepository) ListPublishers(ctx context.Context) ([]repository.Publisher, error) {
	var out []repository.Publisher
	r.db.read(func(st *state) {
		for _, id := range sortedKeys(st.publishers) {
			out = append(out, st.publishers[id])
		}
	})
	return out, nil
}

func (r *catalogRepository) GetPublisher(ctx context.Context, id int64) (repository.Publisher, error) {
	var (
		p  repository.Publisher
		ok bool
	)
	r.db.read(func(st *state) { p, ok = st.publishers[id] })
	if !ok {
		return repository.Publisher{}, repository.ErrNotFound
	}
	return p, nil
}

func (r *catalogRepository) CreatePublisher(ctx context.Context, publisher repository.Publisher) (repository.Publisher, error) {
	r.db.write(func(st *state, undo *undoLog) {
		publisher.ID = st.nextID("publishers")
		saveKey(undo, st.publishers, publisher.ID)
		st.publishers[publisher.ID] = publisher
	})
	return publisher, nil
}
