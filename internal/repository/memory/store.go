package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/Edward-Mann/book-store/internal/repository"
)

// bookRecord книга в хранилище: связи с авторами хранятся как ID, остальное - в Book
type bookRecord struct {
	book      repository.Book
	authorIDs []int64
}

// state всё содержимое хранилища. Map'ы создаются один раз и не подменяются,
// поэтому записи undoLog могут ссылаться на них напрямую.
type state struct {
	customers  map[int64]repository.Customer
	authors    map[int64]repository.Author
	publishers map[int64]repository.Publisher
	books      map[int64]bookRecord
	carts      map[int64]repository.Cart
	cartItems  map[int64]repository.CartItem
	orders     map[int64]repository.Order
	outbox     []repository.OutboxEvent

	seq map[string]int64
}

func newState() *state {
	return &state{
		customers:  make(map[int64]repository.Customer),
		authors:    make(map[int64]repository.Author),
		publishers: make(map[int64]repository.Publisher),
		books:      make(map[int64]bookRecord),
		carts:      make(map[int64]repository.Cart),
		cartItems:  make(map[int64]repository.CartItem),
		orders:     make(map[int64]repository.Order),
		seq:        make(map[string]int64),
	}
}

// nextID как sequence в Postgres: значение не возвращается при откате
func (s *state) nextID(name string) int64 {
	s.seq[name]++
	return s.seq[name]
}

// undoLog - изменения одной транзакции в обратном виде.
// nil означает запись вне транзакции: запоминать нечего.
type undoLog struct {
	ops []func()
}

// saveKey запоминает текущее значение m[id] (или его отсутствие)
func saveKey[V any](u *undoLog, m map[int64]V, id int64) {
	if u == nil {
		return
	}
	old, existed := m[id]
	u.ops = append(u.ops, func() {
		if existed {
			m[id] = old
		} else {
			delete(m, id)
		}
	})
}

// saveOutbox запоминает текущее состояние события outbox (или его отсутствие)
func saveOutbox(u *undoLog, st *state, eventID string) {
	if u == nil {
		return
	}
	byID := func(e repository.OutboxEvent) bool { return e.EventID == eventID }
	var old repository.OutboxEvent
	idx := slices.IndexFunc(st.outbox, byID)
	existed := idx >= 0
	if existed {
		old = st.outbox[idx]
	}
	u.ops = append(u.ops, func() {
		i := slices.IndexFunc(st.outbox, byID)
		switch {
		case i < 0:
		case existed:
			st.outbox[i] = old
		default:
			st.outbox = slices.Delete(st.outbox, i, i+1)
		}
	})
}

// Store реализует repository.Store в памяти.
// Транзакции сериализуются между собой; при ошибке откатываются только их собственные изменения
// (по undoLog), записи вне транзакции при этом сохраняются. Изоляция - read uncommitted.
// Используется для локальной разработки (STORAGE_DRIVER=memory) и в тестах сервисов.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	st   *state
}

// NewStore создаёт пустое in-memory хранилище
func NewStore() *Store {
	return &Store{st: newState()}
}

// Customers возвращает репозиторий покупателей
func (s *Store) Customers() repository.CustomerRepository { return &customerRepository{db: handle{s: s}} }

// Catalog возвращает репозиторий каталога
func (s *Store) Catalog() repository.CatalogRepository { return &catalogRepository{db: handle{s: s}} }

// Carts возвращает репозиторий корзин
func (s *Store) Carts() repository.CartRepository { return &cartRepository{db: handle{s: s}} }

// Orders возвращает репозиторий заказов
func (s *Store) Orders() repository.OrderRepository { return &orderRepository{db: handle{s: s}} }

// Ping всегда успешен
func (s *Store) Ping(ctx context.Context) error { return nil }

// WithinTx выполняет fn, откатывая записи, сделанные через tx, если fn вернула ошибку или запаниковала
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	tx := txRepos{db: handle{s: s, undo: &undoLog{}}}
	defer func() {
		if p := recover(); p != nil {
			s.rollback(tx.db.undo)
			panic(p)
		}
		if err != nil {
			s.rollback(tx.db.undo)
		}
	}()

	return fn(ctx, tx)
}

func (s *Store) rollback(u *undoLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(u.ops) - 1; i >= 0; i-- {
		u.ops[i]()
	}
	u.ops = nil
}

// txRepos - репозитории, привязанные к транзакции
type txRepos struct {
	db handle
}

func (t txRepos) Customers() repository.CustomerRepository { return &customerRepository{db: t.db} }
func (t txRepos) Catalog() repository.CatalogRepository    { return &catalogRepository{db: t.db} }
func (t txRepos) Carts() repository.CartRepository         { return &cartRepository{db: t.db} }
func (t txRepos) Orders() repository.OrderRepository       { return &orderRepository{db: t.db} }

// handle - доступ репозитория к состоянию: undo != nil внутри транзакции
type handle struct {
	s    *Store
	undo *undoLog
}

// read выполняет f под блокировкой состояния
func (h handle) read(f func(st *state)) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	f(h.s.st)
}

// write выполняет f под блокировкой; f обязана записать в undo всё, что меняет
func (h handle) write(f func(st *state, undo *undoLog)) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	f(h.s.st, h.undo)
}

// hydrateBook собирает Book с издательством и авторами. Вызывается под s.mu.
func (st *state) hydrateBook(rec bookRecord) repository.Book {
	b := rec.book
	b.Publisher = nil
	if b.PublisherID != nil {
		if p, ok := st.publishers[*b.PublisherID]; ok {
			b.Publisher = &p
		}
	}
	b.Authors = make([]repository.Author, 0, len(rec.authorIDs))
	for _, id := range rec.authorIDs {
		if a, ok := st.authors[id]; ok {
			b.Authors = append(b.Authors, a)
		}
	}
	return b
}

// sortedKeys ключи map в порядке возрастания (порядок создания)
func sortedKeys[V any](m map[int64]V) []int64 {
	keys := slices.Collect(maps.Keys(m))
	slices.Sort(keys)
	return keys
}
