package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Edward-Mann/book-store/internal/repository"
)

// querier общий интерфейс *pgxpool.Pool и pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store реализует repository.Store поверх PostgreSQL
type Store struct {
	pool *pgxpool.Pool
}

// NewStore создаёт PostgreSQL хранилище
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Customers() repository.CustomerRepository { return &customerRepository{q: s.pool} }
func (s *Store) Catalog() repository.CatalogRepository    { return &catalogRepository{q: s.pool} }
func (s *Store) Carts() repository.CartRepository         { return &cartRepository{q: s.pool} }
func (s *Store) Orders() repository.OrderRepository       { return &orderRepository{q: s.pool} }

// Ping проверяет соединение с БД
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// WithinTx выполняет fn в транзакции.
// Rollback откладывается и после Commit ничего не делает, поэтому ранний return и паника откатывают всё.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer pgTx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, txRepos{q: pgTx}); err != nil {
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// txRepos репозитории, привязанные к одной транзакции
type txRepos struct {
	q querier
}

func (t txRepos) Customers() repository.CustomerRepository { return &customerRepository{q: t.q} }
func (t txRepos) Catalog() repository.CatalogRepository    { return &catalogRepository{q: t.q} }
func (t txRepos) Carts() repository.CartRepository         { return &cartRepository{q: t.q} }
func (t txRepos) Orders() repository.OrderRepository       { return &orderRepository{q: t.q} }

// pgCode возвращает SQLSTATE ошибки PostgreSQL или пустую строку
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNumericOutOfRange   = "22003"
)
