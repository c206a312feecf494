package repository

import (
	"context"
	"errors"
)

// ErrNotFound возвращается, когда запись не найдена в хранилище
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists возвращается при нарушении уникальности (username, email, isbn)
var ErrAlreadyExists = errors.New("record already exists")

// ErrReferenced возвращается при удалении записи, на которую ссылаются другие (книга в заказах)
var ErrReferenced = errors.New("record is referenced")

// ErrConstraint возвращается, когда значение не проходит ограничения колонки (CHECK, диапазон NUMERIC)
var ErrConstraint = errors.New("value violates column constraint")

// Tx - набор репозиториев, работающих в одной транзакции (или вне её, если получен от Store)
type Tx interface {
	Customers() CustomerRepository
	Catalog() CatalogRepository
	Carts() CartRepository
	Orders() OrderRepository
}

// Store - точка входа в хранилище. Сам Store реализует Tx для чтений вне транзакции.
type Store interface {
	Tx

	// WithinTx выполняет fn в транзакции: commit если fn вернула nil, rollback при ошибке или панике.
	// Все записи, сделанные через переданный Tx, фиксируются или откатываются вместе.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Ping проверяет доступность хранилища (readiness)
	Ping(ctx context.Context) error
}
