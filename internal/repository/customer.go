package repository

import (
	"context"
	"time"
)

// Role роль покупателя
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// CustomerStatus жизненный цикл покупателя. Удаление - переход в DELETED, строка остаётся.
type CustomerStatus string

const (
	CustomerStatusActive    CustomerStatus = "ACTIVE"
	CustomerStatusInactive  CustomerStatus = "INACTIVE"
	CustomerStatusSuspended CustomerStatus = "SUSPENDED"
	CustomerStatusDeleted   CustomerStatus = "DELETED"
)

// Valid сообщает, входит ли статус в закрытое множество
func (s CustomerStatus) Valid() bool {
	switch s {
	case CustomerStatusActive, CustomerStatusInactive, CustomerStatusSuspended, CustomerStatusDeleted:
		return true
	}
	return false
}

// Customer представляет доменную модель покупателя
type Customer struct {
	ID             int64
	Username       string
	PasswordHash   string
	Role           Role
	Status         CustomerStatus
	Name           string
	Email          string
	Phone          string
	Address        string
	RegisteredDate time.Time
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=CustomerRepository --dir=. --output=./mocks --outpkg=mocks

// CustomerRepository определяет интерфейс для работы с хранилищем покупателей
type CustomerRepository interface {
	// Create сохраняет покупателя и возвращает его с присвоенным ID.
	// Возвращает ErrAlreadyExists, если username или email заняты.
	Create(ctx context.Context, customer Customer) (Customer, error)

	// GetByID возвращает ErrNotFound, если покупатель не найден
	GetByID(ctx context.Context, id int64) (Customer, error)

	// GetByUsername возвращает ErrNotFound, если покупатель не найден
	GetByUsername(ctx context.Context, username string) (Customer, error)

	// GetByEmail возвращает ErrNotFound, если покупатель не найден
	GetByEmail(ctx context.Context, email string) (Customer, error)

	// List возвращает всех покупателей, включая удалённых (status = DELETED)
	List(ctx context.Context) ([]Customer, error)

	// Update перезаписывает изменяемые поля (роль, статус, профиль).
	// Возвращает ErrNotFound или ErrAlreadyExists (email занят).
	Update(ctx context.Context, customer Customer) (Customer, error)
}
