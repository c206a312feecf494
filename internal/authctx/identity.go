package authctx

import (
	"context"

	"github.com/Edward-Mann/book-store/internal/repository"
)

// Identity - аутентифицированный покупатель текущего запроса
type Identity struct {
	CustomerID int64
	Username   string
	Role       repository.Role
	SessionID  string
}

type ctxKeyIdentity struct{}

var identityKey = ctxKeyIdentity{}

// WithIdentity сохраняет identity в контексте (используется HTTP middleware)
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext возвращает identity из контекста, если запрос прошёл аутентификацию
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// HasRole проверяет, что identity обладает одной из ролей
func (i Identity) HasRole(roles ...repository.Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}
