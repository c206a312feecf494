package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/Edward-Mann/book-store/internal/api/http/response"
	"github.com/Edward-Mann/book-store/internal/authctx"
	"github.com/Edward-Mann/book-store/internal/repository"
)

const (
	// SessionHeader - заголовок с идентификатором сессии
	SessionHeader = "x-session-id"
	// SessionCookie - cookie с идентификатором сессии (для браузерных клиентов)
	SessionCookie = "SESSION"
)

// Authenticator проверяет сессию и возвращает её владельца
type Authenticator interface {
	Authenticate(ctx context.Context, sessionID string) (repository.Customer, error)
}

// SessionID читает идентификатор сессии: сначала заголовок x-session-id, затем cookie SESSION
func SessionID(r *http.Request) string {
	if sid := r.Header.Get(SessionHeader); sid != "" {
		return sid
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// Authenticate - HTTP middleware: требует валидную сессию и кладёт identity в context.
// Без сессии или с истёкшей сессией возвращает 401.
func Authenticate(auth Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := SessionID(r)
			if sid == "" {
				response.Fail(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			customer, err := auth.Authenticate(r.Context(), sid)
			if err != nil {
				response.Error(w, r, logger, err)
				return
			}

			ctx := authctx.WithIdentity(r.Context(), authctx.Identity{
				CustomerID: customer.ID,
				Username:   customer.Username,
				Role:       customer.Role,
				SessionID:  sid,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole пропускает только identity с одной из ролей, иначе 403.
// Должен стоять после Authenticate.
func RequireRole(roles ...repository.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := authctx.IdentityFromContext(r.Context())
			if !ok {
				response.Fail(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !id.HasRole(roles...) {
				response.Fail(w, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
