package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Edward-Mann/book-store/internal/api/http/middleware"
	"github.com/Edward-Mann/book-store/internal/api/http/response"
	"github.com/Edward-Mann/book-store/internal/repository"
	platformhealth "github.com/Edward-Mann/book-store/platform/health/http"
	platformobservability "github.com/Edward-Mann/book-store/platform/observability"
)

// NewRouter создаёт и настраивает HTTP роутер Book Store API.
// readiness проверяет зависимости (БД, Redis); при ошибке /health вернёт 503.
// logger используется для observability HTTP middleware (trace_id в логах).
func NewRouter(handler *Handler, auth middleware.Authenticator, readiness platformhealth.Readiness, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	// Observability: trace context + span на каждый запрос, logger с trace_id в контексте
	if logger != nil {
		router.Use(platformobservability.HTTPMiddleware("bookstore", logger))
	}
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Fail(w, http.StatusNotFound, "Resource not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Fail(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	authenticated := middleware.Authenticate(auth, logger)
	user := middleware.RequireRole(repository.RoleUser)
	admin := middleware.RequireRole(repository.RoleAdmin)
	anyRole := middleware.RequireRole(repository.RoleUser, repository.RoleAdmin)

	router.Route("/api", func(r chi.Router) {
		// публичные маршруты
		r.Post("/auth/register", handler.Register)
		r.Post("/auth/login", handler.Login)
		r.Get("/books", handler.ListBooks)
		r.Get("/books/{id}", handler.GetBook)
		r.Get("/authors", handler.ListAuthors)
		r.Get("/publishers", handler.ListPublishers)

		r.Group(func(r chi.Router) {
			r.Use(authenticated)

			r.Post("/auth/logout", handler.Logout)
			r.Get("/customers/profile", handler.GetProfile)
			r.Put("/customers/profile", handler.UpdateProfile)

			r.With(user).Get("/cart", handler.GetCart)
			r.With(anyRole).Post("/cart/items", handler.AddCartItem)
			r.With(anyRole).Delete("/cart/items/{itemId}", handler.RemoveCartItem)

			r.With(user).Post("/orders/checkout", handler.Checkout)
			r.With(user).Get("/orders", handler.ListMyOrders)

			r.Group(func(r chi.Router) {
				r.Use(admin)

				r.Get("/orders/admin/all", handler.ListAllOrders)

				r.Post("/books", handler.CreateBook)
				r.Put("/books/{id}", handler.UpdateBook)
				r.Delete("/books/{id}", handler.DeleteBook)
				r.Post("/authors", handler.CreateAuthor)
				r.Post("/publishers", handler.CreatePublisher)

				r.Post("/upgrade-to-admin/{userId}", handler.UpgradeToAdmin)
				r.Post("/create-admin", handler.CreateAdmin)

				r.Get("/admin/customers", handler.ListCustomers)
				r.Get("/admin/customers/{id}", handler.GetCustomer)
				r.Delete("/admin/customers/{id}", handler.DeleteCustomer)
			})
		})
	})

	// Health без middleware аутентификации
	router.Get("/health", platformhealth.Handler(readiness))

	return router
}

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
