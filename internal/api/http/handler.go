package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Edward-Mann/book-store/internal/api/http/response"
	"github.com/Edward-Mann/book-store/internal/authctx"
	"github.com/Edward-Mann/book-store/internal/service"
)

// Services - сервисный слой, который обслуживает HTTP API
type Services struct {
	Cart      *service.CartService
	Orders    *service.OrderService
	Catalog   *service.CatalogService
	Customers *service.CustomerService
	Auth      *service.AuthService
}

// Handler содержит HTTP-обработчики Book Store API.
// Зависит от service слоя, но не знает о деталях хранения (Postgres, Redis и т.д.)
type Handler struct {
	logger       *zap.Logger
	svc          Services
	sessionTTL   time.Duration
	secureCookie bool
}

// NewHandler создаёт новый HTTP handler.
// sessionTTL задаёт Max-Age cookie SESSION; secureCookie включает флаг Secure.
func NewHandler(logger *zap.Logger, svc Services, sessionTTL time.Duration, secureCookie bool) *Handler {
	return &Handler{
		logger:       logger,
		svc:          svc,
		sessionTTL:   sessionTTL,
		secureCookie: secureCookie,
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	response.Error(w, r, h.logger, err)
}

func badRequest(w http.ResponseWriter, err error) {
	response.Fail(w, http.StatusBadRequest, err.Error())
}

// identity возвращает покупателя текущего запроса; маршрут должен стоять за middleware.Authenticate
func identity(r *http.Request) authctx.Identity {
	id, _ := authctx.IdentityFromContext(r.Context())
	return id
}
