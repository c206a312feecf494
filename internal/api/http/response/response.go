package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Edward-Mann/book-store/internal/service"
	platformobservability "github.com/Edward-Mann/book-store/platform/observability"
)

const internalErrorMessage = "An unexpected error occurred"

// Envelope - единый формат ответа API
type Envelope struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
	Data    any    `json:"data"`
}

// JSON пишет успешный ответ в конверте
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{Message: message, Success: true, Data: data})
}

// Fail пишет ответ об ошибке с заданным статусом
func Fail(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Message: message, Success: false})
}

// Error переводит ошибку сервисного слоя в HTTP ответ.
// Неклассифицированные ошибки логируются и отдаются клиенту как 500 без деталей.
func Error(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError || !service.IsClassified(err) {
		platformobservability.L(r.Context(), logger).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		Fail(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}
	Fail(w, status, err.Error())
}

// StatusFor возвращает HTTP статус для класса ошибки
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidArgument), errors.Is(err, service.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
