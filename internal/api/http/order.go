package httpapi

import (
	"net/http"

	"github.com/Edward-Mann/book-store/internal/api/http/response"
)

// Checkout обрабатывает POST /api/orders/checkout - оформление заказа из корзины
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.Orders.PlaceOrder(r.Context(), identity(r).CustomerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, "Order placed successfully", toOrderResponse(order))
}

// ListMyOrders обрабатывает GET /api/orders
func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.GetOrdersForCustomer(r.Context(), identity(r).CustomerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, "Orders retrieved successfully", toOrderResponses(orders))
}

// ListAllOrders обрабатывает GET /api/orders/admin/all
func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.GetAllOrders(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, "All orders retrieved successfully", toOrderResponses(orders))
}
