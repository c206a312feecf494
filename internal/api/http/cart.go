package httpapi

import (
	"net/http"

	"github.com/Edward-Mann/book-store/internal/api/http/response"
	"github.com/Edward-Mann/book-store/internal/service"
)

// GetCart обрабатывает GET /api/cart - корзина текущего покупателя (создаётся при первом обращении)
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.svc.Cart.GetOrCreateCart(r.Context(), identity(r).CustomerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, "Cart retrieved successfully", toCartResponse(cart))
}

// AddCartItem обрабатывает POST /api/cart/items
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req AddCartItemRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	cart, err := h.svc.Cart.AddItem(r.Context(), service.AddItemInput{
		CustomerID: identity(r).CustomerID,
		BookID:     *req.BookID,
		Quantity:   req.Quantity,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, "Item added to cart successfully", toCartResponse(cart))
}

// RemoveCartItem обрабатывает DELETE /api/cart/items/{itemId}
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "itemId")
	if err != nil {
		badRequest(w, err)
		return
	}

	cart, err := h.svc.Cart.RemoveItem(r.Context(), service.RemoveItemInput{
		CustomerID: identity(r).CustomerID,
		ItemID:     itemID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, "Item removed from cart successfully", toCartResponse(cart))
}
