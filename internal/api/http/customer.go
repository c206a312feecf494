package httpapi

import (
	"net/http"

	"github.com/samber/lo"

	"github.com/Edward-Mann/book-store/internal/api/http/middleware"
	"github.com/Edward-Mann/book-store/internal/api/http/response"
	"github.com/Edward-Mann/book-store/internal/repository"
	"github.com/Edward-Mann/book-store/internal/service"
)

// Register обрабатывает POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	customer, err := h.svc.Customers.Register(r.Context(), registerInput(req))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, "User registered successfully", toCustomerResponse(customer))
}

// Login обрабатывает POST /api/auth/login: создаёт сессию и отдаёт её в cookie SESSION и заголовке x-session-id
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	out, err := h.svc.Auth.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    out.SessionID,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(middleware.SessionHeader, out.SessionID)
	response.JSON(w, http.StatusOK, "Login successful", LoginResponse{
		SessionID: out.SessionID,
		Customer:  toCustomerResponse(out.Customer),
	})
}

// Logout обрабатывает POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Auth.Logout(r.Context(), identity(r).SessionID); err != nil {
		h.fail(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
	})
	response.JSON(w, http.StatusOK, "Logout successful", nil)
}

// UpgradeToAdmin обрабатывает POST /api/upgrade-to-admin/{userId}
func (h *Handler) UpgradeToAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userId")
	if err != nil {
		badRequest(w, err)
		return
	}
	customer, err := h.svc.Customers.UpgradeToAdmin(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, "User upgraded to admin successfully", toCustomerResponse(customer))
}

// CreateAdmin обрабатывает POST /api/create-admin
func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	customer, err := h.svc.Customers.CreateAdmin(r.Context(), registerInput(req))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, "Admin created successfully", toCustomerResponse(customer))
}

// GetProfile обрабатывает GET /api/customers/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	customer, err := h.svc.Customers.GetByID(r.Context(), identity(r).CustomerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, "Profile retrieved successfully", toCustomerResponse(customer))
}

// UpdateProfile обрабатывает PUT /api/customers/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	customer, err := h.svc.Customers.UpdateProfile(r.Context(), identity(r).CustomerID, service.ProfilePatch{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, "Profile updated successfully", toCustomerResponse(customer))
}

// ListCustomers обрабатывает GET /api/admin/customers
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.svc.Customers.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, "Customers retrieved successfully",
		lo.Map(customers, func(c repository.Customer, _ int) CustomerResponse { return toCustomerResponse(c) }))
}

// GetCustomer обрабатывает GET /api/admin/customers/{id}
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	customer, err := h.svc.Customers.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, "Customer retrieved successfully", toCustomerResponse(customer))
}

// DeleteCustomer обрабатывает DELETE /api/admin/customers/{id} (мягкое удаление)
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := h.svc.Customers.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, "Customer deleted successfully", nil)
}

func registerInput(req RegisterRequest) service.RegisterInput {
	return service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
	}
}
