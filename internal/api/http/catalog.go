package httpapi

import (
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/Edward-Mann/book-store/internal/api/http/response"
	"github.com/Edward-Mann/book-store/internal/repository"
	"github.com/Edward-Mann/book-store/internal/service"
)

// ListBooks обрабатывает GET /api/books
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.Catalog.ListBooks(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	msg := "Books retrieved successfully"
	if len(books) == 0 {
		msg = "No Books available in this category"
	}
	response.JSON(w, http.StatusOK, msg, toBookResponses(books))
}

// GetBook обрабатывает GET /api/books/{id}
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	book, err := h.svc.Catalog.GetBook(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, "Book retrieved successfully", toBookResponse(book))
}

// CreateBook обрабатывает POST /api/books
func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	published, err := parseDate(req.PublishedDate)
	if err != nil {
		badRequest(w, err)
		return
	}

	book, err := h.svc.Catalog.CreateBook(r.Context(), service.BookInput{
		Title:         req.Title,
		ISBN:          req.ISBN,
		Description:   req.Description,
		Price:         *req.Price,
		PublishedDate: published,
		StockQuantity: req.StockQuantity,
		PublisherID:   req.PublisherID,
		AuthorIDs:     req.AuthorIDs,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, "Book created successfully", toBookResponse(book))
}

// UpdateBook обрабатывает PUT /api/books/{id}
func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	var req BookUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	var published *time.Time
	if req.PublishedDate != nil {
		if published, err = parseDate(*req.PublishedDate); err != nil {
			badRequest(w, err)
			return
		}
	}

	book, err := h.svc.Catalog.UpdateBook(r.Context(), id, service.BookPatch{
		Title:         req.Title,
		ISBN:          req.ISBN,
		Description:   req.Description,
		Price:         req.Price,
		PublishedDate: published,
		StockQuantity: req.StockQuantity,
		PublisherID:   req.PublisherID,
		AuthorIDs:     req.AuthorIDs,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, "Book updated successfully", toBookResponse(book))
}

// DeleteBook обрабатывает DELETE /api/books/{id}
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := h.svc.Catalog.DeleteBook(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, "Book deleted successfully", nil)
}

// ListAuthors обрабатывает GET /api/authors
func (h *Handler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.svc.Catalog.ListAuthors(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, "Authors retrieved successfully",
		lo.Map(authors, func(a repository.Author, _ int) AuthorResponse { return toAuthorResponse(a) }))
}

// CreateAuthor обрабатывает POST /api/authors
func (h *Handler) CreateAuthor(w http.ResponseWriter, r *http.Request) {
	var req AuthorRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	author, err := h.svc.Catalog.CreateAuthor(r.Context(), service.AuthorInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, "Author created successfully", toAuthorResponse(author))
}

// ListPublishers обрабатывает GET /api/publishers
func (h *Handler) ListPublishers(w http.ResponseWriter, r *http.Request) {
	publishers, err := h.svc.Catalog.ListPublishers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, "Publishers retrieved successfully",
		lo.Map(publishers, func(p repository.Publisher, _ int) PublisherResponse { return toPublisherResponse(p) }))
}

// CreatePublisher обрабатывает POST /api/publishers
func (h *Handler) CreatePublisher(w http.ResponseWriter, r *http.Request) {
	var req PublisherRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	publisher, err := h.svc.Catalog.CreatePublisher(r.Context(), service.PublisherInput{
		Name:    req.Name,
		Address: req.Address,
		Website: req.Website,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, "Publisher created successfully", toPublisherResponse(publisher))
}
