// internal/catalog/handler.go
package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"biblioteca/internal/apperr"
	"biblioteca/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the book endpoints; the caller chooses the prefix.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.handleRegister)
	r.Get("/", h.handleList)
	r.Get("/buscar", h.handleSearch)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req NewBook
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	book, err := h.service.Register(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, httpx.Body{
		"mensaje": "Libro registrado correctamente",
		"libro":   book,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.List(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, httpx.Body{
		"total_libros":      listing.Total,
		"total_disponibles": listing.Available,
		"libros":            listing.Books,
	})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("nombre") {
		httpx.WriteError(w, r, apperr.InvalidFields([]apperr.FieldError{{Field: "nombre", Message: "Campo requerido"}}))
		return
	}

	books, err := h.service.SearchByName(r.Context(), r.URL.Query().Get("nombre"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, httpx.Body{
		"total_encontrados": len(books),
		"libros":            books,
	})
}
