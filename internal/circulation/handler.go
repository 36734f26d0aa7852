// internal/circulation/handler.go
package circulation

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"biblioteca/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the loan endpoints; the caller chooses the prefix.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Patch("/{id}/devolver", h.handleReturn)
	r.Delete("/{id}", h.handleDelete)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	bookID, err := httpx.QueryInt(r, "libro_id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	var req Borrower
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), bookID, req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, httpx.Body{
		"mensaje":  "Préstamo registrado correctamente",
		"prestamo": loan,
	})
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	loan, err := h.service.ReturnLoan(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, httpx.Body{
		"mensaje":  "Libro devuelto correctamente",
		"prestamo": loan,
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	loan, err := h.service.DeleteLoan(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, httpx.Body{
		"mensaje":            "Registro de préstamo eliminado correctamente",
		"prestamo_eliminado": loan,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.List(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, httpx.Body{
		"total_prestamos":   listing.Total,
		"prestamos_activos": listing.Active,
		"prestamos":         listing.Loans,
	})
}
