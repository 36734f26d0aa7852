package eventstore

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"biblioteca/internal/apperr"
	"biblioteca/internal/httpx"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// Handler exposes the journal read-only.
type Handler struct {
	store *EventStore
}

func NewHandler(store *EventStore) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleStream)
}

// handleStream pages through the journal: ?desde=<position>&limite=<n>.
// "siguiente" is the cursor to pass as desde for the next page.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	from, _, err := httpx.OptionalQueryInt(r, "desde")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	limit, ok, err := httpx.OptionalQueryInt(r, "limite")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if !ok {
		limit = defaultPageSize
	}

	if from < 0 {
		httpx.WriteError(w, r, apperr.BadRequest("El parámetro 'desde' no puede ser negativo"))
		return
	}
	if limit < 1 || limit > maxPageSize {
		httpx.WriteError(w, r, apperr.BadRequest("El parámetro 'limite' debe estar entre 1 y %d", maxPageSize))
		return
	}

	events, err := h.store.StreamEvents(r.Context(), int64(from), limit)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	next := int64(from)
	if len(events) > 0 {
		next = events[len(events)-1].Position
	}

	httpx.WriteJSON(w, http.StatusOK, httpx.Body{
		"total":     len(events),
		"eventos":   events,
		"siguiente": next,
	})
}
