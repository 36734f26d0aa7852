// internal/membership/handler.go
package membership

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"biblioteca/internal/apperr"
	"biblioteca/internal/httpx"
)

type Handler struct {
	service      Service
	welcomeDelay time.Duration
}

// NewHandler builds the user registry handler. welcomeDelay is the artificial
// latency of the /bienvenido endpoint.
func NewHandler(service Service, welcomeDelay time.Duration) *Handler {
	return &Handler{service: service, welcomeDelay: welcomeDelay}
}

// Routes mounts the user CRUD endpoints; the caller chooses the prefix.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreateUnvalidated)
	r.Post("/validado", h.handleCreateValidated)
	r.Put("/{id}", h.handleReplace)
	r.Patch("/{id}", h.handlePatch)
	r.Delete("/{id}", h.handleDelete)
}

// DemoRoutes mounts the greeting and parameter lookup endpoints at the root.
func (h *Handler) DemoRoutes(r chi.Router) {
	r.Get("/", h.handleHello)
	r.Get("/bienvenido", h.handleWelcome)
	r.Get("/v1/parametro0b/{id}", h.handleRequiredParam)
	r.Get("/v1/parametro0p", h.handleOptionalParam)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, httpx.Body{
		"total":    len(users),
		"usuarios": users,
	})
}

func (h *Handler) handleCreateUnvalidated(w http.ResponseWriter, r *http.Request) {
	var req Record
	if err := decodeObject(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	user, err := h.service.CreateUnvalidated(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, httpx.Body{
		"mensaje":      "Usuario creado",
		"datos nuevos": user,
	})
}

func (h *Handler) handleCreateValidated(w http.ResponseWriter, r *http.Request) {
	var req NewUser
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	user, err := h.service.CreateValidated(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, httpx.Body{
		"mensaje": "Usuario agregado",
		"Usuario": user,
	})
}

func (h *Handler) handleReplace(w http.ResponseWriter, r *http.Request) {
	id, req, err := idAndObject(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	user, err := h.service.Replace(r.Context(), id, req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, httpx.Body{
		"mensaje": "Usuario actualizado",
		"usuario": user,
	})
}

func (h *Handler) handlePatch(w http.ResponseWriter, r *http.Request) {
	id, req, err := idAndObject(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	user, err := h.service.Patch(r.Context(), id, req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, httpx.Body{
		"mensaje": "Usuario actualizado parcialmente",
		"usuario": user,
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	user, err := h.service.Delete(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, httpx.Body{
		"mensaje": "Usuario eliminado",
		"usuario": user,
	})
}

func (h *Handler) handleHello(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, httpx.Body{"mensaje": "Hola mundo FastAPI"})
}

// handleWelcome answers after welcomeDelay, or gives up when the client
// goes away first.
func (h *Handler) handleWelcome(w http.ResponseWriter, r *http.Request) {
	timer := time.NewTimer(h.welcomeDelay)
	defer timer.Stop()

	select {
	case <-r.Context().Done():
		return
	case <-timer.C:
	}

	httpx.WriteJSON(w, http.StatusOK, httpx.Body{"mensaje": "Bienvenido a FastAPI"})
}

func (h *Handler) handleRequiredParam(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, httpx.Body{
		"mensaje": "usuario encontrado",
		"usuario": id,
	})
}

func (h *Handler) handleOptionalParam(w http.ResponseWriter, r *http.Request) {
	id, ok, err := httpx.OptionalQueryInt(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if !ok {
		httpx.WriteJSON(w, http.StatusOK, httpx.Body{"mensaje": "No se proporcionó un id"})
		return
	}

	user, err := h.service.Get(r.Context(), id)
	if errors.Is(err, apperr.ErrNotFound) {
		// a miss is still a successful lookup here
		httpx.WriteJSON(w, http.StatusOK, httpx.Body{"mensaje": "usuario no encontrado"})
		return
	}
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, httpx.Body{
		"mensaje": "usuario encontrado",
		"usuario": user,
	})
}

func idAndObject(r *http.Request) (int, Record, error) {
	id, err := httpx.PathInt(r, "id")
	if err != nil {
		return 0, nil, err
	}
	var req Record
	if err := decodeObject(r, &req); err != nil {
		return 0, nil, err
	}
	return id, req, nil
}

// decodeObject accepts only JSON objects; null, arrays and scalars are
// rejected.
func decodeObject(r *http.Request, dst *Record) error {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		return err
	}
	if *dst == nil {
		return apperr.Validation("El cuerpo debe ser un objeto JSON")
	}
	return nil
}
