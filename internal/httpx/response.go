// Package httpx holds the HTTP conventions shared by every service: the JSON
// response envelope, error rendering, request decoding and middleware.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"biblioteca/internal/apperr"
)

// Body is a JSON object response. WriteJSON adds the "status" field.
type Body map[string]any

// WriteJSON writes body with the given status code, mirroring the code in
// the "status" field.
func WriteJSON(w http.ResponseWriter, status int, body Body) {
	if body == nil {
		body = Body{}
	}
	body["status"] = status

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as {"detail": ..., "status": ...}. Errors without a
// known kind are logged and reported as 500 without leaking their text.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		WriteJSON(w, status, Body{"detail": "Error interno del servidor"})
		return
	}

	body := Body{"detail": apperr.Detail(err)}
	var appErr *apperr.Error
	if errors.As(err, &appErr) && len(appErr.Fields) > 0 {
		body["errores"] = appErr.Fields
	}
	WriteJSON(w, status, body)
}

// NotFound and MethodNotAllowed keep router-level failures in the same envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, Body{"detail": "Not Found"})
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusMethodNotAllowed, Body{"detail": "Method Not Allowed"})
}
