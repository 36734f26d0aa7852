package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"biblioteca/internal/apperr"
)

// maxBodyBytes caps request bodies; every payload here is a handful of fields.
const maxBodyBytes = 1 << 20

// DecodeJSON reads the request body into dst. Malformed or missing bodies are
// reported as validation errors.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("Se requiere un cuerpo JSON")
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apperr.InvalidFields([]apperr.FieldError{{
				Field:   typeErr.Field,
				Message: "Tipo de dato inválido, se esperaba " + typeErr.Type.String(),
			}})
		}
		return apperr.Validation("Cuerpo JSON inválido: %v", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.Validation("El cuerpo debe contener un único valor JSON")
	}
	return nil
}

// PathInt parses an integer URL parameter.
func PathInt(r *http.Request, name string) (int, error) {
	return parseInt(name, chi.URLParam(r, name))
}

// QueryInt parses a required integer query parameter.
func QueryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, apperr.InvalidFields([]apperr.FieldError{{Field: name, Message: "Campo requerido"}})
	}
	return parseInt(name, raw)
}

// OptionalQueryInt parses an integer query parameter that may be absent.
func OptionalQueryInt(r *http.Request, name string) (int, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	n, err := parseInt(name, raw)
	return n, err == nil, err
}

func parseInt(name, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.InvalidFields([]apperr.FieldError{{
			Field:   name,
			Message: "Debe ser un número entero válido",
		}})
	}
	return n, nil
}
