package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblioteca/internal/membership"
)

// stack runs both services behind the gateway on real listeners.
type stack struct {
	gateway *httptest.Server
}

func setupStack(t *testing.T) *stack {
	t.Helper()
	opts := testOptions()

	library := httptest.NewServer(NewLibraryRouter(NewLibrary(opts), opts))
	t.Cleanup(library.Close)
	users := httptest.NewServer(NewUsersRouter(NewRegistry(opts, membership.DefaultSeed()), 0, opts))
	t.Cleanup(users.Close)

	libraryURL, err := url.Parse(library.URL)
	require.NoError(t, err)
	usersURL, err := url.Parse(users.URL)
	require.NoError(t, err)

	gateway := httptest.NewServer(NewGatewayRouter(libraryURL, usersURL, opts))
	t.Cleanup(gateway.Close)
	return &stack{gateway: gateway}
}

func (s *stack) send(t *testing.T, method, path string, payload any) (int, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, s.gateway.URL+path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func TestCheckoutFlow(t *testing.T) {
	s := setupStack(t)

	// borrow as a registered user
	status, body := s.send(t, http.MethodPost, "/v1/usuarios/validado",
		map[string]any{"id": 10, "nombre": "Test User", "edad": 30})
	require.Equal(t, http.StatusCreated, status)
	user := body["Usuario"].(map[string]any)

	status, _ = s.send(t, http.MethodPost, "/v1/libros/", map[string]any{
		"id": 1, "nombre": "Orgullo y Prejuicio", "autor": "Jane Austen", "anio": 1813, "paginas": 432,
	})
	require.Equal(t, http.StatusCreated, status)

	status, body = s.send(t, http.MethodPost, "/v1/prestamos/?libro_id=1",
		map[string]any{"nombre": user["nombre"], "correo": "test@example.com"})
	require.Equal(t, http.StatusCreated, status)
	loanID := body["prestamo"].(map[string]any)["id"]

	_, body = s.send(t, http.MethodGet, "/v1/libros/", nil)
	assert.Equal(t, float64(0), body["total_disponibles"])

	status, _ = s.send(t, http.MethodPatch, fmt.Sprintf("/v1/prestamos/%v/devolver", loanID), nil)
	require.Equal(t, http.StatusOK, status)

	_, body = s.send(t, http.MethodGet, "/v1/libros/", nil)
	assert.Equal(t, float64(1), body["total_disponibles"])
}

func TestConcurrentCheckoutPreventsDoubleBooking(t *testing.T) {
	s := setupStack(t)

	status, _ := s.send(t, http.MethodPost, "/v1/libros/", map[string]any{
		"id": 1, "nombre": "El Gran Gatsby", "autor": "F. Scott Fitzgerald", "anio": 1925, "paginas": 180,
	})
	require.Equal(t, http.StatusCreated, status)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, _ := json.Marshal(map[string]string{
				"nombre": fmt.Sprintf("Socio %d", i),
				"correo": fmt.Sprintf("socio%d@test.com", i),
			})
			resp, err := http.Post(s.gateway.URL+"/v1/prestamos/?libro_id=1", "application/json", bytes.NewReader(payload))
			if err != nil {
				return
			}
			resp.Body.Close()

			mu.Lock()
			defer mu.Unlock()
			switch resp.StatusCode {
			case http.StatusCreated:
				succeeded++
			case http.StatusConflict:
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded, "only one concurrent checkout should succeed")
	assert.Equal(t, 9, conflicts)

	_, body := s.send(t, http.MethodGet, "/v1/prestamos/", nil)
	assert.Equal(t, float64(1), body["total_prestamos"])
}
