package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblioteca/internal/membership"
)

func TestGatewayRoutesByPrefix(t *testing.T) {
	opts := testOptions()
	library := httptest.NewServer(NewLibraryRouter(NewLibrary(opts), opts))
	defer library.Close()
	users := httptest.NewServer(NewUsersRouter(NewRegistry(opts, membership.DefaultSeed()), 0, opts))
	defer users.Close()

	libraryURL, err := url.Parse(library.URL)
	require.NoError(t, err)
	usersURL, err := url.Parse(users.URL)
	require.NoError(t, err)
	c := client{t: t, h: NewGatewayRouter(libraryURL, usersURL, opts)}

	status, body := c.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Bienvenido a la API de Biblioteca Digital", body["mensaje"])

	status, body = c.do(http.MethodGet, "/v1/libros/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "total_libros")

	status, body = c.do(http.MethodGet, "/v1/usuarios/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["usuarios"], 3)

	status, body = c.do(http.MethodGet, "/v1/parametro0b/7", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(7), body["usuario"])
}

func TestGatewayReportsUnavailableUpstream(t *testing.T) {
	opts := testOptions()
	down := httptest.NewServer(http.NotFoundHandler())
	downURL, err := url.Parse(down.URL)
	require.NoError(t, err)
	down.Close()

	c := client{t: t, h: NewGatewayRouter(downURL, downURL, opts)}

	status, body := c.do(http.MethodGet, "/v1/libros/", "")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "Servicio no disponible", body["detail"])
}
