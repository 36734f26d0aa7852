// Package server assembles the chi routers for the biblioteca and usuarios
// processes.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"biblioteca/internal/catalog"
	"biblioteca/internal/circulation"
	"biblioteca/internal/eventstore"
	"biblioteca/internal/httpx"
	"biblioteca/internal/membership"
	"biblioteca/internal/validation"
)

// Version is reported by the library root endpoint.
const Version = "1.0"

// Options are the knobs shared by both routers.
type Options struct {
	ServiceName string
	Logger      *slog.Logger
	// Limiter may be nil.
	Limiter *rate.Limiter
	Now     func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Library wires the catalog, loans and journal of one process.
type Library struct {
	Catalog     catalog.Service
	Circulation circulation.Service
	Journal     *eventstore.EventStore
}

// NewLibrary builds the stores behind the library service.
func NewLibrary(opts Options) *Library {
	opts = opts.withDefaults()
	journal := eventstore.NewEventStore(eventstore.WithClock(opts.Now))
	validator := validation.New(opts.Now)

	books := catalog.NewService(journal, validator)
	loans := circulation.NewService(books, journal, validator,
		circulation.WithClock(opts.Now),
		circulation.WithLogger(opts.Logger),
	)

	return &Library{Catalog: books, Circulation: loans, Journal: journal}
}

// NewLibraryRouter serves books under /v1/libros, loans under /v1/prestamos
// and the journal under /v1/eventos.
func NewLibraryRouter(lib *Library, opts Options) http.Handler {
	opts = opts.withDefaults()
	r := newRouter(opts)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, httpx.Body{
			"mensaje": "Bienvenido a la API de Biblioteca Digital",
			"version": Version,
		})
	})
	r.Route("/v1/libros", catalog.NewHandler(lib.Catalog).Routes)
	r.Route("/v1/prestamos", circulation.NewHandler(lib.Circulation).Routes)
	r.Route("/v1/eventos", eventstore.NewHandler(lib.Journal).Routes)

	return r
}

// Registry wires the user store of one process.
type Registry struct {
	Users   membership.Service
	Journal *eventstore.EventStore
}

// NewRegistry builds the user store, seeded with seed.
func NewRegistry(opts Options, seed []membership.Record) *Registry {
	opts = opts.withDefaults()
	journal := eventstore.NewEventStore(eventstore.WithClock(opts.Now))
	users := membership.NewService(journal, validation.New(opts.Now), membership.WithSeed(seed...))
	return &Registry{Users: users, Journal: journal}
}

// NewUsersRouter serves the user registry, its parameter demos and its
// journal under /v1/usuarios/eventos.
func NewUsersRouter(reg *Registry, welcomeDelay time.Duration, opts Options) http.Handler {
	opts = opts.withDefaults()
	r := newRouter(opts)

	h := membership.NewHandler(reg.Users, welcomeDelay)
	h.DemoRoutes(r)
	r.Route("/v1/usuarios", func(r chi.Router) {
		h.Routes(r)
		r.Route("/eventos", eventstore.NewHandler(reg.Journal).Routes)
	})

	return r
}

func newRouter(opts Options) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(httpx.Trace(opts.ServiceName))
	r.Use(httpx.RequestLogger(opts.Logger))
	r.Use(httpx.RateLimit(opts.Limiter))

	r.NotFound(httpx.NotFound)
	r.MethodNotAllowed(httpx.MethodNotAllowed)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, httpx.Body{"estado": "ok"})
	})

	return r
}
