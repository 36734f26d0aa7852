package server

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"biblioteca/internal/httpx"
)

var (
	libraryPrefixes = []string{"/v1/libros", "/v1/prestamos", "/v1/eventos"}
	usersPrefixes   = []string{"/v1/usuarios", "/v1/parametro0b", "/v1/parametro0p", "/bienvenido"}
)

// NewGatewayRouter exposes both services under one address, forwarding each
// path prefix to the service that owns it.
func NewGatewayRouter(library, users *url.URL, opts Options) http.Handler {
	opts = opts.withDefaults()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httpx.Trace(opts.ServiceName))
	r.Use(httpx.RequestLogger(opts.Logger))
	r.Use(httpx.RateLimit(opts.Limiter))
	r.NotFound(httpx.NotFound)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, httpx.Body{"estado": "ok"})
	})

	libraryProxy := newProxy(library, opts.Logger)
	usersProxy := newProxy(users, opts.Logger)
	r.Handle("/", libraryProxy)
	for _, prefix := range libraryPrefixes {
		r.Handle(prefix, libraryProxy)
		r.Handle(prefix+"/*", libraryProxy)
	}
	for _, prefix := range usersPrefixes {
		r.Handle(prefix, usersProxy)
		r.Handle(prefix+"/*", usersProxy)
	}

	return r
}

func newProxy(target *url.URL, logger *slog.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Set(middleware.RequestIDHeader, middleware.GetReqID(pr.In.Context()))
			otel.GetTextMapPropagator().Inject(pr.In.Context(), propagation.HeaderCarrier(pr.Out.Header))
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.ErrorContext(r.Context(), "upstream request failed",
				slog.String("upstream", target.Host),
				slog.String("path", r.URL.Path),
				slog.Any("error", err),
			)
			httpx.WriteJSON(w, http.StatusBadGateway, httpx.Body{"detail": "Servicio no disponible"})
		},
	}
}
