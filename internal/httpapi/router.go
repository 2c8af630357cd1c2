// Package httpapi assembles the HTTP surface: routing, authentication,
// rate limiting and request logging.
package httpapi

import (
	"net/http"

	"eventrental/internal/web"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Mounter is implemented by every domain handler.
type Mounter interface {
	Routes(r chi.Router)
}

// Options configures the router.
type Options struct {
	Tokens   *Tokens
	Limiter  *rate.Limiter
	Logger   *zap.Logger
	Handlers []Mounter
}

// NewRouter mounts the handlers behind authentication. /health stays open.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(opts.Logger))
	if opts.Limiter != nil {
		r.Use(RateLimit(opts.Limiter))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		web.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(opts.Tokens, opts.Logger))
		for _, h := range opts.Handlers {
			h.Routes(r)
		}
	})
	return r
}
