// internal/httpapi/middleware.go
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"eventrental/internal/web"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type statusBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Authenticate resolves the bearer token to the acting user id.
func Authenticate(tokens *Tokens, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				web.JSON(w, http.StatusUnauthorized, statusBody{Error: "missing authorization header", Kind: "unauthorized"})
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				web.JSON(w, http.StatusUnauthorized, statusBody{Error: "expected: Bearer <token>", Kind: "unauthorized"})
				return
			}

			actorID, err := tokens.Validate(parts[1])
			if err != nil {
				logger.Warn("rejected token",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Error(err))
				web.JSON(w, http.StatusUnauthorized, statusBody{Error: err.Error(), Kind: "unauthorized"})
				return
			}

			next.ServeHTTP(w, r.WithContext(web.WithActor(r.Context(), actorID)))
		})
	}
}

// RateLimit rejects requests above the shared limiter's rate.
func RateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				web.JSON(w, http.StatusTooManyRequests, statusBody{Error: "rate limit exceeded", Kind: "rate_limited"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs each request and hands a request-scoped logger to the
// handlers.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			reqLogger := logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))

			next.ServeHTTP(ww, r.WithContext(web.WithLogger(r.Context(), reqLogger)))

			reqLogger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
