// internal/api/middleware.go
package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/oreopets/portal/internal/api/auth"
	"github.com/oreopets/portal/internal/api/authz"
	"github.com/oreopets/portal/internal/api/htmx"
	"github.com/oreopets/portal/internal/backend"
	"github.com/oreopets/portal/internal/metrics"
)

type Middleware func(http.Handler) http.Handler

type requestIDKey struct{}

func ChainMiddleware(h http.Handler, middleware ...Middleware) http.Handler {
	for _, m := range middleware {
		h = m(h)
	}
	return h
}

// RequestIDFromContext returns the ID assigned by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func WithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create response wrapper to capture status code
		wrapped := wrapResponseWriter(w)

		next.ServeHTTP(wrapped, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode()).
			Dur("duration", time.Since(start)).
			Str("request_id", RequestIDFromContext(r.Context())).
			Msg("Request completed")
	})
}

// WithMetrics counts served requests by method and status.
func WithMetrics(m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r)
			m.ObserveHTTPRequest(r.Method, wrapped.statusCode())
		})
	}
}

func WithRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger := log.Ctx(r.Context())
				// Log the full stack trace
				stack := debug.Stack()
				logger.Error().
					Interface("error", err).
					Str("stack", string(stack)).
					Msg("Panic recovered")

				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()

		// Create a logger with the request ID
		logger := log.With().Str("request_id", requestID).Logger()

		// Add both the request ID and logger to context
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		ctx = logger.WithContext(ctx)

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set default content type if not set
		if r.Header.Get("Accept") == "" {
			r.Header.Set("Accept", "text/html")
		}
		next.ServeHTTP(w, r)
	})
}

// WithSession resolves the session cookie and stores the owner in the
// request context. Requests without a session pass through anonymously.
func WithSession(store *auth.Store) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session, ok := store.FromRequest(w, r); ok {
				r = r.WithContext(authz.ContextWithUser(r.Context(), session.User()))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithOwnerAuth sends anyone who is not a signed-in owner to the login page,
// remembering where they were headed.
func WithOwnerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := authz.RequireRole(r.Context(), backend.RoleOwner)
		if err == nil {
			next.ServeHTTP(w, r)
			return
		}

		logger := log.Ctx(r.Context())
		switch {
		case errors.Is(err, authz.ErrUnauthenticated):
			logger.Debug().Str("path", r.URL.Path).Msg("Owner access denied: unauthenticated")
		case errors.Is(err, authz.ErrForbidden):
			if current := authz.UserFromContext(r.Context()); current != nil {
				logger.Warn().Str("role", current.Role).Msg("Owner access denied: forbidden")
			}
		default:
			logger.Error().Err(err).Msg("Owner access denied: error")
		}

		htmx.Redirect(w, r, loginURL(r))
	})
}

// loginURL points back at the page the browser was on. htmx fragment
// requests report it in HX-Current-URL.
func loginURL(r *http.Request) string {
	next := r.URL.RequestURI()
	if htmx.IsRequest(r) {
		if current, err := url.Parse(r.Header.Get("HX-Current-URL")); err == nil && current.Path != "" {
			next = current.RequestURI()
		} else {
			next = "/owner"
		}
	}
	return "/login?next=" + url.QueryEscape(next)
}

// responseWriter wrapper to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) statusCode() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}
