package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const userKey contextKey = "user"

// user is the caller's identity as asserted by the edge.
type user struct {
	ID    string
	Admin bool
}

func userFrom(ctx context.Context) (user, bool) {
	u, ok := ctx.Value(userKey).(user)
	return u, ok
}

// identity requires the edge-supplied identity headers and stores the caller
// in the request context. Requests without an identity are rejected.
func (s *Server) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-User-ID")
		if id == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing user identity", 0)
			return
		}

		admin := r.Header.Get("X-User-Admin")
		u := user{ID: id, Admin: admin == "true" || admin == "1"}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	})
}

// rateLimit consumes one unit of the caller's search budget. Denials carry a
// Retry-After hint in seconds.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := userFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing user identity", 0)
			return
		}

		decision := s.limiter.Allow(r.Context(), u.ID, rateLimitAction, u.Admin)
		if !decision.Allowed {
			retryAfter := int(decision.RetryAfter.Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, "rate_limited",
				"search rate limit exceeded", retryAfter)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request with status and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}
