package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/access"
)

type userContextKey struct{}

// UserFromContext returns the user a guard resolved for the request.
func UserFromContext(ctx context.Context) (*goSession.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*goSession.User)
	return u, ok && u != nil
}

// WithRequest attaches the token sink, client IP, method and path of r to its
// context. Guards call it; handlers that call the Manager directly can too.
func WithRequest(t *Transport, w http.ResponseWriter, r *http.Request) *http.Request {
	ctx := goSession.WithTokenSink(r.Context(), t.Sink(w))
	ctx = goSession.WithClientIP(ctx, clientIP(r))
	ctx = goSession.WithRequestInfo(ctx, r.Method, r.URL.Path)
	return r.WithContext(ctx)
}

// RequireUser rejects requests without a live session with 401. A renewed token is
// written to the response before next runs.
func RequireUser(m *goSession.Manager, t *Transport) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, ok := authenticate(m, t, w, r)
			if !ok {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireLevel is RequireUser plus an access check: users whose level is above
// level are rejected with 403.
func RequireLevel(m *goSession.Manager, t *Transport, level int) func(http.Handler) http.Handler {
	req := access.RequireLevel(level)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, ok := authenticate(m, t, w, r)
			if !ok {
				return
			}
			if !authorize(m, w, r, req) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(m *goSession.Manager, t *Transport, w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	if m == nil || t == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return r, false
	}

	r = WithRequest(t, w, r)
	u, err := m.GetUser(r.Context(), t.ReadToken(r))
	if err != nil {
		writeError(w, err)
		return r, false
	}
	if u == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return r, false
	}

	return r.WithContext(context.WithValue(r.Context(), userContextKey{}, u)), true
}

func authorize(m *goSession.Manager, w http.ResponseWriter, r *http.Request, req access.Requirement) bool {
	u, _ := UserFromContext(r.Context())
	d, err := m.Authorize(r.Context(), u, req)
	if err != nil {
		writeError(w, err)
		return false
	}
	if !d.Access {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, goSession.ErrStoreUnavailable), errors.Is(err, goSession.ErrCallbackTimeout):
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
