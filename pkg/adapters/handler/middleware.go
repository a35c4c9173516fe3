package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/wadjakorntonsri/linkora/pkg/observability"
	"github.com/wadjakorntonsri/linkora/pkg/ports"
)

const sessionCookie = "auth_token"

type sessionKey struct{}

// SessionFrom returns the session attached by the auth middleware, or nil
func SessionFrom(ctx context.Context) *ports.Session {
	s, _ := ctx.Value(sessionKey{}).(*ports.Session)
	return s
}

type Middleware struct {
	auth   ports.AuthService
	logger *observability.Logger
}

func NewMiddleware(auth ports.AuthService, logger *observability.Logger) *Middleware {
	return &Middleware{auth: auth, logger: logger}
}

// tokenFrom reads the session token from the cookie or a bearer header
func tokenFrom(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func (m *Middleware) session(r *http.Request) *ports.Session {
	token := tokenFrom(r)
	if token == "" {
		return nil
	}
	s, err := m.auth.CurrentSession(r.Context(), token)
	if err != nil {
		m.logger.Debug(r.Context(), "Ignoring invalid session token")
		return nil
	}
	return s
}

func withSession(r *http.Request, s *ports.Session) *http.Request {
	ctx := context.WithValue(r.Context(), sessionKey{}, s)
	ctx = observability.WithFields(ctx, observability.Field{Key: "user_id", Value: s.User.ID})
	return r.WithContext(ctx)
}

// OptionalSession attaches the session when the request carries a valid
// token and otherwise lets the request through anonymously.
func (m *Middleware) OptionalSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s := m.session(r); s != nil {
			r = withSession(r, s)
		}
		next.ServeHTTP(w, r)
	})
}

// AuthMiddleware rejects requests without a valid session: API calls get a
// 401, browser navigation is sent to the Google login.
func (m *Middleware) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.session(r)
		if s == nil {
			if isAPIRequest(r) {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
			} else {
				http.Redirect(w, r, "/auth/google/login", http.StatusTemporaryRedirect)
			}
			return
		}
		next.ServeHTTP(w, withSession(r, s))
	})
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
