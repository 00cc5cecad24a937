// Package session identifies browser sessions for the session-scoped transform cache.
package session

import (
	"context"
	"crypto/sha256"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// keyID is the session value holding the session identifier.
const keyID = "sid"

type contextKey struct{}

// Options configures the session cookie.
type Options struct {
	CookieName string
	MaxAge     int
	Secure     bool
}

// Manager issues and reads the session cookie.
// The cookie carries only a random session id; session data lives in the transform cache.
type Manager struct {
	store  *sessions.CookieStore
	name   string
	logger *zap.Logger
}

// NewManager creates a cookie-backed session manager.
//
// The secret signs session cookies. It can be any passphrase; it is SHA-256 hashed to
// derive a 32-byte key. It must be consistent across restarts and across servers.
func NewManager(secret string, opts Options, logger *zap.Logger) *Manager {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   opts.MaxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &Manager{
		store:  store,
		name:   opts.CookieName,
		logger: logger.Named("session"),
	}
}

// Middleware makes sure every request has a session id, issuing a cookie when missing
// or unreadable, and stores the id in the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A tampered or stale cookie yields a fresh session rather than an error.
		sess, err := m.store.Get(r, m.name)
		if err != nil {
			m.logger.Debug("Discarding unreadable session cookie", zap.Error(err))
		}

		id, _ := sess.Values[keyID].(string)
		if id == "" {
			id = uuid.NewString()
			sess.Values[keyID] = id
			if err := sess.Save(r, w); err != nil {
				m.logger.Error("Failed to save session", zap.Error(err))
				http.Error(w, "session error", http.StatusInternalServerError)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}

// WithID stores a session id in the context.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IDFromContext returns the session id set by Middleware.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}
