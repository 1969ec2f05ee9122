package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/JustinTDCT/MarkerVault/internal/httputil"
	"github.com/JustinTDCT/MarkerVault/internal/repository"
)

type contextKey string

const ContextUser contextKey = "user"

type ContextUserData struct {
	UserID    string
	SessionID string
}

type Middleware struct {
	auth     *Auth
	sessions *repository.SessionRepository
}

func NewMiddleware(a *Auth, sessions *repository.SessionRepository) *Middleware {
	return &Middleware{auth: a, sessions: sessions}
}

// RequireAuth validates the bearer/cookie token signature, then checks the
// sessions table so logged-out tokens are rejected even before expiry.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		claims, err := m.auth.ValidateToken(token)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}

		sess, err := m.sessions.Get(r.Context(), claims.ID)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "SESSION_REVOKED", "session revoked")
			return
		}
		if IsExpired(sess.ExpiresAt) {
			m.sessions.Delete(r.Context(), sess.ID)
			httputil.WriteError(w, http.StatusUnauthorized, "SESSION_EXPIRED", "session expired")
			return
		}

		ctx := context.WithValue(r.Context(), ContextUser, ContextUserData{
			UserID:    claims.Subject,
			SessionID: sess.ID,
		})
		next(w, r.WithContext(ctx))
	}
}

func UserFromContext(ctx context.Context) *ContextUserData {
	if v, ok := ctx.Value(ContextUser).(ContextUserData); ok {
		return &v
	}
	return nil
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie("session"); err == nil {
		return c.Value
	}
	return ""
}
