package api

import (
	"context"
	"net/http"
	"time"

	"github.com/nerrad567/smarthome-core/internal/auth"
)

// sessionCookieName is the cookie carrying the session token.
const sessionCookieName = "session"

// defaultSessionTTL applies when the configured lifetime is not positive.
const defaultSessionTTL = 7 * 24 * time.Hour

func (s *Server) sessionTTL() time.Duration {
	if s.secCfg.JWT.SessionTTL <= 0 {
		return defaultSessionTTL
	}
	return time.Duration(s.secCfg.JWT.SessionTTL) * time.Minute
}

// issueSession signs a token for user and sets it as the session cookie.
func (s *Server) issueSession(w http.ResponseWriter, user *auth.User) error {
	ttl := s.sessionTTL()
	token, err := auth.GenerateSessionToken(user, s.secCfg.JWT.Secret, ttl)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// clearSession expires the session cookie.
func clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) parseSession(token string) (*auth.SessionClaims, error) {
	return auth.ParseSessionToken(token, s.secCfg.JWT.Secret)
}

// claimsFromContext returns the session claims stored by authMiddleware,
// or nil on unprotected routes.
func claimsFromContext(ctx context.Context) *auth.SessionClaims {
	claims, _ := ctx.Value(ctxKeyClaims).(*auth.SessionClaims) //nolint:errcheck // nil when absent
	return claims
}

// callerID returns the authenticated user's ID.
func callerID(r *http.Request) string {
	if claims := claimsFromContext(r.Context()); claims != nil {
		return claims.Subject
	}
	return ""
}
