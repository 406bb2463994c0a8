package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/banners/internal/auth"
	"github.com/MrSnakeDoc/banners/internal/logger"
)

// SessionCookie carries the credential minted at sign-in.
const SessionCookie = "banners_session"

// CredentialVerifier resolves a session credential to its identity.
type CredentialVerifier interface {
	VerifyCredential(token string) (auth.Identity, error)
}

// RequireSession only lets through requests whose session cookie verifies
// and belongs to the identity the current Authorized session is for. With a
// nil verifier every request is rejected.
func RequireSession(v CredentialVerifier, session func() auth.Session, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(SessionCookie)
			if err != nil || c.Value == "" || v == nil {
				reject(w, http.StatusUnauthorized, "NotSignedIn", "sign in first")
				return
			}

			id, err := v.VerifyCredential(c.Value)
			if err != nil {
				log.Debug("session credential refused",
					logger.String("path", r.URL.Path),
					logger.Error(err))
				reject(w, http.StatusUnauthorized, "NotSignedIn", "session expired or replaced, sign in again")
				return
			}

			s := session()
			if !s.Authorized || s.Identity == nil || s.Identity.Subject != id.Subject {
				reject(w, http.StatusUnauthorized, "NotSignedIn", "sign in with an authorized account first")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
