package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/banners/internal/httpserver/deps"
	"github.com/MrSnakeDoc/banners/internal/httpserver/mw"
	"github.com/MrSnakeDoc/banners/internal/logger"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// View returns everything the operator sees at once.
func View(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Console.View(r.Context()))
	}
}

func GetSession(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Console.Session())
	}
}

// SignIn authenticates and answers once the authorization decision is in.
// An authorized operator gets the session credential as an HttpOnly cookie.
// A denied account gets 403 with the denial reason.
func SignIn(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signInRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
			badRequest(w, "invalid sign-in payload")
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" || req.Password == "" {
			badRequest(w, "email and password are required")
			return
		}

		if _, err := d.Console.SignIn(r.Context(), req.Email, req.Password); err != nil {
			d.Logger.Info("sign-in refused",
				logger.String("email", req.Email),
				logger.Error(err))
			writeError(w, err)
			return
		}
		if d.Credentials != nil {
			setSessionCookie(w, r, d, d.Credentials.Credential())
		}
		writeJSON(w, http.StatusOK, d.Console.View(r.Context()))
	}
}

func SignOut(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := d.Console.SignOut(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		setSessionCookie(w, r, d, "")
		writeJSON(w, http.StatusOK, s)
	}
}

// setSessionCookie stores token, or expires the cookie when token is empty.
func setSessionCookie(w http.ResponseWriter, r *http.Request, d deps.Deps, token string) {
	c := &http.Cookie{
		Name:     mw.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   r.TLS != nil || (d.TrustProxy && r.Header.Get("X-Forwarded-Proto") == "https"),
	}
	if token == "" {
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}
