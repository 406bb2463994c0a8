package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/banners/internal/httpserver/deps"
	"github.com/MrSnakeDoc/banners/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/banners/internal/httpserver/mw"
)

func init() { Register(registerSession) }

func registerSession(r chi.Router, d deps.Deps) {
	api := r.With(mw.EnforceHost(d.AllowedHosts, d.Logger))
	api.Get("/api/session", handlers.GetSession(d))
	api.With(operatorOnly(d)).Get("/api/view", handlers.View(d))
	api.With(operatorOnly(d)).Delete("/api/session", handlers.SignOut(d))

	api.With(mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.SignInLimit.Burst,
		RefillPerIPPerMin: d.SignInLimit.RefillPerMin,
		MaxEntries:        10_000,
		TrustProxy:        d.TrustProxy,
	})).Post("/api/session", handlers.SignIn(d))
}

// operatorOnly gates a route on the credential of the signed-in operator.
func operatorOnly(d deps.Deps) func(http.Handler) http.Handler {
	return mw.RequireSession(d.Credentials, d.Console.Session, d.Logger)
}
