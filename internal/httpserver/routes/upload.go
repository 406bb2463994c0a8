package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/banners/internal/httpserver/deps"
	"github.com/MrSnakeDoc/banners/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/banners/internal/httpserver/mw"
)

func init() { Register(registerUpload) }

func registerUpload(r chi.Router, d deps.Deps) {
	api := r.With(mw.EnforceHost(d.AllowedHosts, d.Logger), operatorOnly(d))
	api.Post("/api/upload/file", handlers.SelectFile(d))
	api.Post("/api/upload", handlers.Upload(d))
	api.Get("/api/previews/{handle}", handlers.Preview(d))

	// Public download links handed out by the object store.
	r.Get("/objects/*", handlers.Object(d))
}
