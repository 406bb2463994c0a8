package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/banners/internal/httpserver/deps"
	"github.com/MrSnakeDoc/banners/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/banners/internal/httpserver/mw"
)

func init() { Register(registerRecords) }

func registerRecords(r chi.Router, d deps.Deps) {
	api := r.With(mw.EnforceHost(d.AllowedHosts, d.Logger), operatorOnly(d))
	api.Get("/api/records", handlers.ListRecords(d))
	api.Post("/api/records/reload", handlers.ReloadRecords(d))
	api.Post("/api/records/{id}/edit", handlers.EditRecord(d))
	api.Delete("/api/records/{id}", handlers.DeleteRecord(d))

	api.Get("/api/draft", handlers.GetDraft(d))
	api.Put("/api/draft", handlers.PutDraft(d))
	api.Post("/api/draft/save", handlers.SaveDraft(d))
	api.Post("/api/draft/cancel", handlers.CancelDraft(d))
}
