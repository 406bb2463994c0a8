package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/banners/internal/domain"
	"github.com/MrSnakeDoc/banners/internal/httpserver/deps"
)

type recordsResponse struct {
	Records []domain.Record `json:"records"`
	Status  string          `json:"status,omitempty"`
}

func ListRecords(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, status, err := d.Console.Records(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, recordsResponse{Records: recs, Status: status})
	}
}

// ReloadRecords re-reads the collection from the document store, falling
// back to the seed set when it is unreachable or empty.
func ReloadRecords(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, status, err := d.Console.Reload(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, recordsResponse{Records: recs, Status: status})
	}
}

// EditRecord loads a record into the draft. Its id is kept on save.
func EditRecord(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draft, err := d.Console.Edit(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, draftResponse{Draft: draft, EditingID: draft.ID})
	}
}

// DeleteRecord removes a record from this session's list only.
func DeleteRecord(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Console.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
