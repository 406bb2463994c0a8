package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/banners/internal/domain"
	"github.com/MrSnakeDoc/banners/internal/httpserver/deps"
)

type draftResponse struct {
	Draft     domain.Draft `json:"draft"`
	EditingID string       `json:"editingId,omitempty"`
}

type saveResponse struct {
	Record     domain.Record `json:"record"`
	Created    bool          `json:"created"`
	Mirrored   bool          `json:"mirrored"`
	Status     string        `json:"status"`
	StoreError string        `json:"storeError,omitempty"`
}

func GetDraft(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draft, editingID, err := d.Console.Draft(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, draftResponse{Draft: draft, EditingID: editingID})
	}
}

// PutDraft replaces the form fields. Nothing is validated until save.
func PutDraft(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in domain.Draft
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&in); err != nil {
			badRequest(w, "invalid draft payload")
			return
		}
		draft, err := d.Console.UpdateDraft(r.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}
		_, editingID, _ := d.Console.Draft(r.Context())
		writeJSON(w, http.StatusOK, draftResponse{Draft: draft, EditingID: editingID})
	}
}

// SaveDraft validates the draft and commits it. A failed remote mirror is
// still a successful save: the record is staged locally and storeError says
// why.
func SaveDraft(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := d.Console.Save(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		out := saveResponse{
			Record:   res.Record,
			Created:  res.Created,
			Mirrored: res.Mirrored,
			Status:   res.Status,
		}
		if res.Err != nil {
			out.StoreError = res.Err.Error()
		}
		status := http.StatusOK
		if res.Created {
			status = http.StatusCreated
		}
		writeJSON(w, status, out)
	}
}

func CancelDraft(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Console.Cancel(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
