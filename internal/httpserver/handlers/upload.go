package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/MrSnakeDoc/banners/internal/httpserver/deps"
	"github.com/MrSnakeDoc/banners/internal/staging"
	"github.com/MrSnakeDoc/banners/internal/utils"
)

// DefaultMaxUploadBytes bounds a multipart file selection.
const DefaultMaxUploadBytes = 10 << 20

type selectFileResponse struct {
	PreviewHandle string `json:"previewHandle"`
	PreviewURL    string `json:"previewUrl"`
}

// SelectFile stages the multipart "file" field for upload and exposes a
// local preview of it.
func SelectFile(d deps.Deps) http.HandlerFunc {
	limit := d.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		file, header, err := r.FormFile("file")
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "file is too large", Kind: "TooLarge"})
				return
			}
			badRequest(w, "a multipart \"file\" field is required")
			return
		}
		defer utils.Close(file)

		data, err := io.ReadAll(file)
		if err != nil {
			badRequest(w, "could not read the uploaded file")
			return
		}

		handle, err := d.Console.SelectFile(r.Context(), staging.File{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, selectFileResponse{
			PreviewHandle: handle,
			PreviewURL:    "/api/previews/" + handle,
		})
	}
}

// Upload transfers the selected file and attaches its download URL to the
// draft as the image reference.
func Upload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draft, err := d.Console.Upload(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		_, editingID, _ := d.Console.Draft(r.Context())
		writeJSON(w, http.StatusOK, draftResponse{Draft: draft, EditingID: editingID})
	}
}
