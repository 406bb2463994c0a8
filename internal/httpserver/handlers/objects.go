package handlers

import (
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/banners/internal/console"
	"github.com/MrSnakeDoc/banners/internal/httpserver/deps"
	"github.com/MrSnakeDoc/banners/internal/staging"
)

// Preview serves the local copy of a selected file to the signed-in operator.
func Preview(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !d.Console.Session().Authorized {
			writeError(w, console.ErrNotAuthorized)
			return
		}
		p, ok := d.Previews.Get(chi.URLParam(r, "handle"))
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "preview released or unknown", Kind: "NotFound"})
			return
		}
		w.Header().Set("Cache-Control", "private, no-store")
		writeBlob(w, p.Name, p.ContentType, p.Data)
	}
}

// Object serves a stored object. Objects are only readable when the store
// allows public reads.
func Object(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Objects == nil {
			writeError(w, &staging.UploadError{Kind: staging.KindNotReady, Message: "object store is not configured"})
			return
		}

		objPath := chi.URLParam(r, "*")
		if p, err := url.PathUnescape(objPath); err == nil {
			objPath = p
		}
		if objPath == "" {
			badRequest(w, "object path is required")
			return
		}

		obj, err := d.Objects.Get(r.Context(), objPath)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
		writeBlob(w, path.Base(objPath), obj.ContentType, obj.Data)
	}
}

// blobPolicy keeps stored bytes inert when opened directly: no script, no
// subresources, unique origin.
const blobPolicy = "default-src 'none'; img-src 'self'; sandbox"

func writeBlob(w http.ResponseWriter, name, contentType string, data []byte) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Content-Security-Policy", blobPolicy)
	if disp := mime.FormatMediaType("inline", map[string]string{"filename": name}); disp != "" {
		h.Set("Content-Disposition", disp)
	} else {
		h.Set("Content-Disposition", "inline")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
