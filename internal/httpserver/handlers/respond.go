package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/banners/internal/auth"
	"github.com/MrSnakeDoc/banners/internal/console"
	"github.com/MrSnakeDoc/banners/internal/domain"
	"github.com/MrSnakeDoc/banners/internal/records"
	"github.com/MrSnakeDoc/banners/internal/staging"
	redisstore "github.com/MrSnakeDoc/banners/internal/store/redis"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
	Hint  string `json:"hint,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to a status code and the JSON error shape.
func writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	writeJSON(w, status, body)
}

func classify(err error) (int, errorResponse) {
	body := errorResponse{Error: err.Error(), Kind: "Internal"}

	var (
		authErr     *auth.AuthError
		validErr    *domain.ValidationError
		uploadErr   *staging.UploadError
		notFoundErr *records.NotFoundError
		storeErr    *records.StoreError
	)
	switch {
	case errors.As(err, &authErr):
		body.Kind = string(authErr.Kind)
		switch {
		case authErr == console.ErrNotAuthorized:
			body.Kind = "NotSignedIn"
			return http.StatusUnauthorized, body
		case authErr.Kind == auth.KindBadCredentials:
			return http.StatusUnauthorized, body
		case authErr.Kind == auth.KindDenied:
			return http.StatusForbidden, body
		default:
			return http.StatusServiceUnavailable, body
		}
	case errors.As(err, &validErr):
		body.Kind = string(validErr.Reason)
		body.Field = validErr.Field
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &uploadErr):
		body.Kind = string(uploadErr.Kind)
		body.Hint = uploadErr.Hint
		switch uploadErr.Kind {
		case staging.KindUnsupportedFileType:
			return http.StatusUnsupportedMediaType, body
		case staging.KindNoFile:
			return http.StatusConflict, body
		case staging.KindNotReady:
			return http.StatusServiceUnavailable, body
		case staging.KindDownloadURLTimeout:
			return http.StatusGatewayTimeout, body
		default:
			return http.StatusBadGateway, body
		}
	case errors.As(err, &notFoundErr), errors.Is(err, redisstore.ErrObjectNotFound):
		body.Kind = "NotFound"
		return http.StatusNotFound, body
	case errors.Is(err, staging.ErrReadDenied):
		body.Kind = "ReadDenied"
		return http.StatusForbidden, body
	case errors.As(err, &storeErr):
		body.Kind = "Store"
		return http.StatusBadGateway, body
	default:
		return http.StatusInternalServerError, body
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Kind: "BadRequest"})
}
