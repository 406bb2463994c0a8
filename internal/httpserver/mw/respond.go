package mw

import (
	"encoding/json"
	"net/http"
)

type rejection struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// reject writes the same JSON error shape the handlers use.
func reject(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rejection{Error: msg, Kind: kind})
}
