// Package http provides helpers for writing JSON responses
package http

import (
	"encoding/json"
	stdhttp "net/http"
)

// JSON writes v as application/json with the given status
func JSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes v with a 200; resolution outcomes never vary the HTTP status,
// clients inspect the body's error/reason fields instead
func OK(w stdhttp.ResponseWriter, v any) {
	JSON(w, stdhttp.StatusOK, v)
}
