// internal/server/handlers/respond.go

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"geointel/internal/domain/intel"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")
)

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	response := map[string]string{"error": message}

	if err != nil {
		if code >= 500 {
			slog.Error("http_error", "code", code, "message", message, "error", err)
		} else {
			response["detail"] = err.Error()
		}
	}

	jsonResponse, _ := json.Marshal(response)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(jsonResponse)
}

// kindParam reads the optional ?kind= filter; "" and "all" mean every kind
func kindParam(r *http.Request) (intel.Kind, bool) {
	k := r.URL.Query().Get("kind")
	if k == "" || k == intel.AllValue {
		return "", true
	}
	kind := intel.Kind(k)
	return kind, kind.Valid()
}
