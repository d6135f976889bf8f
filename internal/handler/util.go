package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gidvion/chat-core/internal/model"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response in the same shape the event
// stream uses for failures.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, &model.ErrorEvent{
		Code:    http.StatusText(status),
		Message: message,
	})
}
