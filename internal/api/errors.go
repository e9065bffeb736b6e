package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sashakarcz/passify/internal/logger"
)

// jsonErrorResponse encodes a structured error payload for API clients
type jsonErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSONError writes an error response encoded as JSON with the given status
func WriteJSONError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	payload := jsonErrorResponse{
		Error: strings.TrimSpace(message),
	}
	if detail := strings.TrimSpace(details); detail != "" {
		payload.Details = detail
	}

	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug().Err(err).Msg("Failed to encode JSON response")
	}
}

// methodNotAllowed replies 405 listing the accepted methods
func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}
