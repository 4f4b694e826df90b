package web

import (
	"encoding/json"
	"net/http"
)

// errorBody is the stable error response shape. Reason codes are part of
// the API contract; 5xx bodies never carry internal detail.
type errorBody struct {
	Error  string         `json:"error"`
	Reason string         `json:"reason,omitempty"`
	Detail map[string]any `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

func writeDenial(w http.ResponseWriter, reason string, detail map[string]any) {
	writeJSON(w, http.StatusForbidden, errorBody{
		Error:  "not entitled",
		Reason: reason,
		Detail: detail,
	})
}
