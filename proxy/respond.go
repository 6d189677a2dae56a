package proxy

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError responds with the gateway's stable error shape so clients
// can branch on fields instead of parsing prose.
func writeJSONError(w http.ResponseWriter, status int, errMsg, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errMsg,
		"message": message,
	})
}
