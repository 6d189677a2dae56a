package server

import (
	"encoding/json"
	"net/http"

	"github.com/untools/auth-gateway/proxy"
)

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondAuthFailure tells the client its credentials are beyond repair and
// it must pass through the logout route to clear state.
func respondAuthFailure(w http.ResponseWriter) {
	w.Header().Set("X-Auth-Redirect", proxy.LogoutRedirect)
	respondJSON(w, http.StatusUnauthorized, map[string]string{
		"error":      "Authentication failed",
		"redirectTo": proxy.LogoutRedirect,
	})
}
