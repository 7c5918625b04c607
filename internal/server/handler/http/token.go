// Package http provides the relay's HTTP handlers: credential issuing,
// websocket upgrade, and activity history.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/atinyakov/kidcoin/internal/models"
)

// TokenIssuer defines the credential operations required by the HTTP
// handlers.
type TokenIssuer interface {
	// Issue returns a fresh scoped credential.
	Issue() (models.Credential, error)
}

// TokenHandler serves GET /api/token.
type TokenHandler struct {
	// Service issues the credentials.
	Service TokenIssuer
	// AllowedOrigins restricts which Origin headers may request a
	// credential. Empty allows any origin.
	AllowedOrigins []string
}

// Issue handles credential requests. When an allow-list is configured,
// requests from other origins are rejected; the browser client always
// sends its page origin.
func (h *TokenHandler) Issue(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if len(h.AllowedOrigins) > 0 && !h.originAllowed(origin) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	cred, err := h.Service.Issue()
	if err != nil {
		http.Error(w, "token request failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
	}
	_ = json.NewEncoder(w).Encode(cred)
}

func (h *TokenHandler) originAllowed(origin string) bool {
	for _, allowed := range h.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}
