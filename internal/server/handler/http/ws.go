package http

import (
	"net/http"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/atinyakov/kidcoin/internal/server/hub"
	"github.com/atinyakov/kidcoin/internal/service"
)

// TokenValidator checks a presented credential and returns its grant.
type TokenValidator interface {
	Validate(token string) (service.Capability, error)
}

// ServeWS returns an HTTP handler that upgrades to websocket. The
// credential travels as a ?token= query param because the browser
// websocket API cannot set headers.
func ServeWS(h *hub.Hub, validator TokenValidator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		capability, err := validator.Validate(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true, // origin policy is enforced at the token endpoint
		})
		if err != nil {
			logger.Warn("websocket accept", zap.Error(err))
			return
		}

		client := hub.NewClient(h, conn, capability, logger)
		h.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
