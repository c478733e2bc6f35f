package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"
)

// Handle returns an HTTP handler that upgrades the connection and runs it as
// a hub client until the kiosk disconnects.
func Handle(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // kiosks connect from the venue LAN
		})
		if err != nil {
			hub.logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn)
		client.Run(r.Context())
	}
}
