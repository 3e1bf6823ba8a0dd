package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/thereayou/ride-relay/internal/relay"
)

// WebSocketHandler upgrades clients and attaches them to the hub.
type WebSocketHandler struct {
	hub      *relay.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a handler; originAllowed decides which
// browser origins may connect.
func NewWebSocketHandler(hub *relay.Hub, originAllowed func(string) bool) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(r.Header.Get("Origin"))
			},
		},
	}
}

// HandleWebSocket serves GET /ws.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[ws] WebSocket upgrade failed: %v", err)
		return
	}

	client := relay.NewClient(h.hub, conn)
	h.hub.Connect(client)

	go client.WritePump()
	go client.ReadPump()
}
