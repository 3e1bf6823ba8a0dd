package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/ride-relay/internal/relay"
)

// RoomHandler exposes read-only membership statistics.
type RoomHandler struct {
	hub *relay.Hub
}

func NewRoomHandler(hub *relay.Hub) *RoomHandler {
	return &RoomHandler{hub: hub}
}

// Health serves GET /healthz.
func (h *RoomHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": h.hub.Registry().Count(),
	})
}

// ListRooms serves GET /api/v1/rooms.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms := h.hub.Rooms().Rooms()
	c.JSON(http.StatusOK, gin.H{
		"rooms":       rooms,
		"connections": h.hub.Registry().Count(),
	})
}

// GetRoom serves GET /api/v1/rooms/:id. Unknown rooms have no members.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID := c.Param("id")
	c.JSON(http.StatusOK, relay.RoomInfo{
		ID:      roomID,
		Members: h.hub.Rooms().Size(roomID),
	})
}
