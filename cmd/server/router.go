package main

import (
	"github.com/gin-gonic/gin"
	"github.com/thereayou/ride-relay/internal/handlers"
)

type Handlers struct {
	WebSocket *handlers.WebSocketHandler
	Emit      *handlers.EmitHandler
	Rooms     *handlers.RoomHandler
	EmitAuth  gin.HandlerFunc
	ReadAuth  gin.HandlerFunc
}

func APIEndpoints(r *gin.Engine, h Handlers) {
	r.GET("/healthz", h.Rooms.Health)
	r.GET("/ws", h.WebSocket.HandleWebSocket)

	api := r.Group("/api/v1")
	{
		emit := api.Group("", h.EmitAuth)
		emit.POST("/emit", h.Emit.Emit)
		emit.POST("/rides/:rideId/accepted", h.Emit.RideAccepted)
		emit.POST("/rides/:rideId/rejected", h.Emit.RideRejected)

		read := api.Group("", h.ReadAuth)
		read.GET("/rooms", h.Rooms.ListRooms)
		read.GET("/rooms/:id", h.Rooms.GetRoom)
	}
}
