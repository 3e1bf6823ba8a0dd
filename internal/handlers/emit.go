package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/ride-relay/internal/handlers/dto"
	"github.com/thereayou/ride-relay/internal/relay"
)

// RideNotifier is the part of the dispatcher the ride lifecycle endpoints use.
type RideNotifier interface {
	relay.Emitter
	RideAccepted(ride relay.Ride) (int, error)
	RideRejected(ride relay.Ride) (int, error)
}

type EmitHandler struct {
	relay RideNotifier
}

func NewEmitHandler(r RideNotifier) *EmitHandler {
	return &EmitHandler{relay: r}
}

// Emit serves POST /api/v1/emit.
func (h *EmitHandler) Emit(c *gin.Context) {
	var req dto.EmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var payload any
	if len(req.Data) > 0 {
		payload = req.Data
	}

	n, err := h.relay.Emit(req.Event, req.Room, payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, dto.EmitResponse{
		Event:     req.Event,
		Room:      req.Room,
		Delivered: n,
	})
}

// RideAccepted serves POST /api/v1/rides/:rideId/accepted.
func (h *EmitHandler) RideAccepted(c *gin.Context) {
	h.rideDecision(c, relay.EventRideAccepted, h.relay.RideAccepted)
}

// RideRejected serves POST /api/v1/rides/:rideId/rejected.
func (h *EmitHandler) RideRejected(c *gin.Context) {
	h.rideDecision(c, relay.EventRideRejected, h.relay.RideRejected)
}

func (h *EmitHandler) rideDecision(c *gin.Context, event string, notify func(relay.Ride) (int, error)) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
		return
	}

	ride, err := relay.ParseRide(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The body may omit its id; when present it must name the same ride.
	if rideID := c.Param("rideId"); ride.ID != "" && string(ride.ID) != rideID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ride id in body does not match path"})
		return
	}

	n, err := notify(ride)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, relay.ErrMissingRiderID) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, dto.EmitResponse{
		Event:     event,
		Room:      relay.UserRoom(ride.RiderID),
		Delivered: n,
	})
}
