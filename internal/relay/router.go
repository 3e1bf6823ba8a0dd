package relay

import "strings"

const (
	vehicleRoomPrefix = "vehicle:"
	rideRoomPrefix    = "ride:"
)

// UserRoom is the room a client joins when it declares its user id.
func UserRoom(userID ID) string {
	return string(userID)
}

// VehicleRoom groups drivers by vehicle type. The type is trimmed and
// lower-cased so " Bike " and "bike" share a room.
func VehicleRoom(vehicleType ID) string {
	return vehicleRoomPrefix + strings.ToLower(strings.TrimSpace(string(vehicleType)))
}

// RideRoom returns the room of a ride. ok is false when rideID is empty.
func RideRoom(rideID ID) (room string, ok bool) {
	if rideID == "" {
		return "", false
	}
	return rideRoomPrefix + string(rideID), true
}
