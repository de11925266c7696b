package domain

import (
	"time"

	"github.com/picogrid/convoy-tracker/pkg/geo"
)

// WaypointType classifies a waypoint's role within a mission.
type WaypointType string

const (
	WaypointTypeStandard    WaypointType = "STANDARD"
	WaypointTypeOrigin      WaypointType = "ORIGIN"
	WaypointTypeDestination WaypointType = "DESTINATION"
	WaypointTypeCheckpoint  WaypointType = "CHECKPOINT"
	WaypointTypeRally       WaypointType = "RALLY"
	WaypointTypeEmergency   WaypointType = "EMERGENCY"
)

// Waypoint is a single named point along a mission's route.
type Waypoint struct {
	ID               WaypointID   `json:"id"`
	Name             string       `json:"name"`
	Position         geo.Position `json:"position"`
	Type             WaypointType `json:"type"`
	ExpectedArrival  *time.Time   `json:"expected_arrival,omitempty"`
	ActualArrival    *time.Time   `json:"actual_arrival,omitempty"`
	LoiterSeconds    *int         `json:"loiter_seconds,omitempty"`
}

// NewWaypoint constructs a STANDARD waypoint at the given position.
func NewWaypoint(id WaypointID, name string, lat, lng float64) Waypoint {
	return Waypoint{
		ID:       id,
		Name:     name,
		Position: geo.New(lat, lng, 0),
		Type:     WaypointTypeStandard,
	}
}
