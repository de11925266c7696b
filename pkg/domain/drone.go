package domain

import (
	"time"

	"github.com/picogrid/convoy-tracker/pkg/geo"
)

// DroneStatus is the lifecycle status of a tracked drone.
type DroneStatus string

const (
	DroneStatusStandby     DroneStatus = "STANDBY"
	DroneStatusMoving      DroneStatus = "MOVING"
	DroneStatusEngaged     DroneStatus = "ENGAGED"
	DroneStatusRTB         DroneStatus = "RTB"
	DroneStatusOffline     DroneStatus = "OFFLINE"
	DroneStatusMaintenance DroneStatus = "MAINTENANCE"
)

// Drone is the authoritative record for a single tracked airframe.
// Drone records are owned by the tracking engine for the lifetime of
// the process; callers outside the engine only ever see copies.
type Drone struct {
	ID                  DroneID       `json:"id"`
	Callsign            string        `json:"callsign"`
	Type                string        `json:"type"`
	Position            geo.Position  `json:"position"`
	Telemetry           Telemetry     `json:"telemetry"`
	Status              DroneStatus   `json:"status"`
	CurrentWaypointIndex int          `json:"current_waypoint_index"`
	MissionID           *MissionID    `json:"mission_id,omitempty"`
	Armed               bool          `json:"armed"`
	LastUpdate          time.Time     `json:"last_update"`
}

// NewDrone constructs a Drone in STANDBY status at the zero position.
func NewDrone(id DroneID, callsign string) Drone {
	return Drone{
		ID:         id,
		Callsign:   callsign,
		Type:       "UAV",
		Status:     DroneStatusStandby,
		LastUpdate: time.Now(),
	}
}

// Clone returns a value copy of d. Drone is already composed solely of
// value types, so a plain copy suffices — this exists to make the
// "snapshots are by-value copies" discipline from §9 explicit at call
// sites that hand a Drone to a reader outside the owning engine.
func (d Drone) Clone() Drone { return d }
