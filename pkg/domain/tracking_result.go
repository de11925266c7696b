package domain

import "github.com/picogrid/convoy-tracker/pkg/geo"

// TrackingResult is the externally-visible projection of a confirmed
// visual track: its process-local identity, optional drone
// association, and current estimated ground position.
type TrackingResult struct {
	TrackingID TrackingID   `json:"tracking_id"`
	DroneID    *DroneID     `json:"drone_id,omitempty"`
	Position   geo.Position `json:"position"`
	Confidence float64      `json:"confidence"`
	Confirmed  bool         `json:"confirmed"`
}
