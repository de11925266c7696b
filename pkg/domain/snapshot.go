package domain

import "time"

// TrackerStats summarizes the tracking engine's current state for
// status reporting and the subscriber handshake.
type TrackerStats struct {
	DroneCount     int  `json:"drone_count"`
	ActiveCount    int  `json:"active_count"`
	TrackingCount  int  `json:"tracking_count"`
	MissionActive  bool `json:"mission_active"`
}

// TrackerState is the full point-in-time snapshot assembled for a
// newly connected subscriber's handshake and for status queries.
type TrackerState struct {
	Drones          []Drone          `json:"drones"`
	Mission         *Mission         `json:"mission,omitempty"`
	Tracking        []TrackingResult `json:"tracking_results"`
	Timestamp       time.Time        `json:"timestamp"`
	Stats           TrackerStats     `json:"stats"`
}

// EmptyTrackerState returns a zero-value snapshot, used before the
// engine has registered any drones.
func EmptyTrackerState() TrackerState {
	return TrackerState{
		Drones:    []Drone{},
		Tracking:  []TrackingResult{},
		Timestamp: time.Now(),
	}
}
