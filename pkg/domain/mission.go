package domain

import "time"

// MissionStatus is the lifecycle status of a Mission.
type MissionStatus string

const (
	MissionStatusPlanning MissionStatus = "PLANNING"
	MissionStatusActive   MissionStatus = "ACTIVE"
	MissionStatusPaused   MissionStatus = "PAUSED"
	MissionStatusComplete MissionStatus = "COMPLETED"
	MissionStatusAborted  MissionStatus = "ABORTED"
)

// Mission is an ordered sequence of waypoints assigned to a set of
// drones. Waypoints are ordered (index is significant); assigned
// drones are a set with no duplicates.
type Mission struct {
	ID             MissionID     `json:"id"`
	Name           string        `json:"name"`
	Description    *string       `json:"description,omitempty"`
	Status         MissionStatus `json:"status"`
	Waypoints      []Waypoint    `json:"waypoints"`
	AssignedDrones []DroneID     `json:"assigned_drones"`
	StartTime      *time.Time    `json:"start_time,omitempty"`
	EndTime        *time.Time    `json:"end_time,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	assigned map[DroneID]struct{}
}

// NewMission constructs a mission named name in PLANNING status.
func NewMission(name string) *Mission {
	now := time.Now()
	return &Mission{
		ID:        NewMissionID(),
		Name:      name,
		Status:    MissionStatusPlanning,
		CreatedAt: now,
		UpdatedAt: now,
		assigned:  make(map[DroneID]struct{}),
	}
}

// AddWaypoint appends w to the ordered waypoint sequence.
func (m *Mission) AddWaypoint(w Waypoint) {
	m.Waypoints = append(m.Waypoints, w)
	m.UpdatedAt = time.Now()
}

// AssignDrone adds id to the assigned-drone set, ignoring duplicates.
func (m *Mission) AssignDrone(id DroneID) {
	if m.assigned == nil {
		m.assigned = make(map[DroneID]struct{})
		for _, d := range m.AssignedDrones {
			m.assigned[d] = struct{}{}
		}
	}
	if _, ok := m.assigned[id]; ok {
		return
	}
	m.assigned[id] = struct{}{}
	m.AssignedDrones = append(m.AssignedDrones, id)
	m.UpdatedAt = time.Now()
}

// Start transitions the mission to ACTIVE and records the start time.
func (m *Mission) Start() {
	now := time.Now()
	m.Status = MissionStatusActive
	m.StartTime = &now
	m.UpdatedAt = now
}

// Complete transitions the mission to COMPLETED and records the end time.
func (m *Mission) Complete() {
	now := time.Now()
	m.Status = MissionStatusComplete
	m.EndTime = &now
	m.UpdatedAt = now
}

// TotalDistanceKm sums the haversine distance between consecutive
// waypoints: Σ distance(w[i], w[i+1]).
func (m *Mission) TotalDistanceKm() float64 {
	total := 0.0
	for i := 0; i+1 < len(m.Waypoints); i++ {
		total += m.Waypoints[i].Position.DistanceTo(m.Waypoints[i+1].Position)
	}
	return total
}
