// Package mission implements the mission executor described in §4.G:
// ownership of the active mission, per-drone waypoint progress, and
// waypoint-reached detection.
package mission

import (
	"sync"
	"time"

	"github.com/picogrid/convoy-tracker/pkg/domain"
	"github.com/picogrid/convoy-tracker/pkg/geo"
)

// WaypointProgress tracks one drone's advancement through the active
// mission's waypoint sequence.
type WaypointProgress struct {
	CurrentIndex       int
	ProgressToNext     float64
	WaypointsCompleted []domain.WaypointID
	EstimatedArrival   *time.Time
}

// WaypointReached is returned by UpdateDronePosition when a drone
// crosses its current waypoint's proximity threshold.
type WaypointReached struct {
	DroneID      domain.DroneID
	WaypointID   domain.WaypointID
	WaypointName string
	Waypoint     domain.Waypoint
	Index        int
}

// Executor holds the active mission and per-drone progress. It is
// guarded by an internal mutex since it is written by the tracking
// engine's hot path and read by status queries concurrently — the
// single read/write-protected slot named in §5 and §9.
type Executor struct {
	mu            sync.RWMutex
	activeMission *domain.Mission
	progress      map[domain.DroneID]*WaypointProgress
	startTime     *time.Time
	thresholdKm   float64
}

// NewExecutor constructs an Executor with the default 0.5km proximity
// threshold.
func NewExecutor() *Executor {
	return &Executor{
		progress:    make(map[domain.DroneID]*WaypointProgress),
		thresholdKm: 0.5,
	}
}

// SetMission replaces the active mission and resets per-assigned-drone
// progress to index 0, progress 0.0.
func (e *Executor) SetMission(m *domain.Mission) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.progress = make(map[domain.DroneID]*WaypointProgress, len(m.AssignedDrones))
	for _, id := range m.AssignedDrones {
		e.progress[id] = &WaypointProgress{}
	}
	e.activeMission = m
}

// Start transitions the mission to ACTIVE and records the start time.
func (e *Executor) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activeMission == nil {
		return
	}
	e.activeMission.Start()
	now := time.Now()
	e.startTime = &now
}

// Pause transitions the mission to PAUSED.
func (e *Executor) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activeMission != nil {
		e.activeMission.Status = domain.MissionStatusPaused
		e.activeMission.UpdatedAt = time.Now()
	}
}

// Resume transitions the mission back to ACTIVE.
func (e *Executor) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activeMission != nil {
		e.activeMission.Status = domain.MissionStatusActive
		e.activeMission.UpdatedAt = time.Now()
	}
}

// Abort transitions the mission to ABORTED.
func (e *Executor) Abort() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activeMission != nil {
		e.activeMission.Status = domain.MissionStatusAborted
		e.activeMission.UpdatedAt = time.Now()
	}
}

// Complete transitions the mission to COMPLETED and records the end time.
func (e *Executor) Complete() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activeMission != nil {
		e.activeMission.Complete()
	}
}

// SetThreshold sets the waypoint proximity threshold in kilometers,
// clamped to a minimum of 0.1km.
func (e *Executor) SetThreshold(km float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if km < 0.1 {
		km = 0.1
	}
	e.thresholdKm = km
}

// UpdateDronePosition advances id's waypoint progress given its
// current position and speed (km/h). It returns a WaypointReached
// when the proximity threshold is met; otherwise it mutates progress
// and the estimated arrival time and returns nil. Updates are ignored
// entirely when no mission is active, or the mission is not ACTIVE.
func (e *Executor) UpdateDronePosition(id domain.DroneID, pos geo.Position, speedKmh float64) *WaypointReached {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.activeMission == nil || e.activeMission.Status != domain.MissionStatusActive {
		return nil
	}

	progress, ok := e.progress[id]
	if !ok {
		return nil
	}
	if progress.CurrentIndex >= len(e.activeMission.Waypoints) {
		return nil
	}

	currentWP := e.activeMission.Waypoints[progress.CurrentIndex]
	distanceKm := pos.DistanceTo(currentWP.Position)

	if distanceKm < e.thresholdKm {
		reached := &WaypointReached{
			DroneID:      id,
			WaypointID:   currentWP.ID,
			WaypointName: currentWP.Name,
			Waypoint:     currentWP,
			Index:        progress.CurrentIndex,
		}
		progress.WaypointsCompleted = append(progress.WaypointsCompleted, currentWP.ID)
		progress.CurrentIndex++
		progress.ProgressToNext = 0.0
		return reached
	}

	totalDistance := distanceKm + 1.0
	if progress.CurrentIndex > 0 {
		prevWP := e.activeMission.Waypoints[progress.CurrentIndex-1]
		totalDistance = prevWP.Position.DistanceTo(currentWP.Position)
	}

	ratio := distanceKm / totalDistance
	if ratio > 1.0 {
		ratio = 1.0
	}
	progress.ProgressToNext = 1.0 - ratio

	if speedKmh > 0 {
		hours := distanceKm / speedKmh
		eta := time.Now().Add(time.Duration(hours * float64(time.Hour)))
		progress.EstimatedArrival = &eta
	}

	return nil
}

// GetProgress returns a copy of id's progress, if tracked.
func (e *Executor) GetProgress(id domain.DroneID) (WaypointProgress, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.progress[id]
	if !ok {
		return WaypointProgress{}, false
	}
	return *p, true
}

// GetMission returns a copy of the active mission pointer (the
// pointer itself, since Mission is already the owned record; callers
// must not mutate it).
func (e *Executor) GetMission() *domain.Mission {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.activeMission
}

// IsComplete reports whether every assigned drone has reached the end
// of the waypoint sequence.
func (e *Executor) IsComplete() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.activeMission == nil {
		return false
	}
	for _, p := range e.progress {
		if p.CurrentIndex < len(e.activeMission.Waypoints) {
			return false
		}
	}
	return true
}

// OverallProgress returns the fraction of all assigned drones'
// waypoints completed, in [0,1].
func (e *Executor) OverallProgress() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.activeMission == nil || len(e.activeMission.Waypoints) == 0 {
		return 0.0
	}
	total := len(e.activeMission.Waypoints) * len(e.progress)
	if total == 0 {
		return 0.0
	}
	completed := 0
	for _, p := range e.progress {
		completed += len(p.WaypointsCompleted)
	}
	return float64(completed) / float64(total)
}

// Status returns the active mission's status, if any.
func (e *Executor) Status() (domain.MissionStatus, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.activeMission == nil {
		return "", false
	}
	return e.activeMission.Status, true
}
