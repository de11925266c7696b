package mission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/convoy-tracker/pkg/domain"
	"github.com/picogrid/convoy-tracker/pkg/geo"
)

func buildMission() *domain.Mission {
	m := domain.NewMission("Operation Desert Watch")
	m.AddWaypoint(domain.NewWaypoint("A", "Alpha", 34.50, 69.20))
	m.AddWaypoint(domain.NewWaypoint("B", "Bravo", 34.60, 69.10))
	m.AddWaypoint(domain.NewWaypoint("C", "Charlie", 34.70, 69.00))
	m.AssignDrone("REAPER-01")
	return m
}

func TestWaypointAdvancement(t *testing.T) {
	// Scenario 2 from the spec.
	m := buildMission()
	exec := NewExecutor()
	exec.SetThreshold(1.0)
	exec.SetMission(m)
	exec.Start()

	reached := exec.UpdateDronePosition("REAPER-01", geo.New(34.50, 69.20, 0), 40)
	require.NotNil(t, reached)
	assert.Equal(t, domain.WaypointID("A"), reached.WaypointID)

	progress, _ := exec.GetProgress("REAPER-01")
	assert.Equal(t, 1, progress.CurrentIndex)

	reached = exec.UpdateDronePosition("REAPER-01", geo.New(34.60, 69.10, 0), 40)
	require.NotNil(t, reached)
	assert.Equal(t, domain.WaypointID("B"), reached.WaypointID)
}

func TestUpdateIgnoredWhenMissionNotActive(t *testing.T) {
	m := buildMission()
	exec := NewExecutor()
	exec.SetMission(m)
	// Mission is PLANNING (SetMission doesn't auto-start); never called Start.
	reached := exec.UpdateDronePosition("REAPER-01", geo.New(34.50, 69.20, 0), 40)
	assert.Nil(t, reached)
}

func TestProgressToNextStaysInUnitRange(t *testing.T) {
	m := buildMission()
	exec := NewExecutor()
	exec.SetThreshold(0.01)
	exec.SetMission(m)
	exec.Start()

	// Far from waypoint A — expect some partial progress, no arrival.
	reached := exec.UpdateDronePosition("REAPER-01", geo.New(30.0, 65.0, 0), 40)
	assert.Nil(t, reached)
	progress, _ := exec.GetProgress("REAPER-01")
	assert.GreaterOrEqual(t, progress.ProgressToNext, 0.0)
	assert.LessOrEqual(t, progress.ProgressToNext, 1.0)
}

func TestIsCompleteFalseWithoutMission(t *testing.T) {
	exec := NewExecutor()
	assert.False(t, exec.IsComplete())
}
