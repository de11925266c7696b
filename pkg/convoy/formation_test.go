package convoy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/convoy-tracker/pkg/domain"
	"github.com/picogrid/convoy-tracker/pkg/geo"
)

func TestLineFormationOffsets(t *testing.T) {
	m := NewManager()
	m.SetOrder([]domain.DroneID{"F1", "F2", "F3"})
	offsets := m.Offsets()

	assert.Equal(t, 0.0, offsets["F1"].Lateral)
	assert.Equal(t, 50.0, offsets["F1"].Longitudinal)
	assert.Equal(t, 100.0, offsets["F2"].Longitudinal)
	assert.Equal(t, 150.0, offsets["F3"].Longitudinal)
}

func TestVeeFormationAlternatesSides(t *testing.T) {
	m := NewManager()
	m.SetFormation(FormationVee)
	m.SetOrder([]domain.DroneID{"F1", "F2"})
	offsets := m.Offsets()

	assert.Greater(t, offsets["F1"].Lateral, 0.0)
	assert.Less(t, offsets["F2"].Lateral, 0.0)
}

func TestSpreadFormationHasZeroLongitudinalOffset(t *testing.T) {
	m := NewManager()
	m.SetFormation(FormationSpread)
	m.SetOrder([]domain.DroneID{"F1", "F2", "F3", "F4"})
	offsets := m.Offsets()

	for _, o := range offsets {
		assert.Equal(t, 0.0, o.Longitudinal)
	}
}

func TestTargetPositionUnknownFollower(t *testing.T) {
	m := NewManager()
	_, ok := m.TargetPosition("ghost", geo.New(0, 0, 0), 0)
	assert.False(t, ok)
}

func TestIsInPositionWithinTolerance(t *testing.T) {
	m := NewManager()
	m.SetOrder([]domain.DroneID{"F1"})

	leader := geo.New(34.5, 69.2, 0)
	target, ok := m.TargetPosition("F1", leader, 0)
	require.True(t, ok)

	assert.True(t, m.IsInPosition("F1", target, leader, 0, 1.0))
}
