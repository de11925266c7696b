package demo

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/convoy-tracker/pkg/geo"
	"github.com/picogrid/convoy-tracker/pkg/persistence"
	"github.com/picogrid/convoy-tracker/pkg/tracking"
)

func TestGeneratorRegistersRequestedCount(t *testing.T) {
	engine := tracking.New(tracking.DefaultConfig(), persistence.NoopStore{}, zerolog.Nop())
	New(engine, geo.New(34.5, 69.2, 0), 5, 42)
	assert.Equal(t, 5, engine.DroneCount())
}

func TestTickMovesDrones(t *testing.T) {
	engine := tracking.New(tracking.DefaultConfig(), persistence.NoopStore{}, zerolog.Nop())
	gen := New(engine, geo.New(34.5, 69.2, 0), 2, 7)

	before := engine.GetAllDrones()
	require.Len(t, before, 2)

	gen.Tick(time.Second)

	after := engine.GetAllDrones()
	require.Len(t, after, 2)

	for _, d := range before {
		moved, ok := engine.GetDrone(d.ID)
		require.True(t, ok)
		assert.NotEqual(t, d.Position, moved.Position)
	}
}
