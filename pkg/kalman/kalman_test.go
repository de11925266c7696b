package kalman

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUninitializedPredictReturnsOrigin(t *testing.T) {
	f := New(0.01, 0.1)
	x, y := f.Predict()
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 0.0, y)
	assert.False(t, f.IsInitialized())
}

func TestFirstUpdateInitializes(t *testing.T) {
	f := New(0.01, 0.1)
	x, y := f.Update(10, 20)
	assert.Equal(t, 10.0, x)
	assert.Equal(t, 20.0, y)
	assert.True(t, f.IsInitialized())
	assert.Equal(t, uint64(1), f.UpdateCount())
}

// TestConvergesToStationaryMeasurement exercises the invariant in §8:
// with noise-free repeated identical measurements, state converges to
// the measurement and velocity converges to zero.
func TestConvergesToStationaryMeasurement(t *testing.T) {
	f := New(0.0, 0.01)
	f.Update(100, 100)
	for i := 0; i < 50; i++ {
		f.Update(100, 100)
	}

	x, y := f.Position()
	assert.InDelta(t, 100.0, x, 0.5)
	assert.InDelta(t, 100.0, y, 0.5)

	vx, vy := f.Velocity()
	assert.InDelta(t, 0.0, vx, 0.5)
	assert.InDelta(t, 0.0, vy, 0.5)
}

func TestPredictAdvancesByVelocity(t *testing.T) {
	f := New(0.01, 0.1)
	f.Update(0, 0)
	f.Update(1, 0)
	f.Update(2, 0)

	px, _ := f.Predict()
	assert.Greater(t, px, 2.0)
}
