package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceToSelf(t *testing.T) {
	p := New(34.5553, 69.2075, 0)
	assert.InDelta(t, 0.0, p.DistanceTo(p), 1e-9)
}

func TestDistanceSymmetric(t *testing.T) {
	a := New(34.5553, 69.2075, 0)
	b := New(31.6133, 65.7101, 0)
	d1 := a.DistanceTo(b)
	d2 := b.DistanceTo(a)
	assert.InEpsilon(t, d1, d2, 1e-9)
}

func TestHaversineSanity(t *testing.T) {
	// Scenario 1 from the spec: Kabul-area to Kandahar-area.
	a := New(34.5553, 69.2075, 0)
	b := New(31.6133, 65.7101, 0)
	d := a.DistanceTo(b)
	require.Greater(t, d, 400.0)
	require.Less(t, d, 500.0)
}

func TestDistanceNonNegative(t *testing.T) {
	a := New(10, 10, 0)
	b := New(-10, -10, 0)
	assert.GreaterOrEqual(t, a.DistanceTo(b), 0.0)
}

func TestInterpolateClamps(t *testing.T) {
	a := New(0, 0, 0)
	b := New(10, 10, 100)

	mid := a.Interpolate(b, 0.5)
	assert.InDelta(t, 5.0, mid.Latitude, 1e-9)
	assert.InDelta(t, 5.0, mid.Longitude, 1e-9)
	assert.InDelta(t, 50.0, mid.Altitude, 1e-9)

	below := a.Interpolate(b, -1)
	assert.Equal(t, a, below)

	above := a.Interpolate(b, 2)
	assert.Equal(t, b, above)
}

func TestGeofenceFewVerticesContainsNothing(t *testing.T) {
	fence := Geofence{Name: "line", Vertices: []Position{New(0, 0, 0), New(1, 1, 0)}}
	assert.False(t, fence.Contains(New(0.5, 0.5, 0)))
}

func TestGeofenceSquareContainment(t *testing.T) {
	square := Geofence{
		Name: "square",
		Vertices: []Position{
			New(0, 0, 0), New(0, 10, 0), New(10, 10, 0), New(10, 0, 0),
		},
	}
	assert.True(t, square.Contains(New(5, 5, 0)))
	assert.False(t, square.Contains(New(50, 50, 0)))
}

func TestGeofenceAltitudeCeiling(t *testing.T) {
	ceiling := 100.0
	square := Geofence{
		Vertices:    []Position{New(0, 0, 0), New(0, 10, 0), New(10, 10, 0), New(10, 0, 0)},
		MaxAltitude: &ceiling,
	}
	assert.True(t, square.Contains(New(5, 5, 50)))
	assert.False(t, square.Contains(New(5, 5, 150)))
}

func TestBoundsFromCenterContainsCenter(t *testing.T) {
	center := New(34.5, 69.2, 0)
	b := BoundsFromCenter(center, 5)
	assert.True(t, b.Contains(center))
}

func TestOffsetMetersZeroOffsetIsOrigin(t *testing.T) {
	origin := New(34.5, 69.2, 100)
	result := OffsetMeters(origin, 45, 0, 0)
	assert.InDelta(t, origin.Latitude, result.Latitude, 1e-9)
	assert.InDelta(t, origin.Longitude, result.Longitude, 1e-9)
}
