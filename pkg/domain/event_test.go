package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/convoy-tracker/pkg/geo"
)

// roundTrip marshals ev, unmarshals it back into a fresh Event, and
// returns the result for comparison — the JSON round-trip property
// named for every Event variant.
func roundTrip(t *testing.T, ev Event) Event {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(data, &got))
	return got
}

func TestEventRoundTripDronePosition(t *testing.T) {
	ev := DronePositionUpdated("R1", geo.New(1, 2, 3), 90, 25)
	got := roundTrip(t, ev)

	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, ev.Kind, got.Kind)
	assert.WithinDuration(t, ev.Timestamp, got.Timestamp, time.Second)
	assert.Equal(t, ev.Payload, got.Payload)
}

func TestEventRoundTripDroneStatus(t *testing.T) {
	ev := DroneStatusChanged("R1", DroneStatusMoving, DroneStatusStandby)
	got := roundTrip(t, ev)
	assert.Equal(t, ev.Payload, got.Payload)
}

func TestEventRoundTripDroneTelemetry(t *testing.T) {
	ev := DroneTelemetryUpdated("R1", NewTelemetry(80, 80, 100, 90, 40, 90, 25, time.Now()))
	got := roundTrip(t, ev)
	assert.Equal(t, ev.Kind, got.Kind)
	telemetry, ok := got.Payload.(DroneTelemetryPayload)
	require.True(t, ok)
	assert.Equal(t, ev.Payload.(DroneTelemetryPayload).DroneID, telemetry.DroneID)
}

func TestEventRoundTripDroneConnection(t *testing.T) {
	ev := DroneConnected("R1")
	got := roundTrip(t, ev)
	assert.Equal(t, ev.Payload, got.Payload)

	ev = DroneDisconnected("R1")
	got = roundTrip(t, ev)
	assert.Equal(t, ev.Payload, got.Payload)
}

func TestEventRoundTripMission(t *testing.T) {
	m := &Mission{ID: "M1", Name: "Convoy Alpha", Status: MissionStatusActive}
	ev := MissionLifecycleEvent(EventMissionStarted, m)
	got := roundTrip(t, ev)
	assert.Equal(t, ev.Payload, got.Payload)
}

func TestEventRoundTripWaypoint(t *testing.T) {
	wp := Waypoint{ID: "W1", Name: "Checkpoint 1", Position: geo.New(4, 5, 6)}
	ev := WaypointReachedEvent("R1", "M1", wp, 2)
	got := roundTrip(t, ev)
	assert.Equal(t, ev.Payload, got.Payload)
}

func TestEventRoundTripCvTracking(t *testing.T) {
	droneID := DroneID("R1")
	ev := CvTrackingUpdate(TrackingID(7), &droneID, geo.New(1, 1, 1), 0.87)
	got := roundTrip(t, ev)
	assert.Equal(t, ev.Payload, got.Payload)
}

func TestEventRoundTripHaloDetected(t *testing.T) {
	ev := HaloDetectedEvent(Detection{CenterX: 1, CenterY: 2, Radius: 3, Confidence: 0.5})
	got := roundTrip(t, ev)
	assert.Equal(t, ev.Payload, got.Payload)
}

func TestEventRoundTripTrackingLost(t *testing.T) {
	ev := TrackingLostEvent(TrackingID(3))
	got := roundTrip(t, ev)
	assert.Equal(t, ev.Payload, got.Payload)
}

func TestEventRoundTripAlert(t *testing.T) {
	ev := AlertRaisedEvent(NewAlert(AlertSeverityWarning, AlertTypeBatteryLow, "low battery", "R1"))
	got := roundTrip(t, ev)
	original := ev.Payload.(AlertPayload).Alert
	final := got.Payload.(AlertPayload).Alert
	assert.Equal(t, original.ID, final.ID)
	assert.Equal(t, original.Severity, final.Severity)
	assert.Equal(t, original.Type, final.Type)
	assert.Equal(t, *original.DroneID, *final.DroneID)
}

func TestEventRoundTripSystem(t *testing.T) {
	ev := SystemEvent("warn", "stale drone detected")
	got := roundTrip(t, ev)
	assert.Equal(t, ev.Payload, got.Payload)
}

func TestEventRoundTripFullState(t *testing.T) {
	drone := NewDrone("R1", "Reaper")
	// A fixed UTC timestamp: time.Now() carries a monotonic reading and a
	// local zone that do not survive a JSON round trip.
	drone.LastUpdate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ev := newEvent(EventSystem, FullStatePayload{
		Drones:          []Drone{drone},
		TrackingResults: []TrackingResult{},
	})
	got := roundTrip(t, ev)
	assert.Equal(t, ev.Payload, got.Payload)
}

func TestEventUnmarshalUnknownPayloadTypeErrors(t *testing.T) {
	raw := `{"id":"e1","timestamp":"2026-01-01T00:00:00Z","event_type":"SYSTEM","payload":{"type":"Bogus","data":{}}}`
	var ev Event
	err := json.Unmarshal([]byte(raw), &ev)
	assert.Error(t, err)
}
