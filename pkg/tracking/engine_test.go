package tracking

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/convoy-tracker/pkg/convoy"
	"github.com/picogrid/convoy-tracker/pkg/domain"
	"github.com/picogrid/convoy-tracker/pkg/geo"
	"github.com/picogrid/convoy-tracker/pkg/persistence"
	"github.com/picogrid/convoy-tracker/pkg/vision"
)

func newTestEngine(store persistence.Store) *Engine {
	return New(DefaultConfig(), store, zerolog.Nop())
}

func TestRegisterDroneIdempotent(t *testing.T) {
	rec := &persistence.Recorder{}
	e := newTestEngine(rec)

	e.RegisterDrone(domain.NewDrone("R1", "Reaper"))
	e.RegisterDrone(domain.NewDrone("R1", "Reaper"))

	assert.Equal(t, 1, e.DroneCount())
}

func TestUpdateUnregisteredDroneIsDropped(t *testing.T) {
	e := newTestEngine(nil)
	e.UpdateDronePosition("ghost", geo.New(0, 0, 0), domain.Telemetry{})
	assert.Equal(t, 0, e.DroneCount())
}

func TestUpdatePublishesPositionEvent(t *testing.T) {
	e := newTestEngine(nil)
	e.RegisterDrone(domain.NewDrone("R1", "Reaper"))

	recv, _ := e.Subscribe()
	e.UpdateDronePosition("R1", geo.New(1, 1, 0), domain.NewTelemetry(80, 80, 100, 90, 40, 90, 25, time.Now()))

	select {
	case ev := <-recv.Events():
		assert.Equal(t, domain.EventDronePositionUpdated, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected a position-updated event")
	}
}

func TestLowBatteryRaisesAlert(t *testing.T) {
	e := newTestEngine(nil)
	e.RegisterDrone(domain.NewDrone("R1", "Reaper"))

	e.UpdateDronePosition("R1", geo.New(1, 1, 0), domain.NewTelemetry(5, 80, 100, 90, 40, 90, 25, time.Now()))

	select {
	case a := <-e.Alerts():
		assert.Equal(t, domain.AlertSeverityCritical, a.Severity)
		assert.Equal(t, domain.AlertTypeBatteryLow, a.Type)
	case <-time.After(time.Second):
		t.Fatal("expected a battery alert")
	}
}

func TestHistoryBoundedAtLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PositionHistoryLimit = 3
	e := New(cfg, nil, zerolog.Nop())
	e.RegisterDrone(domain.NewDrone("R1", "Reaper"))

	for i := 0; i < 10; i++ {
		e.UpdateDronePosition("R1", geo.New(float64(i), 0, 0), domain.Telemetry{})
	}

	hist, ok := e.GetHistory("R1")
	require.True(t, ok)
	assert.Len(t, hist, 3)
}

func TestCheckStaleDrones(t *testing.T) {
	e := newTestEngine(nil)
	e.RegisterDrone(domain.NewDrone("R1", "Reaper"))
	e.UpdateDronePosition("R1", geo.New(0, 0, 0), domain.Telemetry{})

	stale := e.CheckStaleDrones(-1 * time.Second)
	assert.Contains(t, stale, domain.DroneID("R1"))
}

func TestHandleCommandWithNoHandlerDoesNotError(t *testing.T) {
	e := newTestEngine(nil)
	err := e.HandleCommand(domain.DroneCommand{DroneID: "R1", Kind: domain.CommandPause})
	assert.NoError(t, err)
}

func TestIngestDetectionsPublishesTrackingEvent(t *testing.T) {
	rec := &persistence.Recorder{}
	e := newTestEngine(rec)

	cfg := vision.Config{
		ProcessNoise:       0.01,
		MeasurementNoise:   0.1,
		IoUThreshold:       0.3,
		MinFramesToConfirm: 1,
		MaxFramesToSkip:    5,
		MaxTracks:          64,
	}
	e.ConfigureVision(cfg, vision.DefaultCameraCalibration())

	recv, _ := e.Subscribe()

	results := e.IngestDetections([]domain.Detection{
		{CenterX: 100, CenterY: 100, Radius: 5, Confidence: 0.9},
	})
	require.Len(t, results, 1)

	select {
	case ev := <-recv.Events():
		assert.Equal(t, domain.EventCvTrackingUpdate, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected a cv-tracking-update event")
	}
}

func TestIngestDetectionsWithoutVisionConfiguredReturnsNil(t *testing.T) {
	e := newTestEngine(nil)
	assert.Nil(t, e.IngestDetections([]domain.Detection{{CenterX: 1, CenterY: 1, Radius: 1}}))
}

func TestFormationDeviationRaisesAlert(t *testing.T) {
	e := newTestEngine(nil)
	e.RegisterDrone(domain.NewDrone("LEAD", "Leader"))
	e.RegisterDrone(domain.NewDrone("R2", "Follower"))

	e.Convoy().SetLeader("LEAD")
	e.Convoy().SetOrder([]domain.DroneID{"R2"})
	e.Convoy().SetFormation(convoy.FormationLine)
	e.Convoy().SetSpacing(50)

	leaderTelemetry := domain.NewTelemetry(80, 80, 100, 90, 0, 0, 25, time.Now())
	e.UpdateDronePosition("LEAD", geo.New(0, 0, 0), leaderTelemetry)

	// The leader's own update raised no alert, since the leader itself
	// is never checked against the formation; now drive the follower far
	// off its target.
	e.UpdateDronePosition("R2", geo.New(5, 5, 0), leaderTelemetry)

	select {
	case a := <-e.Alerts():
		assert.Equal(t, "FORMATION_DEVIATION", a.CustomType)
		assert.Equal(t, domain.AlertSeverityWarning, a.Severity)
	case <-time.After(time.Second):
		t.Fatal("expected a formation deviation alert")
	}
}
