// Package tracking implements the tracking engine described in §4.F:
// the hot path that ingests telemetry, maintains per-drone state,
// consults the mission executor for waypoint progress, derives
// alerts, and publishes events — the Go realization of the source's
// drone-tracker crate's DroneTracker.
package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/picogrid/convoy-tracker/pkg/concurrent"
	"github.com/picogrid/convoy-tracker/pkg/convoy"
	"github.com/picogrid/convoy-tracker/pkg/domain"
	"github.com/picogrid/convoy-tracker/pkg/eventbus"
	"github.com/picogrid/convoy-tracker/pkg/geo"
	"github.com/picogrid/convoy-tracker/pkg/metrics"
	"github.com/picogrid/convoy-tracker/pkg/mission"
	"github.com/picogrid/convoy-tracker/pkg/persistence"
	"github.com/picogrid/convoy-tracker/pkg/vision"
)

// droneState is the engine-internal record for one tracked drone: the
// public Drone plus its bounded position history.
type droneState struct {
	drone   domain.Drone
	history []geo.Position
}

// Engine is the tracking engine. The drone collection is a sharded
// concurrent map (§9); the active mission is owned by an internal
// Executor with its own locking. The latest vision tracking results
// are guarded by trackingMu.
type Engine struct {
	cfg    Config
	drones *concurrent.DroneMap[droneState]
	mission *mission.Executor
	convoy  *convoy.Manager
	vision  *vision.Engine

	bus     *eventbus.Bus
	store   persistence.Store
	log     zerolog.Logger
	metrics *metrics.Registry

	alerts  chan domain.Alert
	handler domain.CommandHandler

	trackingMu     sync.RWMutex
	latestTracking []domain.TrackingResult

	startedAt time.Time
	running   bool
}

// New constructs an Engine with cfg's thresholds, store as its
// persistence backend, and log as its base logger.
func New(cfg Config, store persistence.Store, log zerolog.Logger) *Engine {
	if store == nil {
		store = persistence.NoopStore{}
	}
	exec := mission.NewExecutor()
	exec.SetThreshold(cfg.WaypointThresholdKm)

	return &Engine{
		cfg:     cfg,
		drones:  concurrent.NewDroneMap[droneState](),
		mission: exec,
		convoy:  convoy.NewManager(),
		bus:     eventbus.New(cfg.EventBusCapacity, cfg.EventHistoryLimit),
		store:   store,
		log:     log.With().Str("component", "tracking").Logger(),
		alerts:  make(chan domain.Alert, cfg.AlertChannelCapacity),
	}
}

// Convoy exposes the underlying formation manager so callers can set a
// leader, order, formation kind, and spacing before drones start
// reporting positions.
func (e *Engine) Convoy() *convoy.Manager { return e.convoy }

// SetMetrics attaches the §4.L metrics registry the engine updates as
// it processes telemetry and visual detections. A nil or never-set
// registry leaves the engine fully functional; every update site below
// guards on e.metrics being non-nil.
func (e *Engine) SetMetrics(reg *metrics.Registry) { e.metrics = reg }

// ConfigureVision installs a visual tracker on the engine, enabling
// IngestDetections. Visual tracking is the alternate input path
// described in §2's data flow (detections → tracks → events feeding
// the same bus) and is disabled by default.
func (e *Engine) ConfigureVision(cfg vision.Config, cal vision.CameraCalibration) {
	e.vision = vision.NewEngine(cfg, cal)
}

// IngestDetections runs one visual-tracker frame and publishes a
// cv-tracking-update event for every confirmed track, per the
// alternate visual-tracking input path in §2. Per §5, the associator
// is owned exclusively by whichever goroutine calls IngestDetections —
// callers must serialize their own calls (a single ingest loop, never
// concurrent ones). A no-op if ConfigureVision was never called.
func (e *Engine) IngestDetections(detections []domain.Detection) []domain.TrackingResult {
	if e.vision == nil {
		return nil
	}

	start := time.Now()
	results := e.vision.ProcessFrame(detections)

	if e.metrics != nil {
		e.metrics.VisualFramesTotal.Inc()
		e.metrics.VisualFrameSeconds.Observe(time.Since(start).Seconds())
		e.metrics.VisualDetectionsTotal.Add(float64(len(detections)))
		e.metrics.VisualTracksActive.Set(float64(len(results)))
	}

	for _, r := range results {
		e.bus.Publish(domain.CvTrackingUpdate(r.TrackingID, r.DroneID, r.Position, r.Confidence))
		if err := e.store.AppendTrackingResult(context.Background(), r); err != nil {
			e.log.Warn().Err(err).Msg("persist append-tracking-result failed")
		}
	}

	e.trackingMu.Lock()
	e.latestTracking = results
	e.trackingMu.Unlock()

	return results
}

// LatestTrackingResults returns the visual tracker's most recent
// confirmed tracks, or nil if ConfigureVision/IngestDetections has
// never run. Used to populate a subscriber's handshake snapshot.
func (e *Engine) LatestTrackingResults() []domain.TrackingResult {
	e.trackingMu.RLock()
	defer e.trackingMu.RUnlock()
	return e.latestTracking
}

// Start marks the engine running and records the start time.
func (e *Engine) Start() {
	e.startedAt = time.Now()
	e.running = true
	e.log.Info().Msg("tracking engine started")
}

// Stop marks the engine stopped. Already-published events and
// in-flight persistence writes are not cancelled.
func (e *Engine) Stop() {
	e.running = false
	e.log.Info().Msg("tracking engine stopped")
}

// RegisterDrone inserts drone into the drone map if its id is absent.
// Registration is idempotent: re-registering an existing id is a no-op.
func (e *Engine) RegisterDrone(drone domain.Drone) {
	if e.drones.SetIfAbsent(string(drone.ID), droneState{drone: drone}) {
		e.bus.Publish(domain.DroneConnected(drone.ID))
		if e.metrics != nil {
			e.metrics.DroneCount.Set(float64(e.DroneCount()))
		}
		if err := e.store.RegisterDrone(context.Background(), drone); err != nil {
			e.log.Warn().Err(err).Str("drone_id", string(drone.ID)).Msg("persist register-drone failed")
		}
	}
}

// SetMission replaces the active mission and resets per-drone waypoint
// progress, per §4.F.
func (e *Engine) SetMission(m *domain.Mission) {
	e.mission.SetMission(m)
	if e.metrics != nil {
		active := 0.0
		if m != nil && m.Status == domain.MissionStatusActive {
			active = 1.0
		}
		e.metrics.MissionActive.Set(active)
	}
	if err := e.store.CreateMission(context.Background(), m); err != nil {
		e.log.Warn().Err(err).Msg("persist create-mission failed")
	}
}

// UpdateDronePosition is the hot path described in §4.F. It looks up
// the tracked drone, replaces position and telemetry, appends to the
// bounded history, consults the mission executor, evaluates alert
// predicates, publishes a position-updated event, and best-effort
// enqueues a persistence write. An update for an unregistered drone is
// silently dropped — absence is not an error.
func (e *Engine) UpdateDronePosition(id domain.DroneID, pos geo.Position, telemetry domain.Telemetry) {
	var reached *mission.WaypointReached
	var alerts []domain.Alert

	found := e.drones.Update(string(id), func(st droneState) droneState {
		st.drone.Position = pos
		st.drone.Telemetry = telemetry
		st.drone.LastUpdate = time.Now()

		st.history = append(st.history, pos)
		if len(st.history) > e.cfg.PositionHistoryLimit {
			st.history = st.history[len(st.history)-e.cfg.PositionHistoryLimit:]
		}

		alerts = e.evaluateAlerts(id, telemetry)
		return st
	})
	if !found {
		return
	}

	if e.metrics != nil {
		e.metrics.DroneBattery.WithLabelValues(string(id)).Set(float64(telemetry.BatteryPct))
		e.metrics.DroneFuel.WithLabelValues(string(id)).Set(float64(telemetry.FuelPct))
		e.metrics.DroneSpeed.WithLabelValues(string(id)).Set(telemetry.SpeedKmh)
		e.metrics.DroneAltitude.WithLabelValues(string(id)).Set(pos.Altitude)
	}

	if status, ok := e.mission.Status(); ok && status == domain.MissionStatusActive {
		reached = e.mission.UpdateDronePosition(id, pos, telemetry.SpeedKmh)
	}

	if a := e.evaluateFormationDeviation(id, pos); a != nil {
		alerts = append(alerts, *a)
	}

	for _, a := range alerts {
		select {
		case e.alerts <- a:
			e.bus.Publish(domain.AlertRaisedEvent(a))
			if err := e.store.InsertAlert(context.Background(), a); err != nil {
				e.log.Warn().Err(err).Msg("persist insert-alert failed")
			}
		default:
			e.log.Warn().Str("drone_id", string(id)).Msg("alert channel full, dropping alert")
		}
	}

	if reached != nil {
		m := e.mission.GetMission()
		if m != nil {
			if e.metrics != nil {
				e.metrics.WaypointsReached.WithLabelValues(string(id), string(reached.WaypointID)).Inc()
			}
			e.bus.Publish(domain.WaypointReachedEvent(id, m.ID, reached.Waypoint, reached.Index))
			if err := e.store.RecordWaypointArrival(context.Background(), persistence.WaypointArrival{
				MissionID:  m.ID,
				DroneID:    id,
				WaypointID: reached.WaypointID,
				Position:   pos,
				SpeedKmh:   telemetry.SpeedKmh,
				AltitudeM:  pos.Altitude,
				HeadingDeg: telemetry.HeadingDeg,
			}); err != nil {
				e.log.Warn().Err(err).Msg("persist waypoint-arrival failed")
			}
		}
	}

	e.bus.Publish(domain.DronePositionUpdated(id, pos, telemetry.HeadingDeg, telemetry.SpeedKmh))

	var missionID *domain.MissionID
	if m := e.mission.GetMission(); m != nil {
		missionID = &m.ID
	}
	if err := e.store.AppendTelemetry(context.Background(), persistence.TelemetrySample{
		DroneID: id, Position: pos, Telemetry: telemetry, MissionID: missionID,
	}); err != nil {
		e.log.Warn().Err(err).Str("drone_id", string(id)).Msg("persist append-telemetry failed")
	}
}

// evaluateAlerts implements the level-triggered predicates in §4.F.
func (e *Engine) evaluateAlerts(id domain.DroneID, t domain.Telemetry) []domain.Alert {
	var out []domain.Alert

	switch {
	case t.BatteryPct < e.cfg.BatteryCriticalPct:
		out = append(out, domain.NewAlert(domain.AlertSeverityCritical, domain.AlertTypeBatteryLow, "battery critical", id))
	case t.BatteryPct < e.cfg.BatteryWarningPct:
		out = append(out, domain.NewAlert(domain.AlertSeverityWarning, domain.AlertTypeBatteryLow, "battery low", id))
	}

	switch {
	case t.FuelPct < e.cfg.FuelCriticalPct:
		out = append(out, domain.NewAlert(domain.AlertSeverityCritical, domain.AlertTypeFuelLow, "fuel critical", id))
	case t.FuelPct < e.cfg.FuelWarningPct:
		out = append(out, domain.NewAlert(domain.AlertSeverityWarning, domain.AlertTypeFuelLow, "fuel low", id))
	}

	return out
}

// evaluateFormationDeviation consults the convoy formation manager
// (§4.H) for drones other than the designated leader, raising a
// warning alert when a follower drifts beyond the configured tolerance
// from its formation target. Returns nil when no convoy is configured,
// id is the leader, or id is not a designated follower.
func (e *Engine) evaluateFormationDeviation(id domain.DroneID, pos geo.Position) *domain.Alert {
	leaderID := e.convoy.Leader()
	if leaderID == "" || leaderID == id {
		return nil
	}

	leaderSt, ok := e.drones.Get(string(leaderID))
	if !ok {
		return nil
	}

	target, ok := e.convoy.TargetPosition(id, leaderSt.drone.Position, leaderSt.drone.Telemetry.HeadingDeg)
	if !ok {
		return nil
	}
	if pos.DistanceMeters(target) <= e.cfg.FormationToleranceMeters {
		return nil
	}

	alert := domain.NewAlert(domain.AlertSeverityWarning, domain.AlertTypeCustom, "drone out of formation", id)
	alert.CustomType = "FORMATION_DEVIATION"
	return &alert
}

// GetDrone returns a copy of drone id's current record, if tracked.
func (e *Engine) GetDrone(id domain.DroneID) (domain.Drone, bool) {
	st, ok := e.drones.Get(string(id))
	if !ok {
		return domain.Drone{}, false
	}
	return st.drone.Clone(), true
}

// GetAllDrones returns a snapshot of every tracked drone.
func (e *Engine) GetAllDrones() []domain.Drone {
	states := e.drones.Values()
	out := make([]domain.Drone, 0, len(states))
	for _, st := range states {
		out = append(out, st.drone.Clone())
	}
	return out
}

// GetHistory returns a copy of drone id's bounded position history.
func (e *Engine) GetHistory(id domain.DroneID) ([]geo.Position, bool) {
	st, ok := e.drones.Get(string(id))
	if !ok {
		return nil, false
	}
	out := make([]geo.Position, len(st.history))
	copy(out, st.history)
	return out, true
}

// DroneCount returns the number of tracked drones.
func (e *Engine) DroneCount() int { return e.drones.Len() }

// Subscribe registers a new event-bus subscriber.
func (e *Engine) Subscribe() (*eventbus.Receiver, uint64) { return e.bus.Subscribe() }

// Unsubscribe releases a subscriber previously returned by Subscribe.
func (e *Engine) Unsubscribe(id uint64) { e.bus.Unsubscribe(id) }

// Bus exposes the underlying event bus, e.g. for the subscriber hub's
// handshake snapshot and the metrics surface.
func (e *Engine) Bus() *eventbus.Bus { return e.bus }

// Alerts exposes the read side of the alert channel.
func (e *Engine) Alerts() <-chan domain.Alert { return e.alerts }

// Mission exposes the underlying mission executor, e.g. for convoy
// formation or status-reporting callers.
func (e *Engine) Mission() *mission.Executor { return e.mission }

// SetCommandHandler registers the handler invoked for inbound
// DroneCommand messages forwarded by the subscriber hub.
func (e *Engine) SetCommandHandler(h domain.CommandHandler) { e.handler = h }

// HandleCommand implements domain.CommandHandler, dispatching to the
// registered handler if one is set; otherwise the command is dropped
// with a warning, per §4.J.
func (e *Engine) HandleCommand(cmd domain.DroneCommand) error {
	if e.handler == nil {
		e.log.Warn().Str("drone_id", string(cmd.DroneID)).Str("command", string(cmd.Kind)).Msg("no command handler registered, dropping")
		return nil
	}
	return e.handler.HandleCommand(cmd)
}

// CheckStaleDrones returns the ids of every drone whose last update is
// older than timeout.
func (e *Engine) CheckStaleDrones(timeout time.Duration) []domain.DroneID {
	now := time.Now()
	var stale []domain.DroneID
	e.drones.Each(func(key string, st droneState) {
		if now.Sub(st.drone.LastUpdate) > timeout {
			stale = append(stale, domain.DroneID(key))
		}
	})
	return stale
}

// Snapshot assembles a full point-in-time TrackerState, for the
// subscriber handshake and status queries.
func (e *Engine) Snapshot(tracking []domain.TrackingResult) domain.TrackerState {
	drones := e.GetAllDrones()
	m := e.mission.GetMission()

	activeCount := 0
	for _, d := range drones {
		if d.Status != domain.DroneStatusOffline {
			activeCount++
		}
	}

	return domain.TrackerState{
		Drones:   drones,
		Mission:  m,
		Tracking: tracking,
		Timestamp: time.Now(),
		Stats: domain.TrackerStats{
			DroneCount:    len(drones),
			ActiveCount:   activeCount,
			TrackingCount: len(tracking),
			MissionActive: m != nil && m.Status == domain.MissionStatusActive,
		},
	}
}
