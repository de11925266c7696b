package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/picogrid/convoy-tracker/pkg/geo"
)

// EventType tags the kind of an Event envelope. It marshals to the
// SCREAMING_SNAKE_CASE wire form named in §6.
type EventType string

const (
	EventDronePositionUpdated  EventType = "DRONE_POSITION_UPDATED"
	EventDroneStatusChanged    EventType = "DRONE_STATUS_CHANGED"
	EventDroneTelemetryUpdated EventType = "DRONE_TELEMETRY_UPDATED"
	EventDroneConnected        EventType = "DRONE_CONNECTED"
	EventDroneDisconnected     EventType = "DRONE_DISCONNECTED"
	EventMissionStarted        EventType = "MISSION_STARTED"
	EventMissionPaused         EventType = "MISSION_PAUSED"
	EventMissionAborted        EventType = "MISSION_ABORTED"
	EventMissionCompleted      EventType = "MISSION_COMPLETED"
	EventWaypointReached       EventType = "WAYPOINT_REACHED"
	EventWaypointDeparted      EventType = "WAYPOINT_DEPARTED"
	EventWaypointFlyover       EventType = "WAYPOINT_FLYOVER"
	EventWaypointSkipped       EventType = "WAYPOINT_SKIPPED"
	EventCvTrackingUpdate      EventType = "CV_TRACKING_UPDATE"
	EventHaloDetected          EventType = "HALO_DETECTED"
	EventTrackingLost          EventType = "TRACKING_LOST"
	EventAlertRaised           EventType = "ALERT_RAISED"
	EventAlertAcknowledged     EventType = "ALERT_ACKNOWLEDGED"
	EventAlertResolved         EventType = "ALERT_RESOLVED"
	EventSystem                EventType = "SYSTEM"
)

// WaypointEventType distinguishes the kind of waypoint crossing
// carried by a WaypointPayload.
type WaypointEventType string

const (
	WaypointEventArrived WaypointEventType = "ARRIVED"
	WaypointEventDeparted WaypointEventType = "DEPARTED"
	WaypointEventFlyover  WaypointEventType = "FLYOVER"
	WaypointEventSkipped  WaypointEventType = "SKIPPED"
)

// EventPayload is implemented by every concrete payload variant. The
// string it returns is the internally-tagged "type" discriminator
// used in the wire payload's {"type":…,"data":…} envelope.
type EventPayload interface {
	PayloadType() string
}

// Event is the immutable envelope carried on the event bus and over
// the subscriber transport. Once constructed, an Event's fields are
// never mutated.
type Event struct {
	ID        EventID
	Timestamp time.Time
	Kind      EventType
	Payload   EventPayload
}

type eventWire struct {
	ID        EventID         `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	EventType EventType       `json:"event_type"`
	Payload   payloadWire     `json:"payload"`
}

type payloadWire struct {
	Type string      `json:"type"`
	Data EventPayload `json:"data"`
}

// MarshalJSON renders the envelope in the wire shape documented in §6:
// {"id":…,"timestamp":…,"event_type":"...","payload":{"type":"...","data":{…}}}.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventWire{
		ID:        e.ID,
		Timestamp: e.Timestamp,
		EventType: e.Kind,
		Payload: payloadWire{
			Type: e.Payload.PayloadType(),
			Data: e.Payload,
		},
	})
}

func newEvent(kind EventType, payload EventPayload) Event {
	return Event{ID: NewEventID(), Timestamp: time.Now(), Kind: kind, Payload: payload}
}

// UnmarshalJSON parses the wire shape MarshalJSON produces back into
// an Event, dispatching on the payload's "type" discriminator to the
// concrete EventPayload variant named in the table below.
func (e *Event) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID        EventID   `json:"id"`
		Timestamp time.Time `json:"timestamp"`
		EventType EventType `json:"event_type"`
		Payload   struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	payload, err := unmarshalPayload(wire.Payload.Type, wire.Payload.Data)
	if err != nil {
		return err
	}

	e.ID = wire.ID
	e.Timestamp = wire.Timestamp
	e.Kind = wire.EventType
	e.Payload = payload
	return nil
}

// unmarshalPayloadAs decodes data into a fresh T and returns it boxed
// as an EventPayload.
func unmarshalPayloadAs[T EventPayload](data json.RawMessage) (EventPayload, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// unmarshalPayload dispatches a payload's wire "type" discriminator to
// the concrete EventPayload variant, mirroring the PayloadType table
// MarshalJSON encodes.
func unmarshalPayload(kind string, data json.RawMessage) (EventPayload, error) {
	switch kind {
	case "DronePosition":
		return unmarshalPayloadAs[DronePositionPayload](data)
	case "DroneStatus":
		return unmarshalPayloadAs[DroneStatusPayload](data)
	case "DroneTelemetry":
		return unmarshalPayloadAs[DroneTelemetryPayload](data)
	case "DroneConnection":
		return unmarshalPayloadAs[DroneConnectionPayload](data)
	case "Mission":
		return unmarshalPayloadAs[MissionPayload](data)
	case "Waypoint":
		return unmarshalPayloadAs[WaypointPayload](data)
	case "CvTracking":
		return unmarshalPayloadAs[CvTrackingPayload](data)
	case "HaloDetected":
		return unmarshalPayloadAs[HaloDetectedPayload](data)
	case "TrackingLost":
		return unmarshalPayloadAs[TrackingLostPayload](data)
	case "Alert":
		return unmarshalPayloadAs[AlertPayload](data)
	case "System":
		return unmarshalPayloadAs[SystemPayload](data)
	case "FullState":
		return unmarshalPayloadAs[FullStatePayload](data)
	default:
		return nil, fmt.Errorf("domain: unknown event payload type %q", kind)
	}
}

// DronePositionPayload carries a position-update event's data.
type DronePositionPayload struct {
	DroneID  DroneID      `json:"drone_id"`
	Position geo.Position `json:"position"`
	Heading  float64      `json:"heading"`
	SpeedKmh float64      `json:"speed_kmh"`
}

func (DronePositionPayload) PayloadType() string { return "DronePosition" }

// DronePositionUpdated constructs a drone-position-updated event.
func DronePositionUpdated(id DroneID, pos geo.Position, heading, speed float64) Event {
	return newEvent(EventDronePositionUpdated, DronePositionPayload{DroneID: id, Position: pos, Heading: heading, SpeedKmh: speed})
}

// DroneStatusPayload carries a status-transition event's data.
type DroneStatusPayload struct {
	DroneID      DroneID     `json:"drone_id"`
	Status       DroneStatus `json:"status"`
	PreviousStatus DroneStatus `json:"previous_status"`
}

func (DroneStatusPayload) PayloadType() string { return "DroneStatus" }

// DroneStatusChanged constructs a drone-status-changed event.
func DroneStatusChanged(id DroneID, status, previous DroneStatus) Event {
	return newEvent(EventDroneStatusChanged, DroneStatusPayload{DroneID: id, Status: status, PreviousStatus: previous})
}

// DroneTelemetryPayload carries a telemetry-update event's data.
type DroneTelemetryPayload struct {
	DroneID   DroneID   `json:"drone_id"`
	Telemetry Telemetry `json:"telemetry"`
}

func (DroneTelemetryPayload) PayloadType() string { return "DroneTelemetry" }

// DroneTelemetryUpdated constructs a drone-telemetry-updated event.
func DroneTelemetryUpdated(id DroneID, t Telemetry) Event {
	return newEvent(EventDroneTelemetryUpdated, DroneTelemetryPayload{DroneID: id, Telemetry: t})
}

// DroneConnectionPayload carries a connect/disconnect event's data.
type DroneConnectionPayload struct {
	DroneID   DroneID `json:"drone_id"`
	Connected bool    `json:"connected"`
}

func (DroneConnectionPayload) PayloadType() string { return "DroneConnection" }

// DroneConnected constructs a drone-connected event.
func DroneConnected(id DroneID) Event {
	return newEvent(EventDroneConnected, DroneConnectionPayload{DroneID: id, Connected: true})
}

// DroneDisconnected constructs a drone-disconnected event.
func DroneDisconnected(id DroneID) Event {
	return newEvent(EventDroneDisconnected, DroneConnectionPayload{DroneID: id, Connected: false})
}

// MissionPayload carries a mission-lifecycle event's data.
type MissionPayload struct {
	MissionID MissionID     `json:"mission_id"`
	Name      string        `json:"name"`
	Status    MissionStatus `json:"status"`
}

func (MissionPayload) PayloadType() string { return "Mission" }

// MissionLifecycleEvent constructs the event matching the mission's
// new status (started/paused/aborted/completed); callers pass the
// appropriate EventType constant.
func MissionLifecycleEvent(kind EventType, m *Mission) Event {
	return newEvent(kind, MissionPayload{MissionID: m.ID, Name: m.Name, Status: m.Status})
}

// WaypointPayload carries a waypoint-crossing event's data.
type WaypointPayload struct {
	DroneID      DroneID           `json:"drone_id"`
	MissionID    MissionID         `json:"mission_id"`
	WaypointID   WaypointID        `json:"waypoint_id"`
	WaypointName string            `json:"waypoint_name"`
	Position     geo.Position      `json:"position"`
	Index        int               `json:"index"`
	EventType    WaypointEventType `json:"event_type"`
}

func (WaypointPayload) PayloadType() string { return "Waypoint" }

// WaypointReachedEvent constructs a waypoint-reached event.
func WaypointReachedEvent(droneID DroneID, missionID MissionID, wp Waypoint, index int) Event {
	return newEvent(EventWaypointReached, WaypointPayload{
		DroneID: droneID, MissionID: missionID, WaypointID: wp.ID, WaypointName: wp.Name,
		Position: wp.Position, Index: index, EventType: WaypointEventArrived,
	})
}

// CvTrackingPayload carries a confirmed visual-track update.
type CvTrackingPayload struct {
	TrackingID TrackingID   `json:"tracking_id"`
	DroneID    *DroneID     `json:"drone_id,omitempty"`
	Position   geo.Position `json:"position"`
	Confidence float64      `json:"confidence"`
}

func (CvTrackingPayload) PayloadType() string { return "CvTracking" }

// CvTrackingUpdate constructs a cv-tracking-update event.
func CvTrackingUpdate(trackingID TrackingID, droneID *DroneID, pos geo.Position, confidence float64) Event {
	return newEvent(EventCvTrackingUpdate, CvTrackingPayload{TrackingID: trackingID, DroneID: droneID, Position: pos, Confidence: confidence})
}

// HaloDetectedPayload carries a raw per-frame detection, prior to
// association with any track.
type HaloDetectedPayload struct {
	Detection Detection `json:"detection"`
}

func (HaloDetectedPayload) PayloadType() string { return "HaloDetected" }

// HaloDetectedEvent constructs a halo-detected event.
func HaloDetectedEvent(d Detection) Event {
	return newEvent(EventHaloDetected, HaloDetectedPayload{Detection: d})
}

// TrackingLostPayload carries a track-retirement notice.
type TrackingLostPayload struct {
	TrackingID TrackingID `json:"tracking_id"`
}

func (TrackingLostPayload) PayloadType() string { return "TrackingLost" }

// TrackingLostEvent constructs a tracking-lost event.
func TrackingLostEvent(id TrackingID) Event {
	return newEvent(EventTrackingLost, TrackingLostPayload{TrackingID: id})
}

// AlertPayload carries an alert-lifecycle event's data.
type AlertPayload struct {
	Alert Alert `json:"alert"`
}

func (AlertPayload) PayloadType() string { return "Alert" }

// AlertRaisedEvent constructs an alert-raised event.
func AlertRaisedEvent(a Alert) Event {
	return newEvent(EventAlertRaised, AlertPayload{Alert: a})
}

// AlertAcknowledgedEvent constructs an alert-acknowledged event.
func AlertAcknowledgedEvent(a Alert) Event {
	return newEvent(EventAlertAcknowledged, AlertPayload{Alert: a})
}

// AlertResolvedEvent constructs an alert-resolved event.
func AlertResolvedEvent(a Alert) Event {
	return newEvent(EventAlertResolved, AlertPayload{Alert: a})
}

// SystemPayload carries a free-form system notice.
type SystemPayload struct {
	Message string `json:"message"`
	Level   string `json:"level"`
}

func (SystemPayload) PayloadType() string { return "System" }

// SystemEvent constructs a system event at the given level (e.g.
// "info", "warn").
func SystemEvent(level, message string) Event {
	return newEvent(EventSystem, SystemPayload{Message: message, Level: level})
}

// FullStatePayload is the handshake snapshot sent to a newly connected
// subscriber, per §4.J.
type FullStatePayload struct {
	Drones          []Drone          `json:"drones"`
	Mission         *Mission         `json:"mission,omitempty"`
	TrackingResults []TrackingResult `json:"tracking_results"`
}

func (FullStatePayload) PayloadType() string { return "FullState" }
