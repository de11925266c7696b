// Package domain contains the typed identifiers, telemetry/position
// records, waypoint/mission records, and event/command envelopes
// shared by every other package in this module.
package domain

import "github.com/google/uuid"

// DroneID is an opaque, caller-assigned drone identifier (e.g. "REAPER-07").
type DroneID string

// WaypointID is an opaque, caller-assigned waypoint identifier.
type WaypointID string

// MissionID is a universally-unique mission identifier.
type MissionID string

// NewMissionID mints a fresh MissionID.
func NewMissionID() MissionID {
	return MissionID(uuid.NewString())
}

// TrackingID is a process-local, monotonically increasing identifier
// assigned by the visual tracker to a track. It is never reused within
// a process lifetime.
type TrackingID uint32

// SubscriberID is a per-connection identifier assigned by the
// subscriber hub on accept.
type SubscriberID string

// NewSubscriberID mints a fresh SubscriberID.
func NewSubscriberID() SubscriberID {
	return SubscriberID(uuid.NewString())
}

// EventID uniquely identifies an emitted event.
type EventID string

// NewEventID mints a fresh EventID.
func NewEventID() EventID {
	return EventID(uuid.NewString())
}

// AlertID uniquely identifies an alert.
type AlertID string

// NewAlertID mints a fresh AlertID.
func NewAlertID() AlertID {
	return AlertID(uuid.NewString())
}
