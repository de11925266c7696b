// Package metrics exposes the numeric surface described in §4.L:
// gauges, counters, and histograms aggregated over tracking-engine,
// visual-tracker, subscriber-hub, persistence, and API events. It uses
// github.com/prometheus/client_golang, the same exposition format used
// elsewhere in the retrieved pack for production Go services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric named in §4.L, registered against a
// dedicated prometheus.Registry rather than the global default so a
// process can run more than one instance in tests without collisions.
type Registry struct {
	registry *prometheus.Registry

	DroneCount         prometheus.Gauge
	DroneBattery       *prometheus.GaugeVec
	DroneFuel          *prometheus.GaugeVec
	DroneSpeed         *prometheus.GaugeVec
	DroneAltitude      *prometheus.GaugeVec
	MissionActive      prometheus.Gauge
	VisualTracksActive prometheus.Gauge
	SubscriberConns    prometheus.Gauge
	DBConnected        prometheus.Gauge

	WaypointsReached     *prometheus.CounterVec
	VisualFramesTotal    prometheus.Counter
	VisualDetectionsTotal prometheus.Counter
	SubscriberMessagesSent     prometheus.Counter
	SubscriberMessagesReceived prometheus.Counter
	DBQueries   *prometheus.CounterVec
	APIRequests *prometheus.CounterVec

	VisualFrameSeconds prometheus.Histogram
	DBQueryDuration    *prometheus.HistogramVec
	APIRequestDuration *prometheus.HistogramVec
}

const namespace = "convoy"

// New constructs and registers every metric named in §4.L.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,

		DroneCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "drone_count", Help: "Number of tracked drones.",
		}),
		DroneBattery: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "drone_battery_pct", Help: "Per-drone battery percentage.",
		}, []string{"drone_id"}),
		DroneFuel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "drone_fuel_pct", Help: "Per-drone fuel percentage.",
		}, []string{"drone_id"}),
		DroneSpeed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "drone_speed_kmh", Help: "Per-drone ground speed.",
		}, []string{"drone_id"}),
		DroneAltitude: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "drone_altitude_m", Help: "Per-drone altitude.",
		}, []string{"drone_id"}),
		MissionActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "mission_active", Help: "1 if a mission is ACTIVE, else 0.",
		}),
		VisualTracksActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "visual_tracks_active", Help: "Number of confirmed visual tracks.",
		}),
		SubscriberConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "subscriber_connections", Help: "Number of connected subscribers.",
		}),
		DBConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "db_connected", Help: "1 if the persistence backend is reachable, else 0.",
		}),

		WaypointsReached: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "waypoints_reached_total", Help: "Waypoint arrivals per drone and waypoint.",
		}, []string{"drone_id", "waypoint_id"}),
		VisualFramesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "visual_frames_processed_total", Help: "Visual frames processed.",
		}),
		VisualDetectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "visual_detections_total", Help: "Raw detections observed.",
		}),
		SubscriberMessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "subscriber_messages_sent_total", Help: "Frames sent to subscribers.",
		}),
		SubscriberMessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "subscriber_messages_received_total", Help: "Frames received from subscribers.",
		}),
		DBQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "db_queries_total", Help: "Persistence operations per table and op.",
		}, []string{"table", "op"}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "api_requests_total", Help: "HTTP requests per method, path, and status.",
		}, []string{"method", "path", "status"}),

		VisualFrameSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "visual_frame_processing_seconds", Help: "Visual frame processing latency.",
			Buckets: prometheus.DefBuckets,
		}),
		DBQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "db_query_duration_seconds", Help: "Persistence operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"table", "op"}),
		APIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "api_request_duration_seconds", Help: "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	reg.MustRegister(
		r.DroneCount, r.DroneBattery, r.DroneFuel, r.DroneSpeed, r.DroneAltitude,
		r.MissionActive, r.VisualTracksActive, r.SubscriberConns, r.DBConnected,
		r.WaypointsReached, r.VisualFramesTotal, r.VisualDetectionsTotal,
		r.SubscriberMessagesSent, r.SubscriberMessagesReceived, r.DBQueries, r.APIRequests,
		r.VisualFrameSeconds, r.DBQueryDuration, r.APIRequestDuration,
	)
	return r
}

// Handler returns the plain-text exposition endpoint named in §4.L and §6.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
