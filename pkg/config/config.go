// Package config holds the server's ambient configuration: every
// threshold named across §4.F/§4.G/§4.I and the transport/logging
// settings in §5/§6, loaded the way the teacher repo loads its
// simulation config — a nested struct with Validate/GetDefaultConfig —
// generalized from YAML-only to YAML + environment + .env precedence
// via viper and godotenv.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// TrackingConfig holds the tracking engine's alert thresholds and
// bounds, per §4.F.
type TrackingConfig struct {
	BatteryWarningPct  uint8   `mapstructure:"battery_warning_pct"`
	BatteryCriticalPct uint8   `mapstructure:"battery_critical_pct"`
	FuelWarningPct     uint8   `mapstructure:"fuel_warning_pct"`
	FuelCriticalPct    uint8   `mapstructure:"fuel_critical_pct"`
	WaypointThresholdKm float64 `mapstructure:"waypoint_threshold_km"`
	PositionHistoryLimit int   `mapstructure:"position_history_limit"`
	AlertChannelCapacity int   `mapstructure:"alert_channel_capacity"`
}

// VisionConfig holds the visual tracker's association thresholds and
// camera calibration, per §4.D/§4.E. The visual-tracker ingestion path
// is only wired up when Enabled is set.
type VisionConfig struct {
	Enabled            bool    `mapstructure:"enabled"`
	IoUThreshold       float64 `mapstructure:"iou_threshold"`
	MinFramesToConfirm int     `mapstructure:"min_frames_to_confirm"`
	MaxFramesToSkip    int     `mapstructure:"max_frames_to_skip"`
	MaxTracks          int     `mapstructure:"max_tracks"`
	ProcessNoise       float64 `mapstructure:"process_noise"`
	MeasurementNoise   float64 `mapstructure:"measurement_noise"`

	CameraFocalLengthX    float64 `mapstructure:"camera_focal_length_x"`
	CameraFocalLengthY    float64 `mapstructure:"camera_focal_length_y"`
	CameraPrincipalPointX float64 `mapstructure:"camera_principal_point_x"`
	CameraPrincipalPointY float64 `mapstructure:"camera_principal_point_y"`
	CameraAltitude        float64 `mapstructure:"camera_altitude"`
	CameraLatitude        float64 `mapstructure:"camera_latitude"`
	CameraLongitude       float64 `mapstructure:"camera_longitude"`
	CameraHeadingDeg      float64 `mapstructure:"camera_heading_deg"`
}

// ConvoyConfig holds convoy-formation defaults, per §4.H.
type ConvoyConfig struct {
	DefaultFormation string  `mapstructure:"default_formation"`
	SpacingMeters    float64 `mapstructure:"spacing_meters"`
	ToleranceMeters  float64 `mapstructure:"tolerance_meters"`
}

// EventBusConfig holds the event bus's buffering, per §4.I.
type EventBusConfig struct {
	Capacity     int `mapstructure:"capacity"`
	HistoryLimit int `mapstructure:"history_limit"`
}

// ServerConfig holds the subscriber-transport and HTTP surface
// settings, per §6.
type ServerConfig struct {
	WebsocketPort int    `mapstructure:"websocket_port"`
	HTTPPort      int    `mapstructure:"http_port"`
	LogLevel      string `mapstructure:"log_level"`
	StaleDroneTimeout time.Duration `mapstructure:"stale_drone_timeout"`
}

// PersistenceConfig holds the optional persistence backend's settings.
type PersistenceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// Config is the complete top-level server configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Tracking    TrackingConfig    `mapstructure:"tracking"`
	Vision      VisionConfig      `mapstructure:"vision"`
	Convoy      ConvoyConfig      `mapstructure:"convoy"`
	EventBus    EventBusConfig    `mapstructure:"event_bus"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
}

// Default returns the configuration used when no file or environment
// override is present — the thresholds named throughout §4.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			WebsocketPort:     9090,
			HTTPPort:          8080,
			LogLevel:          "info",
			StaleDroneTimeout: 30 * time.Second,
		},
		Tracking: TrackingConfig{
			BatteryWarningPct:     30,
			BatteryCriticalPct:    15,
			FuelWarningPct:        25,
			FuelCriticalPct:       10,
			WaypointThresholdKm:   0.5,
			PositionHistoryLimit:  100,
			AlertChannelCapacity:  256,
		},
		Vision: VisionConfig{
			Enabled:            false,
			IoUThreshold:       0.3,
			MinFramesToConfirm: 3,
			MaxFramesToSkip:    5,
			MaxTracks:          64,
			ProcessNoise:       1.0,
			MeasurementNoise:   4.0,

			CameraFocalLengthX:    1000.0,
			CameraFocalLengthY:    1000.0,
			CameraPrincipalPointX: 640.0,
			CameraPrincipalPointY: 360.0,
			CameraAltitude:        5000.0,
			CameraLatitude:        34.5553,
			CameraLongitude:       69.2075,
			CameraHeadingDeg:      0.0,
		},
		Convoy: ConvoyConfig{
			DefaultFormation: "LINE",
			SpacingMeters:    50.0,
			ToleranceMeters:  10.0,
		},
		EventBus: EventBusConfig{
			Capacity:     1024,
			HistoryLimit: 1000,
		},
		Persistence: PersistenceConfig{
			Enabled: false,
		},
	}
}

// Validate reports whether c's values form a usable configuration.
func (c *Config) Validate() error {
	if c.Server.WebsocketPort <= 0 {
		return fmt.Errorf("server.websocket_port must be positive")
	}
	if c.Server.HTTPPort <= 0 {
		return fmt.Errorf("server.http_port must be positive")
	}
	if c.Tracking.BatteryCriticalPct >= c.Tracking.BatteryWarningPct {
		return fmt.Errorf("tracking.battery_critical_pct must be less than battery_warning_pct")
	}
	if c.Tracking.FuelCriticalPct >= c.Tracking.FuelWarningPct {
		return fmt.Errorf("tracking.fuel_critical_pct must be less than fuel_warning_pct")
	}
	if c.Tracking.WaypointThresholdKm <= 0 {
		return fmt.Errorf("tracking.waypoint_threshold_km must be positive")
	}
	if c.Vision.IoUThreshold < 0 || c.Vision.IoUThreshold > 1 {
		return fmt.Errorf("vision.iou_threshold must be between 0.0 and 1.0")
	}
	if c.EventBus.Capacity <= 0 || c.EventBus.HistoryLimit <= 0 {
		return fmt.Errorf("event_bus capacity and history_limit must be positive")
	}
	return nil
}

// Load reads configuration from path (if non-empty), a .env file in
// the working directory, and CONVOY_-prefixed environment variables,
// in ascending precedence, falling back to Default() for anything
// left unset.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // best-effort; absence of a .env file is not an error

	v := viper.New()
	v.SetEnvPrefix("CONVOY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	bindDefaults(v, def)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// bindDefaults seeds viper with def's values so AutomaticEnv lookups
// and an absent config file still resolve to a complete configuration.
func bindDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("server.websocket_port", def.Server.WebsocketPort)
	v.SetDefault("server.http_port", def.Server.HTTPPort)
	v.SetDefault("server.log_level", def.Server.LogLevel)
	v.SetDefault("server.stale_drone_timeout", def.Server.StaleDroneTimeout)

	v.SetDefault("tracking.battery_warning_pct", def.Tracking.BatteryWarningPct)
	v.SetDefault("tracking.battery_critical_pct", def.Tracking.BatteryCriticalPct)
	v.SetDefault("tracking.fuel_warning_pct", def.Tracking.FuelWarningPct)
	v.SetDefault("tracking.fuel_critical_pct", def.Tracking.FuelCriticalPct)
	v.SetDefault("tracking.waypoint_threshold_km", def.Tracking.WaypointThresholdKm)
	v.SetDefault("tracking.position_history_limit", def.Tracking.PositionHistoryLimit)
	v.SetDefault("tracking.alert_channel_capacity", def.Tracking.AlertChannelCapacity)

	v.SetDefault("vision.enabled", def.Vision.Enabled)
	v.SetDefault("vision.iou_threshold", def.Vision.IoUThreshold)
	v.SetDefault("vision.min_frames_to_confirm", def.Vision.MinFramesToConfirm)
	v.SetDefault("vision.max_frames_to_skip", def.Vision.MaxFramesToSkip)
	v.SetDefault("vision.max_tracks", def.Vision.MaxTracks)
	v.SetDefault("vision.process_noise", def.Vision.ProcessNoise)
	v.SetDefault("vision.measurement_noise", def.Vision.MeasurementNoise)
	v.SetDefault("vision.camera_focal_length_x", def.Vision.CameraFocalLengthX)
	v.SetDefault("vision.camera_focal_length_y", def.Vision.CameraFocalLengthY)
	v.SetDefault("vision.camera_principal_point_x", def.Vision.CameraPrincipalPointX)
	v.SetDefault("vision.camera_principal_point_y", def.Vision.CameraPrincipalPointY)
	v.SetDefault("vision.camera_altitude", def.Vision.CameraAltitude)
	v.SetDefault("vision.camera_latitude", def.Vision.CameraLatitude)
	v.SetDefault("vision.camera_longitude", def.Vision.CameraLongitude)
	v.SetDefault("vision.camera_heading_deg", def.Vision.CameraHeadingDeg)

	v.SetDefault("convoy.default_formation", def.Convoy.DefaultFormation)
	v.SetDefault("convoy.spacing_meters", def.Convoy.SpacingMeters)
	v.SetDefault("convoy.tolerance_meters", def.Convoy.ToleranceMeters)

	v.SetDefault("event_bus.capacity", def.EventBus.Capacity)
	v.SetDefault("event_bus.history_limit", def.EventBus.HistoryLimit)

	v.SetDefault("persistence.enabled", def.Persistence.Enabled)
	v.SetDefault("persistence.dsn", def.Persistence.DSN)
}
