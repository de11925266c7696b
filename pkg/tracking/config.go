package tracking

// Config parameterizes the tracking engine's thresholds. Every
// numeric tunable lives here rather than as a package-global constant,
// per §9's "configuration as an explicit object, not process globals."
type Config struct {
	BatteryWarningPct  uint8
	BatteryCriticalPct uint8
	FuelWarningPct     uint8
	FuelCriticalPct    uint8

	// WaypointThresholdKm is forwarded to the mission executor.
	WaypointThresholdKm float64

	// PositionHistoryLimit bounds the per-drone position history ring.
	PositionHistoryLimit int

	// AlertChannelCapacity bounds the alert channel; evaluation
	// try-sends and drops on full rather than blocking the hot path.
	AlertChannelCapacity int

	EventBusCapacity int
	EventHistoryLimit int

	// FormationToleranceMeters bounds how far a follower may drift from
	// its convoy-formation target position before a deviation alert is
	// raised. Consulted only while a convoy leader is configured.
	FormationToleranceMeters float64
}

// DefaultConfig returns the thresholds named in §4.F and §9's size
// budget defaults.
func DefaultConfig() Config {
	return Config{
		BatteryWarningPct:     30,
		BatteryCriticalPct:    15,
		FuelWarningPct:        25,
		FuelCriticalPct:       10,
		WaypointThresholdKm:   0.5,
		PositionHistoryLimit:  100,
		AlertChannelCapacity:  256,
		EventBusCapacity:      1024,
		EventHistoryLimit:     1000,
		FormationToleranceMeters: 10,
	}
}
