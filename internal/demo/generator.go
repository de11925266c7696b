// Package demo synthesizes telemetry for a small fleet of simulated
// drones so the server has something to show without a real feed
// connected — the out-of-scope "telemetry simulator" named in §1,
// trimmed down from the teacher's entity-simulation style
// (cmd/drone-swarm/simulation/entities.go's randomized per-tick
// kinematics) to the convoy domain.
package demo

import (
	"math/rand"
	"time"

	"github.com/picogrid/convoy-tracker/pkg/domain"
	"github.com/picogrid/convoy-tracker/pkg/geo"
	"github.com/picogrid/convoy-tracker/pkg/tracking"
)

// simDrone is one generator-owned drone's simulated kinematic state.
type simDrone struct {
	id       domain.DroneID
	callsign string
	position geo.Position
	heading  float64
	speedKmh float64
	battery  float64
	fuel     float64
}

// Generator drives a small fleet of simulated drones forward each
// tick, feeding UpdateDronePosition on the tracking engine exactly as
// a real telemetry producer would.
type Generator struct {
	engine *tracking.Engine
	rng    *rand.Rand
	drones []*simDrone
}

// New constructs a Generator seeding count drones around center.
func New(engine *tracking.Engine, center geo.Position, count int, seed int64) *Generator {
	g := &Generator{engine: engine, rng: rand.New(rand.NewSource(seed))}

	for i := 0; i < count; i++ {
		id := domain.DroneID(randCallsign(i))
		d := &simDrone{
			id:       id,
			callsign: string(id),
			position: jitter(g.rng, center, 2000),
			heading:  g.rng.Float64() * 360,
			speedKmh: 30 + g.rng.Float64()*40,
			battery:  70 + g.rng.Float64()*30,
			fuel:     70 + g.rng.Float64()*30,
		}
		g.drones = append(g.drones, d)
		engine.RegisterDrone(domain.NewDrone(id, d.callsign))
	}
	return g
}

func randCallsign(i int) string {
	return "REAPER-" + itoa2(i + 1)
}

func itoa2(n int) string {
	if n < 10 {
		return "0" + string(rune('0'+n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}

func jitter(rng *rand.Rand, center geo.Position, radiusMeters float64) geo.Position {
	bearing := rng.Float64() * 360
	distanceKm := (rng.Float64() * radiusMeters) / 1000.0
	return center.Destination(bearing, distanceKm)
}

// Tick advances every simulated drone by one step and publishes its
// new position and telemetry through the tracking engine.
func (g *Generator) Tick(dt time.Duration) {
	hours := dt.Hours()
	for _, d := range g.drones {
		d.heading = mod360(d.heading + (g.rng.Float64()-0.5)*10)

		distanceKm := d.speedKmh * hours
		d.position = d.position.Destination(d.heading, distanceKm)

		d.battery -= g.rng.Float64() * 0.05
		d.fuel -= g.rng.Float64() * 0.05
		if d.battery < 0 {
			d.battery = 0
		}
		if d.fuel < 0 {
			d.fuel = 0
		}

		telemetry := domain.NewTelemetry(
			int(d.battery), int(d.fuel), 100, 95,
			d.speedKmh, d.heading, 22.0, time.Now(),
		)
		g.engine.UpdateDronePosition(d.id, d.position, telemetry)
	}
}

func mod360(deg float64) float64 {
	for deg >= 360 {
		deg -= 360
	}
	for deg < 0 {
		deg += 360
	}
	return deg
}

// Run ticks the generator every interval until ctx-like stop fires.
// The caller owns the stop channel so shutdown matches the rest of
// the server's cooperative cancellation.
func (g *Generator) Run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			g.Tick(interval)
		}
	}
}
