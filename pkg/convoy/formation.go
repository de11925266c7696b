// Package convoy implements the formation-offset math described in
// §4.H: per-follower target offsets from a leader pose, for named
// formations.
package convoy

import (
	"math"
	"sync"

	"github.com/picogrid/convoy-tracker/pkg/domain"
	"github.com/picogrid/convoy-tracker/pkg/geo"
)

// Formation names a convoy arrangement kind.
type Formation string

const (
	FormationLine    Formation = "LINE"
	FormationVee     Formation = "VEE"
	FormationDiamond Formation = "DIAMOND"
	FormationEchelon Formation = "ECHELON"
	FormationColumn  Formation = "COLUMN"
	FormationSpread  Formation = "SPREAD"
)

// Offset is a follower's target position relative to its leader,
// expressed in meters along the leader's heading frame.
type Offset struct {
	Lateral      float64
	Longitudinal float64
	Vertical     float64
}

// Manager computes and holds per-follower formation offsets for a
// convoy. It is guarded by a mutex since formation/order/leader may be
// reconfigured concurrently with target-position queries.
type Manager struct {
	mu        sync.RWMutex
	formation Formation
	leader    domain.DroneID
	order     []domain.DroneID
	offsets   map[domain.DroneID]Offset
	spacingM  float64
}

// NewManager constructs a Manager in LINE formation with 50m spacing.
func NewManager() *Manager {
	return &Manager{
		formation: FormationLine,
		offsets:   make(map[domain.DroneID]Offset),
		spacingM:  50.0,
	}
}

// SetFormation changes the formation kind and recalculates offsets.
func (m *Manager) SetFormation(f Formation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.formation = f
	m.recalculate()
}

// SetSpacing changes the inter-follower spacing in meters and
// recalculates offsets.
func (m *Manager) SetSpacing(meters float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spacingM = meters
	m.recalculate()
}

// SetLeader designates the convoy leader.
func (m *Manager) SetLeader(id domain.DroneID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leader = id
}

// Leader returns the currently designated leader, or the zero DroneID
// if none has been set.
func (m *Manager) Leader() domain.DroneID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.leader
}

// SetOrder replaces the ordered follower list (leader excluded) and
// recalculates offsets.
func (m *Manager) SetOrder(order []domain.DroneID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = append([]domain.DroneID(nil), order...)
	m.recalculate()
}

// recalculate implements the per-formation offset formulas in §4.H.
// Caller must hold m.mu.
func (m *Manager) recalculate() {
	m.offsets = make(map[domain.DroneID]Offset, len(m.order))
	n := float64(len(m.order))

	for idx, id := range m.order {
		i := float64(idx + 1)
		var lateral, longitudinal float64

		switch m.formation {
		case FormationLine, FormationColumn:
			lateral, longitudinal = 0, m.spacingM*i

		case FormationVee:
			side := -1.0
			if idx%2 == 0 {
				side = 1.0
			}
			row := math.Floor((i + 1) / 2)
			lateral = side * m.spacingM * row * 0.7
			longitudinal = m.spacingM * row

		case FormationDiamond:
			theta := (i - 1) * math.Pi / 2
			lateral = m.spacingM * math.Sin(theta)
			longitudinal = m.spacingM * math.Cos(theta)

		case FormationEchelon:
			lateral = m.spacingM * i * 0.5
			longitudinal = m.spacingM * i

		case FormationSpread:
			lateral = m.spacingM * (i - n/2)
			longitudinal = 0

		default:
			lateral, longitudinal = 0, m.spacingM*i
		}

		m.offsets[id] = Offset{Lateral: lateral, Longitudinal: longitudinal}
	}
}

// TargetPosition returns follower's target geodetic position given the
// leader's current position and heading, rotating the follower's
// (longitudinal, lateral) offset by the heading and converting meters
// to degrees via the same flat-earth approximation as §4.E.
func (m *Manager) TargetPosition(follower domain.DroneID, leaderPos geo.Position, leaderHeadingDeg float64) (geo.Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	off, ok := m.offsets[follower]
	if !ok {
		return geo.Position{}, false
	}
	return geo.OffsetMeters(leaderPos, leaderHeadingDeg, off.Longitudinal, off.Lateral), true
}

// IsInPosition reports whether follower's actual position is within
// toleranceMeters of its formation target.
func (m *Manager) IsInPosition(follower domain.DroneID, actual geo.Position, leaderPos geo.Position, leaderHeadingDeg, toleranceMeters float64) bool {
	target, ok := m.TargetPosition(follower, leaderPos, leaderHeadingDeg)
	if !ok {
		return false
	}
	return actual.DistanceMeters(target) <= toleranceMeters
}

// Offsets returns a copy of the current follower-to-offset map.
func (m *Manager) Offsets() map[domain.DroneID]Offset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[domain.DroneID]Offset, len(m.offsets))
	for k, v := range m.offsets {
		out[k] = v
	}
	return out
}
