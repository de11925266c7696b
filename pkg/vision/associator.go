package vision

import (
	"math"
	"sort"

	"github.com/picogrid/convoy-tracker/pkg/domain"
	"github.com/picogrid/convoy-tracker/pkg/kalman"
)

// Config holds every tunable threshold for the detection-to-track
// associator, per §9's config-object-parameterization requirement.
type Config struct {
	ProcessNoise       float64
	MeasurementNoise   float64
	IoUThreshold       float64
	MinFramesToConfirm int
	MaxFramesToSkip    int
	MaxTracks          int
}

// DefaultConfig returns reasonable defaults for a 30fps visual feed.
func DefaultConfig() Config {
	return Config{
		ProcessNoise:       0.01,
		MeasurementNoise:   0.1,
		IoUThreshold:       0.3,
		MinFramesToConfirm: 3,
		MaxFramesToSkip:    10,
		MaxTracks:          64,
	}
}

type track struct {
	id                     domain.TrackingID
	kalman                 *kalman.Filter
	lastDetection          domain.Detection
	framesSinceDetection   int
	consecutiveDetections  int
	confidence             float64
	confirmed              bool
	droneID                *domain.DroneID
}

// Associator is the per-frame greedy detection-to-track assignment
// engine described in §4.D. It is owned exclusively by the visual
// tracker's goroutine — per §5, nothing else touches its tracks or
// Kalman filters concurrently, so it carries no internal lock.
type Associator struct {
	cfg        Config
	tracks     map[domain.TrackingID]*track
	nextID     uint32
	frameCount uint64
}

// NewAssociator constructs an Associator with the given configuration.
func NewAssociator(cfg Config) *Associator {
	return &Associator{
		cfg:    cfg,
		tracks: make(map[domain.TrackingID]*track),
		nextID: 1,
	}
}

// ActiveTrack is a confirmed track's externally-visible state,
// expressed in pixel space. Geodetic projection is the responsibility
// of a wrapping Engine, not the associator itself — mirroring the
// source's separation between the tracker (pixel space) and
// project_to_geo (applied by the outer CV engine).
type ActiveTrack struct {
	TrackingID domain.TrackingID
	DroneID    *domain.DroneID
	PixelX     float64
	PixelY     float64
	Confidence float64
	Confirmed  bool
}

// Update runs one frame of the associator's pipeline: predict every
// track, build the circle-IoU cost matrix, greedily assign, update
// matched tracks, spawn new tracks for unmatched detections, retire
// stale tracks, and return only confirmed tracks.
func (a *Associator) Update(detections []domain.Detection) []ActiveTrack {
	a.frameCount++

	ids := a.sortedTrackIDs()
	for _, id := range ids {
		a.tracks[id].kalman.Predict()
	}

	assignments, unmatchedTracks, unmatchedDetections := a.associate(ids, detections)

	for trackIdx, detIdx := range assignments {
		id := ids[trackIdx]
		a.updateMatchedTrack(a.tracks[id], detections[detIdx])
	}

	for _, trackIdx := range unmatchedTracks {
		id := ids[trackIdx]
		t := a.tracks[id]
		t.framesSinceDetection++
		t.consecutiveDetections = 0
	}

	for _, detIdx := range unmatchedDetections {
		if len(a.tracks) >= a.cfg.MaxTracks {
			break
		}
		a.createTrack(detections[detIdx])
	}

	for id, t := range a.tracks {
		if t.framesSinceDetection >= a.cfg.MaxFramesToSkip {
			delete(a.tracks, id)
		}
	}

	return a.confirmedResults()
}

func (a *Associator) sortedTrackIDs() []domain.TrackingID {
	ids := make([]domain.TrackingID, 0, len(a.tracks))
	for id := range a.tracks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// associate implements the greedy cost-matrix assignment in §4.D,
// scanning tracks and detections in ascending index order so that
// ties break deterministically toward the lower track index then the
// lower detection index — the fixed tie-break resolving the open
// question in §9 (the source's HashMap-iteration-order-dependent
// greedy loop).
func (a *Associator) associate(ids []domain.TrackingID, detections []domain.Detection) (assignments map[int]int, unmatchedTracks, unmatchedDetections []int) {
	numTracks := len(ids)
	numDetections := len(detections)

	cost := make([][]float64, numTracks)
	for i, id := range ids {
		t := a.tracks[id]
		px, py := t.kalman.Position()
		radius := t.lastDetection.Radius
		cost[i] = make([]float64, numDetections)
		for j, d := range detections {
			iou := circleIoU(px, py, radius, d.CenterX, d.CenterY, d.Radius)
			if iou > a.cfg.IoUThreshold {
				cost[i][j] = 1 - iou
			} else {
				cost[i][j] = math.Inf(1)
			}
		}
	}

	assignments = make(map[int]int)
	trackUsed := make([]bool, numTracks)
	detUsed := make([]bool, numDetections)

	for {
		minCost := math.Inf(1)
		minTrack, minDet := -1, -1
		for i := 0; i < numTracks; i++ {
			if trackUsed[i] {
				continue
			}
			for j := 0; j < numDetections; j++ {
				if detUsed[j] {
					continue
				}
				if cost[i][j] < minCost {
					minCost = cost[i][j]
					minTrack, minDet = i, j
				}
			}
		}
		if minTrack < 0 || math.IsInf(minCost, 1) {
			break
		}
		assignments[minTrack] = minDet
		trackUsed[minTrack] = true
		detUsed[minDet] = true
	}

	for i := 0; i < numTracks; i++ {
		if !trackUsed[i] {
			unmatchedTracks = append(unmatchedTracks, i)
		}
	}
	for j := 0; j < numDetections; j++ {
		if !detUsed[j] {
			unmatchedDetections = append(unmatchedDetections, j)
		}
	}
	return assignments, unmatchedTracks, unmatchedDetections
}

func (a *Associator) updateMatchedTrack(t *track, d domain.Detection) {
	t.kalman.Update(d.CenterX, d.CenterY)
	t.lastDetection = d
	t.framesSinceDetection = 0
	t.consecutiveDetections++
	t.confidence = d.Confidence
	if t.consecutiveDetections >= a.cfg.MinFramesToConfirm {
		t.confirmed = true
	}
}

func (a *Associator) createTrack(d domain.Detection) {
	id := domain.TrackingID(a.nextID)
	a.nextID++

	k := kalman.New(a.cfg.ProcessNoise, a.cfg.MeasurementNoise)
	k.Initialize(d.CenterX, d.CenterY)

	a.tracks[id] = &track{
		id:                    id,
		kalman:                k,
		lastDetection:         d,
		consecutiveDetections: 1,
		confidence:            d.Confidence,
		confirmed:             1 >= a.cfg.MinFramesToConfirm,
	}
}

func (a *Associator) confirmedResults() []ActiveTrack {
	ids := a.sortedTrackIDs()
	results := make([]ActiveTrack, 0, len(ids))
	for _, id := range ids {
		t := a.tracks[id]
		if !t.confirmed {
			continue
		}
		x, y := t.kalman.Position()
		results = append(results, ActiveTrack{
			TrackingID: t.id,
			DroneID:    t.droneID,
			PixelX:     x,
			PixelY:     y,
			Confidence: t.confidence,
			Confirmed:  true,
		})
	}
	return results
}

// AssociateDrone links a confirmed track to a drone identity, e.g.
// once an operator confirms the visual correlation out of band.
func (a *Associator) AssociateDrone(id domain.TrackingID, droneID domain.DroneID) {
	if t, ok := a.tracks[id]; ok {
		t.droneID = &droneID
	}
}

// ActiveCount returns the number of currently confirmed tracks.
func (a *Associator) ActiveCount() int {
	n := 0
	for _, t := range a.tracks {
		if t.confirmed {
			n++
		}
	}
	return n
}

// TotalCount returns the number of tracks of any confirmation state.
func (a *Associator) TotalCount() int { return len(a.tracks) }

// Clear removes every track, resetting the associator to empty.
func (a *Associator) Clear() {
	a.tracks = make(map[domain.TrackingID]*track)
}

// circleIoU computes the intersection-over-union of two discs
// (x1,y1,r1) and (x2,y2,r2), per the formula in §4.D.
func circleIoU(x1, y1, r1, x2, y2, r2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	d := math.Sqrt(dx*dx + dy*dy)

	if d >= r1+r2 {
		return 0.0
	}

	rDiff := r1 - r2
	if rDiff < 0 {
		rDiff = -rDiff
	}
	if d <= rDiff {
		minArea := math.Pi * math.Min(r1, r2) * math.Min(r1, r2)
		maxArea := math.Pi * math.Max(r1, r2) * math.Max(r1, r2)
		return minArea / maxArea
	}

	// Lens-intersection area of two overlapping circles.
	r1Sq := r1 * r1
	r2Sq := r2 * r2
	dSq := d * d

	part1 := r1Sq * math.Acos((dSq+r1Sq-r2Sq)/(2*d*r1))
	part2 := r2Sq * math.Acos((dSq+r2Sq-r1Sq)/(2*d*r2))
	part3 := 0.5 * math.Sqrt((-d+r1+r2)*(d+r1-r2)*(d-r1+r2)*(d+r1+r2))

	intersection := part1 + part2 - part3
	union := math.Pi*r1Sq + math.Pi*r2Sq - intersection
	if union <= 0 {
		return 0.0
	}
	return intersection / union
}
