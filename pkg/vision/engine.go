package vision

import "github.com/picogrid/convoy-tracker/pkg/domain"

// Engine couples an Associator to a camera calibration, projecting
// each frame's confirmed tracks from pixel space to geodetic
// coordinates — the composition the source calls CvEngine.
type Engine struct {
	Associator  *Associator
	Calibration CameraCalibration
}

// NewEngine constructs an Engine with the given associator config and
// camera calibration.
func NewEngine(cfg Config, cal CameraCalibration) *Engine {
	return &Engine{Associator: NewAssociator(cfg), Calibration: cal}
}

// ProcessFrame runs the associator over detections and projects every
// confirmed track's pixel position to a geodetic TrackingResult.
func (e *Engine) ProcessFrame(detections []domain.Detection) []domain.TrackingResult {
	active := e.Associator.Update(detections)
	results := make([]domain.TrackingResult, 0, len(active))
	for _, t := range active {
		results = append(results, domain.TrackingResult{
			TrackingID: t.TrackingID,
			DroneID:    t.DroneID,
			Position:   ProjectToGeo(t.PixelX, t.PixelY, e.Calibration),
			Confidence: t.Confidence,
			Confirmed:  t.Confirmed,
		})
	}
	return results
}
