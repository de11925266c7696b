package vision

import (
	"math"

	"github.com/picogrid/convoy-tracker/pkg/geo"
)

// CameraCalibration describes a pinhole camera's intrinsics and pose,
// used to project detected pixel coordinates to ground geodetic
// coordinates (§4.E).
type CameraCalibration struct {
	FocalLengthX    float64
	FocalLengthY    float64
	PrincipalPointX float64
	PrincipalPointY float64
	Altitude        float64
	Position        geo.Position
	HeadingDeg      float64
}

// DefaultCameraCalibration mirrors the source's default test rig: a
// 1000px-focal-length camera at 5000m over the default convoy
// mission's origin, facing north.
func DefaultCameraCalibration() CameraCalibration {
	return CameraCalibration{
		FocalLengthX:    1000.0,
		FocalLengthY:    1000.0,
		PrincipalPointX: 640.0,
		PrincipalPointY: 360.0,
		Altitude:        5000.0,
		Position:        geo.New(34.5553, 69.2075, 5000.0),
		HeadingDeg:      0.0,
	}
}

// ProjectToGeo implements the pinhole projection in §4.E: a pixel
// (u,v) maps to ground offsets in meters, then degree offsets, then is
// rotated into the camera's heading frame.
func ProjectToGeo(pixelX, pixelY float64, cal CameraCalibration) geo.Position {
	dx := (pixelX - cal.PrincipalPointX) / cal.FocalLengthX
	dy := (pixelY - cal.PrincipalPointY) / cal.FocalLengthY

	groundX := dx * cal.Altitude
	groundY := dy * cal.Altitude

	const metersPerDegree = 111000.0
	latOffset := groundY / metersPerDegree
	lngOffset := groundX / (metersPerDegree * math.Cos(radians(cal.Position.Latitude)))

	h := radians(cal.HeadingDeg)
	rotatedLat := latOffset*math.Cos(h) - lngOffset*math.Sin(h)
	rotatedLng := latOffset*math.Sin(h) + lngOffset*math.Cos(h)

	return geo.Position{
		Latitude:  cal.Position.Latitude + rotatedLat,
		Longitude: cal.Position.Longitude + rotatedLng,
		Altitude:  0,
	}
}

func radians(deg float64) float64 { return deg * math.Pi / 180.0 }
