// Package detector defines the boundary between this repository and the
// person-detection/multi-object-tracking component the spec treats as
// already solved elsewhere (§6): the Worker calls a Detector and trusts its
// track_ids to be stable across frames for the same physical person. This
// package never implements detection itself.
package detector

import "github.com/technosupport/zoneguard/internal/data"

// Detection is one tracked person in a single frame.
type Detection struct {
	TrackID int
	// BoundingBox is in the same pixel coordinate space as the frame the
	// Detector was given; Center is derived from it for zone containment
	// tests (§4.B step 3).
	BoundingBox BoundingBox
}

type BoundingBox struct {
	X, Y, Width, Height float64
}

func (b BoundingBox) Center() data.Point {
	return data.Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Detector runs person detection and multi-object tracking over a single
// decoded frame. Implementations are external to this module (§1, §6); a
// production deployment wires in whatever model-serving client it uses.
type Detector interface {
	Detect(frame []byte) ([]Detection, error)
}
