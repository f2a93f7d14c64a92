package main

import (
	"errors"

	"github.com/technosupport/zoneguard/internal/detector"
	"github.com/technosupport/zoneguard/internal/worker"
)

// externalDetector is the deployment-specific seam for the person
// detection/tracking model (§1, §6 — explicitly external to this module).
type externalDetector struct{}

func newExternalDetector() detector.Detector {
	return externalDetector{}
}

func (externalDetector) Detect(frame []byte) ([]detector.Detection, error) {
	return nil, errors.New("worker: no detection backend configured; wire in a real detector.Detector")
}

// newExternalAnnotator returns no Annotator: frame rendering for the MJPEG
// relay is also external to this module (§1). Worker skips annotation
// entirely when Annotator is nil.
func newExternalAnnotator() worker.Annotator {
	return nil
}
