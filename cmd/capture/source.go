package main

import (
	"context"
	"errors"

	"github.com/technosupport/zoneguard/internal/capture"
)

// externalSource is the deployment-specific seam for actually decoding an
// RTSP stream into JPEG frames. Video codec handling is explicitly out of
// this repository's scope (§1 Non-goals) — production builds replace this
// with a real client (e.g. shelling out to ffmpeg, or a cgo binding).
type externalSource struct{}

func newExternalSource() capture.Source {
	return externalSource{}
}

func (externalSource) Open(ctx context.Context, rtspURL string) (<-chan []byte, <-chan error) {
	frames := make(chan []byte)
	errs := make(chan error, 1)
	errs <- errors.New("capture: no RTSP decoding backend configured; wire in a real capture.Source")
	close(frames)
	return frames, errs
}
