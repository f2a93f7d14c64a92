// Package worker turns frames into zone events (§4.B): dequeue from
// frames_queue, run detection, test zone membership, evolve presence
// state, and publish events to detections_queue. One Worker instance
// watches a single camera.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/technosupport/zoneguard/internal/capture"
	"github.com/technosupport/zoneguard/internal/data"
	"github.com/technosupport/zoneguard/internal/detector"
	"github.com/technosupport/zoneguard/internal/queue"
	"github.com/technosupport/zoneguard/internal/zones"
)

// DequeueTimeout is the Worker's blocking-pop timeout on frames_queue
// (§4.B step 1, §5).
const DequeueTimeout = 30 * time.Second

const DetectionsQueueKey = "detections_queue"

// Annotator renders bounding boxes, zone polygons and labels onto a frame
// and returns the JPEG-encoded result (§4.B step 5). Implementations are
// external to this module; rendering is not part of the pipeline's domain
// logic.
type Annotator interface {
	Annotate(frame []byte, detections []detector.Detection, zones []data.Zone) ([]byte, error)
}

// Metrics receives instrumentation callbacks; nil fields are skipped.
type Metrics struct {
	EventEmitted func(cameraID, event string)
}

type Worker struct {
	CameraID  string
	TenantID  string
	Detector  detector.Detector
	Annotator Annotator
	Queue     *queue.Queue
	Zones     []data.Zone
	Now       func() time.Time
	Metrics   Metrics

	trackers map[string]*zones.Tracker // zone_id -> tracker
}

func New(cameraID, tenantID string, det detector.Detector, ann Annotator, q *queue.Queue, zoneList []data.Zone) *Worker {
	trackers := make(map[string]*zones.Tracker, len(zoneList))
	for _, z := range zoneList {
		trackers[z.ID] = zones.NewTracker()
	}
	return &Worker{
		CameraID:  cameraID,
		TenantID:  tenantID,
		Detector:  det,
		Annotator: ann,
		Queue:     q,
		Zones:     zoneList,
		trackers:  trackers,
	}
}

// Run loops until ctx is canceled, dequeuing frames and processing them.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		raw, err := w.Queue.BlockingPop(ctx, capture.FramesQueueKey, DequeueTimeout)
		if err != nil {
			log.Printf("[worker:%s] dequeue error: %v", w.CameraID, err)
			continue
		}
		if raw == nil {
			continue // timed out with nothing queued
		}

		msg, jpeg, err := queue.DecodeFrame(raw)
		if err != nil {
			log.Printf("[worker:%s] malformed frame message: %v", w.CameraID, err)
			continue
		}
		if msg.CameraID != w.CameraID {
			continue // belongs to another camera's worker
		}

		if err := w.processFrame(ctx, jpeg); err != nil {
			log.Printf("[worker:%s] frame processing error: %v", w.CameraID, err)
		}
	}
}

func (w *Worker) processFrame(ctx context.Context, jpeg []byte) error {
	detections, err := w.Detector.Detect(jpeg)
	if err != nil {
		// A detector exception skips the frame without state change (§4.B).
		return err
	}

	now := w.now()
	centers := make(map[int]data.Point, len(detections))
	for _, d := range detections {
		centers[d.TrackID] = d.BoundingBox.Center()
	}

	var events []data.ZoneEvent
	for _, z := range w.Zones {
		inside := zones.Centers(z, centers)
		tr := w.trackers[z.ID]
		zoneEvents := tr.Observe(w.TenantID, w.CameraID, z, inside, now)
		for i := range zoneEvents {
			if !z.HasMetric(data.MetricDwell) {
				zoneEvents[i].DwellSeconds = nil
			}
		}
		events = append(events, zoneEvents...)
	}

	for _, e := range events {
		if err := w.publish(ctx, e); err != nil {
			log.Printf("[worker:%s] publish event error: %v", w.CameraID, err)
			continue
		}
		if w.Metrics.EventEmitted != nil {
			w.Metrics.EventEmitted(w.CameraID, e.Event)
		}
	}

	if w.Annotator != nil {
		annotated, err := w.Annotator.Annotate(jpeg, detections, w.Zones)
		if err == nil {
			key := annotatedFrameKey(w.CameraID)
			if err := w.Queue.SetLatestFrame(ctx, key, annotated); err != nil {
				log.Printf("[worker:%s] annotation relay error: %v", w.CameraID, err)
			}
		}
	}

	return nil
}

func (w *Worker) publish(ctx context.Context, e data.ZoneEvent) error {
	msg := queue.DetectionMessage{
		TenantID:     e.TenantID,
		CameraID:     e.CameraID,
		ZoneID:       e.ZoneID,
		TrackID:      e.TrackID,
		Event:        e.Event,
		Ts:           e.Ts.UTC().Format(time.RFC3339Nano),
		DwellSeconds: e.DwellSeconds,
	}
	encoded, err := queue.EncodeDetection(msg)
	if err != nil {
		return err
	}
	return w.Queue.Push(ctx, DetectionsQueueKey, encoded, 0)
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now().UTC()
}

func annotatedFrameKey(cameraID string) string {
	return "annotated_frame_cam_" + cameraID
}
