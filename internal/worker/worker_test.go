package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/technosupport/zoneguard/internal/data"
	"github.com/technosupport/zoneguard/internal/detector"
	"github.com/technosupport/zoneguard/internal/queue"
	"github.com/technosupport/zoneguard/internal/worker"
)

type fakeDetector struct {
	detections []detector.Detection
}

func (f *fakeDetector) Detect(frame []byte) ([]detector.Detection, error) {
	return f.detections, nil
}

func newTestQueue(t *testing.T) *queue.Queue {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return queue.New(rdb)
}

func square() []data.Point {
	return []data.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
}

func TestWorker_EmitsEnterEventAndPublishesToDetectionsQueue(t *testing.T) {
	q := newTestQueue(t)
	zone := data.Zone{ID: "zone-1", CameraID: "cam-1", Metrics: []string{data.MetricDwell}, Polygon: square()}

	det := &fakeDetector{detections: []detector.Detection{
		{TrackID: 1, BoundingBox: detector.BoundingBox{X: 4, Y: 4, Width: 2, Height: 2}}, // center (5,5), inside
	}}

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w := worker.New("cam-1", "tenant-1", det, nil, q, []data.Zone{zone})
	w.Now = func() time.Time { return now }

	// Push one frame for cam-1, then run the Worker's Run loop under a
	// 200ms context: the frame is processed on the first dequeue and Run
	// returns once the context expires.
	msg, err := queue.EncodeFrame("cam-1", now, []byte("jpeg"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := q.Push(context.Background(), "frames_queue", msg, 0); err != nil {
		t.Fatalf("push: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	<-done

	raw, err := q.NonBlockingPop(context.Background(), worker.DetectionsQueueKey)
	if err != nil {
		t.Fatalf("pop detection: %v", err)
	}
	if raw == nil {
		t.Fatal("expected an enter event on detections_queue")
	}
	evt, err := queue.DecodeDetection(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if evt.Event != data.EventEnter || evt.ZoneID != "zone-1" || evt.TrackID != 1 {
		t.Fatalf("unexpected event: %+v", evt)
	}
}

func TestWorker_DiscardsFramesForOtherCameras(t *testing.T) {
	q := newTestQueue(t)
	det := &fakeDetector{}
	w := worker.New("cam-1", "tenant-1", det, nil, q, nil)

	msg, _ := queue.EncodeFrame("cam-2", time.Now(), []byte("jpeg"))
	if err := q.Push(context.Background(), "frames_queue", msg, 0); err != nil {
		t.Fatalf("push: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	n, _ := q.Len(context.Background(), worker.DetectionsQueueKey)
	if n != 0 {
		t.Fatalf("expected no events published for a foreign camera's frame, got %d", n)
	}
}
