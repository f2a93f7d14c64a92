package capture_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/technosupport/zoneguard/internal/capture"
	"github.com/technosupport/zoneguard/internal/data"
	"github.com/technosupport/zoneguard/internal/queue"
)

type fakeSource struct {
	frames []([]byte)
}

func (f *fakeSource) Open(ctx context.Context, rtspURL string) (<-chan []byte, <-chan error) {
	out := make(chan []byte, len(f.frames))
	errs := make(chan error, 1)
	for _, fr := range f.frames {
		out <- fr
	}
	close(out)
	return out, errs
}

func TestPuller_PublishesFramesToQueue(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := queue.New(rdb)

	src := &fakeSource{frames: [][]byte{[]byte("jpeg-1"), {}, []byte("jpeg-2")}}
	p := &capture.Puller{Source: src, Queue: q, Now: func() time.Time { return time.Unix(1700000000, 0).UTC() }}

	cam := data.Camera{ID: "cam-1", FPS: 10}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		p.Run(ctx, cam, "rtsp://example/cam1")
		close(done)
	}()
	<-done

	n, err := q.Len(context.Background(), capture.FramesQueueKey)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	// The empty frame is skipped silently; two well-formed frames remain.
	if n != 2 {
		t.Fatalf("expected 2 queued frames, got %d", n)
	}

	raw, err := q.NonBlockingPop(context.Background(), capture.FramesQueueKey)
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	msg, jpeg, err := queue.DecodeFrame(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.CameraID != "cam-1" || string(jpeg) != "jpeg-1" {
		t.Fatalf("unexpected decoded frame: %+v jpeg=%q", msg, jpeg)
	}
}
