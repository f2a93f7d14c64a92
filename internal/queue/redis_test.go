package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/technosupport/zoneguard/internal/queue"
)

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

func TestPushAndNonBlockingPop_FIFO(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if err := q.Push(ctx, "frames_queue", []byte("a"), 0); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := q.Push(ctx, "frames_queue", []byte("b"), 0); err != nil {
		t.Fatalf("push: %v", err)
	}

	v, err := q.NonBlockingPop(ctx, "frames_queue")
	if err != nil || string(v) != "a" {
		t.Fatalf("expected 'a', got %q err %v", v, err)
	}
	v, err = q.NonBlockingPop(ctx, "frames_queue")
	if err != nil || string(v) != "b" {
		t.Fatalf("expected 'b', got %q err %v", v, err)
	}
	v, err = q.NonBlockingPop(ctx, "frames_queue")
	if err != nil || v != nil {
		t.Fatalf("expected empty queue, got %q err %v", v, err)
	}
}

func TestPush_DropOldestSoftCap(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := q.Push(ctx, "frames_queue", []byte{byte(i)}, 2); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}

	n, err := q.Len(ctx, "frames_queue")
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected soft cap of 2, got %d", n)
	}

	// The two survivors must be the most recent pushes (3, 4), oldest dropped.
	first, _ := q.NonBlockingPop(ctx, "frames_queue")
	if first[0] != 3 {
		t.Errorf("expected oldest-dropped survivor 3, got %v", first)
	}
}

func TestBlockingPop_Timeout(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	start := time.Now()
	v, err := q.BlockingPop(ctx, "empty_queue", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != nil {
		t.Fatalf("expected nil on timeout, got %q", v)
	}
	if time.Since(start) < 90*time.Millisecond {
		t.Errorf("returned before timeout elapsed")
	}
}

func TestLatestFrame_LastWriterWins(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if _, ok, err := q.GetLatestFrame(ctx, "annotated_frame_cam_1"); err != nil || ok {
		t.Fatalf("expected no frame yet, ok=%v err=%v", ok, err)
	}

	if err := q.SetLatestFrame(ctx, "annotated_frame_cam_1", []byte("frame-a")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := q.SetLatestFrame(ctx, "annotated_frame_cam_1", []byte("frame-b")); err != nil {
		t.Fatalf("set: %v", err)
	}

	v, ok, err := q.GetLatestFrame(ctx, "annotated_frame_cam_1")
	if err != nil || !ok || string(v) != "frame-b" {
		t.Fatalf("expected frame-b, got %q ok=%v err=%v", v, ok, err)
	}
}
