package metrics_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/technosupport/zoneguard/internal/metrics"
	"github.com/technosupport/zoneguard/internal/metricsnap"
	"github.com/technosupport/zoneguard/internal/queue"
)

type fakeZoneLister struct{ ids []string }

func (f fakeZoneLister) ListZoneIDs(ctx context.Context) ([]string, error) { return f.ids, nil }

type fakeSnapshots struct {
	occupancy int
}

func (f fakeSnapshots) Snapshot(ctx context.Context, zoneID string) (metricsnap.ZoneSnapshot, error) {
	v := f.occupancy
	return metricsnap.ZoneSnapshot{Occupancy: &v}, nil
}

func TestHealth_ReturnsOKStatus(t *testing.T) {
	h := &metrics.Handler{Now: func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }}
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.Health(w, req)

	var body struct {
		Status string `json:"status"`
		Time   string `json:"time"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Time != "2026-01-01T00:00:00Z" {
		t.Fatalf("unexpected health body: %+v", body)
	}
}

func TestStreamMetrics_EmitsOneSnapshotImmediately(t *testing.T) {
	h := &metrics.Handler{
		Zones:     fakeZoneLister{ids: []string{"zone-1"}},
		Snapshots: fakeSnapshots{occupancy: 3},
		Now:       func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	}

	req := httptest.NewRequest(http.MethodGet, "/realtime/stream", nil)
	ctx, cancel := context.WithTimeout(req.Context(), 30*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	h.StreamMetrics(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "event: metrics") {
		t.Fatalf("expected an SSE metrics event, got: %q", body)
	}
	if !strings.Contains(body, `"occupancy":3`) {
		t.Fatalf("expected occupancy 3 in payload, got: %q", body)
	}
}

func TestStreamVideo_SkipsPacingWhenFrameMissing(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := queue.New(rdb)

	h := &metrics.Handler{Queue: q}

	r := chi.NewRouter()
	h.Register(r)

	req := httptest.NewRequest(http.MethodGet, "/video/stream/cam-1", nil)
	ctx, cancel := context.WithTimeout(req.Context(), 60*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Body.Len() != 0 {
		t.Fatalf("expected no frame parts written when the key is absent, got %d bytes", w.Body.Len())
	}
}

func TestStreamVideo_WritesFrameWhenPresent(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := queue.New(rdb)
	if err := q.SetLatestFrame(context.Background(), "annotated_frame_cam_cam-1", []byte("jpegdata")); err != nil {
		t.Fatalf("set: %v", err)
	}

	h := &metrics.Handler{Queue: q}
	r := chi.NewRouter()
	h.Register(r)

	req := httptest.NewRequest(http.MethodGet, "/video/stream/cam-1", nil)
	ctx, cancel := context.WithTimeout(req.Context(), 60*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), "jpegdata") {
		t.Fatalf("expected the relayed frame bytes in the response, got: %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Fatalf("unexpected content type: %s", ct)
	}
}
