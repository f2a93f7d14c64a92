package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/technosupport/zoneguard/internal/metricsnap"
	"github.com/technosupport/zoneguard/internal/queue"
)

// SSEInterval is the live-metrics push cadence (§4.D).
const SSEInterval = 2 * time.Second

// MJPEGPacing is the annotated-frame relay's read cadence (§4.D).
const MJPEGPacing = 50 * time.Millisecond

// ZoneLister resolves which zones to include in a snapshot broadcast.
type ZoneLister interface {
	ListZoneIDs(ctx context.Context) ([]string, error)
}

// Handler serves the Metrics API's two public surfaces and a health
// check, registered on a chi.Router the way the teacher's streaming
// relay handler registers its routes.
type Handler struct {
	Snapshots metricsnap.Source
	Zones     ZoneLister
	Queue     *queue.Queue
	Now       func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/realtime/stream", h.StreamMetrics)
	r.Get("/video/stream/{camera_id}", h.StreamVideo)
	r.Get("/health", h.Health)
}

type snapshotEnvelope struct {
	Timestamp string                      `json:"timestamp"`
	Zones     map[string]zoneSnapshotJSON `json:"zones"`
}

type zoneSnapshotJSON struct {
	Occupancy         *int     `json:"occupancy,omitempty"`
	AvgDwellSeconds5m *float64 `json:"avg_dwell_seconds_5m,omitempty"`
}

// StreamMetrics implements GET /realtime/stream: a server-sent event named
// "metrics" every SSEInterval carrying every zone's current snapshot
// (§4.D). It stops within one pacing interval of client disconnect.
func (h *Handler) StreamMetrics(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	ticker := time.NewTicker(SSEInterval)
	defer ticker.Stop()

	for {
		if err := h.writeSnapshot(ctx, w); err != nil {
			return
		}
		flusher.Flush()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *Handler) writeSnapshot(ctx context.Context, w http.ResponseWriter) error {
	zoneIDs, err := h.Zones.ListZoneIDs(ctx)
	if err != nil {
		return err
	}

	env := snapshotEnvelope{
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Zones:     make(map[string]zoneSnapshotJSON, len(zoneIDs)),
	}
	for _, zoneID := range zoneIDs {
		snap, err := h.Snapshots.Snapshot(ctx, zoneID)
		if err != nil {
			continue
		}
		env.Zones[zoneID] = zoneSnapshotJSON{
			Occupancy:         snap.Occupancy,
			AvgDwellSeconds5m: snap.AvgDwellSeconds5m,
		}
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: metrics\ndata: %s\n\n", payload)
	return err
}

// StreamVideo implements GET /video/stream/{camera_id}: a
// multipart/x-mixed-replace relay of the latest annotated frame (§4.D).
// A missing key just elapses one pacing interval without writing a part.
func (h *Handler) StreamVideo(w http.ResponseWriter, r *http.Request) {
	cameraID := chi.URLParam(r, "camera_id")

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	ticker := time.NewTicker(MJPEGPacing)
	defer ticker.Stop()

	key := annotatedFrameKey(cameraID)
	for {
		frame, ok, err := h.Queue.GetLatestFrame(ctx, key)
		if err == nil && ok {
			if werr := writeMJPEGPart(w, frame); werr != nil {
				return
			}
			flusher.Flush()
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func writeMJPEGPart(w http.ResponseWriter, frame []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(frame)); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}

func annotatedFrameKey(cameraID string) string {
	return "annotated_frame_cam_" + cameraID
}

type healthBody struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthBody{Status: "ok", Time: h.now().UTC().Format(time.RFC3339)})
}
