package ingest

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/technosupport/zoneguard/internal/data"
)

// DedupMaxKeys and DedupWindow bound Ingest's short-window exact-duplicate
// suppression cache: a Worker redelivering the same enter/exit after a
// reconnect should not double-count an event the first delivery already
// persisted. Grounded on the teacher's NVR event-dedup cache, repurposed
// from NVR channel events to zone enter/exit events.
const (
	DedupMaxKeys = 100_000
	DedupWindow  = 30 * time.Second
)

// Dedup suppresses duplicate zone events seen within DedupWindow of each
// other. It is a best-effort, process-local safeguard: at-least-once
// delivery off detections_queue can occasionally redeliver an event, and
// this cache keeps an accidental redelivery from inflating aggregates.
type Dedup struct {
	cache *lru.Cache[string, time.Time]
	ttl   time.Duration
}

func NewDedup(maxKeys int, ttl time.Duration) *Dedup {
	if maxKeys <= 0 {
		maxKeys = DedupMaxKeys
	}
	if ttl <= 0 {
		ttl = DedupWindow
	}
	c, _ := lru.New[string, time.Time](maxKeys)
	return &Dedup{cache: c, ttl: ttl}
}

// IsDuplicate reports whether an equivalent event was already seen within
// the dedup window, and records this occurrence either way.
func (d *Dedup) IsDuplicate(e data.ZoneEvent) bool {
	key := dedupKey(e)
	if seenAt, ok := d.cache.Get(key); ok && time.Since(seenAt) < d.ttl {
		return true
	}
	d.cache.Add(key, time.Now())
	return false
}

func dedupKey(e data.ZoneEvent) string {
	ts := e.Ts.Truncate(time.Second).Unix()
	return fmt.Sprintf("%s|%s|%s|%d|%s|%d", e.TenantID, e.CameraID, e.ZoneID, e.TrackID, e.Event, ts)
}
