package zones

import (
	"time"

	"github.com/technosupport/zoneguard/internal/data"
)

// trackKey identifies one (track, zone) pair's presence state, mirroring
// the prev_tracks map the Worker keeps per §4.B step 4.
type trackKey struct {
	TrackID int
	ZoneID  string
}

// Tracker holds the live presence state for every (track_id, zone_id) pair
// a single camera's Worker is currently watching. It is not safe for
// concurrent use; the Worker owns one Tracker per zone and uses them all
// from its single Run goroutine.
type Tracker struct {
	enterTS map[trackKey]time.Time
}

func NewTracker() *Tracker {
	return &Tracker{enterTS: make(map[trackKey]time.Time)}
}

// Observe folds one frame's detections into the presence state for a single
// zone and returns the ZoneEvents that fire as a result (§4.B step 4):
// a track crossing from outside to inside emits "enter"; a track that was
// inside and is no longer present among presentTrackIDs emits "exit" with
// dwell_seconds computed from the recorded enter timestamp.
func (t *Tracker) Observe(tenantID, cameraID string, zone data.Zone, presentTrackIDs map[int]bool, now time.Time) []data.ZoneEvent {
	var events []data.ZoneEvent

	present := make(map[int]bool, len(presentTrackIDs))
	for trackID, inside := range presentTrackIDs {
		if !inside {
			continue
		}
		present[trackID] = true
		key := trackKey{TrackID: trackID, ZoneID: zone.ID}
		if _, already := t.enterTS[key]; already {
			continue
		}
		t.enterTS[key] = now
		events = append(events, data.ZoneEvent{
			TenantID: tenantID,
			CameraID: cameraID,
			ZoneID:   zone.ID,
			TrackID:  trackID,
			Event:    data.EventEnter,
			Ts:       now,
		})
	}

	for key, enteredAt := range t.enterTS {
		if key.ZoneID != zone.ID {
			continue
		}
		if present[key.TrackID] {
			continue
		}
		dwell := now.Sub(enteredAt).Seconds()
		events = append(events, data.ZoneEvent{
			TenantID:     tenantID,
			CameraID:     cameraID,
			ZoneID:       zone.ID,
			TrackID:      key.TrackID,
			Event:        data.EventExit,
			Ts:           now,
			DwellSeconds: &dwell,
		})
		delete(t.enterTS, key)
	}

	return events
}

// Centers returns which of the given track centers fall inside the zone's
// polygon, keyed by track_id — the input to Observe.
func Centers(zone data.Zone, centers map[int]data.Point) map[int]bool {
	inside := make(map[int]bool, len(centers))
	for trackID, p := range centers {
		inside[trackID] = Contains(zone.Polygon, p)
	}
	return inside
}
