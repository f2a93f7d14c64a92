package data

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type EventModel struct {
	DB DBTX
}

// InsertBatch performs the single multi-row insert Ingest's flush uses
// (§4.C). Duplicate (camera_id, zone_id, track_id, event, ts) rows are
// tolerated — the table carries no uniqueness constraint on that tuple,
// matching the spec's at-least-once delivery guarantee.
func (m EventModel) InsertBatch(ctx context.Context, events []ZoneEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO zone_events (tenant_id, camera_id, zone_id, track_id, event, ts, dwell_seconds) VALUES `)
	args := make([]any, 0, len(events)*7)
	for i, e := range events {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 7
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7)
		args = append(args, e.TenantID, e.CameraID, e.ZoneID, e.TrackID, e.Event, e.Ts, e.DwellSeconds)
	}

	res, err := m.DB.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type TrackLastEvent struct {
	TrackID int
	Event   string
	Ts      time.Time
}

// LastEventPerTrack returns, for every track_id ever seen in the zone, its
// most recent event row. The Metrics API snapshot (§4.D) filters this to
// tracks whose last event is "enter" within the zone's ghost timeout.
func (m EventModel) LastEventPerTrack(ctx context.Context, zoneID string) ([]TrackLastEvent, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT DISTINCT ON (track_id) track_id, event, ts
		FROM zone_events
		WHERE zone_id = $1
		ORDER BY track_id, ts DESC`, zoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrackLastEvent
	for rows.Next() {
		var t TrackLastEvent
		if err := rows.Scan(&t.TrackID, &t.Event, &t.Ts); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DwellSince returns the dwell_seconds of every exit event at or after
// `since`, for the mean in avg_dwell_seconds_5m (§4.D).
func (m EventModel) DwellSince(ctx context.Context, zoneID string, since time.Time) ([]float64, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT dwell_seconds FROM zone_events
		WHERE zone_id = $1 AND event = $2 AND ts >= $3 AND dwell_seconds IS NOT NULL`,
		zoneID, EventExit, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// StartingOccupancy sums +1/-1 over every event strictly before `h`. The
// reference query does not clamp negative results (§4.F); callers should
// treat a negative value as a corruption signal.
func (m EventModel) StartingOccupancy(ctx context.Context, zoneID string, h time.Time) (int, error) {
	var v int
	err := m.DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN event = 'enter' THEN 1 WHEN event = 'exit' THEN -1 ELSE 0 END), 0)
		FROM zone_events WHERE zone_id = $1 AND ts < $2`, zoneID, h).Scan(&v)
	return v, err
}

// EventsInWindow returns every event with ts in [from, to), ordered by ts,
// used to build the in-hour occupancy step function and the entry count.
func (m EventModel) EventsInWindow(ctx context.Context, zoneID string, from, to time.Time) ([]ZoneEvent, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT tenant_id, camera_id, zone_id, track_id, event, ts, dwell_seconds
		FROM zone_events
		WHERE zone_id = $1 AND ts >= $2 AND ts < $3
		ORDER BY ts ASC`, zoneID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// EventsForDwellPairing returns every event needed to reconstruct each
// track's alternating enter/exit sequence for dwell attribution against
// the hour ending at `next` (§4.F scenario 5): every event before `next`
// (so an enter earlier than the hour boundary is visible), plus every
// exit at or after `next` (so an enter near the end of the hour can still
// find the exit that closes it, even when that exit falls in a later
// hour). Ordered by (track_id, ts) so the aggregator can walk each
// track's sequence in order.
func (m EventModel) EventsForDwellPairing(ctx context.Context, zoneID string, next time.Time) ([]ZoneEvent, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT tenant_id, camera_id, zone_id, track_id, event, ts, dwell_seconds
		FROM zone_events
		WHERE zone_id = $1 AND (ts < $2 OR (event = 'exit' AND ts >= $2))
		ORDER BY track_id ASC, ts ASC`, zoneID, next)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]ZoneEvent, error) {
	var out []ZoneEvent
	for rows.Next() {
		var e ZoneEvent
		if err := rows.Scan(&e.TenantID, &e.CameraID, &e.ZoneID, &e.TrackID, &e.Event, &e.Ts, &e.DwellSeconds); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
