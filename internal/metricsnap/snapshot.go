// Package metricsnap computes the live per-zone snapshot shared by the
// Metrics API's SSE stream and the Alerter (§4.D, §4.E) — a single
// definition of "currently occupying" and "recent average dwell" used
// everywhere a live value is needed, resolving spec.md's Open Question 1
// in favor of one canonical computation rather than two slightly
// different windows.
package metricsnap

import (
	"context"
	"time"

	"github.com/technosupport/zoneguard/internal/data"
)

// DwellWindow is the lookback window for avg_dwell_seconds_5m (§4.D).
const DwellWindow = 5 * time.Minute

// ZoneSnapshot carries only the metrics a zone is configured to report;
// absent fields are nil rather than zero, so serialization can omit them
// (§4.D: "only when defined").
type ZoneSnapshot struct {
	Occupancy         *int
	AvgDwellSeconds5m *float64
}

func (z ZoneSnapshot) Value(metric string) (float64, bool) {
	switch metric {
	case data.MetricOccupancy:
		if z.Occupancy == nil {
			return 0, false
		}
		return float64(*z.Occupancy), true
	case data.MetricDwell:
		if z.AvgDwellSeconds5m == nil {
			return 0, false
		}
		return *z.AvgDwellSeconds5m, true
	default:
		return 0, false
	}
}

// Source produces a live snapshot for one zone.
type Source interface {
	Snapshot(ctx context.Context, zoneID string) (ZoneSnapshot, error)
}

// EventStore is the subset of EventModel the snapshot computation needs.
type EventStore interface {
	LastEventPerTrack(ctx context.Context, zoneID string) ([]data.TrackLastEvent, error)
	DwellSince(ctx context.Context, zoneID string, since time.Time) ([]float64, error)
}

// ZoneLookup resolves the zones a snapshot can be computed for.
type ZoneLookup interface {
	Get(ctx context.Context, zoneID string) (*data.Zone, error)
}

// Computer is the concrete Source implementation wired against a real
// EventStore and ZoneLookup.
type Computer struct {
	Events EventStore
	Zones  ZoneLookup
	Now    func() time.Time
}

func (c *Computer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

func (c *Computer) Snapshot(ctx context.Context, zoneID string) (ZoneSnapshot, error) {
	var snap ZoneSnapshot

	zone, err := c.Zones.Get(ctx, zoneID)
	if err != nil {
		return snap, err
	}

	now := c.now()

	if zone.HasMetric(data.MetricOccupancy) {
		last, err := c.Events.LastEventPerTrack(ctx, zoneID)
		if err != nil {
			return snap, err
		}
		cutoff := now.Add(-time.Duration(zone.GhostTimeoutMinutes) * time.Minute)
		count := 0
		for _, t := range last {
			if t.Event == data.EventEnter && !t.Ts.Before(cutoff) {
				count++
			}
		}
		snap.Occupancy = &count
	}

	if zone.HasMetric(data.MetricDwell) {
		since := now.Add(-DwellWindow)
		values, err := c.Events.DwellSince(ctx, zoneID, since)
		if err != nil {
			return snap, err
		}
		if len(values) > 0 {
			var sum float64
			for _, v := range values {
				sum += v
			}
			avg := sum / float64(len(values))
			snap.AvgDwellSeconds5m = &avg
		}
	}

	return snap, nil
}
