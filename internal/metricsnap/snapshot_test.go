package metricsnap_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/technosupport/zoneguard/internal/data"
	"github.com/technosupport/zoneguard/internal/metricsnap"
)

type fakeEvents struct {
	last   []data.TrackLastEvent
	dwells []float64
}

func (f fakeEvents) LastEventPerTrack(ctx context.Context, zoneID string) ([]data.TrackLastEvent, error) {
	return f.last, nil
}

func (f fakeEvents) DwellSince(ctx context.Context, zoneID string, since time.Time) ([]float64, error) {
	return f.dwells, nil
}

type fakeZones struct {
	zone data.Zone
}

func (f fakeZones) Get(ctx context.Context, zoneID string) (*data.Zone, error) {
	z := f.zone
	return &z, nil
}

func TestComputer_Snapshot_OccupancyWithinGhostTimeout(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	zone := data.Zone{ID: "zone-1", Metrics: []string{data.MetricOccupancy}, GhostTimeoutMinutes: 10}
	events := fakeEvents{last: []data.TrackLastEvent{
		{TrackID: 1, Event: data.EventEnter, Ts: now.Add(-5 * time.Minute)},
		{TrackID: 2, Event: data.EventEnter, Ts: now.Add(-20 * time.Minute)}, // ghosted, outside window
		{TrackID: 3, Event: data.EventExit, Ts: now.Add(-1 * time.Minute)},
	}}

	c := &metricsnap.Computer{Events: events, Zones: fakeZones{zone: zone}, Now: func() time.Time { return now }}

	snap, err := c.Snapshot(context.Background(), "zone-1")
	require.NoError(t, err)
	require.NotNil(t, snap.Occupancy)
	require.Equal(t, 1, *snap.Occupancy)
	require.Nil(t, snap.AvgDwellSeconds5m)
}

func TestComputer_Snapshot_AvgDwellOmittedWhenZoneLacksMetric(t *testing.T) {
	zone := data.Zone{ID: "zone-1", Metrics: []string{data.MetricOccupancy}, GhostTimeoutMinutes: 60}
	events := fakeEvents{dwells: []float64{10, 20, 30}}

	c := &metricsnap.Computer{Events: events, Zones: fakeZones{zone: zone}}

	snap, err := c.Snapshot(context.Background(), "zone-1")
	require.NoError(t, err)
	require.Nil(t, snap.AvgDwellSeconds5m, "dwell not configured for this zone, should be omitted")
}

func TestComputer_Snapshot_AvgDwellMean(t *testing.T) {
	zone := data.Zone{ID: "zone-1", Metrics: []string{data.MetricDwell}, GhostTimeoutMinutes: 60}
	events := fakeEvents{dwells: []float64{10, 20, 30}}

	c := &metricsnap.Computer{Events: events, Zones: fakeZones{zone: zone}}

	snap, err := c.Snapshot(context.Background(), "zone-1")
	require.NoError(t, err)
	require.NotNil(t, snap.AvgDwellSeconds5m)
	require.InDelta(t, 20.0, *snap.AvgDwellSeconds5m, 0.001)
}
