// Package aggregate computes the hourly occupancy/dwell rollup (§4.F): for
// a target hour [h, h+1) in the America/Guayaquil reporting time zone, it
// builds the occupancy step function from the raw event log, the average
// and maximum occupancy, the per-track dwell contribution split across
// hour boundaries, and the entry count, then upserts one row per zone.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/technosupport/zoneguard/internal/data"
)

// ReportingZone is the fixed time zone hour boundaries are computed in.
const ReportingZone = "America/Guayaquil"

// EventStore is the subset of EventModel the aggregator needs.
type EventStore interface {
	StartingOccupancy(ctx context.Context, zoneID string, h time.Time) (int, error)
	EventsInWindow(ctx context.Context, zoneID string, from, to time.Time) ([]data.ZoneEvent, error)
	EventsForDwellPairing(ctx context.Context, zoneID string, next time.Time) ([]data.ZoneEvent, error)
}

// HourlyStore is the subset of HourlyModel the aggregator needs.
type HourlyStore interface {
	Upsert(ctx context.Context, h data.HourlyMetric) error
}

// ZoneLister is the subset of ZoneModel the aggregator needs to discover
// which zones to aggregate.
type ZoneLister interface {
	List(ctx context.Context) ([]data.Zone, error)
}

type Aggregator struct {
	Events   EventStore
	Hourly   HourlyStore
	Zones    ZoneLister
	location *time.Location
}

// New constructs an Aggregator, loading the America/Guayaquil tzdata
// entry once. A third-party timezone library has no presence anywhere in
// the retrieval pack, and Go's stdlib tzdata resolution is the idiomatic
// choice for this kind of fixed civil-time boundary (see DESIGN.md).
func New(events EventStore, hourly HourlyStore, zones ZoneLister) (*Aggregator, error) {
	loc, err := time.LoadLocation(ReportingZone)
	if err != nil {
		return nil, fmt.Errorf("load reporting time zone: %w", err)
	}
	return &Aggregator{Events: events, Hourly: hourly, Zones: zones, location: loc}, nil
}

// RunHour aggregates every zone for the hour containing localHour,
// expressed as a wall-clock time in the reporting time zone; only its
// year/month/day/hour components are used, truncated to the hour start.
func (a *Aggregator) RunHour(ctx context.Context, localHour time.Time) error {
	h := truncateToHour(localHour.In(a.location))
	hUTC := h.UTC()
	nextUTC := h.Add(time.Hour).UTC()

	zones, err := a.Zones.List(ctx)
	if err != nil {
		return fmt.Errorf("list zones: %w", err)
	}

	for _, z := range zones {
		metric, err := a.aggregateZone(ctx, z, hUTC, nextUTC)
		if err != nil {
			return fmt.Errorf("aggregate zone %s: %w", z.ID, err)
		}
		if err := a.Hourly.Upsert(ctx, metric); err != nil {
			return fmt.Errorf("upsert hourly metric zone %s: %w", z.ID, err)
		}
	}
	return nil
}

func truncateToHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

func (a *Aggregator) aggregateZone(ctx context.Context, z data.Zone, h, next time.Time) (data.HourlyMetric, error) {
	starting, err := a.Events.StartingOccupancy(ctx, z.ID, h)
	if err != nil {
		return data.HourlyMetric{}, err
	}

	inWindow, err := a.Events.EventsInWindow(ctx, z.ID, h, next)
	if err != nil {
		return data.HourlyMetric{}, err
	}

	avg, max := occupancyTimeline(starting, inWindow, h, next)

	dwellAvg, err := a.crossHourDwell(ctx, z.ID, h, next)
	if err != nil {
		return data.HourlyMetric{}, err
	}

	totalEntries := 0
	for _, e := range inWindow {
		if e.Event == data.EventEnter {
			totalEntries++
		}
	}

	return data.HourlyMetric{
		Ts:              h,
		ZoneID:          z.ID,
		AvgOccupancy:    avg,
		MaxOccupancy:    max,
		AvgDwellSeconds: dwellAvg,
		TotalEntries:    totalEntries,
	}, nil
}

// occupancyTimeline builds the stepwise occupancy function starting at
// `starting` and applying each in-hour event as a ±1 delta at its ts,
// returning the time-weighted average and the maximum (§4.F).
func occupancyTimeline(starting int, events []data.ZoneEvent, h, next time.Time) (avg, max float64) {
	occ := starting
	maxOcc := float64(starting)
	segmentStart := h
	var weightedSum float64

	advance := func(until time.Time) {
		duration := until.Sub(segmentStart).Seconds()
		if duration > 0 {
			weightedSum += float64(occ) * duration
		}
		segmentStart = until
	}

	sorted := append([]data.ZoneEvent(nil), events...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Ts.Before(sorted[j].Ts) })

	for _, e := range sorted {
		advance(e.Ts)
		switch e.Event {
		case data.EventEnter:
			occ++
		case data.EventExit:
			occ--
		}
		if float64(occ) > maxOcc {
			maxOcc = float64(occ)
		}
	}
	advance(next)

	return weightedSum / 3600, maxOcc
}

// crossHourDwell walks each track's alternating enter/exit sequence
// (every event before the end of the hour, plus every exit at or after
// it, ordered by track then ts — an enter near the hour boundary may
// only be closed by an exit in a later hour) and, for every enter matched
// to a later exit, attributes min(exit_ts, h+1) - max(enter_ts, h) to
// this hour when that overlap is positive (§4.F scenario 5).
func (a *Aggregator) crossHourDwell(ctx context.Context, zoneID string, h, next time.Time) (*float64, error) {
	events, err := a.Events.EventsForDwellPairing(ctx, zoneID, next)
	if err != nil {
		return nil, err
	}

	byTrack := make(map[int][]data.ZoneEvent)
	for _, e := range events {
		byTrack[e.TrackID] = append(byTrack[e.TrackID], e)
	}

	var contributions []float64
	for _, seq := range byTrack {
		var openEnter *data.ZoneEvent
		for i := range seq {
			e := seq[i]
			switch e.Event {
			case data.EventEnter:
				openEnter = &seq[i]
			case data.EventExit:
				if openEnter == nil {
					continue
				}
				start := openEnter.Ts
				if start.Before(h) {
					start = h
				}
				end := e.Ts
				if end.After(next) {
					end = next
				}
				if end.After(start) {
					contributions = append(contributions, end.Sub(start).Seconds())
				}
				openEnter = nil
			}
		}
	}

	if len(contributions) == 0 {
		return nil, nil
	}
	var sum float64
	for _, c := range contributions {
		sum += c
	}
	avg := sum / float64(len(contributions))
	return &avg, nil
}
