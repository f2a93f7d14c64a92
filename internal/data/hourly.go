package data

import (
	"context"
	"time"
)

type HourlyModel struct {
	DB DBTX
}

// Upsert makes the aggregation job idempotent (§4.F): re-running it for the
// same (ts, zone_id) overwrites the row rather than duplicating it.
func (m HourlyModel) Upsert(ctx context.Context, h HourlyMetric) error {
	query := `
		INSERT INTO hourly_metrics (ts, zone_id, avg_occupancy, max_occupancy, avg_dwell_seconds, total_entries)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ts, zone_id) DO UPDATE SET
			avg_occupancy = EXCLUDED.avg_occupancy,
			max_occupancy = EXCLUDED.max_occupancy,
			avg_dwell_seconds = EXCLUDED.avg_dwell_seconds,
			total_entries = EXCLUDED.total_entries`
	_, err := m.DB.ExecContext(ctx, query, h.Ts, h.ZoneID, h.AvgOccupancy, h.MaxOccupancy, h.AvgDwellSeconds, h.TotalEntries)
	return err
}

func (m HourlyModel) Get(ctx context.Context, ts time.Time, zoneID string) (*HourlyMetric, error) {
	query := `
		SELECT ts, zone_id, avg_occupancy, max_occupancy, avg_dwell_seconds, total_entries
		FROM hourly_metrics WHERE ts = $1 AND zone_id = $2`
	var h HourlyMetric
	err := m.DB.QueryRowContext(ctx, query, ts, zoneID).Scan(
		&h.Ts, &h.ZoneID, &h.AvgOccupancy, &h.MaxOccupancy, &h.AvgDwellSeconds, &h.TotalEntries)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (m HourlyModel) ListRange(ctx context.Context, from, to time.Time) ([]HourlyMetric, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT ts, zone_id, avg_occupancy, max_occupancy, avg_dwell_seconds, total_entries
		FROM hourly_metrics WHERE ts >= $1 AND ts < $2 ORDER BY ts, zone_id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HourlyMetric
	for rows.Next() {
		var h HourlyMetric
		if err := rows.Scan(&h.Ts, &h.ZoneID, &h.AvgOccupancy, &h.MaxOccupancy, &h.AvgDwellSeconds, &h.TotalEntries); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
