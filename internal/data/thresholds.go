package data

import "context"

type ThresholdModel struct {
	DB DBTX
}

// ReplaceForZone performs the delete-then-insert the config loader's atomic
// "replace thresholds" sync requires (§4.G). Callers run this against a
// *sql.Tx so the delete and the inserts commit or roll back together.
func (m ThresholdModel) ReplaceForZone(ctx context.Context, zoneID string, thresholds []ZoneThreshold) error {
	if _, err := m.DB.ExecContext(ctx, `DELETE FROM zone_thresholds WHERE zone_id = $1`, zoneID); err != nil {
		return err
	}
	for _, t := range thresholds {
		_, err := m.DB.ExecContext(ctx, `
			INSERT INTO zone_thresholds (zone_id, metric, level, threshold)
			VALUES ($1, $2, $3, $4)`, zoneID, t.Metric, t.Level, t.Threshold)
		if err != nil {
			return err
		}
	}
	return nil
}

func (m ThresholdModel) ListByZone(ctx context.Context, zoneID string) ([]ZoneThreshold, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT zone_id, metric, level, threshold FROM zone_thresholds WHERE zone_id = $1`, zoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanThresholds(rows)
}

// JoinedThreshold carries the zone/camera names the Alerter renders into
// notification bodies, avoiding a second round-trip per threshold.
type JoinedThreshold struct {
	ZoneThreshold
	ZoneName   string
	CameraID   string
	CameraName string
	TenantID   string
}

func (m ThresholdModel) ListAllJoined(ctx context.Context) ([]JoinedThreshold, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT t.zone_id, t.metric, t.level, t.threshold,
		       z.name, z.camera_id, z.tenant_id, c.name
		FROM zone_thresholds t
		JOIN zones z ON z.id = t.zone_id
		JOIN cameras c ON c.id = z.camera_id
		ORDER BY z.tenant_id, c.name, z.name, t.metric, t.level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JoinedThreshold
	for rows.Next() {
		var j JoinedThreshold
		if err := rows.Scan(&j.ZoneID, &j.Metric, &j.Level, &j.Threshold,
			&j.ZoneName, &j.CameraID, &j.TenantID, &j.CameraName); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func scanThresholds(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]ZoneThreshold, error) {
	var out []ZoneThreshold
	for rows.Next() {
		var t ZoneThreshold
		if err := rows.Scan(&t.ZoneID, &t.Metric, &t.Level, &t.Threshold); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
