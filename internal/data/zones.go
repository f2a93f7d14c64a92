package data

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"
)

type ZoneModel struct {
	DB DBTX
}

func encodePolygon(pts []Point) ([]byte, error) {
	return json.Marshal(pts)
}

func decodePolygon(raw []byte) ([]Point, error) {
	var pts []Point
	if len(raw) == 0 {
		return pts, nil
	}
	if err := json.Unmarshal(raw, &pts); err != nil {
		return nil, err
	}
	return pts, nil
}

// Upsert is used by the config loader only; runtime components only read.
func (m ZoneModel) Upsert(ctx context.Context, z Zone) error {
	polygon, err := encodePolygon(z.Polygon)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO zones (id, tenant_id, camera_id, name, polygon, metrics, ghost_timeout_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			camera_id = EXCLUDED.camera_id,
			name = EXCLUDED.name,
			polygon = EXCLUDED.polygon,
			metrics = EXCLUDED.metrics,
			ghost_timeout_minutes = EXCLUDED.ghost_timeout_minutes`
	_, err = m.DB.ExecContext(ctx, query, z.ID, z.TenantID, z.CameraID, z.Name, polygon, pq.Array(z.Metrics), z.GhostTimeoutMinutes)
	return err
}

func (m ZoneModel) Get(ctx context.Context, id string) (*Zone, error) {
	query := `SELECT id, tenant_id, camera_id, name, polygon, metrics, ghost_timeout_minutes FROM zones WHERE id = $1`
	row := m.DB.QueryRowContext(ctx, query, id)
	return scanZone(row)
}

func (m ZoneModel) ListByCamera(ctx context.Context, cameraID string) ([]Zone, error) {
	query := `SELECT id, tenant_id, camera_id, name, polygon, metrics, ghost_timeout_minutes FROM zones WHERE camera_id = $1 ORDER BY name`
	rows, err := m.DB.QueryContext(ctx, query, cameraID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanZones(rows)
}

func (m ZoneModel) List(ctx context.Context) ([]Zone, error) {
	query := `SELECT id, tenant_id, camera_id, name, polygon, metrics, ghost_timeout_minutes FROM zones ORDER BY tenant_id, camera_id, name`
	rows, err := m.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanZones(rows)
}

func scanZone(row *sql.Row) (*Zone, error) {
	var z Zone
	var polygon []byte
	var metrics pq.StringArray
	err := row.Scan(&z.ID, &z.TenantID, &z.CameraID, &z.Name, &polygon, &metrics, &z.GhostTimeoutMinutes)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	pts, err := decodePolygon(polygon)
	if err != nil {
		return nil, err
	}
	z.Polygon = pts
	z.Metrics = []string(metrics)
	return &z, nil
}

func scanZones(rows *sql.Rows) ([]Zone, error) {
	var out []Zone
	for rows.Next() {
		var z Zone
		var polygon []byte
		var metrics pq.StringArray
		if err := rows.Scan(&z.ID, &z.TenantID, &z.CameraID, &z.Name, &polygon, &metrics, &z.GhostTimeoutMinutes); err != nil {
			return nil, err
		}
		pts, err := decodePolygon(polygon)
		if err != nil {
			return nil, err
		}
		z.Polygon = pts
		z.Metrics = []string(metrics)
		out = append(out, z)
	}
	return out, rows.Err()
}
