package data

import (
	"context"
	"database/sql"
)

type CameraModel struct {
	DB DBTX
}

// Upsert is used by the config loader only; runtime components only read.
// RTSPURL/DEKWrapped are expected to already be envelope-encrypted by the
// caller (internal/crypto), never plaintext.
func (m CameraModel) Upsert(ctx context.Context, c Camera) error {
	query := `
		INSERT INTO cameras (id, tenant_id, name, location, rtsp_url, dek_wrapped, fps)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			name = EXCLUDED.name,
			location = EXCLUDED.location,
			rtsp_url = EXCLUDED.rtsp_url,
			dek_wrapped = EXCLUDED.dek_wrapped,
			fps = EXCLUDED.fps`
	_, err := m.DB.ExecContext(ctx, query, c.ID, c.TenantID, c.Name, c.Location, c.RTSPURL, c.DEKWrapped, c.FPS)
	return err
}

func (m CameraModel) Get(ctx context.Context, id string) (*Camera, error) {
	query := `SELECT id, tenant_id, name, location, rtsp_url, dek_wrapped, fps FROM cameras WHERE id = $1`
	var c Camera
	err := m.DB.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.TenantID, &c.Name, &c.Location, &c.RTSPURL, &c.DEKWrapped, &c.FPS)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (m CameraModel) ListByTenant(ctx context.Context, tenantID string) ([]Camera, error) {
	query := `SELECT id, tenant_id, name, location, rtsp_url, dek_wrapped, fps FROM cameras WHERE tenant_id = $1 ORDER BY name`
	rows, err := m.DB.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCameras(rows)
}

func (m CameraModel) List(ctx context.Context) ([]Camera, error) {
	query := `SELECT id, tenant_id, name, location, rtsp_url, dek_wrapped, fps FROM cameras ORDER BY tenant_id, name`
	rows, err := m.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCameras(rows)
}

func scanCameras(rows *sql.Rows) ([]Camera, error) {
	var out []Camera
	for rows.Next() {
		var c Camera
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Location, &c.RTSPURL, &c.DEKWrapped, &c.FPS); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
