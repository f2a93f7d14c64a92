package data

import (
	"context"
	"database/sql"
)

type TenantModel struct {
	DB DBTX
}

// Upsert inserts or renames a tenant. Called only by the config loader sync.
func (m TenantModel) Upsert(ctx context.Context, t Tenant) error {
	query := `
		INSERT INTO tenants (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`
	_, err := m.DB.ExecContext(ctx, query, t.ID, t.Name)
	return err
}

func (m TenantModel) Get(ctx context.Context, id string) (*Tenant, error) {
	query := `SELECT id, name FROM tenants WHERE id = $1`
	var t Tenant
	err := m.DB.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
