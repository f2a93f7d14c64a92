// Package data holds the Postgres repositories for the analytics pipeline:
// tenants/cameras/zones/thresholds (owned by the config loader), the
// append-only zone_events log (owned by Ingest), and the hourly/weekly
// rollups (owned by the batch jobs).
package data

import (
	"context"
	"database/sql"
	"errors"
)

var ErrRecordNotFound = errors.New("record not found")

// DBTX is satisfied by both *sql.DB and *sql.Tx, so repositories can run
// either against the pool directly or inside a caller-managed transaction
// (the config loader's upsert-then-replace-thresholds sync needs the latter).
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}
