package configsync

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/technosupport/zoneguard/internal/crypto"
	"github.com/technosupport/zoneguard/internal/data"
)

// Run opens a single transaction, binds every repository to it, and syncs
// tree through a Syncer — committing only if every upsert and threshold
// replace succeeds (§4.G: "failures roll back the whole sync").
func Run(ctx context.Context, db *sql.DB, kr *crypto.Keyring, tree Tree) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin config sync transaction: %w", err)
	}
	defer tx.Rollback()

	syncer := &Syncer{
		Tenants:    data.TenantModel{DB: tx},
		Cameras:    data.CameraModel{DB: tx},
		Zones:      data.ZoneModel{DB: tx},
		Thresholds: data.ThresholdModel{DB: tx},
		Keyring:    NewKeyringAdapter(kr),
	}

	if err := syncer.Sync(ctx, tree); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit config sync transaction: %w", err)
	}
	return nil
}
