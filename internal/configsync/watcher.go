package configsync

import (
	"context"
	"database/sql"
	"log"

	"github.com/fsnotify/fsnotify"

	"github.com/technosupport/zoneguard/internal/crypto"
)

// Watcher re-runs Run whenever the config file changes on disk, mirroring
// the license watcher's fsnotify reload loop the teacher used for its
// license file.
type Watcher struct {
	Path string
	DB   *sql.DB
	Kr   *crypto.Keyring
}

// Watch blocks until ctx is canceled, syncing once immediately and again
// on every subsequent write to Path.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := w.syncOnce(ctx); err != nil {
		log.Printf("[configsync] initial sync failed: %v", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.Path); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := w.syncOnce(ctx); err != nil {
				log.Printf("[configsync] reload sync failed: %v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[configsync] watcher error: %v", err)
		}
	}
}

func (w *Watcher) syncOnce(ctx context.Context) error {
	tree, err := Load(w.Path)
	if err != nil {
		return err
	}
	return Run(ctx, w.DB, w.Kr, tree)
}
