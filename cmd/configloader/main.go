package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/technosupport/zoneguard/internal/configsync"
	"github.com/technosupport/zoneguard/internal/crypto"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/default.yaml"
	}
	watch := os.Getenv("CONFIG_WATCH") == "true"

	db := connectDB()
	defer db.Close()

	kr := crypto.NewKeyring()
	if err := kr.LoadFromEnv(); err != nil {
		log.Fatalf("configloader: load keyring: %v", err)
	}

	if watch {
		w := &configsync.Watcher{Path: configPath, DB: db, Kr: kr}
		log.Printf("configloader: watching %s for changes", configPath)
		if err := w.Watch(context.Background()); err != nil {
			log.Fatalf("configloader: watch: %v", err)
		}
		return
	}

	tree, err := configsync.Load(configPath)
	if err != nil {
		log.Fatalf("configloader: load %s: %v", configPath, err)
	}
	if err := configsync.Run(context.Background(), db, kr, tree); err != nil {
		log.Fatalf("configloader: sync failed, rolled back: %v", err)
	}
	log.Println("configloader: sync committed")
}

func connectDB() *sql.DB {
	host := envOr("DB_HOST", "localhost")
	port := envOr("DB_PORT", "5432")
	user := os.Getenv("DB_USER")
	pass := os.Getenv("DB_PASSWORD")
	name := os.Getenv("DB_NAME")
	sslmode := envOr("DB_SSLMODE", "disable")

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, name, sslmode)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("configloader: open db: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("configloader: ping db: %v", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(2)
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
