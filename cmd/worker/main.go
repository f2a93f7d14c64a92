package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/technosupport/zoneguard/internal/capture"
	"github.com/technosupport/zoneguard/internal/data"
	"github.com/technosupport/zoneguard/internal/metrics"
	"github.com/technosupport/zoneguard/internal/queue"
	"github.com/technosupport/zoneguard/internal/worker"
)

func main() {
	cameraID := os.Getenv("CAMERA_ID")
	if cameraID == "" {
		log.Fatal("worker: CAMERA_ID is required")
	}

	db := connectDB()
	defer db.Close()
	rdb := redis.NewClient(&redis.Options{Addr: envOr("REDIS_ADDR", "localhost:6379")})
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cameraModel := data.CameraModel{DB: db}
	zoneModel := data.ZoneModel{DB: db}

	cam, err := cameraModel.Get(ctx, cameraID)
	if err != nil {
		log.Fatalf("worker: load camera %s: %v", cameraID, err)
	}
	zoneList, err := zoneModel.ListByCamera(ctx, cameraID)
	if err != nil {
		log.Fatalf("worker: load zones for camera %s: %v", cameraID, err)
	}

	q := queue.New(rdb)
	collector := metrics.NewCollector(metrics.Config{Queues: q, FramesQueue: capture.FramesQueueKey, DetectQueue: worker.DetectionsQueueKey})
	go collector.Start(ctx)
	go serveMetrics(envOr("WORKER_METRICS_ADDR", ":8084"), collector)

	w := worker.New(cam.ID, cam.TenantID, newExternalDetector(), newExternalAnnotator(), q, zoneList)
	w.Metrics = worker.Metrics{EventEmitted: collector.EventEmitted}

	log.Printf("worker: starting for camera %s (%d zones)", cam.ID, len(zoneList))
	w.Run(ctx)
	log.Printf("worker: shutting down for camera %s", cam.ID)
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
		log.Fatalf("worker: open db: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("worker: ping db: %v", err)
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

func serveMetrics(addr string, collector *metrics.Collector) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Printf("worker: metrics server error: %v", err)
	}
}
