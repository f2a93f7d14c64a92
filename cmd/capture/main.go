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
	"github.com/technosupport/zoneguard/internal/crypto"
	"github.com/technosupport/zoneguard/internal/data"
	"github.com/technosupport/zoneguard/internal/metrics"
	"github.com/technosupport/zoneguard/internal/queue"
)

func main() {
	cameraID := os.Getenv("CAMERA_ID")
	if cameraID == "" {
		log.Fatal("capture: CAMERA_ID is required")
	}

	db := connectDB()
	defer db.Close()
	rdb := redis.NewClient(&redis.Options{Addr: envOr("REDIS_ADDR", "localhost:6379")})
	defer rdb.Close()

	kr := crypto.NewKeyring()
	if err := kr.LoadFromEnv(); err != nil {
		log.Fatalf("capture: load keyring: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cam, err := (data.CameraModel{DB: db}).Get(ctx, cameraID)
	if err != nil {
		log.Fatalf("capture: load camera %s: %v", cameraID, err)
	}
	rtspURL, err := crypto.OpenRTSPURL(kr, cam.TenantID, cam.ID, cam.RTSPURL, cam.DEKWrapped)
	if err != nil {
		log.Fatalf("capture: decrypt rtsp url: %v", err)
	}

	q := queue.New(rdb)
	collector := metrics.NewCollector(metrics.Config{Queues: q, FramesQueue: capture.FramesQueueKey})
	go collector.Start(ctx)
	go serveMetrics(envOr("CAPTURE_METRICS_ADDR", ":8083"), collector)

	puller := &capture.Puller{
		Source:  newExternalSource(),
		Queue:   q,
		Metrics: capture.Metrics{Captured: collector.FrameCaptured},
	}

	log.Printf("capture: starting for camera %s (fps=%d)", cam.ID, cam.FPS)
	puller.Run(ctx, *cam, rtspURL)
	log.Printf("capture: shutting down for camera %s", cam.ID)
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
		log.Fatalf("capture: open db: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("capture: ping db: %v", err)
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
		log.Printf("capture: metrics server error: %v", err)
	}
}
