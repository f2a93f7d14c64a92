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

	"github.com/technosupport/zoneguard/internal/alert"
	"github.com/technosupport/zoneguard/internal/data"
	"github.com/technosupport/zoneguard/internal/metrics"
	"github.com/technosupport/zoneguard/internal/metricsnap"
)

func main() {
	db := connectDB()
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier, err := newNATSNotifier(envOr("NATS_URL", natsDefaultURL), envOr("NATS_ALERTS_SUBJECT", "zoneguard.alerts"))
	if err != nil {
		log.Fatalf("alerter: connect nats: %v", err)
	}
	defer notifier.Close()

	zoneModel := data.ZoneModel{DB: db}
	computer := &metricsnap.Computer{
		Events: data.EventModel{DB: db},
		Zones:  zoneModel,
	}

	collector := metrics.NewCollector(metrics.Config{})
	go collector.Start(ctx)
	go serveMetrics(envOr("ALERTER_METRICS_ADDR", ":8085"), collector)

	a := alert.New(computer, data.ThresholdModel{DB: db}, notifier)
	a.Metrics = alert.Metrics{Triggered: collector.AlertTriggered}

	log.Println("alerter: starting evaluation loop")
	a.Run(ctx)
	log.Println("alerter: shut down")
}

const natsDefaultURL = "nats://localhost:4222"

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
		log.Fatalf("alerter: open db: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("alerter: ping db: %v", err)
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
		log.Printf("alerter: metrics server error: %v", err)
	}
}
