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
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/technosupport/zoneguard/internal/capture"
	"github.com/technosupport/zoneguard/internal/data"
	"github.com/technosupport/zoneguard/internal/debug"
	"github.com/technosupport/zoneguard/internal/ingest"
	"github.com/technosupport/zoneguard/internal/metrics"
	zgmiddleware "github.com/technosupport/zoneguard/internal/middleware"
	"github.com/technosupport/zoneguard/internal/queue"
	"github.com/technosupport/zoneguard/internal/worker"
)

func main() {
	db := connectDB()
	defer db.Close()
	rdb := redis.NewClient(&redis.Options{Addr: envOr("REDIS_ADDR", "localhost:6379")})
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	q := queue.New(rdb)
	collector := metrics.NewCollector(metrics.Config{
		Queues:      q,
		FramesQueue: capture.FramesQueueKey,
		DetectQueue: worker.DetectionsQueueKey,
	})
	go collector.Start(ctx)

	errCh := make(chan error, 16)
	go func() {
		for err := range errCh {
			log.Printf("[ingest] permanent flush failure: %v", err)
		}
	}()

	tail := debug.NewEventTail()

	g := &ingest.Ingest{
		Queue: q,
		Store: data.EventModel{DB: db},
		Metrics: ingest.Metrics{
			Flushed: collector.IngestFlushed,
			Error:   collector.IngestError,
		},
		ErrCh: errCh,
		Dedup: ingest.NewDedup(ingest.DedupMaxKeys, ingest.DedupWindow),
		Tail:  tail,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID, chimiddleware.RealIP, zgmiddleware.RequestLogger, chimiddleware.Recoverer)
	r.Mount("/metrics", collector.Handler())
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/admin/ws/events", tail.ServeWS)

	srv := &http.Server{Addr: envOr("INGEST_ADDR", ":8082"), Handler: r}
	go func() {
		log.Printf("ingest: metrics server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("ingest: metrics server error: %v", err)
		}
	}()

	log.Println("ingest: starting batch loop")
	g.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	close(errCh)
	log.Println("ingest: shut down")
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
		log.Fatalf("ingest: open db: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("ingest: ping db: %v", err)
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
