package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/technosupport/zoneguard/internal/capture"
	"github.com/technosupport/zoneguard/internal/data"
	"github.com/technosupport/zoneguard/internal/metrics"
	"github.com/technosupport/zoneguard/internal/metricsnap"
	zgmiddleware "github.com/technosupport/zoneguard/internal/middleware"
	"github.com/technosupport/zoneguard/internal/queue"
	"github.com/technosupport/zoneguard/internal/ratelimit"
	"github.com/technosupport/zoneguard/internal/worker"
)

// zoneIDLister adapts data.ZoneModel's List to the narrow ZoneLister
// interface the Metrics API's SSE handler depends on.
type zoneIDLister struct {
	zones data.ZoneModel
}

func (l zoneIDLister) ListZoneIDs(ctx context.Context) ([]string, error) {
	zoneList, err := l.zones.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(zoneList))
	for i, z := range zoneList {
		ids[i] = z.ID
	}
	return ids, nil
}

func main() {
	db := connectDB()
	defer db.Close()
	rdb := redis.NewClient(&redis.Options{Addr: envOr("REDIS_ADDR", "localhost:6379")})
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zoneModel := data.ZoneModel{DB: db}
	eventModel := data.EventModel{DB: db}

	computer := &metricsnap.Computer{Events: eventModel, Zones: zoneModel}
	handler := &metrics.Handler{
		Snapshots: computer,
		Zones:     zoneIDLister{zones: zoneModel},
		Queue:     queue.New(rdb),
	}

	limiter := ratelimit.NewLimiter(rdb, envOr("RATE_LIMIT_SALT", "zoneguard-metrics-api"))
	rl := zgmiddleware.NewRateLimit(limiter, ratelimit.LimitConfig{Rate: 20, Window: time.Minute, Burst: 5})

	allowedOrigins := strings.Split(envOr("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ",")

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID, chimiddleware.RealIP, zgmiddleware.RequestLogger, chimiddleware.Recoverer, chimiddleware.Timeout(60*time.Second))
	r.Use(zgmiddleware.CORS(allowedOrigins))

	r.Group(func(sr chi.Router) {
		sr.Use(rl.Limit)
		handler.Register(sr)
	})

	collector := metrics.NewCollector(metrics.Config{Queues: queue.New(rdb), FramesQueue: capture.FramesQueueKey, DetectQueue: worker.DetectionsQueueKey})
	go collector.Start(ctx)
	r.Mount("/metrics", collector.Handler())

	srv := &http.Server{Addr: envOr("METRICS_API_ADDR", ":8081"), Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("metrics-api: listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("metrics-api: server error: %v", err)
	}
	log.Println("metrics-api: shut down")
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
		log.Fatalf("metrics-api: open db: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("metrics-api: ping db: %v", err)
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
