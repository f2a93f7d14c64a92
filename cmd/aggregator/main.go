package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/technosupport/zoneguard/internal/aggregate"
	"github.com/technosupport/zoneguard/internal/data"
)

func main() {
	hourFlag := flag.String("hour", "", "target local hour to aggregate, RFC3339 (defaults to the previous hour)")
	flag.Parse()

	db := connectDB()
	defer db.Close()

	agg, err := aggregate.New(data.EventModel{DB: db}, data.HourlyModel{DB: db}, data.ZoneModel{DB: db})
	if err != nil {
		log.Fatalf("aggregator: init: %v", err)
	}

	targetHour, err := resolveTargetHour(*hourFlag)
	if err != nil {
		log.Fatalf("aggregator: %v", err)
	}

	ctx := context.Background()
	if err := agg.RunHour(ctx, targetHour); err != nil {
		log.Fatalf("aggregator: run hour %s: %v", targetHour, err)
	}
	log.Printf("aggregator: aggregated hour %s", targetHour.Format(time.RFC3339))
}

func resolveTargetHour(raw string) (time.Time, error) {
	if raw == "" {
		loc, err := time.LoadLocation(aggregate.ReportingZone)
		if err != nil {
			return time.Time{}, err
		}
		return time.Now().In(loc).Add(-time.Hour), nil
	}
	return time.Parse(time.RFC3339, raw)
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
		log.Fatalf("aggregator: open db: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("aggregator: ping db: %v", err)
	}
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
