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
	"github.com/technosupport/zoneguard/internal/report"
)

func main() {
	startFlag := flag.String("start", "", "week start, RFC3339 (defaults to the start of the previous reporting week)")
	flag.Parse()

	db := connectDB()
	defer db.Close()

	j := &report.Job{
		Hourly:     data.HourlyModel{DB: db},
		Weekly:     data.WeeklyReportModel{DB: db},
		Summarizer: newExternalSummarizer(),
	}

	start, err := resolveWeekStart(*startFlag)
	if err != nil {
		log.Fatalf("report: %v", err)
	}

	ctx := context.Background()
	if err := j.Run(ctx, start); err != nil {
		log.Fatalf("report: run week starting %s: %v", start, err)
	}
	log.Printf("report: generated weekly report starting %s", start.Format(time.RFC3339))
}

func resolveWeekStart(raw string) (time.Time, error) {
	if raw == "" {
		loc, err := time.LoadLocation(aggregate.ReportingZone)
		if err != nil {
			return time.Time{}, err
		}
		now := time.Now().In(loc)
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		weekStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -daysSinceMonday)
		return weekStart.AddDate(0, 0, -7), nil
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
		log.Fatalf("report: open db: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("report: ping db: %v", err)
	}
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
