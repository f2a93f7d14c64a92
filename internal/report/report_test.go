package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/technosupport/zoneguard/internal/data"
	"github.com/technosupport/zoneguard/internal/report"
)

type fakeHourly struct {
	rows []data.HourlyMetric
}

func (f *fakeHourly) ListRange(ctx context.Context, from, to time.Time) ([]data.HourlyMetric, error) {
	return f.rows, nil
}

type fakeWeekly struct {
	upserted []data.WeeklyReport
}

func (f *fakeWeekly) Upsert(ctx context.Context, r data.WeeklyReport) error {
	f.upserted = append(f.upserted, r)
	return nil
}

type fakeSummarizer struct {
	markdown string
	err      error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, start, end time.Time, rows []data.HourlyMetric) (string, error) {
	return f.markdown, f.err
}

func TestJob_RunMarksPendingThenReady(t *testing.T) {
	hourly := &fakeHourly{rows: []data.HourlyMetric{{ZoneID: "zone-1", AvgOccupancy: 2}}}
	weekly := &fakeWeekly{}
	sum := &fakeSummarizer{markdown: "# Week summary"}

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	j := &report.Job{Hourly: hourly, Weekly: weekly, Summarizer: sum}

	if err := j.Run(context.Background(), start); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(weekly.upserted) != 2 {
		t.Fatalf("expected 2 upserts (pending, ready), got %d", len(weekly.upserted))
	}
	if weekly.upserted[0].Status != data.ReportStatusPending {
		t.Fatalf("expected first upsert pending, got %s", weekly.upserted[0].Status)
	}
	final := weekly.upserted[1]
	if final.Status != data.ReportStatusReady || final.LLMSummaryMarkdown != "# Week summary" {
		t.Fatalf("unexpected final record: %+v", final)
	}
	if !final.EndDate.Equal(start.AddDate(0, 0, 7)) {
		t.Fatalf("expected end date 7 days after start, got %v", final.EndDate)
	}
}

func TestJob_RunMarksFailedOnSummarizerError(t *testing.T) {
	hourly := &fakeHourly{}
	weekly := &fakeWeekly{}
	sum := &fakeSummarizer{err: context.DeadlineExceeded}

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	j := &report.Job{Hourly: hourly, Weekly: weekly, Summarizer: sum}

	if err := j.Run(context.Background(), start); err == nil {
		t.Fatal("expected an error from a failing summarizer")
	}

	final := weekly.upserted[len(weekly.upserted)-1]
	if final.Status != data.ReportStatusFailed {
		t.Fatalf("expected final status failed, got %s", final.Status)
	}
}
