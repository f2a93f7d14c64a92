// Package report generates the weekly LLM-authored narrative (§1, §4.F
// note, §9): it gathers the week's hourly metrics and hands them to an
// external LLM collaborator, then stores the resulting markdown summary.
// The LLM call itself is out of this module's scope (§6) — Summarizer is
// the boundary a real deployment wires to its model provider of choice.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/technosupport/zoneguard/internal/data"
)

// HourlyStore is the subset of HourlyModel the report job needs.
type HourlyStore interface {
	ListRange(ctx context.Context, from, to time.Time) ([]data.HourlyMetric, error)
}

// WeeklyStore is the subset of WeeklyReportModel the report job needs.
type WeeklyStore interface {
	Upsert(ctx context.Context, r data.WeeklyReport) error
}

// Summarizer turns a week's raw hourly rows into a markdown narrative.
// Implementations are external (an LLM API client); this package only
// decides what to ask for and when.
type Summarizer interface {
	Summarize(ctx context.Context, start, end time.Time, rows []data.HourlyMetric) (markdown string, err error)
}

// Job ties the weekly schedule to storage and the external summarizer.
type Job struct {
	Hourly     HourlyStore
	Weekly     WeeklyStore
	Summarizer Summarizer
	Now        func() time.Time
}

func (j *Job) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now().UTC()
}

// Run generates the report for the week [start, start+7d), marking it
// pending before the LLM call and ready or failed afterward so a caller
// polling WeeklyReport can observe progress.
func (j *Job) Run(ctx context.Context, start time.Time) error {
	end := start.AddDate(0, 0, 7)

	if err := j.Weekly.Upsert(ctx, data.WeeklyReport{
		StartDate: start, EndDate: end, Status: data.ReportStatusPending, GeneratedAt: j.now(),
	}); err != nil {
		return fmt.Errorf("mark report pending: %w", err)
	}

	rows, err := j.Hourly.ListRange(ctx, start, end)
	if err != nil {
		return j.fail(ctx, start, end, fmt.Errorf("load hourly metrics: %w", err))
	}

	markdown, err := j.Summarizer.Summarize(ctx, start, end, rows)
	if err != nil {
		return j.fail(ctx, start, end, fmt.Errorf("summarize: %w", err))
	}

	return j.Weekly.Upsert(ctx, data.WeeklyReport{
		StartDate: start, EndDate: end,
		LLMSummaryMarkdown: markdown, Status: data.ReportStatusReady, GeneratedAt: j.now(),
	})
}

func (j *Job) fail(ctx context.Context, start, end time.Time, cause error) error {
	_ = j.Weekly.Upsert(ctx, data.WeeklyReport{
		StartDate: start, EndDate: end, Status: data.ReportStatusFailed, GeneratedAt: j.now(),
	})
	return cause
}
