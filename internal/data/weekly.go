package data

import (
	"context"
	"database/sql"
	"time"
)

const (
	ReportStatusPending = "pending"
	ReportStatusReady   = "ready"
	ReportStatusFailed  = "failed"
)

type WeeklyReportModel struct {
	DB DBTX
}

func (m WeeklyReportModel) Upsert(ctx context.Context, r WeeklyReport) error {
	query := `
		INSERT INTO weekly_reports (start_date, end_date, llm_summary_markdown, status, generated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (start_date, end_date) DO UPDATE SET
			llm_summary_markdown = EXCLUDED.llm_summary_markdown,
			status = EXCLUDED.status,
			generated_at = EXCLUDED.generated_at`
	_, err := m.DB.ExecContext(ctx, query, r.StartDate, r.EndDate, r.LLMSummaryMarkdown, r.Status, r.GeneratedAt)
	return err
}

func (m WeeklyReportModel) Get(ctx context.Context, start, end time.Time) (*WeeklyReport, error) {
	query := `
		SELECT start_date, end_date, llm_summary_markdown, status, generated_at
		FROM weekly_reports WHERE start_date = $1 AND end_date = $2`
	var r WeeklyReport
	err := m.DB.QueryRowContext(ctx, query, start, end).Scan(
		&r.StartDate, &r.EndDate, &r.LLMSummaryMarkdown, &r.Status, &r.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
