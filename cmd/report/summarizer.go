package main

import (
	"context"
	"errors"
	"time"

	"github.com/technosupport/zoneguard/internal/data"
)

// externalSummarizer is the deployment-specific seam for the LLM narrative
// generator (§1: "the LLM reporting model itself" is explicitly external to
// this repository). Production builds replace this with a real client
// against whatever model provider the deployment uses.
type externalSummarizer struct{}

func newExternalSummarizer() *externalSummarizer {
	return &externalSummarizer{}
}

func (externalSummarizer) Summarize(ctx context.Context, start, end time.Time, rows []data.HourlyMetric) (string, error) {
	return "", errors.New("report: no LLM summarizer configured; wire in a real report.Summarizer")
}
