// Package alert implements the threshold-based alerter (§4.E): every 30s,
// compute live per-zone metrics, compare them against configured
// thresholds, and deliver a notification on each upward crossing. The
// triggered-state map is process-local and edge-triggered, grounded on
// the same hysteresis shape the teacher used for service-health alerting.
package alert

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/technosupport/zoneguard/internal/data"
	"github.com/technosupport/zoneguard/internal/metricsnap"
)

// Interval is the Alerter's evaluation cadence (§4.E).
const Interval = 30 * time.Second

// ThresholdStore is the subset of ThresholdModel the Alerter needs.
type ThresholdStore interface {
	ListAllJoined(ctx context.Context) ([]data.JoinedThreshold, error)
}

// Notifier delivers a rendered alert body. Implementations (email, chat,
// paging) are external collaborators (§1, §6); this package only decides
// when to call Notify.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

type triggerKey struct {
	ZoneID string
	Metric string
	Level  string
}

// Metrics receives instrumentation callbacks; nil fields are skipped.
type Metrics struct {
	Triggered func(level string)
}

// Alerter owns the process-local triggered-state map.
type Alerter struct {
	Snapshots  metricsnap.Source
	Thresholds ThresholdStore
	Notifier   Notifier
	Metrics    Metrics

	triggered map[triggerKey]bool
}

func New(snapshots metricsnap.Source, thresholds ThresholdStore, notifier Notifier) *Alerter {
	return &Alerter{
		Snapshots:  snapshots,
		Thresholds: thresholds,
		Notifier:   notifier,
		triggered:  make(map[triggerKey]bool),
	}
}

// Run evaluates thresholds every Interval until ctx is canceled.
func (a *Alerter) Run(ctx context.Context) {
	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.EvaluateOnce(ctx); err != nil {
				log.Printf("[alert] evaluation error: %v", err)
			}
		}
	}
}

// EvaluateOnce runs a single threshold evaluation pass (§4.E steps 1-3),
// exported so callers and tests can drive it independently of the ticker.
func (a *Alerter) EvaluateOnce(ctx context.Context) error {
	thresholds, err := a.Thresholds.ListAllJoined(ctx)
	if err != nil {
		return fmt.Errorf("load thresholds: %w", err)
	}

	zoneIDs := make(map[string]bool, len(thresholds))
	for _, th := range thresholds {
		zoneIDs[th.ZoneID] = true
	}

	values := make(map[string]metricsnap.ZoneSnapshot, len(zoneIDs))
	for zoneID := range zoneIDs {
		snap, err := a.Snapshots.Snapshot(ctx, zoneID)
		if err != nil {
			log.Printf("[alert] snapshot error for zone %s: %v", zoneID, err)
			continue
		}
		values[zoneID] = snap
	}

	for _, th := range thresholds {
		snap, ok := values[th.ZoneID]
		if !ok {
			continue
		}
		v, ok := snap.Value(th.Metric)
		if !ok {
			continue
		}
		a.evaluate(ctx, th, v)
	}
	return nil
}

func (a *Alerter) evaluate(ctx context.Context, th data.JoinedThreshold, v float64) {
	key := triggerKey{ZoneID: th.ZoneID, Metric: th.Metric, Level: th.Level}

	switch {
	case v > th.Threshold && !a.triggered[key]:
		a.triggered[key] = true
		if a.Metrics.Triggered != nil {
			a.Metrics.Triggered(th.Level)
		}
		subject, body := renderAlert(th, v)
		if err := a.Notifier.Notify(ctx, subject, body); err != nil {
			// Delivery failures are logged but the triggered state still
			// holds (§4.E) — a repeated delivery storm is worse than a
			// missed retry.
			log.Printf("[alert] delivery failed for zone=%s metric=%s level=%s: %v",
				th.ZoneID, th.Metric, th.Level, err)
		}
	case v <= th.Threshold && a.triggered[key]:
		delete(a.triggered, key)
	}
}

func renderAlert(th data.JoinedThreshold, v float64) (subject, body string) {
	subject = fmt.Sprintf("[%s] %s exceeded in %s / %s", th.Level, th.Metric, th.CameraName, th.ZoneName)
	body = fmt.Sprintf(
		"Zone %q on camera %q (tenant %s) has %s = %.2f, exceeding the %s threshold of %.2f.",
		th.ZoneName, th.CameraName, th.TenantID, th.Metric, v, th.Level, th.Threshold)
	return subject, body
}
