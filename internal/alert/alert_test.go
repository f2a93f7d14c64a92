package alert_test

import (
	"context"
	"testing"

	"github.com/technosupport/zoneguard/internal/alert"
	"github.com/technosupport/zoneguard/internal/data"
	"github.com/technosupport/zoneguard/internal/metricsnap"
)

type fakeThresholds struct {
	thresholds []data.JoinedThreshold
}

func (f *fakeThresholds) ListAllJoined(ctx context.Context) ([]data.JoinedThreshold, error) {
	return f.thresholds, nil
}

type fakeSnapshots struct {
	values map[string]int
}

func (f *fakeSnapshots) Snapshot(ctx context.Context, zoneID string) (metricsnap.ZoneSnapshot, error) {
	v := f.values[zoneID]
	return metricsnap.ZoneSnapshot{Occupancy: &v}, nil
}

type countingNotifier struct {
	count int
}

func (n *countingNotifier) Notify(ctx context.Context, subject, body string) error {
	n.count++
	return nil
}

// Scenario 4: occupancy trace 3,4,6,6,7,6,3,4,6 against threshold 5 crosses
// upward twice (3/4->6 and 4->6 again after returning to 3/4) and must
// produce exactly two notifications.
func TestAlerter_EdgeTriggeredCooldown(t *testing.T) {
	thresholds := &fakeThresholds{thresholds: []data.JoinedThreshold{
		{ZoneThreshold: data.ZoneThreshold{ZoneID: "zone-1", Metric: data.MetricOccupancy, Level: data.LevelWarning, Threshold: 5}},
	}}
	snap := &fakeSnapshots{values: map[string]int{}}
	notifier := &countingNotifier{}

	a := alert.New(snap, thresholds, notifier)
	trace := []int{3, 4, 6, 6, 7, 6, 3, 4, 6}

	for _, v := range trace {
		snap.values["zone-1"] = v
		if err := a.EvaluateOnce(context.Background()); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
	}

	if notifier.count != 2 {
		t.Fatalf("expected exactly 2 notifications, got %d", notifier.count)
	}
}

func TestAlerter_NoNotificationWhenBelowThreshold(t *testing.T) {
	thresholds := &fakeThresholds{thresholds: []data.JoinedThreshold{
		{ZoneThreshold: data.ZoneThreshold{ZoneID: "zone-1", Metric: data.MetricOccupancy, Level: data.LevelWarning, Threshold: 5}},
	}}
	snap := &fakeSnapshots{values: map[string]int{"zone-1": 2}}
	notifier := &countingNotifier{}

	a := alert.New(snap, thresholds, notifier)
	for i := 0; i < 3; i++ {
		if err := a.EvaluateOnce(context.Background()); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
	}

	if notifier.count != 0 {
		t.Fatalf("expected no notifications, got %d", notifier.count)
	}
}
