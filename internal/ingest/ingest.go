// Package ingest drains detections_queue and persists events in batches
// (§4.C): non-blocking pop up to BatchSize, flush on a full batch or an
// empty queue, exponential backoff on recoverable store errors, and a
// longer cool-down after repeated consecutive failures.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/technosupport/zoneguard/internal/data"
	"github.com/technosupport/zoneguard/internal/queue"
	"github.com/technosupport/zoneguard/internal/worker"
)

const (
	BatchSize                   = 200
	LoopSleep                   = 200 * time.Millisecond
	BackoffBase                 = 2 * time.Second
	BackoffMaxAttempts          = 5
	ConsecutiveFailureThreshold = 10
	CooldownPeriod              = 10 * time.Second
)

// Store is the subset of EventModel Ingest needs, narrowed to an
// interface so tests can substitute a failing implementation without a
// real database.
type Store interface {
	InsertBatch(ctx context.Context, events []data.ZoneEvent) (int64, error)
}

// Metrics receives instrumentation callbacks; nil fields are skipped.
type Metrics struct {
	Flushed func(n int)
	Error   func()
}

// Tail receives each event as it's durably flushed, for the admin debug
// WebSocket (§"Supplemented features") to fan out to connected operators.
type Tail interface {
	Publish(e data.ZoneEvent)
}

// Ingest drains DetectionsQueueKey and flushes batches to Store.
type Ingest struct {
	Queue   *queue.Queue
	Store   Store
	Metrics Metrics

	// ErrCh receives an error whenever a batch permanently fails to
	// persist after exhausting retries — the pipeline must never
	// silently drop events (§4.C).
	ErrCh chan<- error

	// BackoffBase, MaxAttempts and Cooldown default to the §4.C values
	// (BackoffBase, BackoffMaxAttempts, CooldownPeriod) when zero; tests
	// override them to exercise retry/cooldown behavior without waiting
	// out real backoff delays.
	BackoffBase time.Duration
	MaxAttempts int
	Cooldown    time.Duration

	// Dedup, when set, drops events that look like a redelivery of one
	// already batched within the dedup window (nil disables the check).
	Dedup *Dedup

	// Tail, when set, is notified of every event in a batch once that
	// batch has been durably persisted.
	Tail Tail

	consecutiveFailures int
}

func (g *Ingest) backoffBase() time.Duration {
	if g.BackoffBase > 0 {
		return g.BackoffBase
	}
	return BackoffBase
}

func (g *Ingest) maxAttempts() int {
	if g.MaxAttempts > 0 {
		return g.MaxAttempts
	}
	return BackoffMaxAttempts
}

func (g *Ingest) cooldown() time.Duration {
	if g.Cooldown > 0 {
		return g.Cooldown
	}
	return CooldownPeriod
}

// Run drains and flushes until ctx is canceled.
func (g *Ingest) Run(ctx context.Context) {
	var batch []data.ZoneEvent

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		raw, err := g.Queue.NonBlockingPop(ctx, worker.DetectionsQueueKey)
		if err != nil {
			log.Printf("[ingest] dequeue error: %v", err)
			g.sleep(ctx, LoopSleep)
			continue
		}

		if raw == nil {
			if len(batch) > 0 {
				g.flush(ctx, batch)
				batch = nil
				continue
			}
			g.sleep(ctx, LoopSleep)
			continue
		}

		msg, err := queue.DecodeDetection(raw)
		if err != nil {
			log.Printf("[ingest] malformed detection message, dropped: %v", err)
			continue
		}
		evt, err := toZoneEvent(msg)
		if err != nil {
			log.Printf("[ingest] malformed detection timestamp, dropped: %v", err)
			continue
		}
		if g.Dedup != nil && g.Dedup.IsDuplicate(evt) {
			continue
		}
		batch = append(batch, evt)

		if len(batch) >= BatchSize {
			g.flush(ctx, batch)
			batch = nil
		}
	}
}

func toZoneEvent(msg queue.DetectionMessage) (data.ZoneEvent, error) {
	ts, err := time.Parse(time.RFC3339Nano, msg.Ts)
	if err != nil {
		return data.ZoneEvent{}, err
	}
	return data.ZoneEvent{
		TenantID:     msg.TenantID,
		CameraID:     msg.CameraID,
		ZoneID:       msg.ZoneID,
		TrackID:      msg.TrackID,
		Event:        msg.Event,
		Ts:           ts,
		DwellSeconds: msg.DwellSeconds,
	}, nil
}

// flush persists a batch, retrying recoverable failures with exponential
// backoff and escalating to a cool-down after repeated failures. A batch
// that never succeeds is sent to ErrCh as a *PermanentFlushError carrying
// its events.
func (g *Ingest) flush(ctx context.Context, batch []data.ZoneEvent) {
	backoff := g.backoffBase()
	maxAttempts := g.maxAttempts()
	for attempt := 0; attempt <= maxAttempts; attempt++ {
		n, err := g.Store.InsertBatch(ctx, batch)
		if err == nil {
			g.consecutiveFailures = 0
			if g.Metrics.Flushed != nil {
				g.Metrics.Flushed(int(n))
			}
			if g.Tail != nil {
				for _, e := range batch {
					g.Tail.Publish(e)
				}
			}
			return
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		if attempt == maxAttempts {
			break
		}
		log.Printf("[ingest] flush attempt %d failed, retrying in %s: %v", attempt+1, backoff, err)
		g.sleep(ctx, backoff)
		backoff *= 2
	}

	g.consecutiveFailures++
	if g.Metrics.Error != nil {
		g.Metrics.Error()
	}
	if g.ErrCh != nil {
		select {
		case g.ErrCh <- &PermanentFlushError{Events: batch}:
		case <-ctx.Done():
		}
	}

	if g.consecutiveFailures >= ConsecutiveFailureThreshold {
		cooldown := g.cooldown()
		log.Printf("[ingest] %d consecutive flush failures, cooling down for %s", g.consecutiveFailures, cooldown)
		g.sleep(ctx, cooldown)
	}
}

func (g *Ingest) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// PermanentFlushError is what ErrCh receives when a batch exhausts its
// retries; Events holds every event of that batch, none of which was
// persisted.
type PermanentFlushError struct {
	Events []data.ZoneEvent
}

func (e *PermanentFlushError) Error() string {
	return fmt.Sprintf("ingest: batch of %d events failed to persist after exhausting retries", len(e.Events))
}
