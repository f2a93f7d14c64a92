// Package metrics holds the Metrics API: the SSE live-snapshot handler,
// the MJPEG relay, and the Prometheus telemetry collector for the pipeline
// as a whole (queue depth, ingest throughput, alert counts).
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// QueueDepths is polled by the Collector every tick; callers wire it to
// whichever queue client (Redis lists) backs frames_queue/detections_queue.
type QueueDepths interface {
	Len(ctx context.Context, key string) (int64, error)
}

type Config struct {
	Queues      QueueDepths
	FramesQueue string
	DetectQueue string
	ScrapeEvery time.Duration
}

// Collector exposes pipeline-wide telemetry on a Prometheus registry,
// mirroring the periodic-scrape Collector pattern the VMS backend uses for
// media-plane and SFU stats, repurposed here for queue/ingest/alert health.
type Collector struct {
	cfg      Config
	registry *prometheus.Registry

	mu           sync.RWMutex
	lastSnapshot time.Time

	queueDepth      *prometheus.GaugeVec
	framesCaptured  *prometheus.CounterVec
	framesDropped   *prometheus.CounterVec
	eventsEmitted   *prometheus.CounterVec
	eventsIngested  prometheus.Counter
	ingestBatchSize prometheus.Histogram
	ingestErrors    prometheus.Counter
	alertsTriggered *prometheus.CounterVec
}

func NewCollector(cfg Config) *Collector {
	if cfg.ScrapeEvery == 0 {
		cfg.ScrapeEvery = 2 * time.Second
	}
	reg := prometheus.NewRegistry()
	c := &Collector{cfg: cfg, registry: reg}

	c.queueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zoneguard_queue_depth",
		Help: "Current length of a durable pipeline queue",
	}, []string{"queue"})
	reg.MustRegister(c.queueDepth)

	c.framesCaptured = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zoneguard_frames_captured_total",
		Help: "Frames published to frames_queue",
	}, []string{"camera_id"})
	reg.MustRegister(c.framesCaptured)

	c.framesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zoneguard_frames_dropped_total",
		Help: "Frames reported dropped via FrameDropped (the frames_queue soft-cap trim in queue.Push is not counted)",
	}, []string{"camera_id"})
	reg.MustRegister(c.framesDropped)

	c.eventsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zoneguard_zone_events_emitted_total",
		Help: "Zone enter/exit events published to detections_queue",
	}, []string{"camera_id", "event"})
	reg.MustRegister(c.eventsEmitted)

	c.eventsIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zoneguard_zone_events_ingested_total",
		Help: "Zone events written into the event log by Ingest",
	})
	reg.MustRegister(c.eventsIngested)

	c.ingestBatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "zoneguard_ingest_batch_size",
		Help:    "Row count per Ingest flush",
		Buckets: []float64{1, 10, 50, 100, 150, 200},
	})
	reg.MustRegister(c.ingestBatchSize)

	c.ingestErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zoneguard_ingest_flush_errors_total",
		Help: "Batches that failed to persist after exhausting the retry budget",
	})
	reg.MustRegister(c.ingestErrors)

	c.alertsTriggered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zoneguard_alerts_triggered_total",
		Help: "Alerts triggered by the Alerter, by level, counted whether or not delivery succeeds",
	}, []string{"level"})
	reg.MustRegister(c.alertsTriggered)

	return c
}

func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.ScrapeEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) collect(ctx context.Context) {
	if c.cfg.Queues != nil {
		scrapeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if n, err := c.cfg.Queues.Len(scrapeCtx, c.cfg.FramesQueue); err == nil {
			c.queueDepth.WithLabelValues(c.cfg.FramesQueue).Set(float64(n))
		}
		if n, err := c.cfg.Queues.Len(scrapeCtx, c.cfg.DetectQueue); err == nil {
			c.queueDepth.WithLabelValues(c.cfg.DetectQueue).Set(float64(n))
		}
	}

	c.mu.Lock()
	c.lastSnapshot = time.Now()
	c.mu.Unlock()
}

func (c *Collector) FrameCaptured(cameraID string) { c.framesCaptured.WithLabelValues(cameraID).Inc() }
func (c *Collector) FrameDropped(cameraID string)  { c.framesDropped.WithLabelValues(cameraID).Inc() }
func (c *Collector) EventEmitted(cameraID, event string) {
	c.eventsEmitted.WithLabelValues(cameraID, event).Inc()
}
func (c *Collector) IngestFlushed(rows int) {
	c.eventsIngested.Add(float64(rows))
	c.ingestBatchSize.Observe(float64(rows))
}
func (c *Collector) IngestError()                { c.ingestErrors.Inc() }
func (c *Collector) AlertTriggered(level string) { c.alertsTriggered.WithLabelValues(level).Inc() }
