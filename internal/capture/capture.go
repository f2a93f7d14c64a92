// Package capture runs the per-camera RTSP pull loop (§4.A): read JPEG
// frames from a camera's stream, publish them to frames_queue, and
// reconnect with a fixed backoff when the stream drops. Decoding an actual
// RTSP transport is out of this module's scope (§6) — Source is the
// external collaborator boundary a real deployment wires to ffmpeg/gortsplib
// or similar.
package capture

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/technosupport/zoneguard/internal/data"
	"github.com/technosupport/zoneguard/internal/queue"
)

// Source yields JPEG-encoded frames for one camera's RTSP stream until the
// stream ends or the context is canceled. Implementations are external to
// this module.
type Source interface {
	// Open connects to the camera and returns a channel of JPEG frames.
	// The channel is closed when the stream ends (including on error); the
	// caller inspects the returned error only after the channel closes.
	Open(ctx context.Context, rtspURL string) (frames <-chan []byte, err <-chan error)
}

// ReconnectBackoff is the fixed delay between RTSP reconnect attempts
// (§4.A — a fixed backoff, not exponential, since transient camera-side
// drops are expected to clear within a few seconds).
const ReconnectBackoff = 5 * time.Second

const FramesQueueKey = "frames_queue"

// Metrics receives instrumentation callbacks; nil fields are skipped.
type Metrics struct {
	Captured func(cameraID string)
}

// Puller owns one camera's capture loop.
type Puller struct {
	Source  Source
	Queue   *queue.Queue
	Now     func() time.Time
	Metrics Metrics
}

// Run publishes JSON-wrapped JPEG frames from camera onto frames_queue
// until ctx is canceled, reconnecting after ReconnectBackoff whenever the
// stream drops. softCap bounds the queue at roughly 2*fps messages
// (§4.A), so a stalled Worker never makes Capture block: the oldest
// buffered frames are dropped instead of the producer stalling.
func (p *Puller) Run(ctx context.Context, cam data.Camera, rtspURL string) {
	softCap := int64(2 * cam.FPS)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := p.pullOnce(ctx, cam, rtspURL, softCap); err != nil {
			log.Printf("[capture] camera %s: %v, reconnecting in %s", cam.ID, err, ReconnectBackoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(ReconnectBackoff):
		}
	}
}

func (p *Puller) pullOnce(ctx context.Context, cam data.Camera, rtspURL string, softCap int64) error {
	frames, errs := p.Source.Open(ctx, rtspURL)

	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-frames:
			if !ok {
				return drainErr(errs)
			}
			if len(frame) == 0 {
				// A corrupt/empty frame is skipped silently (§4.A).
				continue
			}
			msg, err := queue.EncodeFrame(cam.ID, p.now(), frame)
			if err != nil {
				continue
			}
			if err := p.Queue.Push(ctx, FramesQueueKey, msg, softCap); err != nil {
				return fmt.Errorf("publish frame: %w", err)
			}
			if p.Metrics.Captured != nil {
				p.Metrics.Captured(cam.ID)
			}
		}
	}
}

func (p *Puller) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

func drainErr(errs <-chan error) error {
	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}
