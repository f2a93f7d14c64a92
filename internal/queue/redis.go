// Package queue implements the two durable FIFO queues external interface
// §6 calls for (frames_queue, detections_queue) as Redis lists: RPUSH to
// publish, BLPOP for the Worker's blocking dequeue, non-blocking LPOP for
// Ingest's drain loop, and a capped LTRIM for Capture's drop-oldest
// backpressure policy. Modeled on the Redis pipeline idioms the VMS
// backend's session manager and live-demand tracker use.
package queue

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Queue struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// Push appends a message to the tail of the queue and, in the same
// transaction, trims the head down to softCap if it has grown past it, so
// Capture's producer never blocks on a full queue (§4.A). The drop-oldest
// trim therefore runs inside the producer's Push call; the consumers
// (Worker, Ingest) do no trimming of their own.
func (q *Queue) Push(ctx context.Context, key string, payload []byte, softCap int64) error {
	pipe := q.rdb.TxPipeline()
	pipe.RPush(ctx, key, payload)
	if softCap > 0 {
		// LTRIM keeps the *last* softCap elements, i.e. drops the oldest.
		pipe.LTrim(ctx, key, -softCap, -1)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// BlockingPop pops from the head with the given timeout, mirroring the
// Worker's 30s blocking dequeue (§4.B, §5). Returns (nil, nil) on timeout.
func (q *Queue) BlockingPop(ctx context.Context, key string, timeout time.Duration) ([]byte, error) {
	res, err := q.rdb.BLPop(ctx, timeout, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// BLPop returns [key, value].
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

// NonBlockingPop is Ingest's drain primitive (§4.C): pop immediately,
// returning (nil, nil) when the queue is empty instead of blocking.
func (q *Queue) NonBlockingPop(ctx context.Context, key string) ([]byte, error) {
	res, err := q.rdb.LPop(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(res), nil
}

func (q *Queue) Len(ctx context.Context, key string) (int64, error) {
	return q.rdb.LLen(ctx, key).Result()
}

// SetLatestFrame implements the single-slot, last-writer-wins relay channel
// (§5, §9): a plain SET, not a queue, so the Metrics API's MJPEG relay
// always reads the most recent annotated frame regardless of how many
// frames Worker has produced since the last read.
func (q *Queue) SetLatestFrame(ctx context.Context, key string, jpeg []byte) error {
	return q.rdb.Set(ctx, key, jpeg, 0).Err()
}

func (q *Queue) GetLatestFrame(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := q.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}
