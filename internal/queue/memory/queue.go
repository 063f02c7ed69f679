// Package memory implements an in-process job queue with at-least-once
// delivery semantics, used for local runs and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/davmora/siteforge/internal/consumer"
	"github.com/davmora/siteforge/internal/sitegen"
)

type envelope struct {
	body    []byte
	attempt int
}

// Queue is a buffered channel dressed up as an at-least-once queue:
// unacknowledged deliveries are re-enqueued with the attempt counter
// incremented.
type Queue struct {
	ch     chan envelope
	logger *zap.Logger

	mu     sync.Mutex
	timers map[*time.Timer]struct{}
}

// New creates a queue with the given buffer capacity.
func New(capacity int, logger *zap.Logger) *Queue {
	if capacity <= 0 {
		capacity = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		ch:     make(chan envelope, capacity),
		logger: logger,
		timers: make(map[*time.Timer]struct{}),
	}
}

// Send marshals and enqueues a job message as a first delivery.
func (q *Queue) Send(ctx context.Context, msg sitegen.JobMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal job message: %w", err)
	}
	select {
	case q.ch <- envelope{body: body, attempt: 1}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes deliveries with the given number of workers until ctx is
// canceled. Each delivery is settled through the handler's outcome: ack
// drops it, retry re-enqueues it after the requested delay.
func (q *Queue) Run(ctx context.Context, workers int, handle consumer.Handler) {
	if workers <= 0 {
		workers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.worker(ctx, handle)
		}()
	}
	wg.Wait()
	q.stopTimers()
}

func (q *Queue) worker(ctx context.Context, handle consumer.Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-q.ch:
			outcome := handle(ctx, consumer.Delivery{Body: env.body, Attempt: env.attempt})
			if outcome.Ack {
				continue
			}
			q.redeliver(env, outcome.RetryAfter)
		}
	}
}

// redeliver schedules the message again after the delay, bumping the
// attempt counter. A zero delay re-enqueues immediately.
func (q *Queue) redeliver(env envelope, after time.Duration) {
	next := envelope{body: env.body, attempt: env.attempt + 1}
	if after <= 0 {
		q.enqueue(next)
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	var timer *time.Timer
	timer = time.AfterFunc(after, func() {
		q.enqueue(next)
		q.mu.Lock()
		delete(q.timers, timer)
		q.mu.Unlock()
	})
	q.timers[timer] = struct{}{}
}

func (q *Queue) enqueue(env envelope) {
	select {
	case q.ch <- env:
	default:
		q.logger.Warn("queue full, dropping redelivery",
			zap.Int("attempt", env.attempt))
	}
}

func (q *Queue) stopTimers() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for t := range q.timers {
		t.Stop()
	}
	q.timers = make(map[*time.Timer]struct{})
}

// Len reports the number of buffered deliveries, for tests.
func (q *Queue) Len() int {
	return len(q.ch)
}
