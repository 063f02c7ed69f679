// Package consumer receives delivered job messages, claims ownership, and
// drives the pipeline. The queue is at-least-once: a message may be
// redelivered after the visibility window or a crash, so every path here
// must be safe to replay.
package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/davmora/siteforge/internal/metrics"
	"github.com/davmora/siteforge/internal/sitegen"
)

// Outcome tells the transport how to settle a delivery.
type Outcome struct {
	Ack        bool
	RetryAfter time.Duration
}

// Ack acknowledges the delivery; the message is done.
func Ack() Outcome { return Outcome{Ack: true} }

// RetryAfter leaves the message unacknowledged for redelivery after d.
func RetryAfter(d time.Duration) Outcome { return Outcome{RetryAfter: d} }

// Handler settles one delivery. Queue transports adapt this to their own
// acknowledgment mechanics.
type Handler func(ctx context.Context, d Delivery) Outcome

// Delivery is one queue delivery: the raw payload plus the transport's
// delivery-attempt counter (1 on first delivery).
type Delivery struct {
	Body    []byte
	Attempt int
}

// Orchestrator runs the generation pipeline for a claimed job.
type Orchestrator interface {
	Run(ctx context.Context, jobID string, params sitegen.JobParams) (sitegen.JobResult, sitegen.JobStatus, string)
}

// Config controls consumer behavior.
type Config struct {
	// MaxAttempts caps delivery attempts; beyond it the job is forced to
	// failed instead of looping forever.
	MaxAttempts int
	// RetryDelay is the redelivery hint returned on transient store errors.
	RetryDelay time.Duration
}

// Consumer claims jobs and translates pipeline outcomes into ack/retry.
type Consumer struct {
	store        sitegen.Store
	orchestrator Orchestrator
	cfg          Config
	logger       *zap.Logger
}

// New constructs a Consumer.
func New(store sitegen.Store, orchestrator Orchestrator, cfg Config, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 30 * time.Second
	}
	return &Consumer{store: store, orchestrator: orchestrator, cfg: cfg, logger: logger}
}

// Handle processes one delivery end to end.
func (c *Consumer) Handle(ctx context.Context, d Delivery) Outcome {
	msg, err := decodeMessage(d.Body)
	if err != nil {
		// Malformed payloads are dropped, not retried: redelivery cannot
		// make them parse.
		c.logger.Warn("dropping malformed job message", zap.Error(err))
		return Ack()
	}

	log := c.logger.With(zap.String("job_id", msg.JobID))

	if d.Attempt > c.cfg.MaxAttempts {
		c.forceFail(ctx, msg.JobID, "redelivery attempts exhausted")
		log.Error("job exhausted redelivery attempts", zap.Int("attempt", d.Attempt))
		return Ack()
	}

	// Claim: queued -> processing, attempts+1. The conditional update is
	// the only synchronization across workers; zero rows means someone
	// else owns (or already finished) this job.
	err = c.store.ConditionalUpdateJobStatus(ctx, msg.JobID,
		sitegen.JobStatusQueued, sitegen.JobStatusProcessing,
		sitegen.StatusUpdate{IncrementAttempts: true})
	if err != nil {
		if isNotClaimed(err) {
			log.Debug("claim refused, job already claimed or terminal")
			return Ack()
		}
		log.Error("claim failed", zap.Error(err))
		return RetryAfter(c.cfg.RetryDelay)
	}

	metrics.IncActiveConsumers()
	result, status, errText := c.orchestrator.Run(ctx, msg.JobID, msg.Params)
	metrics.DecActiveConsumers()

	// The job must reach a terminal state before the ack; an acknowledged
	// message pointing at a processing job would strand it.
	err = c.store.ConditionalUpdateJobStatus(ctx, msg.JobID,
		sitegen.JobStatusProcessing, status,
		sitegen.StatusUpdate{Result: &result, ErrorText: errText})
	if err != nil {
		if isNotClaimed(err) {
			// Someone moved the job out from under us (stale-job sweep
			// re-queued it). Our sites are persisted; the replay will
			// claim and rebuild. Nothing left to settle here.
			log.Warn("terminal update lost ownership race")
			return Ack()
		}
		log.Error("terminal status update failed", zap.Error(err))
		c.forceFail(ctx, msg.JobID, "terminal status write failed: "+err.Error())
		return RetryAfter(c.cfg.RetryDelay)
	}

	metrics.ObserveJob(string(status))
	log.Info("job finished",
		zap.String("status", string(status)),
		zap.Int("sites_generated", result.SitesGenerated),
		zap.Ints("failed_indices", result.FailedIndices),
		zap.Int64("elapsed_ms", result.ElapsedMs),
	)
	return Ack()
}

// forceFail writes a synthetic failed status from whichever non-terminal
// state the job is in. Best-effort.
func (c *Consumer) forceFail(ctx context.Context, jobID, reason string) {
	for _, from := range []sitegen.JobStatus{sitegen.JobStatusProcessing, sitegen.JobStatusQueued} {
		err := c.store.ConditionalUpdateJobStatus(ctx, jobID, from, sitegen.JobStatusFailed,
			sitegen.StatusUpdate{ErrorText: reason})
		if err == nil {
			metrics.ObserveJob(string(sitegen.JobStatusFailed))
			return
		}
		if !isNotClaimed(err) {
			c.logger.Error("force-fail write failed",
				zap.String("job_id", jobID), zap.Error(err))
			return
		}
	}
}

func isNotClaimed(err error) bool {
	return errors.Is(err, sitegen.ErrNotClaimed)
}

// decodeMessage enforces the closed JobMessage schema.
func decodeMessage(body []byte) (sitegen.JobMessage, error) {
	var msg sitegen.JobMessage
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&msg); err != nil {
		return sitegen.JobMessage{}, err
	}
	if err := msg.Validate(); err != nil {
		return sitegen.JobMessage{}, err
	}
	return msg, nil
}
