package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/davmora/siteforge/internal/metrics"
	"github.com/davmora/siteforge/internal/sitegen"
)

// DomainStage verifies candidate domains against an external provider. The
// provider is rate-limited, so lookups run through a fixed-size worker pool
// and a shared token bucket rather than full parallelism. A provider failure
// leaves availability at unknown and never fails the index.
type DomainStage struct {
	checker sitegen.DomainChecker
	retry   *sitegen.ExponentialRetryPolicy
	limiter *rate.Limiter
	workers int
	logger  *zap.Logger
}

// DomainStageConfig controls pool size and provider pacing.
type DomainStageConfig struct {
	Workers int
	RPS     float64
	Burst   int
}

// NewDomainStage constructs the stage.
func NewDomainStage(checker sitegen.DomainChecker, retry *sitegen.ExponentialRetryPolicy, cfg DomainStageConfig, logger *zap.Logger) *DomainStage {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retry == nil {
		retry = sitegen.NewExponentialRetryPolicy()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 3
	}
	limit := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &DomainStage{
		checker: checker,
		retry:   retry,
		limiter: rate.NewLimiter(limit, burst),
		workers: workers,
		logger:  logger,
	}
}

// Run checks every live index's candidate domain and records the tri-state
// result on the metadata in place. It returns the number of domains checked
// and how many were available.
func (s *DomainStage) Run(ctx context.Context, jobID string, metas []sitegen.SiteMetadata, errs []error) (verified, available int) {
	type task struct{ index int }
	tasks := make(chan task)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				result := s.check(ctx, jobID, metas[t.index].Domain)
				mu.Lock()
				metas[t.index].Availability = result
				verified++
				if result == sitegen.DomainAvailable {
					available++
				}
				mu.Unlock()
			}
		}()
	}

	for i := range metas {
		if errs[i] != nil || metas[i].Domain == "" {
			continue
		}
		select {
		case tasks <- task{index: i}:
		case <-ctx.Done():
			close(tasks)
			wg.Wait()
			return verified, available
		}
	}
	close(tasks)
	wg.Wait()
	return verified, available
}

// check performs one lookup with backoff on transient provider errors.
// Exhausted retries downgrade to unknown.
func (s *DomainStage) check(ctx context.Context, jobID, domain string) sitegen.DomainAvailability {
	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return sitegen.DomainUnknown
		}
		result, err := s.checker.CheckAvailability(ctx, domain)
		if err == nil {
			metrics.ObserveDomainCheck(string(result))
			return result
		}
		if !s.retry.ShouldRetry(err, attempt) {
			s.logger.Warn("domain check failed",
				zap.String("job_id", jobID),
				zap.String("domain", domain),
				zap.Int("attempts", attempt+1),
				zap.Error(err),
			)
			metrics.ObserveDomainCheck("error")
			return sitegen.DomainUnknown
		}
		backoff := s.retry.Backoff(attempt)
		select {
		case <-ctx.Done():
			return sitegen.DomainUnknown
		case <-time.After(backoff):
		}
	}
}
