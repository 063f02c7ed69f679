package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/davmora/siteforge/internal/metrics"
	"github.com/davmora/siteforge/internal/sitegen"
)

// Orchestrator drives the four stages sequentially for one job and
// aggregates per-index outcomes into the final job status. Per-index
// failures are absorbed here and never propagate past this boundary.
type Orchestrator struct {
	metadata *MetadataStage
	domains  *DomainStage
	render   *RenderStage
	persist  *PersistStage
	clock    sitegen.Clock
	logger   *zap.Logger
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(
	metadata *MetadataStage,
	domains *DomainStage,
	render *RenderStage,
	persist *PersistStage,
	clock sitegen.Clock,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		metadata: metadata,
		domains:  domains,
		render:   render,
		persist:  persist,
		clock:    clock,
		logger:   logger,
	}
}

// Run executes the pipeline for jobID and returns the aggregated result,
// the terminal status, and the error text (set only when the status is
// failed, summarizing the first fatal cause by index order).
func (o *Orchestrator) Run(ctx context.Context, jobID string, params sitegen.JobParams) (sitegen.JobResult, sitegen.JobStatus, string) {
	start := o.clock.Now()

	stageStart := o.clock.Now()
	metas, errs := o.metadata.Run(ctx, jobID, params)
	metrics.ObserveStage("metadata", o.clock.Now().Sub(stageStart))

	var verified, available int
	if params.VerifyDomains {
		stageStart = o.clock.Now()
		verified, available = o.domains.Run(ctx, jobID, metas, errs)
		metrics.ObserveStage("domains", o.clock.Now().Sub(stageStart))
	}

	// Rendering and persistence touch no shared rate-limited resource, so
	// indices run in parallel; errs is index-sliced, no lock needed.
	stageStart = o.clock.Now()
	var wg sync.WaitGroup
	for i := range metas {
		if errs[i] != nil {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, err := o.render.Render(ctx, jobID, metas[i])
			if err != nil {
				errs[i] = fmt.Errorf("render index %d: %w", i, err)
				return
			}
			if _, err := o.persist.Persist(ctx, jobID, metas[i], doc); err != nil {
				errs[i] = fmt.Errorf("persist index %d: %w", i, err)
			}
		}(i)
	}
	wg.Wait()
	metrics.ObserveStage("render_persist", o.clock.Now().Sub(stageStart))

	result := sitegen.JobResult{
		FailedIndices:    []int{},
		DomainsVerified:  verified,
		DomainsAvailable: available,
		ElapsedMs:        o.clock.Now().Sub(start).Milliseconds(),
	}
	var firstFatal error
	for i, err := range errs {
		if err == nil {
			result.SitesGenerated++
			continue
		}
		result.FailedIndices = append(result.FailedIndices, i)
		if firstFatal == nil {
			firstFatal = err
		}
		o.logger.Warn("site generation failed",
			zap.String("job_id", jobID),
			zap.Int("index", i),
			zap.Error(err),
		)
	}
	metrics.AddSitesGenerated(result.SitesGenerated)

	status := sitegen.JobStatusCompleted
	errText := ""
	switch {
	case result.SitesGenerated == 0:
		status = sitegen.JobStatusFailed
		if firstFatal != nil {
			errText = firstFatal.Error()
		} else {
			errText = "no sites were generated"
		}
	case len(result.FailedIndices) > 0:
		status = sitegen.JobStatusCompletedWithErrors
	}
	return result, status, errText
}
