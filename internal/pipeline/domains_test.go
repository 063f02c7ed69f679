package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davmora/siteforge/internal/sitegen"
)

type countingChecker struct {
	mu         sync.Mutex
	inFlight   int32
	maxSeen    int32
	perDomain  map[string]int
	transient  int
	result     sitegen.DomainAvailability
	resultFunc func(domain string, attempt int) (sitegen.DomainAvailability, error)
}

func (c *countingChecker) CheckAvailability(_ context.Context, domain string) (sitegen.DomainAvailability, error) {
	cur := atomic.AddInt32(&c.inFlight, 1)
	defer atomic.AddInt32(&c.inFlight, -1)
	for {
		prev := atomic.LoadInt32(&c.maxSeen)
		if cur <= prev || atomic.CompareAndSwapInt32(&c.maxSeen, prev, cur) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	c.mu.Lock()
	if c.perDomain == nil {
		c.perDomain = map[string]int{}
	}
	c.perDomain[domain]++
	attempt := c.perDomain[domain]
	c.mu.Unlock()

	if c.resultFunc != nil {
		return c.resultFunc(domain, attempt)
	}
	return c.result, nil
}

func metasForDomains(n int) ([]sitegen.SiteMetadata, []error) {
	metas := make([]sitegen.SiteMetadata, n)
	for i := range metas {
		metas[i] = sitegen.SiteMetadata{
			Index:        i,
			Domain:       fmt.Sprintf("sitio%d.news", i),
			Availability: sitegen.DomainUnknown,
		}
	}
	return metas, make([]error, n)
}

func TestDomainStageBoundedConcurrency(t *testing.T) {
	checker := &countingChecker{result: sitegen.DomainAvailable}
	stage := NewDomainStage(checker, sitegen.NewRetryPolicy(1, time.Millisecond, time.Millisecond),
		DomainStageConfig{Workers: 2}, nil)

	metas, errs := metasForDomains(12)
	verified, available := stage.Run(context.Background(), "job-1", metas, errs)

	require.Equal(t, 12, verified)
	require.Equal(t, 12, available)
	require.LessOrEqual(t, checker.maxSeen, int32(2))
	for _, meta := range metas {
		require.Equal(t, sitegen.DomainAvailable, meta.Availability)
	}
}

func TestDomainStageSkipsFailedIndices(t *testing.T) {
	checker := &countingChecker{result: sitegen.DomainAvailable}
	stage := NewDomainStage(checker, nil, DomainStageConfig{Workers: 2}, nil)

	metas, errs := metasForDomains(4)
	errs[1] = fmt.Errorf("metadata failed")
	metas[3].Domain = ""

	verified, _ := stage.Run(context.Background(), "job-1", metas, errs)
	require.Equal(t, 2, verified)
	require.Equal(t, sitegen.DomainUnknown, metas[1].Availability)
	require.Equal(t, sitegen.DomainUnknown, metas[3].Availability)
}

func TestDomainStageRetriesTransientThenSucceeds(t *testing.T) {
	checker := &countingChecker{
		resultFunc: func(_ string, attempt int) (sitegen.DomainAvailability, error) {
			if attempt == 1 {
				return sitegen.DomainUnknown, sitegen.NewTransientProviderError("whois", fmt.Errorf("rate limited"))
			}
			return sitegen.DomainUnavailable, nil
		},
	}
	stage := NewDomainStage(checker, sitegen.NewRetryPolicy(3, time.Millisecond, 2*time.Millisecond),
		DomainStageConfig{Workers: 1}, nil)

	metas, errs := metasForDomains(1)
	verified, available := stage.Run(context.Background(), "job-1", metas, errs)

	require.Equal(t, 1, verified)
	require.Zero(t, available)
	require.Equal(t, sitegen.DomainUnavailable, metas[0].Availability)
	require.Equal(t, 2, checker.perDomain["sitio0.news"])
}

func TestDomainStageExhaustedRetriesDowngradeToUnknown(t *testing.T) {
	checker := &countingChecker{
		resultFunc: func(_ string, _ int) (sitegen.DomainAvailability, error) {
			return sitegen.DomainUnknown, sitegen.NewTransientProviderError("whois", fmt.Errorf("still rate limited"))
		},
	}
	stage := NewDomainStage(checker, sitegen.NewRetryPolicy(2, time.Millisecond, 2*time.Millisecond),
		DomainStageConfig{Workers: 1}, nil)

	metas, errs := metasForDomains(1)
	verified, available := stage.Run(context.Background(), "job-1", metas, errs)

	// The lookup still counts as verified; its result is just unknown.
	require.Equal(t, 1, verified)
	require.Zero(t, available)
	require.Equal(t, sitegen.DomainUnknown, metas[0].Availability)
}

func TestDomainStagePermanentErrorDoesNotRetry(t *testing.T) {
	checker := &countingChecker{
		resultFunc: func(_ string, _ int) (sitegen.DomainAvailability, error) {
			return sitegen.DomainUnknown, sitegen.NewProviderError("whois", fmt.Errorf("forbidden"))
		},
	}
	stage := NewDomainStage(checker, sitegen.NewRetryPolicy(3, time.Millisecond, 2*time.Millisecond),
		DomainStageConfig{Workers: 1}, nil)

	metas, errs := metasForDomains(1)
	stage.Run(context.Background(), "job-1", metas, errs)

	require.Equal(t, 1, checker.perDomain["sitio0.news"])
	require.Equal(t, sitegen.DomainUnknown, metas[0].Availability)
}
