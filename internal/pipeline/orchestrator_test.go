package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davmora/siteforge/internal/providers/content"
	"github.com/davmora/siteforge/internal/providers/names"
	"github.com/davmora/siteforge/internal/sitegen"
	memstore "github.com/davmora/siteforge/internal/storage/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type seqIDGen struct{ n int }

func (g *seqIDGen) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("site-%d", g.n), nil
}

type stubChecker struct {
	result sitegen.DomainAvailability
	err    error
	calls  int
}

func (c *stubChecker) CheckAvailability(_ context.Context, _ string) (sitegen.DomainAvailability, error) {
	c.calls++
	if c.err != nil {
		return sitegen.DomainUnknown, c.err
	}
	return c.result, nil
}

type failingContent struct{}

func (failingContent) Articles(_ context.Context, category string, _ int, _ int64) ([]sitegen.Article, error) {
	return nil, sitegen.NewProviderError("content", fmt.Errorf("no articles for %q", category))
}

// failingSiteStore fails InsertSite for artifacts whose path carries one of
// the given index suffixes.
type failingSiteStore struct {
	*memstore.Store
	failSuffixes []string
}

func (s *failingSiteStore) InsertSite(ctx context.Context, site sitegen.SiteRecord) error {
	for _, suffix := range s.failSuffixes {
		if strings.HasSuffix(site.ContentPath, suffix) {
			return errors.New("insert refused")
		}
	}
	return s.Store.InsertSite(ctx, site)
}

type orchestratorFixture struct {
	orchestrator *Orchestrator
	store        sitegen.Store
	memStore     *memstore.Store
	blobs        *memstore.BlobSink
	checker      *stubChecker
	content      sitegen.ContentSource
}

type fixtureOption func(*orchestratorFixture)

func withStore(store sitegen.Store) fixtureOption {
	return func(f *orchestratorFixture) { f.store = store }
}

func withContent(src sitegen.ContentSource) fixtureOption {
	return func(f *orchestratorFixture) { f.content = src }
}

func newOrchestratorFixture(t *testing.T, opts ...fixtureOption) *orchestratorFixture {
	t.Helper()
	clock := fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	f := &orchestratorFixture{
		memStore: memstore.NewStore(clock),
		blobs:    memstore.NewBlobSink(),
		checker:  &stubChecker{result: sitegen.DomainAvailable},
		content:  content.NewStatic(),
	}
	f.store = f.memStore
	for _, opt := range opts {
		opt(f)
	}

	f.orchestrator = NewOrchestrator(
		NewMetadataStage(names.New(), f.blobs, nil),
		NewDomainStage(f.checker, sitegen.NewRetryPolicy(2, time.Millisecond, 5*time.Millisecond),
			DomainStageConfig{Workers: 2}, nil),
		NewRenderStage(f.content, 2, nil),
		NewPersistStage(f.store, f.blobs, &seqIDGen{}, clock, "sites", nil),
		clock,
		nil,
	)
	return f
}

func TestOrchestratorAllSucceed(t *testing.T) {
	f := newOrchestratorFixture(t)

	result, status, errText := f.orchestrator.Run(context.Background(), "job-1",
		sitegen.JobParams{Quantity: 5, VerifyDomains: false})

	require.Equal(t, sitegen.JobStatusCompleted, status)
	require.Empty(t, errText)
	require.Equal(t, 5, result.SitesGenerated)
	require.Empty(t, result.FailedIndices)
	require.Zero(t, result.DomainsVerified)
	require.Zero(t, f.checker.calls)

	sites, total, err := f.memStore.ListSites(context.Background(), sitegen.SiteFilter{JobID: "job-1"}, sitegen.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	require.Equal(t, 5, total)
	for _, site := range sites {
		require.NotEmpty(t, site.Name)
		require.Greater(t, site.SizeBytes, int64(0))
	}
}

func TestOrchestratorPartialFailure(t *testing.T) {
	base := memstore.NewStore(fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)})
	store := &failingSiteStore{Store: base, failSuffixes: []string{"/2.html", "/4.html"}}
	f := newOrchestratorFixture(t, withStore(store))

	result, status, errText := f.orchestrator.Run(context.Background(), "job-1",
		sitegen.JobParams{Quantity: 5})

	require.Equal(t, sitegen.JobStatusCompletedWithErrors, status)
	require.Empty(t, errText)
	require.Equal(t, 3, result.SitesGenerated)
	require.Equal(t, []int{2, 4}, result.FailedIndices)
}

func TestOrchestratorTotalFailure(t *testing.T) {
	f := newOrchestratorFixture(t, withContent(failingContent{}))

	result, status, errText := f.orchestrator.Run(context.Background(), "job-1",
		sitegen.JobParams{Quantity: 3})

	require.Equal(t, sitegen.JobStatusFailed, status)
	require.NotEmpty(t, errText)
	require.Zero(t, result.SitesGenerated)
	require.Equal(t, []int{0, 1, 2}, result.FailedIndices)
}

func TestOrchestratorVerifiesDomains(t *testing.T) {
	f := newOrchestratorFixture(t)

	result, status, _ := f.orchestrator.Run(context.Background(), "job-1",
		sitegen.JobParams{Quantity: 4, VerifyDomains: true})

	require.Equal(t, sitegen.JobStatusCompleted, status)
	require.Equal(t, 4, result.DomainsVerified)
	require.Equal(t, 4, result.DomainsAvailable)
	require.Equal(t, 4, f.checker.calls)
}

func TestOrchestratorDeterministicArtifacts(t *testing.T) {
	run := func() map[string][]byte {
		f := newOrchestratorFixture(t)
		_, status, _ := f.orchestrator.Run(context.Background(), "job-det",
			sitegen.JobParams{Quantity: 3})
		require.Equal(t, sitegen.JobStatusCompleted, status)

		out := map[string][]byte{}
		for i := 0; i < 3; i++ {
			path := fmt.Sprintf("sites/job-det/%d.html", i)
			doc, err := f.blobs.Get(context.Background(), path)
			require.NoError(t, err)
			out[path] = doc
		}
		return out
	}

	first := run()
	second := run()
	require.Equal(t, first, second)
}
