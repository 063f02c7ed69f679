package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davmora/siteforge/internal/sitegen"
	memstore "github.com/davmora/siteforge/internal/storage/memory"
)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type seqIDGen struct{ n int }

func (g *seqIDGen) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("id-%d", g.n), nil
}

type capturingPublisher struct {
	sent []sitegen.JobMessage
	err  error
}

func (p *capturingPublisher) Send(_ context.Context, msg sitegen.JobMessage) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, msg)
	return nil
}

type fixture struct {
	server    *Server
	store     *memstore.Store
	blobs     *memstore.BlobSink
	publisher *capturingPublisher
	clock     fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := memstore.NewStore(clock)
	blobs := memstore.NewBlobSink()
	publisher := &capturingPublisher{}
	server := NewServer(store, blobs, publisher, &seqIDGen{}, clock, Config{}, nil)
	return &fixture{server: server, store: store, blobs: blobs, publisher: publisher, clock: clock}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSubmitJobCreatesAndPublishes(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/sites/generate",
		map[string]any{"quantity": 5, "verifyDomains": true})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp generateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "queued", resp.Status)
	require.NotEmpty(t, resp.JobID)

	job, err := f.store.GetJob(context.Background(), resp.JobID)
	require.NoError(t, err)
	require.Equal(t, sitegen.JobStatusQueued, job.Status)
	require.Equal(t, 5, job.Params.Quantity)
	require.True(t, job.Params.VerifyDomains)

	require.Len(t, f.publisher.sent, 1)
	require.Equal(t, resp.JobID, f.publisher.sent[0].JobID)
}

func TestSubmitJobRejectsQuantityOutOfRange(t *testing.T) {
	f := newFixture(t)

	for _, quantity := range []int{0, -3, 101} {
		rec := f.do(t, http.MethodPost, "/api/sites/generate",
			map[string]any{"quantity": quantity})
		require.Equal(t, http.StatusBadRequest, rec.Code, "quantity %d", quantity)
	}
	require.Empty(t, f.publisher.sent)

	_, total, err := f.store.ListJobs(context.Background(), sitegen.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestSubmitJobRejectsInvalidJSON(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/sites/generate",
		bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitJobPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = fmt.Errorf("broker down")

	rec := f.do(t, http.MethodPost, "/api/sites/generate", map[string]any{"quantity": 3})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetJobNotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/jobs/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJobReturnsResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job := sitegen.Job{
		ID:        "job-1",
		Status:    sitegen.JobStatusCompletedWithErrors,
		Params:    sitegen.JobParams{Quantity: 5},
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
		Result: &sitegen.JobResult{
			SitesGenerated: 3,
			FailedIndices:  []int{1, 4},
		},
	}
	require.NoError(t, f.store.InsertJob(ctx, job))

	rec := f.do(t, http.MethodGet, "/api/jobs/job-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got jobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.True(t, got.Success)
	require.Equal(t, sitegen.JobStatusCompletedWithErrors, got.Job.Status)
	require.Equal(t, []int{1, 4}, got.Job.Result.FailedIndices)

	// The wire shape is part of the contract: camelCase field names under
	// a "job" key.
	require.Contains(t, rec.Body.String(), `"job":`)
	require.Contains(t, rec.Body.String(), `"createdAt":`)
	require.Contains(t, rec.Body.String(), `"updatedAt":`)
	require.Contains(t, rec.Body.String(), `"sitesGenerated":3`)
	require.Contains(t, rec.Body.String(), `"failedIndices":[1,4]`)
}

func seedSite(t *testing.T, f *fixture, id, jobID, name string) {
	t.Helper()
	path := "sites/" + jobID + "/" + id + ".html"
	_, err := f.blobs.Put(context.Background(), path, "text/html", []byte("<html></html>"))
	require.NoError(t, err)
	require.NoError(t, f.store.InsertSite(context.Background(), sitegen.SiteRecord{
		ID:          id,
		JobID:       jobID,
		Name:        name,
		ContentPath: path,
		CreatedAt:   f.clock.Now(),
	}))
}

func TestListSitesFiltersByName(t *testing.T) {
	f := newFixture(t)
	seedSite(t, f, "s1", "job-1", "El Diario Nacional")
	seedSite(t, f, "s2", "job-1", "La Voz Digital")
	seedSite(t, f, "s3", "job-2", "NotiMX Online")

	rec := f.do(t, http.MethodGet, "/api/sites?name=voz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp siteListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, 1, resp.Total)
	require.Len(t, resp.Sites, 1)
	require.Equal(t, "La Voz Digital", resp.Sites[0].Name)
	require.Contains(t, rec.Body.String(), `"sites":`)
}

func TestGetSite(t *testing.T) {
	f := newFixture(t)
	seedSite(t, f, "s1", "job-1", "El Diario Nacional")

	rec := f.do(t, http.MethodGet, "/api/sites/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/sites/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSiteRemovesRecordAndBlob(t *testing.T) {
	f := newFixture(t)
	seedSite(t, f, "s1", "job-1", "El Diario Nacional")
	require.Equal(t, 1, f.blobs.Len())

	rec := f.do(t, http.MethodDelete, "/api/sites/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, f.blobs.Len())

	rec = f.do(t, http.MethodDelete, "/api/sites/s1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSiteStats(t *testing.T) {
	f := newFixture(t)
	seedSite(t, f, "s1", "job-1", "El Diario Nacional")
	seedSite(t, f, "s2", "job-1", "La Voz Digital")

	rec := f.do(t, http.MethodGet, "/api/sites/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, 2, resp.Stats.TotalSites)
	require.Equal(t, 2*sitegen.ArticlesPerSiteEstimate, resp.Stats.TotalArticles)
	require.NotNil(t, resp.Stats.LastGeneration)
}

func TestResponsesCarrySuccessEnvelope(t *testing.T) {
	f := newFixture(t)
	seedSite(t, f, "s1", "job-1", "El Diario Nacional")
	require.NoError(t, f.store.InsertJob(context.Background(), sitegen.Job{
		ID:     "job-1",
		Status: sitegen.JobStatusQueued,
		Params: sitegen.JobParams{Quantity: 1},
	}))

	tests := []struct {
		path       string
		payloadKey string
	}{
		{"/api/jobs/job-1", "job"},
		{"/api/jobs", "jobs"},
		{"/api/sites", "sites"},
		{"/api/sites/s1", "site"},
		{"/api/sites/stats", "stats"},
	}
	for _, tt := range tests {
		rec := f.do(t, http.MethodGet, tt.path, nil)
		require.Equal(t, http.StatusOK, rec.Code, tt.path)

		var body map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), tt.path)
		require.Equal(t, json.RawMessage("true"), body["success"], tt.path)
		require.Contains(t, body, tt.payloadKey, tt.path)
	}

	rec := f.do(t, http.MethodGet, "/api/jobs/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	var errBody map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
	require.Equal(t, json.RawMessage("false"), errBody["success"])
	require.Contains(t, errBody, "error")
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", nil).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/readyz", nil).Code)
}
