// Package memory provides in-memory Store and BlobSink implementations for
// development and testing. The conditional-update semantics mirror the
// Postgres store exactly.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/davmora/siteforge/internal/sitegen"
)

// Store keeps jobs and site records behind a mutex.
type Store struct {
	mu    sync.RWMutex
	jobs  map[string]sitegen.Job
	sites map[string]sitegen.SiteRecord
	clock sitegen.Clock
}

// NewStore constructs a Store.
func NewStore(clock sitegen.Clock) *Store {
	return &Store{
		jobs:  make(map[string]sitegen.Job),
		sites: make(map[string]sitegen.SiteRecord),
		clock: clock,
	}
}

// InsertJob stores a new job row.
func (s *Store) InsertJob(_ context.Context, job sitegen.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	s.jobs[job.ID] = job
	return nil
}

// GetJob fetches a job by ID.
func (s *Store) GetJob(_ context.Context, id string) (sitegen.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return sitegen.Job{}, sitegen.NewNotFoundError("job", id)
	}
	return job, nil
}

// ListJobs returns jobs newest-first.
func (s *Store) ListJobs(_ context.Context, page sitegen.Page) ([]sitegen.Job, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]sitegen.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		all = append(all, job)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, page), len(all), nil
}

// ConditionalUpdateJobStatus is the compare-and-swap over the status field.
// Returns sitegen.ErrNotClaimed when the current status differs from `from`.
func (s *Store) ConditionalUpdateJobStatus(_ context.Context, id string, from, to sitegen.JobStatus, upd sitegen.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status != from {
		return sitegen.ErrNotClaimed
	}
	job.Status = to
	job.UpdatedAt = s.clock.Now()
	if upd.IncrementAttempts {
		job.Attempts++
	}
	if upd.Result != nil {
		result := *upd.Result
		job.Result = &result
	}
	job.ErrorText = upd.ErrorText
	s.jobs[id] = job
	return nil
}

// ReclaimStale re-queues processing jobs whose last update is older than the
// threshold.
func (s *Store) ReclaimStale(_ context.Context, olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.clock.Now().Add(-olderThan)
	n := 0
	for id, job := range s.jobs {
		if job.Status == sitegen.JobStatusProcessing && job.UpdatedAt.Before(cutoff) {
			job.Status = sitegen.JobStatusQueued
			job.UpdatedAt = s.clock.Now()
			s.jobs[id] = job
			n++
		}
	}
	return n, nil
}

// InsertSite appends a site record.
func (s *Store) InsertSite(_ context.Context, site sitegen.SiteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sites[site.ID]; exists {
		return errors.New("site already exists")
	}
	s.sites[site.ID] = site
	return nil
}

// GetSite fetches a site record by ID.
func (s *Store) GetSite(_ context.Context, id string) (sitegen.SiteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.sites[id]
	if !ok {
		return sitegen.SiteRecord{}, sitegen.NewNotFoundError("site", id)
	}
	return site, nil
}

// ListSites returns matching sites newest-first plus the unpaged total.
func (s *Store) ListSites(_ context.Context, filter sitegen.SiteFilter, page sitegen.Page) ([]sitegen.SiteRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]sitegen.SiteRecord, 0, len(s.sites))
	for _, site := range s.sites {
		if filter.JobID != "" && site.JobID != filter.JobID {
			continue
		}
		if filter.Name != "" && !containsFold(site.Name, filter.Name) {
			continue
		}
		all = append(all, site)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, page), len(all), nil
}

// DeleteSite removes a site record and returns it so the caller can clean
// up the blob.
func (s *Store) DeleteSite(_ context.Context, id string) (sitegen.SiteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[id]
	if !ok {
		return sitegen.SiteRecord{}, sitegen.NewNotFoundError("site", id)
	}
	delete(s.sites, id)
	return site, nil
}

// SiteStats aggregates counts over all site records.
func (s *Store) SiteStats(_ context.Context, recentWindow time.Duration) (sitegen.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := sitegen.Stats{TotalSites: len(s.sites)}
	cutoff := s.clock.Now().Add(-recentWindow)
	var last time.Time
	for _, site := range s.sites {
		if site.CreatedAt.After(cutoff) {
			stats.RecentSites++
		}
		if site.CreatedAt.After(last) {
			last = site.CreatedAt
		}
	}
	stats.TotalArticles = stats.TotalSites * sitegen.ArticlesPerSiteEstimate
	if !last.IsZero() {
		stats.LastGeneration = &last
	}
	return stats, nil
}

func paginate[T any](all []T, page sitegen.Page) []T {
	if page.Size <= 0 {
		out := make([]T, len(all))
		copy(out, all)
		return out
	}
	start := page.Offset()
	if start >= len(all) {
		return []T{}
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}
	out := make([]T, end-start)
	copy(out, all[start:end])
	return out
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
