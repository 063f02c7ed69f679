package sitegen

import (
	"context"
	"time"
)

// StatusUpdate carries the optional fields written alongside a conditional
// status transition.
type StatusUpdate struct {
	Result            *JobResult
	ErrorText         string
	IncrementAttempts bool
}

// Store persists jobs and site records. All job mutations go through the
// conditional update, which is the sole cross-process synchronization
// primitive: an UPDATE guarded by the expected current status.
type Store interface {
	InsertJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, id string) (Job, error)
	ListJobs(ctx context.Context, page Page) ([]Job, int, error)

	// ConditionalUpdateJobStatus transitions id from one status to another
	// atomically. It returns ErrNotClaimed when zero rows match, meaning
	// another worker already moved the job past `from`.
	ConditionalUpdateJobStatus(ctx context.Context, id string, from, to JobStatus, upd StatusUpdate) error

	// ReclaimStale re-queues jobs stuck in processing longer than the
	// threshold, making them eligible for redelivery. Returns the number
	// of jobs reclaimed.
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error)

	InsertSite(ctx context.Context, site SiteRecord) error
	GetSite(ctx context.Context, id string) (SiteRecord, error)
	ListSites(ctx context.Context, filter SiteFilter, page Page) ([]SiteRecord, int, error)
	DeleteSite(ctx context.Context, id string) (SiteRecord, error)
	SiteStats(ctx context.Context, recentWindow time.Duration) (Stats, error)
}

// BlobSink stores rendered artifacts addressed by path and returns a locator.
type BlobSink interface {
	Put(ctx context.Context, path string, contentType string, data []byte) (string, error)
	Get(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// QueuePublisher sends job messages to the shared at-least-once queue.
type QueuePublisher interface {
	Send(ctx context.Context, msg JobMessage) error
}

// DomainChecker queries an external availability provider for one candidate
// domain. Failures surface as ProviderError.
type DomainChecker interface {
	CheckAvailability(ctx context.Context, domain string) (DomainAvailability, error)
}

// NameSource produces a site name for a seed. Implementations may call an
// external generation service or synthesize locally.
type NameSource interface {
	SiteName(ctx context.Context, seed int64) (string, error)
}

// ContentSource produces category-tagged articles for a site.
type ContentSource interface {
	Articles(ctx context.Context, category string, n int, seed int64) ([]Article, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job and site IDs.
type IDGenerator interface {
	NewID() (string, error)
}
