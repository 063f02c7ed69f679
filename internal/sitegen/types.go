// Package sitegen defines core types shared across subsystems.
package sitegen

import (
	"time"
)

// JobStatus represents the lifecycle state of a generation job.
type JobStatus string

// Job status values persisted in the store. Transitions are monotonic:
// queued -> processing -> {completed, completed_with_errors, failed}.
const (
	JobStatusQueued              JobStatus = "queued"
	JobStatusProcessing          JobStatus = "processing"
	JobStatusCompleted           JobStatus = "completed"
	JobStatusCompletedWithErrors JobStatus = "completed_with_errors"
	JobStatusFailed              JobStatus = "failed"
)

// IsTerminal reports whether the status ends the job lifecycle.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusCompletedWithErrors, JobStatusFailed:
		return true
	default:
		return false
	}
}

// Quantity bounds accepted by the submission API.
const (
	MinQuantity = 1
	MaxQuantity = 100
)

// JobParams captures per-job configuration knobs requested by the client.
type JobParams struct {
	Quantity      int    `json:"quantity"`
	VerifyDomains bool   `json:"verifyDomains"`
	MetadataFile  string `json:"metadataFile,omitempty"`
}

// GenerateFresh reports whether metadata is synthesized rather than loaded
// from a saved snapshot.
func (p JobParams) GenerateFresh() bool {
	return p.MetadataFile == ""
}

// Job represents the metadata persisted for each submitted batch request.
// Jobs are created by the submission API and mutated only through
// conditional status updates; they are never deleted.
type Job struct {
	ID        string     `json:"id"`
	Status    JobStatus  `json:"status"`
	Params    JobParams  `json:"params"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Attempts  int        `json:"attempts"`
	Result    *JobResult `json:"result,omitempty"`
	ErrorText string     `json:"error,omitempty"`
}

// JobResult aggregates per-index outcomes after the pipeline finishes.
// FailedIndices is always index-ascending.
type JobResult struct {
	SitesGenerated   int   `json:"sitesGenerated"`
	FailedIndices    []int `json:"failedIndices"`
	DomainsVerified  int   `json:"domainsVerified"`
	DomainsAvailable int   `json:"domainsAvailable"`
	ElapsedMs        int64 `json:"elapsedMs"`
}

// DomainAvailability is the tri-state outcome of a domain lookup.
type DomainAvailability string

// Availability values. Unknown covers both "verification disabled" and
// "provider failed after retries".
const (
	DomainUnknown     DomainAvailability = "unknown"
	DomainAvailable   DomainAvailability = "available"
	DomainUnavailable DomainAvailability = "unavailable"
)

// Palette holds the brand colors embedded into a rendered site.
type Palette struct {
	Name       string `json:"name"`
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Text       string `json:"text"`
	Background string `json:"background"`
}

// SiteMetadata is the stage-1 output for one site index: everything the
// rendering stage needs, fully determined by (jobID, index) when generated
// fresh.
type SiteMetadata struct {
	Index         int                `json:"index"`
	Name          string             `json:"name"`
	Categories    []string           `json:"categories"`
	Palette       Palette            `json:"palette"`
	LayoutVariant string             `json:"layout_variant"`
	HeaderVariant string             `json:"header_variant"`
	NavVariant    string             `json:"nav_variant"`
	Domain        string             `json:"domain"`
	Availability  DomainAvailability `json:"availability"`
}

// SiteRecord is the persisted descriptor of one successfully generated
// artifact. Records are append-only; deletion happens only through the
// explicit delete endpoint.
type SiteRecord struct {
	ID            string             `json:"id"`
	JobID         string             `json:"jobId"`
	Name          string             `json:"name"`
	Domain        string             `json:"domain,omitempty"`
	Availability  DomainAvailability `json:"domainAvailable"`
	LayoutVariant string             `json:"layoutVariant"`
	HeaderVariant string             `json:"headerVariant"`
	NavVariant    string             `json:"navVariant"`
	Palette       Palette            `json:"palette"`
	ContentPath   string             `json:"contentPath"`
	SizeBytes     int64              `json:"sizeBytes"`
	CreatedAt     time.Time          `json:"createdAt"`
}

// JobMessage is the queue payload: the job ID plus a full params snapshot so
// redelivery can proceed without a store read. The schema is closed; decoded
// messages are validated before any processing.
type JobMessage struct {
	JobID  string    `json:"jobId"`
	Params JobParams `json:"params"`
}

// Validate checks the message shape after decoding. Malformed messages are
// acknowledged and dropped rather than retried.
func (m JobMessage) Validate() error {
	if m.JobID == "" {
		return NewValidationError("job_id is required")
	}
	if m.Params.Quantity < MinQuantity || m.Params.Quantity > MaxQuantity {
		return NewValidationError("quantity out of range")
	}
	return nil
}

// Article is a category-tagged content unit embedded into a rendered site.
type Article struct {
	Title    string
	Summary  string
	Category string
}

// ArticlesPerSiteEstimate approximates articles per generated site for the
// stats endpoint.
const ArticlesPerSiteEstimate = 15

// Stats is the aggregate view returned by the stats endpoint.
type Stats struct {
	TotalSites     int        `json:"totalSites"`
	RecentSites    int        `json:"recentSites"`
	TotalArticles  int        `json:"totalArticles"`
	LastGeneration *time.Time `json:"lastGeneration,omitempty"`
}

// SiteFilter narrows site listings.
type SiteFilter struct {
	JobID string
	Name  string
}

// Page is a simple offset pagination request.
type Page struct {
	Number int
	Size   int
}

// Offset converts the page to a row offset.
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}
