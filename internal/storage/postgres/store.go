// Package postgres provides the pgx-backed Store implementation.
//
// Assumed schema:
//
//	CREATE TABLE jobs (
//	    id TEXT PRIMARY KEY,
//	    status TEXT NOT NULL,
//	    quantity INT NOT NULL,
//	    verify_domains BOOLEAN NOT NULL,
//	    metadata_file TEXT NOT NULL DEFAULT '',
//	    created_at TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL,
//	    attempts INT NOT NULL DEFAULT 0,
//	    result JSONB,
//	    error_text TEXT NOT NULL DEFAULT ''
//	);
//
//	CREATE TABLE sites (
//	    id TEXT PRIMARY KEY,
//	    job_id TEXT NOT NULL REFERENCES jobs(id),
//	    name TEXT NOT NULL,
//	    domain TEXT NOT NULL DEFAULT '',
//	    domain_available TEXT NOT NULL DEFAULT 'unknown',
//	    layout_variant TEXT NOT NULL,
//	    header_variant TEXT NOT NULL,
//	    nav_variant TEXT NOT NULL,
//	    palette JSONB NOT NULL,
//	    content_path TEXT NOT NULL,
//	    size_bytes BIGINT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/davmora/siteforge/internal/sitegen"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists jobs and sites in Postgres.
type Store struct {
	pool  dbConn
	clock sitegen.Clock
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config, clock sitegen.Clock) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, clock: clock}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for
// testing with pgxmock).
func NewWithPool(pool dbConn, clock sitegen.Clock) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool, clock: clock}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// InsertJob inserts the initial queued job row.
func (s *Store) InsertJob(ctx context.Context, job sitegen.Job) error {
	const query = `
INSERT INTO jobs (id, status, quantity, verify_domains, metadata_file, created_at, updated_at, attempts, error_text)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := s.pool.Exec(ctx, query,
		job.ID,
		string(job.Status),
		job.Params.Quantity,
		job.Params.VerifyDomains,
		job.Params.MetadataFile,
		job.CreatedAt,
		job.UpdatedAt,
		job.Attempts,
		job.ErrorText,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

const jobColumns = `id, status, quantity, verify_domains, metadata_file, created_at, updated_at, attempts, result, error_text`

// GetJob fetches a job by ID.
func (s *Store) GetJob(ctx context.Context, id string) (sitegen.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return sitegen.Job{}, sitegen.NewNotFoundError("job", id)
		}
		return sitegen.Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns jobs newest-first plus the unpaged total.
func (s *Store) ListJobs(ctx context.Context, page sitegen.Page) ([]sitegen.Job, int, error) {
	limit, offset := limitOffset(page)
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	jobs := []sitegen.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list jobs rows: %w", err)
	}
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}
	return jobs, total, nil
}

// ConditionalUpdateJobStatus performs the compare-and-swap transition. The
// WHERE clause on the current status is what makes concurrent claims safe:
// exactly one UPDATE can match.
func (s *Store) ConditionalUpdateJobStatus(ctx context.Context, id string, from, to sitegen.JobStatus, upd sitegen.StatusUpdate) error {
	var resultJSON any
	if upd.Result != nil {
		raw, err := json.Marshal(upd.Result)
		if err != nil {
			return fmt.Errorf("marshal job result: %w", err)
		}
		resultJSON = raw
	}
	bump := 0
	if upd.IncrementAttempts {
		bump = 1
	}
	const query = `
UPDATE jobs
SET status = $3,
    updated_at = $4,
    attempts = attempts + $5,
    result = COALESCE($6, result),
    error_text = $7
WHERE id = $1 AND status = $2`
	tag, err := s.pool.Exec(ctx, query,
		id, string(from), string(to), s.clock.Now(), bump, resultJSON, upd.ErrorText)
	if err != nil {
		return sitegen.NewStorageError("conditional job update", err)
	}
	if tag.RowsAffected() == 0 {
		return sitegen.ErrNotClaimed
	}
	return nil
}

// ReclaimStale re-queues processing jobs untouched since the cutoff.
func (s *Store) ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.clock.Now().Add(-olderThan)
	const query = `
UPDATE jobs
SET status = $1, updated_at = $2
WHERE status = $3 AND updated_at < $4`
	tag, err := s.pool.Exec(ctx, query,
		string(sitegen.JobStatusQueued), s.clock.Now(), string(sitegen.JobStatusProcessing), cutoff)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// InsertSite appends one site record.
func (s *Store) InsertSite(ctx context.Context, site sitegen.SiteRecord) error {
	paletteJSON, err := json.Marshal(site.Palette)
	if err != nil {
		return fmt.Errorf("marshal palette: %w", err)
	}
	const query = `
INSERT INTO sites (id, job_id, name, domain, domain_available, layout_variant, header_variant, nav_variant, palette, content_path, size_bytes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err = s.pool.Exec(ctx, query,
		site.ID,
		site.JobID,
		site.Name,
		site.Domain,
		string(site.Availability),
		site.LayoutVariant,
		site.HeaderVariant,
		site.NavVariant,
		paletteJSON,
		site.ContentPath,
		site.SizeBytes,
		site.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert site: %w", err)
	}
	return nil
}

const siteColumns = `id, job_id, name, domain, domain_available, layout_variant, header_variant, nav_variant, palette, content_path, size_bytes, created_at`

// GetSite fetches one site record.
func (s *Store) GetSite(ctx context.Context, id string) (sitegen.SiteRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = $1`, id)
	site, err := scanSite(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return sitegen.SiteRecord{}, sitegen.NewNotFoundError("site", id)
		}
		return sitegen.SiteRecord{}, fmt.Errorf("get site: %w", err)
	}
	return site, nil
}

// ListSites returns matching sites newest-first plus the unpaged total.
func (s *Store) ListSites(ctx context.Context, filter sitegen.SiteFilter, page sitegen.Page) ([]sitegen.SiteRecord, int, error) {
	limit, offset := limitOffset(page)
	const query = `
SELECT ` + siteColumns + `
FROM sites
WHERE ($1 = '' OR job_id = $1)
  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`
	rows, err := s.pool.Query(ctx, query, filter.JobID, filter.Name, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list sites: %w", err)
	}
	defer rows.Close()
	sites := []sitegen.SiteRecord{}
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list sites rows: %w", err)
	}
	const countQuery = `
SELECT COUNT(*)
FROM sites
WHERE ($1 = '' OR job_id = $1)
  AND ($2 = '' OR name ILIKE '%' || $2 || '%')`
	var total int
	if err := s.pool.QueryRow(ctx, countQuery, filter.JobID, filter.Name).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sites: %w", err)
	}
	return sites, total, nil
}

// DeleteSite removes a site row and returns the deleted record so the
// caller can remove the blob.
func (s *Store) DeleteSite(ctx context.Context, id string) (sitegen.SiteRecord, error) {
	row := s.pool.QueryRow(ctx, `DELETE FROM sites WHERE id = $1 RETURNING `+siteColumns, id)
	site, err := scanSite(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return sitegen.SiteRecord{}, sitegen.NewNotFoundError("site", id)
		}
		return sitegen.SiteRecord{}, fmt.Errorf("delete site: %w", err)
	}
	return site, nil
}

// SiteStats aggregates counts over the sites table.
func (s *Store) SiteStats(ctx context.Context, recentWindow time.Duration) (sitegen.Stats, error) {
	cutoff := s.clock.Now().Add(-recentWindow)
	const query = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE created_at > $1),
       MAX(created_at)
FROM sites`
	var stats sitegen.Stats
	var last *time.Time
	if err := s.pool.QueryRow(ctx, query, cutoff).Scan(&stats.TotalSites, &stats.RecentSites, &last); err != nil {
		return sitegen.Stats{}, fmt.Errorf("site stats: %w", err)
	}
	stats.TotalArticles = stats.TotalSites * sitegen.ArticlesPerSiteEstimate
	stats.LastGeneration = last
	return stats, nil
}

func limitOffset(page sitegen.Page) (int, int) {
	limit := page.Size
	if limit <= 0 {
		limit = 50
	}
	return limit, page.Offset()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (sitegen.Job, error) {
	var (
		job        sitegen.Job
		status     string
		resultJSON []byte
	)
	err := row.Scan(
		&job.ID,
		&status,
		&job.Params.Quantity,
		&job.Params.VerifyDomains,
		&job.Params.MetadataFile,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.Attempts,
		&resultJSON,
		&job.ErrorText,
	)
	if err != nil {
		return sitegen.Job{}, err
	}
	job.Status = sitegen.JobStatus(status)
	if len(resultJSON) > 0 {
		var result sitegen.JobResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return sitegen.Job{}, fmt.Errorf("decode job result: %w", err)
		}
		job.Result = &result
	}
	return job, nil
}

func scanSite(row rowScanner) (sitegen.SiteRecord, error) {
	var (
		site         sitegen.SiteRecord
		availability string
		paletteJSON  []byte
	)
	err := row.Scan(
		&site.ID,
		&site.JobID,
		&site.Name,
		&site.Domain,
		&availability,
		&site.LayoutVariant,
		&site.HeaderVariant,
		&site.NavVariant,
		&paletteJSON,
		&site.ContentPath,
		&site.SizeBytes,
		&site.CreatedAt,
	)
	if err != nil {
		return sitegen.SiteRecord{}, err
	}
	site.Availability = sitegen.DomainAvailability(availability)
	if len(paletteJSON) > 0 {
		if err := json.Unmarshal(paletteJSON, &site.Palette); err != nil {
			return sitegen.SiteRecord{}, fmt.Errorf("decode palette: %w", err)
		}
	}
	return site, nil
}
