// Package pipeline implements the four-stage site generation pipeline and
// the orchestrator that sequences it for one job.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/davmora/siteforge/internal/sitegen"
)

// MetadataStage synthesizes per-index site metadata, or loads it verbatim
// from a saved snapshot when the job names one.
type MetadataStage struct {
	names  sitegen.NameSource
	blobs  sitegen.BlobSink
	logger *zap.Logger
}

// NewMetadataStage constructs the stage.
func NewMetadataStage(names sitegen.NameSource, blobs sitegen.BlobSink, logger *zap.Logger) *MetadataStage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetadataStage{names: names, blobs: blobs, logger: logger}
}

// SnapshotPath is where a job's fresh metadata snapshot is stored.
func SnapshotPath(name string) string {
	return "metadata/" + name
}

// Run produces one SiteMetadata per index. Both returned slices have length
// params.Quantity; errs[i] != nil marks index i failed. A snapshot load
// failure fails every index, since nothing downstream can proceed.
func (s *MetadataStage) Run(ctx context.Context, jobID string, params sitegen.JobParams) ([]sitegen.SiteMetadata, []error) {
	metas := make([]sitegen.SiteMetadata, params.Quantity)
	errs := make([]error, params.Quantity)

	if !params.GenerateFresh() {
		if err := s.load(ctx, params.MetadataFile, metas); err != nil {
			for i := range errs {
				errs[i] = err
			}
		}
		return metas, errs
	}

	for i := range metas {
		meta, err := s.synthesize(ctx, jobID, i)
		if err != nil {
			errs[i] = err
			continue
		}
		metas[i] = meta
	}

	s.saveSnapshot(ctx, jobID, metas, errs)
	return metas, errs
}

// synthesize derives every field from the (jobID, index) seed so a rerun
// yields byte-identical metadata.
func (s *MetadataStage) synthesize(ctx context.Context, jobID string, index int) (sitegen.SiteMetadata, error) {
	seed := sitegen.Seed(jobID, index)
	rng := rand.New(rand.NewSource(seed))

	name, err := s.names.SiteName(ctx, seed)
	if err != nil {
		return sitegen.SiteMetadata{}, fmt.Errorf("site name for index %d: %w", index, err)
	}

	categories := pickCategories(rng)
	palette := sitegen.Palettes[rng.Intn(len(sitegen.Palettes))]
	layout := sitegen.LayoutVariants[rng.Intn(len(sitegen.LayoutVariants))]
	header := sitegen.HeaderVariants[rng.Intn(len(sitegen.HeaderVariants))]
	nav := sitegen.NavVariants[rng.Intn(len(sitegen.NavVariants))]
	tld := sitegen.TLDs[rng.Intn(len(sitegen.TLDs))]

	return sitegen.SiteMetadata{
		Index:         index,
		Name:          name,
		Categories:    categories,
		Palette:       palette,
		LayoutVariant: layout,
		HeaderVariant: header,
		NavVariant:    nav,
		Domain:        DeriveDomain(name, tld),
		Availability:  sitegen.DomainUnknown,
	}, nil
}

func pickCategories(rng *rand.Rand) []string {
	n := 3 + rng.Intn(3)
	perm := rng.Perm(len(sitegen.Categories))
	out := make([]string, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, sitegen.Categories[idx])
	}
	return out
}

// DeriveDomain lowercases the site name, strips everything but letters and
// digits, and appends the TLD.
func DeriveDomain(name, tld string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'á':
			b.WriteRune('a')
		case r == 'é':
			b.WriteRune('e')
		case r == 'í':
			b.WriteRune('i')
		case r == 'ó':
			b.WriteRune('o')
		case r == 'ú', r == 'ü':
			b.WriteRune('u')
		case r == 'ñ':
			b.WriteRune('n')
		}
	}
	return b.String() + "." + tld
}

func (s *MetadataStage) load(ctx context.Context, file string, metas []sitegen.SiteMetadata) error {
	raw, err := s.blobs.Get(ctx, SnapshotPath(file))
	if err != nil {
		return sitegen.NewStorageError("load metadata snapshot", err)
	}
	var saved []sitegen.SiteMetadata
	if err := json.Unmarshal(raw, &saved); err != nil {
		return sitegen.NewStorageError("decode metadata snapshot", err)
	}
	if len(saved) < len(metas) {
		return sitegen.NewValidationError(
			fmt.Sprintf("metadata snapshot %q holds %d entries, %d requested", file, len(saved), len(metas)))
	}
	for i := range metas {
		metas[i] = saved[i]
		metas[i].Index = i
	}
	return nil
}

// saveSnapshot persists fresh metadata for later reuse. Best-effort: a
// failure here must not fail the job.
func (s *MetadataStage) saveSnapshot(ctx context.Context, jobID string, metas []sitegen.SiteMetadata, errs []error) {
	ok := make([]sitegen.SiteMetadata, 0, len(metas))
	for i, meta := range metas {
		if errs[i] == nil {
			ok = append(ok, meta)
		}
	}
	if len(ok) == 0 {
		return
	}
	raw, err := json.Marshal(ok)
	if err != nil {
		s.logger.Warn("marshal metadata snapshot failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	if _, err := s.blobs.Put(ctx, SnapshotPath(jobID+".json"), "application/json", raw); err != nil {
		s.logger.Warn("save metadata snapshot failed", zap.String("job_id", jobID), zap.Error(err))
	}
}
