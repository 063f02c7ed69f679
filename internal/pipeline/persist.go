package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/davmora/siteforge/internal/sitegen"
)

// PersistStage writes the rendered document to the blob sink and inserts the
// site record. Failures affect only the current index; already-persisted
// indices are never rolled back.
type PersistStage struct {
	store  sitegen.Store
	blobs  sitegen.BlobSink
	idGen  sitegen.IDGenerator
	clock  sitegen.Clock
	prefix string
	logger *zap.Logger
}

// NewPersistStage constructs the stage.
func NewPersistStage(store sitegen.Store, blobs sitegen.BlobSink, idGen sitegen.IDGenerator, clock sitegen.Clock, prefix string, logger *zap.Logger) *PersistStage {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "sites"
	}
	return &PersistStage{store: store, blobs: blobs, idGen: idGen, clock: clock, prefix: prefix, logger: logger}
}

// SitePath keys the artifact by (jobID, index).
func (s *PersistStage) SitePath(jobID string, index int) string {
	prefix := strings.Trim(s.prefix, "/")
	return fmt.Sprintf("%s/%s/%d.html", prefix, jobID, index)
}

// Persist stores the document and inserts the site record, returning the
// persisted record.
func (s *PersistStage) Persist(ctx context.Context, jobID string, meta sitegen.SiteMetadata, doc []byte) (sitegen.SiteRecord, error) {
	path := s.SitePath(jobID, meta.Index)
	if _, err := s.blobs.Put(ctx, path, "text/html; charset=utf-8", doc); err != nil {
		return sitegen.SiteRecord{}, sitegen.NewStorageError("put site document", err)
	}

	id, err := s.idGen.NewID()
	if err != nil {
		return sitegen.SiteRecord{}, fmt.Errorf("generate site id: %w", err)
	}
	record := sitegen.SiteRecord{
		ID:            id,
		JobID:         jobID,
		Name:          meta.Name,
		Domain:        meta.Domain,
		Availability:  meta.Availability,
		LayoutVariant: meta.LayoutVariant,
		HeaderVariant: meta.HeaderVariant,
		NavVariant:    meta.NavVariant,
		Palette:       meta.Palette,
		ContentPath:   path,
		SizeBytes:     int64(len(doc)),
		CreatedAt:     s.clock.Now(),
	}
	if err := s.store.InsertSite(ctx, record); err != nil {
		return sitegen.SiteRecord{}, sitegen.NewStorageError("insert site record", err)
	}
	return record, nil
}
