package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davmora/siteforge/internal/providers/names"
	"github.com/davmora/siteforge/internal/sitegen"
	memstore "github.com/davmora/siteforge/internal/storage/memory"
)

func TestMetadataSynthesisDeterministic(t *testing.T) {
	stage := NewMetadataStage(names.New(), memstore.NewBlobSink(), nil)
	params := sitegen.JobParams{Quantity: 4}

	first, errs := stage.Run(context.Background(), "job-1", params)
	for _, err := range errs {
		require.NoError(t, err)
	}
	second, errs := stage.Run(context.Background(), "job-1", params)
	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, first, second)

	other, _ := stage.Run(context.Background(), "job-2", params)
	require.NotEqual(t, first, other)
}

func TestMetadataFieldsDrawnFromCatalogs(t *testing.T) {
	stage := NewMetadataStage(names.New(), memstore.NewBlobSink(), nil)

	metas, errs := stage.Run(context.Background(), "job-1", sitegen.JobParams{Quantity: 10})
	for i, err := range errs {
		require.NoError(t, err, "index %d", i)
	}
	for i, meta := range metas {
		require.Equal(t, i, meta.Index)
		require.NotEmpty(t, meta.Name)
		require.Contains(t, sitegen.LayoutVariants, meta.LayoutVariant)
		require.Contains(t, sitegen.HeaderVariants, meta.HeaderVariant)
		require.Contains(t, sitegen.NavVariants, meta.NavVariant)
		require.GreaterOrEqual(t, len(meta.Categories), 3)
		require.LessOrEqual(t, len(meta.Categories), 5)
		require.Equal(t, sitegen.DomainUnknown, meta.Availability)
		require.NotEmpty(t, meta.Domain)
		require.NotContains(t, meta.Domain, " ")
	}
}

func TestMetadataSavesSnapshot(t *testing.T) {
	blobs := memstore.NewBlobSink()
	stage := NewMetadataStage(names.New(), blobs, nil)

	metas, _ := stage.Run(context.Background(), "job-1", sitegen.JobParams{Quantity: 3})

	raw, err := blobs.Get(context.Background(), SnapshotPath("job-1.json"))
	require.NoError(t, err)
	var saved []sitegen.SiteMetadata
	require.NoError(t, json.Unmarshal(raw, &saved))
	require.Equal(t, metas, saved)
}

func TestMetadataLoadsSnapshot(t *testing.T) {
	blobs := memstore.NewBlobSink()
	stage := NewMetadataStage(names.New(), blobs, nil)

	// Generate and persist a snapshot, then replay from it for a new job.
	original, _ := stage.Run(context.Background(), "job-1", sitegen.JobParams{Quantity: 3})

	metas, errs := stage.Run(context.Background(), "job-2",
		sitegen.JobParams{Quantity: 2, MetadataFile: "job-1.json"})
	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, metas, 2)
	require.Equal(t, original[0].Name, metas[0].Name)
	require.Equal(t, original[1].Name, metas[1].Name)
}

func TestMetadataMissingSnapshotFailsAllIndices(t *testing.T) {
	stage := NewMetadataStage(names.New(), memstore.NewBlobSink(), nil)

	_, errs := stage.Run(context.Background(), "job-1",
		sitegen.JobParams{Quantity: 3, MetadataFile: "missing.json"})
	require.Len(t, errs, 3)
	for _, err := range errs {
		require.Error(t, err)
	}
}

func TestMetadataShortSnapshotFailsAllIndices(t *testing.T) {
	blobs := memstore.NewBlobSink()
	stage := NewMetadataStage(names.New(), blobs, nil)

	stage.Run(context.Background(), "job-1", sitegen.JobParams{Quantity: 2})

	_, errs := stage.Run(context.Background(), "job-2",
		sitegen.JobParams{Quantity: 5, MetadataFile: "job-1.json"})
	for _, err := range errs {
		require.Error(t, err)
		require.True(t, sitegen.IsValidation(err))
	}
}

func TestDeriveDomain(t *testing.T) {
	tests := []struct {
		name string
		tld  string
		want string
	}{
		{"El Diario Nacional", "com", "eldiarionacional.com"},
		{"La Visión MX", "news", "lavisionmx.news"},
		{"Crónica Española", "mx", "cronicaespanola.mx"},
		{"MX360 Media", "info", "mx360media.info"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, DeriveDomain(tt.name, tt.tld))
	}
}
