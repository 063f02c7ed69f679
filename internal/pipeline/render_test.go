package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davmora/siteforge/internal/providers/content"
	"github.com/davmora/siteforge/internal/sitegen"
)

func renderMeta() sitegen.SiteMetadata {
	return sitegen.SiteMetadata{
		Index:         0,
		Name:          "El Diario Nacional",
		Categories:    []string{"nacional", "deportes"},
		Palette:       sitegen.Palettes[0],
		LayoutVariant: "classic_grid",
		HeaderVariant: "masthead_center",
		NavVariant:    "topbar",
		Domain:        "eldiarionacional.com",
	}
}

func TestRenderProducesDocument(t *testing.T) {
	stage := NewRenderStage(content.NewStatic(), 2, nil)

	doc, err := stage.Render(context.Background(), "job-1", renderMeta())
	require.NoError(t, err)

	html := string(doc)
	require.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	require.Contains(t, html, "El Diario Nacional")
	require.Contains(t, html, "--color-primary: "+sitegen.Palettes[0].Primary)
	require.Contains(t, html, `class="layout-classic"`)
	require.Contains(t, html, `class="masthead masthead-center"`)
	require.Contains(t, html, `class="nav-topbar"`)
	require.Contains(t, html, `id="nacional"`)
	require.Contains(t, html, `id="deportes"`)
}

func TestRenderEveryCatalogVariantHasFragment(t *testing.T) {
	stage := NewRenderStage(content.NewStatic(), 1, nil)

	for _, layout := range sitegen.LayoutVariants {
		for _, header := range sitegen.HeaderVariants {
			for _, nav := range sitegen.NavVariants {
				meta := renderMeta()
				meta.LayoutVariant = layout
				meta.HeaderVariant = header
				meta.NavVariant = nav
				_, err := stage.Render(context.Background(), "job-1", meta)
				require.NoError(t, err, "%s/%s/%s", layout, header, nav)
			}
		}
	}
}

func TestRenderUnknownVariantFails(t *testing.T) {
	stage := NewRenderStage(content.NewStatic(), 1, nil)

	meta := renderMeta()
	meta.LayoutVariant = "tabloid"
	_, err := stage.Render(context.Background(), "job-1", meta)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown layout variant")

	meta = renderMeta()
	meta.HeaderVariant = "neon"
	_, err = stage.Render(context.Background(), "job-1", meta)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown header variant")
}

func TestRenderDeterministicBytes(t *testing.T) {
	stage := NewRenderStage(content.NewStatic(), 3, nil)

	first, err := stage.Render(context.Background(), "job-1", renderMeta())
	require.NoError(t, err)
	second, err := stage.Render(context.Background(), "job-1", renderMeta())
	require.NoError(t, err)
	require.Equal(t, first, second)
}
