package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/davmora/siteforge/internal/sitegen"
)

// RenderStage composes a self-contained document from the template fragment
// catalogs keyed by the metadata's variant triple. Rendering is CPU-bound;
// the only external call is the content source.
type RenderStage struct {
	content             sitegen.ContentSource
	articlesPerCategory int
	logger              *zap.Logger
}

// NewRenderStage constructs the stage.
func NewRenderStage(content sitegen.ContentSource, articlesPerCategory int, logger *zap.Logger) *RenderStage {
	if logger == nil {
		logger = zap.NewNop()
	}
	if articlesPerCategory <= 0 {
		articlesPerCategory = 3
	}
	return &RenderStage{content: content, articlesPerCategory: articlesPerCategory, logger: logger}
}

type renderSection struct {
	Category string
	Articles []sitegen.Article
}

type renderData struct {
	Meta     sitegen.SiteMetadata
	Palette  sitegen.Palette
	Sections []renderSection
}

// Render produces the document bytes for one index. Failures (unknown
// variant, missing content) fail only this index.
func (s *RenderStage) Render(ctx context.Context, jobID string, meta sitegen.SiteMetadata) ([]byte, error) {
	tmpl, err := composeTemplate(meta)
	if err != nil {
		return nil, err
	}

	seed := sitegen.Seed(jobID, meta.Index)
	sections := make([]renderSection, 0, len(meta.Categories))
	for _, category := range meta.Categories {
		articles, err := s.content.Articles(ctx, category, s.articlesPerCategory, seed)
		if err != nil {
			return nil, fmt.Errorf("content for category %q: %w", category, err)
		}
		sections = append(sections, renderSection{Category: category, Articles: articles})
	}

	var buf bytes.Buffer
	data := renderData{Meta: meta, Palette: meta.Palette, Sections: sections}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute site template: %w", err)
	}
	return buf.Bytes(), nil
}

// composeTemplate resolves the variant triple against the fragment catalogs.
func composeTemplate(meta sitegen.SiteMetadata) (*template.Template, error) {
	header, ok := headerFragments[meta.HeaderVariant]
	if !ok {
		return nil, fmt.Errorf("unknown header variant %q", meta.HeaderVariant)
	}
	nav, ok := navFragments[meta.NavVariant]
	if !ok {
		return nil, fmt.Errorf("unknown nav variant %q", meta.NavVariant)
	}
	layout, ok := layoutFragments[meta.LayoutVariant]
	if !ok {
		return nil, fmt.Errorf("unknown layout variant %q", meta.LayoutVariant)
	}

	tmpl, err := template.New("site").Parse(baseDocument)
	if err != nil {
		return nil, fmt.Errorf("parse base document: %w", err)
	}
	for _, fragment := range []string{header, nav, layout} {
		if _, err := tmpl.Parse(fragment); err != nil {
			return nil, fmt.Errorf("parse fragment: %w", err)
		}
	}
	return tmpl, nil
}
