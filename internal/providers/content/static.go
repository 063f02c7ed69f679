// Package content supplies the articles embedded into rendered sites,
// either synthesized locally or fetched from NewsAPI.
package content

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/davmora/siteforge/internal/sitegen"
)

var headlineTemplates = []string{
	"Autoridades anuncian nuevas medidas en %s",
	"Crece el interés por %s en todo el país",
	"Expertos analizan el futuro de %s",
	"Lo que debes saber hoy sobre %s",
	"Claves para entender el momento actual de %s",
	"Informe especial: %s bajo la lupa",
	"Cinco datos que explican la situación de %s",
	"El impacto de %s en la vida diaria",
}

var summaryTemplates = []string{
	"Un repaso a los hechos más relevantes de la jornada y su contexto.",
	"Analistas coinciden en que el panorama podría cambiar en las próximas semanas.",
	"Las cifras oficiales muestran una tendencia que pocos anticipaban.",
	"Voces de distintos sectores opinan sobre los últimos acontecimientos.",
	"Esto es lo que se sabe hasta ahora y lo que falta por confirmar.",
	"El tema domina la conversación pública desde hace varios días.",
}

// StaticSource synthesizes deterministic articles without network access.
type StaticSource struct{}

// NewStatic returns an offline content source.
func NewStatic() *StaticSource { return &StaticSource{} }

// Articles produces n category-tagged articles. Output depends only on
// (category, n, seed).
func (s *StaticSource) Articles(_ context.Context, category string, n int, seed int64) ([]sitegen.Article, error) {
	if n <= 0 {
		return nil, nil
	}
	rng := rand.New(rand.NewSource(seed))
	articles := make([]sitegen.Article, 0, n)
	for i := 0; i < n; i++ {
		headline := headlineTemplates[rng.Intn(len(headlineTemplates))]
		summary := summaryTemplates[rng.Intn(len(summaryTemplates))]
		articles = append(articles, sitegen.Article{
			Title:    fmt.Sprintf(headline, category),
			Summary:  summary,
			Category: category,
		})
	}
	return articles, nil
}
