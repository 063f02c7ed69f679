// Package names synthesizes plausible Spanish-language news-site names.
// Generation is fully deterministic for a given seed.
package names

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
)

var prefixes = []string{
	"El", "La", "Los", "Las",
	"Diario", "Periódico", "Informativo",
	"Noticias", "Crónica", "Reporte",
}

var cores = []string{
	"Nacional", "Universal", "Global", "Regional",
	"Actual", "Digital", "Express", "Directo",
	"Informador", "Observador", "Monitor", "Radar",
	"Tiempo", "Momento", "Ahora", "Hoy",
	"Verdad", "Realidad", "Contexto", "Perspectiva",
	"Horizonte", "Visión", "Enfoque", "Mirada",
	"Tribuna", "Vocero", "Altavoz", "Pulso",
}

var suffixes = []string{
	"Noticias", "News", "Info", "Press",
	"Media", "Report", "Daily", "Times",
	"Post", "Journal", "Herald", "Gazette",
	"Tribune", "Chronicle", "Bulletin", "Wire",
}

var modifiers = []string{
	"24", "24/7", "Online", "Digital",
	"Live", "Plus", "Pro", "Prime",
	"First", "Total", "Integral", "Central",
}

var regions = []string{
	"México", "MX", "Mexicano", "Azteca",
	"Latino", "Hispano", "Ibero", "América",
	"CDMX", "Bajío", "Norte", "Sur",
}

type styleFunc func(rng *rand.Rand) string

var styles = []styleFunc{
	classicStyle,
	modernStyle,
	technicalStyle,
	regionalStyle,
	compositeStyle,
	abbreviatedStyle,
	descriptiveStyle,
	innovativeStyle,
}

// Generator implements the NameSource contract with local synthesis.
type Generator struct{}

// New returns a name generator.
func New() *Generator { return &Generator{} }

// SiteName produces a name for the seed. The same seed always yields the
// same name, which is what makes job replays idempotent at this stage.
func (g *Generator) SiteName(_ context.Context, seed int64) (string, error) {
	rng := rand.New(rand.NewSource(seed))
	style := styles[rng.Intn(len(styles))]
	return style(rng), nil
}

// "El Diario Nacional"
func classicStyle(rng *rand.Rand) string {
	prefix := pick(rng, prefixes)
	core := pick(rng, cores)
	if rng.Float64() > 0.7 {
		return prefix + " " + core + " " + pick(rng, suffixes)
	}
	return prefix + " " + core
}

// "NotiMX Digital"
func modernStyle(rng *rand.Rand) string {
	base := pick(rng, cores)
	region := pick(rng, regions[:4])
	modifier := pick(rng, modifiers)
	options := []string{
		fmt.Sprintf("Noti%s %s", region, modifier),
		fmt.Sprintf("Info%s %s", region, base),
		fmt.Sprintf("%s%s %s", region, base, modifier),
		fmt.Sprintf("%s%s Online", base, region),
	}
	return pick(rng, options)
}

// "InfoPress24"
func technicalStyle(rng *rand.Rand) string {
	prefix := pick(rng, []string{"Info", "News", "Noti", "Press", "Media"})
	core := pick(rng, cores[:8])
	modifier := pick(rng, modifiers[:4])
	return strings.ReplaceAll(prefix+core+modifier, " ", "")
}

// "El Mexicano Hoy"
func regionalStyle(rng *rand.Rand) string {
	article := pick(rng, []string{"El", "La", "Los"})
	region := pick(rng, regions)
	when := pick(rng, []string{"Hoy", "Ahora", "Actual", "Digital"})
	options := []string{
		article + " " + region + " " + when,
		"Noticias " + region + " " + when,
		region + " " + when,
	}
	return pick(rng, options)
}

// "DiarioNacionalMX"
func compositeStyle(rng *rand.Rand) string {
	parts := []string{pick(rng, prefixes), pick(rng, cores), pick(rng, regions[:4])}
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(capitalize(p))
	}
	return b.String()
}

// "DNM News"
func abbreviatedStyle(rng *rand.Rand) string {
	words := []string{pick(rng, prefixes), pick(rng, cores), pick(rng, regions[:4])}
	var initials strings.Builder
	for _, w := range words {
		runes := []rune(w)
		initials.WriteString(strings.ToUpper(string(runes[0])))
	}
	return initials.String() + " " + pick(rng, suffixes)
}

// "Noticias de México"
func descriptiveStyle(rng *rand.Rand) string {
	base := pick(rng, []string{"Noticias", "Información", "Actualidad", "Reportes"})
	region := pick(rng, regions)
	options := []string{
		base + " de " + region,
		base + " " + region,
		region + " " + base,
	}
	return pick(rng, options)
}

// "MX360 Media"
func innovativeStyle(rng *rand.Rand) string {
	region := pick(rng, regions[:4])
	number := pick(rng, []string{"24", "360", "365", "7x24", "100"})
	kind := pick(rng, suffixes)
	options := []string{
		fmt.Sprintf("%s%s %s", region, number, kind),
		fmt.Sprintf("%s%s %s", number, region, kind),
		fmt.Sprintf("%s %s%s", region, number, kind),
	}
	return strings.ReplaceAll(pick(rng, options), " ", "")
}

func pick(rng *rand.Rand, items []string) string {
	return items[rng.Intn(len(items))]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}
