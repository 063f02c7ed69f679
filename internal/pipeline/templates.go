package pipeline

// Template fragments keyed by variant. The metadata stage only emits
// variants present in the sitegen catalogs, and every catalog value has a
// fragment here; renderFragments verifies the triple before composing.

const baseDocument = `<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="layout" content="{{.Meta.LayoutVariant}}">
<title>{{.Meta.Name}}</title>
<style>
:root {
  --color-primary: {{.Palette.Primary}};
  --color-secondary: {{.Palette.Secondary}};
  --color-accent: {{.Palette.Accent}};
  --color-text: {{.Palette.Text}};
  --color-bg: {{.Palette.Background}};
}
body { margin: 0; color: var(--color-text); background: var(--color-bg); font-family: Georgia, serif; }
a { color: var(--color-secondary); }
.accent { color: var(--color-accent); }
</style>
</head>
<body>
{{template "header" .}}
{{template "nav" .}}
{{template "layout" .}}
<footer class="site-footer">
<p>&copy; {{.Meta.Name}} &mdash; {{.Meta.Domain}}</p>
</footer>
</body>
</html>
`

var headerFragments = map[string]string{
	"masthead_center": `{{define "header"}}<header class="masthead masthead-center">
<h1>{{.Meta.Name}}</h1>
<p class="tagline accent">Noticias al momento</p>
</header>{{end}}`,
	"masthead_left": `{{define "header"}}<header class="masthead masthead-left">
<h1>{{.Meta.Name}}</h1>
</header>{{end}}`,
	"compact_bar": `{{define "header"}}<header class="header-compact">
<span class="brand">{{.Meta.Name}}</span>
</header>{{end}}`,
	"split_brand": `{{define "header"}}<header class="header-split">
<div class="brand">{{.Meta.Name}}</div>
<div class="slot accent">{{.Meta.Domain}}</div>
</header>{{end}}`,
	"banner_tall": `{{define "header"}}<header class="header-banner">
<h1>{{.Meta.Name}}</h1>
<p class="subtitle">El portal de referencia</p>
</header>{{end}}`,
}

var navFragments = map[string]string{
	"topbar": `{{define "nav"}}<nav class="nav-topbar">
<ul>{{range .Meta.Categories}}<li><a href="#{{.}}">{{.}}</a></li>{{end}}</ul>
</nav>{{end}}`,
	"below_header": `{{define "nav"}}<nav class="nav-below">
<ul>{{range .Meta.Categories}}<li><a href="#{{.}}">{{.}}</a></li>{{end}}</ul>
</nav>{{end}}`,
	"sticky": `{{define "nav"}}<nav class="nav-sticky">
<ul>{{range .Meta.Categories}}<li><a href="#{{.}}">{{.}}</a></li>{{end}}</ul>
</nav>{{end}}`,
	"sidebar": `{{define "nav"}}<nav class="nav-sidebar">
<ul>{{range .Meta.Categories}}<li><a href="#{{.}}">{{.}}</a></li>{{end}}</ul>
</nav>{{end}}`,
	"burger": `{{define "nav"}}<nav class="nav-burger">
<button class="burger" aria-label="menu">&#9776;</button>
<ul class="hidden">{{range .Meta.Categories}}<li><a href="#{{.}}">{{.}}</a></li>{{end}}</ul>
</nav>{{end}}`,
}

const sectionList = `{{range .Sections}}<section id="{{.Category}}" class="category-section">
<h2>{{.Category}}</h2>
{{range .Articles}}<article class="card">
<h3>{{.Title}}</h3>
<p>{{.Summary}}</p>
</article>
{{end}}</section>
{{end}}`

var layoutFragments = map[string]string{
	"radio_m_professional": `{{define "layout"}}<main class="layout-radio-m" style="max-width:1070px">
<div class="grid" style="grid-template-columns:2fr 300px">
` + sectionList + `</div>
</main>{{end}}`,
	"milenio_style": `{{define "layout"}}<main class="layout-milenio" style="max-width:1070px">
<div class="grid" style="grid-template-columns:repeat(3,1fr)">
` + sectionList + `</div>
</main>{{end}}`,
	"classic_grid": `{{define "layout"}}<main class="layout-classic" style="max-width:1200px">
<div class="grid" style="grid-template-columns:2fr 1fr">
` + sectionList + `</div>
</main>{{end}}`,
	"magazine_style": `{{define "layout"}}<main class="layout-magazine" style="max-width:1400px">
<div class="grid masonry" style="grid-template-columns:1fr 1fr 1fr">
` + sectionList + `</div>
</main>{{end}}`,
	"compact_list": `{{define "layout"}}<main class="layout-compact" style="max-width:900px">
<div class="list">
` + sectionList + `</div>
</main>{{end}}`,
	"hero_mosaic": `{{define "layout"}}<main class="layout-hero" style="max-width:1200px">
<div class="hero"></div>
<div class="grid mosaic">
` + sectionList + `</div>
</main>{{end}}`,
	"broadsheet": `{{define "layout"}}<main class="layout-broadsheet" style="max-width:1280px">
<div class="columns" style="column-count:4">
` + sectionList + `</div>
</main>{{end}}`,
	"cards_masonry": `{{define "layout"}}<main class="layout-cards" style="max-width:1100px">
<div class="grid cards" style="grid-template-columns:repeat(auto-fill,minmax(280px,1fr))">
` + sectionList + `</div>
</main>{{end}}`,
}
