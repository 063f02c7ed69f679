package sitegen

import (
	"hash/fnv"
	"strconv"
)

// Fixed finite catalogs the metadata stage draws variants from. Rendering
// keys template fragments by the (layout, header, nav) triple, so every
// value here must have a matching fragment.

// LayoutVariants are the structural page layouts.
var LayoutVariants = []string{
	"radio_m_professional",
	"milenio_style",
	"classic_grid",
	"magazine_style",
	"compact_list",
	"hero_mosaic",
	"broadsheet",
	"cards_masonry",
}

// HeaderVariants are the masthead treatments.
var HeaderVariants = []string{
	"masthead_center",
	"masthead_left",
	"compact_bar",
	"split_brand",
	"banner_tall",
}

// NavVariants are the navigation placements.
var NavVariants = []string{
	"topbar",
	"below_header",
	"sticky",
	"sidebar",
	"burger",
}

// Palettes are the predefined brand color sets for news sites.
var Palettes = []Palette{
	{Name: "professional_blue", Primary: "#2C3E50", Secondary: "#3498DB", Accent: "#E74C3C", Text: "#2C3E50", Background: "#ECF0F1"},
	{Name: "classic_black_red", Primary: "#1A1A1A", Secondary: "#C0392B", Accent: "#E67E22", Text: "#2C3E50", Background: "#FFFFFF"},
	{Name: "modern_green", Primary: "#27AE60", Secondary: "#16A085", Accent: "#F39C12", Text: "#2C3E50", Background: "#ECF0F1"},
	{Name: "elegant_purple", Primary: "#8E44AD", Secondary: "#9B59B6", Accent: "#E74C3C", Text: "#2C3E50", Background: "#F8F9FA"},
	{Name: "corporate_navy", Primary: "#34495E", Secondary: "#2980B9", Accent: "#E67E22", Text: "#2C3E50", Background: "#ECF0F1"},
	{Name: "minimal_gray", Primary: "#4A4A4A", Secondary: "#7F8C8D", Accent: "#E74C3C", Text: "#2C3E50", Background: "#FFFFFF"},
}

// TLDs are the candidate top-level domains for derived domain names.
var TLDs = []string{
	"com", "mx", "com.mx", "news",
	"info", "net", "org", "media",
	"press", "online", "digital", "today",
}

// Categories are the content sections a generated site carries.
var Categories = []string{
	"nacional", "internacional", "economia", "deportes",
	"tecnologia", "cultura", "salud", "espectaculos",
}

// Seed derives the deterministic per-index seed from (jobID, index).
// Identical inputs must always yield identical metadata bytes.
func Seed(jobID string, index int) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(jobID))
	_, _ = h.Write([]byte(":"))
	_, _ = h.Write([]byte(strconv.Itoa(index)))
	return int64(h.Sum64())
}
