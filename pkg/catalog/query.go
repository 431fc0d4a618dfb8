package catalog

import (
	"math"
	"slices"
	"strings"

	"github.com/vango-dev/storefront/pkg/filter"
)

// DefaultPageSize is the listing page size used when none is given.
const DefaultPageSize = 12

// Page is one page of a filtered product listing.
type Page struct {
	Products   []Product `json:"products"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalPages int       `json:"totalPages"`
}

// Matches reports whether p satisfies every constraint in f.
// Empty set constraints match everything.
func Matches(p Product, f filter.State) bool {
	if len(f.Brands) > 0 && !slices.Contains(f.Brands, p.Brand) {
		return false
	}
	if len(f.Colors) > 0 && !slices.Contains(f.Colors, p.Color) {
		return false
	}
	if len(f.Sizes) > 0 && !slices.ContainsFunc(p.Sizes, func(s string) bool {
		return slices.Contains(f.Sizes, s)
	}) {
		return false
	}
	if len(f.Materials) > 0 && !slices.Contains(f.Materials, p.Material) {
		return false
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, p.Category) {
		return false
	}

	price := p.EffectivePrice()
	if price < float64(f.PriceRange.Min) || price > float64(f.PriceRange.Max) {
		return false
	}
	if f.Rating > 0 && p.Rating < float64(f.Rating) {
		return false
	}
	if f.OnSale && !p.OnSale {
		return false
	}
	return true
}

// MatchesSearch reports whether p matches a free-text query on name, brand
// or category, case-insensitively. An empty query matches everything.
func MatchesSearch(p Product, query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), query) ||
		strings.Contains(strings.ToLower(p.Brand), query) ||
		strings.Contains(strings.ToLower(p.Category), query)
}

// Query filters products by f and search, then returns the requested page.
// The page number is clamped to [1, TotalPages]; an empty result has one
// empty page.
func Query(products []Product, f filter.State, search string, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	matched := make([]Product, 0, len(products))
	for _, p := range products {
		if Matches(p, f) && MatchesSearch(p, search) {
			matched = append(matched, p)
		}
	}

	totalPages := int(math.Ceil(float64(len(matched)) / float64(pageSize)))
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(matched))

	return Page{
		Products:   matched[start:end],
		Total:      len(matched),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// FacetSet lists the values a shopper can filter by.
type FacetSet struct {
	Brands     []string `json:"brands"`
	Colors     []string `json:"colors"`
	Sizes      []string `json:"sizes"`
	Materials  []string `json:"materials"`
	Categories []string `json:"categories"`
	MaxPrice   int      `json:"maxPrice"`
}

// Facets collects the distinct filterable values across products, sorted.
func Facets(products []Product) FacetSet {
	var fs FacetSet
	var maxPrice float64
	for _, p := range products {
		fs.Brands = appendUnique(fs.Brands, p.Brand)
		fs.Colors = appendUnique(fs.Colors, p.Color)
		for _, s := range p.Sizes {
			fs.Sizes = appendUnique(fs.Sizes, s)
		}
		fs.Materials = appendUnique(fs.Materials, p.Material)
		fs.Categories = appendUnique(fs.Categories, p.Category)
		maxPrice = max(maxPrice, p.EffectivePrice())
	}

	for _, s := range [][]string{fs.Brands, fs.Colors, fs.Sizes, fs.Materials, fs.Categories} {
		slices.Sort(s)
	}
	fs.MaxPrice = int(math.Ceil(maxPrice))
	return fs
}

func appendUnique(set []string, v string) []string {
	if v == "" || slices.Contains(set, v) {
		return set
	}
	return append(set, v)
}
