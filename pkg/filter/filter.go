// Package filter defines the product-browsing filter state and its URL query codec.
//
// A filter field appears in the query string only when it differs from its
// default. Field order is fixed so that equal states always encode to the
// same bytes:
//
//	brands, colors, sizes, maxPrice, rating, onSale, materials, categories, page
//
// Example:
//
//	f := filter.Default()
//	f.Brands = []string{"Nike", "Zara"}
//	f.PriceRange.Max = 300
//	q := filter.Encode(f, 2) // "brands=Nike,Zara&maxPrice=300&page=2"
//
// The minimum price is not part of the query string. Decoding always yields
// PriceRange.Min == 0.
package filter

import (
	"slices"
	"strings"
)

const (
	// DefaultMaxPrice is the upper price bound when none is set.
	DefaultMaxPrice = 1000

	// MaxRating is the highest rating a filter can require.
	MaxRating = 5

	// FirstPage is the default pagination page.
	FirstPage = 1
)

// PriceRange bounds the effective product price, inclusive.
type PriceRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// State is the full set of product-browsing constraints.
type State struct {
	Brands     []string   `json:"brands"`
	Colors     []string   `json:"colors"`
	Sizes      []string   `json:"sizes"`
	PriceRange PriceRange `json:"priceRange"`
	Rating     int        `json:"rating"`
	OnSale     bool       `json:"onSale"`
	Materials  []string   `json:"materials"`
	Categories []string   `json:"categories"`
}

// Default returns the all-defaults filter state.
// Set fields are empty (non-nil) slices so JSON output is stable.
func Default() State {
	return State{
		Brands:     []string{},
		Colors:     []string{},
		Sizes:      []string{},
		PriceRange: PriceRange{Min: 0, Max: DefaultMaxPrice},
		Materials:  []string{},
		Categories: []string{},
	}
}

// Normalize returns a copy of s that satisfies the filter invariants.
//
// Set members are trimmed, empty members dropped and duplicates removed
// (first occurrence wins). Rating is clamped to [0, MaxRating]. Negative
// price bounds fall back to their defaults and Min is lowered to Max when
// it exceeds it.
func (s State) Normalize() State {
	out := State{
		Brands:     normalizeSet(s.Brands),
		Colors:     normalizeSet(s.Colors),
		Sizes:      normalizeSet(s.Sizes),
		PriceRange: s.PriceRange,
		Rating:     s.Rating,
		OnSale:     s.OnSale,
		Materials:  normalizeSet(s.Materials),
		Categories: normalizeSet(s.Categories),
	}

	if out.PriceRange.Max < 0 {
		out.PriceRange.Max = DefaultMaxPrice
	}
	if out.PriceRange.Min < 0 {
		out.PriceRange.Min = 0
	}
	if out.PriceRange.Min > out.PriceRange.Max {
		out.PriceRange.Min = out.PriceRange.Max
	}

	switch {
	case out.Rating < 0:
		out.Rating = 0
	case out.Rating > MaxRating:
		out.Rating = MaxRating
	}

	return out
}

// Valid reports whether s already satisfies the invariants
// (Min ≤ Max, rating within range).
func (s State) Valid() bool {
	return s.PriceRange.Min >= 0 &&
		s.PriceRange.Min <= s.PriceRange.Max &&
		s.Rating >= 0 && s.Rating <= MaxRating
}

// IsDefault reports whether s carries no constraint at all.
func (s State) IsDefault() bool {
	return s.Equal(Default())
}

// Equal reports whether two states hold the same constraints.
// Set fields compare by content and order; nil and empty are equal.
func (s State) Equal(o State) bool {
	return slices.Equal(s.Brands, o.Brands) &&
		slices.Equal(s.Colors, o.Colors) &&
		slices.Equal(s.Sizes, o.Sizes) &&
		s.PriceRange == o.PriceRange &&
		s.Rating == o.Rating &&
		s.OnSale == o.OnSale &&
		slices.Equal(s.Materials, o.Materials) &&
		slices.Equal(s.Categories, o.Categories)
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	s.Brands = cloneSet(s.Brands)
	s.Colors = cloneSet(s.Colors)
	s.Sizes = cloneSet(s.Sizes)
	s.Materials = cloneSet(s.Materials)
	s.Categories = cloneSet(s.Categories)
	return s
}

func normalizeSet(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func cloneSet(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}
