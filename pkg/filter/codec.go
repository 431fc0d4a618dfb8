package filter

import (
	"net/url"
	"strconv"
	"strings"
)

// Query parameter keys owned by the filter codec.
const (
	KeyBrands     = "brands"
	KeyColors     = "colors"
	KeySizes      = "sizes"
	KeyMaxPrice   = "maxPrice"
	KeyRating     = "rating"
	KeyOnSale     = "onSale"
	KeyMaterials  = "materials"
	KeyCategories = "categories"
	KeyPage       = "page"
)

// keyOrder is the fixed encoding order.
var keyOrder = []string{
	KeyBrands, KeyColors, KeySizes, KeyMaxPrice, KeyRating,
	KeyOnSale, KeyMaterials, KeyCategories, KeyPage,
}

// IsFilterKey reports whether key belongs to the filter codec,
// including the pagination key.
func IsFilterKey(key string) bool {
	for _, k := range keyOrder {
		if k == key {
			return true
		}
	}
	return false
}

// Param is a single query parameter. Key is unescaped; Value is kept as it
// appeared in the query string.
type Param struct {
	Key   string
	Value string
}

// Query is a parsed query string that preserves parameter order.
type Query []Param

// ParseQuery splits a raw query string (without the leading "?") into
// parameters. Empty segments are skipped and a segment without "=" is a key
// with an empty value. ParseQuery never fails.
func ParseQuery(raw string) Query {
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return nil
	}

	var q Query
	for _, seg := range strings.Split(raw, "&") {
		if seg == "" {
			continue
		}
		k, v, _ := strings.Cut(seg, "=")
		k = unescape(k)
		if k == "" {
			continue
		}
		q = append(q, Param{Key: k, Value: v})
	}
	return q
}

// Raw returns the escaped value of the first parameter named key.
func (q Query) Raw(key string) (string, bool) {
	for _, p := range q {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Get returns the unescaped value of the first parameter named key,
// or "" when absent.
func (q Query) Get(key string) string {
	v, _ := q.Raw(key)
	return unescape(v)
}

// Has reports whether key is present.
func (q Query) Has(key string) bool {
	_, ok := q.Raw(key)
	return ok
}

// List splits the value of key on "," and unescapes each token.
// Empty tokens are dropped; the result is never nil.
func (q Query) List(key string) []string {
	raw, _ := q.Raw(key)
	out := []string{}
	for _, tok := range strings.Split(raw, ",") {
		if tok = unescape(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// Encode serializes the non-default fields of s and the page number into a
// query string without the leading "?". An all-default state on page 1
// encodes to "".
//
// PriceRange.Min is never encoded, nor are empty set members.
func Encode(s State, page int) string {
	var b strings.Builder
	add := func(key, value string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(value)
	}
	addList := func(key string, items []string) {
		if v := joinList(items); v != "" {
			add(key, v)
		}
	}

	for _, key := range keyOrder {
		switch key {
		case KeyBrands:
			addList(key, s.Brands)
		case KeyColors:
			addList(key, s.Colors)
		case KeySizes:
			addList(key, s.Sizes)
		case KeyMaxPrice:
			if s.PriceRange.Max != DefaultMaxPrice {
				add(key, strconv.Itoa(s.PriceRange.Max))
			}
		case KeyRating:
			if s.Rating != 0 {
				add(key, strconv.Itoa(s.Rating))
			}
		case KeyOnSale:
			if s.OnSale {
				add(key, "true")
			}
		case KeyMaterials:
			addList(key, s.Materials)
		case KeyCategories:
			addList(key, s.Categories)
		case KeyPage:
			if page > FirstPage {
				add(key, strconv.Itoa(page))
			}
		}
	}
	return b.String()
}

// Decode reads a filter state and page number from q.
//
// Decode never fails: malformed or out-of-range numbers resolve to their
// defaults (maxPrice 1000, rating 0, page 1). onSale is true only for the
// exact value "true". PriceRange.Min is always 0.
func Decode(q Query) (State, int) {
	s := Default()
	s.Brands = q.List(KeyBrands)
	s.Colors = q.List(KeyColors)
	s.Sizes = q.List(KeySizes)
	s.Materials = q.List(KeyMaterials)
	s.Categories = q.List(KeyCategories)

	if n, ok := parseInt(q.Get(KeyMaxPrice)); ok && n >= 0 {
		s.PriceRange.Max = n
	}
	if n, ok := parseInt(q.Get(KeyRating)); ok && n >= 0 && n <= MaxRating {
		s.Rating = n
	}
	s.OnSale = q.Get(KeyOnSale) == "true"

	return s, DecodePage(q)
}

// DecodePage reads only the page number, defaulting to 1.
func DecodePage(q Query) int {
	if n, ok := parseInt(q.Get(KeyPage)); ok && n >= FirstPage {
		return n
	}
	return FirstPage
}

// joinList escapes and comma-joins items. Empty items cannot be told apart
// from the separator and are skipped.
func joinList(items []string) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if it == "" {
			continue
		}
		parts = append(parts, url.QueryEscape(it))
	}
	return strings.Join(parts, ",")
}

func parseInt(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

// unescape decodes a query component. Invalid escapes are returned as-is.
func unescape(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}
	u, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return u
}

// Escape encodes a single query component the same way Encode does.
func Escape(s string) string {
	return url.QueryEscape(s)
}
