package nav

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/vango-dev/storefront/pkg/catalog"
	"github.com/vango-dev/storefront/pkg/filter"
)

// ErrProductNotFound is returned when a product URL references an ID that
// neither the side cache nor the catalog can resolve. Callers redirect home.
var ErrProductNotFound = errors.New("nav: product not found")

// Parsed is the navigation state decoded from a URL fragment.
type Parsed struct {
	Page       string       `json:"page"`
	Filters    filter.State `json:"filters"`
	Data       PageData     `json:"pageData"`
	PageNumber int          `json:"pageNumber"`

	// FromCache is set when a product was resolved from the side cache.
	FromCache bool `json:"-"`
}

// Fragment re-encodes p as the fragment a Sync writes for it, without the
// leading "#".
func (p Parsed) Fragment() string {
	switch d := p.Data.(type) {
	case ProductDetail:
		return productFragment(d.Product.ID)
	case Generic:
		return Build(p.Page, d.Fields, p.Filters, p.PageNumber)
	}
	return Build(p.Page, nil, p.Filters, p.PageNumber)
}

// SplitFragment separates a fragment such as "#/shop?brands=A" into its
// page identifier and raw query. Leading "#" and surrounding "/" are
// stripped; an empty path is the home page.
func SplitFragment(fragment string) (page, rawQuery string) {
	fragment = strings.TrimPrefix(fragment, "#")
	path, rawQuery, _ := strings.Cut(fragment, "?")
	page = strings.Trim(path, "/")
	if page == "" {
		page = PageHome
	}
	return page, rawQuery
}

// Parse decodes a fragment into navigation state.
//
// Filters are decoded only for filterable pages; every other page gets the
// default filter state. On a product page the entity is resolved from cache
// first (ID match), then from cat. When neither resolves the ID, Parse
// returns ErrProductNotFound. Malformed values never cause an error.
func Parse(fragment string, cache *ProductCache, cat catalog.Catalog) (Parsed, error) {
	page, rawQuery := SplitFragment(fragment)
	q := filter.ParseQuery(rawQuery)

	out := Parsed{
		Page:       page,
		Filters:    filter.Default(),
		PageNumber: filter.DecodePage(q),
	}

	if page == PageProduct {
		p, fromCache, err := resolveProduct(q, cache, cat)
		if err != nil {
			return Parsed{}, err
		}
		out.Data = ProductDetail{Product: p}
		out.FromCache = fromCache
		return out, nil
	}

	filterable := Filterable(page)
	if filterable {
		out.Filters, out.PageNumber = filter.Decode(q)
	}

	fields := make(map[string]string, len(q))
	for _, p := range q {
		if filterable && filter.IsFilterKey(p.Key) {
			continue
		}
		if _, seen := fields[p.Key]; seen {
			continue
		}
		fields[p.Key] = q.Get(p.Key)
	}
	out.Data = Generic{Fields: fields}
	return out, nil
}

func resolveProduct(q filter.Query, cache *ProductCache, cat catalog.Catalog) (catalog.Product, bool, error) {
	raw := q.Get(KeyProductID)
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return catalog.Product{}, false, fmt.Errorf("%w: id %q", ErrProductNotFound, raw)
	}

	if cache != nil {
		if p, ok := cache.Get(id); ok {
			return p, true, nil
		}
	}
	if cat != nil {
		if p, ok := cat.Lookup(id); ok {
			return p, false, nil
		}
	}
	return catalog.Product{}, false, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
}

// Serialize encodes filters and page number as a query string in the fixed
// field order. It is the inverse of the filter decoding done by Parse.
func Serialize(f filter.State, pageNumber int) string {
	return filter.Encode(f, pageNumber)
}

// Build assembles a fragment path "/<page>?<query>". Generic fields come
// first in key order, then the encoded filters when the page is filterable.
// The query part is omitted when empty.
func Build(page string, fields map[string]string, f filter.State, pageNumber int) string {
	page = strings.Trim(page, "/")
	if page == "" {
		page = PageHome
	}

	var parts []string
	if q := encodeFields(fields, Filterable(page)); q != "" {
		parts = append(parts, q)
	}
	if Filterable(page) {
		if q := filter.Encode(f, pageNumber); q != "" {
			parts = append(parts, q)
		}
	}

	if len(parts) == 0 {
		return "/" + page
	}
	return "/" + page + "?" + strings.Join(parts, "&")
}

// encodeFields writes fields in sorted key order. Filter keys are skipped
// when the filter codec owns them.
func encodeFields(fields map[string]string, skipFilterKeys bool) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "" || (skipFilterKeys && filter.IsFilterKey(k)) {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(filter.Escape(k))
		b.WriteByte('=')
		b.WriteString(filter.Escape(fields[k]))
	}
	return b.String()
}

// productFragment is the URL for a product detail page.
func productFragment(id int) string {
	return "/" + PageProduct + "?" + KeyProductID + "=" + strconv.Itoa(id)
}

// normalizeFragment strips "#" so fragments compare equal regardless of
// where they came from.
func normalizeFragment(fragment string) string {
	fragment = strings.TrimPrefix(fragment, "#")
	if !strings.HasPrefix(fragment, "/") {
		fragment = "/" + fragment
	}
	return fragment
}
