package nav

import (
	"encoding/json"
	"maps"

	"github.com/vango-dev/storefront/pkg/catalog"
)

// Known page identifiers. Any other string is a valid page as well.
const (
	PageHome     = "home"
	PageShop     = "shop"
	PageSearch   = "search"
	PageProduct  = "product"
	PageCart     = "cart"
	PageWishlist = "wishlist"
	PageAccount  = "account"
	PageAdmin    = "admin"
)

// Query keys with special meaning outside the filter codec.
const (
	KeyProductID = "id"
	KeySearch    = "q"
)

// Filterable reports whether page decodes filter state from its URL.
func Filterable(page string) bool {
	return page == PageShop || page == PageSearch
}

// DataKind tags the PageData variants.
type DataKind string

const (
	KindGeneric       DataKind = "generic"
	KindProductDetail DataKind = "productDetail"
)

// PageData is the data associated with the active page. It is one of
// Generic or ProductDetail.
type PageData interface {
	Kind() DataKind
	pageData()
}

// Generic carries string fields for ordinary pages. On the wire each field
// is one query parameter.
type Generic struct {
	Fields map[string]string
}

// Fields builds a Generic from key/value pairs: Fields("q", "boots").
// A trailing key without a value is ignored.
func Fields(kv ...string) Generic {
	g := Generic{Fields: make(map[string]string, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		g.Fields[kv[i]] = kv[i+1]
	}
	return g
}

// Kind implements PageData.
func (Generic) Kind() DataKind { return KindGeneric }
func (Generic) pageData()      {}

// Get returns the value of a field, or "".
func (g Generic) Get(key string) string {
	return g.Fields[key]
}

// MarshalJSON implements json.Marshaler.
func (g Generic) MarshalJSON() ([]byte, error) {
	fields := g.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	return json.Marshal(struct {
		Kind   DataKind          `json:"kind"`
		Fields map[string]string `json:"fields"`
	}{KindGeneric, fields})
}

// ProductDetail carries the full product for the detail page. Only its ID
// is written to the URL.
type ProductDetail struct {
	Product catalog.Product
}

// Kind implements PageData.
func (ProductDetail) Kind() DataKind { return KindProductDetail }
func (ProductDetail) pageData()      {}

// MarshalJSON implements json.Marshaler.
func (d ProductDetail) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    DataKind        `json:"kind"`
		Product catalog.Product `json:"product"`
	}{KindProductDetail, d.Product})
}

func cloneData(d PageData) PageData {
	switch v := d.(type) {
	case Generic:
		return Generic{Fields: maps.Clone(v.Fields)}
	case ProductDetail:
		return v
	default:
		return Generic{Fields: map[string]string{}}
	}
}
