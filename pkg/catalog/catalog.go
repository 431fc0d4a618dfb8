// Package catalog holds the read-only product catalog the storefront browses.
//
// The catalog owns product lifetimes. Other packages look products up by ID
// and never mutate them.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/vango-dev/storefront/pkg/kvstore"
)

// Product is a single catalog entity.
type Product struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	Color       string   `json:"color,omitempty"`
	Sizes       []string `json:"sizes,omitempty"`
	Material    string   `json:"material,omitempty"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	SalePrice   float64  `json:"salePrice,omitempty"`
	OnSale      bool     `json:"onSale,omitempty"`
	Rating      float64  `json:"rating"`
	Images      []string `json:"images,omitempty"`
	Description string   `json:"description,omitempty"`
}

// EffectivePrice is the price a shopper pays: the sale price when the
// product is on sale and one is set, otherwise the list price.
func (p Product) EffectivePrice() float64 {
	if p.OnSale && p.SalePrice > 0 {
		return p.SalePrice
	}
	return p.Price
}

// Catalog is a synchronously queryable, read-only product list.
type Catalog interface {
	// Lookup returns the product with the given ID.
	Lookup(id int) (Product, bool)

	// All returns every product ordered by ID.
	All() []Product
}

// Catalog errors.
var (
	ErrDuplicateID = errors.New("catalog: duplicate product id")
	ErrInvalidID   = errors.New("catalog: product id must be positive")
	ErrMalformed   = errors.New("catalog: malformed document")
)

// Memory is an immutable in-memory catalog. It is safe for concurrent reads.
type Memory struct {
	byID     map[int]Product
	products []Product
}

// NewMemory builds a catalog from products. IDs must be positive and unique.
func NewMemory(products []Product) (*Memory, error) {
	m := &Memory{
		byID:     make(map[int]Product, len(products)),
		products: make([]Product, 0, len(products)),
	}
	for _, p := range products {
		if p.ID <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidID, p.ID)
		}
		if _, dup := m.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, p.ID)
		}
		m.byID[p.ID] = p
		m.products = append(m.products, p)
	}
	slices.SortFunc(m.products, func(a, b Product) int { return a.ID - b.ID })
	return m, nil
}

// Lookup implements Catalog.
func (m *Memory) Lookup(id int) (Product, bool) {
	p, ok := m.byID[id]
	return p, ok
}

// All implements Catalog. The returned slice is a copy.
func (m *Memory) All() []Product {
	return slices.Clone(m.products)
}

// Len returns the number of products.
func (m *Memory) Len() int {
	return len(m.products)
}

// document is the on-disk catalog shape. A bare JSON array is also accepted.
type document struct {
	Products []Product `json:"products"`
}

// LoadJSON reads a catalog from JSON. The input is either an array of
// products or an object with a "products" array.
func LoadJSON(r io.Reader) (*Memory, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: read: %w", err)
	}
	return decode(data)
}

// LoadFile reads a catalog JSON file.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return decode(data)
}

// LoadFromStore reads a catalog JSON document stored under key.
// This lets the catalog live next to session state in S3 or Redis.
func LoadFromStore(ctx context.Context, store kvstore.Store, key string) (*Memory, error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("catalog: load %q: %w", key, err)
	}
	return decode(data)
}

func decode(data []byte) (*Memory, error) {
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		var doc document
		if err2 := json.Unmarshal(data, &doc); err2 != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		products = doc.Products
	}
	return NewMemory(products)
}
