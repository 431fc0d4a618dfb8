package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/storefront/pkg/filter"
	"github.com/vango-dev/storefront/pkg/kvstore"
)

func sampleProducts() []Product {
	return []Product{
		{ID: 3, Name: "Trail Runner", Brand: "Nike", Color: "black", Sizes: []string{"42", "43"}, Material: "mesh", Category: "shoes", Price: 120, Rating: 4.5},
		{ID: 1, Name: "Denim Jacket", Brand: "Zara", Color: "blue", Sizes: []string{"M", "L"}, Material: "cotton", Category: "jackets", Price: 90, SalePrice: 60, OnSale: true, Rating: 3.8},
		{ID: 2, Name: "Wool Scarf", Brand: "Uniqlo", Color: "red", Material: "wool", Category: "accessories", Price: 25, Rating: 4.9},
		{ID: 4, Name: "Court Sneaker", Brand: "Nike", Color: "white", Sizes: []string{"41", "42"}, Material: "leather", Category: "shoes", Price: 1500, Rating: 4.1},
	}
}

func TestNewMemory(t *testing.T) {
	m, err := NewMemory(sampleProducts())
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}

	if m.Len() != 4 {
		t.Errorf("Len: got %d, want 4", m.Len())
	}
	p, ok := m.Lookup(2)
	if !ok || p.Name != "Wool Scarf" {
		t.Errorf("Lookup(2): got %+v, %v", p, ok)
	}
	if _, ok := m.Lookup(99); ok {
		t.Error("Lookup(99) should miss")
	}

	var ids []int
	for _, p := range m.All() {
		ids = append(ids, p.ID)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4}, ids); diff != "" {
		t.Errorf("All order (-want +got):\n%s", diff)
	}
}

func TestNewMemoryRejectsBadIDs(t *testing.T) {
	if _, err := NewMemory([]Product{{ID: 1}, {ID: 1}}); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate: got %v, want ErrDuplicateID", err)
	}
	if _, err := NewMemory([]Product{{ID: 0}}); !errors.Is(err, ErrInvalidID) {
		t.Errorf("zero id: got %v, want ErrInvalidID", err)
	}
}

func TestLoadJSON(t *testing.T) {
	t.Run("Array", func(t *testing.T) {
		m, err := LoadJSON(strings.NewReader(`[{"id":7,"name":"Cap","brand":"Nike","price":15}]`))
		if err != nil {
			t.Fatalf("LoadJSON: %v", err)
		}
		if p, ok := m.Lookup(7); !ok || p.Name != "Cap" {
			t.Errorf("Lookup(7): got %+v, %v", p, ok)
		}
	})

	t.Run("Document", func(t *testing.T) {
		m, err := LoadJSON(strings.NewReader(`{"products":[{"id":8,"name":"Belt"}]}`))
		if err != nil {
			t.Fatalf("LoadJSON: %v", err)
		}
		if m.Len() != 1 {
			t.Errorf("Len: got %d, want 1", m.Len())
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		if _, err := LoadJSON(strings.NewReader(`nope`)); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestLoadFileAndStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(`[{"id":5,"name":"Sock"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if m, err := LoadFile(path); err != nil || m.Len() != 1 {
		t.Errorf("LoadFile: %v", err)
	}

	store := kvstore.NewMemory()
	ctx := context.Background()
	_ = store.Set(ctx, "catalog.json", []byte(`[{"id":6,"name":"Glove"}]`))
	m, err := LoadFromStore(ctx, store, "catalog.json")
	if err != nil {
		t.Fatalf("LoadFromStore: %v", err)
	}
	if _, ok := m.Lookup(6); !ok {
		t.Error("Lookup(6) should hit")
	}
	if _, err := LoadFromStore(ctx, store, "missing"); !errors.Is(err, kvstore.ErrNotFound) {
		t.Errorf("missing key: got %v", err)
	}
}

func TestMatches(t *testing.T) {
	products := sampleProducts()
	jacket := products[1]

	tests := []struct {
		name   string
		mutate func(*filter.State)
		want   bool
	}{
		{"Default", func(*filter.State) {}, true},
		{"BrandMatch", func(f *filter.State) { f.Brands = []string{"Zara", "Nike"} }, true},
		{"BrandMiss", func(f *filter.State) { f.Brands = []string{"Nike"} }, false},
		{"SizeOverlap", func(f *filter.State) { f.Sizes = []string{"S", "L"} }, true},
		{"SizeMiss", func(f *filter.State) { f.Sizes = []string{"XS"} }, false},
		{"SalePriceInRange", func(f *filter.State) { f.PriceRange.Max = 60 }, true},
		{"BelowMin", func(f *filter.State) { f.PriceRange.Min = 61 }, false},
		{"RatingTooLow", func(f *filter.State) { f.Rating = 4 }, false},
		{"RatingOK", func(f *filter.State) { f.Rating = 3 }, true},
		{"OnSale", func(f *filter.State) { f.OnSale = true }, true},
		{"MaterialMiss", func(f *filter.State) { f.Materials = []string{"wool"} }, false},
		{"CategoryMatch", func(f *filter.State) { f.Categories = []string{"jackets"} }, true},
		{"ColorMiss", func(f *filter.State) { f.Colors = []string{"red"} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := filter.Default()
			tt.mutate(&f)
			if got := Matches(jacket, f); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuery(t *testing.T) {
	m, _ := NewMemory(sampleProducts())
	all := m.All()

	t.Run("DefaultFilterExcludesAboveMaxPrice", func(t *testing.T) {
		page := Query(all, filter.Default(), "", 1, 10)
		if page.Total != 3 {
			t.Errorf("Total: got %d, want 3", page.Total)
		}
	})

	t.Run("Pagination", func(t *testing.T) {
		f := filter.Default()
		f.PriceRange.Max = 5000
		page := Query(all, f, "", 2, 3)
		if page.Total != 4 || page.TotalPages != 2 || page.Page != 2 {
			t.Errorf("page meta: %+v", page)
		}
		if len(page.Products) != 1 || page.Products[0].ID != 4 {
			t.Errorf("page 2 products: %+v", page.Products)
		}
	})

	t.Run("PageClamped", func(t *testing.T) {
		page := Query(all, filter.Default(), "", 40, 2)
		if page.Page != 2 {
			t.Errorf("Page: got %d, want 2", page.Page)
		}
		page = Query(all, filter.Default(), "", -3, 2)
		if page.Page != 1 {
			t.Errorf("Page: got %d, want 1", page.Page)
		}
	})

	t.Run("EmptyResult", func(t *testing.T) {
		f := filter.Default()
		f.Brands = []string{"Gucci"}
		page := Query(all, f, "", 3, 0)
		if page.Total != 0 || page.TotalPages != 1 || page.Page != 1 || len(page.Products) != 0 {
			t.Errorf("empty page: %+v", page)
		}
		if page.PageSize != DefaultPageSize {
			t.Errorf("PageSize: got %d, want %d", page.PageSize, DefaultPageSize)
		}
	})

	t.Run("Search", func(t *testing.T) {
		page := Query(all, filter.Default(), "  NIKE ", 1, 10)
		if page.Total != 1 || page.Products[0].ID != 3 {
			t.Errorf("search nike: %+v", page)
		}
		page = Query(all, filter.Default(), "scarf", 1, 10)
		if page.Total != 1 || page.Products[0].ID != 2 {
			t.Errorf("search scarf: %+v", page)
		}
	})
}

func TestFacets(t *testing.T) {
	fs := Facets(sampleProducts())

	want := FacetSet{
		Brands:     []string{"Nike", "Uniqlo", "Zara"},
		Colors:     []string{"black", "blue", "red", "white"},
		Sizes:      []string{"41", "42", "43", "L", "M"},
		Materials:  []string{"cotton", "leather", "mesh", "wool"},
		Categories: []string{"accessories", "jackets", "shoes"},
		MaxPrice:   1500,
	}
	if diff := cmp.Diff(want, fs); diff != "" {
		t.Errorf("Facets mismatch (-want +got):\n%s", diff)
	}
}
