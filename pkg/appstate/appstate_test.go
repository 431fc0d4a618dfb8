package appstate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/storefront/pkg/catalog"
	"github.com/vango-dev/storefront/pkg/kvstore"
)

func testCatalog(t *testing.T) *catalog.Memory {
	t.Helper()
	cat, err := catalog.NewMemory([]catalog.Product{
		{ID: 1, Name: "Runner", Brand: "Nike", Price: 100},
		{ID: 2, Name: "Denim Jacket", Brand: "Zara", Price: 80, SalePrice: 60, OnSale: true},
		{ID: 3, Name: "Scarf", Brand: "Uniqlo", Price: 20},
	})
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	return cat
}

// seed writes a pref record the way pref.Pref persists it.
func seed(t *testing.T, store kvstore.Store, key string, value any) {
	t.Helper()
	data, err := json.Marshal(map[string]any{"value": value})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set(context.Background(), key, data); err != nil {
		t.Fatal(err)
	}
}

func loaded(t *testing.T, store kvstore.Store) *Container {
	t.Helper()
	c := New(store, testCatalog(t), nil)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := loaded(t, kvstore.NewMemory())

	if len(c.Cart()) != 0 {
		t.Errorf("Cart: got %v, want empty", c.Cart())
	}
	if len(c.Wishlist()) != 0 {
		t.Errorf("Wishlist: got %v, want empty", c.Wishlist())
	}
	if c.Theme() != ThemeLight {
		t.Errorf("Theme: got %v, want light", c.Theme())
	}
}

func TestLoadSanitizesAgainstCatalog(t *testing.T) {
	store := kvstore.NewMemory()
	seed(t, store, KeyCart, []CartItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 99, Quantity: 1},
		{ProductID: 3, Quantity: 0},
	})
	seed(t, store, KeyWishlist, []int{2, 404, 2, 3})
	seed(t, store, KeyTheme, "sepia")

	c := loaded(t, store)

	if diff := cmp.Diff([]CartItem{{ProductID: 1, Quantity: 2}}, c.Cart()); diff != "" {
		t.Errorf("Cart mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 3}, c.Wishlist()); diff != "" {
		t.Errorf("Wishlist mismatch (-want +got):\n%s", diff)
	}
	if c.Theme() != ThemeLight {
		t.Errorf("Theme: got %v, want light", c.Theme())
	}

	// The cleaned values are persisted.
	again := loaded(t, store)
	if len(again.Cart()) != 1 || len(again.Wishlist()) != 2 {
		t.Errorf("sanitized state not persisted: cart=%v wishlist=%v", again.Cart(), again.Wishlist())
	}
}

func TestMutationsBeforeLoad(t *testing.T) {
	c := New(kvstore.NewMemory(), testCatalog(t), nil)

	if err := c.AddToCart(context.Background(), 1, 1, "", ""); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("AddToCart before Load: got %v, want ErrNotLoaded", err)
	}
}

func TestCart(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	c := loaded(t, store)

	if err := c.AddToCart(ctx, 1, 1, "42", "black"); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	if err := c.AddToCart(ctx, 1, 2, "42", "black"); err != nil {
		t.Fatalf("AddToCart merge: %v", err)
	}
	if err := c.AddToCart(ctx, 1, 0, "43", "black"); err != nil {
		t.Fatalf("AddToCart other size: %v", err)
	}
	if err := c.AddToCart(ctx, 2, 1, "", ""); err != nil {
		t.Fatalf("AddToCart sale item: %v", err)
	}
	if err := c.AddToCart(ctx, 77, 1, "", ""); !errors.Is(err, ErrUnknownProduct) {
		t.Errorf("AddToCart unknown: got %v, want ErrUnknownProduct", err)
	}

	want := []CartItem{
		{ProductID: 1, Quantity: 3, Size: "42", Color: "black"},
		{ProductID: 1, Quantity: 1, Size: "43", Color: "black"},
		{ProductID: 2, Quantity: 1},
	}
	if diff := cmp.Diff(want, c.Cart()); diff != "" {
		t.Errorf("Cart mismatch (-want +got):\n%s", diff)
	}
	if got := c.CartCount(); got != 5 {
		t.Errorf("CartCount: got %d, want 5", got)
	}
	if got := c.CartTotal(); got != 460 {
		t.Errorf("CartTotal: got %v, want 460", got)
	}

	if err := c.UpdateQuantity(ctx, 1, "43", "black", 0); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if err := c.UpdateQuantity(ctx, 1, "42", "black", 1); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if got := c.CartCount(); got != 2 {
		t.Errorf("CartCount after update: got %d, want 2", got)
	}

	if err := c.RemoveFromCart(ctx, 2); err != nil {
		t.Fatalf("RemoveFromCart: %v", err)
	}
	reloaded := loaded(t, store)
	if diff := cmp.Diff([]CartItem{{ProductID: 1, Quantity: 1, Size: "42", Color: "black"}}, reloaded.Cart()); diff != "" {
		t.Errorf("persisted cart mismatch (-want +got):\n%s", diff)
	}

	if err := c.ClearCart(ctx); err != nil {
		t.Fatalf("ClearCart: %v", err)
	}
	if c.CartCount() != 0 {
		t.Errorf("CartCount after clear: got %d", c.CartCount())
	}
}

func TestWishlist(t *testing.T) {
	ctx := context.Background()
	c := loaded(t, kvstore.NewMemory())

	added, err := c.ToggleWishlist(ctx, 3)
	if err != nil || !added {
		t.Fatalf("ToggleWishlist add: added=%v err=%v", added, err)
	}
	if !c.InWishlist(3) {
		t.Error("InWishlist(3) should be true")
	}

	added, err = c.ToggleWishlist(ctx, 3)
	if err != nil || added {
		t.Fatalf("ToggleWishlist remove: added=%v err=%v", added, err)
	}
	if c.InWishlist(3) {
		t.Error("InWishlist(3) should be false")
	}

	if _, err := c.ToggleWishlist(ctx, 500); !errors.Is(err, ErrUnknownProduct) {
		t.Errorf("ToggleWishlist unknown: got %v", err)
	}
}

func TestTheme(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	c := loaded(t, store)

	got, err := c.ToggleTheme(ctx)
	if err != nil || got != ThemeDark {
		t.Fatalf("ToggleTheme: got %v, %v", got, err)
	}
	if err := c.SetTheme(ctx, "neon"); !errors.Is(err, ErrInvalidTheme) {
		t.Errorf("SetTheme invalid: got %v", err)
	}
	if c.Theme() != ThemeDark {
		t.Errorf("Theme after invalid set: got %v", c.Theme())
	}

	if loaded(t, store).Theme() != ThemeDark {
		t.Error("theme not persisted")
	}
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	c := loaded(t, kvstore.NewMemory())
	_ = c.AddToCart(ctx, 3, 2, "", "")
	_, _ = c.ToggleWishlist(ctx, 1)

	snap := c.Snapshot()
	if snap.CartCount != 2 || snap.CartTotal != 40 {
		t.Errorf("Snapshot totals: count=%d total=%v", snap.CartCount, snap.CartTotal)
	}
	if diff := cmp.Diff([]int{1}, snap.Wishlist); diff != "" {
		t.Errorf("Snapshot wishlist (-want +got):\n%s", diff)
	}
}
