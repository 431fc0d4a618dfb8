// Package appstate holds the persisted shopper state that lives alongside
// navigation: cart, wishlist and theme.
//
// A Container is constructed explicitly and passed to whoever needs it.
// Load reads every value once and sanitizes cart and wishlist against the
// catalog, dropping entries whose product no longer exists. Every mutation
// is written back to the store.
//
//	state := appstate.New(store, cat, logger)
//	if err := state.Load(ctx); err != nil {
//	    return err
//	}
//	state.AddToCart(ctx, 42, 1, "M", "black")
package appstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/vango-dev/storefront/pkg/catalog"
	"github.com/vango-dev/storefront/pkg/kvstore"
	"github.com/vango-dev/storefront/pkg/pref"
)

// Storage keys.
const (
	KeyCart     = "cart"
	KeyWishlist = "wishlist"
	KeyTheme    = "theme"
)

// Theme is the UI color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// Errors returned by Container mutations.
var (
	ErrUnknownProduct = errors.New("appstate: unknown product")
	ErrInvalidTheme   = errors.New("appstate: invalid theme")
	ErrNotLoaded      = errors.New("appstate: container not loaded")
)

// CartItem is one cart line. Lines are keyed by product, size and color.
type CartItem struct {
	ProductID int    `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

func (c CartItem) sameLine(o CartItem) bool {
	return c.ProductID == o.ProductID && c.Size == o.Size && c.Color == o.Color
}

// Snapshot is a read-only copy of the container state.
type Snapshot struct {
	Cart      []CartItem `json:"cart"`
	Wishlist  []int      `json:"wishlist"`
	Theme     Theme      `json:"theme"`
	CartCount int        `json:"cartCount"`
	CartTotal float64    `json:"cartTotal"`
}

// Container owns cart, wishlist and theme for one shopper.
type Container struct {
	catalog catalog.Catalog
	logger  *slog.Logger

	cart     *pref.Pref[[]CartItem]
	wishlist *pref.Pref[[]int]
	theme    *pref.Pref[Theme]
}

// New creates a container over store. Values are defaults until Load.
func New(store kvstore.Store, cat catalog.Catalog, logger *slog.Logger) *Container {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "appstate")
	return &Container{
		catalog:  cat,
		logger:   logger,
		cart:     pref.New(store, KeyCart, []CartItem{}, pref.WithLogger(logger)),
		wishlist: pref.New(store, KeyWishlist, []int{}, pref.WithLogger(logger)),
		theme:    pref.New(store, KeyTheme, ThemeLight, pref.WithLogger(logger)),
	}
}

// Load reads all values from the store and sanitizes them.
func (c *Container) Load(ctx context.Context) error {
	if err := c.cart.Load(ctx); err != nil {
		return err
	}
	if err := c.wishlist.Load(ctx); err != nil {
		return err
	}
	if err := c.theme.Load(ctx); err != nil {
		return err
	}
	return c.sanitize(ctx)
}

// sanitize drops entries that no longer resolve against the catalog and
// repairs malformed values. Cleaned values are written back.
func (c *Container) sanitize(ctx context.Context) error {
	cart := c.cart.Get()
	clean := make([]CartItem, 0, len(cart))
	for _, it := range cart {
		if _, ok := c.catalog.Lookup(it.ProductID); !ok || it.Quantity <= 0 {
			continue
		}
		clean = append(clean, it)
	}
	if len(clean) != len(cart) {
		c.logger.Info("removed stale cart entries", "removed", len(cart)-len(clean))
		if err := c.cart.Set(ctx, clean); err != nil {
			return err
		}
	}

	wish := c.wishlist.Get()
	cleanWish := make([]int, 0, len(wish))
	for _, id := range wish {
		if _, ok := c.catalog.Lookup(id); !ok || slices.Contains(cleanWish, id) {
			continue
		}
		cleanWish = append(cleanWish, id)
	}
	if len(cleanWish) != len(wish) {
		c.logger.Info("removed stale wishlist entries", "removed", len(wish)-len(cleanWish))
		if err := c.wishlist.Set(ctx, cleanWish); err != nil {
			return err
		}
	}

	if !c.theme.Get().Valid() {
		c.logger.Warn("resetting invalid theme", "theme", c.theme.Get())
		if err := c.theme.Reset(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) requireLoaded() error {
	if !c.cart.Loaded() || !c.wishlist.Loaded() || !c.theme.Loaded() {
		return ErrNotLoaded
	}
	return nil
}

// Cart returns a copy of the cart lines.
func (c *Container) Cart() []CartItem {
	return append([]CartItem{}, c.cart.Get()...)
}

// AddToCart adds qty of a product. A line with the same product, size and
// color is merged. qty below 1 is treated as 1.
func (c *Container) AddToCart(ctx context.Context, productID, qty int, size, color string) error {
	if err := c.requireLoaded(); err != nil {
		return err
	}
	if _, ok := c.catalog.Lookup(productID); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownProduct, productID)
	}
	qty = max(qty, 1)
	line := CartItem{ProductID: productID, Quantity: qty, Size: size, Color: color}

	_, err := c.cart.Update(ctx, func(items []CartItem) []CartItem {
		items = slices.Clone(items)
		for i := range items {
			if items[i].sameLine(line) {
				items[i].Quantity += qty
				return items
			}
		}
		return append(items, line)
	})
	return err
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes it. Unknown lines are ignored.
func (c *Container) UpdateQuantity(ctx context.Context, productID int, size, color string, qty int) error {
	if err := c.requireLoaded(); err != nil {
		return err
	}
	key := CartItem{ProductID: productID, Size: size, Color: color}
	_, err := c.cart.Update(ctx, func(items []CartItem) []CartItem {
		out := make([]CartItem, 0, len(items))
		for _, it := range items {
			if it.sameLine(key) {
				if qty <= 0 {
					continue
				}
				it.Quantity = qty
			}
			out = append(out, it)
		}
		return out
	})
	return err
}

// RemoveFromCart removes every line for productID.
func (c *Container) RemoveFromCart(ctx context.Context, productID int) error {
	if err := c.requireLoaded(); err != nil {
		return err
	}
	_, err := c.cart.Update(ctx, func(items []CartItem) []CartItem {
		return slices.DeleteFunc(slices.Clone(items), func(it CartItem) bool {
			return it.ProductID == productID
		})
	})
	return err
}

// ClearCart empties the cart.
func (c *Container) ClearCart(ctx context.Context) error {
	if err := c.requireLoaded(); err != nil {
		return err
	}
	return c.cart.Set(ctx, []CartItem{})
}

// CartCount is the total number of units in the cart.
func (c *Container) CartCount() int {
	n := 0
	for _, it := range c.cart.Get() {
		n += it.Quantity
	}
	return n
}

// CartTotal sums effective prices. Lines whose product vanished count zero.
func (c *Container) CartTotal() float64 {
	var total float64
	for _, it := range c.cart.Get() {
		if p, ok := c.catalog.Lookup(it.ProductID); ok {
			total += p.EffectivePrice() * float64(it.Quantity)
		}
	}
	return total
}

// Wishlist returns a copy of the wishlisted product IDs in insertion order.
func (c *Container) Wishlist() []int {
	return append([]int{}, c.wishlist.Get()...)
}

// InWishlist reports whether productID is wishlisted.
func (c *Container) InWishlist(productID int) bool {
	return slices.Contains(c.wishlist.Get(), productID)
}

// ToggleWishlist adds or removes productID and reports whether it is now
// wishlisted.
func (c *Container) ToggleWishlist(ctx context.Context, productID int) (bool, error) {
	if err := c.requireLoaded(); err != nil {
		return false, err
	}
	if _, ok := c.catalog.Lookup(productID); !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownProduct, productID)
	}

	var added bool
	_, err := c.wishlist.Update(ctx, func(ids []int) []int {
		if i := slices.Index(ids, productID); i >= 0 {
			added = false
			return slices.Delete(slices.Clone(ids), i, i+1)
		}
		added = true
		return append(slices.Clone(ids), productID)
	})
	return added, err
}

// Theme returns the current theme.
func (c *Container) Theme() Theme {
	return c.theme.Get()
}

// SetTheme sets the theme.
func (c *Container) SetTheme(ctx context.Context, t Theme) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTheme, t)
	}
	return c.theme.Set(ctx, t)
}

// ToggleTheme flips between light and dark and returns the new theme.
func (c *Container) ToggleTheme(ctx context.Context) (Theme, error) {
	return c.theme.Update(ctx, func(t Theme) Theme {
		if t == ThemeDark {
			return ThemeLight
		}
		return ThemeDark
	})
}

// Snapshot returns a copy of the container state.
func (c *Container) Snapshot() Snapshot {
	return Snapshot{
		Cart:      c.Cart(),
		Wishlist:  c.Wishlist(),
		Theme:     c.Theme(),
		CartCount: c.CartCount(),
		CartTotal: c.CartTotal(),
	}
}
