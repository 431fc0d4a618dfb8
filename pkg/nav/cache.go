package nav

import "github.com/vango-dev/storefront/pkg/catalog"

// ProductCache is a single-slot store for the product shown on the detail
// page. The URL only carries the product ID; the slot bridges the full
// entity from Navigate to the URL listener.
//
// The cache never owns product lifetimes. A lookup for a different ID is an
// expected miss and clears the slot.
type ProductCache struct {
	slot *catalog.Product
}

// Put stores p, replacing any previous entry.
func (c *ProductCache) Put(p catalog.Product) {
	c.slot = &p
}

// Get returns the cached product when its ID matches. On mismatch the slot
// is invalidated and Get reports a miss.
func (c *ProductCache) Get(id int) (catalog.Product, bool) {
	if c.slot == nil {
		return catalog.Product{}, false
	}
	if c.slot.ID != id {
		c.slot = nil
		return catalog.Product{}, false
	}
	return *c.slot, true
}

// Peek returns the cached product without validating it.
func (c *ProductCache) Peek() (catalog.Product, bool) {
	if c.slot == nil {
		return catalog.Product{}, false
	}
	return *c.slot, true
}

// Clear empties the slot.
func (c *ProductCache) Clear() {
	c.slot = nil
}
