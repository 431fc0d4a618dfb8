// Package nav keeps a shopper's addressable URL fragment and in-memory
// navigation state consistent in both directions.
//
// The URL fragment has the form
//
//	#/<page>?<query>
//
// where the query carries page data and, for the shop and search pages, the
// filter state and page number (see package filter for the encoding).
//
// # State machine
//
// A Sync is Idle between navigations. Navigate, UpdateFilters, SetPage and
// HandleLocationChange move it to Navigating while the new state is built,
// written to the Location and applied, then back to Idle. Observers run
// while the Sync is still Navigating, so a Navigate issued from an observer
// fails with ErrReentrantNavigation instead of recursing.
//
// # Product detail pages
//
// A product object is too large for the URL. Navigate places it in a
// single-slot ProductCache and writes only ?id=<id>. When the listener
// parses a product URL it consults the cache first (ID must match) and the
// catalog second. If neither has the product the Sync redirects home.
//
// # Failure handling
//
//   - malformed numbers in the query resolve to defaults
//   - an unresolvable product ID redirects to the home page
//   - a Location that refuses writes is logged; the in-memory state still
//     changes
//
// A Sync is owned by a single goroutine (a session's event loop) and is not
// safe for concurrent use.
package nav
