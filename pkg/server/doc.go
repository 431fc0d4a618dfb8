// Package server exposes the storefront over HTTP.
//
// Routes:
//
//	GET    /healthz                  liveness probe
//	GET    /metrics                  Prometheus metrics (when a registry is configured)
//	GET    /ws?hash=#/shop           websocket navigation session
//	GET    /api/nav/resolve          decode ?fragment= into navigation state
//	GET    /api/nav/encode           build a fragment from view and filter parameters
//	GET    /api/products             filtered, paginated product listing
//	GET    /api/products/{id}        one product
//	GET    /api/facets               filter facet values
//	GET    /api/state                shopper cart, wishlist and theme
//	POST   /api/state/cart           add a cart line
//	PATCH  /api/state/cart           change a line quantity
//	DELETE /api/state/cart           empty the cart
//	DELETE /api/state/cart/{id}      remove a product's lines
//	POST   /api/state/wishlist/{id}  toggle a wishlist entry
//	PUT    /api/state/theme          set the theme
//	POST   /api/state/theme/toggle   flip the theme
//
// Shoppers are identified by the "sid" cookie; their state is persisted in
// the configured kvstore under "session/<sid>/".
//
// # WebSocket sessions
//
// Each connection owns a nav.Sync whose Location mirrors the browser
// history. Every history write the Sync makes is forwarded to the client
// as a "location" message, and every state change as a "state" message.
// The client reports its own hash changes with "hashchange"; echoes of the
// server's writes are ignored by the Sync.
//
//	client: {"type":"navigate","page":"search","fields":{"q":"boots"}}
//	server: {"type":"location","hash":"#/search?q=boots","mode":"push"}
//	server: {"type":"scroll"}
//	server: {"type":"state","state":{"activePage":"search",...}}
package server
