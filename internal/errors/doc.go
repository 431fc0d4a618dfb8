// Package errors provides coded, categorized errors for the storefront
// service and CLI.
//
// Each error has a unique code (e.g., "SF001") registered with a category,
// a short message, an optional explanation and hint, and the HTTP status
// the API answers with.
//
// # Error Categories
//
//   - navigation: URL resolution and history writes
//   - catalog: product catalog loading
//   - state: cart, wishlist and theme
//   - storage: key-value backends
//   - protocol: websocket messages
//   - validation: request input
//   - config: storefront.json / storefront.yaml
//   - cli: command-line usage
//
// # Usage
//
//	err := errors.New(errors.CodeConfigValue).
//	    WithField("shop.pageSize").
//	    WithSuggestion("Use a value between 1 and 100")
//
//	errors.Fprint(os.Stderr, err)
//
// Coded errors wrap their cause, so errors.Is and errors.As from the
// standard library see through them.
package errors
