package errors

import (
	"net/http"
	"slices"
)

// Registered error codes.
const (
	CodeProductNotFound     = "SF001"
	CodeHistoryBlocked      = "SF002"
	CodeNavigationBusy      = "SF003"
	CodeInvalidCatalog      = "SF010"
	CodeDuplicateProduct    = "SF011"
	CodeUnknownProduct      = "SF020"
	CodeInvalidTheme        = "SF021"
	CodeStateNotLoaded      = "SF022"
	CodeInvalidRequest      = "SF023"
	CodeStorageUnavailable  = "SF040"
	CodeInvalidMessage      = "SF060"
	CodeUpgradeFailed       = "SF061"
	CodeConfigInvalid       = "SF100"
	CodeConfigValue         = "SF101"
	CodeUnknownStoreDriver  = "SF102"
	CodeInvalidArguments    = "SF140"
	CodeCatalogLoadFailed   = "SF141"
	CodeServerStartupFailed = "SF142"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
	Status     int
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Navigation Errors (SF001-SF009)
	// ============================================

	CodeProductNotFound: {
		Category: CategoryNavigation,
		Message:  "Product not found",
		Detail:   "The product ID in the URL matches neither the cached product nor the catalog. The session is redirected to the home page.",
		Status:   http.StatusNotFound,
	},
	CodeHistoryBlocked: {
		Category: CategoryNavigation,
		Message:  "History write refused",
		Detail:   "The client refused to update its location. The in-memory navigation state was still applied.",
		Status:   http.StatusConflict,
	},
	CodeNavigationBusy: {
		Category: CategoryNavigation,
		Message:  "Navigation already in progress",
		Detail:   "A navigation was requested while another one was being applied.",
		Status:   http.StatusConflict,
	},

	// ============================================
	// Catalog Errors (SF010-SF019)
	// ============================================

	CodeInvalidCatalog: {
		Category:   CategoryCatalog,
		Message:    "Invalid catalog",
		Detail:     "The catalog document is not a JSON array of products or an object with a \"products\" array.",
		Suggestion: "Validate the catalog file with a JSON linter.",
		Status:     http.StatusInternalServerError,
	},
	CodeDuplicateProduct: {
		Category: CategoryCatalog,
		Message:  "Duplicate product ID",
		Detail:   "Each product in the catalog must have a unique positive ID.",
		Status:   http.StatusInternalServerError,
	},

	// ============================================
	// State Errors (SF020-SF039)
	// ============================================

	CodeUnknownProduct: {
		Category: CategoryState,
		Message:  "Unknown product",
		Detail:   "The cart or wishlist references a product ID that is not in the catalog.",
		Status:   http.StatusNotFound,
	},
	CodeInvalidTheme: {
		Category:   CategoryState,
		Message:    "Invalid theme",
		Suggestion: `Use "light" or "dark".`,
		Status:     http.StatusBadRequest,
	},
	CodeStateNotLoaded: {
		Category: CategoryState,
		Message:  "State not loaded",
		Detail:   "The state container must be loaded before it is used.",
		Status:   http.StatusServiceUnavailable,
	},
	CodeInvalidRequest: {
		Category: CategoryValidation,
		Message:  "Invalid request",
		Status:   http.StatusBadRequest,
	},

	// ============================================
	// Storage Errors (SF040-SF059)
	// ============================================

	CodeStorageUnavailable: {
		Category: CategoryStorage,
		Message:  "Storage backend unavailable",
		Detail:   "The key-value store returned an error. Values changed in memory may not have been persisted.",
		Status:   http.StatusServiceUnavailable,
	},

	// ============================================
	// Protocol Errors (SF060-SF079)
	// ============================================

	CodeInvalidMessage: {
		Category: CategoryProtocol,
		Message:  "Invalid websocket message",
		Detail:   "The message is not valid JSON or has an unknown type.",
		Status:   http.StatusBadRequest,
	},
	CodeUpgradeFailed: {
		Category: CategoryProtocol,
		Message:  "WebSocket upgrade failed",
		Status:   http.StatusBadRequest,
	},

	// ============================================
	// Config Errors (SF100-SF119)
	// ============================================

	CodeConfigInvalid: {
		Category:   CategoryConfig,
		Message:    "Invalid configuration file",
		Detail:     "storefront.json or storefront.yaml could not be parsed.",
		Suggestion: "Check the file for syntax errors.",
	},
	CodeConfigValue: {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
	CodeUnknownStoreDriver: {
		Category:   CategoryConfig,
		Message:    "Unknown store driver",
		Suggestion: "Use one of memory, file, s3 or redis.",
	},

	// ============================================
	// CLI Errors (SF140-SF159)
	// ============================================

	CodeInvalidArguments: {
		Category: CategoryCLI,
		Message:  "Invalid arguments",
	},
	CodeCatalogLoadFailed: {
		Category:   CategoryCLI,
		Message:    "Catalog could not be loaded",
		Suggestion: "Pass --catalog with a path to a JSON product list.",
	},
	CodeServerStartupFailed: {
		Category: CategoryCLI,
		Message:  "Server failed to start",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
