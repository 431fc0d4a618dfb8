package server

import (
	"encoding/json"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/catalog"
	"github.com/vango-dev/storefront/pkg/nav"
)

// Client message types.
const (
	MsgNavigate   = "navigate"
	MsgHashChange = "hashchange"
	MsgFilters    = "filters"
	MsgPage       = "page"
	MsgBack       = "back"
	MsgBlocked    = "blocked"
	MsgSync       = "sync"
)

// Server message types.
const (
	MsgHello    = "hello"
	MsgState    = "state"
	MsgLocation = "location"
	MsgScroll   = "scroll"
	MsgError    = "error"
)

// Location write modes carried by MsgLocation.
const (
	ModePush    = "push"
	ModeReplace = "replace"
	ModeBack    = "back"
)

// ClientMessage is one JSON message from the browser.
//
//	{"type":"navigate","page":"search","fields":{"q":"boots"}}
//	{"type":"navigate","page":"product","product":{"id":42,...}}
//	{"type":"hashchange","hash":"#/shop?brands=Nike"}
//	{"type":"filters","filters":{"brands":["Nike"],"priceRange":{"min":0,"max":300}}}
//	{"type":"page","number":3}
//	{"type":"back"}
//	{"type":"blocked","blocked":true}
type ClientMessage struct {
	Type    string            `json:"type"`
	Page    string            `json:"page,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Product *catalog.Product  `json:"product,omitempty"`
	Hash    string            `json:"hash,omitempty"`
	Filters json.RawMessage   `json:"filters,omitempty"`
	Number  int               `json:"number,omitempty"`
	Blocked bool              `json:"blocked,omitempty"`
}

// ServerMessage is one JSON message to the browser.
type ServerMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	State     *nav.State      `json:"state,omitempty"`
	Hash      string          `json:"hash,omitempty"`
	Mode      string          `json:"mode,omitempty"`
	Error     *sferrors.Error `json:"error,omitempty"`
}
