package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vango-dev/storefront/pkg/appstate"
	"github.com/vango-dev/storefront/pkg/catalog"
	"github.com/vango-dev/storefront/pkg/kvstore"
)

// SessionCookie names the cookie that identifies a shopper.
const SessionCookie = "sid"

// stateCache keeps loaded state containers per shopper ID. Idle entries
// beyond max are dropped oldest first; their data stays in the store.
// Entries held by a request are never dropped, so one shopper never has two
// live containers writing the same keys.
type stateCache struct {
	store   kvstore.Store
	catalog catalog.Catalog
	logger  *slog.Logger
	max     int

	mu      sync.Mutex
	entries map[string]*stateEntry
	order   []string
}

type stateEntry struct {
	mu        sync.Mutex
	container *appstate.Container
	loaded    bool

	// refs counts acquirers holding or waiting on mu. Guarded by stateCache.mu.
	refs int
}

func newStateCache(store kvstore.Store, cat catalog.Catalog, limit int, logger *slog.Logger) *stateCache {
	return &stateCache{
		store:   store,
		catalog: cat,
		logger:  logger,
		max:     limit,
		entries: make(map[string]*stateEntry),
	}
}

// acquire returns the loaded entry for id with its lock held. The caller
// must hand it back with release.
func (c *stateCache) acquire(ctx context.Context, id string) (*stateEntry, error) {
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok {
		e = &stateEntry{
			container: appstate.New(kvstore.Prefixed(c.store, "session/"+id+"/"), c.catalog, c.logger),
		}
		c.entries[id] = e
		c.order = append(c.order, id)
	}
	e.refs++
	c.evictLocked()
	c.mu.Unlock()

	e.mu.Lock()
	if !e.loaded {
		if err := e.container.Load(ctx); err != nil {
			c.release(e)
			return nil, err
		}
		e.loaded = true
	}
	return e, nil
}

// release unlocks e and makes it eligible for eviction once idle.
func (c *stateCache) release(e *stateEntry) {
	e.mu.Unlock()

	c.mu.Lock()
	e.refs--
	c.evictLocked()
	c.mu.Unlock()
}

// evictLocked drops the oldest idle entries until the cache fits max.
func (c *stateCache) evictLocked() {
	excess := len(c.entries) - c.max
	if excess <= 0 {
		return
	}
	kept := make([]string, 0, len(c.order))
	for _, id := range c.order {
		if excess > 0 && c.entries[id].refs == 0 {
			delete(c.entries, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	c.order = kept
}

// size reports the number of cached containers.
func (c *stateCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// shopperID returns the shopper ID from the session cookie, issuing a new
// one when the cookie is missing or malformed.
func shopperID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// withState runs fn against the caller's container and answers with the
// resulting snapshot.
func (s *Server) withState(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, c *appstate.Container) error) {
	id := shopperID(w, r)
	e, err := s.states.acquire(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer s.states.release(e)

	if fn != nil {
		if err := fn(r.Context(), e.container); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, e.container.Snapshot())
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, r, invalidRequest("body", err.Error()))
		return false
	}
	return true
}

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// cartRequest is the body of cart mutations.
type cartRequest struct {
	ProductID int    `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.withState(w, r, nil)
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	req := cartRequest{Quantity: 1}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Quantity < 1 {
		s.writeError(w, r, invalidRequest("quantity", "quantity must be at least 1"))
		return
	}
	s.withState(w, r, func(ctx context.Context, c *appstate.Container) error {
		return c.AddToCart(ctx, req.ProductID, req.Quantity, req.Size, req.Color)
	})
}

func (s *Server) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	s.withState(w, r, func(ctx context.Context, c *appstate.Container) error {
		return c.UpdateQuantity(ctx, req.ProductID, req.Size, req.Color, req.Quantity)
	})
}

func (s *Server) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, r, invalidRequest("id", "product IDs are positive integers"))
		return
	}
	s.withState(w, r, func(ctx context.Context, c *appstate.Container) error {
		return c.RemoveFromCart(ctx, id)
	})
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	s.withState(w, r, func(ctx context.Context, c *appstate.Container) error {
		return c.ClearCart(ctx)
	})
}

func (s *Server) handleToggleWishlist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, r, invalidRequest("id", "product IDs are positive integers"))
		return
	}
	s.withState(w, r, func(ctx context.Context, c *appstate.Container) error {
		_, err := c.ToggleWishlist(ctx, id)
		return err
	})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme appstate.Theme `json:"theme"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	s.withState(w, r, func(ctx context.Context, c *appstate.Container) error {
		return c.SetTheme(ctx, req.Theme)
	})
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	s.withState(w, r, func(ctx context.Context, c *appstate.Container) error {
		_, err := c.ToggleTheme(ctx)
		return err
	})
}
