// Package pref provides typed values persisted under a single key of a
// kvstore.Store.
//
// A Pref is read once at startup with Load and written on every mutation.
// Values are JSON-encoded. A stored value that fails to decode is treated
// as absent: the default is used and the problem is logged.
//
// Example:
//
//	theme := pref.New(store, "theme", "light")
//	_ = theme.Load(ctx)
//	_ = theme.Set(ctx, "dark")
package pref

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vango-dev/storefront/pkg/kvstore"
)

// MergeStrategy determines how conflicts are resolved when a value arrives
// from another tab or device.
type MergeStrategy int

const (
	// LWW uses last-write-wins with timestamps.
	LWW MergeStrategy = iota

	// RemoteWins always takes the incoming value.
	RemoteWins

	// LocalWins keeps the local value.
	LocalWins
)

// Option configures a Pref.
type Option func(*config)

type config struct {
	merge  MergeStrategy
	logger *slog.Logger
}

// MergeWith sets the merge strategy used by SetFromRemote.
func MergeWith(strategy MergeStrategy) Option {
	return func(c *config) {
		c.merge = strategy
	}
}

// WithLogger sets the logger used for decode warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Pref is a persisted value of type T. It is safe for concurrent use.
type Pref[T any] struct {
	store    kvstore.Store
	key      string
	defaults T
	config   config

	mu        sync.RWMutex
	value     T
	updatedAt time.Time
	loaded    bool
}

// New creates a preference bound to key. The value is the default until
// Load is called.
func New[T any](store kvstore.Store, key string, defaultValue T, opts ...Option) *Pref[T] {
	cfg := config{merge: LWW, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Pref[T]{
		store:    store,
		key:      key,
		defaults: defaultValue,
		config:   cfg,
		value:    defaultValue,
	}
}

// record is the persisted envelope.
type record[T any] struct {
	Value     T         `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Load reads the stored value. A missing or undecodable value leaves the
// default in place; only backend failures are returned.
func (p *Pref[T]) Load(ctx context.Context) error {
	data, err := p.store.Get(ctx, p.key)
	if errors.Is(err, kvstore.ErrNotFound) {
		p.markLoaded()
		return nil
	}
	if err != nil {
		return fmt.Errorf("pref %q: %w", p.key, err)
	}

	var rec record[T]
	if err := json.Unmarshal(data, &rec); err != nil {
		p.config.logger.Warn("discarding undecodable preference", "key", p.key, "error", err)
		p.markLoaded()
		return nil
	}

	p.mu.Lock()
	p.value = rec.Value
	p.updatedAt = rec.UpdatedAt
	p.loaded = true
	p.mu.Unlock()
	return nil
}

func (p *Pref[T]) markLoaded() {
	p.mu.Lock()
	p.loaded = true
	p.mu.Unlock()
}

// Loaded reports whether Load has completed.
func (p *Pref[T]) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// Get returns the current value.
func (p *Pref[T]) Get() T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Set updates the value and persists it. On a persistence failure the
// in-memory value is still updated and the error is returned.
func (p *Pref[T]) Set(ctx context.Context, value T) error {
	p.mu.Lock()
	p.value = value
	p.updatedAt = time.Now()
	rec := record[T]{Value: value, UpdatedAt: p.updatedAt}
	p.mu.Unlock()

	return p.persist(ctx, rec)
}

// Update atomically transforms the value and persists the result.
func (p *Pref[T]) Update(ctx context.Context, fn func(T) T) (T, error) {
	p.mu.Lock()
	p.value = fn(p.value)
	p.updatedAt = time.Now()
	rec := record[T]{Value: p.value, UpdatedAt: p.updatedAt}
	p.mu.Unlock()

	return rec.Value, p.persist(ctx, rec)
}

// Reset restores the default value.
func (p *Pref[T]) Reset(ctx context.Context) error {
	return p.Set(ctx, p.defaults)
}

// Key returns the storage key.
func (p *Pref[T]) Key() string {
	return p.key
}

// UpdatedAt returns when the value was last written.
func (p *Pref[T]) UpdatedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updatedAt
}

// SetFromRemote applies a value written elsewhere, resolving conflicts with
// the configured merge strategy. It reports whether the local value changed.
// Remote values are not persisted again.
func (p *Pref[T]) SetFromRemote(value T, remoteUpdatedAt time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.config.merge {
	case LocalWins:
		return false
	case LWW:
		if !remoteUpdatedAt.After(p.updatedAt) {
			return false
		}
	}
	p.value = value
	if remoteUpdatedAt.After(p.updatedAt) {
		p.updatedAt = remoteUpdatedAt
	}
	return true
}

func (p *Pref[T]) persist(ctx context.Context, rec record[T]) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("pref %q: encode: %w", p.key, err)
	}
	if err := p.store.Set(ctx, p.key, data); err != nil {
		return fmt.Errorf("pref %q: %w", p.key, err)
	}
	return nil
}
