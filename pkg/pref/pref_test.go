package pref

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/vango-dev/storefront/pkg/kvstore"
)

// TestPrefNew tests creating new preferences.
func TestPrefNew(t *testing.T) {
	t.Run("WithDefaults", func(t *testing.T) {
		p := New(kvstore.NewMemory(), "theme", "light")

		if p.Key() != "theme" {
			t.Errorf("Key: got %v, want theme", p.Key())
		}
		if p.Get() != "light" {
			t.Errorf("Get: got %v, want light", p.Get())
		}
		if p.Loaded() {
			t.Error("new pref should not be loaded")
		}
	})

	t.Run("WithMergeStrategy", func(t *testing.T) {
		p := New(kvstore.NewMemory(), "settings", "default", MergeWith(RemoteWins))

		if p.config.merge != RemoteWins {
			t.Errorf("merge: got %v, want RemoteWins", p.config.merge)
		}
	})
}

// TestPrefSetPersists tests that Set writes through to the store.
func TestPrefSetPersists(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	p := New(store, "theme", "light")

	if err := p.Set(ctx, "dark"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if p.Get() != "dark" {
		t.Errorf("After Set: got %v, want dark", p.Get())
	}
	if p.UpdatedAt().IsZero() {
		t.Error("UpdatedAt should not be zero")
	}

	reloaded := New(store, "theme", "light")
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.Get() != "dark" {
		t.Errorf("After Load: got %v, want dark", reloaded.Get())
	}
	if !reloaded.UpdatedAt().Equal(p.UpdatedAt()) {
		t.Errorf("UpdatedAt: got %v, want %v", reloaded.UpdatedAt(), p.UpdatedAt())
	}
}

// TestPrefLoadMissing tests that a missing key keeps the default.
func TestPrefLoadMissing(t *testing.T) {
	p := New(kvstore.NewMemory(), "wishlist", []int{})

	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(p.Get()) != 0 {
		t.Errorf("Get: got %v, want empty", p.Get())
	}
	if !p.Loaded() {
		t.Error("Loaded should be true after Load")
	}
}

// TestPrefLoadCorrupt tests that undecodable data falls back to the default.
func TestPrefLoadCorrupt(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	_ = store.Set(ctx, "cart", []byte("{not json"))

	p := New(store, "cart", 7)
	if err := p.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Get() != 7 {
		t.Errorf("Get: got %v, want default 7", p.Get())
	}
}

type failingStore struct {
	kvstore.Store
	err error
}

func (f failingStore) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingStore) Set(context.Context, string, []byte) error { return f.err }
func (f failingStore) Delete(context.Context, string) error { return f.err }

// TestPrefBackendErrors tests that backend failures surface but keep memory state.
func TestPrefBackendErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	p := New(failingStore{err: boom}, "theme", "light")

	if err := p.Load(ctx); !errors.Is(err, boom) {
		t.Errorf("Load: got %v, want %v", err, boom)
	}
	if err := p.Set(ctx, "dark"); !errors.Is(err, boom) {
		t.Errorf("Set: got %v, want %v", err, boom)
	}
	if p.Get() != "dark" {
		t.Errorf("in-memory value should update: got %v", p.Get())
	}
}

// TestPrefUpdateAndReset tests Update and Reset.
func TestPrefUpdateAndReset(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	p := New(store, "count", 1)

	got, err := p.Update(ctx, func(v int) int { return v + 41 })
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got != 42 || p.Get() != 42 {
		t.Errorf("Update: got %v, want 42", got)
	}

	raw, _ := store.Get(ctx, "count")
	var rec struct {
		Value int `json:"value"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil || rec.Value != 42 {
		t.Errorf("persisted record: %s (%v)", raw, err)
	}

	if err := p.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if p.Get() != 1 {
		t.Errorf("After Reset: got %v, want 1", p.Get())
	}
}

// TestPrefSetFromRemote tests conflict resolution with remote values.
func TestPrefSetFromRemote(t *testing.T) {
	ctx := context.Background()

	t.Run("RemoteWins", func(t *testing.T) {
		p := New(kvstore.NewMemory(), "setting", "local", MergeWith(RemoteWins))
		_ = p.Set(ctx, "local")
		if !p.SetFromRemote("remote", time.Now().Add(-time.Hour)) {
			t.Error("RemoteWins should apply older remote value")
		}
		if p.Get() != "remote" {
			t.Errorf("got %v, want remote", p.Get())
		}
	})

	t.Run("LocalWins", func(t *testing.T) {
		p := New(kvstore.NewMemory(), "setting", "local", MergeWith(LocalWins))
		if p.SetFromRemote("remote", time.Now().Add(time.Hour)) {
			t.Error("LocalWins should never apply remote value")
		}
		if p.Get() != "local" {
			t.Errorf("got %v, want local", p.Get())
		}
	})

	t.Run("LWWNewerRemote", func(t *testing.T) {
		p := New(kvstore.NewMemory(), "setting", "local")
		_ = p.Set(ctx, "local")
		future := time.Now().Add(time.Hour)
		if !p.SetFromRemote("remote", future) {
			t.Error("newer remote should win")
		}
		if !p.UpdatedAt().Equal(future) {
			t.Errorf("UpdatedAt: got %v, want %v", p.UpdatedAt(), future)
		}
	})

	t.Run("LWWOlderRemote", func(t *testing.T) {
		p := New(kvstore.NewMemory(), "setting", "local")
		_ = p.Set(ctx, "local")
		if p.SetFromRemote("remote", time.Now().Add(-time.Hour)) {
			t.Error("older remote should lose")
		}
		if p.Get() != "local" {
			t.Errorf("got %v, want local", p.Get())
		}
	})
}
