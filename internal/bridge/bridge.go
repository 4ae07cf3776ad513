// Package bridge keeps an in-memory cache synchronized with a store's
// change feed. The feed is at-least-once and unordered, so every event
// handler is defensive: duplicates are suppressed, updates for unknown
// rows fall back to inserts, and deletes of absent rows are no-ops.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tedtam/fieldops/internal/cache"
	"github.com/tedtam/fieldops/internal/store"
)

// Bridge binds one store subscription to one cache. Zero value is not
// usable; construct with New.
type Bridge struct {
	store  store.Store
	cache  *cache.Cache
	logger *slog.Logger

	mu  sync.Mutex
	sub store.Subscription
}

func New(st store.Store, c *cache.Cache, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{store: st, cache: c, logger: logger}
}

// Start loads the current collection into the cache and subscribes to
// changes. Calling Start on a started bridge is an error; a stopped
// bridge may be started again.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub != nil {
		return fmt.Errorf("bridge already started")
	}

	// Subscribe before listing so changes racing the initial fetch are
	// not dropped; Apply tolerates the resulting duplicates.
	b.sub = b.store.Subscribe(b.Apply)

	records, err := b.store.List(ctx)
	if err != nil {
		// Collection treated as empty; the feed keeps running and the
		// caller surfaces a warning instead of crashing.
		b.logger.Warn("initial customer load failed", "error", err)
		b.cache.ReplaceAll(nil)
		return nil
	}
	b.cache.ReplaceAll(records)
	return nil
}

// Stop tears the subscription down. Idempotent; the cache keeps its last
// contents.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub != nil {
		b.sub.Close()
		b.sub = nil
	}
}

// Running reports whether the bridge currently holds a live subscription.
func (b *Bridge) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sub != nil
}

// Apply classifies one change event and applies it to the cache.
// Exported so local write paths can reuse the same gate when they choose
// to apply optimistically instead of waiting for the echo.
func (b *Bridge) Apply(ev store.Event) {
	switch ev.Type {
	case store.EventInsert:
		if ev.New == nil {
			b.logger.Warn("insert event without new row dropped")
			return
		}
		if b.cache.Contains(ev.New.ID) {
			// Echo of a local write, or a redelivery. Either way the
			// row is already here.
			b.logger.Debug("duplicate insert suppressed", "id", ev.New.ID)
			return
		}
		b.cache.Upsert(*ev.New)
	case store.EventUpdate:
		if ev.New == nil {
			b.logger.Warn("update event without new row dropped")
			return
		}
		// Unknown id means the insert was missed; treat as insert.
		b.cache.Upsert(*ev.New)
	case store.EventDelete:
		if ev.Old == nil {
			b.logger.Warn("delete event without old row dropped")
			return
		}
		b.cache.Remove(ev.Old.ID)
	default:
		b.logger.Warn("unknown event type dropped", "type", ev.Type)
	}
}
