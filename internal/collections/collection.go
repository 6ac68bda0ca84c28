// Package collections holds the client-side stock registry and trade log.
// Both are ordered by timestamp ascending and only grow after the exchange confirmed a write.
package collections

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockdesk/internal/clients/exchange"
	"github.com/aristath/stockdesk/internal/domain"
	"github.com/aristath/stockdesk/internal/events"
)

// SnapshotStore persists the last successful fetch of a collection.
type SnapshotStore interface {
	Store(collection string, items interface{}, ttl time.Duration) error
	Get(collection string, out interface{}) (time.Time, bool, error)
	GetIfFresh(collection string, out interface{}) (time.Time, bool, error)
}

// Collection is an ordered, fetch-backed set of records.
type Collection[T domain.Record] struct {
	mu        sync.RWMutex
	name      string
	items     []T
	loaded    bool
	stale     bool
	fetchedAt time.Time

	snapshots SnapshotStore
	ttl       time.Duration

	events *events.Manager
	log    zerolog.Logger
}

func newCollection[T domain.Record](name string, em *events.Manager, log zerolog.Logger) *Collection[T] {
	return &Collection[T]{
		name:   name,
		events: em,
		log:    log.With().Str("collection", name).Logger(),
	}
}

// SetSnapshotStore enables the stale fallback for FetchAll.
func (c *Collection[T]) SetSnapshotStore(store SnapshotStore, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = store
	c.ttl = ttl
}

// Name returns the collection endpoint name ("stocks" or "trades")
func (c *Collection[T]) Name() string {
	return c.name
}

// Items returns a copy of the records in display order.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]T(nil), c.items...)
}

// Len returns the number of records
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Loaded reports whether a full fetch (live or cached) has populated the collection
func (c *Collection[T]) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Stale reports whether the contents came from the snapshot cache instead of the exchange.
func (c *Collection[T]) Stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stale
}

// FetchedAt returns when the current contents were fetched from the exchange
func (c *Collection[T]) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// FindBySymbol returns the first record whose symbol equals symbol exactly (case-sensitive).
func (c *Collection[T]) FindBySymbol(symbol string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if item.GetSymbol() == symbol {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// fetch replaces the contents with the result of list. On transport failure the last
// snapshot is loaded instead and the collection is marked stale.
func (c *Collection[T]) fetch(ctx context.Context, list func(context.Context) ([]T, error)) (stale bool, err error) {
	items, err := list(ctx)
	if err != nil {
		var transport *exchange.TransportError
		if !errors.As(err, &transport) {
			return false, err
		}
		cached, fetchedAt, ok := c.loadSnapshot()
		if !ok {
			return false, err
		}
		c.log.Warn().
			Err(err).
			Time("fetched_at", fetchedAt).
			Int("count", len(cached)).
			Msg("Exchange unreachable, using cached snapshot")
		c.replace(cached, true, fetchedAt)
		return true, nil
	}

	c.replace(items, false, time.Now())
	c.saveSnapshot()
	return false, nil
}

func (c *Collection[T]) replace(items []T, stale bool, fetchedAt time.Time) {
	sorted := append([]T(nil), items...)
	sortByTimestamp(sorted)

	c.mu.Lock()
	c.items = sorted
	c.loaded = true
	c.stale = stale
	c.fetchedAt = fetchedAt
	c.mu.Unlock()
}

// add appends item, or replaces the record sharing its symbol when unique is set.
// Returns true when the record was new.
func (c *Collection[T]) add(item T, unique bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if unique {
		for i := range c.items {
			if c.items[i].GetSymbol() == item.GetSymbol() {
				c.items[i] = item
				sortByTimestamp(c.items)
				return false
			}
		}
	}
	c.items = append(c.items, item)
	sortByTimestamp(c.items)
	return true
}

// LoadFresh fills the collection from an unexpired snapshot without contacting the exchange.
// The contents are flagged stale since they did not come from a live fetch. Returns false when
// no cache is configured or the snapshot is missing or expired.
func (c *Collection[T]) LoadFresh() bool {
	c.mu.RLock()
	store := c.snapshots
	c.mu.RUnlock()
	if store == nil {
		return false
	}

	var items []T
	fetchedAt, ok, err := store.GetIfFresh(c.name, &items)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to read cached snapshot")
		return false
	}
	if !ok {
		return false
	}
	c.replace(items, true, fetchedAt)
	c.log.Debug().Time("fetched_at", fetchedAt).Int("count", len(items)).Msg("Serving fresh cached snapshot")
	return true
}

func (c *Collection[T]) loadSnapshot() ([]T, time.Time, bool) {
	c.mu.RLock()
	store := c.snapshots
	c.mu.RUnlock()
	if store == nil {
		return nil, time.Time{}, false
	}

	var items []T
	fetchedAt, ok, err := store.Get(c.name, &items)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to read cached snapshot")
		return nil, time.Time{}, false
	}
	return items, fetchedAt, ok
}

// saveSnapshot stores the current contents. Only a live full fetch, or a write applied on
// top of one, is a snapshot: a collection holding single records (Refresh, Create without
// FetchAll) or cached data never overwrites it. Failures are logged, the cache is best effort.
func (c *Collection[T]) saveSnapshot() {
	if !c.Loaded() || c.Stale() {
		return
	}

	c.mu.RLock()
	store, ttl := c.snapshots, c.ttl
	items := append([]T(nil), c.items...)
	c.mu.RUnlock()

	if store == nil {
		return
	}
	if err := store.Store(c.name, items, ttl); err != nil {
		c.log.Warn().Err(err).Msg("Failed to store snapshot")
	}
}

func (c *Collection[T]) emit(data events.EventData) {
	if c.events != nil {
		c.events.Emit(c.name, data)
	}
}

// sortByTimestamp orders records by timestamp ascending, keeping insertion order for ties.
func sortByTimestamp[T domain.Record](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].GetTimestamp() < items[j].GetTimestamp()
	})
}

func opError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
