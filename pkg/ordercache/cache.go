// Package ordercache keeps client-side order state consistent with
// server-reported state. Each client instance owns one cache; it never
// deletes entries, it only records and transitions them.
package ordercache

import (
	"sort"
	"sync"

	"github.com/cockroachdb/apd/v3"

	"omniex/pkg/core"
)

// Cache holds every order the client has seen, keyed by backend order id.
// Reads may be concurrent; mutation takes the write lock.
type Cache struct {
	mu     sync.RWMutex
	orders map[string]*core.Order
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{orders: make(map[string]*core.Order)}
}

// Upsert records an order, merging its non-empty fields onto any cached
// version. An order already in a terminal state is never reopened by stale
// data reporting it open.
func (c *Cache) Upsert(order *core.Order) {
	if order == nil || order.ID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upsertLocked(order)
}

func (c *Cache) upsertLocked(order *core.Order) {
	cached, ok := c.orders[order.ID]
	if !ok {
		cp := *order
		c.orders[order.ID] = &cp
		return
	}
	prev := cached.Status
	cached.Merge(order)
	if prev.IsTerminal() && order.Status == core.StatusOpen {
		// A fetch overtaken by the close; keep the terminal state.
		cached.Status = prev
	}
}

// Get returns a copy of the cached order, or nil when unknown.
func (c *Cache) Get(id string) *core.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if o, ok := c.orders[id]; ok {
		cp := *o
		return &cp
	}
	return nil
}

// All returns copies of every cached order, optionally filtered by symbol,
// sorted by creation time then id for stable output.
func (c *Cache) All(symbol string) []*core.Order {
	return c.filter(symbol, func(*core.Order) bool { return true })
}

// Open returns copies of the cached orders still open, optionally filtered
// by symbol.
func (c *Cache) Open(symbol string) []*core.Order {
	return c.filter(symbol, func(o *core.Order) bool { return o.Status == core.StatusOpen })
}

// Closed returns copies of the cached orders no longer open, optionally
// filtered by symbol.
func (c *Cache) Closed(symbol string) []*core.Order {
	return c.filter(symbol, func(o *core.Order) bool { return o.Status != core.StatusOpen })
}

func (c *Cache) filter(symbol string, keep func(*core.Order) bool) []*core.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*core.Order, 0, len(c.orders))
	for _, o := range c.orders {
		if symbol != "" && o.Symbol != symbol {
			continue
		}
		if !keep(o) {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len reports how many orders the cache holds.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.orders)
}

// Reconcile folds a fresh open-orders snapshot into the cache. Every
// observed order is upserted; every cached order that is open, lies within
// the snapshot's symbol scope, and is absent from the snapshot transitions
// to closed with remaining zero and filled equal to amount. The transition
// deliberately conflates "fully filled" and "canceled externally": the
// snapshot cannot distinguish them, and closed is the conservative reading.
// Scope is the symbol the snapshot was fetched for; empty means the snapshot
// covers all symbols. Reconcile is idempotent: replaying the same snapshot
// changes nothing.
func (c *Cache) Reconcile(observed []*core.Order, scopeSymbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{}, len(observed))
	for _, o := range observed {
		if o == nil || o.ID == "" {
			continue
		}
		seen[o.ID] = struct{}{}
		c.upsertLocked(o)
	}

	for _, cached := range c.orders {
		if cached.Status != core.StatusOpen {
			continue
		}
		if scopeSymbol != "" && cached.Symbol != scopeSymbol {
			continue
		}
		if _, ok := seen[cached.ID]; ok {
			continue
		}
		closeAsFilled(cached)
	}
}

// closeAsFilled applies the vanished-order transition: the backend no longer
// lists the order as open, so locally it becomes closed and fully filled.
func closeAsFilled(o *core.Order) {
	o.Status = core.StatusClosed
	if o.Amount != nil {
		o.Filled = o.Amount
	}
	o.Remaining = apd.New(0, 0)
	if o.Cost == nil {
		o.Cost = core.DecMul(o.Price, o.Filled)
	}
}
