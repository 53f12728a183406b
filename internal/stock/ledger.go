// Package stock keeps the trader-side stock counter of every product.
package stock

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
)

// Store persists stock counters.
type Store interface {
	LoadStock(ctx context.Context) (map[string]int32, error)
	SaveStock(ctx context.Context, productID string, value int32) error
}

// CapacityFunc returns the stock cap of a product, negative for unlimited.
type CapacityFunc func(productID string) int32

// Ledger holds one counter per product. A product without a record has
// stock 0. Counters never go below zero and never exceed the product's cap.
//
// Every mutation is serialized per product and written to the store before
// the product's lock is released, so the store sees changes in order.
// Store failures are logged; the in-memory value stays authoritative.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]*entry

	capacity CapacityFunc
	store    Store
}

type entry struct {
	mu    sync.Mutex
	value int32
}

// NewLedger creates an empty ledger. store may be nil. capacity may be nil,
// in which case every product is unlimited.
func NewLedger(store Store, capacity CapacityFunc) *Ledger {
	if capacity == nil {
		capacity = func(string) int32 { return -1 }
	}
	return &Ledger{
		entries:  make(map[string]*entry, 256),
		capacity: capacity,
		store:    store,
	}
}

// Init loads all counters from the store.
func (l *Ledger) Init(ctx context.Context) error {
	if l.store == nil {
		return nil
	}

	values, err := l.store.LoadStock(ctx)
	if err != nil {
		return fmt.Errorf("load stock: %w", err)
	}

	l.mu.Lock()
	for id, v := range values {
		l.entries[id] = &entry{value: max(v, 0)}
	}
	l.mu.Unlock()

	slog.Info("stock ledger loaded", "products", len(values))
	return nil
}

// GetStock returns the current stock of a product.
func (l *Ledger) GetStock(productID string) int32 {
	e := l.lookup(productID)
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// HasStock reports whether at least one unit can be taken from the trader.
// Unlimited products always have stock.
func (l *Ledger) HasStock(productID string) bool {
	if l.capacity(productID) < 0 {
		return true
	}
	return l.GetStock(productID) > 0
}

// CanIncreaseStock reports whether the trader has room for another unit.
func (l *Ledger) CanIncreaseStock(productID string, maxStock int32) bool {
	if maxStock < 0 {
		return true
	}
	return l.GetStock(productID) < maxStock
}

// IncreaseStock adds n units, capped by the product's maximum.
// Returns the number of units actually added.
func (l *Ledger) IncreaseStock(ctx context.Context, productID string, n int32) int32 {
	if n <= 0 {
		return 0
	}
	return l.mutate(ctx, productID, func(cur, limit int32) int32 {
		next := cur + n
		if next < cur { // overflow
			next = cur
		}
		if limit >= 0 && next > limit {
			next = max(limit, cur)
		}
		return next
	})
}

// DecreaseStock removes n units, stopping at zero.
// Returns the number of units actually removed.
func (l *Ledger) DecreaseStock(ctx context.Context, productID string, n int32) int32 {
	if n <= 0 {
		return 0
	}
	return -l.mutate(ctx, productID, func(cur, _ int32) int32 {
		return max(cur-n, 0)
	})
}

// SetStock overwrites the counter, clamped to [0, max].
func (l *Ledger) SetStock(ctx context.Context, productID string, value int32) {
	l.mutate(ctx, productID, func(_, limit int32) int32 {
		v := max(value, 0)
		if limit >= 0 && v > limit {
			v = limit
		}
		return v
	})
}

// Snapshot returns a copy of every counter.
func (l *Ledger) Snapshot() map[string]int32 {
	l.mu.RLock()
	entries := maps.Clone(l.entries)
	l.mu.RUnlock()

	out := make(map[string]int32, len(entries))
	for id, e := range entries {
		e.mu.Lock()
		out[id] = e.value
		e.mu.Unlock()
	}
	return out
}

// mutate applies fn to the counter under the product lock, persists the new
// value if it changed and returns the delta.
func (l *Ledger) mutate(ctx context.Context, productID string, fn func(cur, limit int32) int32) int32 {
	e := l.getOrCreate(productID)
	limit := l.capacity(productID)

	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.value
	next := fn(prev, limit)
	if next == prev {
		return 0
	}
	e.value = next

	if l.store != nil {
		if err := l.store.SaveStock(ctx, productID, next); err != nil {
			slog.Error("save stock",
				"productID", productID,
				"value", next,
				"error", err)
		}
	}

	slog.Debug("stock changed", "productID", productID, "from", prev, "to", next)
	return next - prev
}

func (l *Ledger) lookup(productID string) *entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entries[productID]
}

func (l *Ledger) getOrCreate(productID string) *entry {
	if e := l.lookup(productID); e != nil {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[productID]; ok {
		return e
	}
	e := &entry{}
	l.entries[productID] = e
	return e
}
