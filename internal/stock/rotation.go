package stock

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/udisondev/traderplus/internal/bitfield"
	"github.com/udisondev/traderplus/internal/catalog"
)

// ProductSource lists the products the rotation pass walks over.
type ProductSource interface {
	Products() []*catalog.Product
}

// Rotator periodically applies each product's stock behavior
// (destock, restock, reset) to the ledger.
type Rotator struct {
	ledger   *Ledger
	products ProductSource
	interval time.Duration
}

// NewRotator creates a rotator. A non-positive interval disables it.
func NewRotator(ledger *Ledger, products ProductSource, interval time.Duration) *Rotator {
	return &Rotator{
		ledger:   ledger,
		products: products,
		interval: interval,
	}
}

// Start runs the rotation loop until ctx is cancelled.
func (r *Rotator) Start(ctx context.Context) error {
	if r.interval <= 0 {
		slog.Info("stock rotation disabled")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slog.Info("stock rotation started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("stock rotation stopping")
			return nil
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce applies one rotation pass and returns the number of products whose
// stock changed.
func (r *Rotator) RunOnce(ctx context.Context) int {
	changed := 0
	for _, p := range r.products.Products() {
		if p.IsUnlimited() {
			continue
		}
		if r.apply(ctx, p) {
			changed++
		}
	}

	if changed > 0 {
		slog.Info("stock rotation pass", "changed", changed)
	}
	return changed
}

func (r *Rotator) apply(ctx context.Context, p *catalog.Product) bool {
	settings := p.Stock()
	cur := r.ledger.GetStock(p.ID)

	switch settings.Behavior {
	case bitfield.StockDestock:
		n := int32(math.Ceil(float64(cur) * settings.Coefficient))
		return r.ledger.DecreaseStock(ctx, p.ID, n) > 0

	case bitfield.StockRestock:
		n := int32(math.Ceil(float64(p.MaxStock) * settings.Coefficient))
		return r.ledger.IncreaseStock(ctx, p.ID, n) > 0

	case bitfield.StockReset:
		if cur == 0 {
			return false
		}
		r.ledger.SetStock(ctx, p.ID, 0)
		return true

	default:
		return false
	}
}
