package pricing

import "github.com/udisondev/traderplus/internal/catalog"

// ProductLookup resolves product definitions.
type ProductLookup interface {
	Product(id string) (*catalog.Product, bool)
}

// StockReader reads the trader stock of a product.
type StockReader interface {
	GetStock(productID string) int32
}

// Quoter prices products against the live stock ledger.
type Quoter struct {
	products ProductLookup
	stock    StockReader
}

// NewQuoter creates a quoter.
func NewQuoter(products ProductLookup, stock StockReader) *Quoter {
	return &Quoter{products: products, stock: stock}
}

// CalculateBuyPrice quotes multiplier units of p bought from the trader.
func (q *Quoter) CalculateBuyPrice(p *catalog.Product, multiplier int32, state ItemState) PriceCalculation {
	return q.quote(p, p.BuyPrice, multiplier, state, Buy)
}

// CalculateSellPrice quotes multiplier units of p sold to the trader.
func (q *Quoter) CalculateSellPrice(p *catalog.Product, multiplier int32, state ItemState) PriceCalculation {
	return q.quote(p, p.SellPrice, multiplier, state, Sell)
}

// PricePreview returns the total price for display, Untradable when the
// product is unknown or the direction is disabled.
func (q *Quoter) PricePreview(productID string, isBuy bool, multiplier int32, state ItemState) int64 {
	p, ok := q.products.Product(productID)
	if !ok {
		return Untradable
	}
	if isBuy {
		return q.CalculateBuyPrice(p, multiplier, state).CalculatedPrice
	}
	return q.CalculateSellPrice(p, multiplier, state).CalculatedPrice
}

func (q *Quoter) quote(p *catalog.Product, base int64, multiplier int32, state ItemState, dir Direction) PriceCalculation {
	var stock int32
	if !p.IsUnlimited() {
		stock = q.stock.GetStock(p.ID)
	}
	return NewPriceCalculation(base, p.Coefficient, stock, multiplier, state.Multiplier(), p.IsUnlimited(), dir)
}
