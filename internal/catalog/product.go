package catalog

import (
	"slices"

	"github.com/udisondev/traderplus/internal/bitfield"
)

// NotTradable marks a disabled trade direction in BuyPrice/SellPrice.
const NotTradable int64 = -1

// UnlimitedStock marks a product whose stock is not tracked.
const UnlimitedStock int32 = -1

// Product is a tradable definition, not a physical item instance.
// ID is assigned once by the catalog and never changes.
type Product struct {
	ID        string
	ClassName string

	// BuyPrice is what a player pays the trader, SellPrice what the trader pays.
	// NotTradable disables the direction.
	BuyPrice  int64
	SellPrice int64

	// Coefficient is the exponential base of stock-driven pricing.
	// 1.0 means static prices.
	Coefficient float64

	MaxStock int32

	// Packed settings, see package bitfield.
	TradeQuantity int32
	StockSettings int32

	Attachments []string
	Variants    []string
}

// CanBuy reports whether players may buy the product.
func (p *Product) CanBuy() bool { return p.BuyPrice >= 0 }

// CanSell reports whether players may sell the product.
func (p *Product) CanSell() bool { return p.SellPrice >= 0 }

// IsUnlimited reports whether the product ignores stock.
func (p *Product) IsUnlimited() bool { return p.MaxStock < 0 }

// Quantity returns the unpacked trade quantity setting.
func (p *Product) Quantity() bitfield.TradeQuantity {
	return bitfield.UnpackTradeQuantity(p.TradeQuantity)
}

// Stock returns the unpacked stock setting.
func (p *Product) Stock() bitfield.StockSettings {
	return bitfield.UnpackStockSettings(p.StockSettings)
}

// HasAttachment reports whether productID is a declared attachment.
func (p *Product) HasAttachment(productID string) bool {
	return slices.Contains(p.Attachments, productID)
}

// Clone returns a deep copy.
func (p *Product) Clone() *Product {
	c := *p
	c.Attachments = slices.Clone(p.Attachments)
	c.Variants = slices.Clone(p.Variants)
	return &c
}

// Category groups products for display. Membership only: products are owned
// by the catalog, not by their categories.
type Category struct {
	ID       string
	Name     string
	Visible  bool
	Licenses []string
	Products []string
}

// Clone returns a deep copy.
func (c *Category) Clone() *Category {
	cp := *c
	cp.Licenses = slices.Clone(c.Licenses)
	cp.Products = slices.Clone(c.Products)
	return &cp
}

// Preset is a named set of attachments bought together with a product.
type Preset struct {
	ProductID   string
	Name        string
	Attachments []string
}

// Clone returns a deep copy.
func (p *Preset) Clone() *Preset {
	c := *p
	c.Attachments = slices.Clone(p.Attachments)
	return &c
}
