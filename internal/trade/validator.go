package trade

import (
	"context"
	"fmt"

	"github.com/udisondev/traderplus/internal/catalog"
)

// Catalog is the read side of the product catalog.
type Catalog interface {
	Product(id string) (*catalog.Product, bool)
	Preset(productID, name string) (*catalog.Preset, bool)
	MissingLicense(productID string, has func(license string) bool) (string, bool)
}

// Stock is the trader stock ledger.
type Stock interface {
	HasStock(productID string) bool
	CanIncreaseStock(productID string, maxStock int32) bool
	IncreaseStock(ctx context.Context, productID string, n int32) int32
	DecreaseStock(ctx context.Context, productID string, n int32) int32
}

// Validator checks transactions against the catalog, the stock and the actor.
type Validator struct {
	catalog Catalog
	stock   Stock
	traders *Directory
}

// NewValidator creates a validator.
func NewValidator(cat Catalog, stock Stock, traders *Directory) *Validator {
	return &Validator{catalog: cat, stock: stock, traders: traders}
}

// ValidateTransaction reports whether tx may be executed for actor. On
// failure the message names the reason.
func (v *Validator) ValidateTransaction(tx *Transaction, actor Actor) (bool, string) {
	if !tx.IsValid() {
		return false, "Invalid transaction"
	}

	p, ok := v.catalog.Product(tx.ProductID)
	if !ok {
		return false, "Product not found: " + tx.ProductID
	}

	switch tx.Type {
	case TypeBuy:
		return v.validateBuy(tx, p, actor)
	case TypeSell:
		return v.validateSell(tx, p, actor)
	}
	return false, "Invalid transaction"
}

func (v *Validator) validateBuy(tx *Transaction, p *catalog.Product, actor Actor) (bool, string) {
	if !p.CanBuy() {
		return false, "Product cannot be bought: " + p.ID
	}
	if !p.IsUnlimited() && !v.stock.HasStock(p.ID) {
		return false, "Out of stock: " + p.ID
	}

	if tx.Preset != "" {
		preset, ok := v.catalog.Preset(p.ID, tx.Preset)
		if !ok {
			return false, "Preset not found: " + tx.Preset
		}
		for _, id := range preset.Attachments {
			a, ok := v.catalog.Product(id)
			if !ok {
				return false, "Product not found: " + id
			}
			if !a.CanBuy() {
				return false, "Product cannot be bought: " + id
			}
			if !a.IsUnlimited() && !v.stock.HasStock(id) {
				return false, "Out of stock: " + id
			}
		}
	}

	if license, missing := v.catalog.MissingLicense(p.ID, actor.HasLicense); missing {
		return false, "Missing license: " + license
	}

	trader, msg := v.trader(tx.TraderID)
	if trader == nil {
		return false, msg
	}

	// Free items skip the funds check.
	if tx.TotalPrice > 0 {
		names := classNames(trader)
		funds := trader.Currencies.Total(actor.Holdings(names))
		if funds < tx.TotalPrice {
			return false, fmt.Sprintf("Insufficient funds: need %d, have %d", tx.TotalPrice, funds)
		}
	}

	return true, ""
}

func (v *Validator) validateSell(tx *Transaction, p *catalog.Product, actor Actor) (bool, string) {
	if !p.CanSell() {
		return false, "Product cannot be sold: " + p.ID
	}
	// One sell transaction hands over exactly one physical item.
	if tx.Multiplier != 1 {
		return false, fmt.Sprintf("Invalid sell multiplier %d: %s", tx.Multiplier, tx.NetworkID)
	}
	if !p.IsUnlimited() && !v.stock.CanIncreaseStock(p.ID, p.MaxStock) {
		return false, "Trader stock is full: " + p.ID
	}

	item, ok := locate(actor, tx.NetworkID)
	if !ok {
		return false, "Item not found: " + tx.NetworkID
	}
	if item.ClassName() != p.ClassName {
		return false, "Item does not match product: " + tx.NetworkID
	}
	if item.State().IsRuined() {
		return false, "Item is ruined: " + tx.NetworkID
	}
	if !p.Quantity().SellAccepts(item.Quantity(), item.MaxQuantity()) {
		return false, "Item quantity not accepted: " + tx.NetworkID
	}

	if trader, msg := v.trader(tx.TraderID); trader == nil {
		return false, msg
	}

	return true, ""
}

func (v *Validator) trader(id string) (*Trader, string) {
	t, ok := v.traders.Trader(id)
	if !ok {
		return nil, "Trader not found: " + id
	}
	if !t.AcceptsCurrency() {
		return nil, "Trader accepts no currency: " + id
	}
	return t, ""
}

func locate(actor Actor, networkID string) (Item, bool) {
	if networkID == "" {
		return nil, false
	}
	item, ok := actor.Locate(networkID)
	if !ok || item == nil {
		return nil, false
	}
	return item, true
}

func classNames(t *Trader) []string {
	denoms := t.Currencies.Denominations()
	names := make([]string, len(denoms))
	for i, d := range denoms {
		names[i] = d.ClassName
	}
	return names
}
