package trade

import (
	"errors"
	"fmt"

	"github.com/udisondev/traderplus/internal/currency"
	"github.com/udisondev/traderplus/internal/pricing"
)

// Item is a physical item instance owned by the actor.
type Item interface {
	NetworkID() string
	ClassName() string
	State() pricing.ItemState
	// Quantity and MaxQuantity describe stackable or fillable items
	// (ammo, liquids). MaxQuantity <= 0 means the item has no quantity.
	Quantity() float64
	MaxQuantity() float64
}

// ItemLocator resolves physical items by network identity.
type ItemLocator interface {
	Locate(networkID string) (Item, bool)
}

// Wallet holds the actor's currency items.
type Wallet interface {
	// Holdings returns the number of units held of each class.
	Holdings(classNames []string) map[string]int64
	Withdraw(className string, n int64) error
	Deposit(className string, n int64) error
}

// Inventory creates and destroys physical items.
type Inventory interface {
	// Spawn creates an item with the given attachments. quantity maps the
	// class's maximum quantity to the quantity the item is created with.
	Spawn(className string, attachments []string, quantity func(maxQuantity float64) float64) (networkID string, err error)
	Remove(networkID string) error
}

// Actor is the player a batch is processed for.
type Actor interface {
	ID() string
	HasLicense(name string) bool
	ItemLocator
	Wallet
	Inventory
}

var (
	ErrUnknownTrader   = errors.New("unknown trader")
	ErrDuplicateTrader = errors.New("duplicate trader")
)

// Trader is an NPC vendor and the currencies it trades in.
type Trader struct {
	ID         string
	Name       string
	Currencies *currency.Set
}

// AcceptsCurrency reports whether the trader has at least one currency.
func (t *Trader) AcceptsCurrency() bool {
	return t.Currencies != nil && t.Currencies.Len() > 0
}

// TraderDef declares a trader by the class names of its currencies.
type TraderDef struct {
	ID         string
	Name       string
	Currencies []string
}

// Directory looks traders up by ID. Read-only after construction.
type Directory struct {
	traders map[string]*Trader
}

// NewDirectory builds the directory, resolving each trader's currencies in
// registry.
func NewDirectory(registry *currency.Set, defs []TraderDef) (*Directory, error) {
	d := &Directory{traders: make(map[string]*Trader, len(defs))}
	for _, def := range defs {
		if _, ok := d.traders[def.ID]; ok {
			return nil, fmt.Errorf("trader %s: %w", def.ID, ErrDuplicateTrader)
		}
		set, err := registry.Subset(def.Currencies)
		if err != nil {
			return nil, fmt.Errorf("trader %s: %w", def.ID, err)
		}
		d.traders[def.ID] = &Trader{ID: def.ID, Name: def.Name, Currencies: set}
	}
	return d, nil
}

// Trader returns the trader with the given ID.
func (d *Directory) Trader(id string) (*Trader, bool) {
	t, ok := d.traders[id]
	return t, ok
}

// Len returns the number of traders.
func (d *Directory) Len() int { return len(d.traders) }
