// Package pricing computes buy and sell prices from a product's base price,
// its stock coefficient and the trader's current stock.
//
// With a coefficient below 1 each unit is priced as
//
//	base * state * coefficient^exp
//
// where exp follows the stock level the unit is traded at: buying walks the
// stock down (price rises towards base as the trader runs out), selling walks
// it up (price falls as the trader accumulates the item).
package pricing

import (
	"fmt"
	"math"
	"strings"
)

// Untradable is the price of a disabled trade direction.
const Untradable int64 = -1

// Direction of a trade, seen from the player.
type Direction uint8

// Trade directions.
const (
	Buy Direction = iota
	Sell
)

func (d Direction) String() string {
	if d == Sell {
		return "SELL"
	}
	return "BUY"
}

// ItemState is the condition tier of a physical item.
type ItemState uint8

// Condition tiers.
const (
	Pristine ItemState = iota
	Worn
	Damaged
	BadlyDamaged
	Ruined
)

var stateMultipliers = [...]float64{
	Pristine:     1.0,
	Worn:         0.8,
	Damaged:      0.6,
	BadlyDamaged: 0.4,
	Ruined:       0.0,
}

// Multiplier returns the value scalar of the condition tier.
// Unknown tiers are worth nothing.
func (s ItemState) Multiplier() float64 {
	if int(s) >= len(stateMultipliers) {
		return 0
	}
	return stateMultipliers[s]
}

// IsRuined reports whether the item is worth nothing.
func (s ItemState) IsRuined() bool { return s >= Ruined }

func (s ItemState) String() string {
	switch s {
	case Pristine:
		return "PRISTINE"
	case Worn:
		return "WORN"
	case Damaged:
		return "DAMAGED"
	case BadlyDamaged:
		return "BADLY_DAMAGED"
	case Ruined:
		return "RUINED"
	default:
		return fmt.Sprintf("ItemState(%d)", uint8(s))
	}
}

// ParseItemState parses a tier name; the empty string is Pristine.
func ParseItemState(s string) (ItemState, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "PRISTINE":
		return Pristine, nil
	case "WORN":
		return Worn, nil
	case "DAMAGED":
		return Damaged, nil
	case "BADLY_DAMAGED":
		return BadlyDamaged, nil
	case "RUINED":
		return Ruined, nil
	}
	return Pristine, fmt.Errorf("unknown item state %q", s)
}

// CalculatePrice returns the total price of multiplier units, or Untradable
// when basePrice is Untradable.
//
// Static pricing (unlimited stock or coefficient 1) is
// round(base * multiplier * state) and ignores stock. Otherwise the per-unit
// prices of ProgressivePrices are summed and rounded; a positive base price
// never rounds down to a free item.
func CalculatePrice(basePrice int64, coefficient float64, stockQuantity, multiplier int32, stateMultiplier float64, unlimited bool, dir Direction) int64 {
	if basePrice == Untradable {
		return Untradable
	}
	if multiplier <= 0 {
		return 0
	}

	if isStatic(coefficient, unlimited) {
		return int64(math.Round(float64(basePrice) * float64(multiplier) * stateMultiplier))
	}

	var sum float64
	forEachUnit(basePrice, coefficient, stockQuantity, multiplier, stateMultiplier, dir, func(unit float64) {
		sum += unit
	})

	total := int64(math.Round(sum))
	if total == 0 && basePrice > 0 && stateMultiplier > 0 {
		total = 1
	}
	return total
}

// ProgressivePrices returns the unrounded price of every unit, in the order
// they would be traded. The rounded sum equals CalculatePrice for the same
// inputs. Returns nil for an untradable product.
func ProgressivePrices(basePrice int64, coefficient float64, stockQuantity, multiplier int32, stateMultiplier float64, unlimited bool, dir Direction) []float64 {
	if basePrice == Untradable || multiplier <= 0 {
		return nil
	}

	units := make([]float64, 0, multiplier)
	if isStatic(coefficient, unlimited) {
		unit := float64(basePrice) * stateMultiplier
		for range multiplier {
			units = append(units, unit)
		}
		return units
	}

	forEachUnit(basePrice, coefficient, stockQuantity, multiplier, stateMultiplier, dir, func(unit float64) {
		units = append(units, unit)
	})
	return units
}

func isStatic(coefficient float64, unlimited bool) bool {
	return unlimited || coefficient == 1.0
}

// forEachUnit yields the unit prices of progressive pricing.
//
// Buy, unit i in 1..m: level = max(stock-(i-1), 1).
// Sell, unit i in 0..m-1: level = max(stock+i+1, 1).
// Each unit costs coefficient^(level-1) * base * state.
func forEachUnit(basePrice int64, coefficient float64, stockQuantity, multiplier int32, stateMultiplier float64, dir Direction, yield func(float64)) {
	base := float64(basePrice) * stateMultiplier
	stock := int64(stockQuantity)

	for i := int64(0); i < int64(multiplier); i++ {
		var level int64
		if dir == Sell {
			level = stock + i + 1
		} else {
			level = stock - i
		}
		level = max(level, 1)
		yield(math.Pow(coefficient, float64(level-1)) * base)
	}
}

// PriceCalculation is an immutable quote: the inputs and the price derived
// from them. Never persisted.
type PriceCalculation struct {
	BasePrice        int64
	Coefficient      float64
	StockQuantity    int32
	Multiplier       int32
	StateMultiplier  float64
	IsUnlimitedStock bool
	Direction        Direction
	CalculatedPrice  int64
}

// NewPriceCalculation computes a quote.
func NewPriceCalculation(basePrice int64, coefficient float64, stockQuantity, multiplier int32, stateMultiplier float64, unlimited bool, dir Direction) PriceCalculation {
	return PriceCalculation{
		BasePrice:        basePrice,
		Coefficient:      coefficient,
		StockQuantity:    stockQuantity,
		Multiplier:       multiplier,
		StateMultiplier:  stateMultiplier,
		IsUnlimitedStock: unlimited,
		Direction:        dir,
		CalculatedPrice:  CalculatePrice(basePrice, coefficient, stockQuantity, multiplier, stateMultiplier, unlimited, dir),
	}
}

// IsValidPrice reports whether the quote is a displayable price.
// Untradable (-1) is not.
func (pc PriceCalculation) IsValidPrice() bool { return pc.CalculatedPrice >= 0 }

// IsFreeItem reports whether the quote is zero.
func (pc PriceCalculation) IsFreeItem() bool { return pc.CalculatedPrice == 0 }

// UnitPrices returns the per-unit breakdown of the quote.
func (pc PriceCalculation) UnitPrices() []float64 {
	return ProgressivePrices(pc.BasePrice, pc.Coefficient, pc.StockQuantity, pc.Multiplier, pc.StateMultiplier, pc.IsUnlimitedStock, pc.Direction)
}
