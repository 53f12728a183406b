// Package bitfield packs the compact per-product trade settings into 32-bit
// integers for storage.
//
// Trade quantity layout:
//
//	bits  0-2   sell mode
//	bits  3-5   buy mode
//	bits  6-15  sell value * 1000 (0..1023)
//	bits 16-31  buy value * 1000 (0..65535)
//
// Stock settings layout:
//
//	bits  0-15  destock coefficient * 10000 (0..65535)
//	bits 16-17  stock behavior (0..3)
//
// Values outside a field's range are clamped silently. Fractional values are
// quantized to the field resolution, so unpacking returns the quantized value.
package bitfield

import (
	"fmt"
	"math"
	"strings"
)

// QuantityMode says how the quantity of a physical item is treated on trade.
type QuantityMode uint8

// Quantity modes.
const (
	ModeNoMatter QuantityMode = iota // sell only: any quantity is accepted
	ModeEmpty
	ModeFull
	ModeCoefficient
	ModeStatic
)

func (m QuantityMode) String() string {
	switch m {
	case ModeNoMatter:
		return "NO_MATTER"
	case ModeEmpty:
		return "EMPTY"
	case ModeFull:
		return "FULL"
	case ModeCoefficient:
		return "COEFFICIENT"
	case ModeStatic:
		return "STATIC"
	default:
		return "UNKNOWN"
	}
}

const (
	modeBits      = 3
	modeMask      = 1<<modeBits - 1
	sellValueBits = 10
	sellValueMax  = 1<<sellValueBits - 1
	buyValueMax   = 1<<16 - 1

	buyModeShift   = 3
	sellValueShift = 6
	buyValueShift  = 16

	quantityScale = 1000
)

// TradeQuantity is the unpacked trade quantity setting.
type TradeQuantity struct {
	BuyMode   QuantityMode
	BuyValue  float64
	SellMode  QuantityMode
	SellValue float64
}

// PackTradeQuantity packs the four trade quantity fields.
// A buy mode of ModeNoMatter is stored as ModeFull; unknown modes clamp to ModeStatic.
func PackTradeQuantity(buyMode QuantityMode, buyValue float64, sellMode QuantityMode, sellValue float64) int32 {
	if buyMode == ModeNoMatter {
		buyMode = ModeFull
	}

	var u uint32
	u |= uint32(clampMode(sellMode))
	u |= uint32(clampMode(buyMode)) << buyModeShift
	u |= quantize(sellValue, quantityScale, sellValueMax) << sellValueShift
	u |= quantize(buyValue, quantityScale, buyValueMax) << buyValueShift
	return int32(u)
}

// UnpackTradeQuantity reverses PackTradeQuantity.
func UnpackTradeQuantity(packed int32) TradeQuantity {
	u := uint32(packed)
	return TradeQuantity{
		SellMode:  QuantityMode(u & modeMask),
		BuyMode:   QuantityMode((u >> buyModeShift) & modeMask),
		SellValue: float64((u>>sellValueShift)&sellValueMax) / quantityScale,
		BuyValue:  float64((u>>buyValueShift)&buyValueMax) / quantityScale,
	}
}

// Pack packs tq.
func (tq TradeQuantity) Pack() int32 {
	return PackTradeQuantity(tq.BuyMode, tq.BuyValue, tq.SellMode, tq.SellValue)
}

// SellAccepts reports whether a physical item holding quantity out of
// maxQuantity may be sold under the sell mode. Items without a quantity
// (maxQuantity <= 0) are always accepted.
func (tq TradeQuantity) SellAccepts(quantity, maxQuantity float64) bool {
	if maxQuantity <= 0 {
		return true
	}

	switch tq.SellMode {
	case ModeEmpty:
		return quantity <= 0
	case ModeFull:
		return quantity >= maxQuantity
	case ModeCoefficient:
		return quantity >= tq.SellValue*maxQuantity
	case ModeStatic:
		return quantity >= tq.SellValue
	default:
		return true
	}
}

// BuyQuantity returns the quantity a freshly bought item is spawned with.
func (tq TradeQuantity) BuyQuantity(maxQuantity float64) float64 {
	if maxQuantity <= 0 {
		return 0
	}

	switch tq.BuyMode {
	case ModeEmpty:
		return 0
	case ModeCoefficient:
		return math.Min(tq.BuyValue, 1) * maxQuantity
	case ModeStatic:
		return math.Min(tq.BuyValue, maxQuantity)
	default:
		return maxQuantity
	}
}

// StockBehavior selects what the periodic stock pass does to a product.
type StockBehavior uint8

// Stock behaviors.
const (
	StockKeep    StockBehavior = iota // stock is left alone
	StockDestock                      // remove coefficient*stock units
	StockRestock                      // add coefficient*maxStock units, capped by maxStock
	StockReset                        // drop stock to zero
)

func (b StockBehavior) String() string {
	switch b {
	case StockKeep:
		return "KEEP"
	case StockDestock:
		return "DESTOCK"
	case StockRestock:
		return "RESTOCK"
	case StockReset:
		return "RESET"
	default:
		return "UNKNOWN"
	}
}

const (
	coefficientMax   = 1<<16 - 1
	coefficientScale = 10000
	behaviorShift    = 16
	behaviorMask     = 0x3
)

// StockSettings is the unpacked stock setting.
type StockSettings struct {
	Coefficient float64
	Behavior    StockBehavior
}

// PackStockSettings packs a destock coefficient and a behavior code.
func PackStockSettings(coefficient float64, behavior StockBehavior) int32 {
	b := uint32(behavior)
	if b > behaviorMask {
		b = behaviorMask
	}
	u := quantize(coefficient, coefficientScale, coefficientMax) | b<<behaviorShift
	return int32(u)
}

// UnpackStockSettings reverses PackStockSettings.
func UnpackStockSettings(packed int32) StockSettings {
	u := uint32(packed)
	return StockSettings{
		Coefficient: float64(u&coefficientMax) / coefficientScale,
		Behavior:    StockBehavior((u >> behaviorShift) & behaviorMask),
	}
}

// Pack packs s.
func (s StockSettings) Pack() int32 {
	return PackStockSettings(s.Coefficient, s.Behavior)
}

func clampMode(m QuantityMode) QuantityMode {
	if m > ModeStatic {
		return ModeStatic
	}
	return m
}

// quantize converts v to fixed point with the given scale, clamped to [0, limit].
func quantize(v, scale float64, limit uint32) uint32 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	f := math.Round(v * scale)
	if f >= float64(limit) {
		return limit
	}
	return uint32(f)
}

// ParseQuantityMode parses a mode name as printed by String. Matching is
// case-insensitive; the empty string is ModeNoMatter.
func ParseQuantityMode(s string) (QuantityMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NO_MATTER":
		return ModeNoMatter, nil
	case "EMPTY":
		return ModeEmpty, nil
	case "FULL":
		return ModeFull, nil
	case "COEFFICIENT":
		return ModeCoefficient, nil
	case "STATIC":
		return ModeStatic, nil
	}
	return ModeNoMatter, fmt.Errorf("unknown quantity mode %q", s)
}

// ParseStockBehavior parses a behavior name as printed by String. The empty
// string is StockKeep.
func ParseStockBehavior(s string) (StockBehavior, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "KEEP":
		return StockKeep, nil
	case "DESTOCK":
		return StockDestock, nil
	case "RESTOCK":
		return StockRestock, nil
	case "RESET":
		return StockReset, nil
	}
	return StockKeep, fmt.Errorf("unknown stock behavior %q", s)
}
