package bitfield

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackTradeQuantity_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		buyMode   QuantityMode
		buyValue  float64
		sellMode  QuantityMode
		sellValue float64
		want      TradeQuantity
	}{
		{
			name:    "defaults",
			buyMode: ModeFull, sellMode: ModeNoMatter,
			want: TradeQuantity{BuyMode: ModeFull, SellMode: ModeNoMatter},
		},
		{
			name:    "coefficients",
			buyMode: ModeCoefficient, buyValue: 0.5,
			sellMode: ModeCoefficient, sellValue: 0.25,
			want: TradeQuantity{BuyMode: ModeCoefficient, BuyValue: 0.5, SellMode: ModeCoefficient, SellValue: 0.25},
		},
		{
			name:    "three decimals kept",
			buyMode: ModeStatic, buyValue: 12.345,
			sellMode: ModeStatic, sellValue: 0.3,
			want: TradeQuantity{BuyMode: ModeStatic, BuyValue: 12.345, SellMode: ModeStatic, SellValue: 0.3},
		},
		{
			name:    "fourth decimal quantized",
			buyMode: ModeStatic, buyValue: 1.2344,
			sellMode: ModeEmpty, sellValue: 0.0004,
			want: TradeQuantity{BuyMode: ModeStatic, BuyValue: 1.234, SellMode: ModeEmpty, SellValue: 0},
		},
		{
			name:    "clamped",
			buyMode: ModeStatic, buyValue: 100,
			sellMode: ModeStatic, sellValue: 5,
			want: TradeQuantity{BuyMode: ModeStatic, BuyValue: 65.535, SellMode: ModeStatic, SellValue: 1.023},
		},
		{
			name:    "negative clamps to zero",
			buyMode: ModeStatic, buyValue: -3,
			sellMode: ModeStatic, sellValue: -1,
			want: TradeQuantity{BuyMode: ModeStatic, SellMode: ModeStatic},
		},
		{
			name:    "buy no matter stored as full",
			buyMode: ModeNoMatter, sellMode: ModeFull,
			want: TradeQuantity{BuyMode: ModeFull, SellMode: ModeFull},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnpackTradeQuantity(PackTradeQuantity(tt.buyMode, tt.buyValue, tt.sellMode, tt.sellValue))
			assert.Equal(t, tt.want.BuyMode, got.BuyMode)
			assert.Equal(t, tt.want.SellMode, got.SellMode)
			assert.InDelta(t, tt.want.BuyValue, got.BuyValue, 1e-9)
			assert.InDelta(t, tt.want.SellValue, got.SellValue, 1e-9)
		})
	}
}

func TestPackTradeQuantity_Layout(t *testing.T) {
	t.Parallel()

	p := uint32(PackTradeQuantity(ModeCoefficient, 0.001, ModeStatic, 0.002))

	assert.Equal(t, uint32(ModeStatic), p&0x7, "sell mode bits 0-2")
	assert.Equal(t, uint32(ModeCoefficient), (p>>3)&0x7, "buy mode bits 3-5")
	assert.Equal(t, uint32(2), (p>>6)&0x3FF, "sell value bits 6-15")
	assert.Equal(t, uint32(1), p>>16, "buy value bits 16-31")
}

func TestPackTradeQuantity_Idempotent(t *testing.T) {
	t.Parallel()

	for _, v := range []float64{0, 0.1, 0.333, 0.7777, 1, 1.0235, 42.42} {
		p := PackTradeQuantity(ModeStatic, v*10, ModeCoefficient, v)
		assert.Equal(t, p, UnpackTradeQuantity(p).Pack(), "value %v", v)
	}
}

func TestPackTradeQuantity_HighBitBuyValue(t *testing.T) {
	t.Parallel()

	// buy value above 32.767 sets the sign bit of the packed int32.
	p := PackTradeQuantity(ModeStatic, 60, ModeNoMatter, 0)
	assert.Negative(t, p)
	assert.InDelta(t, 60.0, UnpackTradeQuantity(p).BuyValue, 1e-9)
}

func TestStockSettings_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		coef     float64
		behavior StockBehavior
		wantCoef float64
		wantBeh  StockBehavior
	}{
		{0, StockKeep, 0, StockKeep},
		{0.1, StockDestock, 0.1, StockDestock},
		{0.12344, StockRestock, 0.1234, StockRestock},
		{1, StockReset, 1, StockReset},
		{7, StockDestock, 6.5535, StockDestock},
		{math.NaN(), StockKeep, 0, StockKeep},
		{0.5, StockBehavior(9), 0.5, StockReset},
	}

	for _, tt := range tests {
		got := UnpackStockSettings(PackStockSettings(tt.coef, tt.behavior))
		assert.InDelta(t, tt.wantCoef, got.Coefficient, 1e-9, "coef %v", tt.coef)
		assert.Equal(t, tt.wantBeh, got.Behavior, "behavior %v", tt.behavior)
	}
}

func TestTradeQuantity_SellAccepts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tq   TradeQuantity
		qty  float64
		max  float64
		want bool
	}{
		{"no matter", TradeQuantity{SellMode: ModeNoMatter}, 3, 10, true},
		{"empty ok", TradeQuantity{SellMode: ModeEmpty}, 0, 10, true},
		{"empty fails", TradeQuantity{SellMode: ModeEmpty}, 1, 10, false},
		{"full ok", TradeQuantity{SellMode: ModeFull}, 10, 10, true},
		{"full fails", TradeQuantity{SellMode: ModeFull}, 9, 10, false},
		{"coefficient ok", TradeQuantity{SellMode: ModeCoefficient, SellValue: 0.5}, 5, 10, true},
		{"coefficient fails", TradeQuantity{SellMode: ModeCoefficient, SellValue: 0.5}, 4, 10, false},
		{"static ok", TradeQuantity{SellMode: ModeStatic, SellValue: 0.2}, 0.2, 1, true},
		{"no quantity item", TradeQuantity{SellMode: ModeFull}, 0, 0, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.tq.SellAccepts(tt.qty, tt.max), tt.name)
	}
}

func TestTradeQuantity_BuyQuantity(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 10.0, TradeQuantity{BuyMode: ModeFull}.BuyQuantity(10), 1e-9)
	assert.InDelta(t, 0.0, TradeQuantity{BuyMode: ModeEmpty}.BuyQuantity(10), 1e-9)
	assert.InDelta(t, 2.5, TradeQuantity{BuyMode: ModeCoefficient, BuyValue: 0.25}.BuyQuantity(10), 1e-9)
	assert.InDelta(t, 3.0, TradeQuantity{BuyMode: ModeStatic, BuyValue: 3}.BuyQuantity(10), 1e-9)
	assert.InDelta(t, 10.0, TradeQuantity{BuyMode: ModeStatic, BuyValue: 30}.BuyQuantity(10), 1e-9)
	assert.InDelta(t, 0.0, TradeQuantity{BuyMode: ModeFull}.BuyQuantity(0), 1e-9)
}

func TestParseQuantityMode(t *testing.T) {
	t.Parallel()

	for _, m := range []QuantityMode{ModeNoMatter, ModeEmpty, ModeFull, ModeCoefficient, ModeStatic} {
		got, err := ParseQuantityMode(m.String())
		assert.NoError(t, err)
		assert.Equal(t, m, got)
	}

	got, err := ParseQuantityMode(" full ")
	assert.NoError(t, err)
	assert.Equal(t, ModeFull, got)

	_, err = ParseQuantityMode("half")
	assert.Error(t, err)
}

func TestParseStockBehavior(t *testing.T) {
	t.Parallel()

	for _, b := range []StockBehavior{StockKeep, StockDestock, StockRestock, StockReset} {
		got, err := ParseStockBehavior(b.String())
		assert.NoError(t, err)
		assert.Equal(t, b, got)
	}

	got, err := ParseStockBehavior("")
	assert.NoError(t, err)
	assert.Equal(t, StockKeep, got)

	_, err = ParseStockBehavior("burn")
	assert.Error(t, err)
}
