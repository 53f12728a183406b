package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/traderplus/internal/bitfield"
	"github.com/udisondev/traderplus/internal/catalog"
	"github.com/udisondev/traderplus/internal/stock"
	"github.com/udisondev/traderplus/internal/testutil"
	"github.com/udisondev/traderplus/internal/trade"
)

func TestCatalogRepository_RoundTrip(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewCatalogRepository(pool)

	cat := catalog.New(repo)
	require.NoError(t, cat.Init(ctx))

	scope, err := cat.CreateProduct(ctx, catalog.Product{
		ClassName: "PSO1", BuyPrice: 200, SellPrice: 100, Coefficient: 1, MaxStock: 5,
	})
	require.NoError(t, err)
	rifle, err := cat.CreateProduct(ctx, catalog.Product{
		ClassName:     "AK47",
		BuyPrice:      1000,
		SellPrice:     catalog.NotTradable,
		Coefficient:   0.95,
		MaxStock:      10,
		TradeQuantity: bitfield.PackTradeQuantity(bitfield.ModeFull, 0, bitfield.ModeStatic, 0.25),
		StockSettings: bitfield.PackStockSettings(0.1, bitfield.StockDestock),
		Attachments:   []string{scope.ID},
	})
	require.NoError(t, err)

	rifles, err := cat.CreateCategory(ctx, "Rifles", true, []string{"firearms"})
	require.NoError(t, err)
	require.NoError(t, cat.AddToCategory(ctx, rifles.ID, rifle.ID))
	require.NoError(t, cat.SetPreset(ctx, catalog.Preset{ProductID: rifle.ID, Name: "scoped", Attachments: []string{scope.ID}}))

	// A fresh catalog over the same tables sees everything and keeps
	// generating fresh identifiers.
	reloaded := catalog.New(repo)
	require.NoError(t, reloaded.Init(ctx))

	got, ok := reloaded.Product(rifle.ID)
	require.True(t, ok)
	assert.Equal(t, rifle.ClassName, got.ClassName)
	assert.Equal(t, rifle.BuyPrice, got.BuyPrice)
	assert.Equal(t, catalog.NotTradable, got.SellPrice)
	assert.InDelta(t, 0.95, got.Coefficient, 1e-9)
	assert.Equal(t, int32(10), got.MaxStock)
	assert.Equal(t, rifle.TradeQuantity, got.TradeQuantity)
	assert.Equal(t, bitfield.StockDestock, got.Stock().Behavior)
	assert.Equal(t, []string{scope.ID}, got.Attachments)

	gotScope, ok := reloaded.Product(scope.ID)
	require.True(t, ok)
	assert.Empty(t, gotScope.Attachments)

	gotCat, ok := reloaded.Category(rifles.ID)
	require.True(t, ok)
	assert.Equal(t, []string{rifle.ID}, gotCat.Products)
	assert.Equal(t, []string{"firearms"}, gotCat.Licenses)

	preset, ok := reloaded.Preset(rifle.ID, "scoped")
	require.True(t, ok)
	assert.Equal(t, []string{scope.ID}, preset.Attachments)

	next, err := reloaded.CreateProduct(ctx, catalog.Product{ClassName: "AK47", BuyPrice: 1, SellPrice: 1, Coefficient: 1, MaxStock: -1})
	require.NoError(t, err)
	assert.Equal(t, "prod_ak47_002", next.ID)
}

func TestStockRepository(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewStockRepository(pool)

	empty, err := repo.LoadStock(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	ledger := stock.NewLedger(repo, func(string) int32 { return 10 })
	ledger.SetStock(ctx, "prod_apple_001", 7)
	ledger.IncreaseStock(ctx, "prod_apple_001", 5)
	ledger.DecreaseStock(ctx, "prod_pear_001", 1)
	ledger.IncreaseStock(ctx, "prod_pear_001", 2)

	loaded, err := repo.LoadStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int32{"prod_apple_001": 10, "prod_pear_001": 2}, loaded)

	assert.Error(t, repo.SaveStock(ctx, "prod_apple_001", -1), "negative stock is rejected by the table")
}

func TestJournalRepository(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewJournalRepository(pool)

	p := &catalog.Product{ID: "prod_apple_001"}
	buy := trade.CreateBuyTransaction(p, 2, 150, "trader_general", "")
	sell := trade.CreateSellTransaction(p, 1, 40, "trader_general", "net-7", 0)

	require.NoError(t, repo.Record(ctx, "player-1", buy, trade.Success(buy, "Bought Apple x2 for 150")))
	require.NoError(t, repo.Record(ctx, "player-1", sell, trade.Failure(sell, "Item not found: net-7")))
	require.NoError(t, repo.Record(ctx, "player-2", buy, trade.Success(buy, "again")))

	entries, err := repo.Recent(ctx, "player-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, sell.ID, entries[0].TransactionID)
	assert.Equal(t, "SELL", entries[0].Type)
	assert.Equal(t, "FAILURE", entries[0].Status)
	assert.Equal(t, "net-7", entries[0].NetworkID)

	assert.Equal(t, buy.ID, entries[1].TransactionID)
	assert.Equal(t, int64(150), entries[1].TotalPrice)
	assert.Equal(t, int32(2), entries[1].Multiplier)

	limited, err := repo.Recent(ctx, "player-1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
