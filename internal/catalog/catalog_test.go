package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/traderplus/internal/bitfield"
)

// mockStore implements Store in memory.
type mockStore struct {
	mu         sync.Mutex
	products   map[string]*Product
	categories map[string]*Category
	presets    []*Preset
}

func newMockStore() *mockStore {
	return &mockStore{
		products:   make(map[string]*Product),
		categories: make(map[string]*Category),
	}
}

func (s *mockStore) LoadProducts(context.Context) ([]*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Product
	for _, p := range s.products {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (s *mockStore) SaveProduct(_ context.Context, p *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p.Clone()
	return nil
}

func (s *mockStore) LoadCategories(context.Context) ([]*Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Category
	for _, c := range s.categories {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (s *mockStore) SaveCategory(_ context.Context, c *Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c.Clone()
	return nil
}

func (s *mockStore) LoadPresets(context.Context) ([]*Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presets, nil
}

func (s *mockStore) SavePreset(_ context.Context, p *Preset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presets = append(s.presets, p.Clone())
	return nil
}

func rifle() Product {
	return Product{
		ClassName:   "AK47",
		BuyPrice:    1000,
		SellPrice:   400,
		Coefficient: 0.95,
		MaxStock:    10,
	}
}

func TestCatalog_CreateProduct(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	c := New(store)
	ctx := context.Background()

	p, err := c.CreateProduct(ctx, rifle())
	require.NoError(t, err)
	assert.Equal(t, "prod_ak47_001", p.ID)

	p2, err := c.CreateProduct(ctx, rifle())
	require.NoError(t, err)
	assert.Equal(t, "prod_ak47_002", p2.ID)

	got, ok := c.Product(p.ID)
	require.True(t, ok)
	assert.Equal(t, int64(1000), got.BuyPrice)
	assert.Contains(t, store.products, p.ID)

	_, ok = c.Product("prod_missing_001")
	assert.False(t, ok)
}

func TestCatalog_CreateProduct_Invalid(t *testing.T) {
	t.Parallel()

	c := New(nil)
	ctx := context.Background()

	bad := []Product{
		{ClassName: "", Coefficient: 1},
		{ClassName: "x", BuyPrice: -2, Coefficient: 1},
		{ClassName: "x", Coefficient: 0},
		{ClassName: "x", Coefficient: 1.5},
		{ClassName: "x", Coefficient: 1, MaxStock: -5},
	}
	for _, p := range bad {
		_, err := c.CreateProduct(ctx, p)
		assert.ErrorIs(t, err, ErrInvalidProduct, "%+v", p)
	}
	assert.True(t, c.Empty())
}

func TestCatalog_ReturnsCopies(t *testing.T) {
	t.Parallel()

	c := New(nil)
	p, err := c.CreateProduct(context.Background(), rifle())
	require.NoError(t, err)

	p.BuyPrice = 1
	p.Attachments = append(p.Attachments, "prod_x_001")

	got, _ := c.Product(p.ID)
	assert.Equal(t, int64(1000), got.BuyPrice)
	assert.Empty(t, got.Attachments)
}

func TestCatalog_UpdateProduct(t *testing.T) {
	t.Parallel()

	c := New(nil)
	ctx := context.Background()
	p, err := c.CreateProduct(ctx, rifle())
	require.NoError(t, err)

	p.SellPrice = NotTradable
	require.NoError(t, c.UpdateProduct(ctx, *p))

	got, _ := c.Product(p.ID)
	assert.False(t, got.CanSell())

	missing := rifle()
	missing.ID = "prod_nope_001"
	assert.ErrorIs(t, c.UpdateProduct(ctx, missing), ErrProductNotFound)
}

func TestCatalog_Categories(t *testing.T) {
	t.Parallel()

	c := New(newMockStore())
	ctx := context.Background()

	cat, err := c.CreateCategory(ctx, "Assault Rifles", true, []string{"gun_license"})
	require.NoError(t, err)
	assert.Equal(t, "cat_assault_rifles_001", cat.ID)

	p, err := c.CreateProduct(ctx, rifle())
	require.NoError(t, err)

	require.NoError(t, c.AddToCategory(ctx, cat.ID, p.ID))
	require.NoError(t, c.AddToCategory(ctx, cat.ID, p.ID))

	got, ok := c.Category(cat.ID)
	require.True(t, ok)
	assert.Equal(t, []string{p.ID}, got.Products)

	assert.ErrorIs(t, c.AddToCategory(ctx, "cat_none_001", p.ID), ErrCategoryNotFound)
	assert.ErrorIs(t, c.AddToCategory(ctx, cat.ID, "prod_none_001"), ErrProductNotFound)

	require.NoError(t, c.RemoveFromCategory(ctx, cat.ID, p.ID))
	got, _ = c.Category(cat.ID)
	assert.Empty(t, got.Products)
}

func TestCatalog_MissingLicense(t *testing.T) {
	t.Parallel()

	c := New(nil)
	ctx := context.Background()

	p, _ := c.CreateProduct(ctx, rifle())
	free, _ := c.CreateProduct(ctx, Product{ClassName: "Apple", BuyPrice: 5, SellPrice: 1, Coefficient: 1, MaxStock: -1})

	military, _ := c.CreateCategory(ctx, "Military", true, []string{"military"})
	hunting, _ := c.CreateCategory(ctx, "Hunting", true, []string{"hunting", "gun"})
	require.NoError(t, c.AddToCategory(ctx, military.ID, p.ID))
	require.NoError(t, c.AddToCategory(ctx, hunting.ID, p.ID))

	none := func(string) bool { return false }
	holds := func(set ...string) func(string) bool {
		return func(l string) bool {
			for _, s := range set {
				if s == l {
					return true
				}
			}
			return false
		}
	}

	lic, missing := c.MissingLicense(free.ID, none)
	assert.False(t, missing, "product outside categories")
	assert.Empty(t, lic)

	lic, missing = c.MissingLicense(p.ID, none)
	assert.True(t, missing)
	assert.Equal(t, "hunting", lic)

	_, missing = c.MissingLicense(p.ID, holds("military"))
	assert.False(t, missing)

	lic, missing = c.MissingLicense(p.ID, holds("hunting"))
	assert.True(t, missing)
	assert.Equal(t, "gun", lic)
}

func TestCatalog_Presets(t *testing.T) {
	t.Parallel()

	c := New(newMockStore())
	ctx := context.Background()

	scope, _ := c.CreateProduct(ctx, Product{ClassName: "PSO1", BuyPrice: 200, SellPrice: 50, Coefficient: 1, MaxStock: -1})
	mag, _ := c.CreateProduct(ctx, Product{ClassName: "Mag AK 30", BuyPrice: 40, SellPrice: 10, Coefficient: 1, MaxStock: -1})
	gun := rifle()
	gun.Attachments = []string{scope.ID, mag.ID}
	p, err := c.CreateProduct(ctx, gun)
	require.NoError(t, err)

	require.NoError(t, c.SetPreset(ctx, Preset{ProductID: p.ID, Name: "Sniper", Attachments: []string{scope.ID}}))
	require.NoError(t, c.SetPreset(ctx, Preset{ProductID: p.ID, Name: "Assault", Attachments: []string{mag.ID}}))

	pr, ok := c.Preset(p.ID, "Sniper")
	require.True(t, ok)
	assert.Equal(t, []string{scope.ID}, pr.Attachments)

	names := []string{}
	for _, pr := range c.Presets(p.ID) {
		names = append(names, pr.Name)
	}
	assert.Equal(t, []string{"Assault", "Sniper"}, names)

	err = c.SetPreset(ctx, Preset{ProductID: p.ID, Name: "Bad", Attachments: []string{"prod_other_001"}})
	assert.ErrorIs(t, err, ErrInvalidPreset)

	err = c.SetPreset(ctx, Preset{ProductID: "prod_none_001", Name: "X"})
	assert.ErrorIs(t, err, ErrProductNotFound)

	err = c.SetPreset(ctx, Preset{ProductID: p.ID})
	assert.ErrorIs(t, err, ErrInvalidPreset)
}

func TestCatalog_InitSeedsIdentifiers(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.products["prod_ak47_007"] = &Product{ID: "prod_ak47_007", ClassName: "AK47", Coefficient: 1, MaxStock: -1}
	store.products["broken id"] = &Product{ID: "broken id", ClassName: "X", Coefficient: 1}
	store.categories["cat_rifles_003"] = &Category{ID: "cat_rifles_003", Name: "Rifles"}
	store.presets = []*Preset{
		{ProductID: "prod_ak47_007", Name: "Default"},
		{ProductID: "prod_ghost_001", Name: "Orphan"},
	}

	c := New(store)
	require.NoError(t, c.Init(context.Background()))

	assert.Len(t, c.Products(), 1)
	_, ok := c.Preset("prod_ak47_007", "Default")
	assert.True(t, ok)

	p, err := c.CreateProduct(context.Background(), rifle())
	require.NoError(t, err)
	assert.Equal(t, "prod_ak47_008", p.ID)

	cat, err := c.CreateCategory(context.Background(), "Rifles", true, nil)
	require.NoError(t, err)
	assert.Equal(t, "cat_rifles_004", cat.ID)
}

func TestCatalog_MaxStock(t *testing.T) {
	t.Parallel()

	c := New(nil)
	p, _ := c.CreateProduct(context.Background(), rifle())

	assert.Equal(t, int32(10), c.MaxStock(p.ID))
	assert.Equal(t, UnlimitedStock, c.MaxStock("prod_unknown_001"))
}

func TestProduct_PackedSettings(t *testing.T) {
	t.Parallel()

	p := rifle()
	p.TradeQuantity = bitfield.PackTradeQuantity(bitfield.ModeCoefficient, 0.5, bitfield.ModeFull, 0)
	p.StockSettings = bitfield.PackStockSettings(0.25, bitfield.StockDestock)

	assert.Equal(t, bitfield.ModeCoefficient, p.Quantity().BuyMode)
	assert.Equal(t, bitfield.ModeFull, p.Quantity().SellMode)
	assert.InDelta(t, 0.25, p.Stock().Coefficient, 1e-9)
	assert.Equal(t, bitfield.StockDestock, p.Stock().Behavior)
}

const seedYAML = `
categories:
  - name: Rifles
    licenses: [gun]
    products:
      - class_name: AK47
        buy_price: 1000
        sell_price: 400
        coefficient: 0.95
        max_stock: 10
        initial_stock: 25
        sell_mode: full
        stock_behavior: destock
        destock_coefficient: 0.1
        attachments: [PSO1, Missing]
        presets:
          - name: Scoped
            attachments: [PSO1]
  - name: Optics
    visible: false
    products:
      - class_name: PSO1
        buy_price: 200
        sell_price: 50
      - class_name: AK47
`

func TestLoadAndApplySeed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	seed, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, seed.Categories, 2)

	c := New(newMockStore())
	initial, err := c.ApplySeed(context.Background(), seed)
	require.NoError(t, err)

	assert.Len(t, c.Products(), 2)
	assert.Len(t, c.Categories(), 2)

	ak, ok := c.Product("prod_ak47_001")
	require.True(t, ok)
	assert.Equal(t, []string{"prod_pso1_001"}, ak.Attachments)
	assert.Equal(t, bitfield.ModeFull, ak.Quantity().SellMode)
	assert.Equal(t, bitfield.StockDestock, ak.Stock().Behavior)
	assert.Equal(t, int32(10), initial["prod_ak47_001"], "initial stock capped by max")

	pso, _ := c.Product("prod_pso1_001")
	assert.True(t, pso.IsUnlimited())
	assert.InDelta(t, 1.0, pso.Coefficient, 1e-9)
	assert.NotContains(t, initial, pso.ID)

	optics, _ := c.Category("cat_optics_001")
	assert.False(t, optics.Visible)
	assert.Equal(t, []string{"prod_pso1_001", "prod_ak47_001"}, optics.Products)

	_, ok = c.Preset(ak.ID, "Scoped")
	assert.True(t, ok)
}

func TestLoadSeed_Missing(t *testing.T) {
	t.Parallel()

	seed, err := LoadSeed(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Empty(t, seed.Categories)
}

func TestLoadSeed_BadMode(t *testing.T) {
	t.Parallel()

	seed := &Seed{Categories: []SeedCategory{{
		Name:     "X",
		Products: []SeedProduct{{ClassName: "Y", BuyMode: "sometimes"}},
	}}}
	_, err := New(nil).ApplySeed(context.Background(), seed)
	assert.Error(t, err)
}
