package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/traderplus/internal/bitfield"
)

// Seed is the first-start catalog description read from YAML.
// Products are referenced by class name; identifiers are generated on apply.
type Seed struct {
	Categories []SeedCategory `yaml:"categories"`
}

// SeedCategory describes one category and the products listed in it.
type SeedCategory struct {
	Name     string        `yaml:"name"`
	Visible  *bool         `yaml:"visible"` // default true
	Licenses []string      `yaml:"licenses"`
	Products []SeedProduct `yaml:"products"`
}

// SeedProduct describes one product.
type SeedProduct struct {
	ClassName    string  `yaml:"class_name"`
	BuyPrice     int64   `yaml:"buy_price"`
	SellPrice    int64   `yaml:"sell_price"`
	Coefficient  float64 `yaml:"coefficient"` // default 1.0
	MaxStock     *int32  `yaml:"max_stock"` // default unlimited
	InitialStock int32   `yaml:"initial_stock"`

	BuyMode   string  `yaml:"buy_mode"`
	BuyValue  float64 `yaml:"buy_value"`
	SellMode  string  `yaml:"sell_mode"`
	SellValue float64 `yaml:"sell_value"`

	DestockCoefficient float64 `yaml:"destock_coefficient"`
	StockBehavior      string  `yaml:"stock_behavior"`

	// Attachments and variants by class name; resolved after all products exist.
	Attachments []string     `yaml:"attachments"`
	Variants    []string     `yaml:"variants"`
	Presets     []SeedPreset `yaml:"presets"`
}

// SeedPreset is a named attachment set, attachments by class name.
type SeedPreset struct {
	Name        string   `yaml:"name"`
	Attachments []string `yaml:"attachments"`
}

// LoadSeed reads a seed catalog from a YAML file.
// A missing file yields an empty seed.
func LoadSeed(path string) (*Seed, error) {
	seed := &Seed{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return seed, nil
		}
		return nil, fmt.Errorf("reading seed %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, seed); err != nil {
		return nil, fmt.Errorf("parsing seed %s: %w", path, err)
	}
	return seed, nil
}

// ApplySeed creates every category and product described by seed.
// A class name listed in several categories becomes one product.
// Returns the initial stock per created product id.
func (c *Catalog) ApplySeed(ctx context.Context, seed *Seed) (map[string]int32, error) {
	byClass := make(map[string]*Product)
	specs := make(map[string]SeedProduct)
	initial := make(map[string]int32)

	for _, sc := range seed.Categories {
		visible := true
		if sc.Visible != nil {
			visible = *sc.Visible
		}

		cat, err := c.CreateCategory(ctx, sc.Name, visible, sc.Licenses)
		if err != nil {
			return nil, fmt.Errorf("seed category %q: %w", sc.Name, err)
		}

		for _, sp := range sc.Products {
			p, ok := byClass[sp.ClassName]
			if !ok {
				def, err := sp.product()
				if err != nil {
					return nil, fmt.Errorf("seed product %q: %w", sp.ClassName, err)
				}
				p, err = c.CreateProduct(ctx, def)
				if err != nil {
					return nil, fmt.Errorf("seed product %q: %w", sp.ClassName, err)
				}
				byClass[sp.ClassName] = p
				specs[sp.ClassName] = sp
				if !p.IsUnlimited() {
					initial[p.ID] = min(max(sp.InitialStock, 0), p.MaxStock)
				}
			}

			if err := c.AddToCategory(ctx, cat.ID, p.ID); err != nil {
				return nil, fmt.Errorf("seed category %q: %w", sc.Name, err)
			}
		}
	}

	// Second pass: cross references by class name.
	for class, sp := range specs {
		p := byClass[class]
		if len(sp.Attachments) == 0 && len(sp.Variants) == 0 && len(sp.Presets) == 0 {
			continue
		}

		p.Attachments = resolveClasses(byClass, class, sp.Attachments)
		p.Variants = resolveClasses(byClass, class, sp.Variants)
		if err := c.UpdateProduct(ctx, *p); err != nil {
			return nil, fmt.Errorf("seed references of %q: %w", class, err)
		}

		for _, preset := range sp.Presets {
			pr := Preset{
				ProductID:   p.ID,
				Name:        preset.Name,
				Attachments: resolveClasses(byClass, class, preset.Attachments),
			}
			if err := c.SetPreset(ctx, pr); err != nil {
				return nil, fmt.Errorf("seed preset %q of %q: %w", preset.Name, class, err)
			}
		}
	}

	slog.Info("seed catalog applied", "categories", len(seed.Categories), "products", len(byClass))
	return initial, nil
}

func (sp SeedProduct) product() (Product, error) {
	buyMode, err := bitfield.ParseQuantityMode(sp.BuyMode)
	if err != nil {
		return Product{}, err
	}
	sellMode, err := bitfield.ParseQuantityMode(sp.SellMode)
	if err != nil {
		return Product{}, err
	}
	behavior, err := bitfield.ParseStockBehavior(sp.StockBehavior)
	if err != nil {
		return Product{}, err
	}

	coef := sp.Coefficient
	if coef == 0 {
		coef = 1
	}
	maxStock := UnlimitedStock
	if sp.MaxStock != nil {
		maxStock = *sp.MaxStock
	}

	return Product{
		ClassName:     sp.ClassName,
		BuyPrice:      sp.BuyPrice,
		SellPrice:     sp.SellPrice,
		Coefficient:   coef,
		MaxStock:      maxStock,
		TradeQuantity: bitfield.PackTradeQuantity(buyMode, sp.BuyValue, sellMode, sp.SellValue),
		StockSettings: bitfield.PackStockSettings(sp.DestockCoefficient, behavior),
	}, nil
}

func resolveClasses(byClass map[string]*Product, owner string, classes []string) []string {
	ids := make([]string, 0, len(classes))
	for _, cl := range classes {
		p, ok := byClass[cl]
		if !ok {
			slog.Warn("seed reference to unknown class", "owner", owner, "class", cl)
			continue
		}
		ids = append(ids, p.ID)
	}
	return ids
}
