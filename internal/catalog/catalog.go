// Package catalog owns the product, category and preset definitions and the
// identifier generator that names them.
package catalog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/udisondev/traderplus/internal/ident"
)

// Catalog errors.
var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrInvalidProduct   = errors.New("invalid product")
	ErrInvalidPreset    = errors.New("invalid preset")
)

// Store persists catalog definitions.
type Store interface {
	LoadProducts(ctx context.Context) ([]*Product, error)
	SaveProduct(ctx context.Context, p *Product) error
	LoadCategories(ctx context.Context) ([]*Category, error)
	SaveCategory(ctx context.Context, c *Category) error
	LoadPresets(ctx context.Context) ([]*Preset, error)
	SavePreset(ctx context.Context, p *Preset) error
}

// Catalog is the in-memory product/category repository. Constructed once at
// startup and shared by reference.
// Thread-safe: all mutable state protected by mu.
type Catalog struct {
	mu sync.RWMutex

	products   map[string]*Product
	categories map[string]*Category
	// productID → preset name → preset
	presets map[string]map[string]*Preset

	ids   *ident.Generator
	store Store
}

// New creates an empty catalog. store may be nil (nothing is persisted).
func New(store Store) *Catalog {
	c := &Catalog{
		products:   make(map[string]*Product, 256),
		categories: make(map[string]*Category, 32),
		presets:    make(map[string]map[string]*Preset),
		store:      store,
	}
	c.ids = ident.NewGenerator(c.idTaken)
	return c
}

// Init loads definitions from the store and seeds the identifier counters
// with every persisted identifier.
func (c *Catalog) Init(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	products, err := c.store.LoadProducts(ctx)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	categories, err := c.store.LoadCategories(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	presets, err := c.store.LoadPresets(ctx)
	if err != nil {
		return fmt.Errorf("load presets: %w", err)
	}

	c.mu.Lock()
	seen := make([]string, 0, len(products)+len(categories))
	for _, p := range products {
		if !ident.IsValidProductID(p.ID) {
			slog.Warn("skip product with invalid id", "id", p.ID, "className", p.ClassName)
			continue
		}
		c.products[p.ID] = p
		seen = append(seen, p.ID)
	}
	for _, cat := range categories {
		if !ident.IsValidCategoryID(cat.ID) {
			slog.Warn("skip category with invalid id", "id", cat.ID, "name", cat.Name)
			continue
		}
		c.categories[cat.ID] = cat
		seen = append(seen, cat.ID)
	}
	for _, pr := range presets {
		if _, ok := c.products[pr.ProductID]; !ok {
			slog.Warn("skip preset of unknown product", "productID", pr.ProductID, "name", pr.Name)
			continue
		}
		c.putPreset(pr)
	}
	productCount, categoryCount := len(c.products), len(c.categories)
	c.mu.Unlock()

	// Generator calls back into idTaken, so it is seeded outside mu.
	c.ids.Seed(seen)

	slog.Info("catalog loaded",
		"products", productCount,
		"categories", categoryCount,
		"presets", len(presets))
	return nil
}

// Empty reports whether the catalog has no products and no categories.
func (c *Catalog) Empty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products) == 0 && len(c.categories) == 0
}

// CreateProduct assigns a fresh identifier to p, stores and persists it.
// Any ID already set on p is ignored.
func (c *Catalog) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	if err := validateProduct(&p); err != nil {
		return nil, err
	}

	id, err := c.ids.GenerateProductID(p.ClassName)
	if err != nil {
		return nil, fmt.Errorf("create product %q: %w", p.ClassName, err)
	}
	p.ID = id
	stored := p.Clone()

	c.mu.Lock()
	c.products[id] = stored
	c.mu.Unlock()

	c.persistProduct(ctx, stored)
	slog.Info("product created", "id", id, "className", p.ClassName)
	return stored.Clone(), nil
}

// UpdateProduct replaces the definition of an existing product.
func (c *Catalog) UpdateProduct(ctx context.Context, p Product) error {
	if err := validateProduct(&p); err != nil {
		return err
	}

	stored := p.Clone()

	c.mu.Lock()
	if _, ok := c.products[p.ID]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("update product %s: %w", p.ID, ErrProductNotFound)
	}
	c.products[p.ID] = stored
	c.mu.Unlock()

	c.persistProduct(ctx, stored)
	return nil
}

// Product returns a copy of the product with the given id.
func (c *Catalog) Product(id string) (*Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Products returns copies of all products ordered by id.
func (c *Catalog) Products() []*Product {
	c.mu.RLock()
	result := make([]*Product, 0, len(c.products))
	for _, p := range c.products {
		result = append(result, p.Clone())
	}
	c.mu.RUnlock()

	slices.SortFunc(result, func(a, b *Product) int { return cmp.Compare(a.ID, b.ID) })
	return result
}

// ProductIDs returns all product ids in no particular order.
func (c *Catalog) ProductIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.products))
	for id := range c.products {
		ids = append(ids, id)
	}
	return ids
}

// MaxStock returns the stock cap of a product. Unknown products are reported
// as unlimited so that the ledger never blocks on them.
func (c *Catalog) MaxStock(id string) int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p, ok := c.products[id]; ok {
		return p.MaxStock
	}
	return UnlimitedStock
}

// CreateCategory creates and persists a new category.
func (c *Catalog) CreateCategory(ctx context.Context, name string, visible bool, licenses []string) (*Category, error) {
	id, err := c.ids.GenerateCategoryID(name)
	if err != nil {
		return nil, fmt.Errorf("create category %q: %w", name, err)
	}

	cat := &Category{
		ID:       id,
		Name:     name,
		Visible:  visible,
		Licenses: slices.Clone(licenses),
	}

	c.mu.Lock()
	c.categories[id] = cat
	snapshot := cat.Clone()
	c.mu.Unlock()

	c.persistCategory(ctx, snapshot)
	slog.Info("category created", "id", id, "name", name)
	return snapshot, nil
}

// Category returns a copy of the category with the given id.
func (c *Catalog) Category(id string) (*Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cat, ok := c.categories[id]
	if !ok {
		return nil, false
	}
	return cat.Clone(), true
}

// Categories returns copies of all categories ordered by id.
func (c *Catalog) Categories() []*Category {
	c.mu.RLock()
	result := make([]*Category, 0, len(c.categories))
	for _, cat := range c.categories {
		result = append(result, cat.Clone())
	}
	c.mu.RUnlock()

	slices.SortFunc(result, func(a, b *Category) int { return cmp.Compare(a.ID, b.ID) })
	return result
}

// AddToCategory appends productID to the category's ordered product list.
// Adding a product twice is a no-op.
func (c *Catalog) AddToCategory(ctx context.Context, categoryID, productID string) error {
	c.mu.Lock()
	cat, ok := c.categories[categoryID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("add %s to %s: %w", productID, categoryID, ErrCategoryNotFound)
	}
	if _, ok := c.products[productID]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("add %s to %s: %w", productID, categoryID, ErrProductNotFound)
	}
	if slices.Contains(cat.Products, productID) {
		c.mu.Unlock()
		return nil
	}
	cat.Products = append(cat.Products, productID)
	snapshot := cat.Clone()
	c.mu.Unlock()

	c.persistCategory(ctx, snapshot)
	return nil
}

// RemoveFromCategory drops productID from the category.
func (c *Catalog) RemoveFromCategory(ctx context.Context, categoryID, productID string) error {
	c.mu.Lock()
	cat, ok := c.categories[categoryID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("remove %s from %s: %w", productID, categoryID, ErrCategoryNotFound)
	}
	idx := slices.Index(cat.Products, productID)
	if idx < 0 {
		c.mu.Unlock()
		return nil
	}
	cat.Products = slices.Delete(cat.Products, idx, idx+1)
	snapshot := cat.Clone()
	c.mu.Unlock()

	c.persistCategory(ctx, snapshot)
	return nil
}

// MissingLicense checks whether a buyer holding the licenses accepted by has
// may buy productID. A product outside every category needs no license; a
// product listed in several categories is allowed if any one of them is fully
// licensed. When not allowed, the first missing license is returned.
func (c *Catalog) MissingLicense(productID string, has func(license string) bool) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	listed := false
	firstMissing := ""
	for _, cat := range c.categories {
		if !slices.Contains(cat.Products, productID) {
			continue
		}
		listed = true

		missing := ""
		for _, lic := range cat.Licenses {
			if !has(lic) {
				missing = lic
				break
			}
		}
		if missing == "" {
			return "", false
		}
		if firstMissing == "" || missing < firstMissing {
			firstMissing = missing
		}
	}

	if !listed {
		return "", false
	}
	return firstMissing, true
}

// SetPreset stores a preset. Every attachment must be a declared attachment
// of the product.
func (c *Catalog) SetPreset(ctx context.Context, pr Preset) error {
	if pr.Name == "" {
		return fmt.Errorf("preset of %s: empty name: %w", pr.ProductID, ErrInvalidPreset)
	}

	c.mu.Lock()
	p, ok := c.products[pr.ProductID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("preset %q: %w", pr.Name, ErrProductNotFound)
	}
	for _, a := range pr.Attachments {
		if !p.HasAttachment(a) {
			c.mu.Unlock()
			return fmt.Errorf("preset %q: %s is not an attachment of %s: %w", pr.Name, a, p.ID, ErrInvalidPreset)
		}
	}
	stored := pr.Clone()
	c.putPreset(stored)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SavePreset(ctx, stored); err != nil {
			slog.Error("save preset", "productID", pr.ProductID, "name", pr.Name, "error", err)
		}
	}
	return nil
}

// Preset returns a copy of the named preset of a product.
func (c *Catalog) Preset(productID, name string) (*Preset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pr, ok := c.presets[productID][name]
	if !ok {
		return nil, false
	}
	return pr.Clone(), true
}

// Presets returns copies of all presets of a product ordered by name.
func (c *Catalog) Presets(productID string) []*Preset {
	c.mu.RLock()
	result := make([]*Preset, 0, len(c.presets[productID]))
	for _, pr := range c.presets[productID] {
		result = append(result, pr.Clone())
	}
	c.mu.RUnlock()

	slices.SortFunc(result, func(a, b *Preset) int { return cmp.Compare(a.Name, b.Name) })
	return result
}

// putPreset must be called with mu held.
func (c *Catalog) putPreset(pr *Preset) {
	byName, ok := c.presets[pr.ProductID]
	if !ok {
		byName = make(map[string]*Preset)
		c.presets[pr.ProductID] = byName
	}
	byName[pr.Name] = pr
}

// idTaken is called by the generator while it holds its own lock.
func (c *Catalog) idTaken(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.products[id]; ok {
		return true
	}
	_, ok := c.categories[id]
	return ok
}

func (c *Catalog) persistProduct(ctx context.Context, p *Product) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveProduct(ctx, p); err != nil {
		slog.Error("save product", "id", p.ID, "error", err)
	}
}

func (c *Catalog) persistCategory(ctx context.Context, cat *Category) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveCategory(ctx, cat); err != nil {
		slog.Error("save category", "id", cat.ID, "error", err)
	}
}

func validateProduct(p *Product) error {
	switch {
	case p.ClassName == "":
		return fmt.Errorf("empty class name: %w", ErrInvalidProduct)
	case p.BuyPrice < NotTradable || p.SellPrice < NotTradable:
		return fmt.Errorf("%s: price below %d: %w", p.ClassName, NotTradable, ErrInvalidProduct)
	case p.Coefficient <= 0 || p.Coefficient > 1:
		return fmt.Errorf("%s: coefficient %v outside (0, 1]: %w", p.ClassName, p.Coefficient, ErrInvalidProduct)
	case p.MaxStock < UnlimitedStock:
		return fmt.Errorf("%s: max stock %d: %w", p.ClassName, p.MaxStock, ErrInvalidProduct)
	}
	return nil
}
