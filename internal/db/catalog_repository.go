package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/traderplus/internal/catalog"
)

// CatalogRepository stores products, categories and presets.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// LoadProducts loads every product.
func (r *CatalogRepository) LoadProducts(ctx context.Context) ([]*catalog.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, class_name, buy_price, sell_price, coefficient, max_stock,
		        trade_quantity, stock_settings, attachments, variants
		 FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var result []*catalog.Product
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.ClassName, &p.BuyPrice, &p.SellPrice, &p.Coefficient, &p.MaxStock,
			&p.TradeQuantity, &p.StockSettings, &p.Attachments, &p.Variants); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return result, nil
}

// SaveProduct inserts or replaces a product.
func (r *CatalogRepository) SaveProduct(ctx context.Context, p *catalog.Product) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO products (id, class_name, buy_price, sell_price, coefficient, max_stock,
		                       trade_quantity, stock_settings, attachments, variants)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		     class_name = EXCLUDED.class_name,
		     buy_price = EXCLUDED.buy_price,
		     sell_price = EXCLUDED.sell_price,
		     coefficient = EXCLUDED.coefficient,
		     max_stock = EXCLUDED.max_stock,
		     trade_quantity = EXCLUDED.trade_quantity,
		     stock_settings = EXCLUDED.stock_settings,
		     attachments = EXCLUDED.attachments,
		     variants = EXCLUDED.variants,
		     updated_at = now()`,
		p.ID, p.ClassName, p.BuyPrice, p.SellPrice, p.Coefficient, p.MaxStock,
		p.TradeQuantity, p.StockSettings, nonNil(p.Attachments), nonNil(p.Variants),
	)
	if err != nil {
		return fmt.Errorf("save product %s: %w", p.ID, err)
	}
	return nil
}

// LoadCategories loads every category.
func (r *CatalogRepository) LoadCategories(ctx context.Context) ([]*catalog.Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, visible, licenses, products FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var result []*catalog.Category
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Visible, &c.Licenses, &c.Products); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}
	return result, nil
}

// SaveCategory inserts or replaces a category.
func (r *CatalogRepository) SaveCategory(ctx context.Context, c *catalog.Category) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO categories (id, name, visible, licenses, products)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		     name = EXCLUDED.name,
		     visible = EXCLUDED.visible,
		     licenses = EXCLUDED.licenses,
		     products = EXCLUDED.products,
		     updated_at = now()`,
		c.ID, c.Name, c.Visible, nonNil(c.Licenses), nonNil(c.Products),
	)
	if err != nil {
		return fmt.Errorf("save category %s: %w", c.ID, err)
	}
	return nil
}

// LoadPresets loads every preset.
func (r *CatalogRepository) LoadPresets(ctx context.Context) ([]*catalog.Preset, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, name, attachments FROM product_presets ORDER BY product_id, name`)
	if err != nil {
		return nil, fmt.Errorf("query presets: %w", err)
	}
	defer rows.Close()

	var result []*catalog.Preset
	for rows.Next() {
		var p catalog.Preset
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Attachments); err != nil {
			return nil, fmt.Errorf("scan preset row: %w", err)
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preset rows: %w", err)
	}
	return result, nil
}

// SavePreset inserts or replaces a preset.
func (r *CatalogRepository) SavePreset(ctx context.Context, p *catalog.Preset) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO product_presets (product_id, name, attachments)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (product_id, name) DO UPDATE SET attachments = EXCLUDED.attachments`,
		p.ProductID, p.Name, nonNil(p.Attachments),
	)
	if err != nil {
		return fmt.Errorf("save preset %s/%s: %w", p.ProductID, p.Name, err)
	}
	return nil
}
