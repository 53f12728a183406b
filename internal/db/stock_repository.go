package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StockRepository stores trader stock counters.
type StockRepository struct {
	pool *pgxpool.Pool
}

// NewStockRepository creates a new stock repository.
func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

// LoadStock loads all counters keyed by product ID.
func (r *StockRepository) LoadStock(ctx context.Context) (map[string]int32, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, stock FROM product_stock`)
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int32)
	for rows.Next() {
		var (
			id    string
			value int32
		)
		if err := rows.Scan(&id, &value); err != nil {
			return nil, fmt.Errorf("scan stock row: %w", err)
		}
		result[id] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock rows: %w", err)
	}
	return result, nil
}

// SaveStock writes one counter.
func (r *StockRepository) SaveStock(ctx context.Context, productID string, value int32) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO product_stock (product_id, stock) VALUES ($1, $2)
		 ON CONFLICT (product_id) DO UPDATE SET stock = EXCLUDED.stock, updated_at = now()`,
		productID, value,
	)
	if err != nil {
		return fmt.Errorf("save stock %s: %w", productID, err)
	}
	return nil
}
