package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/traderplus/internal/trade"
)

// JournalEntry is one recorded transaction outcome.
type JournalEntry struct {
	TransactionID string    `json:"transactionId"`
	ActorID       string    `json:"actorId"`
	Type          string    `json:"type"`
	ProductID     string    `json:"productId"`
	NetworkID     string    `json:"networkId,omitempty"`
	Multiplier    int32     `json:"multiplier"`
	TotalPrice    int64     `json:"totalPrice"`
	TraderID      string    `json:"traderId"`
	Status        string    `json:"status"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"createdAt"`
}

// JournalRepository appends processed transactions to trade_journal.
type JournalRepository struct {
	pool *pgxpool.Pool
}

// NewJournalRepository creates a new journal repository.
func NewJournalRepository(pool *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{pool: pool}
}

// Record appends the outcome of tx.
func (r *JournalRepository) Record(ctx context.Context, actorID string, tx *trade.Transaction, res trade.Result) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO trade_journal (transaction_id, actor_id, type, product_id, network_id,
		                            multiplier, total_price, trader_id, status, message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		tx.ID, actorID, tx.Type.String(), tx.ProductID, tx.NetworkID,
		tx.Multiplier, tx.TotalPrice, tx.TraderID, res.Status().String(), res.Message(),
	)
	if err != nil {
		return fmt.Errorf("record transaction %s: %w", tx.ID, err)
	}
	return nil
}

// Recent returns the latest entries of an actor, newest first.
func (r *JournalRepository) Recent(ctx context.Context, actorID string, limit int) ([]JournalEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT transaction_id, actor_id, type, product_id, network_id,
		        multiplier, total_price, trader_id, status, message, created_at
		 FROM trade_journal WHERE actor_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2`, actorID, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal of %s: %w", actorID, err)
	}
	defer rows.Close()

	var result []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.TransactionID, &e.ActorID, &e.Type, &e.ProductID, &e.NetworkID,
			&e.Multiplier, &e.TotalPrice, &e.TraderID, &e.Status, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal rows: %w", err)
	}
	return result, nil
}
