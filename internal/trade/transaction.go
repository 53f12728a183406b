// Package trade validates and executes batches of buy and sell transactions
// against the catalog, the stock ledger and the acting player.
package trade

import (
	"cmp"
	"slices"

	"github.com/google/uuid"

	"github.com/udisondev/traderplus/internal/catalog"
)

// Type is the direction of a transaction.
type Type uint8

// Transaction types.
const (
	TypeBuy Type = iota + 1
	TypeSell
)

func (t Type) String() string {
	switch t {
	case TypeBuy:
		return "BUY"
	case TypeSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Transaction is one buy or sell request.
type Transaction struct {
	ID        string
	Type      Type
	ProductID string

	// NetworkID identifies the physical item being sold.
	NetworkID string

	Multiplier int32
	UnitPrice  int64
	TotalPrice int64

	// Depth is the nesting level of the sold item; attachments are deeper
	// than the item they are attached to.
	Depth int

	TraderID string

	// Preset names the attachment preset of a buy, empty for none.
	Preset string
}

// IsValid reports whether the transaction is internally consistent.
func (tx *Transaction) IsValid() bool {
	if tx == nil || tx.ID == "" || tx.ProductID == "" {
		return false
	}
	if tx.Type != TypeBuy && tx.Type != TypeSell {
		return false
	}
	return tx.Multiplier > 0 && tx.UnitPrice >= 0 && tx.TotalPrice >= 0 && tx.Depth >= 0
}

// CreateBuyTransaction creates a buy of multiplier units of p for the total
// price. preset may be empty.
func CreateBuyTransaction(p *catalog.Product, multiplier int32, price int64, traderID, preset string) *Transaction {
	tx := &Transaction{
		ID:         uuid.NewString(),
		Type:       TypeBuy,
		ProductID:  p.ID,
		Multiplier: multiplier,
		TraderID:   traderID,
		Preset:     preset,
	}
	tx.setPrice(price)
	return tx
}

// CreateSellTransaction creates a sale of the physical item networkID,
// an instance of p nested depth levels deep.
func CreateSellTransaction(p *catalog.Product, multiplier int32, price int64, traderID, networkID string, depth int) *Transaction {
	tx := &Transaction{
		ID:         uuid.NewString(),
		Type:       TypeSell,
		ProductID:  p.ID,
		NetworkID:  networkID,
		Multiplier: multiplier,
		Depth:      depth,
		TraderID:   traderID,
	}
	tx.setPrice(price)
	return tx
}

// setPrice stores the total and derives the average unit price.
func (tx *Transaction) setPrice(total int64) {
	tx.TotalPrice = total
	if tx.Multiplier > 0 {
		tx.UnitPrice = total / int64(tx.Multiplier)
	} else {
		tx.UnitPrice = total
	}
}

// Collection is an ordered batch of transactions submitted together.
type Collection struct {
	items []*Transaction
}

// NewCollection creates a batch.
func NewCollection(txs ...*Transaction) *Collection {
	return &Collection{items: slices.Clone(txs)}
}

// Add appends a transaction.
func (c *Collection) Add(tx *Transaction) { c.items = append(c.items, tx) }

// Len returns the number of transactions.
func (c *Collection) Len() int { return len(c.items) }

// Transactions returns the transactions in their current order.
func (c *Collection) Transactions() []*Transaction { return slices.Clone(c.items) }

// SortByDepth orders the batch deepest first. Equal depths keep their
// submission order; nil entries go last.
func (c *Collection) SortByDepth() {
	slices.SortStableFunc(c.items, func(a, b *Transaction) int {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return 1
		case b == nil:
			return -1
		}
		return cmp.Compare(b.Depth, a.Depth)
	})
}

// Status is the outcome tag of a processed transaction.
type Status uint8

// Outcomes.
const (
	StatusSuccess Status = iota + 1
	StatusFailure
)

func (s Status) String() string {
	if s == StatusSuccess {
		return "SUCCESS"
	}
	return "FAILURE"
}

// Result is the immutable outcome of one transaction.
type Result struct {
	status        Status
	message       string
	transactionID string
	productID     string
	typ           Type
}

// Success creates a successful result for tx.
func Success(tx *Transaction, message string) Result {
	return newResult(StatusSuccess, tx, message)
}

// Failure creates a failed result for tx. tx may be nil.
func Failure(tx *Transaction, message string) Result {
	return newResult(StatusFailure, tx, message)
}

func newResult(s Status, tx *Transaction, message string) Result {
	r := Result{status: s, message: message}
	if tx != nil {
		r.transactionID = tx.ID
		r.productID = tx.ProductID
		r.typ = tx.Type
	}
	return r
}

func (r Result) Status() Status        { return r.status }
func (r Result) IsSuccess() bool       { return r.status == StatusSuccess }
func (r Result) Message() string       { return r.message }
func (r Result) TransactionID() string { return r.transactionID }
func (r Result) ProductID() string     { return r.productID }
func (r Result) Type() Type            { return r.typ }
