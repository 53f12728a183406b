package trade

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/udisondev/traderplus/internal/catalog"
	"github.com/udisondev/traderplus/internal/pricing"
)

// Journal records processed transactions.
type Journal interface {
	Record(ctx context.Context, actorID string, tx *Transaction, r Result) error
}

// Coordinator processes transaction batches.
//
// Batches of one actor never interleave. Within a batch every transaction
// is validated and executed on its own: a failure does not abort the batch
// and earlier successes are never rolled back.
type Coordinator struct {
	validator *Validator
	quoter    *pricing.Quoter
	journal   Journal

	// exec makes each check-then-act step atomic across actors.
	exec sync.Mutex

	mu     sync.Mutex
	actors map[string]*sync.Mutex
}

// NewCoordinator creates a coordinator. journal may be nil.
func NewCoordinator(v *Validator, quoter *pricing.Quoter, journal Journal) *Coordinator {
	return &Coordinator{
		validator: v,
		quoter:    quoter,
		journal:   journal,
		actors:    make(map[string]*sync.Mutex),
	}
}

// ProcessBatch sorts the batch deepest first and processes it sequentially.
// It returns one result per transaction, in processing order.
func (c *Coordinator) ProcessBatch(ctx context.Context, batch *Collection, actor Actor) []Result {
	lock := c.actorLock(actor.ID())
	lock.Lock()
	defer lock.Unlock()

	batch.SortByDepth()

	results := make([]Result, 0, batch.Len())
	for _, tx := range batch.items {
		r := c.process(ctx, tx, actor)
		results = append(results, r)

		if c.journal != nil && tx != nil {
			if err := c.journal.Record(ctx, actor.ID(), tx, r); err != nil {
				slog.Error("record transaction",
					"transactionID", tx.ID,
					"error", err)
			}
		}
	}

	slog.Debug("batch processed", "actor", actor.ID(), "transactions", len(results))
	return results
}

func (c *Coordinator) process(ctx context.Context, tx *Transaction, actor Actor) Result {
	c.exec.Lock()
	defer c.exec.Unlock()

	c.reprice(tx, actor)

	if ok, msg := c.validator.ValidateTransaction(tx, actor); !ok {
		slog.Debug("transaction rejected", "actor", actor.ID(), "reason", msg)
		return Failure(tx, msg)
	}

	var (
		msg string
		err error
	)
	switch tx.Type {
	case TypeBuy:
		msg, err = c.executeBuy(ctx, tx, actor)
	case TypeSell:
		msg, err = c.executeSell(ctx, tx, actor)
	}
	if err != nil {
		slog.Warn("transaction failed",
			"actor", actor.ID(),
			"transactionID", tx.ID,
			"type", tx.Type,
			"productID", tx.ProductID,
			"error", err)
		return Failure(tx, err.Error())
	}

	slog.Info("transaction completed",
		"actor", actor.ID(),
		"transactionID", tx.ID,
		"type", tx.Type,
		"productID", tx.ProductID,
		"price", tx.TotalPrice)
	return Success(tx, msg)
}

// reprice quotes tx against the current stock, which earlier transactions of
// the batch may have moved. Untradable quotes are left to validation.
func (c *Coordinator) reprice(tx *Transaction, actor Actor) {
	if tx == nil || tx.Multiplier <= 0 {
		return
	}
	p, ok := c.validator.catalog.Product(tx.ProductID)
	if !ok {
		return
	}

	switch tx.Type {
	case TypeBuy:
		if !p.CanBuy() {
			return
		}
		total := c.quoter.CalculateBuyPrice(p, tx.Multiplier, pricing.Pristine).CalculatedPrice
		total += c.presetPrice(p.ID, tx.Preset, tx.Multiplier)
		tx.setPrice(total)

	case TypeSell:
		if !p.CanSell() {
			return
		}
		state := pricing.Pristine
		if item, ok := locate(actor, tx.NetworkID); ok {
			state = item.State()
		}
		tx.setPrice(c.quoter.CalculateSellPrice(p, tx.Multiplier, state).CalculatedPrice)
	}
}

// presetPrice sums the buy prices of the preset's attachments.
func (c *Coordinator) presetPrice(productID, preset string, multiplier int32) int64 {
	if preset == "" {
		return 0
	}
	pr, ok := c.validator.catalog.Preset(productID, preset)
	if !ok {
		return 0
	}

	var sum int64
	for _, id := range pr.Attachments {
		a, ok := c.validator.catalog.Product(id)
		if !ok || !a.CanBuy() {
			continue
		}
		sum += c.quoter.CalculateBuyPrice(a, multiplier, pricing.Pristine).CalculatedPrice
	}
	return sum
}

// executeBuy spawns the items, then charges for them. Either step failing
// leaves the actor as it was before the transaction.
func (c *Coordinator) executeBuy(ctx context.Context, tx *Transaction, actor Actor) (string, error) {
	p, _ := c.validator.catalog.Product(tx.ProductID)
	trader, ok := c.validator.traders.Trader(tx.TraderID)
	if !ok {
		return "", fmt.Errorf("trader %s: %w", tx.TraderID, ErrUnknownTrader)
	}

	var attachments []*catalog.Product
	if tx.Preset != "" {
		if pr, ok := c.validator.catalog.Preset(p.ID, tx.Preset); ok {
			for _, id := range pr.Attachments {
				if a, ok := c.validator.catalog.Product(id); ok {
					attachments = append(attachments, a)
				}
			}
		}
	}
	attachmentClasses := make([]string, len(attachments))
	for i, a := range attachments {
		attachmentClasses[i] = a.ClassName
	}

	var undo rollback
	quantity := p.Quantity()
	for range tx.Multiplier {
		networkID, err := actor.Spawn(p.ClassName, attachmentClasses, quantity.BuyQuantity)
		if err != nil {
			undo.run(tx.ID)
			return "", fmt.Errorf("spawn %s: %w", p.ClassName, err)
		}
		undo.add("remove "+networkID, func() error { return actor.Remove(networkID) })
	}

	if err := c.charge(trader, actor, tx.TotalPrice, &undo); err != nil {
		undo.run(tx.ID)
		return "", err
	}

	c.takeStock(ctx, p, tx.Multiplier)
	for _, a := range attachments {
		c.takeStock(ctx, a, tx.Multiplier)
	}

	return fmt.Sprintf("Bought %s x%d for %d", p.ClassName, tx.Multiplier, tx.TotalPrice), nil
}

// executeSell pays out, then takes the item. The trader stock grows only once
// both succeeded.
func (c *Coordinator) executeSell(ctx context.Context, tx *Transaction, actor Actor) (string, error) {
	p, _ := c.validator.catalog.Product(tx.ProductID)
	trader, ok := c.validator.traders.Trader(tx.TraderID)
	if !ok {
		return "", fmt.Errorf("trader %s: %w", tx.TraderID, ErrUnknownTrader)
	}

	var undo rollback
	units, lost := trader.Currencies.Breakdown(tx.TotalPrice)
	for _, d := range trader.Currencies.Denominations() {
		n := units[d.ClassName]
		if n == 0 {
			continue
		}
		if err := actor.Deposit(d.ClassName, n); err != nil {
			undo.run(tx.ID)
			return "", fmt.Errorf("pay out %s: %w", d.ClassName, err)
		}
		undo.add("take back "+d.ClassName, func() error { return actor.Withdraw(d.ClassName, n) })
	}
	if lost > 0 {
		slog.Debug("payout remainder dropped", "transactionID", tx.ID, "amount", lost)
	}

	if err := actor.Remove(tx.NetworkID); err != nil {
		undo.run(tx.ID)
		return "", fmt.Errorf("remove %s: %w", tx.NetworkID, err)
	}

	if !p.IsUnlimited() {
		c.validator.stock.IncreaseStock(ctx, p.ID, tx.Multiplier)
	}

	return fmt.Sprintf("Sold %s for %d", p.ClassName, tx.TotalPrice), nil
}

// charge takes amount from the actor in the trader's currencies and hands
// back change. Every applied step is pushed onto undo.
func (c *Coordinator) charge(trader *Trader, actor Actor, amount int64, undo *rollback) error {
	if amount <= 0 {
		return nil
	}

	plan, err := trader.Currencies.PlanPayment(actor.Holdings(classNames(trader)), amount)
	if err != nil {
		return fmt.Errorf("plan payment: %w", err)
	}
	for class, n := range plan.Take {
		if err := actor.Withdraw(class, n); err != nil {
			return fmt.Errorf("withdraw %s: %w", class, err)
		}
		undo.add("refund "+class, func() error { return actor.Deposit(class, n) })
	}
	for class, n := range plan.Change {
		if err := actor.Deposit(class, n); err != nil {
			return fmt.Errorf("give change %s: %w", class, err)
		}
		undo.add("take back change "+class, func() error { return actor.Withdraw(class, n) })
	}
	return nil
}

// rollback collects compensating steps of a transaction in progress.
type rollback struct {
	steps []rollbackStep
}

type rollbackStep struct {
	name string
	fn   func() error
}

func (r *rollback) add(name string, fn func() error) {
	r.steps = append(r.steps, rollbackStep{name: name, fn: fn})
}

// run applies the steps newest first. A failing step is logged and the rest
// still run.
func (r *rollback) run(transactionID string) {
	for i := len(r.steps) - 1; i >= 0; i-- {
		step := r.steps[i]
		if err := step.fn(); err != nil {
			slog.Error("rollback step failed",
				"transactionID", transactionID,
				"step", step.name,
				"error", err)
		}
	}
	r.steps = nil
}

func (c *Coordinator) takeStock(ctx context.Context, p *catalog.Product, n int32) {
	if p.IsUnlimited() {
		return
	}
	c.validator.stock.DecreaseStock(ctx, p.ID, n)
}

func (c *Coordinator) actorLock(id string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.actors[id]
	if !ok {
		m = &sync.Mutex{}
		c.actors[id] = m
	}
	return m
}
