package api

import (
	"fmt"

	"github.com/udisondev/traderplus/internal/bitfield"
	"github.com/udisondev/traderplus/internal/catalog"
)

// ProductRequest creates or replaces a product. Quantity and stock settings
// are given unpacked.
type ProductRequest struct {
	ClassName   string   `json:"className"`
	BuyPrice    int64    `json:"buyPrice"`
	SellPrice   int64    `json:"sellPrice"`
	Coefficient *float64 `json:"coefficient,omitempty"`
	MaxStock    *int32   `json:"maxStock,omitempty"`

	BuyMode   string  `json:"buyMode,omitempty"`
	BuyValue  float64 `json:"buyValue,omitempty"`
	SellMode  string  `json:"sellMode,omitempty"`
	SellValue float64 `json:"sellValue,omitempty"`

	DestockCoefficient float64 `json:"destockCoefficient,omitempty"`
	StockBehavior      string  `json:"stockBehavior,omitempty"`

	Attachments []string `json:"attachments,omitempty"`
	Variants    []string `json:"variants,omitempty"`
}

func (r ProductRequest) product() (catalog.Product, error) {
	buyMode, err := bitfield.ParseQuantityMode(r.BuyMode)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("buyMode: %w", err)
	}
	sellMode, err := bitfield.ParseQuantityMode(r.SellMode)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("sellMode: %w", err)
	}
	behavior, err := bitfield.ParseStockBehavior(r.StockBehavior)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("stockBehavior: %w", err)
	}

	p := catalog.Product{
		ClassName:     r.ClassName,
		BuyPrice:      r.BuyPrice,
		SellPrice:     r.SellPrice,
		Coefficient:   1,
		MaxStock:      catalog.UnlimitedStock,
		TradeQuantity: bitfield.PackTradeQuantity(buyMode, r.BuyValue, sellMode, r.SellValue),
		StockSettings: bitfield.PackStockSettings(r.DestockCoefficient, behavior),
		Attachments:   r.Attachments,
		Variants:      r.Variants,
	}
	if r.Coefficient != nil {
		p.Coefficient = *r.Coefficient
	}
	if r.MaxStock != nil {
		p.MaxStock = *r.MaxStock
	}
	return p, nil
}

// ProductResponse is a product with its settings unpacked and its stock.
type ProductResponse struct {
	ID          string  `json:"id"`
	ClassName   string  `json:"className"`
	BuyPrice    int64   `json:"buyPrice"`
	SellPrice   int64   `json:"sellPrice"`
	Coefficient float64 `json:"coefficient"`
	MaxStock    int32   `json:"maxStock"`
	Stock       int32   `json:"stock"`

	BuyMode   string  `json:"buyMode"`
	BuyValue  float64 `json:"buyValue"`
	SellMode  string  `json:"sellMode"`
	SellValue float64 `json:"sellValue"`

	DestockCoefficient float64 `json:"destockCoefficient"`
	StockBehavior      string  `json:"stockBehavior"`

	Attachments []string `json:"attachments"`
	Variants    []string `json:"variants"`
}

func newProductResponse(p *catalog.Product, stock int32) ProductResponse {
	tq := p.Quantity()
	ss := p.Stock()
	return ProductResponse{
		ID:                 p.ID,
		ClassName:          p.ClassName,
		BuyPrice:           p.BuyPrice,
		SellPrice:          p.SellPrice,
		Coefficient:        p.Coefficient,
		MaxStock:           p.MaxStock,
		Stock:              stock,
		BuyMode:            tq.BuyMode.String(),
		BuyValue:           tq.BuyValue,
		SellMode:           tq.SellMode.String(),
		SellValue:          tq.SellValue,
		DestockCoefficient: ss.Coefficient,
		StockBehavior:      ss.Behavior.String(),
		Attachments:        nonNil(p.Attachments),
		Variants:           nonNil(p.Variants),
	}
}

// CategoryRequest creates a category.
type CategoryRequest struct {
	Name     string   `json:"name"`
	Visible  *bool    `json:"visible,omitempty"`
	Licenses []string `json:"licenses,omitempty"`
}

// CategoryResponse is a category.
type CategoryResponse struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Visible  bool     `json:"visible"`
	Licenses []string `json:"licenses"`
	Products []string `json:"products"`
}

func newCategoryResponse(c *catalog.Category) CategoryResponse {
	return CategoryResponse{
		ID:       c.ID,
		Name:     c.Name,
		Visible:  c.Visible,
		Licenses: nonNil(c.Licenses),
		Products: nonNil(c.Products),
	}
}

// PresetRequest stores a preset of the product in the path.
type PresetRequest struct {
	Name        string   `json:"name"`
	Attachments []string `json:"attachments"`
}

// PresetResponse is a preset.
type PresetResponse struct {
	ProductID   string   `json:"productId"`
	Name        string   `json:"name"`
	Attachments []string `json:"attachments"`
}

func newPresetResponse(p *catalog.Preset) PresetResponse {
	return PresetResponse{ProductID: p.ProductID, Name: p.Name, Attachments: nonNil(p.Attachments)}
}

// PriceResponse is a quote with its per-unit breakdown.
type PriceResponse struct {
	ProductID  string    `json:"productId"`
	Direction  string    `json:"direction"`
	State      string    `json:"state"`
	Multiplier int32     `json:"multiplier"`
	Stock      int32     `json:"stock"`
	Price      int64     `json:"price"`
	Valid      bool      `json:"valid"`
	Free       bool      `json:"free"`
	UnitPrices []float64 `json:"unitPrices"`
}

// StockRequest sets a stock counter.
type StockRequest struct {
	Stock int32 `json:"stock"`
}

// StockResponse reports a stock counter.
type StockResponse struct {
	ProductID        string `json:"productId"`
	Stock            int32  `json:"stock"`
	MaxStock         int32  `json:"maxStock"`
	HasStock         bool   `json:"hasStock"`
	CanIncreaseStock bool   `json:"canIncreaseStock"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// BatchRequest is one player request: a snapshot of the player as the host
// sees it and the transactions to process against it.
type BatchRequest struct {
	ActorID  string           `json:"actorId"`
	Licenses []string         `json:"licenses,omitempty"`
	Holdings map[string]int64 `json:"holdings,omitempty"`
	Items    []BatchItem      `json:"items,omitempty"`
	// Capacities maps class names to the maximum quantity of a fresh item.
	Capacities   map[string]float64 `json:"capacities,omitempty"`
	Transactions []BatchTransaction `json:"transactions"`
}

// BatchItem is a physical item of the player.
type BatchItem struct {
	NetworkID   string  `json:"networkId"`
	ClassName   string  `json:"className"`
	State       string  `json:"state,omitempty"`
	Quantity    float64 `json:"quantity,omitempty"`
	MaxQuantity float64 `json:"maxQuantity,omitempty"`
}

// BatchTransaction requests one buy or sell. Price is the quote the player
// saw; it is recomputed before execution.
type BatchTransaction struct {
	Type       string `json:"type"`
	ProductID  string `json:"productId"`
	Multiplier int32  `json:"multiplier"`
	Price      int64  `json:"price"`
	TraderID   string `json:"traderId"`
	Preset     string `json:"preset,omitempty"`
	NetworkID  string `json:"networkId,omitempty"`
	Depth      int    `json:"depth,omitempty"`
}

// BatchResponse carries one result per transaction in processing order and
// the changes the host applies to the player.
type BatchResponse struct {
	Results  []ResultResponse `json:"results"`
	Currency map[string]int64 `json:"currency"`
	Spawned  []SpawnedItem    `json:"spawned"`
	Removed  []string         `json:"removed"`
}

// ResultResponse is the outcome of one transaction.
type ResultResponse struct {
	TransactionID string `json:"transactionId"`
	ProductID     string `json:"productId"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// SpawnedItem is an item the host must create.
type SpawnedItem struct {
	NetworkID   string   `json:"networkId"`
	ClassName   string   `json:"className"`
	Attachments []string `json:"attachments"`
	Quantity    float64  `json:"quantity"`
}
