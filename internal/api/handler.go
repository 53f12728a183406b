// Package api exposes the catalog, price previews, stock and player trade
// batches over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/udisondev/traderplus/internal/catalog"
	"github.com/udisondev/traderplus/internal/db"
	"github.com/udisondev/traderplus/internal/ident"
	"github.com/udisondev/traderplus/internal/pricing"
	"github.com/udisondev/traderplus/internal/stock"
	"github.com/udisondev/traderplus/internal/trade"
)

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 500
)

// JournalReader reads recorded transactions.
type JournalReader interface {
	Recent(ctx context.Context, actorID string, limit int) ([]db.JournalEntry, error)
}

// Handler serves the HTTP endpoints.
type Handler struct {
	catalog *catalog.Catalog
	ledger  *stock.Ledger
	quoter  *pricing.Quoter
	journal JournalReader
	coord   *trade.Coordinator
}

// NewHandler creates a handler. journal and coord may be nil, which turns
// their endpoints off.
func NewHandler(cat *catalog.Catalog, ledger *stock.Ledger, quoter *pricing.Quoter, journal JournalReader, coord *trade.Coordinator) *Handler {
	return &Handler{catalog: cat, ledger: ledger, quoter: quoter, journal: journal, coord: coord}
}

// RegisterRoutes mounts the endpoints on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Post("/", h.createProduct)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(productIDParam)
				r.Get("/", h.getProduct)
				r.Put("/", h.updateProduct)
				r.Get("/price", h.price)
				r.Get("/stock", h.getStock)
				r.Put("/stock", h.setStock)
				r.Get("/presets", h.listPresets)
				r.Post("/presets", h.setPreset)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.listCategories)
			r.Post("/", h.createCategory)
			r.Put("/{id}/products/{productID}", h.addToCategory)
			r.Delete("/{id}/products/{productID}", h.removeFromCategory)
		})

		r.Post("/batches", h.processBatch)
		r.Get("/journal/{actorID}", h.journalEntries)
	})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listProducts(w http.ResponseWriter, _ *http.Request) {
	products := h.catalog.Products()
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, newProductResponse(p, h.ledger.GetStock(p.ID)))
	}
	respond(w, http.StatusOK, out)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := req.product()
	if err != nil {
		fail(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.catalog.CreateProduct(r.Context(), p)
	if err != nil {
		fail(w, statusOf(err), err)
		return
	}
	respond(w, http.StatusCreated, newProductResponse(created, h.ledger.GetStock(created.ID)))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := h.product(w, r)
	if !ok {
		return
	}
	respond(w, http.StatusOK, newProductResponse(p, h.ledger.GetStock(p.ID)))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := req.product()
	if err != nil {
		fail(w, http.StatusBadRequest, err)
		return
	}
	p.ID = chi.URLParam(r, "id")

	if err := h.catalog.UpdateProduct(r.Context(), p); err != nil {
		fail(w, statusOf(err), err)
		return
	}
	// Capacity may have shrunk below the current stock.
	h.ledger.SetStock(r.Context(), p.ID, h.ledger.GetStock(p.ID))

	respond(w, http.StatusOK, newProductResponse(&p, h.ledger.GetStock(p.ID)))
}

func (h *Handler) price(w http.ResponseWriter, r *http.Request) {
	p, ok := h.product(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	multiplier := int32(1)
	if s := q.Get("multiplier"); s != "" {
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil || n <= 0 {
			fail(w, http.StatusBadRequest, errors.New("multiplier must be a positive integer"))
			return
		}
		multiplier = int32(n)
	}
	state, err := pricing.ParseItemState(q.Get("state"))
	if err != nil {
		fail(w, http.StatusBadRequest, err)
		return
	}

	var calc pricing.PriceCalculation
	switch q.Get("direction") {
	case "", "buy":
		calc = h.quoter.CalculateBuyPrice(p, multiplier, state)
	case "sell":
		calc = h.quoter.CalculateSellPrice(p, multiplier, state)
	default:
		fail(w, http.StatusBadRequest, errors.New("direction must be buy or sell"))
		return
	}

	units := calc.UnitPrices()
	if units == nil {
		units = []float64{}
	}
	respond(w, http.StatusOK, PriceResponse{
		ProductID:  p.ID,
		Direction:  calc.Direction.String(),
		State:      state.String(),
		Multiplier: multiplier,
		Stock:      calc.StockQuantity,
		Price:      calc.CalculatedPrice,
		Valid:      calc.IsValidPrice(),
		Free:       calc.IsFreeItem(),
		UnitPrices: units,
	})
}

func (h *Handler) getStock(w http.ResponseWriter, r *http.Request) {
	p, ok := h.product(w, r)
	if !ok {
		return
	}
	respond(w, http.StatusOK, h.stockResponse(p))
}

func (h *Handler) setStock(w http.ResponseWriter, r *http.Request) {
	p, ok := h.product(w, r)
	if !ok {
		return
	}
	var req StockRequest
	if !decode(w, r, &req) {
		return
	}

	h.ledger.SetStock(r.Context(), p.ID, req.Stock)
	slog.Info("stock set", "productID", p.ID, "requested", req.Stock, "stock", h.ledger.GetStock(p.ID))
	respond(w, http.StatusOK, h.stockResponse(p))
}

func (h *Handler) stockResponse(p *catalog.Product) StockResponse {
	return StockResponse{
		ProductID:        p.ID,
		Stock:            h.ledger.GetStock(p.ID),
		MaxStock:         p.MaxStock,
		HasStock:         h.ledger.HasStock(p.ID),
		CanIncreaseStock: h.ledger.CanIncreaseStock(p.ID, p.MaxStock),
	}
}

func (h *Handler) listPresets(w http.ResponseWriter, r *http.Request) {
	p, ok := h.product(w, r)
	if !ok {
		return
	}
	presets := h.catalog.Presets(p.ID)
	out := make([]PresetResponse, 0, len(presets))
	for _, pr := range presets {
		out = append(out, newPresetResponse(pr))
	}
	respond(w, http.StatusOK, out)
}

func (h *Handler) setPreset(w http.ResponseWriter, r *http.Request) {
	var req PresetRequest
	if !decode(w, r, &req) {
		return
	}
	pr := catalog.Preset{ProductID: chi.URLParam(r, "id"), Name: req.Name, Attachments: req.Attachments}
	if err := h.catalog.SetPreset(r.Context(), pr); err != nil {
		fail(w, statusOf(err), err)
		return
	}
	respond(w, http.StatusCreated, newPresetResponse(&pr))
}

func (h *Handler) listCategories(w http.ResponseWriter, _ *http.Request) {
	cats := h.catalog.Categories()
	out := make([]CategoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, newCategoryResponse(c))
	}
	respond(w, http.StatusOK, out)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decode(w, r, &req) {
		return
	}
	visible := true
	if req.Visible != nil {
		visible = *req.Visible
	}

	c, err := h.catalog.CreateCategory(r.Context(), req.Name, visible, req.Licenses)
	if err != nil {
		fail(w, statusOf(err), err)
		return
	}
	respond(w, http.StatusCreated, newCategoryResponse(c))
}

func (h *Handler) addToCategory(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, h.catalog.AddToCategory)
}

func (h *Handler) removeFromCategory(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, h.catalog.RemoveFromCategory)
}

func (h *Handler) membership(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, categoryID, productID string) error) {
	categoryID := chi.URLParam(r, "id")
	if err := fn(r.Context(), categoryID, chi.URLParam(r, "productID")); err != nil {
		fail(w, statusOf(err), err)
		return
	}
	c, _ := h.catalog.Category(categoryID)
	respond(w, http.StatusOK, newCategoryResponse(c))
}

func (h *Handler) processBatch(w http.ResponseWriter, r *http.Request) {
	if h.coord == nil {
		fail(w, http.StatusNotFound, errors.New("trading disabled"))
		return
	}

	var req BatchRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ActorID == "" {
		fail(w, http.StatusBadRequest, errors.New("actorId is required"))
		return
	}
	actor, err := newSession(req)
	if err != nil {
		fail(w, http.StatusBadRequest, err)
		return
	}

	batch := trade.NewCollection()
	for i, bt := range req.Transactions {
		tx, err := h.transaction(bt)
		if err != nil {
			fail(w, http.StatusBadRequest, fmt.Errorf("transaction %d: %w", i, err))
			return
		}
		batch.Add(tx)
	}

	results := h.coord.ProcessBatch(r.Context(), batch, actor)

	resp := BatchResponse{Results: make([]ResultResponse, 0, len(results))}
	for _, res := range results {
		resp.Results = append(resp.Results, ResultResponse{
			TransactionID: res.TransactionID(),
			ProductID:     res.ProductID(),
			Type:          res.Type().String(),
			Status:        res.Status().String(),
			Message:       res.Message(),
		})
	}
	resp.Currency, resp.Spawned, resp.Removed = actor.changes()
	respond(w, http.StatusOK, resp)
}

// transaction builds a transaction from its request. Unknown products are
// left to validation.
func (h *Handler) transaction(bt BatchTransaction) (*trade.Transaction, error) {
	p, ok := h.catalog.Product(bt.ProductID)
	if !ok {
		p = &catalog.Product{ID: bt.ProductID}
	}
	switch strings.ToLower(bt.Type) {
	case "buy":
		return trade.CreateBuyTransaction(p, bt.Multiplier, bt.Price, bt.TraderID, bt.Preset), nil
	case "sell":
		return trade.CreateSellTransaction(p, bt.Multiplier, bt.Price, bt.TraderID, bt.NetworkID, bt.Depth), nil
	}
	return nil, fmt.Errorf("type must be buy or sell, got %q", bt.Type)
}

func (h *Handler) journalEntries(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		fail(w, http.StatusNotFound, errors.New("journal disabled"))
		return
	}

	limit := defaultJournalLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			fail(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = min(n, maxJournalLimit)
	}

	entries, err := h.journal.Recent(r.Context(), chi.URLParam(r, "actorID"), limit)
	if err != nil {
		slog.Error("read journal", "error", err)
		fail(w, http.StatusInternalServerError, errors.New("journal unavailable"))
		return
	}
	if entries == nil {
		entries = []db.JournalEntry{}
	}
	respond(w, http.StatusOK, entries)
}

func (h *Handler) product(w http.ResponseWriter, r *http.Request) (*catalog.Product, bool) {
	id := chi.URLParam(r, "id")
	p, ok := h.catalog.Product(id)
	if !ok {
		fail(w, http.StatusNotFound, errors.New("Product not found: "+id))
		return nil, false
	}
	return p, true
}

// productIDParam rejects malformed product identifiers before any lookup.
func productIDParam(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chi.URLParam(r, "id"); !ident.IsValidProductID(id) {
			fail(w, http.StatusBadRequest, errors.New("malformed product id: "+id))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, catalog.ErrCategoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrInvalidProduct), errors.Is(err, catalog.ErrInvalidPreset),
		errors.Is(err, ident.ErrEmptySlug):
		return http.StatusBadRequest
	case errors.Is(err, ident.ErrExhausted), errors.Is(err, ident.ErrTooManyTries):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		fail(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func fail(w http.ResponseWriter, status int, err error) {
	respond(w, status, errorResponse{Error: err.Error()})
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("write response", "error", err)
	}
}
