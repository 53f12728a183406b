package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/traderplus/internal/api"
	"github.com/udisondev/traderplus/internal/catalog"
	"github.com/udisondev/traderplus/internal/config"
	"github.com/udisondev/traderplus/internal/currency"
	"github.com/udisondev/traderplus/internal/db"
	"github.com/udisondev/traderplus/internal/pricing"
	"github.com/udisondev/traderplus/internal/stock"
	"github.com/udisondev/traderplus/internal/trade"
)

const ConfigPath = "config/traderplus.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfgPath := ConfigPath
	if p := os.Getenv("TRADERPLUS_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadTrader(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))
	slog.Info("traderplus starting", "log_level", cfg.LogLevel, "config", cfgPath)

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	cat := catalog.New(db.NewCatalogRepository(database.Pool()))
	if err := cat.Init(ctx); err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	ledger := stock.NewLedger(db.NewStockRepository(database.Pool()), cat.MaxStock)
	if err := ledger.Init(ctx); err != nil {
		return fmt.Errorf("loading stock: %w", err)
	}

	if cat.Empty() {
		if err := seedCatalog(ctx, cat, ledger, cfg.SeedPath); err != nil {
			return err
		}
	}

	registry, err := currency.NewSet(cfg.Currencies)
	if err != nil {
		return fmt.Errorf("building currency registry: %w", err)
	}
	traders, err := trade.NewDirectory(registry, traderDefs(cfg.Traders))
	if err != nil {
		return fmt.Errorf("building trader directory: %w", err)
	}
	slog.Info("traders loaded", "traders", traders.Len(), "currencies", registry.Len())

	journal := db.NewJournalRepository(database.Pool())
	quoter := pricing.NewQuoter(cat, ledger)
	coord := trade.NewCoordinator(trade.NewValidator(cat, ledger, traders), quoter, journal)

	rotator := stock.NewRotator(ledger, cat, cfg.RotationInterval)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      api.NewRouter(api.NewHandler(cat, ledger, quoter, journal, coord)),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return rotator.Start(gctx)
	})

	g.Go(func() error {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		slog.Info("http server stopped")
		return nil
	})

	return g.Wait()
}

// seedCatalog fills an empty catalog from the seed file and sets the
// initial stock of every created product.
func seedCatalog(ctx context.Context, cat *catalog.Catalog, ledger *stock.Ledger, path string) error {
	seed, err := catalog.LoadSeed(path)
	if err != nil {
		return fmt.Errorf("loading seed: %w", err)
	}
	initial, err := cat.ApplySeed(ctx, seed)
	if err != nil {
		return fmt.Errorf("applying seed: %w", err)
	}
	for id, n := range initial {
		ledger.SetStock(ctx, id, n)
	}
	return nil
}

func traderDefs(entries []config.TraderEntry) []trade.TraderDef {
	defs := make([]trade.TraderDef, 0, len(entries))
	for _, e := range entries {
		defs = append(defs, trade.TraderDef{ID: e.ID, Name: e.Name, Currencies: e.Currencies})
	}
	return defs
}
