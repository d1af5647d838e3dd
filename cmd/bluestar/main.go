package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/awais2000/Blue-Star/internal/app"
	"github.com/awais2000/Blue-Star/internal/ledger"
	"github.com/awais2000/Blue-Star/internal/masterdata/customers"
	"github.com/awais2000/Blue-Star/internal/masterdata/products"
	"github.com/awais2000/Blue-Star/internal/observability"
	"github.com/awais2000/Blue-Star/internal/platform/cache"
	"github.com/awais2000/Blue-Star/internal/platform/db"
	"github.com/awais2000/Blue-Star/internal/pricing"
	"github.com/awais2000/Blue-Star/internal/receipt"
	"github.com/awais2000/Blue-Star/internal/sales/cart"
	"github.com/awais2000/Blue-Star/internal/sales/invoices"
	"github.com/awais2000/Blue-Star/internal/shared"
	"github.com/awais2000/Blue-Star/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	engine := pricing.NewEngine(cfg.VATRate)

	customerRepo := customers.NewRepository(dbpool)
	customerService := customers.NewService(customerRepo)
	customerHandler := customers.NewHandler(logger, customerService)

	productRepo := products.NewRepository(dbpool)
	productService := products.NewService(productRepo)
	productHandler := products.NewHandler(logger, productService)

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, auditLogger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	cartStore := cart.NewStore(redisClient, cfg.CartTTL)
	cartService := cart.NewService(cartStore, engine)
	cartHandler := cart.NewHandler(logger, cartService)

	invoiceRepo := invoices.NewRepository(dbpool)
	invoiceService := invoices.NewService(invoiceRepo, cartService, customerService, engine, auditLogger)
	invoiceHandler := invoices.NewHandler(logger, invoiceService)

	renderer, err := receipt.NewRenderer(receipt.Business{
		Name:    cfg.ReceiptName,
		Address: cfg.ReceiptAddress,
		Contact: cfg.ReceiptContact,
	}, cfg.Currency)
	if err != nil {
		logger.Error("parse receipt templates", slog.Any("error", err))
		os.Exit(1)
	}
	printerSettings := receipt.NewSettingsRepository(dbpool)
	receiptHandler := receipt.NewHandler(logger, renderer, invoiceService, printerSettings)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CustomersHandler: customerHandler,
		ProductsHandler:  productHandler,
		LedgerHandler:    ledgerHandler,
		CartHandler:      cartHandler,
		InvoicesHandler:  invoiceHandler,
		ReceiptHandler:   receiptHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
