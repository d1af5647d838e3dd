package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/awais2000/Blue-Star/internal/ledger"
	"github.com/awais2000/Blue-Star/internal/masterdata/customers"
	"github.com/awais2000/Blue-Star/internal/masterdata/products"
	"github.com/awais2000/Blue-Star/internal/observability"
	"github.com/awais2000/Blue-Star/internal/receipt"
	"github.com/awais2000/Blue-Star/internal/sales/cart"
	"github.com/awais2000/Blue-Star/internal/sales/invoices"
	"github.com/awais2000/Blue-Star/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	CustomersHandler *customers.Handler
	ProductsHandler  *products.Handler
	LedgerHandler    *ledger.Handler
	CartHandler      *cart.Handler
	InvoicesHandler  *invoices.Handler
	ReceiptHandler   *receipt.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Blue Star defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.CustomersHandler != nil {
		r.Route("/customers", params.CustomersHandler.MountRoutes)
	}
	if params.ProductsHandler != nil {
		r.Route("/products", params.ProductsHandler.MountRoutes)
	}
	if params.LedgerHandler != nil {
		r.Route("/ledger", params.LedgerHandler.MountRoutes)
	}
	if params.CartHandler != nil {
		r.Route("/cart", params.CartHandler.MountRoutes)
	}
	if params.InvoicesHandler != nil {
		r.Route("/sales", params.InvoicesHandler.MountRoutes)
	}
	if params.ReceiptHandler != nil {
		r.Route("/receipts", params.ReceiptHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
