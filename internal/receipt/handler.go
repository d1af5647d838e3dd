package receipt

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/awais2000/Blue-Star/internal/platform/httpx"
	"github.com/awais2000/Blue-Star/internal/sales/invoices"
)

// InvoicePort is the slice of the invoice service receipts need.
type InvoicePort interface {
	Get(ctx context.Context, id int64) (invoices.Invoice, error)
}

// SettingsPort reads and writes the printer configuration.
type SettingsPort interface {
	Get(ctx context.Context) (Format, error)
	Set(ctx context.Context, format Format) error
}

// Handler serves receipt HTML and the printer configuration.
type Handler struct {
	logger   *slog.Logger
	renderer *Renderer
	invoices InvoicePort
	settings SettingsPort
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, renderer *Renderer, invoicePort InvoicePort, settings SettingsPort) *Handler {
	return &Handler{logger: logger, renderer: renderer, invoices: invoicePort, settings: settings}
}

// MountRoutes registers receipt routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/invoices/{id}", h.renderInvoice)
	r.Get("/printer", h.getPrinter)
	r.Put("/printer", h.setPrinter)
}

func (h *Handler) renderInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice ID")
		return
	}

	format := Format(r.URL.Query().Get("format"))
	if format == "" {
		format, err = h.settings.Get(r.Context())
		if err != nil {
			h.logger.Error("load printer settings", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
	}
	if !format.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown receipt format")
		return
	}

	inv, err := h.invoices.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, invoices.ErrInvoiceNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("load invoice for receipt", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Render(w, format, inv); err != nil {
		h.logger.Error("render receipt", slog.Any("error", err))
	}
}

func (h *Handler) getPrinter(w http.ResponseWriter, r *http.Request) {
	format, err := h.settings.Get(r.Context())
	if err != nil {
		h.logger.Error("load printer settings", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"format": string(format)})
}

type setPrinterRequest struct {
	Format string `json:"format"`
}

func (h *Handler) setPrinter(w http.ResponseWriter, r *http.Request) {
	var req setPrinterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	format := Format(req.Format)
	if err := h.settings.Set(r.Context(), format); err != nil {
		if errors.Is(err, ErrUnknownFormat) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("save printer settings", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"format": string(format)})
}
