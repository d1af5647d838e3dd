package invoices

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/awais2000/Blue-Star/internal/platform/httpx"
	"github.com/awais2000/Blue-Star/internal/pricing"
	"github.com/awais2000/Blue-Star/internal/sales/cart"
)

// Handler exposes invoice endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/checkout", h.checkout)
	r.Get("/invoices", h.list)
	r.Get("/invoices/{id}", h.show)
	r.Get("/invoices/number/{number}", h.showByNumber)
}

type checkoutRequest struct {
	SessionID     string  `json:"session_id" validate:"required,uuid4"`
	CustomerID    int64   `json:"customer_id" validate:"gte=0"`
	VATMode       string  `json:"vat_mode" validate:"omitempty,oneof=exclusive inclusive"`
	ExtraDiscount float64 `json:"extra_discount" validate:"gte=0"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, "invalid checkout payload", nil)
		return
	}
	inv, err := h.service.Checkout(r.Context(), CheckoutInput{
		SessionID:     req.SessionID,
		CustomerID:    req.CustomerID,
		VATMode:       pricing.VATMode(req.VATMode),
		ExtraDiscount: req.ExtraDiscount,
	})
	if err != nil {
		h.respondError(w, "checkout", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice ID")
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) showByNumber(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if number == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice number")
		return
	}
	inv, err := h.service.GetByNumber(r.Context(), number)
	if err != nil {
		h.respondError(w, "get invoice by number", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{}
	if raw := q.Get("customer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid customer_id")
			return
		}
		filter.CustomerID = id
	}
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid from date")
			return
		}
		filter.From = from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid to date")
			return
		}
		filter.To = to
	}
	filter.Search = q.Get("search")
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid limit")
			return
		}
		filter.Limit = limit
	}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list invoices", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": list})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrEmptyCart):
		httpx.Problem(w, http.StatusBadRequest, "Empty Cart", err.Error())
	case errors.Is(err, ErrInvoiceNotFound), errors.Is(err, ErrCustomerNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, cart.ErrInvalidSession),
		errors.Is(err, pricing.ErrInvalidVATMode),
		errors.Is(err, pricing.ErrNegativeDiscount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
