package cart

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/awais2000/Blue-Star/internal/platform/httpx"
	"github.com/awais2000/Blue-Star/internal/pricing"
)

// Handler exposes cart endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers cart routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sessions", h.newSession)
	r.Route("/{sessionID}", func(r chi.Router) {
		r.Get("/", h.view)
		r.Delete("/", h.clear)
		r.Post("/items", h.addItem)
		r.Put("/items/{productID}", h.updateItem)
		r.Delete("/items/{productID}", h.removeItem)
	})
}

type addItemRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Name      string  `json:"name" validate:"max=200"`
	Rate      float64 `json:"rate" validate:"gte=0"`
	Qty       float64 `json:"qty" validate:"required,gt=0"`
	Discount  float64 `json:"discount" validate:"gte=0"`
}

type updateItemRequest struct {
	Qty      float64 `json:"qty" validate:"required,gt=0"`
	Discount float64 `json:"discount" validate:"gte=0"`
}

func (h *Handler) newSession(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusCreated, map[string]string{"session_id": h.service.NewSession()})
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	mode := pricing.VATMode(r.URL.Query().Get("vat_mode"))
	if mode == "" {
		mode = pricing.VATExclusive
	}
	var extraDiscount float64
	if raw := r.URL.Query().Get("discount"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid discount")
			return
		}
		extraDiscount = parsed
	}

	view, err := h.service.View(r.Context(), sessionID, mode, extraDiscount)
	if err != nil {
		h.respondError(w, "view cart", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var req addItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, "invalid cart line", nil)
		return
	}
	c, err := h.service.AddItem(r.Context(), sessionID, AddItemInput{
		ProductID: req.ProductID,
		Name:      req.Name,
		Rate:      req.Rate,
		Qty:       req.Qty,
		Discount:  req.Discount,
	})
	if err != nil {
		h.respondError(w, "add cart item", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	productID, ok := productID(w, r)
	if !ok {
		return
	}
	var req updateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, "invalid cart line", nil)
		return
	}
	c, err := h.service.UpdateItem(r.Context(), sessionID, productID, req.Qty, req.Discount)
	if err != nil {
		h.respondError(w, "update cart item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	productID, ok := productID(w, r)
	if !ok {
		return
	}
	c, err := h.service.RemoveItem(r.Context(), sessionID, productID)
	if err != nil {
		h.respondError(w, "remove cart item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.service.Clear(r.Context(), sessionID); err != nil {
		h.respondError(w, "clear cart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidSession), errors.Is(err, ErrInvalidLine),
		errors.Is(err, pricing.ErrInvalidVATMode), errors.Is(err, pricing.ErrNegativeDiscount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrLineNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product ID")
		return 0, false
	}
	return id, true
}
