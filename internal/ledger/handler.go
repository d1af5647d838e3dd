package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/awais2000/Blue-Star/internal/platform/httpx"
)

// Handler exposes the ledger over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/loans", func(r chi.Router) {
		r.Post("/", h.addLoan)
		r.Put("/{id}", h.updateLoan)
		r.Delete("/{id}", h.deleteLoan)
		r.Get("/customer/{customerID}", h.loansByCustomer)
	})
	r.Route("/receivables", func(r chi.Router) {
		r.Post("/", h.addReceivable)
		r.Get("/{id}", h.receivableByID)
		r.Put("/{id}", h.updateReceivable)
		r.Delete("/{id}", h.deleteReceivable)
		r.Get("/customer/{customerID}", h.receivablesByCustomer)
	})
}

type addLoanRequest struct {
	CustomerID  int64   `json:"customer_id" validate:"required,gt=0"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name" validate:"max=200"`
	Rate        float64 `json:"rate" validate:"required,gt=0"`
	Qty         float64 `json:"qty" validate:"required,gt=0"`
	Date        string  `json:"date"`
}

type updateLoanRequest struct {
	CustomerID  *int64   `json:"customer_id" validate:"omitempty,gt=0"`
	ProductID   *int64   `json:"product_id"`
	ProductName *string  `json:"product_name" validate:"omitempty,max=200"`
	Rate        *float64 `json:"rate" validate:"omitempty,gt=0"`
	Qty         *float64 `json:"qty" validate:"omitempty,gt=0"`
	Date        *string  `json:"date"`
}

type addReceivableRequest struct {
	CustomerID int64   `json:"customer_id" validate:"required,gt=0"`
	PaidCash   float64 `json:"paid_cash" validate:"required,gt=0"`
	Date       string  `json:"date"`
}

type updateReceivableRequest struct {
	PaidCash *float64 `json:"paid_cash" validate:"omitempty,gt=0"`
	Date     *string  `json:"date"`
}

func (h *Handler) addLoan(w http.ResponseWriter, r *http.Request) {
	var req addLoanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, "invalid loan payload", validationFields(err))
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		httpx.ValidationProblem(w, "invalid date, expected YYYY-MM-DD", []string{"date"})
		return
	}

	loan, err := h.service.AddLoan(r.Context(), AddLoanInput{
		CustomerID:  req.CustomerID,
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		Rate:        req.Rate,
		Qty:         req.Qty,
		Date:        date,
	})
	if err != nil {
		h.respondError(w, r, "add loan", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, loan)
}

func (h *Handler) updateLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateLoanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, "invalid loan payload", validationFields(err))
		return
	}
	input := UpdateLoanInput{
		CustomerID:  req.CustomerID,
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		Rate:        req.Rate,
		Qty:         req.Qty,
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			httpx.ValidationProblem(w, "invalid date, expected YYYY-MM-DD", []string{"date"})
			return
		}
		input.Date = &date
	}

	loan, err := h.service.UpdateLoan(r.Context(), id, input)
	if err != nil {
		h.respondError(w, r, "update loan", err)
		return
	}
	httpx.JSON(w, http.StatusOK, loan)
}

func (h *Handler) deleteLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteLoan(r.Context(), id); err != nil {
		h.respondError(w, r, "delete loan", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) loansByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "customerID")
	if !ok {
		return
	}
	stmt, err := h.service.LoansByCustomer(r.Context(), customerID)
	if err != nil {
		h.respondError(w, r, "list loans", err)
		return
	}
	httpx.JSON(w, http.StatusOK, stmt)
}

func (h *Handler) addReceivable(w http.ResponseWriter, r *http.Request) {
	var req addReceivableRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, "invalid receivable payload", validationFields(err))
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		httpx.ValidationProblem(w, "invalid date, expected YYYY-MM-DD", []string{"date"})
		return
	}

	result, err := h.service.AddReceivable(r.Context(), AddReceivableInput{
		CustomerID: req.CustomerID,
		PaidCash:   req.PaidCash,
		Date:       date,
	})
	if err != nil {
		h.respondError(w, r, "add receivable", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) receivableByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rec, err := h.service.ReceivableByID(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get receivable", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) updateReceivable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateReceivableRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, "invalid receivable payload", validationFields(err))
		return
	}
	input := UpdateReceivableInput{PaidCash: req.PaidCash}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			httpx.ValidationProblem(w, "invalid date, expected YYYY-MM-DD", []string{"date"})
			return
		}
		input.Date = &date
	}

	rec, err := h.service.UpdateReceivable(r.Context(), id, input)
	if err != nil {
		h.respondError(w, r, "update receivable", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) deleteReceivable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteReceivable(r.Context(), id); err != nil {
		h.respondError(w, r, "delete receivable", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) receivablesByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "customerID")
	if !ok {
		return
	}
	recs, err := h.service.ReceivablesByCustomer(r.Context(), customerID)
	if err != nil {
		h.respondError(w, r, "list receivables", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"receivables": recs})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrCustomerNotFound),
		errors.Is(err, ErrLoanNotFound),
		errors.Is(err, ErrReceivableNotFound),
		errors.Is(err, ErrNoActiveLoans):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidNumeric):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrTxConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "ledger busy, retry the request")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid "+name)
		return 0, false
	}
	return id, true
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

func validationFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}
