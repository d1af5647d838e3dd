// Package invoices turns carts into persisted invoices with gapless
// sequential numbers.
package invoices

import (
	"errors"
	"time"

	"github.com/awais2000/Blue-Star/internal/pricing"
)

// NumberPrefix is printed in front of the invoice sequence.
const NumberPrefix = "BS-"

// Item is one invoiced line, frozen at checkout time.
type Item struct {
	ID        int64   `json:"id"`
	InvoiceID int64   `json:"invoice_id"`
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Rate      float64 `json:"rate"`
	Qty       float64 `json:"qty"`
	Discount  float64 `json:"discount"`
	VAT       float64 `json:"vat"`
	Total     float64 `json:"total"`
	NetTotal  float64 `json:"net_total"`
}

// CustomerSnapshot freezes the buyer's identity at checkout time. Later
// edits or deactivation of the customer row never change a printed invoice.
type CustomerSnapshot struct {
	Name    string `json:"name,omitempty"`
	Contact string `json:"contact,omitempty"`
	TRN     string `json:"trn,omitempty"`
}

// Invoice is a completed sale.
type Invoice struct {
	ID         int64            `json:"id"`
	Number     string           `json:"number"`
	Sequence   int64            `json:"sequence"`
	CustomerID int64            `json:"customer_id,omitempty"`
	Customer   CustomerSnapshot `json:"customer"`
	VATMode    pricing.VATMode  `json:"vat_mode"`
	Subtotal   float64          `json:"subtotal"`
	VATAmount  float64          `json:"vat_amount"`
	Discount   float64          `json:"discount"`
	GrandTotal float64          `json:"grand_total"`
	Items      []Item           `json:"items,omitempty"`
	IssuedAt   time.Time        `json:"issued_at"`
	CreatedAt  time.Time        `json:"created_at"`
}

// CheckoutInput carries the request to close a cart into an invoice.
type CheckoutInput struct {
	SessionID     string
	CustomerID    int64
	VATMode       pricing.VATMode
	ExtraDiscount float64
}

// ListFilter narrows invoice listings. Search matches the invoice number.
type ListFilter struct {
	CustomerID int64
	From       time.Time
	To         time.Time
	Search     string
	Limit      int
}

var (
	ErrEmptyCart        = errors.New("invoices: cart is empty")
	ErrInvoiceNotFound  = errors.New("invoices: invoice not found")
	ErrCustomerNotFound = errors.New("invoices: customer not found")
)
