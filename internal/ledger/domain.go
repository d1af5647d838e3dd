// Package ledger maintains the customer credit ledger: loans (debt), receivables
// (payments) and the FIFO allocation that settles loans over time.
package ledger

import (
	"errors"
	"time"
)

// Loan is a credit sale entry. Price is the line amount (rate*qty), Total the
// customer's cumulative balance at the time the loan was created. Receivable is
// the amount repaid against this loan so far.
type Loan struct {
	ID            int64     `json:"id"`
	CustomerID    int64     `json:"customer_id"`
	ProductID     int64     `json:"product_id,omitempty"`
	ProductName   string    `json:"product_name,omitempty"`
	Rate          float64   `json:"rate"`
	Qty           float64   `json:"qty"`
	Price         float64   `json:"price"`
	Total         float64   `json:"total"`
	Receivable    float64   `json:"receivable"`
	TotalBalance  float64   `json:"total_balance"`
	RemainingCash float64   `json:"remaining_cash"`
	Date          time.Time `json:"date"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Outstanding returns the unpaid remainder of the loan, never negative.
func (l Loan) Outstanding() float64 {
	if rem := l.Price - l.Receivable; rem > 0 {
		return rem
	}
	return 0
}

// Settled reports whether the loan is fully repaid.
func (l Loan) Settled() bool {
	return l.Receivable >= l.Price
}

// Receivable records one payment event. TotalBalance is the customer balance
// before the payment, RemainingCash the balance after.
type Receivable struct {
	ID            int64     `json:"id"`
	CustomerID    int64     `json:"customer_id"`
	Date          time.Time `json:"date"`
	TotalBalance  float64   `json:"total_balance"`
	PaidCash      float64   `json:"paid_cash"`
	RemainingCash float64   `json:"remaining_cash"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

// Allocation describes how much of a payment landed on one loan.
type Allocation struct {
	LoanID  int64   `json:"loan_id"`
	Applied float64 `json:"applied"`
	Closed  bool    `json:"closed"`
}

// Balance aggregates a customer's ledger position.
type Balance struct {
	TotalBalance  float64 `json:"total_balance"`
	TotalPaid     float64 `json:"total_paid"`
	RemainingCash float64 `json:"remaining_cash"`
}

// Statement is the read model for a customer's loans.
type Statement struct {
	Loans   []Loan  `json:"loans"`
	Balance Balance `json:"balance"`
}

// PaymentResult is returned after recording a receivable.
type PaymentResult struct {
	Receivable  Receivable   `json:"receivable"`
	Allocations []Allocation `json:"allocations"`
	Balance     Balance      `json:"balance"`
}

// AddLoanInput carries fields for creating a loan.
type AddLoanInput struct {
	CustomerID  int64
	ProductID   int64
	ProductName string
	Rate        float64
	Qty         float64
	Date        time.Time
}

// UpdateLoanInput carries optional fields for editing a loan.
type UpdateLoanInput struct {
	CustomerID  *int64
	ProductID   *int64
	ProductName *string
	Rate        *float64
	Qty         *float64
	Date        *time.Time
}

// AddReceivableInput carries fields for recording a payment.
type AddReceivableInput struct {
	CustomerID int64
	Date       time.Time
	PaidCash   float64
}

// UpdateReceivableInput carries optional fields for editing a payment.
type UpdateReceivableInput struct {
	Date     *time.Time
	PaidCash *float64
}

var (
	ErrCustomerNotFound   = errors.New("ledger: customer not found")
	ErrLoanNotFound       = errors.New("ledger: loan not found")
	ErrReceivableNotFound = errors.New("ledger: receivable not found")
	ErrNoActiveLoans      = errors.New("ledger: no active loans for customer")
	ErrInvalidNumeric     = errors.New("ledger: invalid numeric value")
	ErrTxConflict         = errors.New("ledger: transaction conflict")
)
