// Package cart keeps per-session sale drafts in Redis. Carts are keyed by a
// session ID so several counter terminals never see each other's lines.
package cart

import (
	"errors"
	"time"
)

// Line is one draft sale item.
type Line struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Rate      float64 `json:"rate"`
	Qty       float64 `json:"qty"`
	Discount  float64 `json:"discount"`
}

// Cart is the stored draft.
type Cart struct {
	SessionID string    `json:"session_id"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PricedLine pairs a line with its computed amounts.
type PricedLine struct {
	Line
	BaseAmount float64 `json:"base_amount"`
	VAT        float64 `json:"vat"`
	Total      float64 `json:"total"`
	NetTotal   float64 `json:"net_total"`
}

// View is the priced read model of a cart.
type View struct {
	SessionID  string       `json:"session_id"`
	Items      []PricedLine `json:"items"`
	GrandTotal float64      `json:"grand_total"`
}

var (
	ErrInvalidSession = errors.New("cart: invalid session id")
	ErrLineNotFound   = errors.New("cart: line not found")
	ErrInvalidLine    = errors.New("cart: invalid line")
)
