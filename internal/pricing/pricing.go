// Package pricing computes VAT, discount and totals for sale line items.
package pricing

import (
	"errors"
	"math"
)

// VATMode states whether a quoted rate already contains VAT.
type VATMode string

const (
	// VATExclusive means the rate excludes tax; VAT is added on top.
	VATExclusive VATMode = "exclusive"
	// VATInclusive means the quoted rate already contains VAT.
	VATInclusive VATMode = "inclusive"
)

// DefaultVATRate is the UAE VAT rate.
const DefaultVATRate = 0.05

var (
	ErrInvalidRate      = errors.New("pricing: rate must not be negative")
	ErrInvalidQuantity  = errors.New("pricing: quantity must not be negative")
	ErrNegativeDiscount = errors.New("pricing: discount must not be negative")
	ErrInvalidVATMode   = errors.New("pricing: unknown vat mode")
)

// Line is an unpriced cart line.
type Line struct {
	Rate     float64
	Qty      float64
	Discount float64
	Mode     VATMode
}

// Priced carries every computed figure for a line.
type Priced struct {
	BaseAmount    float64
	VAT           float64
	EffectiveRate float64
	Total         float64
	NetTotal      float64
}

// Engine prices lines under a fixed VAT rate.
type Engine struct {
	vatRate float64
}

// NewEngine builds an Engine. A non-positive rate falls back to the default.
func NewEngine(vatRate float64) Engine {
	if vatRate <= 0 {
		vatRate = DefaultVATRate
	}
	return Engine{vatRate: vatRate}
}

// VATRate returns the configured VAT rate.
func (e Engine) VATRate() float64 {
	return e.vatRate
}

// PriceLine computes all monetary fields for a line.
// Rounding is half-up to 2 decimals at every computed field.
func (e Engine) PriceLine(l Line) (Priced, error) {
	if l.Rate < 0 {
		return Priced{}, ErrInvalidRate
	}
	if l.Qty < 0 {
		return Priced{}, ErrInvalidQuantity
	}
	if l.Discount < 0 {
		return Priced{}, ErrNegativeDiscount
	}
	if l.Mode != VATExclusive && l.Mode != VATInclusive {
		return Priced{}, ErrInvalidVATMode
	}
	if l.Qty == 0 {
		return Priced{}, nil
	}

	base := l.Rate * l.Qty
	vat := Round2(base * e.vatRate)

	var p Priced
	p.BaseAmount = Round2(base)
	p.VAT = vat

	switch l.Mode {
	case VATExclusive:
		p.EffectiveRate = Round2(l.Rate)
		p.Total = Round2(base - l.Discount)
		p.NetTotal = Round2(p.Total + vat)
	case VATInclusive:
		p.EffectiveRate = Round2(l.Rate - vat/l.Qty)
		p.Total = Round2(p.EffectiveRate*l.Qty - l.Discount)
		p.NetTotal = Round2(base)
	}
	return p, nil
}

// CartTotal sums net totals into a grand total. The extra discount applies
// only when the cart is priced VAT-inclusive.
func (e Engine) CartTotal(lines []Priced, extraDiscount float64, mode VATMode) (float64, error) {
	if extraDiscount < 0 {
		return 0, ErrNegativeDiscount
	}
	var sum float64
	for _, l := range lines {
		sum += l.NetTotal
	}
	total := Round2(sum)
	if mode == VATInclusive {
		total = Round2(total - extraDiscount)
	}
	return total, nil
}

// Round2 rounds half-up to 2 decimal places. The epsilon compensates for
// decimal halves that sit just below .5 in binary representation.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5+1e-9) / 100
}
