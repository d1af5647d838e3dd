package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriceLineExclusive(t *testing.T) {
	e := NewEngine(0.05)

	p, err := e.PriceLine(Line{Rate: 100, Qty: 2, Discount: 0, Mode: VATExclusive})
	require.NoError(t, err)
	require.Equal(t, 200.0, p.BaseAmount)
	require.Equal(t, 10.0, p.VAT)
	require.Equal(t, 200.0, p.Total)
	require.Equal(t, 210.0, p.NetTotal)
}

func TestPriceLineExclusiveWithDiscount(t *testing.T) {
	e := NewEngine(0.05)

	p, err := e.PriceLine(Line{Rate: 100, Qty: 2, Discount: 20, Mode: VATExclusive})
	require.NoError(t, err)
	require.Equal(t, 10.0, p.VAT)
	require.Equal(t, 180.0, p.Total)
	require.Equal(t, 190.0, p.NetTotal)
}

func TestPriceLineInclusive(t *testing.T) {
	e := NewEngine(0.05)

	p, err := e.PriceLine(Line{Rate: 105, Qty: 1, Discount: 0, Mode: VATInclusive})
	require.NoError(t, err)
	require.Equal(t, 5.25, p.VAT)
	require.Equal(t, 99.75, p.EffectiveRate)
	require.Equal(t, 99.75, p.Total)
	require.Equal(t, 105.0, p.NetTotal)
}

func TestPriceLineZeroQuantity(t *testing.T) {
	e := NewEngine(0.05)

	p, err := e.PriceLine(Line{Rate: 100, Qty: 0, Mode: VATInclusive})
	require.NoError(t, err)
	require.Equal(t, Priced{}, p)
}

func TestPriceLineRejectsNegativeDiscount(t *testing.T) {
	e := NewEngine(0.05)

	_, err := e.PriceLine(Line{Rate: 100, Qty: 1, Discount: -5, Mode: VATExclusive})
	require.ErrorIs(t, err, ErrNegativeDiscount)
}

func TestPriceLineRejectsUnknownMode(t *testing.T) {
	e := NewEngine(0.05)

	_, err := e.PriceLine(Line{Rate: 100, Qty: 1, Mode: VATMode("half")})
	require.ErrorIs(t, err, ErrInvalidVATMode)
}

func TestPriceLineRoundsHalfUpPerField(t *testing.T) {
	e := NewEngine(0.05)

	// 33.33 * 3 = 99.99, vat = 4.9995 -> 5.00
	p, err := e.PriceLine(Line{Rate: 33.33, Qty: 3, Mode: VATExclusive})
	require.NoError(t, err)
	require.Equal(t, 5.0, p.VAT)
	require.Equal(t, 99.99, p.Total)
	require.Equal(t, 104.99, p.NetTotal)
}

func TestCartTotal(t *testing.T) {
	e := NewEngine(0.05)

	l1, err := e.PriceLine(Line{Rate: 100, Qty: 2, Mode: VATExclusive})
	require.NoError(t, err)
	l2, err := e.PriceLine(Line{Rate: 50, Qty: 1, Mode: VATExclusive})
	require.NoError(t, err)

	total, err := e.CartTotal([]Priced{l1, l2}, 0, VATExclusive)
	require.NoError(t, err)
	require.Equal(t, 262.5, total)
}

func TestCartTotalExtraDiscountOnlyInclusive(t *testing.T) {
	e := NewEngine(0.05)

	l, err := e.PriceLine(Line{Rate: 105, Qty: 1, Mode: VATInclusive})
	require.NoError(t, err)

	withDiscount, err := e.CartTotal([]Priced{l}, 5, VATInclusive)
	require.NoError(t, err)
	require.Equal(t, 100.0, withDiscount)

	ignored, err := e.CartTotal([]Priced{l}, 5, VATExclusive)
	require.NoError(t, err)
	require.Equal(t, 105.0, ignored)
}

func TestCartTotalRejectsNegativeDiscount(t *testing.T) {
	e := NewEngine(0.05)

	_, err := e.CartTotal(nil, -1, VATInclusive)
	require.ErrorIs(t, err, ErrNegativeDiscount)
}

func TestRound2HalfUp(t *testing.T) {
	require.Equal(t, 1.01, Round2(1.005))
	require.Equal(t, 2.68, Round2(2.675))
	require.Equal(t, 0.0, Round2(0))
}
