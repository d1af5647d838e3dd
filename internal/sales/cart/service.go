package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/awais2000/Blue-Star/internal/pricing"
)

// Service implements cart use cases.
type Service struct {
	store  *Store
	engine pricing.Engine
}

// NewService constructs a cart service.
func NewService(store *Store, engine pricing.Engine) *Service {
	return &Service{store: store, engine: engine}
}

// NewSession mints a fresh session ID.
func (s *Service) NewSession() string {
	return uuid.NewString()
}

// AddItemInput carries one line to add.
type AddItemInput struct {
	ProductID int64
	Name      string
	Rate      float64
	Qty       float64
	Discount  float64
}

// AddItem appends a line, merging quantity when the product is already in
// the cart at the same rate. A merge replaces the line discount with the
// latest value, the absolute amounts never stack.
func (s *Service) AddItem(ctx context.Context, sessionID string, input AddItemInput) (Cart, error) {
	if err := checkSession(sessionID); err != nil {
		return Cart{}, err
	}
	if input.ProductID <= 0 || input.Rate < 0 || input.Qty <= 0 || input.Discount < 0 {
		return Cart{}, fmt.Errorf("%w: product, rate and qty must be valid", ErrInvalidLine)
	}
	c, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}
	merged := false
	for i := range c.Lines {
		if c.Lines[i].ProductID == input.ProductID && c.Lines[i].Rate == input.Rate {
			c.Lines[i].Qty += input.Qty
			c.Lines[i].Discount = input.Discount
			merged = true
			break
		}
	}
	if !merged {
		c.Lines = append(c.Lines, Line{
			ProductID: input.ProductID,
			Name:      input.Name,
			Rate:      input.Rate,
			Qty:       input.Qty,
			Discount:  input.Discount,
		})
	}
	if err := s.store.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// UpdateItem replaces quantity and discount of a line.
func (s *Service) UpdateItem(ctx context.Context, sessionID string, productID int64, qty, discount float64) (Cart, error) {
	if err := checkSession(sessionID); err != nil {
		return Cart{}, err
	}
	if qty <= 0 || discount < 0 {
		return Cart{}, fmt.Errorf("%w: qty must be positive", ErrInvalidLine)
	}
	c, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines[i].Qty = qty
			c.Lines[i].Discount = discount
			if err := s.store.Save(ctx, c); err != nil {
				return Cart{}, err
			}
			return c, nil
		}
	}
	return Cart{}, ErrLineNotFound
}

// RemoveItem drops a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, sessionID string, productID int64) (Cart, error) {
	if err := checkSession(sessionID); err != nil {
		return Cart{}, err
	}
	c, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			if err := s.store.Save(ctx, c); err != nil {
				return Cart{}, err
			}
			return c, nil
		}
	}
	return Cart{}, ErrLineNotFound
}

// View prices the cart under the given VAT mode. The extra discount only
// applies on inclusive pricing.
func (s *Service) View(ctx context.Context, sessionID string, mode pricing.VATMode, extraDiscount float64) (View, error) {
	if err := checkSession(sessionID); err != nil {
		return View{}, err
	}
	c, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	return s.price(c, mode, extraDiscount)
}

// Lines returns the raw cart lines.
func (s *Service) Lines(ctx context.Context, sessionID string) ([]Line, error) {
	if err := checkSession(sessionID); err != nil {
		return nil, err
	}
	c, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return c.Lines, nil
}

// Clear drops the whole cart.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	return s.store.Delete(ctx, sessionID)
}

func (s *Service) price(c Cart, mode pricing.VATMode, extraDiscount float64) (View, error) {
	view := View{SessionID: c.SessionID, Items: make([]PricedLine, 0, len(c.Lines))}
	priced := make([]pricing.Priced, 0, len(c.Lines))
	for _, line := range c.Lines {
		p, err := s.engine.PriceLine(pricing.Line{
			Rate:     line.Rate,
			Qty:      line.Qty,
			Discount: line.Discount,
			Mode:     mode,
		})
		if err != nil {
			return View{}, err
		}
		priced = append(priced, p)
		view.Items = append(view.Items, PricedLine{
			Line:       line,
			BaseAmount: p.BaseAmount,
			VAT:        p.VAT,
			Total:      p.Total,
			NetTotal:   p.NetTotal,
		})
	}
	total, err := s.engine.CartTotal(priced, extraDiscount, mode)
	if err != nil {
		return View{}, err
	}
	view.GrandTotal = total
	return view, nil
}

func checkSession(sessionID string) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return ErrInvalidSession
	}
	return nil
}
