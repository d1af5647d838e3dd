package invoices

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/awais2000/Blue-Star/internal/masterdata/customers"
	mdshared "github.com/awais2000/Blue-Star/internal/masterdata/shared"
	"github.com/awais2000/Blue-Star/internal/pricing"
	"github.com/awais2000/Blue-Star/internal/sales/cart"
	"github.com/awais2000/Blue-Star/internal/shared"
)

// CartPort is the slice of the cart service checkout needs.
type CartPort interface {
	Lines(ctx context.Context, sessionID string) ([]cart.Line, error)
	Clear(ctx context.Context, sessionID string) error
}

// CustomersPort resolves the buyer so checkout can freeze a snapshot.
type CustomersPort interface {
	Get(ctx context.Context, id int64) (customers.Customer, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements invoice use cases.
type Service struct {
	repo      RepositoryPort
	carts     CartPort
	customers CustomersPort
	engine    pricing.Engine
	audit     AuditPort
}

// NewService constructs an invoice service.
func NewService(repo RepositoryPort, carts CartPort, customersPort CustomersPort, engine pricing.Engine, audit AuditPort) *Service {
	return &Service{repo: repo, carts: carts, customers: customersPort, engine: engine, audit: audit}
}

// Checkout prices the cart, takes the next invoice number and persists the
// sale in one transaction. The cart is cleared only after the commit, a
// failed checkout leaves it intact.
func (s *Service) Checkout(ctx context.Context, input CheckoutInput) (Invoice, error) {
	mode := input.VATMode
	if mode == "" {
		mode = pricing.VATExclusive
	}

	snapshot, err := s.snapshotCustomer(ctx, input.CustomerID)
	if err != nil {
		return Invoice{}, err
	}

	lines, err := s.carts.Lines(ctx, input.SessionID)
	if err != nil {
		return Invoice{}, err
	}
	if len(lines) == 0 {
		return Invoice{}, ErrEmptyCart
	}

	items := make([]Item, 0, len(lines))
	priced := make([]pricing.Priced, 0, len(lines))
	var subtotal, vatSum float64
	for _, line := range lines {
		p, err := s.engine.PriceLine(pricing.Line{
			Rate:     line.Rate,
			Qty:      line.Qty,
			Discount: line.Discount,
			Mode:     mode,
		})
		if err != nil {
			return Invoice{}, err
		}
		priced = append(priced, p)
		subtotal += p.Total
		vatSum += p.VAT
		items = append(items, Item{
			ProductID: line.ProductID,
			Name:      line.Name,
			Rate:      line.Rate,
			Qty:       line.Qty,
			Discount:  line.Discount,
			VAT:       p.VAT,
			Total:     p.Total,
			NetTotal:  p.NetTotal,
		})
	}
	grandTotal, err := s.engine.CartTotal(priced, input.ExtraDiscount, mode)
	if err != nil {
		return Invoice{}, err
	}

	inv := Invoice{
		CustomerID: input.CustomerID,
		Customer:   snapshot,
		VATMode:    mode,
		Subtotal:   pricing.Round2(subtotal),
		VATAmount:  pricing.Round2(vatSum),
		Discount:   input.ExtraDiscount,
		GrandTotal: grandTotal,
		Items:      items,
		IssuedAt:   time.Now().UTC(),
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		seq, err := tx.NextSequence(ctx)
		if err != nil {
			return err
		}
		inv.Sequence = seq
		inv.Number = NumberPrefix + strconv.FormatInt(seq, 10)

		id, err := tx.InsertInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id
		return tx.InsertItems(ctx, id, items)
	})
	if err != nil {
		return Invoice{}, err
	}

	// The invoice is committed at this point. A failed clear leaves the cart
	// to expire with its TTL rather than losing the sale.
	_ = s.carts.Clear(ctx, input.SessionID)
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "invoice.created",
			Entity:   "invoice",
			EntityID: strconv.FormatInt(inv.ID, 10),
			Meta:     map[string]any{"number": inv.Number, "grand_total": inv.GrandTotal},
		})
	}
	return inv, nil
}

// snapshotCustomer freezes the buyer's identity for the invoice row. A zero
// customer ID is a walk-in sale and gets an empty snapshot.
func (s *Service) snapshotCustomer(ctx context.Context, customerID int64) (CustomerSnapshot, error) {
	if customerID == 0 || s.customers == nil {
		return CustomerSnapshot{}, nil
	}
	c, err := s.customers.Get(ctx, customerID)
	if errors.Is(err, mdshared.ErrNotFound) || errors.Is(err, mdshared.ErrInvalidID) {
		return CustomerSnapshot{}, ErrCustomerNotFound
	}
	if err != nil {
		return CustomerSnapshot{}, err
	}
	return CustomerSnapshot{Name: c.Name, Contact: c.Contact, TRN: c.TRN}, nil
}

// Get fetches one invoice with its items.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// GetByNumber fetches one invoice by its display number.
func (s *Service) GetByNumber(ctx context.Context, number string) (Invoice, error) {
	return s.repo.GetInvoiceByNumber(ctx, number)
}

// List returns invoice headers matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, filter)
}
