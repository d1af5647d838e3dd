package invoices

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/awais2000/Blue-Star/internal/masterdata/customers"
	mdshared "github.com/awais2000/Blue-Star/internal/masterdata/shared"
	"github.com/awais2000/Blue-Star/internal/pricing"
	"github.com/awais2000/Blue-Star/internal/sales/cart"
)

type fakeRepo struct {
	mu       sync.Mutex
	seq      int64
	invoices map[int64]Invoice
	nextID   int64
	failTx   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{invoices: make(map[int64]Invoice)}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTx != nil {
		return f.failTx
	}
	return fn(ctx, &fakeTx{repo: f})
}

func (f *fakeRepo) GetInvoice(_ context.Context, id int64) (Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (f *fakeRepo) GetInvoiceByNumber(_ context.Context, number string) (Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invoices {
		if inv.Number == number {
			return inv, nil
		}
	}
	return Invoice{}, ErrInvoiceNotFound
}

func (f *fakeRepo) ListInvoices(_ context.Context, filter ListFilter) ([]Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Invoice
	for _, inv := range f.invoices {
		if filter.CustomerID > 0 && inv.CustomerID != filter.CustomerID {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence > out[j].Sequence })
	return out, nil
}

type fakeTx struct {
	repo *fakeRepo
}

func (t *fakeTx) NextSequence(context.Context) (int64, error) {
	t.repo.seq++
	return t.repo.seq, nil
}

func (t *fakeTx) InsertInvoice(_ context.Context, inv Invoice) (int64, error) {
	t.repo.nextID++
	inv.ID = t.repo.nextID
	t.repo.invoices[inv.ID] = inv
	return inv.ID, nil
}

func (t *fakeTx) InsertItems(_ context.Context, invoiceID int64, items []Item) error {
	inv := t.repo.invoices[invoiceID]
	inv.Items = items
	t.repo.invoices[invoiceID] = inv
	return nil
}

type fakeCustomers struct {
	mu      sync.Mutex
	records map[int64]customers.Customer
}

func newFakeCustomers() *fakeCustomers {
	return &fakeCustomers{records: make(map[int64]customers.Customer)}
}

func (f *fakeCustomers) put(c customers.Customer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[c.ID] = c
}

func (f *fakeCustomers) Get(_ context.Context, id int64) (customers.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.records[id]
	if !ok {
		return customers.Customer{}, mdshared.ErrNotFound
	}
	return c, nil
}

type fakeCarts struct {
	mu    sync.Mutex
	lines map[string][]cart.Line
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{lines: make(map[string][]cart.Line)}
}

func (f *fakeCarts) put(sessionID string, lines ...cart.Line) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines[sessionID] = lines
}

func (f *fakeCarts) Lines(_ context.Context, sessionID string) ([]cart.Line, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lines[sessionID], nil
}

func (f *fakeCarts) Clear(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.lines, sessionID)
	return nil
}

func TestCheckoutSnapshotsCart(t *testing.T) {
	repo := newFakeRepo()
	carts := newFakeCarts()
	svc := NewService(repo, carts, nil, pricing.NewEngine(0.05), nil)
	ctx := context.Background()

	carts.put("s1",
		cart.Line{ProductID: 1, Name: "Screen", Rate: 100, Qty: 2},
		cart.Line{ProductID: 2, Name: "Battery", Rate: 50, Qty: 1},
	)

	inv, err := svc.Checkout(ctx, CheckoutInput{SessionID: "s1", CustomerID: 7})
	require.NoError(t, err)
	require.Equal(t, "BS-1", inv.Number)
	require.Equal(t, int64(1), inv.Sequence)
	require.Equal(t, 250.0, inv.Subtotal)
	require.Equal(t, 12.5, inv.VATAmount)
	require.Equal(t, 262.5, inv.GrandTotal)
	require.Len(t, inv.Items, 2)

	lines, err := carts.Lines(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestCheckoutFreezesCustomerIdentity(t *testing.T) {
	repo := newFakeRepo()
	carts := newFakeCarts()
	buyers := newFakeCustomers()
	svc := NewService(repo, carts, buyers, pricing.NewEngine(0.05), nil)
	ctx := context.Background()

	buyers.put(customers.Customer{
		ID:      7,
		Name:    "Ahmed Al Mansoori",
		Contact: "+971554000001",
		TRN:     "100234567800003",
	})
	carts.put("s1", cart.Line{ProductID: 1, Name: "Screen", Rate: 100, Qty: 1})

	inv, err := svc.Checkout(ctx, CheckoutInput{SessionID: "s1", CustomerID: 7})
	require.NoError(t, err)
	require.Equal(t, "Ahmed Al Mansoori", inv.Customer.Name)
	require.Equal(t, "+971554000001", inv.Customer.Contact)
	require.Equal(t, "100234567800003", inv.Customer.TRN)

	// Renaming the customer afterwards must not touch the stored invoice.
	buyers.put(customers.Customer{ID: 7, Name: "A. Mansoori Trading"})
	stored, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, "Ahmed Al Mansoori", stored.Customer.Name)

	carts.put("s2", cart.Line{ProductID: 1, Rate: 100, Qty: 1})
	_, err = svc.Checkout(ctx, CheckoutInput{SessionID: "s2", CustomerID: 99})
	require.ErrorIs(t, err, ErrCustomerNotFound)

	carts.put("s3", cart.Line{ProductID: 1, Rate: 100, Qty: 1})
	walkIn, err := svc.Checkout(ctx, CheckoutInput{SessionID: "s3"})
	require.NoError(t, err)
	require.Empty(t, walkIn.Customer.Name)
}

func TestInvoiceLookupByNumber(t *testing.T) {
	repo := newFakeRepo()
	carts := newFakeCarts()
	svc := NewService(repo, carts, nil, pricing.NewEngine(0.05), nil)
	ctx := context.Background()

	carts.put("s1", cart.Line{ProductID: 1, Name: "Screen", Rate: 100, Qty: 1})
	created, err := svc.Checkout(ctx, CheckoutInput{SessionID: "s1"})
	require.NoError(t, err)

	found, err := svc.GetByNumber(ctx, created.Number)
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = svc.GetByNumber(ctx, "BS-999")
	require.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc := NewService(newFakeRepo(), newFakeCarts(), nil, pricing.NewEngine(0.05), nil)

	_, err := svc.Checkout(context.Background(), CheckoutInput{SessionID: "s1"})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutKeepsCartOnFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.failTx = errors.New("db down")
	carts := newFakeCarts()
	svc := NewService(repo, carts, nil, pricing.NewEngine(0.05), nil)
	ctx := context.Background()

	carts.put("s1", cart.Line{ProductID: 1, Rate: 100, Qty: 1})

	_, err := svc.Checkout(ctx, CheckoutInput{SessionID: "s1"})
	require.Error(t, err)

	lines, err := carts.Lines(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
}

func TestCheckoutInclusiveDiscount(t *testing.T) {
	repo := newFakeRepo()
	carts := newFakeCarts()
	svc := NewService(repo, carts, nil, pricing.NewEngine(0.05), nil)

	carts.put("s1", cart.Line{ProductID: 1, Rate: 105, Qty: 1})

	inv, err := svc.Checkout(context.Background(), CheckoutInput{
		SessionID:     "s1",
		VATMode:       pricing.VATInclusive,
		ExtraDiscount: 5,
	})
	require.NoError(t, err)
	require.Equal(t, 100.0, inv.GrandTotal)
	require.Equal(t, 5.25, inv.VATAmount)
}

func TestConcurrentCheckoutsGetContiguousNumbers(t *testing.T) {
	repo := newFakeRepo()
	carts := newFakeCarts()
	svc := NewService(repo, carts, nil, pricing.NewEngine(0.05), nil)

	const n = 20
	sessions := make([]string, n)
	for i := range sessions {
		sessions[i] = "session-" + string(rune('a'+i))
		carts.put(sessions[i], cart.Line{ProductID: int64(i + 1), Rate: 10, Qty: 1})
	}

	var g errgroup.Group
	numbers := make([]int64, n)
	for i := range sessions {
		i := i
		g.Go(func() error {
			inv, err := svc.Checkout(context.Background(), CheckoutInput{SessionID: sessions[i]})
			if err != nil {
				return err
			}
			numbers[i] = inv.Sequence
			return nil
		})
	}
	require.NoError(t, g.Wait())

	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for i, seq := range numbers {
		require.Equal(t, int64(i+1), seq)
	}
}
