package ledger

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	customers map[int64]bool
	loans     map[int64]Loan
	recs      map[int64]Receivable
	nextLoan  int64
	nextRec   int64

	conflicts int
	txCalls   int
	saves     int
}

func newFakeRepo(customers ...int64) *fakeRepo {
	f := &fakeRepo{
		customers: make(map[int64]bool),
		loans:     make(map[int64]Loan),
		recs:      make(map[int64]Receivable),
	}
	for _, c := range customers {
		f.customers[c] = true
	}
	return f
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	f.txCalls++
	if f.conflicts > 0 {
		f.conflicts--
		return ErrTxConflict
	}
	return fn(ctx, &fakeTx{repo: f})
}

func (f *fakeRepo) CustomerExists(_ context.Context, id int64) (bool, error) {
	return f.customers[id], nil
}

func (f *fakeRepo) GetLoan(_ context.Context, id int64) (Loan, error) {
	l, ok := f.loans[id]
	if !ok || !l.Active {
		return Loan{}, ErrLoanNotFound
	}
	return l, nil
}

func (f *fakeRepo) GetReceivable(_ context.Context, id int64) (Receivable, error) {
	r, ok := f.recs[id]
	if !ok || !r.Active {
		return Receivable{}, ErrReceivableNotFound
	}
	return r, nil
}

func (f *fakeRepo) ListActiveLoans(_ context.Context, customerID int64) ([]Loan, error) {
	var out []Loan
	for _, l := range f.loans {
		if l.CustomerID == customerID && l.Active {
			out = append(out, l)
		}
	}
	sortLoans(out)
	return out, nil
}

func (f *fakeRepo) ListActiveReceivables(_ context.Context, customerID int64) ([]Receivable, error) {
	var out []Receivable
	for _, r := range f.recs {
		if r.CustomerID == customerID && r.Active {
			out = append(out, r)
		}
	}
	sortRecs(out)
	return out, nil
}

type fakeTx struct {
	repo *fakeRepo
}

func (t *fakeTx) LockLoans(_ context.Context, customerID int64) ([]Loan, error) {
	var out []Loan
	for _, l := range t.repo.loans {
		if l.CustomerID == customerID {
			out = append(out, l)
		}
	}
	sortLoans(out)
	return out, nil
}

func (t *fakeTx) LockReceivables(_ context.Context, customerID int64) ([]Receivable, error) {
	var out []Receivable
	for _, r := range t.repo.recs {
		if r.CustomerID == customerID && r.Active {
			out = append(out, r)
		}
	}
	sortRecs(out)
	return out, nil
}

func (t *fakeTx) InsertLoan(_ context.Context, loan Loan) (int64, error) {
	t.repo.nextLoan++
	loan.ID = t.repo.nextLoan
	t.repo.loans[loan.ID] = loan
	return loan.ID, nil
}

func (t *fakeTx) SaveLoan(_ context.Context, loan Loan) error {
	if _, ok := t.repo.loans[loan.ID]; !ok {
		return ErrLoanNotFound
	}
	t.repo.loans[loan.ID] = loan
	t.repo.saves++
	return nil
}

func (t *fakeTx) InsertReceivable(_ context.Context, rec Receivable) (int64, error) {
	t.repo.nextRec++
	rec.ID = t.repo.nextRec
	t.repo.recs[rec.ID] = rec
	return rec.ID, nil
}

func (t *fakeTx) SaveReceivable(_ context.Context, rec Receivable) error {
	if _, ok := t.repo.recs[rec.ID]; !ok {
		return ErrReceivableNotFound
	}
	t.repo.recs[rec.ID] = rec
	return nil
}

func sortLoans(loans []Loan) {
	sort.SliceStable(loans, func(i, j int) bool {
		if !loans[i].Date.Equal(loans[j].Date) {
			return loans[i].Date.Before(loans[j].Date)
		}
		return loans[i].ID < loans[j].ID
	})
}

func sortRecs(recs []Receivable) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].Date.Equal(recs[j].Date) {
			return recs[i].Date.Before(recs[j].Date)
		}
		return recs[i].ID < recs[j].ID
	})
}

func day(n int) time.Time {
	return time.Date(2026, time.March, n, 0, 0, 0, 0, time.UTC)
}

func TestAddLoanExtendsCumulativeChain(t *testing.T) {
	repo := newFakeRepo(1)
	svc := NewService(repo, nil)
	ctx := context.Background()

	l1, err := svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 150, Qty: 1, Date: day(1)})
	require.NoError(t, err)
	require.Equal(t, 150.0, l1.Price)
	require.Equal(t, 150.0, l1.Total)

	l2, err := svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 10, Qty: 2, Date: day(2)})
	require.NoError(t, err)
	require.Equal(t, 20.0, l2.Price)
	require.Equal(t, 170.0, l2.Total)
	require.Equal(t, 170.0, l2.TotalBalance)
	require.Equal(t, 170.0, l2.RemainingCash)
}

func TestAddLoanUnknownCustomer(t *testing.T) {
	repo := newFakeRepo(1)
	svc := NewService(repo, nil)

	_, err := svc.AddLoan(context.Background(), AddLoanInput{CustomerID: 9, Rate: 10, Qty: 1})
	require.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestAddLoanRejectsNonPositiveAmounts(t *testing.T) {
	repo := newFakeRepo(1)
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 0, Qty: 1})
	require.ErrorIs(t, err, ErrInvalidNumeric)
	_, err = svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 10, Qty: -1})
	require.ErrorIs(t, err, ErrInvalidNumeric)
}

func TestAddReceivableAllocatesOldestFirst(t *testing.T) {
	repo := newFakeRepo(1)
	svc := NewService(repo, nil)
	ctx := context.Background()

	l1, err := svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 100, Qty: 1, Date: day(1)})
	require.NoError(t, err)
	l2, err := svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 50, Qty: 1, Date: day(2)})
	require.NoError(t, err)

	result, err := svc.AddReceivable(ctx, AddReceivableInput{CustomerID: 1, PaidCash: 120, Date: day(3)})
	require.NoError(t, err)

	require.Equal(t, 150.0, result.Receivable.TotalBalance)
	require.Equal(t, 120.0, result.Receivable.PaidCash)
	require.Equal(t, 30.0, result.Receivable.RemainingCash)

	require.Len(t, result.Allocations, 2)
	require.Equal(t, Allocation{LoanID: l1.ID, Applied: 100, Closed: true}, result.Allocations[0])
	require.Equal(t, Allocation{LoanID: l2.ID, Applied: 20, Closed: false}, result.Allocations[1])

	require.False(t, repo.loans[l1.ID].Active)
	require.Equal(t, 100.0, repo.loans[l1.ID].Receivable)
	require.True(t, repo.loans[l2.ID].Active)
	require.Equal(t, 20.0, repo.loans[l2.ID].Receivable)

	require.Equal(t, 30.0, result.Balance.RemainingCash)
}

func TestAddReceivableNoActiveLoans(t *testing.T) {
	repo := newFakeRepo(1)
	svc := NewService(repo, nil)

	_, err := svc.AddReceivable(context.Background(), AddReceivableInput{CustomerID: 1, PaidCash: 10})
	require.ErrorIs(t, err, ErrNoActiveLoans)
}

func TestAddReceivableOverpaymentCapsAtZero(t *testing.T) {
	repo := newFakeRepo(1)
	svc := NewService(repo, nil)
	ctx := context.Background()

	loan, err := svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 50, Qty: 1, Date: day(1)})
	require.NoError(t, err)

	result, err := svc.AddReceivable(ctx, AddReceivableInput{CustomerID: 1, PaidCash: 80, Date: day(2)})
	require.NoError(t, err)
	require.Equal(t, 0.0, result.Receivable.RemainingCash)
	require.False(t, repo.loans[loan.ID].Active)
	require.Equal(t, 50.0, repo.loans[loan.ID].Receivable)
}

func TestPaymentsSettleLedgerAcrossEvents(t *testing.T) {
	repo := newFakeRepo(1)
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 150, Qty: 1, Date: day(1)})
	require.NoError(t, err)
	_, err = svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 20, Qty: 1, Date: day(2)})
	require.NoError(t, err)

	first, err := svc.AddReceivable(ctx, AddReceivableInput{CustomerID: 1, PaidCash: 100, Date: day(3)})
	require.NoError(t, err)
	require.Equal(t, 170.0, first.Receivable.TotalBalance)
	require.Equal(t, 70.0, first.Receivable.RemainingCash)

	second, err := svc.AddReceivable(ctx, AddReceivableInput{CustomerID: 1, PaidCash: 70, Date: day(4)})
	require.NoError(t, err)
	require.Equal(t, 170.0, second.Receivable.TotalBalance)
	require.Equal(t, 0.0, second.Receivable.RemainingCash)

	stmt, err := svc.LoansByCustomer(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, stmt.Loans)
	require.Equal(t, 0.0, stmt.Balance.RemainingCash)
}

func TestUpdateLoanReplaysChain(t *testing.T) {
	repo := newFakeRepo(1)
	svc := NewService(repo, nil)
	ctx := context.Background()

	l1, err := svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 150, Qty: 1, Date: day(1)})
	require.NoError(t, err)
	l2, err := svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 20, Qty: 1, Date: day(2)})
	require.NoError(t, err)

	rate := 100.0
	updated, err := svc.UpdateLoan(ctx, l1.ID, UpdateLoanInput{Rate: &rate})
	require.NoError(t, err)
	require.Equal(t, 100.0, updated.Price)
	require.Equal(t, 100.0, updated.Total)

	require.Equal(t, 120.0, repo.loans[l2.ID].Total)
	require.Equal(t, 120.0, repo.loans[l2.ID].TotalBalance)
}

func TestUpdateLoanMovesBetweenCustomers(t *testing.T) {
	repo := newFakeRepo(1, 2)
	svc := NewService(repo, nil)
	ctx := context.Background()

	l1, err := svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 100, Qty: 1, Date: day(1)})
	require.NoError(t, err)
	l2, err := svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 50, Qty: 1, Date: day(2)})
	require.NoError(t, err)

	target := int64(2)
	moved, err := svc.UpdateLoan(ctx, l1.ID, UpdateLoanInput{CustomerID: &target})
	require.NoError(t, err)
	require.Equal(t, int64(2), moved.CustomerID)
	require.Equal(t, 100.0, moved.Total)

	require.Equal(t, 50.0, repo.loans[l2.ID].Total)

	stmt, err := svc.LoansByCustomer(ctx, 2)
	require.NoError(t, err)
	require.Len(t, stmt.Loans, 1)
	require.Equal(t, 100.0, stmt.Balance.TotalBalance)
}

func TestDeleteLoanReplaysRemainingChain(t *testing.T) {
	repo := newFakeRepo(1)
	svc := NewService(repo, nil)
	ctx := context.Background()

	l1, err := svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 150, Qty: 1, Date: day(1)})
	require.NoError(t, err)
	l2, err := svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 20, Qty: 1, Date: day(2)})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLoan(ctx, l1.ID))

	require.False(t, repo.loans[l1.ID].Active)
	require.Equal(t, 20.0, repo.loans[l2.ID].Total)
	require.Equal(t, 20.0, repo.loans[l2.ID].TotalBalance)

	_, err = svc.UpdateLoan(ctx, l1.ID, UpdateLoanInput{})
	require.ErrorIs(t, err, ErrLoanNotFound)
}

func TestUpdateReceivableReplaysHistory(t *testing.T) {
	repo := newFakeRepo(1)
	svc := NewService(repo, nil)
	ctx := context.Background()

	l1, err := svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 100, Qty: 1, Date: day(1)})
	require.NoError(t, err)
	l2, err := svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 50, Qty: 1, Date: day(2)})
	require.NoError(t, err)

	result, err := svc.AddReceivable(ctx, AddReceivableInput{CustomerID: 1, PaidCash: 150, Date: day(3)})
	require.NoError(t, err)
	require.False(t, repo.loans[l1.ID].Active)
	require.False(t, repo.loans[l2.ID].Active)

	smaller := 60.0
	updated, err := svc.UpdateReceivable(ctx, result.Receivable.ID, UpdateReceivableInput{PaidCash: &smaller})
	require.NoError(t, err)
	require.Equal(t, 60.0, updated.PaidCash)
	require.Equal(t, 150.0, updated.TotalBalance)
	require.Equal(t, 90.0, updated.RemainingCash)

	require.True(t, repo.loans[l1.ID].Active)
	require.Equal(t, 60.0, repo.loans[l1.ID].Receivable)
	require.True(t, repo.loans[l2.ID].Active)
	require.Equal(t, 0.0, repo.loans[l2.ID].Receivable)
}

func TestDeleteReceivableReopensLoans(t *testing.T) {
	repo := newFakeRepo(1)
	svc := NewService(repo, nil)
	ctx := context.Background()

	loan, err := svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 100, Qty: 1, Date: day(1)})
	require.NoError(t, err)

	result, err := svc.AddReceivable(ctx, AddReceivableInput{CustomerID: 1, PaidCash: 100, Date: day(2)})
	require.NoError(t, err)
	require.False(t, repo.loans[loan.ID].Active)

	require.NoError(t, svc.DeleteReceivable(ctx, result.Receivable.ID))

	require.True(t, repo.loans[loan.ID].Active)
	require.Equal(t, 0.0, repo.loans[loan.ID].Receivable)
	require.False(t, repo.recs[result.Receivable.ID].Active)
}

func TestSoftDeletedLoansStayOutOfReplay(t *testing.T) {
	repo := newFakeRepo(1)
	svc := NewService(repo, nil)
	ctx := context.Background()

	l1, err := svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 100, Qty: 1, Date: day(1)})
	require.NoError(t, err)
	l2, err := svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 50, Qty: 1, Date: day(2)})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteLoan(ctx, l1.ID))

	result, err := svc.AddReceivable(ctx, AddReceivableInput{CustomerID: 1, PaidCash: 30, Date: day(3)})
	require.NoError(t, err)
	require.Equal(t, 50.0, result.Receivable.TotalBalance)

	bigger := 40.0
	updated, err := svc.UpdateReceivable(ctx, result.Receivable.ID, UpdateReceivableInput{PaidCash: &bigger})
	require.NoError(t, err)
	require.Equal(t, 50.0, updated.TotalBalance)
	require.Equal(t, 10.0, updated.RemainingCash)

	require.False(t, repo.loans[l1.ID].Active)
	require.Equal(t, 0.0, repo.loans[l1.ID].Receivable)
	require.Equal(t, 40.0, repo.loans[l2.ID].Receivable)
}

func TestLoansByCustomerIsReadOnly(t *testing.T) {
	repo := newFakeRepo(1)
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.AddLoan(ctx, AddLoanInput{CustomerID: 1, Rate: 100, Qty: 1, Date: day(1)})
	require.NoError(t, err)

	before := repo.saves
	first, err := svc.LoansByCustomer(ctx, 1)
	require.NoError(t, err)
	second, err := svc.LoansByCustomer(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, before, repo.saves)
}

func TestWithRetryRecoversFromConflicts(t *testing.T) {
	repo := newFakeRepo(1)
	repo.conflicts = 2
	svc := NewService(repo, nil)

	loan, err := svc.AddLoan(context.Background(), AddLoanInput{CustomerID: 1, Rate: 10, Qty: 1, Date: day(1)})
	require.NoError(t, err)
	require.Equal(t, 10.0, loan.Price)
	require.Equal(t, 3, repo.txCalls)
}

func TestWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	repo := newFakeRepo(1)
	repo.conflicts = 5
	svc := NewService(repo, nil)

	_, err := svc.AddLoan(context.Background(), AddLoanInput{CustomerID: 1, Rate: 10, Qty: 1, Date: day(1)})
	require.ErrorIs(t, err, ErrTxConflict)
	require.Equal(t, 3, repo.txCalls)
}
