package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/awais2000/Blue-Star/internal/pricing"
	"github.com/awais2000/Blue-Star/internal/shared"
)

// RepositoryPort abstracts ledger persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	CustomerExists(ctx context.Context, customerID int64) (bool, error)
	GetLoan(ctx context.Context, id int64) (Loan, error)
	GetReceivable(ctx context.Context, id int64) (Receivable, error)
	ListActiveLoans(ctx context.Context, customerID int64) ([]Loan, error)
	ListActiveReceivables(ctx context.Context, customerID int64) ([]Receivable, error)
}

// TxRepository exposes the write operations available inside a transaction.
// LockLoans and LockReceivables take row locks so concurrent payments against
// the same customer serialize.
type TxRepository interface {
	LockLoans(ctx context.Context, customerID int64) ([]Loan, error)
	LockReceivables(ctx context.Context, customerID int64) ([]Receivable, error)
	InsertLoan(ctx context.Context, loan Loan) (int64, error)
	SaveLoan(ctx context.Context, loan Loan) error
	InsertReceivable(ctx context.Context, rec Receivable) (int64, error)
	SaveReceivable(ctx context.Context, rec Receivable) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// maxTxAttempts bounds retries after serialization failures.
const maxTxAttempts = 3

// Service implements ledger use cases.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService returns a ledger service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// AddLoan appends a credit sale to the customer's ledger. The loan total
// extends the cumulative chain of the customer's active loans.
func (s *Service) AddLoan(ctx context.Context, input AddLoanInput) (Loan, error) {
	if input.CustomerID <= 0 {
		return Loan{}, fmt.Errorf("%w: customer id required", ErrInvalidNumeric)
	}
	if input.Rate <= 0 || input.Qty <= 0 {
		return Loan{}, fmt.Errorf("%w: rate and qty must be positive", ErrInvalidNumeric)
	}
	ok, err := s.repo.CustomerExists(ctx, input.CustomerID)
	if err != nil {
		return Loan{}, err
	}
	if !ok {
		return Loan{}, ErrCustomerNotFound
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	var created Loan
	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			loans, err := tx.LockLoans(ctx, input.CustomerID)
			if err != nil {
				return err
			}
			active := activeLoans(loans)

			price := pricing.Round2(input.Rate * input.Qty)
			var prev float64
			if len(active) > 0 {
				prev = active[len(active)-1].Total
			}
			loan := Loan{
				CustomerID:  input.CustomerID,
				ProductID:   input.ProductID,
				ProductName: input.ProductName,
				Rate:        input.Rate,
				Qty:         input.Qty,
				Price:       price,
				Total:       pricing.Round2(prev + price),
				Date:        date,
				Active:      true,
			}
			id, err := tx.InsertLoan(ctx, loan)
			if err != nil {
				return err
			}
			loan.ID = id

			active = append(active, loan)
			bal := computeBalance(active)
			if err := writeBackBalances(ctx, tx, active, bal); err != nil {
				return err
			}
			loan.TotalBalance = bal.TotalBalance
			loan.RemainingCash = bal.RemainingCash
			created = loan
			return nil
		})
	})
	if err != nil {
		return Loan{}, err
	}
	s.record(ctx, "loan.created", "loan", created.ID, map[string]any{
		"customer_id": created.CustomerID,
		"price":       created.Price,
	})
	return created, nil
}

// UpdateLoan edits a loan and replays the cumulative chain of every customer
// the change touches. Moving a loan between customers locks both ledgers in
// ascending customer id order.
func (s *Service) UpdateLoan(ctx context.Context, id int64, input UpdateLoanInput) (Loan, error) {
	current, err := s.repo.GetLoan(ctx, id)
	if err != nil {
		return Loan{}, err
	}
	if input.Rate != nil && *input.Rate <= 0 {
		return Loan{}, fmt.Errorf("%w: rate must be positive", ErrInvalidNumeric)
	}
	if input.Qty != nil && *input.Qty <= 0 {
		return Loan{}, fmt.Errorf("%w: qty must be positive", ErrInvalidNumeric)
	}
	targetCustomer := current.CustomerID
	if input.CustomerID != nil && *input.CustomerID != current.CustomerID {
		ok, err := s.repo.CustomerExists(ctx, *input.CustomerID)
		if err != nil {
			return Loan{}, err
		}
		if !ok {
			return Loan{}, ErrCustomerNotFound
		}
		targetCustomer = *input.CustomerID
	}

	customers := []int64{current.CustomerID}
	if targetCustomer != current.CustomerID {
		customers = append(customers, targetCustomer)
		sort.Slice(customers, func(i, j int) bool { return customers[i] < customers[j] })
	}

	var updated Loan
	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			byCustomer := make(map[int64][]Loan, len(customers))
			for _, c := range customers {
				loans, err := tx.LockLoans(ctx, c)
				if err != nil {
					return err
				}
				byCustomer[c] = loans
			}

			loan, ok := takeLoan(byCustomer, current.CustomerID, id)
			if !ok {
				return ErrLoanNotFound
			}
			applyLoanInput(&loan, input, targetCustomer)
			byCustomer[targetCustomer] = insertByDate(byCustomer[targetCustomer], loan)

			for _, c := range customers {
				if err := replayAndSave(ctx, tx, byCustomer[c]); err != nil {
					return err
				}
			}
			for _, l := range byCustomer[targetCustomer] {
				if l.ID == id {
					updated = l
				}
			}
			return nil
		})
	})
	if err != nil {
		return Loan{}, err
	}
	s.record(ctx, "loan.updated", "loan", id, map[string]any{"customer_id": updated.CustomerID})
	return updated, nil
}

// DeleteLoan soft deletes a loan and replays the remaining chain.
func (s *Service) DeleteLoan(ctx context.Context, id int64) error {
	current, err := s.repo.GetLoan(ctx, id)
	if err != nil {
		return err
	}
	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			loans, err := tx.LockLoans(ctx, current.CustomerID)
			if err != nil {
				return err
			}
			found := false
			for i := range loans {
				if loans[i].ID == id {
					loans[i].Active = false
					if err := tx.SaveLoan(ctx, loans[i]); err != nil {
						return err
					}
					found = true
					break
				}
			}
			if !found {
				return ErrLoanNotFound
			}
			return replayAndSave(ctx, tx, loans)
		})
	})
	if err != nil {
		return err
	}
	s.record(ctx, "loan.deleted", "loan", id, nil)
	return nil
}

// LoansByCustomer returns the customer's active loans with the current
// balance. It is a pure read and never mutates ledger state.
func (s *Service) LoansByCustomer(ctx context.Context, customerID int64) (Statement, error) {
	ok, err := s.repo.CustomerExists(ctx, customerID)
	if err != nil {
		return Statement{}, err
	}
	if !ok {
		return Statement{}, ErrCustomerNotFound
	}
	loans, err := s.repo.ListActiveLoans(ctx, customerID)
	if err != nil {
		return Statement{}, err
	}
	return Statement{Loans: loans, Balance: computeBalance(loans)}, nil
}

// AddReceivable records a payment and allocates it FIFO across the
// customer's open loans, oldest first. Fully repaid loans are closed.
func (s *Service) AddReceivable(ctx context.Context, input AddReceivableInput) (PaymentResult, error) {
	if input.CustomerID <= 0 {
		return PaymentResult{}, fmt.Errorf("%w: customer id required", ErrInvalidNumeric)
	}
	if input.PaidCash <= 0 {
		return PaymentResult{}, fmt.Errorf("%w: paid cash must be positive", ErrInvalidNumeric)
	}
	ok, err := s.repo.CustomerExists(ctx, input.CustomerID)
	if err != nil {
		return PaymentResult{}, err
	}
	if !ok {
		return PaymentResult{}, ErrCustomerNotFound
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	var result PaymentResult
	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			loans, err := tx.LockLoans(ctx, input.CustomerID)
			if err != nil {
				return err
			}
			history, err := tx.LockReceivables(ctx, input.CustomerID)
			if err != nil {
				return err
			}
			open := activeLoans(loans)
			if len(open) == 0 {
				return ErrNoActiveLoans
			}

			preBalance := sumPrices(open)
			paidToDate := input.PaidCash
			for _, r := range history {
				paidToDate += r.PaidCash
			}

			allocations := make([]Allocation, 0, len(open))
			left := input.PaidCash
			for i := range open {
				if left <= 0 {
					break
				}
				applied := open[i].Outstanding()
				if applied > left {
					applied = left
				}
				if applied <= 0 {
					continue
				}
				open[i].Receivable = pricing.Round2(open[i].Receivable + applied)
				left = pricing.Round2(left - applied)
				closed := open[i].Settled()
				if closed {
					open[i].Active = false
				}
				allocations = append(allocations, Allocation{LoanID: open[i].ID, Applied: applied, Closed: closed})
			}

			rec := Receivable{
				CustomerID:    input.CustomerID,
				Date:          date,
				TotalBalance:  preBalance,
				PaidCash:      input.PaidCash,
				RemainingCash: remaining(preBalance, paidToDate),
				Active:        true,
			}
			recID, err := tx.InsertReceivable(ctx, rec)
			if err != nil {
				return err
			}
			rec.ID = recID

			stillOpen := activeLoans(open)
			bal := computeBalance(stillOpen)
			for i := range open {
				open[i].TotalBalance = bal.TotalBalance
				open[i].RemainingCash = bal.RemainingCash
				if err := tx.SaveLoan(ctx, open[i]); err != nil {
					return err
				}
			}
			result = PaymentResult{Receivable: rec, Allocations: allocations, Balance: bal}
			return nil
		})
	})
	if err != nil {
		return PaymentResult{}, err
	}
	s.record(ctx, "receivable.created", "receivable", result.Receivable.ID, map[string]any{
		"customer_id": input.CustomerID,
		"paid_cash":   input.PaidCash,
	})
	return result, nil
}

// UpdateReceivable edits a payment and replays the customer's full payment
// history against the loans, reopening loans a smaller payment no longer
// covers.
func (s *Service) UpdateReceivable(ctx context.Context, id int64, input UpdateReceivableInput) (Receivable, error) {
	current, err := s.repo.GetReceivable(ctx, id)
	if err != nil {
		return Receivable{}, err
	}
	if input.PaidCash != nil && *input.PaidCash <= 0 {
		return Receivable{}, fmt.Errorf("%w: paid cash must be positive", ErrInvalidNumeric)
	}

	var updated Receivable
	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			var err error
			updated, err = s.replayHistory(ctx, tx, current.CustomerID, func(recs []Receivable) ([]Receivable, Receivable, error) {
				for i := range recs {
					if recs[i].ID != id {
						continue
					}
					if input.Date != nil {
						recs[i].Date = *input.Date
					}
					if input.PaidCash != nil {
						recs[i].PaidCash = *input.PaidCash
					}
					return recs, recs[i], nil
				}
				return nil, Receivable{}, ErrReceivableNotFound
			})
			return err
		})
	})
	if err != nil {
		return Receivable{}, err
	}
	s.record(ctx, "receivable.updated", "receivable", id, map[string]any{"customer_id": current.CustomerID})
	return updated, nil
}

// DeleteReceivable soft deletes a payment and replays the remaining history.
func (s *Service) DeleteReceivable(ctx context.Context, id int64) error {
	current, err := s.repo.GetReceivable(ctx, id)
	if err != nil {
		return err
	}
	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			_, err := s.replayHistory(ctx, tx, current.CustomerID, func(recs []Receivable) ([]Receivable, Receivable, error) {
				for i := range recs {
					if recs[i].ID == id {
						recs[i].Active = false
						return recs, recs[i], nil
					}
				}
				return nil, Receivable{}, ErrReceivableNotFound
			})
			return err
		})
	})
	if err != nil {
		return err
	}
	s.record(ctx, "receivable.deleted", "receivable", id, nil)
	return nil
}

// ReceivablesByCustomer lists the customer's active payments, oldest first.
func (s *Service) ReceivablesByCustomer(ctx context.Context, customerID int64) ([]Receivable, error) {
	ok, err := s.repo.CustomerExists(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return s.repo.ListActiveReceivables(ctx, customerID)
}

// ReceivableByID fetches one payment record.
func (s *Service) ReceivableByID(ctx context.Context, id int64) (Receivable, error) {
	return s.repo.GetReceivable(ctx, id)
}

// replayHistory applies mutate to the customer's locked payment history, then
// re-runs every active payment FIFO over the replayable loans. Loans closed by
// a payment reopen first; soft deleted loans stay out of the replay.
func (s *Service) replayHistory(ctx context.Context, tx TxRepository, customerID int64, mutate func([]Receivable) ([]Receivable, Receivable, error)) (Receivable, error) {
	loans, err := tx.LockLoans(ctx, customerID)
	if err != nil {
		return Receivable{}, err
	}
	recs, err := tx.LockReceivables(ctx, customerID)
	if err != nil {
		return Receivable{}, err
	}
	recs, target, err := mutate(recs)
	if err != nil {
		return Receivable{}, err
	}

	replayable := make([]Loan, 0, len(loans))
	for _, l := range loans {
		if l.Active || l.Settled() {
			replayable = append(replayable, l)
		}
	}
	sort.SliceStable(replayable, func(i, j int) bool {
		if !replayable[i].Date.Equal(replayable[j].Date) {
			return replayable[i].Date.Before(replayable[j].Date)
		}
		return replayable[i].ID < replayable[j].ID
	})
	for i := range replayable {
		replayable[i].Receivable = 0
		replayable[i].Active = true
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].Date.Equal(recs[j].Date) {
			return recs[i].Date.Before(recs[j].Date)
		}
		return recs[i].ID < recs[j].ID
	})

	var paidToDate float64
	for ri := range recs {
		if !recs[ri].Active {
			continue
		}
		pre := sumPrices(activeLoans(replayable))
		left := recs[ri].PaidCash
		for li := range replayable {
			if left <= 0 {
				break
			}
			if !replayable[li].Active {
				continue
			}
			applied := replayable[li].Outstanding()
			if applied > left {
				applied = left
			}
			if applied <= 0 {
				continue
			}
			replayable[li].Receivable = pricing.Round2(replayable[li].Receivable + applied)
			left = pricing.Round2(left - applied)
			if replayable[li].Settled() {
				replayable[li].Active = false
			}
		}
		paidToDate += recs[ri].PaidCash
		recs[ri].TotalBalance = pre
		recs[ri].RemainingCash = remaining(pre, paidToDate)
		if recs[ri].ID == target.ID {
			target = recs[ri]
		}
	}

	bal := computeBalance(activeLoans(replayable))
	for i := range replayable {
		replayable[i].TotalBalance = bal.TotalBalance
		replayable[i].RemainingCash = bal.RemainingCash
	}
	if err := replayChainAndSave(ctx, tx, replayable); err != nil {
		return Receivable{}, err
	}
	for _, r := range recs {
		if err := tx.SaveReceivable(ctx, r); err != nil {
			return Receivable{}, err
		}
	}
	return target, nil
}

// withRetry re-runs fn after transaction conflicts, up to maxTxAttempts.
func (s *Service) withRetry(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil || !errors.Is(err, ErrTxConflict) {
			return err
		}
	}
	return err
}

func (s *Service) record(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}

// activeLoans filters to active entries preserving order.
func activeLoans(loans []Loan) []Loan {
	out := make([]Loan, 0, len(loans))
	for _, l := range loans {
		if l.Active {
			out = append(out, l)
		}
	}
	return out
}

func sumPrices(loans []Loan) float64 {
	var sum float64
	for _, l := range loans {
		sum += l.Price
	}
	return pricing.Round2(sum)
}

func remaining(totalBalance, paid float64) float64 {
	if rem := pricing.Round2(totalBalance - paid); rem > 0 {
		return rem
	}
	return 0
}

// computeBalance aggregates the position over the given active loans.
func computeBalance(active []Loan) Balance {
	var tb, tp float64
	for _, l := range active {
		tb += l.Price
		tp += l.Receivable
	}
	return Balance{
		TotalBalance:  pricing.Round2(tb),
		TotalPaid:     pricing.Round2(tp),
		RemainingCash: remaining(pricing.Round2(tb), pricing.Round2(tp)),
	}
}

// replayAndSave rebuilds the cumulative totals over the active loans in date
// order and persists every row together with the refreshed balance snapshot.
func replayAndSave(ctx context.Context, tx TxRepository, loans []Loan) error {
	bal := computeBalance(activeLoans(loans))
	for i := range loans {
		loans[i].TotalBalance = bal.TotalBalance
		loans[i].RemainingCash = bal.RemainingCash
	}
	return replayChainAndSave(ctx, tx, loans)
}

func replayChainAndSave(ctx context.Context, tx TxRepository, loans []Loan) error {
	sort.SliceStable(loans, func(i, j int) bool {
		if !loans[i].Date.Equal(loans[j].Date) {
			return loans[i].Date.Before(loans[j].Date)
		}
		return loans[i].ID < loans[j].ID
	})
	var running float64
	for i := range loans {
		if !loans[i].Active {
			if err := tx.SaveLoan(ctx, loans[i]); err != nil {
				return err
			}
			continue
		}
		running = pricing.Round2(running + loans[i].Price)
		loans[i].Total = running
		if err := tx.SaveLoan(ctx, loans[i]); err != nil {
			return err
		}
	}
	return nil
}

func writeBackBalances(ctx context.Context, tx TxRepository, active []Loan, bal Balance) error {
	for i := range active {
		active[i].TotalBalance = bal.TotalBalance
		active[i].RemainingCash = bal.RemainingCash
		if err := tx.SaveLoan(ctx, active[i]); err != nil {
			return err
		}
	}
	return nil
}

func takeLoan(byCustomer map[int64][]Loan, customerID, id int64) (Loan, bool) {
	loans := byCustomer[customerID]
	for i, l := range loans {
		if l.ID == id {
			byCustomer[customerID] = append(loans[:i:i], loans[i+1:]...)
			return l, true
		}
	}
	return Loan{}, false
}

func applyLoanInput(loan *Loan, input UpdateLoanInput, customerID int64) {
	loan.CustomerID = customerID
	if input.ProductID != nil {
		loan.ProductID = *input.ProductID
	}
	if input.ProductName != nil {
		loan.ProductName = *input.ProductName
	}
	if input.Rate != nil {
		loan.Rate = *input.Rate
	}
	if input.Qty != nil {
		loan.Qty = *input.Qty
	}
	if input.Date != nil {
		loan.Date = *input.Date
	}
	loan.Price = pricing.Round2(loan.Rate * loan.Qty)
}

func insertByDate(loans []Loan, loan Loan) []Loan {
	loans = append(loans, loan)
	sort.SliceStable(loans, func(i, j int) bool {
		if !loans[i].Date.Equal(loans[j].Date) {
			return loans[i].Date.Before(loans[j].Date)
		}
		return loans[i].ID < loans[j].ID
	})
	return loans
}
