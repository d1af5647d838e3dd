package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/awais2000/Blue-Star/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for the ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const loanColumns = `id, customer_id, product_id, product_name, rate, qty, price, total,
	receivable, total_balance, remaining_cash, loan_date, active, created_at, updated_at`

const receivableColumns = `id, customer_id, paid_date, total_balance, paid_cash,
	remaining_cash, active, created_at`

// WithTx executes the callback inside a repeatable-read transaction.
// Serialization failures surface as ErrTxConflict so the service can retry.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
	if db.IsSerializationFailure(err) {
		return ErrTxConflict
	}
	return err
}

// CustomerExists reports whether an active customer row exists.
func (r *Repository) CustomerExists(ctx context.Context, customerID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1 AND active)`, customerID).Scan(&exists)
	return exists, err
}

// GetLoan fetches one loan row.
func (r *Repository) GetLoan(ctx context.Context, id int64) (Loan, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1 AND active`, id)
	loan, err := scanLoan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Loan{}, ErrLoanNotFound
	}
	return loan, err
}

// GetReceivable fetches one payment row.
func (r *Repository) GetReceivable(ctx context.Context, id int64) (Receivable, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+receivableColumns+` FROM receivables WHERE id = $1 AND active`, id)
	rec, err := scanReceivable(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Receivable{}, ErrReceivableNotFound
	}
	return rec, err
}

// ListActiveLoans returns the customer's active loans, oldest first.
func (r *Repository) ListActiveLoans(ctx context.Context, customerID int64) ([]Loan, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+loanColumns+` FROM loans
		 WHERE customer_id = $1 AND active
		 ORDER BY loan_date ASC, id ASC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoans(rows)
}

// ListActiveReceivables returns the customer's active payments, oldest first.
func (r *Repository) ListActiveReceivables(ctx context.Context, customerID int64) ([]Receivable, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+receivableColumns+` FROM receivables
		 WHERE customer_id = $1 AND active
		 ORDER BY paid_date ASC, id ASC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReceivables(rows)
}

type txRepo struct {
	tx pgx.Tx
}

// LockLoans loads every loan of the customer under FOR UPDATE, oldest first.
func (r *txRepo) LockLoans(ctx context.Context, customerID int64) ([]Loan, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT `+loanColumns+` FROM loans
		 WHERE customer_id = $1
		 ORDER BY loan_date ASC, id ASC
		 FOR UPDATE`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoans(rows)
}

// LockReceivables loads the customer's payment history under FOR UPDATE.
func (r *txRepo) LockReceivables(ctx context.Context, customerID int64) ([]Receivable, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT `+receivableColumns+` FROM receivables
		 WHERE customer_id = $1 AND active
		 ORDER BY paid_date ASC, id ASC
		 FOR UPDATE`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReceivables(rows)
}

func (r *txRepo) InsertLoan(ctx context.Context, loan Loan) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO loans (customer_id, product_id, product_name, rate, qty, price, total,
			receivable, total_balance, remaining_cash, loan_date, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		 RETURNING id`,
		loan.CustomerID, loan.ProductID, loan.ProductName, loan.Rate, loan.Qty, loan.Price,
		loan.Total, loan.Receivable, loan.TotalBalance, loan.RemainingCash, loan.Date, loan.Active,
	).Scan(&id)
	return id, err
}

func (r *txRepo) SaveLoan(ctx context.Context, loan Loan) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE loans SET customer_id = $2, product_id = $3, product_name = $4, rate = $5,
			qty = $6, price = $7, total = $8, receivable = $9, total_balance = $10,
			remaining_cash = $11, loan_date = $12, active = $13, updated_at = NOW()
		 WHERE id = $1`,
		loan.ID, loan.CustomerID, loan.ProductID, loan.ProductName, loan.Rate, loan.Qty,
		loan.Price, loan.Total, loan.Receivable, loan.TotalBalance, loan.RemainingCash,
		loan.Date, loan.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLoanNotFound
	}
	return nil
}

func (r *txRepo) InsertReceivable(ctx context.Context, rec Receivable) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO receivables (customer_id, paid_date, total_balance, paid_cash,
			remaining_cash, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 RETURNING id`,
		rec.CustomerID, rec.Date, rec.TotalBalance, rec.PaidCash, rec.RemainingCash, rec.Active,
	).Scan(&id)
	return id, err
}

func (r *txRepo) SaveReceivable(ctx context.Context, rec Receivable) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE receivables SET paid_date = $2, total_balance = $3, paid_cash = $4,
			remaining_cash = $5, active = $6
		 WHERE id = $1`,
		rec.ID, rec.Date, rec.TotalBalance, rec.PaidCash, rec.RemainingCash, rec.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReceivableNotFound
	}
	return nil
}

func scanLoan(row pgx.Row) (Loan, error) {
	var l Loan
	err := row.Scan(&l.ID, &l.CustomerID, &l.ProductID, &l.ProductName, &l.Rate, &l.Qty,
		&l.Price, &l.Total, &l.Receivable, &l.TotalBalance, &l.RemainingCash, &l.Date,
		&l.Active, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func collectLoans(rows pgx.Rows) ([]Loan, error) {
	var loans []Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

func scanReceivable(row pgx.Row) (Receivable, error) {
	var rec Receivable
	err := row.Scan(&rec.ID, &rec.CustomerID, &rec.Date, &rec.TotalBalance, &rec.PaidCash,
		&rec.RemainingCash, &rec.Active, &rec.CreatedAt)
	return rec, err
}

func collectReceivables(rows pgx.Rows) ([]Receivable, error) {
	var recs []Receivable
	for rows.Next() {
		rec, err := scanReceivable(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
