package invoices

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort abstracts invoice persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	GetInvoiceByNumber(ctx context.Context, number string) (Invoice, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error)
}

// TxRepository exposes the write side used during checkout.
type TxRepository interface {
	NextSequence(ctx context.Context) (int64, error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	InsertItems(ctx context.Context, invoiceID int64, items []Item) error
}

// Repository persists invoices in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs the callback inside a transaction. The default isolation level
// is enough here, the counter row lock already serializes checkouts.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const invoiceColumns = `id, number, sequence, customer_id, customer_name, customer_contact,
	customer_trn, vat_mode, subtotal, vat_amount, discount, grand_total, issued_at, created_at`

// GetInvoice fetches one invoice with its items.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	return r.hydrate(ctx, row)
}

// GetInvoiceByNumber fetches one invoice by its display number.
func (r *Repository) GetInvoiceByNumber(ctx context.Context, number string) (Invoice, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE number = $1`, number)
	return r.hydrate(ctx, row)
}

func (r *Repository) hydrate(ctx context.Context, row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.Sequence, &inv.CustomerID, &inv.Customer.Name,
		&inv.Customer.Contact, &inv.Customer.TRN, &inv.VATMode, &inv.Subtotal,
		&inv.VATAmount, &inv.Discount, &inv.GrandTotal, &inv.IssuedAt, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrInvoiceNotFound
	}
	if err != nil {
		return Invoice{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, invoice_id, product_id, name, rate, qty, discount, vat, total, net_total
		 FROM invoice_items WHERE invoice_id = $1 ORDER BY id ASC`, inv.ID)
	if err != nil {
		return Invoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ProductID, &item.Name, &item.Rate,
			&item.Qty, &item.Discount, &item.VAT, &item.Total, &item.NetTotal); err != nil {
			return Invoice{}, err
		}
		inv.Items = append(inv.Items, item)
	}
	return inv, rows.Err()
}

// ListInvoices returns invoice headers, newest first.
func (r *Repository) ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1=1`
	args := []any{}

	if filter.CustomerID > 0 {
		args = append(args, filter.CustomerID)
		query += ` AND customer_id = $` + strconv.Itoa(len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += ` AND issued_at >= $` + strconv.Itoa(len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += ` AND issued_at < $` + strconv.Itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += ` AND number ILIKE $` + strconv.Itoa(len(args))
	}

	query += ` ORDER BY sequence DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.Sequence, &inv.CustomerID, &inv.Customer.Name,
			&inv.Customer.Contact, &inv.Customer.TRN, &inv.VATMode,
			&inv.Subtotal, &inv.VATAmount, &inv.Discount, &inv.GrandTotal,
			&inv.IssuedAt, &inv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

// NextSequence bumps the single counter row and returns the new value. The
// row level lock serializes concurrent checkouts, so numbers come out gapless
// within committed transactions.
func (r *txRepo) NextSequence(ctx context.Context) (int64, error) {
	var seq int64
	err := r.tx.QueryRow(ctx,
		`UPDATE invoice_counter SET value = value + 1 RETURNING value`).Scan(&seq)
	return seq, err
}

func (r *txRepo) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO invoices (number, sequence, customer_id, customer_name, customer_contact,
			customer_trn, vat_mode, subtotal, vat_amount, discount, grand_total, issued_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		 RETURNING id`,
		inv.Number, inv.Sequence, inv.CustomerID, inv.Customer.Name, inv.Customer.Contact,
		inv.Customer.TRN, inv.VATMode, inv.Subtotal, inv.VATAmount,
		inv.Discount, inv.GrandTotal, inv.IssuedAt).Scan(&id)
	return id, err
}

func (r *txRepo) InsertItems(ctx context.Context, invoiceID int64, items []Item) error {
	for _, item := range items {
		_, err := r.tx.Exec(ctx,
			`INSERT INTO invoice_items (invoice_id, product_id, name, rate, qty, discount, vat, total, net_total)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			invoiceID, item.ProductID, item.Name, item.Rate, item.Qty, item.Discount,
			item.VAT, item.Total, item.NetTotal)
		if err != nil {
			return err
		}
	}
	return nil
}
