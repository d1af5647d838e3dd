package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/awais2000/Blue-Star/internal/jobs"
	"github.com/awais2000/Blue-Star/internal/pricing"
)

// LedgerReconcileJob replays every customer's loan chain and compares the
// result with the stored running totals. Drift only appears when rows were
// edited outside the API, so findings are logged and counted, never fixed
// silently.
type LedgerReconcileJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewLedgerReconcileJob initialises the reconcile handler.
func NewLedgerReconcileJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerReconcileJob {
	return &LedgerReconcileJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

type loanRow struct {
	ID            int64
	CustomerID    int64
	Price         float64
	Total         float64
	Receivable    float64
	TotalBalance  float64
	RemainingCash float64
}

// Handle executes the reconciliation scan.
func (j *LedgerReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("ledger reconcile: handler not configured")
	}
	var payload ReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Tolerance <= 0 {
		payload.Tolerance = 0.01
	}

	start := j.now()
	tracker := j.metrics().Track(TaskLedgerReconcile)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Float64("tolerance", payload.Tolerance))
	logger.Info("starting ledger reconcile")

	rows, err := j.loadLoans(ctx, payload.CustomerID)
	if err != nil {
		resultErr = err
		logger.Error("load loans", slog.Any("error", err))
		return resultErr
	}

	drifted := 0
	byCustomer := groupByCustomer(rows)
	for customerID, loans := range byCustomer {
		var running, totalPrice, totalPaid float64
		for _, l := range loans {
			running = pricing.Round2(running + l.Price)
			totalPrice += l.Price
			totalPaid += l.Receivable
			if math.Abs(l.Total-running) > payload.Tolerance {
				drifted++
				j.metrics().AddDrift(customerID, 1)
				logger.Warn("cumulative total drift",
					slog.Int64("customer_id", customerID),
					slog.Int64("loan_id", l.ID),
					slog.Float64("stored", l.Total),
					slog.Float64("replayed", running))
			}
		}
		wantRemaining := pricing.Round2(totalPrice - totalPaid)
		if wantRemaining < 0 {
			wantRemaining = 0
		}
		for _, l := range loans {
			if math.Abs(l.RemainingCash-wantRemaining) > payload.Tolerance {
				drifted++
				j.metrics().AddDrift(customerID, 1)
				logger.Warn("remaining cash drift",
					slog.Int64("customer_id", customerID),
					slog.Int64("loan_id", l.ID),
					slog.Float64("stored", l.RemainingCash),
					slog.Float64("replayed", wantRemaining))
				break
			}
		}
	}

	logger.Info("ledger reconcile finished",
		slog.Int("customers", len(byCustomer)),
		slog.Int("drifted", drifted),
		slog.Duration("took", time.Since(start)))
	return nil
}

func (j *LedgerReconcileJob) loadLoans(ctx context.Context, customerID int64) ([]loanRow, error) {
	query := `SELECT id, customer_id, price, total, receivable, total_balance, remaining_cash
		FROM loans WHERE active`
	args := []any{}
	if customerID > 0 {
		query += ` AND customer_id = $1`
		args = append(args, customerID)
	}
	query += ` ORDER BY customer_id, loan_date ASC, id ASC`

	rows, err := j.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []loanRow
	for rows.Next() {
		var l loanRow
		if err := rows.Scan(&l.ID, &l.CustomerID, &l.Price, &l.Total, &l.Receivable,
			&l.TotalBalance, &l.RemainingCash); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func groupByCustomer(rows []loanRow) map[int64][]loanRow {
	out := make(map[int64][]loanRow)
	for _, r := range rows {
		out[r.CustomerID] = append(out[r.CustomerID], r)
	}
	return out
}

func (j *LedgerReconcileJob) metrics() *jobmetrics.Metrics {
	return j.Metrics
}

func (j *LedgerReconcileJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *LedgerReconcileJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
