package reporting

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consigna/backoffice/internal/money"
	"github.com/consigna/backoffice/internal/platform/db"
)

var errRepoNotInitialised = errors.New("reporting repo not initialised")

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository reads transactional facts from Postgres. It implements Reader
// and SnapshotReader.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a reporting repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// itemFilter restricts the item aliased i by vendor ($1), brand ($2) and
// category ($3). Empty arrays disable a clause.
const itemFilter = `
  (cardinality($1::bigint[]) = 0 OR i.vendor_id = ANY($1::bigint[]))
  AND (cardinality($2::bigint[]) = 0 OR i.brand_id = ANY($2::bigint[]))
  AND (cardinality($3::bigint[]) = 0 OR i.category_id = ANY($3::bigint[]))`

func itemArgs(f Filters) []any {
	return []any{ids(f.VendorIDs), ids(f.BrandIDs), ids(f.CategoryIDs)}
}

// ids keeps empty sets non-NULL so cardinality() yields 0.
func ids(set []int64) []int64 {
	if set == nil {
		return []int64{}
	}
	return set
}

// ReadSnapshot reads every fact of window inside one read-only
// RepeatableRead transaction.
func (r *Repository) ReadSnapshot(ctx context.Context, window Window, filters Filters) (Snapshot, error) {
	if r == nil || r.pool == nil {
		return Snapshot{}, errRepoNotInitialised
	}
	var snap Snapshot
	err := db.WithReadTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if snap.Items, err = readItems(ctx, tx, filters); err != nil {
			return fmt.Errorf("items: %w", err)
		}
		if snap.Payments, err = readPayments(ctx, tx, window, filters); err != nil {
			return fmt.Errorf("payments: %w", err)
		}
		if snap.Payouts, err = readPayouts(ctx, tx, window, filters); err != nil {
			return fmt.Errorf("payouts: %w", err)
		}
		if snap.Expenses, err = readExpenses(ctx, tx, window, filters); err != nil {
			return fmt.Errorf("expenses: %w", err)
		}
		if snap.Installments, err = readInstallments(ctx, tx, window, filters); err != nil {
			return fmt.Errorf("installments: %w", err)
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	snap.Window = window
	return snap, nil
}

// ReadItems returns the filtered items joined with their dimension names.
func (r *Repository) ReadItems(ctx context.Context, filters Filters) ([]Item, error) {
	if r == nil || r.pool == nil {
		return nil, errRepoNotInitialised
	}
	return readItems(ctx, r.pool, filters)
}

// ReadPayments returns client payments with paid_at in window.
func (r *Repository) ReadPayments(ctx context.Context, window Window, filters Filters) ([]ClientPayment, error) {
	if r == nil || r.pool == nil {
		return nil, errRepoNotInitialised
	}
	return readPayments(ctx, r.pool, window, filters)
}

// ReadPayouts returns vendor payouts with paid_at in window.
func (r *Repository) ReadPayouts(ctx context.Context, window Window, filters Filters) ([]VendorPayout, error) {
	if r == nil || r.pool == nil {
		return nil, errRepoNotInitialised
	}
	return readPayouts(ctx, r.pool, window, filters)
}

// ReadExpenses returns item expenses incurred in window.
func (r *Repository) ReadExpenses(ctx context.Context, window Window, filters Filters) ([]ItemExpense, error) {
	if r == nil || r.pool == nil {
		return nil, errRepoNotInitialised
	}
	return readExpenses(ctx, r.pool, window, filters)
}

// ReadInstallments returns installment plans due in window.
func (r *Repository) ReadInstallments(ctx context.Context, window Window, filters Filters) ([]InstallmentPlan, error) {
	if r == nil || r.pool == nil {
		return nil, errRepoNotInitialised
	}
	return readInstallments(ctx, r.pool, window, filters)
}

func readItems(ctx context.Context, q querier, filters Filters) ([]Item, error) {
	query := `
SELECT i.id,
       COALESCE(i.vendor_id, 0), COALESCE(v.name, ''),
       COALESCE(i.brand_id, 0), COALESCE(b.name, ''),
       COALESCE(i.category_id, 0), COALESCE(c.name, ''),
       i.status,
       i.cost_min, i.cost_max,
       i.sales_price_min, i.sales_price_max,
       COALESCE(i.acquired_at, i.created_at), i.created_at,
       (SELECT MIN(cp.paid_at) FROM client_payments cp WHERE cp.item_id = i.id),
       (SELECT COALESCE(SUM(vp.amount), 0) FROM vendor_payouts vp WHERE vp.item_id = i.id)
FROM items i
LEFT JOIN vendors v ON v.id = i.vendor_id
LEFT JOIN brands b ON b.id = i.brand_id
LEFT JOIN categories c ON c.id = i.category_id
WHERE` + itemFilter + `
ORDER BY i.id`
	rows, err := q.Query(ctx, query, itemArgs(filters)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var (
			it     Item
			status string
			cost   money.Range
			price  money.Range
		)
		if err := rows.Scan(
			&it.ID,
			&it.VendorID, &it.VendorName,
			&it.BrandID, &it.BrandName,
			&it.CategoryID, &it.CategoryName,
			&status,
			&cost.Min, &cost.Max,
			&price.Min, &price.Max,
			&it.AcquiredAt, &it.CreatedAt,
			&it.FirstPaidAt,
			&it.PaidOut,
		); err != nil {
			return nil, err
		}
		it.Status = ItemStatus(status)
		it.Cost = money.NewRange(cost.Min, cost.Max)
		it.SalesPrice = money.NewRange(price.Min, price.Max)
		items = append(items, it)
	}
	return items, rows.Err()
}

func readPayments(ctx context.Context, q querier, window Window, filters Filters) ([]ClientPayment, error) {
	query := `
SELECT cp.id, cp.item_id, COALESCE(cp.client_id, 0), COALESCE(cl.name, ''),
       cp.amount, COALESCE(cp.payment_method, ''), cp.paid_at
FROM client_payments cp
JOIN items i ON i.id = cp.item_id
LEFT JOIN clients cl ON cl.id = cp.client_id
WHERE cp.paid_at >= $4 AND cp.paid_at < $5
  AND (cardinality($6::bigint[]) = 0 OR cp.client_id = ANY($6::bigint[]))
  AND` + itemFilter + `
ORDER BY cp.paid_at, cp.id`
	args := append(itemArgs(filters), window.Start, window.End, ids(filters.ClientIDs))
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []ClientPayment
	for rows.Next() {
		var p ClientPayment
		if err := rows.Scan(&p.ID, &p.ItemID, &p.ClientID, &p.ClientName, &p.Amount, &p.Method, &p.PaidAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func readPayouts(ctx context.Context, q querier, window Window, filters Filters) ([]VendorPayout, error) {
	query := `
SELECT vp.id, vp.item_id, vp.amount, vp.paid_at
FROM vendor_payouts vp
JOIN items i ON i.id = vp.item_id
WHERE vp.paid_at >= $4 AND vp.paid_at < $5
  AND` + itemFilter + `
ORDER BY vp.paid_at, vp.id`
	args := append(itemArgs(filters), window.Start, window.End)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payouts []VendorPayout
	for rows.Next() {
		var p VendorPayout
		if err := rows.Scan(&p.ID, &p.ItemID, &p.Amount, &p.PaidAt); err != nil {
			return nil, err
		}
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}

func readExpenses(ctx context.Context, q querier, window Window, filters Filters) ([]ItemExpense, error) {
	query := `
SELECT e.id, e.item_id, COALESCE(e.expense_type, ''), e.amount, e.incurred_at
FROM item_expenses e
JOIN items i ON i.id = e.item_id
WHERE e.incurred_at >= $4 AND e.incurred_at < $5
  AND` + itemFilter + `
ORDER BY e.incurred_at, e.id`
	args := append(itemArgs(filters), window.Start, window.End)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var expenses []ItemExpense
	for rows.Next() {
		var e ItemExpense
		if err := rows.Scan(&e.ID, &e.ItemID, &e.Type, &e.Amount, &e.IncurredAt); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func readInstallments(ctx context.Context, q querier, window Window, filters Filters) ([]InstallmentPlan, error) {
	query := `
SELECT ip.id, ip.item_id, ip.total_amount, ip.paid_amount, ip.status, ip.due_date
FROM installment_plans ip
JOIN items i ON i.id = ip.item_id
WHERE ip.due_date >= $4 AND ip.due_date < $5
  AND` + itemFilter + `
ORDER BY ip.due_date, ip.id`
	args := append(itemArgs(filters), window.Start, window.End)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var plans []InstallmentPlan
	for rows.Next() {
		var (
			p      InstallmentPlan
			status string
		)
		if err := rows.Scan(&p.ID, &p.ItemID, &p.TotalAmount, &p.PaidAmount, &status, &p.DueDate); err != nil {
			return nil, err
		}
		p.Status = InstallmentStatus(status)
		plans = append(plans, p)
	}
	return plans, rows.Err()
}
