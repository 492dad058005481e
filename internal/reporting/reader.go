package reporting

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Reader supplies the transactional facts a report is computed from. Each
// dated read is restricted to the window on the fact's own timestamp.
type Reader interface {
	ReadPayments(ctx context.Context, window Window, filters Filters) ([]ClientPayment, error)
	ReadPayouts(ctx context.Context, window Window, filters Filters) ([]VendorPayout, error)
	ReadExpenses(ctx context.Context, window Window, filters Filters) ([]ItemExpense, error)
	ReadInstallments(ctx context.Context, window Window, filters Filters) ([]InstallmentPlan, error)
	ReadItems(ctx context.Context, filters Filters) ([]Item, error)
}

// SnapshotReader is implemented by readers able to fetch every fact of a
// window in one consistent read.
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context, window Window, filters Filters) (Snapshot, error)
}

// Snapshot is the immutable set of facts one computation works on.
type Snapshot struct {
	Window       Window
	Items        []Item
	Payments     []ClientPayment
	Payouts      []VendorPayout
	Expenses     []ItemExpense
	Installments []InstallmentPlan

	index map[int64]int
}

// NewSnapshot orders the facts deterministically and indexes items by id.
func NewSnapshot(window Window, items []Item, payments []ClientPayment, payouts []VendorPayout, expenses []ItemExpense, installments []InstallmentPlan) Snapshot {
	items = slices.Clone(items)
	slices.SortFunc(items, func(a, b Item) int { return cmp.Compare(a.ID, b.ID) })
	payments = slices.Clone(payments)
	slices.SortFunc(payments, func(a, b ClientPayment) int {
		return cmp.Or(a.PaidAt.Compare(b.PaidAt), cmp.Compare(a.ID, b.ID))
	})
	payouts = slices.Clone(payouts)
	slices.SortFunc(payouts, func(a, b VendorPayout) int {
		return cmp.Or(a.PaidAt.Compare(b.PaidAt), cmp.Compare(a.ID, b.ID))
	})
	expenses = slices.Clone(expenses)
	slices.SortFunc(expenses, func(a, b ItemExpense) int {
		return cmp.Or(a.IncurredAt.Compare(b.IncurredAt), cmp.Compare(a.ID, b.ID))
	})
	installments = slices.Clone(installments)
	slices.SortFunc(installments, func(a, b InstallmentPlan) int {
		return cmp.Or(a.DueDate.Compare(b.DueDate), cmp.Compare(a.ID, b.ID))
	})

	index := make(map[int64]int, len(items))
	for i, item := range items {
		index[item.ID] = i
	}
	return Snapshot{
		Window:       window,
		Items:        items,
		Payments:     payments,
		Payouts:      payouts,
		Expenses:     expenses,
		Installments: installments,
		index:        index,
	}
}

// Item looks up an item of the snapshot by id.
func (s Snapshot) Item(id int64) (Item, bool) {
	i, ok := s.index[id]
	if !ok {
		return Item{}, false
	}
	return s.Items[i], true
}

// LoadSnapshot reads every fact of window. A SnapshotReader is asked for a
// single consistent read; other readers are queried in parallel.
func LoadSnapshot(ctx context.Context, r Reader, window Window, filters Filters) (Snapshot, error) {
	if sr, ok := r.(SnapshotReader); ok {
		snap, err := sr.ReadSnapshot(ctx, window, filters)
		if err != nil {
			return Snapshot{}, fmt.Errorf("reporting: read snapshot: %w", err)
		}
		return NewSnapshot(window, snap.Items, snap.Payments, snap.Payouts, snap.Expenses, snap.Installments), nil
	}

	var (
		items        []Item
		payments     []ClientPayment
		payouts      []VendorPayout
		expenses     []ItemExpense
		installments []InstallmentPlan
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = r.ReadItems(ctx, filters)
		if err != nil {
			return fmt.Errorf("reporting: read items: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		payments, err = r.ReadPayments(ctx, window, filters)
		if err != nil {
			return fmt.Errorf("reporting: read payments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		payouts, err = r.ReadPayouts(ctx, window, filters)
		if err != nil {
			return fmt.Errorf("reporting: read payouts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		expenses, err = r.ReadExpenses(ctx, window, filters)
		if err != nil {
			return fmt.Errorf("reporting: read expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		installments, err = r.ReadInstallments(ctx, window, filters)
		if err != nil {
			return fmt.Errorf("reporting: read installments: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(window, items, payments, payouts, expenses, installments), nil
}
