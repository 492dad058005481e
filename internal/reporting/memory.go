package reporting

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Dataset is a complete set of transactional facts.
type Dataset struct {
	Items        []Item
	Payments     []ClientPayment
	Payouts      []VendorPayout
	Expenses     []ItemExpense
	Installments []InstallmentPlan
}

// MemoryReader serves a Dataset from memory. It derives each item's first
// payment and paid-out total the way the Postgres repository does.
type MemoryReader struct {
	mu   sync.RWMutex
	data Dataset
}

// NewMemoryReader returns a reader over data.
func NewMemoryReader(data Dataset) *MemoryReader {
	r := &MemoryReader{}
	r.Replace(data)
	return r
}

// Replace swaps the served dataset.
func (r *MemoryReader) Replace(data Dataset) {
	firstPaid := make(map[int64]int)
	for i, p := range data.Payments {
		j, ok := firstPaid[p.ItemID]
		if !ok || p.PaidAt.Before(data.Payments[j].PaidAt) {
			firstPaid[p.ItemID] = i
		}
	}
	paidOut := make(map[int64]decimal.Decimal)
	for _, p := range data.Payouts {
		paidOut[p.ItemID] = paidOut[p.ItemID].Add(p.Amount)
	}

	items := make([]Item, len(data.Items))
	for i, item := range data.Items {
		item.FirstPaidAt = nil
		if j, ok := firstPaid[item.ID]; ok {
			paidAt := data.Payments[j].PaidAt
			item.FirstPaidAt = &paidAt
		}
		item.PaidOut = paidOut[item.ID]
		items[i] = item
	}
	data.Items = items

	r.mu.Lock()
	r.data = data
	r.mu.Unlock()
}

func (r *MemoryReader) items() map[int64]Item {
	byID := make(map[int64]Item, len(r.data.Items))
	for _, item := range r.data.Items {
		byID[item.ID] = item
	}
	return byID
}

// ReadItems implements Reader.
func (r *MemoryReader) ReadItems(_ context.Context, filters Filters) ([]Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Item
	for _, item := range r.data.Items {
		if filters.MatchItem(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

// ReadPayments implements Reader.
func (r *MemoryReader) ReadPayments(_ context.Context, window Window, filters Filters) ([]ClientPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := r.items()
	var out []ClientPayment
	for _, p := range r.data.Payments {
		item, ok := items[p.ItemID]
		if !ok || !window.Contains(p.PaidAt) || !filters.MatchItem(item) || !filters.MatchClient(p.ClientID) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// ReadPayouts implements Reader.
func (r *MemoryReader) ReadPayouts(_ context.Context, window Window, filters Filters) ([]VendorPayout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := r.items()
	var out []VendorPayout
	for _, p := range r.data.Payouts {
		item, ok := items[p.ItemID]
		if !ok || !window.Contains(p.PaidAt) || !filters.MatchItem(item) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// ReadExpenses implements Reader.
func (r *MemoryReader) ReadExpenses(_ context.Context, window Window, filters Filters) ([]ItemExpense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := r.items()
	var out []ItemExpense
	for _, e := range r.data.Expenses {
		item, ok := items[e.ItemID]
		if !ok || !window.Contains(e.IncurredAt) || !filters.MatchItem(item) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// ReadInstallments implements Reader.
func (r *MemoryReader) ReadInstallments(_ context.Context, window Window, filters Filters) ([]InstallmentPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := r.items()
	var out []InstallmentPlan
	for _, p := range r.data.Installments {
		item, ok := items[p.ItemID]
		if !ok || !window.Contains(p.DueDate) || !filters.MatchItem(item) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
