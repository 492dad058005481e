package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/consigna/backoffice/internal/money"
)

// tally accumulates revenue, cost of goods and expenses for one slice of a
// snapshot: the whole window, a time bucket or a group.
type tally struct {
	revenue  decimal.Decimal
	cost     money.Range
	expenses decimal.Decimal
	payments int
	items    map[int64]struct{}
	costed   map[int64]struct{}
}

func newTally() *tally {
	return &tally{items: make(map[int64]struct{}), costed: make(map[int64]struct{})}
}

// addPayment books a payment. The item's cost is booked once, and only when
// its sale date falls inside within: an item is sold on its first payment.
func (t *tally) addPayment(p ClientPayment, item Item, known bool, within Window) {
	t.addRevenue(p)
	if known && within.Contains(saleDate(item, p)) {
		t.addCost(item)
	}
}

func (t *tally) addRevenue(p ClientPayment) {
	t.revenue = t.revenue.Add(p.Amount)
	t.payments++
	t.items[p.ItemID] = struct{}{}
}

func (t *tally) addCost(item Item) {
	if _, done := t.costed[item.ID]; done {
		return
	}
	t.cost = t.cost.Add(item.Cost)
	t.costed[item.ID] = struct{}{}
}

func (t *tally) addExpense(e ItemExpense) {
	t.expenses = t.expenses.Add(e.Amount)
}

// profit is revenue minus cost of goods minus expenses, cost bounds crossed.
func (t *tally) profit() money.Range {
	return money.Exact(t.revenue).SubCost(t.cost).SubScalar(t.expenses)
}

func (t *tally) itemCount() int {
	return len(t.items)
}

// saleDate is the item's first recorded payment. Readers that do not supply
// it fall back to the payment at hand, which is the earliest one seen since
// snapshot payments are ordered by time.
func saleDate(item Item, p ClientPayment) time.Time {
	if item.FirstPaidAt != nil {
		return *item.FirstPaidAt
	}
	return p.PaidAt
}

// tallyWindow books every payment and expense of snap into one tally.
func tallyWindow(snap Snapshot) *tally {
	t := newTally()
	for _, p := range snap.Payments {
		item, ok := snap.Item(p.ItemID)
		t.addPayment(p, item, ok, snap.Window)
	}
	for _, e := range snap.Expenses {
		t.addExpense(e)
	}
	return t
}
