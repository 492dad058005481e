package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/consigna/backoffice/internal/money"
)

// StatusCounts counts items per lifecycle status.
type StatusCounts struct {
	InStore  int `json:"in-store"`
	Reserved int `json:"reserved"`
	Sold     int `json:"sold"`
	Returned int `json:"returned"`
}

func (c *StatusCounts) add(status ItemStatus) {
	switch status {
	case StatusInStore:
		c.InStore++
	case StatusReserved:
		c.Reserved++
	case StatusSold:
		c.Sold++
	case StatusReturned:
		c.Returned++
	}
}

// Performer names the dimension value with the highest revenue.
type Performer struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Revenue decimal.Decimal `json:"revenue"`
}

// KPISnapshot is the headline card set of the dashboard.
type KPISnapshot struct {
	StartDate              string          `json:"startDate"`
	EndDate                string          `json:"endDate"`
	TotalRevenue           decimal.Decimal `json:"totalRevenue"`
	CostOfGoods            money.Range     `json:"costOfGoods"`
	TotalExpenses          decimal.Decimal `json:"totalExpenses"`
	TotalProfit            money.Range     `json:"totalProfitRange"`
	ItemsSold              int             `json:"itemsSold"`
	AverageSaleValue       decimal.Decimal `json:"averageSaleValue"`
	AverageCost            money.Range     `json:"averageCostRange"`
	ItemsByStatus          StatusCounts    `json:"itemsByStatus"`
	PendingPayments        int             `json:"pendingPayments"`
	OverduePayments        int             `json:"overduePayments"`
	InstallmentOutstanding decimal.Decimal `json:"installmentOutstanding"`
	TotalPayouts           decimal.Decimal `json:"totalPayouts"`
	PendingPayout          money.Range     `json:"pendingPayoutRange"`
	RevenueChange          decimal.Decimal `json:"revenueChange"`
	ProfitChange           decimal.Decimal `json:"profitChange"`
	ProfitDelta            money.Range     `json:"profitDeltaRange"`
	Bound                  money.Bound     `json:"bound"`
	TopPerformingBrand     *Performer      `json:"topPerformingBrand"`
	TopPerformingVendor    *Performer      `json:"topPerformingVendor"`
}

// computeKPIs aggregates the current window and compares it with the
// previous one. now dates the pending/overdue split.
func computeKPIs(q Query, current, previous Snapshot, now time.Time) KPISnapshot {
	cur := tallyWindow(current)
	prev := tallyWindow(previous)

	kpi := KPISnapshot{
		StartDate:        q.StartDate.Format(DateLayout),
		EndDate:          q.EndDate.Format(DateLayout),
		TotalRevenue:     cur.revenue,
		CostOfGoods:      cur.cost,
		TotalExpenses:    cur.expenses,
		TotalProfit:      cur.profit(),
		ItemsSold:        cur.itemCount(),
		AverageSaleValue: money.Average(cur.revenue, cur.itemCount()),
		AverageCost:      cur.cost.DivScalar(decimal.NewFromInt(int64(cur.itemCount()))).Round(money.RatioPlaces),
		RevenueChange:    money.PercentChange(cur.revenue, prev.revenue),
		ProfitChange:     money.PercentChange(cur.profit().Resolve(q.Bound), prev.profit().Resolve(q.Bound)),
		ProfitDelta:      cur.profit().Sub(prev.profit()),
		Bound:            q.Bound,
	}

	for _, item := range current.Items {
		kpi.ItemsByStatus.add(item.Status)
		if _, sold := cur.costed[item.ID]; sold {
			kpi.PendingPayout = kpi.PendingPayout.Add(item.Cost.SubScalar(item.PaidOut).ClampZero())
		}
	}

	for _, plan := range current.Installments {
		if plan.Status != InstallmentPending {
			continue
		}
		kpi.InstallmentOutstanding = kpi.InstallmentOutstanding.Add(plan.Outstanding())
		if overdue(plan.DueDate, now) {
			kpi.OverduePayments++
		} else {
			kpi.PendingPayments++
		}
	}

	for _, payout := range current.Payouts {
		kpi.TotalPayouts = kpi.TotalPayouts.Add(payout.Amount)
	}

	kpi.TopPerformingBrand = topPerformer(current, func(item Item) (int64, string) { return item.BrandID, item.BrandName })
	kpi.TopPerformingVendor = topPerformer(current, func(item Item) (int64, string) { return item.VendorID, item.VendorName })
	return kpi
}

// overdue reports whether the whole due day lies before now.
func overdue(due, now time.Time) bool {
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	return !now.Before(dueDay.AddDate(0, 0, 1))
}

// topPerformer returns the key with the highest revenue, ties going to the
// smallest (earliest created) id. It is nil when nothing was sold.
func topPerformer(snap Snapshot, key func(Item) (int64, string)) *Performer {
	type entry struct {
		name    string
		revenue decimal.Decimal
	}
	totals := make(map[int64]*entry)
	for _, p := range snap.Payments {
		item, ok := snap.Item(p.ItemID)
		if !ok {
			continue
		}
		id, name := key(item)
		e, ok := totals[id]
		if !ok {
			e = &entry{name: name}
			totals[id] = e
		}
		e.revenue = e.revenue.Add(p.Amount)
	}

	var best *Performer
	for id, e := range totals {
		if best == nil || e.revenue.GreaterThan(best.Revenue) || (e.revenue.Equal(best.Revenue) && id < best.ID) {
			best = &Performer{ID: id, Name: e.name, Revenue: e.revenue}
		}
	}
	return best
}
