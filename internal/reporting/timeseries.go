package reporting

import (
	"github.com/shopspring/decimal"

	"github.com/consigna/backoffice/internal/money"
)

// TimeSeriesPoint is one bucket of a time series. Metrics that were not
// requested are left nil.
type TimeSeriesPoint struct {
	Period      string           `json:"period"`
	Start       string           `json:"start"`
	End         string           `json:"end"`
	Revenue     *decimal.Decimal `json:"revenue,omitempty"`
	Profit      *decimal.Decimal `json:"profit,omitempty"`
	ProfitRange *money.Range     `json:"profitRange,omitempty"`
	ItemsSold   *int             `json:"itemsSold,omitempty"`
	Expenses    *decimal.Decimal `json:"expenses,omitempty"`
}

// TimeSeries is the gap-free bucketed view of a window. Profit is charted
// as the Bound of each bucket's profit range; the range itself is included.
type TimeSeries struct {
	StartDate   string            `json:"startDate"`
	EndDate     string            `json:"endDate"`
	Granularity Granularity       `json:"granularity"`
	Metrics     []Metric          `json:"metrics"`
	Bound       money.Bound       `json:"bound"`
	Points      []TimeSeriesPoint `json:"points"`
}

// buildTimeSeries buckets the snapshot. Revenue and items sold land in the
// bucket of the payment; an item's cost lands in the bucket of its sale
// date, so bucket profits add up to the window profit.
func buildTimeSeries(q Query, snap Snapshot) TimeSeries {
	periods := buildPeriods(q.StartDate, q.EndDate, q.Granularity)
	tallies := make([]*tally, len(periods))
	for i := range tallies {
		tallies[i] = newTally()
	}

	costed := make(map[int64]struct{})
	for _, p := range snap.Payments {
		i := locatePeriod(periods, p.PaidAt)
		if i < 0 {
			continue
		}
		tallies[i].addRevenue(p)

		item, ok := snap.Item(p.ItemID)
		if !ok {
			continue
		}
		if _, done := costed[item.ID]; done {
			continue
		}
		if j := locatePeriod(periods, saleDate(item, p)); j >= 0 {
			tallies[j].addCost(item)
			costed[item.ID] = struct{}{}
		}
	}
	for _, e := range snap.Expenses {
		if i := locatePeriod(periods, e.IncurredAt); i >= 0 {
			tallies[i].addExpense(e)
		}
	}

	points := make([]TimeSeriesPoint, 0, len(periods))
	for i, p := range periods {
		t := tallies[i]
		point := TimeSeriesPoint{
			Period: p.label,
			Start:  p.window.Start.Format(DateLayout),
			End:    p.window.End.AddDate(0, 0, -1).Format(DateLayout),
		}
		if q.Wants(MetricRevenue) {
			revenue := t.revenue
			point.Revenue = &revenue
		}
		if q.Wants(MetricProfit) {
			profitRange := t.profit()
			profit := profitRange.Resolve(q.Bound)
			point.Profit = &profit
			point.ProfitRange = &profitRange
		}
		if q.Wants(MetricItemsSold) {
			count := t.itemCount()
			point.ItemsSold = &count
		}
		if q.Wants(MetricExpenses) {
			expenses := t.expenses
			point.Expenses = &expenses
		}
		points = append(points, point)
	}

	return TimeSeries{
		StartDate:   q.StartDate.Format(DateLayout),
		EndDate:     q.EndDate.Format(DateLayout),
		Granularity: q.Granularity,
		Metrics:     q.Metrics,
		Bound:       q.Bound,
		Points:      points,
	}
}
