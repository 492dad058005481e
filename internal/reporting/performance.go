package reporting

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/consigna/backoffice/internal/money"
)

const unassignedLabel = "Unassigned"

// GroupPerformance is the rollup of one dimension value.
type GroupPerformance struct {
	Rank         int             `json:"rank"`
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Revenue      decimal.Decimal `json:"revenue"`
	CostOfGoods  money.Range     `json:"costOfGoods"`
	Expenses     decimal.Decimal `json:"expenses"`
	ProfitRange  money.Range     `json:"profitRange"`
	Profit       decimal.Decimal `json:"profit"`
	Margin       decimal.Decimal `json:"margin"`
	ItemCount    int             `json:"itemCount"`
	Transactions int             `json:"transactions"`
	RevenueShare decimal.Decimal `json:"revenueShare"`
	Change       decimal.Decimal `json:"change"`
}

// Performance ranks the groups of a dimension by revenue.
type Performance struct {
	StartDate    string             `json:"startDate"`
	EndDate      string             `json:"endDate"`
	GroupBy      Dimension          `json:"groupBy"`
	Bound        money.Bound        `json:"bound"`
	TotalRevenue decimal.Decimal    `json:"totalRevenue"`
	Groups       []GroupPerformance `json:"groups"`
}

type groupTally struct {
	id   int64
	name string
	*tally
}

// computePerformance partitions the window's payments by q.GroupBy. Margin
// is the resolved profit over revenue, in percent.
func computePerformance(q Query, current, previous Snapshot) Performance {
	groups := groupSnapshot(q.GroupBy, current)
	prior := groupSnapshot(q.GroupBy, previous)

	var total decimal.Decimal
	for _, g := range groups {
		total = total.Add(g.revenue)
	}

	out := make([]GroupPerformance, 0, len(groups))
	for id, g := range groups {
		profitRange := g.profit()
		profit := profitRange.Resolve(q.Bound)
		var before decimal.Decimal
		if p, ok := prior[id]; ok {
			before = p.revenue
		}
		out = append(out, GroupPerformance{
			ID:           g.id,
			Name:         g.name,
			Revenue:      g.revenue,
			CostOfGoods:  g.cost,
			Expenses:     g.expenses,
			ProfitRange:  profitRange,
			Profit:       profit,
			Margin:       money.Percent(profit, g.revenue),
			ItemCount:    g.itemCount(),
			Transactions: g.payments,
			RevenueShare: money.Percent(g.revenue, total),
			Change:       money.PercentChange(g.revenue, before),
		})
	}
	slices.SortFunc(out, func(a, b GroupPerformance) int {
		return cmp.Or(
			b.Revenue.Cmp(a.Revenue),
			strings.Compare(a.Name, b.Name),
			cmp.Compare(a.ID, b.ID),
		)
	})
	for i := range out {
		out[i].Rank = i + 1
	}

	return Performance{
		StartDate:    q.StartDate.Format(DateLayout),
		EndDate:      q.EndDate.Format(DateLayout),
		GroupBy:      q.GroupBy,
		Bound:        q.Bound,
		TotalRevenue: total,
		Groups:       out,
	}
}

// groupSnapshot tallies the snapshot per dimension key. Only keys with at
// least one payment produce a group.
func groupSnapshot(dim Dimension, snap Snapshot) map[int64]*groupTally {
	groups := make(map[int64]*groupTally)
	// An item's cost and expenses belong to the group of its first payment
	// in the window; only client grouping can split an item across groups.
	firstClient := make(map[int64]int64)

	for _, p := range snap.Payments {
		item, known := snap.Item(p.ItemID)
		id, name := groupKey(dim, item, known, p)
		g, ok := groups[id]
		if !ok {
			g = &groupTally{id: id, name: name, tally: newTally()}
			groups[id] = g
		}
		if _, seen := firstClient[p.ItemID]; seen {
			g.addRevenue(p)
			continue
		}
		firstClient[p.ItemID] = p.ClientID
		g.addPayment(p, item, known, snap.Window)
	}

	for _, e := range snap.Expenses {
		var id int64
		if dim == DimensionClient {
			clientID, ok := firstClient[e.ItemID]
			if !ok {
				continue
			}
			id = clientID
		} else {
			item, known := snap.Item(e.ItemID)
			id, _ = groupKey(dim, item, known, ClientPayment{})
		}
		if g, ok := groups[id]; ok {
			g.addExpense(e)
		}
	}
	return groups
}

func groupKey(dim Dimension, item Item, known bool, p ClientPayment) (int64, string) {
	if dim == DimensionClient {
		return p.ClientID, labelOr(p.ClientName, p.ClientID)
	}
	if !known {
		return 0, unassignedLabel
	}
	switch dim {
	case DimensionBrand:
		return item.BrandID, labelOr(item.BrandName, item.BrandID)
	case DimensionCategory:
		return item.CategoryID, labelOr(item.CategoryName, item.CategoryID)
	default:
		return item.VendorID, labelOr(item.VendorName, item.VendorID)
	}
}

func labelOr(name string, id int64) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	if id <= 0 {
		return unassignedLabel
	}
	return "#" + strconv.FormatInt(id, 10)
}
