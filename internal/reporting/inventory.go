package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/consigna/backoffice/internal/money"
)

// agingBounds are the upper day limits of the aging buckets; the last
// bucket is open-ended.
var agingBounds = []struct {
	label string
	max   int
}{
	{"0-30", 30},
	{"31-60", 60},
	{"61-90", 90},
	{"90+", -1},
}

// AgingBucket classifies held inventory by days since acquisition.
type AgingBucket struct {
	Bucket     string          `json:"bucket"`
	Count      int             `json:"count"`
	Valuation  money.Range     `json:"valuation"`
	Percentage decimal.Decimal `json:"percentage"`
}

// InventoryHealth describes current stock. Held items are those in-store
// or reserved.
type InventoryHealth struct {
	ByStatus        StatusCounts    `json:"byStatus"`
	HeldCount       int             `json:"heldCount"`
	Valuation       money.Range     `json:"valuation"`
	HeldCost        money.Range     `json:"heldCost"`
	PotentialMargin money.Range     `json:"potentialMargin"`
	AverageAgeDays  decimal.Decimal `json:"averageAgeDays"`
	Aging           []AgingBucket   `json:"aging"`
}

// analyzeInventory classifies items as of now.
func analyzeInventory(items []Item, now time.Time) InventoryHealth {
	health := InventoryHealth{Aging: make([]AgingBucket, len(agingBounds))}
	for i, b := range agingBounds {
		health.Aging[i].Bucket = b.label
		health.Aging[i].Percentage = decimal.Zero
	}

	var totalAge int64
	for _, item := range items {
		health.ByStatus.add(item.Status)
		if !item.Status.Held() {
			continue
		}
		health.HeldCount++
		health.Valuation = health.Valuation.Add(item.SalesPrice)
		health.HeldCost = health.HeldCost.Add(item.Cost)

		age := ageInDays(item, now)
		totalAge += int64(age)
		b := &health.Aging[agingIndex(age)]
		b.Count++
		b.Valuation = b.Valuation.Add(item.SalesPrice)
	}

	health.PotentialMargin = health.Valuation.SubCost(health.HeldCost)
	health.AverageAgeDays = money.Average(decimal.NewFromInt(totalAge), health.HeldCount)
	distributePercentages(health.Aging, health.HeldCount)
	return health
}

// distributePercentages rounds each bucket share and lets the last
// non-empty bucket absorb the remainder so shares sum to exactly 100.
func distributePercentages(buckets []AgingBucket, held int) {
	if held == 0 {
		return
	}
	total := decimal.NewFromInt(int64(held))
	last := -1
	for i := range buckets {
		if buckets[i].Count > 0 {
			last = i
		}
	}
	allocated := decimal.Zero
	for i := range buckets {
		if buckets[i].Count == 0 {
			continue
		}
		if i == last {
			buckets[i].Percentage = decimal.NewFromInt(100).Sub(allocated)
			continue
		}
		share := money.Percent(decimal.NewFromInt(int64(buckets[i].Count)), total)
		buckets[i].Percentage = share
		allocated = allocated.Add(share)
	}
}

func ageInDays(item Item, now time.Time) int {
	since := item.AcquiredAt
	if since.IsZero() {
		since = item.CreatedAt
	}
	if since.IsZero() {
		return 0
	}
	days := int(truncateDay(now).Sub(truncateDay(since)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func agingIndex(age int) int {
	for i, b := range agingBounds {
		if b.max >= 0 && age <= b.max {
			return i
		}
	}
	return len(agingBounds) - 1
}
