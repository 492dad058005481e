package reporting

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeInventoryNothingHeld(t *testing.T) {
	health := analyzeInventory([]Item{{ID: 1, Status: StatusSold}, {ID: 2, Status: StatusReturned}}, testNow)

	assert.Zero(t, health.HeldCount)
	assert.True(t, health.Valuation.IsZero())
	assert.True(t, health.AverageAgeDays.IsZero())
	assert.Equal(t, StatusCounts{Sold: 1, Returned: 1}, health.ByStatus)
	require.Len(t, health.Aging, 4)
	for _, b := range health.Aging {
		assert.Zero(t, b.Count)
		assert.True(t, b.Percentage.IsZero(), b.Bucket)
	}
}

func TestAgingPercentagesSumToHundred(t *testing.T) {
	var items []Item
	acquired := []string{"2024-03-01", "2024-02-01", "2024-01-01"}
	for i, date := range acquired {
		items = append(items, Item{ID: int64(i + 1), Status: StatusInStore, AcquiredAt: at(date, 0)})
	}
	health := analyzeInventory(items, testNow)

	sum := decimal.Zero
	for _, b := range health.Aging {
		sum = sum.Add(b.Percentage)
	}
	requireDecimal(t, "100", sum)
	requireDecimal(t, "33.33", health.Aging[0].Percentage)
	requireDecimal(t, "33.33", health.Aging[1].Percentage)
	requireDecimal(t, "33.34", health.Aging[2].Percentage)
}

func TestAgingBoundaries(t *testing.T) {
	cases := map[int]string{0: "0-30", 30: "0-30", 31: "31-60", 60: "31-60", 61: "61-90", 90: "61-90", 91: "90+", 400: "90+"}
	for age, want := range cases {
		assert.Equal(t, want, agingBounds[agingIndex(age)].label, age)
	}
}

func TestAgeInDays(t *testing.T) {
	assert.Equal(t, 4, ageInDays(Item{AcquiredAt: at("2024-03-10", 23)}, testNow))
	assert.Equal(t, 13, ageInDays(Item{CreatedAt: at("2024-03-01", 0)}, testNow))
	assert.Zero(t, ageInDays(Item{AcquiredAt: at("2024-04-01", 0)}, testNow))
	assert.Zero(t, ageInDays(Item{}, testNow))
}

func TestOverdue(t *testing.T) {
	assert.False(t, overdue(at("2024-03-14", 0), testNow))
	assert.True(t, overdue(at("2024-03-13", 0), testNow))
	assert.False(t, overdue(at("2024-03-20", 0), testNow))
}
