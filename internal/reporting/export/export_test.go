package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consigna/backoffice/internal/money"
	"github.com/consigna/backoffice/internal/reporting"
)

func readCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteKPICSV(t *testing.T) {
	kpi := reporting.KPISnapshot{
		StartDate:    "2024-03-01",
		EndDate:      "2024-03-31",
		TotalRevenue: decimal.NewFromInt(500),
		TotalProfit:  money.NewRange(decimal.NewFromInt(330), decimal.NewFromInt(380)),
		AverageCost:  money.NewRange(decimal.NewFromInt(150), decimal.NewFromInt(175)),
		ProfitDelta:  money.NewRange(decimal.NewFromInt(-20), decimal.NewFromInt(10)),
		Bound:        money.BoundMid,
	}
	buf := &bytes.Buffer{}
	require.NoError(t, WriteKPICSV(buf, kpi))

	records := readCSV(t, buf)
	require.Greater(t, len(records), 5)
	assert.Equal(t, []string{"Period", "2024-03-01..2024-03-31", "", ""}, records[1])
	assert.Equal(t, []string{"Profit", "355.00", "330.00", "380.00"}, records[5])
	assert.Equal(t, []string{"Average Cost", "162.50", "150.00", "175.00"}, records[8])
	assert.Equal(t, []string{"Profit Delta", "-5.00", "-20.00", "10.00"}, records[len(records)-1])
}

func TestWriteTimeSeriesCSVFollowsMetrics(t *testing.T) {
	revenue := decimal.NewFromInt(800)
	sold := 2
	ts := reporting.TimeSeries{
		Metrics: []reporting.Metric{reporting.MetricRevenue, reporting.MetricItemsSold},
		Points: []reporting.TimeSeriesPoint{
			{Period: "2024-W10", Start: "2024-03-04", End: "2024-03-10", Revenue: &revenue, ItemsSold: &sold},
		},
	}
	buf := &bytes.Buffer{}
	require.NoError(t, WriteTimeSeriesCSV(buf, ts))

	records := readCSV(t, buf)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Period", "Start", "End", "Revenue", "Items Sold"}, records[0])
	assert.Equal(t, []string{"2024-W10", "2024-03-04", "2024-03-10", "800.00", "2"}, records[1])
}

func TestWritePerformanceCSV(t *testing.T) {
	perf := reporting.Performance{Groups: []reporting.GroupPerformance{
		{Rank: 1, ID: 3, Name: "Atelier, Paris", Revenue: decimal.NewFromInt(500), Margin: decimal.RequireFromString("71")},
	}}
	buf := &bytes.Buffer{}
	require.NoError(t, WritePerformanceCSV(buf, perf))

	records := readCSV(t, buf)
	require.Len(t, records, 2)
	assert.Equal(t, "Atelier, Paris", records[1][2])
	assert.Equal(t, "71.00", records[1][7])
}

func TestWriteAgingCSV(t *testing.T) {
	health := reporting.InventoryHealth{Aging: []reporting.AgingBucket{
		{Bucket: "0-30", Count: 1, Percentage: decimal.NewFromInt(100)},
		{Bucket: "90+"},
	}}
	buf := &bytes.Buffer{}
	require.NoError(t, WriteAgingCSV(buf, health))

	records := readCSV(t, buf)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"0-30", "1", "0.00", "0.00", "100.00"}, records[1])
}
