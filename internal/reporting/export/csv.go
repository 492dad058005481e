// Package export renders reports as CSV downloads.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/consigna/backoffice/internal/money"
	"github.com/consigna/backoffice/internal/reporting"
)

// WriteKPICSV serialises the KPI snapshot as metric/value rows.
func WriteKPICSV(w io.Writer, kpi reporting.KPISnapshot) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Metric", "Value", "Min", "Max"}); err != nil {
		return err
	}
	records := [][]string{
		{"Period", kpi.StartDate + ".." + kpi.EndDate, "", ""},
		{"Revenue", formatDecimal(kpi.TotalRevenue), "", ""},
		rangeRecord("Cost of Goods", kpi.CostOfGoods, kpi.Bound),
		{"Expenses", formatDecimal(kpi.TotalExpenses), "", ""},
		rangeRecord("Profit", kpi.TotalProfit, kpi.Bound),
		{"Items Sold", strconv.Itoa(kpi.ItemsSold), "", ""},
		{"Average Sale", formatDecimal(kpi.AverageSaleValue), "", ""},
		rangeRecord("Average Cost", kpi.AverageCost, kpi.Bound),
		{"Pending Installments", strconv.Itoa(kpi.PendingPayments), "", ""},
		{"Overdue Installments", strconv.Itoa(kpi.OverduePayments), "", ""},
		{"Installments Outstanding", formatDecimal(kpi.InstallmentOutstanding), "", ""},
		{"Vendor Payouts", formatDecimal(kpi.TotalPayouts), "", ""},
		rangeRecord("Owed to Vendors", kpi.PendingPayout, kpi.Bound),
		{"Revenue Change %", formatDecimal(kpi.RevenueChange), "", ""},
		{"Profit Change %", formatDecimal(kpi.ProfitChange), "", ""},
		rangeRecord("Profit Delta", kpi.ProfitDelta, kpi.Bound),
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTimeSeriesCSV emits one row per period. Columns follow the metrics
// of the series.
func WriteTimeSeriesCSV(w io.Writer, ts reporting.TimeSeries) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"Period", "Start", "End"}
	for _, m := range ts.Metrics {
		switch m {
		case reporting.MetricProfit:
			header = append(header, "Profit", "Profit Min", "Profit Max")
		default:
			header = append(header, metricTitle(m))
		}
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, point := range ts.Points {
		record := []string{point.Period, point.Start, point.End}
		for _, m := range ts.Metrics {
			switch m {
			case reporting.MetricRevenue:
				record = append(record, formatOptional(point.Revenue))
			case reporting.MetricProfit:
				record = append(record, formatOptional(point.Profit))
				if point.ProfitRange != nil {
					record = append(record, formatDecimal(point.ProfitRange.Min), formatDecimal(point.ProfitRange.Max))
				} else {
					record = append(record, "", "")
				}
			case reporting.MetricItemsSold:
				if point.ItemsSold != nil {
					record = append(record, strconv.Itoa(*point.ItemsSold))
				} else {
					record = append(record, "")
				}
			case reporting.MetricExpenses:
				record = append(record, formatOptional(point.Expenses))
			}
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WritePerformanceCSV emits the ranked groups.
func WritePerformanceCSV(w io.Writer, perf reporting.Performance) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{
		"Rank", "ID", "Name", "Revenue", "Profit", "Profit Min", "Profit Max",
		"Margin %", "Items", "Transactions", "Share %", "Change %",
	}); err != nil {
		return err
	}
	for _, g := range perf.Groups {
		if err := writer.Write([]string{
			strconv.Itoa(g.Rank),
			strconv.FormatInt(g.ID, 10),
			g.Name,
			formatDecimal(g.Revenue),
			formatDecimal(g.Profit),
			formatDecimal(g.ProfitRange.Min),
			formatDecimal(g.ProfitRange.Max),
			formatDecimal(g.Margin),
			strconv.Itoa(g.ItemCount),
			strconv.Itoa(g.Transactions),
			formatDecimal(g.RevenueShare),
			formatDecimal(g.Change),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteAgingCSV prints the inventory aging histogram.
func WriteAgingCSV(w io.Writer, health reporting.InventoryHealth) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Bucket", "Count", "Valuation Min", "Valuation Max", "Share %"}); err != nil {
		return err
	}
	for _, b := range health.Aging {
		if err := writer.Write([]string{
			b.Bucket,
			strconv.Itoa(b.Count),
			formatDecimal(b.Valuation.Min),
			formatDecimal(b.Valuation.Max),
			formatDecimal(b.Percentage),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func rangeRecord(label string, r money.Range, bound money.Bound) []string {
	return []string{label, formatDecimal(r.Resolve(bound)), formatDecimal(r.Min), formatDecimal(r.Max)}
}

func metricTitle(m reporting.Metric) string {
	switch m {
	case reporting.MetricRevenue:
		return "Revenue"
	case reporting.MetricItemsSold:
		return "Items Sold"
	case reporting.MetricExpenses:
		return "Expenses"
	default:
		return string(m)
	}
}

func formatOptional(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	return formatDecimal(*v)
}

func formatDecimal(v decimal.Decimal) string {
	return v.StringFixed(money.RatioPlaces)
}
