package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	return at(s, 0)
}

func TestBuildPeriodsAreContiguousAndClipped(t *testing.T) {
	for _, g := range []Granularity{GranularityDay, GranularityWeek, GranularityMonth} {
		start, end := day("2023-12-27"), day("2024-02-03")
		periods := buildPeriods(start, end, g)
		require.NotEmpty(t, periods, g)

		assert.Equal(t, start, periods[0].window.Start, g)
		assert.Equal(t, end.AddDate(0, 0, 1), periods[len(periods)-1].window.End, g)
		for i := 1; i < len(periods); i++ {
			assert.Equal(t, periods[i-1].window.End, periods[i].window.Start, g)
		}
	}
}

func TestBuildPeriodLabels(t *testing.T) {
	weeks := buildPeriods(day("2023-12-30"), day("2024-01-08"), GranularityWeek)
	require.Len(t, weeks, 3)
	assert.Equal(t, "2023-W52", weeks[0].label)
	assert.Equal(t, "2024-W01", weeks[1].label)
	assert.Equal(t, "2024-W02", weeks[2].label)

	months := buildPeriods(day("2023-12-30"), day("2024-01-08"), GranularityMonth)
	require.Len(t, months, 2)
	assert.Equal(t, "2023-12", months[0].label)
	assert.Equal(t, "2024-01", months[1].label)

	days := buildPeriods(day("2024-02-28"), day("2024-03-01"), GranularityDay)
	require.Len(t, days, 3)
	assert.Equal(t, "2024-02-29", days[1].label)
}

func TestBuildPeriodsEmptyWhenInverted(t *testing.T) {
	assert.Empty(t, buildPeriods(day("2024-03-02"), day("2024-03-01"), GranularityDay))
}

func TestLocatePeriod(t *testing.T) {
	periods := buildPeriods(day("2024-03-01"), day("2024-03-31"), GranularityWeek)

	assert.Equal(t, 0, locatePeriod(periods, day("2024-03-01")))
	assert.Equal(t, 1, locatePeriod(periods, at("2024-03-10", 23)))
	assert.Equal(t, 2, locatePeriod(periods, day("2024-03-11")))
	assert.Equal(t, len(periods)-1, locatePeriod(periods, at("2024-03-31", 23)))
	assert.Equal(t, -1, locatePeriod(periods, day("2024-04-01")))
	assert.Equal(t, -1, locatePeriod(periods, at("2024-02-29", 23)))
}
