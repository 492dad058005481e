package reporting

import (
	"fmt"
	"sort"
	"time"
)

// period is one calendar bucket of a time series, clipped to the request.
type period struct {
	label  string
	window Window
}

// buildPeriods returns the contiguous buckets covering the inclusive dates
// [start, end]. Buckets that start before start or end after end are
// clipped, so every period lies inside the requested range.
func buildPeriods(start, end time.Time, g Granularity) []period {
	start, end = truncateDay(start), truncateDay(end)
	if start.After(end) {
		return nil
	}
	limit := end.AddDate(0, 0, 1)
	var periods []period
	for cur := bucketStart(start, g); cur.Before(limit); cur = nextBucket(cur, g) {
		w := Window{Start: cur, End: nextBucket(cur, g)}
		if w.Start.Before(start) {
			w.Start = start
		}
		if w.End.After(limit) {
			w.End = limit
		}
		periods = append(periods, period{label: periodLabel(cur, g), window: w})
	}
	return periods
}

// locatePeriod returns the index of the bucket containing t, or -1.
func locatePeriod(periods []period, t time.Time) int {
	i := sort.Search(len(periods), func(i int) bool {
		return periods[i].window.End.After(t)
	})
	if i < len(periods) && periods[i].window.Contains(t) {
		return i
	}
	return -1
}

func bucketStart(t time.Time, g Granularity) time.Time {
	day := truncateDay(t)
	switch g {
	case GranularityWeek:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case GranularityMonth:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

func nextBucket(t time.Time, g Granularity) time.Time {
	switch g {
	case GranularityWeek:
		return t.AddDate(0, 0, 7)
	case GranularityMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

func periodLabel(t time.Time, g Granularity) string {
	switch g {
	case GranularityWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case GranularityMonth:
		return t.Format("2006-01")
	default:
		return t.Format(DateLayout)
	}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
