package analytics

import "time"

const dateLayout = "2006-01-02"

// Timeframe names a reporting period length.
type Timeframe string

const (
	TimeframeDaily     Timeframe = "daily"
	TimeframeWeekly    Timeframe = "weekly"
	TimeframeMonthly   Timeframe = "monthly"
	TimeframeQuarterly Timeframe = "quarterly"
	TimeframeYearly    Timeframe = "yearly"
)

// ParseTimeframe maps a raw query value to a Timeframe. Matching is
// case-sensitive; anything unrecognized falls back to monthly.
func ParseTimeframe(s string) Timeframe {
	switch Timeframe(s) {
	case TimeframeDaily, TimeframeWeekly, TimeframeMonthly, TimeframeQuarterly, TimeframeYearly:
		return Timeframe(s)
	}
	return TimeframeMonthly
}

func (t Timeframe) orDefault() Timeframe {
	return ParseTimeframe(string(t))
}

// TimeWindow is a resolved, inclusive reporting interval.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the window length.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Previous returns the immediately preceding window of equal duration.
func (w TimeWindow) Previous() TimeWindow {
	end := w.Start.Add(-time.Nanosecond)
	return TimeWindow{Start: end.Add(-w.Duration()), End: end}
}

// Label formats the window for report headers.
func (w TimeWindow) Label() string {
	return w.Start.Format(dateLayout) + " to " + w.End.Format(dateLayout)
}

// ResolveWindow turns a possibly partial query into concrete boundaries.
// Explicit dates win over the timeframe; ordering of explicit dates is the
// handler's concern, not resolved here. Weeks start on Monday.
func ResolveWindow(q AnalyticsQuery, now time.Time) TimeWindow {
	if q.StartDate != nil && q.EndDate != nil {
		return TimeWindow{Start: startOfDay(*q.StartDate), End: endOfDay(*q.EndDate)}
	}

	switch q.Timeframe.orDefault() {
	case TimeframeDaily:
		return TimeWindow{Start: startOfDay(now), End: endOfDay(now)}
	case TimeframeWeekly:
		return TimeWindow{Start: startOfWeek(now), End: endOfWeek(now)}
	case TimeframeQuarterly:
		return TimeWindow{Start: startOfMonth(now).AddDate(0, -3, 0), End: endOfDay(now)}
	case TimeframeYearly:
		return TimeWindow{Start: startOfMonth(now).AddDate(0, -12, 0), End: endOfDay(now)}
	default: // monthly
		return TimeWindow{Start: startOfMonth(now).AddDate(0, -1, 0), End: endOfDay(now)}
	}
}

// TrendBucket is one calendar-aligned sub-interval of a trend series.
// Start and End are clamped to the enclosing window so counts never leak
// past the requested range; Label keeps the full unit's anchor.
type TrendBucket struct {
	Label string
	Start time.Time
	End   time.Time
}

// TrendBuckets splits a window into calendar-aligned buckets. Short
// timeframes bucket by day, monthly and quarterly by ISO week, yearly by
// calendar month. Buckets are calendar units, not fixed durations.
func TrendBuckets(window TimeWindow, timeframe Timeframe) []TrendBucket {
	var (
		unitStart func(time.Time) time.Time
		advance   func(time.Time) time.Time
		format    string
	)

	switch timeframe.orDefault() {
	case TimeframeDaily, TimeframeWeekly:
		unitStart = startOfDay
		advance = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
		format = dateLayout
	case TimeframeYearly:
		unitStart = startOfMonth
		advance = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
		format = "Jan 2006"
	default: // monthly, quarterly
		unitStart = startOfWeek
		advance = func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
		format = "Jan 02"
	}

	var buckets []TrendBucket
	for anchor := unitStart(window.Start); !anchor.After(window.End); anchor = advance(anchor) {
		bucketStart := anchor
		bucketEnd := advance(anchor).Add(-time.Nanosecond)

		if bucketStart.Before(window.Start) {
			bucketStart = window.Start
		}
		if bucketEnd.After(window.End) {
			bucketEnd = window.End
		}

		buckets = append(buckets, TrendBucket{
			Label: anchor.Format(format),
			Start: bucketStart,
			End:   bucketEnd,
		})
	}
	return buckets
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// startOfWeek returns the preceding (or current) Monday at midnight.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return startOfDay(t).AddDate(0, 0, -offset)
}

func endOfWeek(t time.Time) time.Time {
	return startOfWeek(t).AddDate(0, 0, 7).Add(-time.Nanosecond)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
