package analytics

import (
	"time"

	"github.com/google/uuid"
)

// Booking statuses as stored by the booking service.
const (
	StatusPaid      = "paid"
	StatusPending   = "pending"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// AnalyticsQuery is a caller-supplied, possibly partial reporting request.
// Explicit dates take precedence over the timeframe; the default timeframe
// is monthly.
type AnalyticsQuery struct {
	StartDate *time.Time
	EndDate   *time.Time
	Timeframe Timeframe
}

// cacheParams returns the canonical parameter set used for cache keying.
// The timeframe is resolved to its effective value so "", "monthly" and an
// unrecognized string all key identically.
func (q AnalyticsQuery) cacheParams() map[string]string {
	params := map[string]string{
		"timeframe": string(q.Timeframe.orDefault()),
	}
	if q.StartDate != nil {
		params["start_date"] = q.StartDate.Format(dateLayout)
	}
	if q.EndDate != nil {
		params["end_date"] = q.EndDate.Format(dateLayout)
	}
	return params
}

// BookingSummary aggregates booking counts and revenue over a window.
type BookingSummary struct {
	Period              string  `json:"period"`
	TotalBookings       int     `json:"total_bookings"`
	PaidBookings        int     `json:"paid_bookings"`
	PendingBookings     int     `json:"pending_bookings"`
	CancelledBookings   int     `json:"cancelled_bookings"`
	ExpiredBookings     int     `json:"expired_bookings"`
	TotalRevenue        float64 `json:"total_revenue"`
	AverageBookingValue float64 `json:"average_booking_value"`
	ConversionRate      float64 `json:"conversion_rate"`
}

// TrendDataPoint is one bucket of a booking trend series.
type TrendDataPoint struct {
	Label          string  `json:"label"`
	Count          int     `json:"count"`
	Revenue        float64 `json:"revenue"`
	ConversionRate float64 `json:"conversion_rate"`
}

// BookingTrends is a calendar-bucketed series with derived series metrics.
type BookingTrends struct {
	Timeframe             Timeframe        `json:"timeframe"`
	Points                []TrendDataPoint `json:"points"`
	GrowthRate            float64          `json:"growth_rate"`
	AverageConversionRate float64          `json:"average_conversion_rate"`
}

// RoutePerformance aggregates booking stats for one route over a window.
type RoutePerformance struct {
	RouteID             uuid.UUID `json:"route_id"`
	Origin              string    `json:"origin"`
	Destination         string    `json:"destination"`
	TotalBookings       int       `json:"total_bookings"`
	TotalRevenue        float64   `json:"total_revenue"`
	AverageBookingValue float64   `json:"average_booking_value"`
	ConversionRate      float64   `json:"conversion_rate"`
	PopularityRank      int       `json:"popularity_rank"`
	RevenuePercentage   float64   `json:"revenue_percentage"`
}

// RouteAnalytics is the full route ranking for a window.
type RouteAnalytics struct {
	Routes          []*RoutePerformance `json:"routes"`
	TopPerformer    *RoutePerformance   `json:"top_performer,omitempty"`
	BottomPerformer *RoutePerformance   `json:"bottom_performer,omitempty"`
	TotalRevenue    float64             `json:"total_revenue"`
}

// FunnelStep is one stage of a conversion funnel. Rates are relative to the
// immediately preceding stage; stage one is always 100 / 0.
type FunnelStep struct {
	Step           string  `json:"step"`
	Count          int     `json:"count"`
	ConversionRate float64 `json:"conversion_rate"`
	DropOffRate    float64 `json:"drop_off_rate"`
}

// ConversionFunnel is the synthetic booking funnel. Visitor and search counts
// are modeled from booking totals, not measured.
type ConversionFunnel struct {
	Steps                 []FunnelStep `json:"steps"`
	OverallConversionRate float64      `json:"overall_conversion_rate"`
	BiggestDropOff        string       `json:"biggest_drop_off"`
	Suggestions           []string     `json:"suggestions"`
}

// DailyGrowthPoint is one day of the growth report. Growth is relative to
// the previous day in the result set, so the first day is always 0.
type DailyGrowthPoint struct {
	Date     string  `json:"date"`
	Bookings int     `json:"bookings"`
	Revenue  float64 `json:"revenue"`
	Growth   float64 `json:"growth"`
}

// BookingGrowth compares the resolved window with the immediately preceding
// window of equal duration.
type BookingGrowth struct {
	CurrentBookings        int                `json:"current_bookings"`
	PreviousBookings       int                `json:"previous_bookings"`
	CurrentRevenue         float64            `json:"current_revenue"`
	PreviousRevenue        float64            `json:"previous_revenue"`
	BookingsGrowthRate     float64            `json:"bookings_growth_rate"`
	RevenueGrowthRate      float64            `json:"revenue_growth_rate"`
	BookingsGrowthAbsolute int                `json:"bookings_growth_absolute"`
	DailyGrowth            []DailyGrowthPoint `json:"daily_growth"`
}

// Route trend directions.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// PopularRoute is one entry of the booking-count ranking with its trend
// against the previous window.
type PopularRoute struct {
	RouteID          uuid.UUID `json:"route_id"`
	Origin           string    `json:"origin"`
	Destination      string    `json:"destination"`
	Bookings         int       `json:"bookings"`
	PreviousBookings int       `json:"previous_bookings"`
	MarketShare      float64   `json:"market_share"`
	Trend            string    `json:"trend"`
	Rank             int       `json:"rank"`
}

// PopularRoutes is the count-ranked route list for a window.
type PopularRoutes struct {
	Routes        []*PopularRoute `json:"routes"`
	TotalBookings int             `json:"total_bookings"`
}

// RouteOccupancy is seat occupancy for one route.
type RouteOccupancy struct {
	RouteID       uuid.UUID `json:"route_id"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	TotalSeats    int       `json:"total_seats"`
	OccupiedSeats int       `json:"occupied_seats"`
	OccupancyRate float64   `json:"occupancy_rate"`
}

// DayOccupancy is seat occupancy for one day.
type DayOccupancy struct {
	Date          string  `json:"date"`
	TotalSeats    int     `json:"total_seats"`
	OccupiedSeats int     `json:"occupied_seats"`
	OccupancyRate float64 `json:"occupancy_rate"`
}

// SeatOccupancy reports how full trips ran over a window, overall and broken
// down by route and by day.
type SeatOccupancy struct {
	TotalSeats    int              `json:"total_seats"`
	OccupiedSeats int              `json:"occupied_seats"`
	OccupancyRate float64          `json:"occupancy_rate"`
	ByRoute       []RouteOccupancy `json:"by_route"`
	ByDay         []DayOccupancy   `json:"by_day"`
}

// DetailedConversion is the five-stage synthetic funnel with derived
// conversion measures. Stage counts upstream of real bookings are modeled
// with configured multipliers.
type DetailedConversion struct {
	Stages                []FunnelStep `json:"stages"`
	SearchToBookingRate   float64      `json:"search_to_booking_rate"`
	BookingToPaymentRate  float64      `json:"booking_to_payment_rate"`
	OverallConversionRate float64      `json:"overall_conversion_rate"`
}

// CacheStats exposes memoization state for observability.
type CacheStats struct {
	Entries int `json:"entries"`
}

// StatusBreakdown is the raw per-status count row returned by the repository.
type StatusBreakdown struct {
	Paid        int
	Pending     int
	Cancelled   int
	Expired     int
	PaidRevenue float64
}

// Total returns the booking count across all statuses.
func (b StatusBreakdown) Total() int {
	return b.Paid + b.Pending + b.Cancelled + b.Expired
}

// RouteAggregate is the raw per-route aggregation row.
type RouteAggregate struct {
	RouteID       uuid.UUID
	Origin        string
	Destination   string
	TotalBookings int
	PaidBookings  int
	PaidRevenue   float64
}

// RouteCount is a lightweight per-route booking count.
type RouteCount struct {
	RouteID  uuid.UUID
	Bookings int
}

// DailyBucket is one day of raw booking counts.
type DailyBucket struct {
	Day      time.Time
	Bookings int
	Revenue  float64
}

// OccupancyTotals is the overall seat capacity and usage for a window.
type OccupancyTotals struct {
	TotalSeats    int
	OccupiedSeats int
}

// RouteOccupancyRow is the raw per-route occupancy row.
type RouteOccupancyRow struct {
	RouteID       uuid.UUID
	Origin        string
	Destination   string
	TotalSeats    int
	OccupiedSeats int
}

// DayOccupancyRow is the raw per-day occupancy row.
type DayOccupancyRow struct {
	Day           time.Time
	TotalSeats    int
	OccupiedSeats int
}
