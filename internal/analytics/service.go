package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/transithub/bus-ticketing/pkg/cache"
	"github.com/transithub/bus-ticketing/pkg/config"
	"github.com/transithub/bus-ticketing/pkg/logger"
)

// Per-operation cache TTLs. Summaries are the cheapest to recompute and the
// most visible, so they stay freshest; route-level reports can lag longer.
const (
	summaryTTL   = 5 * time.Minute
	trendsTTL    = 10 * time.Minute
	funnelTTL    = 10 * time.Minute
	growthTTL    = 10 * time.Minute
	detailedTTL  = 10 * time.Minute
	routesTTL    = 15 * time.Minute
	popularTTL   = 15 * time.Minute
	occupancyTTL = 15 * time.Minute
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_cache_hits_total",
		Help: "Analytics cache hits by method",
	}, []string{"method"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_cache_misses_total",
		Help: "Analytics cache misses by method",
	}, []string{"method"})
)

// BookingRepository is the data-access surface the aggregation engine needs.
type BookingRepository interface {
	CountBookingsByStatus(ctx context.Context, start, end time.Time) (*StatusBreakdown, error)
	RouteAggregates(ctx context.Context, start, end time.Time) ([]*RouteAggregate, error)
	RouteBookingCounts(ctx context.Context, start, end time.Time) ([]*RouteCount, error)
	DailyBookingCounts(ctx context.Context, start, end time.Time) ([]*DailyBucket, error)
	OccupancyTotals(ctx context.Context, start, end time.Time) (*OccupancyTotals, error)
	OccupancyByRoute(ctx context.Context, start, end time.Time) ([]*RouteOccupancyRow, error)
	OccupancyByDay(ctx context.Context, start, end time.Time) ([]*DayOccupancyRow, error)
}

// Service computes booking analytics and memoizes results in-process.
type Service struct {
	repo   BookingRepository
	cache  *cache.Cache
	funnel config.FunnelConfig
	now    func() time.Time
}

// NewService creates a new analytics service
func NewService(repo BookingRepository, c *cache.Cache, funnel config.FunnelConfig) *Service {
	return &Service{
		repo:   repo,
		cache:  c,
		funnel: funnel,
		now:    time.Now,
	}
}

// withCache memoizes one analytics method under its canonical key. Errors from
// compute pass through uncached; a stale-typed hit is treated as a server bug.
func withCache[T any](ctx context.Context, s *Service, method string, q AnalyticsQuery, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	key := cache.GenerateKey(method, q.cacheParams())
	value, hit, err := s.cache.GetOrCompute(ctx, key, ttl, func(ctx context.Context) (interface{}, error) {
		return compute(ctx)
	})
	if err != nil {
		return zero, err
	}

	if hit {
		cacheHits.WithLabelValues(method).Inc()
	} else {
		cacheMisses.WithLabelValues(method).Inc()
	}

	result, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("cache entry %s holds unexpected type %T", key, value)
	}
	return result, nil
}

// percent returns part/whole as a percentage, 0 when whole is 0.
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// safeDiv returns numerator/denominator, 0 when the denominator is 0.
func safeDiv(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// changeRate returns the relative change from previous to current as a
// percentage, 0 when previous is 0.
func changeRate(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// GetBookingSummary returns status counts, revenue and conversion for the
// resolved window.
func (s *Service) GetBookingSummary(ctx context.Context, q AnalyticsQuery) (*BookingSummary, error) {
	return withCache(ctx, s, "summary", q, summaryTTL, func(ctx context.Context) (*BookingSummary, error) {
		window := ResolveWindow(q, s.now())

		breakdown, err := s.repo.CountBookingsByStatus(ctx, window.Start, window.End)
		if err != nil {
			return nil, fmt.Errorf("failed to build booking summary: %w", err)
		}

		total := breakdown.Total()
		return &BookingSummary{
			Period:              window.Label(),
			TotalBookings:       total,
			PaidBookings:        breakdown.Paid,
			PendingBookings:     breakdown.Pending,
			CancelledBookings:   breakdown.Cancelled,
			ExpiredBookings:     breakdown.Expired,
			TotalRevenue:        breakdown.PaidRevenue,
			AverageBookingValue: safeDiv(breakdown.PaidRevenue, float64(breakdown.Paid)),
			ConversionRate:      percent(breakdown.Paid, total),
		}, nil
	})
}

// GetBookingTrends returns a calendar-bucketed booking series for the
// resolved window. Bucket queries run concurrently and are reassembled in
// bucket order.
func (s *Service) GetBookingTrends(ctx context.Context, q AnalyticsQuery) (*BookingTrends, error) {
	return withCache(ctx, s, "trends", q, trendsTTL, func(ctx context.Context) (*BookingTrends, error) {
		timeframe := q.Timeframe.orDefault()
		window := ResolveWindow(q, s.now())
		buckets := TrendBuckets(window, timeframe)

		points := make([]TrendDataPoint, len(buckets))
		g, gctx := errgroup.WithContext(ctx)
		for i, bucket := range buckets {
			i, bucket := i, bucket
			g.Go(func() error {
				breakdown, err := s.repo.CountBookingsByStatus(gctx, bucket.Start, bucket.End)
				if err != nil {
					return fmt.Errorf("failed to build trend bucket %s: %w", bucket.Label, err)
				}
				points[i] = TrendDataPoint{
					Label:          bucket.Label,
					Count:          breakdown.Total(),
					Revenue:        breakdown.PaidRevenue,
					ConversionRate: percent(breakdown.Paid, breakdown.Total()),
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		trends := &BookingTrends{
			Timeframe: timeframe,
			Points:    points,
		}
		if len(points) >= 2 {
			trends.GrowthRate = changeRate(points[len(points)-1].Revenue, points[0].Revenue)
		}
		if len(points) > 0 {
			var sum float64
			for _, p := range points {
				sum += p.ConversionRate
			}
			trends.AverageConversionRate = sum / float64(len(points))
		}
		return trends, nil
	})
}

// GetRouteAnalytics returns the revenue-ranked per-route performance report.
func (s *Service) GetRouteAnalytics(ctx context.Context, q AnalyticsQuery) (*RouteAnalytics, error) {
	return withCache(ctx, s, "routes", q, routesTTL, func(ctx context.Context) (*RouteAnalytics, error) {
		window := ResolveWindow(q, s.now())

		aggregates, err := s.repo.RouteAggregates(ctx, window.Start, window.End)
		if err != nil {
			return nil, fmt.Errorf("failed to build route analytics: %w", err)
		}

		var totalRevenue float64
		routes := make([]*RoutePerformance, 0, len(aggregates))
		for _, agg := range aggregates {
			totalRevenue += agg.PaidRevenue
			routes = append(routes, &RoutePerformance{
				RouteID:             agg.RouteID,
				Origin:              agg.Origin,
				Destination:         agg.Destination,
				TotalBookings:       agg.TotalBookings,
				TotalRevenue:        agg.PaidRevenue,
				AverageBookingValue: safeDiv(agg.PaidRevenue, float64(agg.PaidBookings)),
				ConversionRate:      percent(agg.PaidBookings, agg.TotalBookings),
			})
		}

		// Revenue order decides the report and the rank; ties keep
		// repository order.
		sort.SliceStable(routes, func(i, j int) bool {
			return routes[i].TotalRevenue > routes[j].TotalRevenue
		})
		for i, route := range routes {
			route.PopularityRank = i + 1
			route.RevenuePercentage = safeDiv(route.TotalRevenue, totalRevenue) * 100
		}

		result := &RouteAnalytics{
			Routes:       routes,
			TotalRevenue: totalRevenue,
		}
		if len(routes) > 0 {
			result.TopPerformer = routes[0]
			result.BottomPerformer = routes[len(routes)-1]
		}
		return result, nil
	})
}

// GetConversionFunnel returns the four-step synthetic conversion funnel for
// the resolved window. Upstream step counts are modeled from booking totals
// because there is no visitor telemetry.
func (s *Service) GetConversionFunnel(ctx context.Context, q AnalyticsQuery) (*ConversionFunnel, error) {
	return withCache(ctx, s, "funnel", q, funnelTTL, func(ctx context.Context) (*ConversionFunnel, error) {
		window := ResolveWindow(q, s.now())

		breakdown, err := s.repo.CountBookingsByStatus(ctx, window.Start, window.End)
		if err != nil {
			return nil, fmt.Errorf("failed to build conversion funnel: %w", err)
		}

		total := breakdown.Total()
		counts := []int{
			int(float64(total) * s.funnel.VisitorMultiplier),
			total + breakdown.Pending + breakdown.Cancelled,
			total,
			breakdown.Paid,
		}
		names := []string{"Visitors", "Search Results", "Route Selection", "Payment"}

		steps := buildFunnelSteps(names, counts)
		funnel := &ConversionFunnel{
			Steps:                 steps,
			OverallConversionRate: percent(breakdown.Paid, counts[0]),
			BiggestDropOff:        biggestDropOff(steps),
			Suggestions:           funnelSuggestions(steps, percent(breakdown.Paid, counts[0])),
		}
		return funnel, nil
	})
}

// GetBookingGrowth compares the resolved window with the immediately
// preceding window of equal duration, with a day-by-day growth series.
func (s *Service) GetBookingGrowth(ctx context.Context, q AnalyticsQuery) (*BookingGrowth, error) {
	return withCache(ctx, s, "growth", q, growthTTL, func(ctx context.Context) (*BookingGrowth, error) {
		window := ResolveWindow(q, s.now())
		previous := window.Previous()

		var (
			current  *StatusBreakdown
			prior    *StatusBreakdown
			daily    []*DailyBucket
			g, gctx  = errgroup.WithContext(ctx)
		)
		g.Go(func() error {
			var err error
			current, err = s.repo.CountBookingsByStatus(gctx, window.Start, window.End)
			return err
		})
		g.Go(func() error {
			var err error
			prior, err = s.repo.CountBookingsByStatus(gctx, previous.Start, previous.End)
			return err
		})
		g.Go(func() error {
			var err error
			daily, err = s.repo.DailyBookingCounts(gctx, window.Start, window.End)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("failed to build booking growth: %w", err)
		}

		dailyGrowth := make([]DailyGrowthPoint, len(daily))
		for i, bucket := range daily {
			point := DailyGrowthPoint{
				Date:     bucket.Day.Format(dateLayout),
				Bookings: bucket.Bookings,
				Revenue:  bucket.Revenue,
			}
			if i > 0 {
				point.Growth = changeRate(float64(bucket.Bookings), float64(daily[i-1].Bookings))
			}
			dailyGrowth[i] = point
		}

		return &BookingGrowth{
			CurrentBookings:        current.Total(),
			PreviousBookings:       prior.Total(),
			CurrentRevenue:         current.PaidRevenue,
			PreviousRevenue:        prior.PaidRevenue,
			BookingsGrowthRate:     changeRate(float64(current.Total()), float64(prior.Total())),
			RevenueGrowthRate:      changeRate(current.PaidRevenue, prior.PaidRevenue),
			BookingsGrowthAbsolute: current.Total() - prior.Total(),
			DailyGrowth:            dailyGrowth,
		}, nil
	})
}

// GetPopularRoutes returns the booking-count ranking with per-route trend
// direction against the previous window.
func (s *Service) GetPopularRoutes(ctx context.Context, q AnalyticsQuery) (*PopularRoutes, error) {
	return withCache(ctx, s, "popular_routes", q, popularTTL, func(ctx context.Context) (*PopularRoutes, error) {
		window := ResolveWindow(q, s.now())
		previous := window.Previous()

		var (
			aggregates []*RouteAggregate
			priorCount []*RouteCount
			g, gctx    = errgroup.WithContext(ctx)
		)
		g.Go(func() error {
			var err error
			aggregates, err = s.repo.RouteAggregates(gctx, window.Start, window.End)
			return err
		})
		g.Go(func() error {
			var err error
			priorCount, err = s.repo.RouteBookingCounts(gctx, previous.Start, previous.End)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("failed to build popular routes: %w", err)
		}

		priorByRoute := make(map[string]int, len(priorCount))
		for _, count := range priorCount {
			priorByRoute[count.RouteID.String()] = count.Bookings
		}

		totalBookings := 0
		for _, agg := range aggregates {
			totalBookings += agg.TotalBookings
		}

		routes := make([]*PopularRoute, 0, len(aggregates))
		for _, agg := range aggregates {
			prior := priorByRoute[agg.RouteID.String()]
			routes = append(routes, &PopularRoute{
				RouteID:          agg.RouteID,
				Origin:           agg.Origin,
				Destination:      agg.Destination,
				Bookings:         agg.TotalBookings,
				PreviousBookings: prior,
				MarketShare:      percent(agg.TotalBookings, totalBookings),
				Trend:            trendDirection(agg.TotalBookings, prior),
			})
		}

		sort.SliceStable(routes, func(i, j int) bool {
			return routes[i].Bookings > routes[j].Bookings
		})
		for i, route := range routes {
			route.Rank = i + 1
		}

		return &PopularRoutes{
			Routes:        routes,
			TotalBookings: totalBookings,
		}, nil
	})
}

// GetSeatOccupancy reports how full trips ran over the resolved window.
func (s *Service) GetSeatOccupancy(ctx context.Context, q AnalyticsQuery) (*SeatOccupancy, error) {
	return withCache(ctx, s, "occupancy", q, occupancyTTL, func(ctx context.Context) (*SeatOccupancy, error) {
		window := ResolveWindow(q, s.now())

		var (
			totals  *OccupancyTotals
			byRoute []*RouteOccupancyRow
			byDay   []*DayOccupancyRow
			g, gctx = errgroup.WithContext(ctx)
		)
		g.Go(func() error {
			var err error
			totals, err = s.repo.OccupancyTotals(gctx, window.Start, window.End)
			return err
		})
		g.Go(func() error {
			var err error
			byRoute, err = s.repo.OccupancyByRoute(gctx, window.Start, window.End)
			return err
		})
		g.Go(func() error {
			var err error
			byDay, err = s.repo.OccupancyByDay(gctx, window.Start, window.End)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("failed to build seat occupancy: %w", err)
		}

		occupancy := &SeatOccupancy{
			TotalSeats:    totals.TotalSeats,
			OccupiedSeats: totals.OccupiedSeats,
			OccupancyRate: percent(totals.OccupiedSeats, totals.TotalSeats),
			ByRoute:       make([]RouteOccupancy, 0, len(byRoute)),
			ByDay:         make([]DayOccupancy, 0, len(byDay)),
		}
		for _, row := range byRoute {
			occupancy.ByRoute = append(occupancy.ByRoute, RouteOccupancy{
				RouteID:       row.RouteID,
				Origin:        row.Origin,
				Destination:   row.Destination,
				TotalSeats:    row.TotalSeats,
				OccupiedSeats: row.OccupiedSeats,
				OccupancyRate: percent(row.OccupiedSeats, row.TotalSeats),
			})
		}
		for _, row := range byDay {
			occupancy.ByDay = append(occupancy.ByDay, DayOccupancy{
				Date:          row.Day.Format(dateLayout),
				TotalSeats:    row.TotalSeats,
				OccupiedSeats: row.OccupiedSeats,
				OccupancyRate: percent(row.OccupiedSeats, row.TotalSeats),
			})
		}
		return occupancy, nil
	})
}

// GetDetailedConversion returns the five-stage synthetic funnel with derived
// conversion measures. Stage multipliers come from configuration.
func (s *Service) GetDetailedConversion(ctx context.Context, q AnalyticsQuery) (*DetailedConversion, error) {
	return withCache(ctx, s, "detailed_conversion", q, detailedTTL, func(ctx context.Context) (*DetailedConversion, error) {
		window := ResolveWindow(q, s.now())

		breakdown, err := s.repo.CountBookingsByStatus(ctx, window.Start, window.End)
		if err != nil {
			return nil, fmt.Errorf("failed to build detailed conversion: %w", err)
		}

		total := breakdown.Total()
		counts := []int{
			int(float64(total) * s.funnel.VisitMultiplier),
			int(float64(total) * s.funnel.SearchMultiplier),
			int(float64(total) * s.funnel.SelectionMultiplier),
			int(float64(total) * s.funnel.InitiatedMultiplier),
			breakdown.Paid,
		}
		names := []string{"Site Visits", "Trip Searches", "Seat Selection", "Payment Initiated", "Payment Completed"}

		return &DetailedConversion{
			Stages:                buildFunnelSteps(names, counts),
			SearchToBookingRate:   percent(total, counts[1]),
			BookingToPaymentRate:  percent(breakdown.Paid, total),
			OverallConversionRate: percent(breakdown.Paid, counts[0]),
		}, nil
	})
}

// InvalidateCache drops every memoized result. Invalidation is coarse on
// purpose; booking writes can affect any window, and recomputation is cheap
// relative to serving stale aggregates.
func (s *Service) InvalidateCache() {
	s.cache.Clear()
	logger.Info("analytics cache invalidated")
}

// CacheStats exposes the memoization entry count.
func (s *Service) CacheStats() CacheStats {
	return CacheStats{Entries: s.cache.Len()}
}

// buildFunnelSteps derives per-stage conversion and drop-off rates. The first
// stage is pinned to 100/0; a zero predecessor yields 0 rates rather than NaN.
func buildFunnelSteps(names []string, counts []int) []FunnelStep {
	steps := make([]FunnelStep, len(names))
	for i := range names {
		step := FunnelStep{Step: names[i], Count: counts[i]}
		if i == 0 {
			step.ConversionRate = 100
		} else if counts[i-1] > 0 {
			step.ConversionRate = percent(counts[i], counts[i-1])
			step.DropOffRate = 100 - step.ConversionRate
		}
		steps[i] = step
	}
	return steps
}

// biggestDropOff names the stage losing the largest share of its predecessor.
// Stage one never qualifies; its drop-off is 0 by definition.
func biggestDropOff(steps []FunnelStep) string {
	name := ""
	worst := 0.0
	for _, step := range steps[1:] {
		if step.DropOffRate > worst {
			worst = step.DropOffRate
			name = step.Step
		}
	}
	return name
}

func funnelSuggestions(steps []FunnelStep, overallRate float64) []string {
	var suggestions []string
	for _, step := range steps[1:] {
		if step.DropOffRate > 50 {
			suggestions = append(suggestions, fmt.Sprintf("High drop-off at %s (%.1f%%); review this step's UX", step.Step, step.DropOffRate))
		}
	}
	if overallRate < 10 {
		suggestions = append(suggestions, "Overall conversion is below 10%; consider retargeting abandoned searches")
	}
	return suggestions
}

func trendDirection(current, previous int) string {
	switch {
	case current > previous:
		return TrendUp
	case current < previous:
		return TrendDown
	default:
		return TrendStable
	}
}
