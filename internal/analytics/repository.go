package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles database operations for analytics
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new analytics repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CountBookingsByStatus retrieves per-status booking counts and paid revenue
// within the window.
func (r *Repository) CountBookingsByStatus(ctx context.Context, start, end time.Time) (*StatusBreakdown, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'paid') AS paid,
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
			COUNT(*) FILTER (WHERE status = 'expired') AS expired,
			COALESCE(SUM(amount) FILTER (WHERE status = 'paid'), 0) AS paid_revenue
		FROM bookings
		WHERE created_at >= $1
		  AND created_at <= $2
	`

	breakdown := &StatusBreakdown{}
	err := r.db.QueryRow(ctx, query, start, end).Scan(
		&breakdown.Paid,
		&breakdown.Pending,
		&breakdown.Cancelled,
		&breakdown.Expired,
		&breakdown.PaidRevenue,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings by status: %w", err)
	}

	return breakdown, nil
}

// RouteAggregates retrieves per-route booking counts and paid revenue within
// the window. Routes without bookings in the window are excluded.
func (r *Repository) RouteAggregates(ctx context.Context, start, end time.Time) ([]*RouteAggregate, error) {
	query := `
		SELECT
			r.id,
			r.origin,
			r.destination,
			COUNT(b.id) AS total_bookings,
			COUNT(b.id) FILTER (WHERE b.status = 'paid') AS paid_bookings,
			COALESCE(SUM(b.amount) FILTER (WHERE b.status = 'paid'), 0) AS paid_revenue
		FROM routes r
		LEFT JOIN trips t ON t.route_id = r.id
		LEFT JOIN bookings b ON b.trip_id = t.id
			AND b.created_at >= $1
			AND b.created_at <= $2
		GROUP BY r.id, r.origin, r.destination
		HAVING COUNT(b.id) > 0
		ORDER BY paid_revenue DESC, total_bookings DESC
	`

	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get route aggregates: %w", err)
	}
	defer rows.Close()

	var results []*RouteAggregate
	for rows.Next() {
		agg := &RouteAggregate{}
		err := rows.Scan(
			&agg.RouteID,
			&agg.Origin,
			&agg.Destination,
			&agg.TotalBookings,
			&agg.PaidBookings,
			&agg.PaidRevenue,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan route aggregate: %w", err)
		}
		results = append(results, agg)
	}

	return results, nil
}

// RouteBookingCounts retrieves a lightweight per-route booking count within
// the window, used for previous-window trend comparison.
func (r *Repository) RouteBookingCounts(ctx context.Context, start, end time.Time) ([]*RouteCount, error) {
	query := `
		SELECT
			t.route_id,
			COUNT(*) AS bookings
		FROM bookings b
		INNER JOIN trips t ON t.id = b.trip_id
		WHERE b.created_at >= $1
		  AND b.created_at <= $2
		GROUP BY t.route_id
	`

	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get route booking counts: %w", err)
	}
	defer rows.Close()

	var results []*RouteCount
	for rows.Next() {
		count := &RouteCount{}
		if err := rows.Scan(&count.RouteID, &count.Bookings); err != nil {
			return nil, fmt.Errorf("failed to scan route booking count: %w", err)
		}
		results = append(results, count)
	}

	return results, nil
}

// DailyBookingCounts retrieves day-bucketed booking counts and paid revenue
// within the window, ordered by day ascending.
func (r *Repository) DailyBookingCounts(ctx context.Context, start, end time.Time) ([]*DailyBucket, error) {
	query := `
		SELECT
			date_trunc('day', created_at) AS day,
			COUNT(*) AS bookings,
			COALESCE(SUM(amount) FILTER (WHERE status = 'paid'), 0) AS revenue
		FROM bookings
		WHERE created_at >= $1
		  AND created_at <= $2
		GROUP BY day
		ORDER BY day
	`

	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily booking counts: %w", err)
	}
	defer rows.Close()

	var results []*DailyBucket
	for rows.Next() {
		bucket := &DailyBucket{}
		if err := rows.Scan(&bucket.Day, &bucket.Bookings, &bucket.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan daily bucket: %w", err)
		}
		results = append(results, bucket)
	}

	return results, nil
}

// OccupancyTotals retrieves theoretical seat capacity (bus grid rows x seats
// per row) and booked-seat counts for trips departing within the window.
func (r *Repository) OccupancyTotals(ctx context.Context, start, end time.Time) (*OccupancyTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(bu.seat_rows * bu.seats_per_row), 0) AS total_seats,
			COALESCE(SUM(booked.occupied), 0) AS occupied_seats
		FROM trips t
		INNER JOIN buses bu ON bu.id = t.bus_id
		LEFT JOIN (
			SELECT trip_id, COUNT(*) AS occupied
			FROM trip_seats
			WHERE status = 'booked'
			GROUP BY trip_id
		) booked ON booked.trip_id = t.id
		WHERE t.departure_at >= $1
		  AND t.departure_at <= $2
	`

	totals := &OccupancyTotals{}
	err := r.db.QueryRow(ctx, query, start, end).Scan(&totals.TotalSeats, &totals.OccupiedSeats)
	if err != nil {
		return nil, fmt.Errorf("failed to get occupancy totals: %w", err)
	}

	return totals, nil
}

// OccupancyByRoute retrieves seat capacity and usage grouped by route for
// trips departing within the window.
func (r *Repository) OccupancyByRoute(ctx context.Context, start, end time.Time) ([]*RouteOccupancyRow, error) {
	query := `
		SELECT
			r.id,
			r.origin,
			r.destination,
			COALESCE(SUM(bu.seat_rows * bu.seats_per_row), 0) AS total_seats,
			COALESCE(SUM(booked.occupied), 0) AS occupied_seats
		FROM routes r
		INNER JOIN trips t ON t.route_id = r.id
		INNER JOIN buses bu ON bu.id = t.bus_id
		LEFT JOIN (
			SELECT trip_id, COUNT(*) AS occupied
			FROM trip_seats
			WHERE status = 'booked'
			GROUP BY trip_id
		) booked ON booked.trip_id = t.id
		WHERE t.departure_at >= $1
		  AND t.departure_at <= $2
		GROUP BY r.id, r.origin, r.destination
		ORDER BY occupied_seats DESC
	`

	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get occupancy by route: %w", err)
	}
	defer rows.Close()

	var results []*RouteOccupancyRow
	for rows.Next() {
		row := &RouteOccupancyRow{}
		err := rows.Scan(&row.RouteID, &row.Origin, &row.Destination, &row.TotalSeats, &row.OccupiedSeats)
		if err != nil {
			return nil, fmt.Errorf("failed to scan route occupancy: %w", err)
		}
		results = append(results, row)
	}

	return results, nil
}

// OccupancyByDay retrieves seat capacity and usage grouped by departure day
// within the window, ordered by day ascending.
func (r *Repository) OccupancyByDay(ctx context.Context, start, end time.Time) ([]*DayOccupancyRow, error) {
	query := `
		SELECT
			date_trunc('day', t.departure_at) AS day,
			COALESCE(SUM(bu.seat_rows * bu.seats_per_row), 0) AS total_seats,
			COALESCE(SUM(booked.occupied), 0) AS occupied_seats
		FROM trips t
		INNER JOIN buses bu ON bu.id = t.bus_id
		LEFT JOIN (
			SELECT trip_id, COUNT(*) AS occupied
			FROM trip_seats
			WHERE status = 'booked'
			GROUP BY trip_id
		) booked ON booked.trip_id = t.id
		WHERE t.departure_at >= $1
		  AND t.departure_at <= $2
		GROUP BY day
		ORDER BY day
	`

	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get occupancy by day: %w", err)
	}
	defer rows.Close()

	var results []*DayOccupancyRow
	for rows.Next() {
		row := &DayOccupancyRow{}
		if err := rows.Scan(&row.Day, &row.TotalSeats, &row.OccupiedSeats); err != nil {
			return nil, fmt.Errorf("failed to scan day occupancy: %w", err)
		}
		results = append(results, row)
	}

	return results, nil
}
