package analytics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/transithub/bus-ticketing/pkg/common"
	"github.com/transithub/bus-ticketing/pkg/validation"
)

// Handler exposes the analytics service over HTTP.
type Handler struct {
	service *Service
}

// NewHandler creates a new analytics handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the analytics endpoints on the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	analytics := rg.Group("/analytics")
	{
		analytics.GET("/summary", h.GetBookingSummary)
		analytics.GET("/trends", h.GetBookingTrends)
		analytics.GET("/routes", h.GetRouteAnalytics)
		analytics.GET("/routes/popular", h.GetPopularRoutes)
		analytics.GET("/funnel", h.GetConversionFunnel)
		analytics.GET("/funnel/detailed", h.GetDetailedConversion)
		analytics.GET("/growth", h.GetBookingGrowth)
		analytics.GET("/occupancy", h.GetSeatOccupancy)
		analytics.GET("/cache/stats", h.GetCacheStats)
		analytics.POST("/cache/invalidate", h.InvalidateCache)
	}
}

// parseQuery binds and validates the shared analytics query parameters.
func parseQuery(c *gin.Context) (AnalyticsQuery, error) {
	var req validation.AnalyticsRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		return AnalyticsQuery{}, err
	}
	if err := validation.ValidateAnalyticsRange(&req); err != nil {
		return AnalyticsQuery{}, err
	}

	query := AnalyticsQuery{Timeframe: ParseTimeframe(req.Timeframe)}
	if req.StartDate != "" {
		start, _ := time.Parse(validation.DateLayout, req.StartDate)
		query.StartDate = &start
	}
	if req.EndDate != "" {
		end, _ := time.Parse(validation.DateLayout, req.EndDate)
		query.EndDate = &end
	}
	return query, nil
}

// serve runs one analytics operation behind the shared query parsing and
// error mapping.
func serve[T any](c *gin.Context, operation string, fn func(AnalyticsQuery) (T, error)) {
	query, err := parseQuery(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := fn(query)
	if common.HandleServiceError(c, err, "failed to compute "+operation+" analytics") {
		return
	}

	common.SuccessResponse(c, result)
}

// GetBookingSummary handles GET /analytics/summary
func (h *Handler) GetBookingSummary(c *gin.Context) {
	serve(c, "summary", func(q AnalyticsQuery) (*BookingSummary, error) {
		return h.service.GetBookingSummary(c.Request.Context(), q)
	})
}

// GetBookingTrends handles GET /analytics/trends
func (h *Handler) GetBookingTrends(c *gin.Context) {
	serve(c, "trends", func(q AnalyticsQuery) (*BookingTrends, error) {
		return h.service.GetBookingTrends(c.Request.Context(), q)
	})
}

// GetRouteAnalytics handles GET /analytics/routes
func (h *Handler) GetRouteAnalytics(c *gin.Context) {
	serve(c, "routes", func(q AnalyticsQuery) (*RouteAnalytics, error) {
		return h.service.GetRouteAnalytics(c.Request.Context(), q)
	})
}

// GetPopularRoutes handles GET /analytics/routes/popular
func (h *Handler) GetPopularRoutes(c *gin.Context) {
	serve(c, "popular_routes", func(q AnalyticsQuery) (*PopularRoutes, error) {
		return h.service.GetPopularRoutes(c.Request.Context(), q)
	})
}

// GetConversionFunnel handles GET /analytics/funnel
func (h *Handler) GetConversionFunnel(c *gin.Context) {
	serve(c, "funnel", func(q AnalyticsQuery) (*ConversionFunnel, error) {
		return h.service.GetConversionFunnel(c.Request.Context(), q)
	})
}

// GetDetailedConversion handles GET /analytics/funnel/detailed
func (h *Handler) GetDetailedConversion(c *gin.Context) {
	serve(c, "detailed_conversion", func(q AnalyticsQuery) (*DetailedConversion, error) {
		return h.service.GetDetailedConversion(c.Request.Context(), q)
	})
}

// GetBookingGrowth handles GET /analytics/growth
func (h *Handler) GetBookingGrowth(c *gin.Context) {
	serve(c, "growth", func(q AnalyticsQuery) (*BookingGrowth, error) {
		return h.service.GetBookingGrowth(c.Request.Context(), q)
	})
}

// GetSeatOccupancy handles GET /analytics/occupancy
func (h *Handler) GetSeatOccupancy(c *gin.Context) {
	serve(c, "occupancy", func(q AnalyticsQuery) (*SeatOccupancy, error) {
		return h.service.GetSeatOccupancy(c.Request.Context(), q)
	})
}

// GetCacheStats handles GET /analytics/cache/stats
func (h *Handler) GetCacheStats(c *gin.Context) {
	common.SuccessResponse(c, h.service.CacheStats())
}

// InvalidateCache handles POST /analytics/cache/invalidate
func (h *Handler) InvalidateCache(c *gin.Context) {
	h.service.InvalidateCache()
	common.SuccessResponse(c, gin.H{"invalidated": true})
}
