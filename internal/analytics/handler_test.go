package analytics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/transithub/bus-ticketing/pkg/common"
)

func setupRouter(repo BookingRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	svc := newTestService(repo)
	handler := NewHandler(svc)
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path string) (*httptest.ResponseRecorder, common.Response) {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)

	var body common.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestGetBookingSummaryEndpoint(t *testing.T) {
	repo := new(mockRepository)
	repo.On("CountBookingsByStatus", mock.Anything, mock.Anything, mock.Anything).
		Return(&StatusBreakdown{Paid: 7, Pending: 2, Cancelled: 1, PaidRevenue: 700}, nil)

	router := setupRouter(repo)
	w, body := doRequest(t, router, http.MethodGet, "/api/v1/analytics/summary?timeframe=weekly")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Success)
	require.NotNil(t, body.Data)

	data := body.Data.(map[string]interface{})
	assert.Equal(t, float64(10), data["total_bookings"])
	assert.Equal(t, float64(700), data["total_revenue"])
	assert.Equal(t, float64(70), data["conversion_rate"])
}

func TestGetBookingSummaryEndpointWithExplicitDates(t *testing.T) {
	repo := new(mockRepository)
	repo.On("CountBookingsByStatus", mock.Anything, mock.Anything, mock.Anything).
		Return(&StatusBreakdown{Paid: 1, PaidRevenue: 50}, nil)

	router := setupRouter(repo)
	w, body := doRequest(t, router, http.MethodGet,
		"/api/v1/analytics/summary?start_date=2024-01-10&end_date=2024-01-20")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Success)

	data := body.Data.(map[string]interface{})
	assert.Equal(t, "2024-01-10 to 2024-01-20", data["period"])
}

func TestMalformedDateReturns400(t *testing.T) {
	router := setupRouter(new(mockRepository))
	w, body := doRequest(t, router, http.MethodGet, "/api/v1/analytics/summary?start_date=10-01-2024")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Contains(t, body.Error.Message, "StartDate")
}

func TestInvertedDateRangeReturns400(t *testing.T) {
	router := setupRouter(new(mockRepository))
	w, body := doRequest(t, router, http.MethodGet,
		"/api/v1/analytics/summary?start_date=2024-02-01&end_date=2024-01-01")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Contains(t, body.Error.Message, "start_date must not be after end_date")
}

func TestUnknownTimeframeIsAccepted(t *testing.T) {
	repo := new(mockRepository)
	repo.On("CountBookingsByStatus", mock.Anything, mock.Anything, mock.Anything).
		Return(&StatusBreakdown{}, nil)

	router := setupRouter(repo)
	w, body := doRequest(t, router, http.MethodGet, "/api/v1/analytics/summary?timeframe=hourly")

	assert.Equal(t, http.StatusOK, w.Code, "unrecognized timeframes fall back to monthly")
	assert.True(t, body.Success)
}

func TestRepositoryFailureReturns500(t *testing.T) {
	repo := new(mockRepository)
	repo.On("CountBookingsByStatus", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	router := setupRouter(repo)
	w, body := doRequest(t, router, http.MethodGet, "/api/v1/analytics/summary")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "failed to compute summary analytics", body.Error.Message)
}

func TestGetPopularRoutesEndpoint(t *testing.T) {
	repo := new(mockRepository)
	repo.On("RouteAggregates", mock.Anything, mock.Anything, mock.Anything).
		Return([]*RouteAggregate{}, nil)
	repo.On("RouteBookingCounts", mock.Anything, mock.Anything, mock.Anything).
		Return([]*RouteCount{}, nil)

	router := setupRouter(repo)
	w, body := doRequest(t, router, http.MethodGet, "/api/v1/analytics/routes/popular")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Success)

	data := body.Data.(map[string]interface{})
	assert.Equal(t, float64(0), data["total_bookings"])
}

func TestGetSeatOccupancyEndpoint(t *testing.T) {
	repo := new(mockRepository)
	repo.On("OccupancyTotals", mock.Anything, mock.Anything, mock.Anything).
		Return(&OccupancyTotals{TotalSeats: 10, OccupiedSeats: 4}, nil)
	repo.On("OccupancyByRoute", mock.Anything, mock.Anything, mock.Anything).
		Return([]*RouteOccupancyRow{}, nil)
	repo.On("OccupancyByDay", mock.Anything, mock.Anything, mock.Anything).
		Return([]*DayOccupancyRow{}, nil)

	router := setupRouter(repo)
	w, body := doRequest(t, router, http.MethodGet, "/api/v1/analytics/occupancy")

	assert.Equal(t, http.StatusOK, w.Code)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, float64(40), data["occupancy_rate"])
}

func TestCacheStatsAndInvalidateEndpoints(t *testing.T) {
	repo := new(mockRepository)
	repo.On("CountBookingsByStatus", mock.Anything, mock.Anything, mock.Anything).
		Return(&StatusBreakdown{}, nil)

	router := setupRouter(repo)

	_, _ = doRequest(t, router, http.MethodGet, "/api/v1/analytics/summary")

	w, body := doRequest(t, router, http.MethodGet, "/api/v1/analytics/cache/stats")
	assert.Equal(t, http.StatusOK, w.Code)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["entries"])

	w, body = doRequest(t, router, http.MethodPost, "/api/v1/analytics/cache/invalidate")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Success)

	w, body = doRequest(t, router, http.MethodGet, "/api/v1/analytics/cache/stats")
	assert.Equal(t, http.StatusOK, w.Code)
	data = body.Data.(map[string]interface{})
	assert.Equal(t, float64(0), data["entries"])
}
