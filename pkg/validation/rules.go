package validation

import "time"

// DateLayout is the accepted format for analytics date parameters.
const DateLayout = "2006-01-02"

// AnalyticsRangeRequest carries the raw query parameters of an analytics call.
// Timeframe is deliberately not constrained here: unrecognized values fall
// back to the monthly default downstream instead of failing the request.
type AnalyticsRangeRequest struct {
	StartDate string `form:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Timeframe string `form:"timeframe"`
}

// ValidateAnalyticsRange checks field formats and rejects inverted ranges.
// Returning an error here, rather than silently producing an empty window,
// keeps bad inputs visible to the caller.
func ValidateAnalyticsRange(req *AnalyticsRangeRequest) error {
	if err := ValidateStruct(req); err != nil {
		return err
	}

	if req.StartDate != "" && req.EndDate != "" {
		start, _ := time.Parse(DateLayout, req.StartDate)
		end, _ := time.Parse(DateLayout, req.EndDate)
		if start.After(end) {
			return &ValidationError{Fields: []string{"start_date must not be after end_date"}}
		}
	}

	return nil
}
