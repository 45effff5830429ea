package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Subjects for ticketing events. Any subject under bookings.> or payments.>
// signals a booking-state mutation and must invalidate analytics caches.
const (
	SubjectBookingCreated   = "bookings.created"
	SubjectBookingConfirmed = "bookings.confirmed"
	SubjectBookingCancelled = "bookings.cancelled"
	SubjectBookingExpired   = "bookings.expired"

	SubjectPaymentCompleted = "payments.completed"
	SubjectPaymentFailed    = "payments.failed"
	SubjectPaymentRefunded  = "payments.refunded"

	SubjectTripScheduled = "trips.scheduled"
	SubjectTripCancelled = "trips.cancelled"
)

// Event is the envelope for all events published through the bus.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent creates a new event with a unique ID and current timestamp.
func NewEvent(eventType, source string, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal event data: %w", err)
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// BookingEventData is the payload attached to booking lifecycle events.
type BookingEventData struct {
	BookingID uuid.UUID `json:"booking_id"`
	TripID    uuid.UUID `json:"trip_id"`
	RouteID   uuid.UUID `json:"route_id"`
	Status    string    `json:"status"`
	Amount    float64   `json:"amount"`
}

// PaymentEventData is the payload attached to payment events.
type PaymentEventData struct {
	PaymentID uuid.UUID `json:"payment_id"`
	BookingID uuid.UUID `json:"booking_id"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
}
