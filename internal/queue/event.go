// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types carried by ReservationEvent.Type.
const (
    EventCreated   = "reservation.created"
    EventPaid      = "reservation.paid"
    EventCheckedIn = "reservation.checked_in"
    EventCompleted = "reservation.completed"
    EventCancelled = "reservation.cancelled"
    EventNoShow    = "reservation.no_show"
    EventExpired   = "reservation.expired"
)

// ReservationEvent is published on every reservation lifecycle
// transition.  It carries enough for downstream consumers to log,
// notify or feed analytics without querying the primary database.
type ReservationEvent struct {
    Type          string `json:"type"`
    ReservationID uint64 `json:"reservation_id"`
    Code          string `json:"code"`
    UserID        uint64 `json:"user_id"`
    SeatID        uint64 `json:"seat_id"`
    StartsAt      string `json:"starts_at"`
    EndsAt        string `json:"ends_at"`
    Status        string `json:"status"`
    PaymentStatus string `json:"payment_status"`
    TotalCents    int64  `json:"total_cents"`
    OccurredAt    string `json:"occurred_at"`
}
