package model

import "time"

// Reservation statuses.  ACTIVE is the only non-terminal status;
// COMPLETED, CANCELLED, NO_SHOW and EXPIRED are terminal and permit no
// further transition.  Rows are never deleted, only moved to a
// terminal status, so the table doubles as an audit trail.
const (
    ReservationActive    = "ACTIVE"
    ReservationCompleted = "COMPLETED"
    ReservationCancelled = "CANCELLED"
    ReservationNoShow    = "NO_SHOW"
    ReservationExpired   = "EXPIRED"
)

// Payment statuses for a reservation.
const (
    PaymentPending  = "PENDING"
    PaymentPaid     = "PAID"
    PaymentRefunded = "REFUNDED"
    PaymentFailed   = "FAILED"
)

// Reservation records a user's claim on a seat for a half-open time
// interval [StartsAt, EndsAt).  Back-to-back reservations sharing a
// boundary instant do not conflict.
//
// Fields:
//  ID            – primary key identifier.
//  Code          – unique human-readable code, shareable externally.
//  UserID        – user who made the reservation.
//  SeatID        – seat being reserved.
//  StartsAt      – interval start (inclusive), UTC.
//  EndsAt        – interval end (exclusive), UTC; must be after StartsAt.
//  Status        – reservation state, see constants above.
//  PaymentStatus – payment state, see constants above.
//  TotalCents    – room hourly rate times duration, rounded half-up
//                  to the minor unit.
//  CheckInAt     – when the user checked in (nil before check-in);
//                  always within [StartsAt, EndsAt).
//  CheckOutAt    – when the user checked out (nil before check-out);
//                  never before CheckInAt.
//  Notes         – optional free-form note from the user.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Reservation struct {
    ID            uint64     // reservations.id
    Code          string     // reservations.code
    UserID        uint64     // reservations.user_id
    SeatID        uint64     // reservations.seat_id
    StartsAt      time.Time  // reservations.starts_at
    EndsAt        time.Time  // reservations.ends_at
    Status        string     // reservations.status
    PaymentStatus string     // reservations.payment_status
    TotalCents    int64      // reservations.total_cents
    CheckInAt     *time.Time // reservations.check_in_at (nullable)
    CheckOutAt    *time.Time // reservations.check_out_at (nullable)
    Notes         *string    // reservations.notes (nullable)
    CreatedAt     time.Time  // reservations.created_at
    UpdatedAt     time.Time  // reservations.updated_at
}

// Terminal reports whether the reservation is in a terminal status.
func (r *Reservation) Terminal() bool {
    return r.Status != ReservationActive
}
