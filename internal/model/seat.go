package model

import "time"

// Seat statuses.  Status is a derived view over the seat's reservation
// set; it is recomputed whenever that set changes and never written
// directly by clients.  MAINTENANCE and OUT_OF_ORDER are administrative
// overrides that suppress scheduling entirely.
const (
    SeatAvailable   = "AVAILABLE"
    SeatReserved    = "RESERVED"
    SeatOccupied    = "OCCUPIED"
    SeatMaintenance = "MAINTENANCE"
    SeatOutOfOrder  = "OUT_OF_ORDER"
)

// Seat describes a physical seat in a study room.  Seats are uniquely
// identified by their room and seat number.  The seat_type indicates
// whether the seat is standard, a window seat or accessible.
//
// Fields:
//  ID            – primary key identifier.
//  RoomID        – room to which this seat belongs.
//  Number        – number of the seat, unique within the room.
//  SeatType      – type of seat (STANDARD, WINDOW, ACCESSIBLE).
//  Status        – derived display status, see constants above.
//  AdminOverride – administrative override (MAINTENANCE or
//                  OUT_OF_ORDER), nil when no override is in force.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Seat struct {
    ID            uint64    // seats.id
    RoomID        uint64    // seats.room_id
    Number        uint32    // seats.seat_number
    SeatType      string    // seats.seat_type
    Status        string    // seats.status (derived)
    AdminOverride *string   // seats.admin_override (nullable)
    CreatedAt     time.Time // seats.created_at
    UpdatedAt     time.Time // seats.updated_at
}
