package model

import "time"

// Room statuses.  A room that is not AVAILABLE does not accept new
// reservations regardless of seat state.
const (
    RoomAvailable   = "AVAILABLE"
    RoomMaintenance = "MAINTENANCE"
    RoomClosed      = "CLOSED"
)

// Room represents a bookable study room containing seats.  Each room
// charges a flat hourly rate and is open during a daily window.  This
// struct corresponds to a row in the `rooms` table.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – unique room name.
//  Capacity  – number of seats the room is built for.
//  RateCents – hourly rate in minor currency units (cents).
//  OpenTime  – daily opening time of day, "HH:MM" (24h).
//  CloseTime – daily closing time of day, "HH:MM" (24h).
//  Status    – AVAILABLE, MAINTENANCE or CLOSED.
//  CreatedAt – timestamp when the room was created.
//  UpdatedAt – timestamp of last update.
type Room struct {
    ID        uint64    // rooms.id
    Name      string    // rooms.name
    Capacity  uint32    // rooms.capacity
    RateCents int64     // rooms.rate_cents
    OpenTime  string    // rooms.open_time
    CloseTime string    // rooms.close_time
    Status    string    // rooms.status
    CreatedAt time.Time // rooms.created_at
    UpdatedAt time.Time // rooms.updated_at
}
