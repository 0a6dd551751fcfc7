package booking

import "time"

// TotalCents computes the price of an interval at the room's flat
// hourly rate: rateCents * duration / 1h, rounded half-up to the minor
// currency unit.  A 2.5 hour booking at 15.00/h costs 37.50.
func TotalCents(rateCents int64, start, end time.Time) int64 {
    secs := int64(end.Sub(start) / time.Second)
    if secs <= 0 {
        return 0
    }
    return (rateCents*secs + 1800) / 3600
}
