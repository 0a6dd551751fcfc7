package booking

import (
    "time"

    "github.com/iliyamo/study-room-reservation/internal/model"
)

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) overlap.  Back-to-back intervals sharing a boundary
// instant (aEnd == bStart) do not overlap, which is what allows a seat
// to be booked [10:00,11:00) and [11:00,12:00) by different users.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
    return !(!aEnd.After(bStart) || !bEnd.After(aStart))
}

// HasConflict applies the overlap test against a set of existing
// reservations, ignoring terminal ones and an optional reservation
// being edited (excludeID, 0 = none).  It is a pure query: the same
// function answers both the per-seat and the per-user double-booking
// question depending on which reservation set it is handed.
func HasConflict(existing []model.Reservation, start, end time.Time, excludeID uint64) bool {
    for i := range existing {
        r := &existing[i]
        if r.ID == excludeID || r.Terminal() {
            continue
        }
        if Overlaps(start, end, r.StartsAt, r.EndsAt) {
            return true
        }
    }
    return false
}
