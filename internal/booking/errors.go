// Package booking implements the reservation lifecycle: conflict
// detection, the reservation and seat state machines, and the
// background expiration sweep.  All mutating entry points run inside a
// single database transaction under a per-seat lock, so at most one of
// two concurrently submitted overlapping bookings for a seat succeeds.
package booking

import "errors"

// Sentinel errors returned by the lifecycle service.  Handlers map
// these onto HTTP status codes; everything else is an internal error.
var (
    // ErrInvalidInterval is returned for malformed intervals (start not
    // before end) or intervals outside the room's daily open window.
    ErrInvalidInterval = errors.New("invalid interval")

    // ErrConflict is returned when the requested interval overlaps an
    // existing ACTIVE reservation for the seat or the user, or the
    // seat/room is administratively unavailable.
    ErrConflict = errors.New("conflict")

    // ErrInvalidTransition is returned when an operation is not
    // permitted in the reservation's current state.
    ErrInvalidTransition = errors.New("invalid transition")

    // ErrNotFound is returned for unknown reservation, seat or room ids.
    ErrNotFound = errors.New("not found")

    // ErrForbidden is returned when the actor is neither the owning
    // user nor an admin.
    ErrForbidden = errors.New("forbidden")

    // ErrStoreUnavailable wraps transient storage failures that
    // survived the bounded retry.
    ErrStoreUnavailable = errors.New("store unavailable")
)
