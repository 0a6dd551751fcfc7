package booking

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "log"
    "strconv"
    "strings"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/iliyamo/study-room-reservation/internal/model"
    "github.com/iliyamo/study-room-reservation/internal/queue"
    "github.com/iliyamo/study-room-reservation/internal/repository"
    "github.com/iliyamo/study-room-reservation/internal/utils"
)

// PublishFunc delivers a lifecycle event to the message broker.  A nil
// function disables publishing; delivery failures are logged and never
// fail the request that produced the event.
type PublishFunc func(ctx context.Context, ev queue.ReservationEvent) error

// Service owns the reservation state machine.  Every mutating entry
// point — interactive or sweeper-driven — goes through here, runs in
// one transaction, and updates the derived seat status in the same
// transaction.  Create and extend additionally hold a per-seat and
// per-user lock across the conflict-check-and-insert section so
// concurrent overlapping bookings cannot both pass the check.
type Service struct {
    db           *sql.DB
    rooms        *repository.RoomRepo
    seats        *repository.SeatRepo
    reservations *repository.ReservationRepo
    locks        *keyedLocks
    publish      PublishFunc
    unpaidGrace  time.Duration

    // now is swappable in tests.
    now func() time.Time
}

// NewService wires the lifecycle service.  unpaidGrace is how long an
// unpaid, never-checked-in reservation survives past its start before
// the sweeper expires it.
func NewService(db *sql.DB, rooms *repository.RoomRepo, seats *repository.SeatRepo, reservations *repository.ReservationRepo, publish PublishFunc, unpaidGrace time.Duration) *Service {
    if unpaidGrace <= 0 {
        unpaidGrace = 15 * time.Minute
    }
    return &Service{
        db:           db,
        rooms:        rooms,
        seats:        seats,
        reservations: reservations,
        locks:        newKeyedLocks(),
        publish:      publish,
        unpaidGrace:  unpaidGrace,
        now:          func() time.Time { return time.Now().UTC() },
    }
}

const maxTxAttempts = 3

// isRetryable reports whether the MySQL error is a deadlock or
// lock-wait timeout, the expected benign outcomes of two transactions
// racing for the same seat.
func isRetryable(err error) bool {
    var me *mysql.MySQLError
    if errors.As(err, &me) {
        return me.Number == 1213 || me.Number == 1205
    }
    return false
}

// withRetry runs fn up to maxTxAttempts times, retrying only transient
// store failures.  Exhausting the retries surfaces ErrStoreUnavailable.
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
    var last error
    for attempt := 1; attempt <= maxTxAttempts; attempt++ {
        err := fn()
        if err == nil || !isRetryable(err) {
            return err
        }
        last = err
        log.Printf("booking: transient store error (attempt %d/%d): %v", attempt, maxTxAttempts, err)
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
        }
    }
    return fmt.Errorf("%w: %v", ErrStoreUnavailable, last)
}

func authorize(res *model.Reservation, actorID uint64, admin bool) error {
    if admin || res.UserID == actorID {
        return nil
    }
    return ErrForbidden
}

// parseClock converts a "HH:MM" time-of-day string to minutes from
// midnight.
func parseClock(s string) (int, error) {
    parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
    if len(parts) != 2 {
        return 0, fmt.Errorf("bad clock value %q", s)
    }
    h, err := strconv.Atoi(parts[0])
    if err != nil || h < 0 || h > 23 {
        return 0, fmt.Errorf("bad clock value %q", s)
    }
    m, err := strconv.Atoi(parts[1])
    if err != nil || m < 0 || m > 59 {
        return 0, fmt.Errorf("bad clock value %q", s)
    }
    return h*60 + m, nil
}

func minuteOfDay(t time.Time) int { return t.Hour()*60 + t.Minute() }

// validateWindow checks that [start, end) is well formed, lies on a
// single UTC day and fits inside the room's daily open window.  The end
// may touch closing time exactly (half-open semantics).
func validateWindow(room *model.Room, start, end time.Time) error {
    if !start.Before(end) {
        return ErrInvalidInterval
    }
    sy, sm, sd := start.Date()
    ey, em, ed := end.Date()
    if sy != ey || sm != em || sd != ed {
        return ErrInvalidInterval
    }
    open, err := parseClock(room.OpenTime)
    if err != nil {
        return err
    }
    closeMin, err := parseClock(room.CloseTime)
    if err != nil {
        return err
    }
    if minuteOfDay(start) < open || minuteOfDay(end) > closeMin {
        return ErrInvalidInterval
    }
    return nil
}

func (s *Service) emit(ctx context.Context, typ string, res *model.Reservation) {
    if s.publish == nil {
        return
    }
    ev := queue.ReservationEvent{
        Type:          typ,
        ReservationID: res.ID,
        Code:          res.Code,
        UserID:        res.UserID,
        SeatID:        res.SeatID,
        StartsAt:      res.StartsAt.UTC().Format(time.RFC3339),
        EndsAt:        res.EndsAt.UTC().Format(time.RFC3339),
        Status:        res.Status,
        PaymentStatus: res.PaymentStatus,
        TotalCents:    res.TotalCents,
        OccurredAt:    s.now().Format(time.RFC3339),
    }
    if err := s.publish(ctx, ev); err != nil {
        log.Printf("booking: publish %s for reservation %d failed: %v", typ, res.ID, err)
    }
}

// Create books a seat for the half-open interval [start, end).  It
// validates the interval against the room's open window, rejects any
// overlap with ACTIVE reservations for the seat or the user, computes
// the total at the room's hourly rate and persists an ACTIVE/PENDING
// reservation with a fresh code.  The seat row is marked RESERVED in
// the same transaction.  The conflict check and the insert are atomic:
// of two concurrent overlapping calls for one seat, exactly one
// succeeds and the other gets ErrConflict.
func (s *Service) Create(ctx context.Context, userID, seatID uint64, start, end time.Time, notes *string) (*model.Reservation, error) {
    if !start.Before(end) {
        return nil, ErrInvalidInterval
    }
    unlock := s.locks.lockSeatUser(seatID, userID)
    defer unlock()

    var created *model.Reservation
    err := s.withRetry(ctx, func() error {
        tx, err := s.db.BeginTx(ctx, nil)
        if err != nil {
            return err
        }
        committed := false
        defer func() {
            if !committed {
                _ = tx.Rollback()
            }
        }()

        seat, err := s.seats.GetByIDForUpdateTx(ctx, tx, seatID)
        if err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrNotFound
            }
            return err
        }
        if seat.AdminOverride != nil {
            return ErrConflict
        }
        room, err := s.rooms.GetBySeatTx(ctx, tx, seatID)
        if err != nil {
            return err
        }
        if room.Status != model.RoomAvailable {
            return ErrConflict
        }
        if err := validateWindow(room, start, end); err != nil {
            return err
        }
        n, err := s.reservations.CountOverlappingForSeatTx(ctx, tx, seatID, start, end, 0)
        if err != nil {
            return err
        }
        if n > 0 {
            return ErrConflict
        }
        n, err = s.reservations.CountOverlappingForUserTx(ctx, tx, userID, start, end, 0)
        if err != nil {
            return err
        }
        if n > 0 {
            return ErrConflict
        }

        code, err := utils.NewReservationCode()
        if err != nil {
            return err
        }
        res := &model.Reservation{
            Code:          code,
            UserID:        userID,
            SeatID:        seatID,
            StartsAt:      start.UTC(),
            EndsAt:        end.UTC(),
            Status:        model.ReservationActive,
            PaymentStatus: model.PaymentPending,
            TotalCents:    TotalCents(room.RateCents, start, end),
            Notes:         notes,
        }
        if err := s.reservations.CreateTx(ctx, tx, res); err != nil {
            return err
        }
        if err := s.syncSeatTx(ctx, tx, seatID); err != nil {
            return err
        }
        if err := tx.Commit(); err != nil {
            return err
        }
        committed = true
        created = res
        return nil
    })
    if err != nil {
        return nil, err
    }
    s.emit(ctx, queue.EventCreated, created)
    return created, nil
}

// Extend pushes a reservation's end later.  Only the delta interval
// [oldEnd, newEnd) is re-checked for conflicts, so the existing booking
// never conflicts with itself; the total is recomputed over the full
// interval.
func (s *Service) Extend(ctx context.Context, actorID uint64, admin bool, id uint64, newEnd time.Time) (*model.Reservation, error) {
    head, err := s.reservations.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrNotFound
        }
        return nil, err
    }
    if err := authorize(head, actorID, admin); err != nil {
        return nil, err
    }
    unlock := s.locks.lockSeatUser(head.SeatID, head.UserID)
    defer unlock()

    var updated *model.Reservation
    err = s.withRetry(ctx, func() error {
        tx, err := s.db.BeginTx(ctx, nil)
        if err != nil {
            return err
        }
        committed := false
        defer func() {
            if !committed {
                _ = tx.Rollback()
            }
        }()

        res, err := s.reservations.GetByIDForUpdateTx(ctx, tx, id)
        if err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrNotFound
            }
            return err
        }
        if res.Status != model.ReservationActive {
            return ErrInvalidTransition
        }
        if !newEnd.After(res.EndsAt) {
            return ErrInvalidInterval
        }
        room, err := s.rooms.GetBySeatTx(ctx, tx, res.SeatID)
        if err != nil {
            return err
        }
        if err := validateWindow(room, res.StartsAt, newEnd); err != nil {
            return err
        }
        // Conflict detection on the delta only.  The seat's ACTIVE
        // bookings are checked in memory; the user-side check stays in
        // SQL because it spans every seat.
        active, err := s.reservations.ListActiveForSeatTx(ctx, tx, res.SeatID)
        if err != nil {
            return err
        }
        if HasConflict(active, res.EndsAt, newEnd, res.ID) {
            return ErrConflict
        }
        n, err := s.reservations.CountOverlappingForUserTx(ctx, tx, res.UserID, res.EndsAt, newEnd, res.ID)
        if err != nil {
            return err
        }
        if n > 0 {
            return ErrConflict
        }
        total := TotalCents(room.RateCents, res.StartsAt, newEnd)
        if err := s.reservations.SetEndTx(ctx, tx, res.ID, newEnd, total); err != nil {
            return err
        }
        if err := tx.Commit(); err != nil {
            return err
        }
        committed = true
        res.EndsAt = newEnd.UTC()
        res.TotalCents = total
        updated = res
        return nil
    })
    if err != nil {
        return nil, err
    }
    return updated, nil
}

// withReservationTx loads the reservation under a row lock, applies fn
// and commits.  The row lock keeps interactive transitions and the
// sweeper from racing on the same reservation.
func (s *Service) withReservationTx(ctx context.Context, id uint64, fn func(tx *sql.Tx, res *model.Reservation) error) (*model.Reservation, error) {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    res, err := s.reservations.GetByIDForUpdateTx(ctx, tx, id)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrNotFound
        }
        return nil, err
    }
    if err := fn(tx, res); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return res, nil
}

// Pay marks an ACTIVE, payment-pending reservation as PAID.
func (s *Service) Pay(ctx context.Context, actorID uint64, admin bool, id uint64, method string) (*model.Reservation, error) {
    res, err := s.withReservationTx(ctx, id, func(tx *sql.Tx, res *model.Reservation) error {
        if err := authorize(res, actorID, admin); err != nil {
            return err
        }
        if res.Status != model.ReservationActive || res.PaymentStatus != model.PaymentPending {
            return ErrInvalidTransition
        }
        if err := s.reservations.SetPaymentStatusTx(ctx, tx, res.ID, model.PaymentPaid); err != nil {
            return err
        }
        res.PaymentStatus = model.PaymentPaid
        return nil
    })
    if err != nil {
        return nil, err
    }
    log.Printf("booking: reservation %d paid via %s", res.ID, method)
    s.emit(ctx, queue.EventPaid, res)
    return res, nil
}

// CheckIn stamps the check-in time.  Permitted only while ACTIVE and
// PAID, with no prior check-in, and only while the current time lies
// within [start, end).  The seat becomes OCCUPIED.
func (s *Service) CheckIn(ctx context.Context, actorID uint64, admin bool, id uint64) (*model.Reservation, error) {
    res, err := s.withReservationTx(ctx, id, func(tx *sql.Tx, res *model.Reservation) error {
        if err := authorize(res, actorID, admin); err != nil {
            return err
        }
        if res.Status != model.ReservationActive || res.PaymentStatus != model.PaymentPaid || res.CheckInAt != nil {
            return ErrInvalidTransition
        }
        now := s.now()
        if now.Before(res.StartsAt) || !now.Before(res.EndsAt) {
            return ErrInvalidTransition
        }
        if err := s.reservations.SetCheckInTx(ctx, tx, res.ID, now); err != nil {
            return err
        }
        res.CheckInAt = &now
        return s.syncSeatTx(ctx, tx, res.SeatID)
    })
    if err != nil {
        return nil, err
    }
    s.emit(ctx, queue.EventCheckedIn, res)
    return res, nil
}

// CheckOut requires a prior check-in, stamps the check-out time,
// completes the reservation and releases the seat.
func (s *Service) CheckOut(ctx context.Context, actorID uint64, admin bool, id uint64) (*model.Reservation, error) {
    res, err := s.withReservationTx(ctx, id, func(tx *sql.Tx, res *model.Reservation) error {
        if err := authorize(res, actorID, admin); err != nil {
            return err
        }
        if res.Status != model.ReservationActive || res.CheckInAt == nil {
            return ErrInvalidTransition
        }
        now := s.now()
        if now.Before(*res.CheckInAt) {
            now = *res.CheckInAt
        }
        if err := s.reservations.SetCheckOutTx(ctx, tx, res.ID, now); err != nil {
            return err
        }
        ok, err := s.reservations.TransitionTx(ctx, tx, res.ID, model.ReservationActive, model.ReservationCompleted)
        if err != nil {
            return err
        }
        if !ok {
            return ErrInvalidTransition
        }
        res.CheckOutAt = &now
        res.Status = model.ReservationCompleted
        return s.syncSeatTx(ctx, tx, res.SeatID)
    })
    if err != nil {
        return nil, err
    }
    s.emit(ctx, queue.EventCompleted, res)
    return res, nil
}

// Cancel moves an ACTIVE reservation to CANCELLED, refunds a paid
// booking and releases the seat.  Terminal reservations cannot be
// cancelled.
func (s *Service) Cancel(ctx context.Context, actorID uint64, admin bool, id uint64, reason string) (*model.Reservation, error) {
    res, err := s.withReservationTx(ctx, id, func(tx *sql.Tx, res *model.Reservation) error {
        if err := authorize(res, actorID, admin); err != nil {
            return err
        }
        ok, err := s.reservations.TransitionTx(ctx, tx, res.ID, model.ReservationActive, model.ReservationCancelled)
        if err != nil {
            return err
        }
        if !ok {
            return ErrInvalidTransition
        }
        res.Status = model.ReservationCancelled
        if res.PaymentStatus == model.PaymentPaid {
            if err := s.reservations.SetPaymentStatusTx(ctx, tx, res.ID, model.PaymentRefunded); err != nil {
                return err
            }
            res.PaymentStatus = model.PaymentRefunded
        }
        return s.syncSeatTx(ctx, tx, res.SeatID)
    })
    if err != nil {
        return nil, err
    }
    if reason != "" {
        log.Printf("booking: reservation %d cancelled: %s", res.ID, reason)
    }
    s.emit(ctx, queue.EventCancelled, res)
    return res, nil
}

// Get returns a reservation visible to the actor (owner or admin).
func (s *Service) Get(ctx context.Context, actorID uint64, admin bool, id uint64) (*model.Reservation, error) {
    res, err := s.reservations.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrNotFound
        }
        return nil, err
    }
    if err := authorize(res, actorID, admin); err != nil {
        return nil, err
    }
    return res, nil
}

// SetSeatOverride applies or clears (nil) an administrative
// MAINTENANCE/OUT_OF_ORDER override and recomputes the derived seat
// status in the same transaction.
func (s *Service) SetSeatOverride(ctx context.Context, seatID uint64, override *string) error {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if _, err := s.seats.GetByIDForUpdateTx(ctx, tx, seatID); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return ErrNotFound
        }
        return err
    }
    if err := s.seats.SetOverrideTx(ctx, tx, seatID, override); err != nil {
        return err
    }
    if err := s.syncSeatTx(ctx, tx, seatID); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}
