package booking

import (
    "context"
    "database/sql"
    "errors"
    "log"
    "time"

    "github.com/iliyamo/study-room-reservation/internal/model"
    "github.com/iliyamo/study-room-reservation/internal/queue"
)

// Sweeper drives the time-based reservation transitions that no user
// action triggers: NO_SHOW at the end of an unattended booking and the
// early EXPIRED transition for unpaid bookings past the grace window.
// It processes bounded batches on a fixed interval and applies every
// transition through the same lifecycle service entry points used by
// interactive calls, so there is a single state-machine contract.
type Sweeper struct {
    svc       *Service
    interval  time.Duration
    batchSize int
}

// NewSweeper returns a sweeper ticking at the given interval.
func NewSweeper(svc *Service, interval time.Duration, batchSize int) *Sweeper {
    if interval <= 0 {
        interval = time.Minute
    }
    if batchSize <= 0 {
        batchSize = 100
    }
    return &Sweeper{svc: svc, interval: interval, batchSize: batchSize}
}

// Run loops until the context is cancelled.  A failed pass is logged
// and retried on the next tick; a single bad row never stops the sweep.
func (w *Sweeper) Run(ctx context.Context) {
    t := time.NewTicker(w.interval)
    defer t.Stop()

    log.Printf("sweeper: started (interval=%s batch=%d)", w.interval, w.batchSize)
    for {
        select {
        case <-ctx.Done():
            log.Printf("sweeper: stopped")
            return
        case <-t.C:
            n, err := w.svc.SweepDue(ctx, w.batchSize)
            if err != nil {
                log.Printf("sweeper: pass failed: %v", err)
                continue
            }
            if n > 0 {
                log.Printf("sweeper: transitioned %d reservations", n)
            }
        }
    }
}

// sweepTarget classifies a reservation for the sweeper at time now.
// Unpaid, never-checked-in bookings past the grace window expire early,
// even when they are also past their end; bookings past their end with
// no check-in are no-shows.  An empty string means the row is not (or
// no longer) the sweeper's to touch: terminal, checked in, or a booking
// whose payment landed since it was last observed.
func (s *Service) sweepTarget(r *model.Reservation, now time.Time) string {
    if r.Terminal() || r.CheckInAt != nil {
        return ""
    }
    if r.PaymentStatus == model.PaymentPending && !r.StartsAt.After(now.Add(-s.unpaidGrace)) {
        return model.ReservationExpired
    }
    if !r.EndsAt.After(now) {
        return model.ReservationNoShow
    }
    return ""
}

// SweepDue scans one batch of due ACTIVE reservations and applies the
// matching transition to each.  The listing is only a candidate filter:
// the transition target is decided again from the row under lock, so
// rows that changed state concurrently are skipped silently.  It
// returns the number of reservations transitioned.
func (s *Service) SweepDue(ctx context.Context, limit int) (int, error) {
    now := s.now()
    due, err := s.reservations.ListDue(ctx, now, s.unpaidGrace, limit)
    if err != nil {
        return 0, err
    }
    transitioned := 0
    for i := range due {
        r := &due[i]
        if s.sweepTarget(r, now) == "" {
            // Checked-in bookings past their end wait for check-out.
            continue
        }
        applied, err := s.sweepTransition(ctx, r.ID)
        if err != nil {
            log.Printf("sweeper: reservation %d failed: %v", r.ID, err)
            continue
        }
        if applied != "" {
            transitioned++
        }
    }
    return transitioned, nil
}

// sweepTransition applies one sweeper-driven transition inside its own
// transaction and returns the status it applied ("" when the row was
// skipped).  The listing snapshot is stale by the time the row lock
// lands, so the target is derived from the locked row only: a booking
// paid in the gap is no longer expirable, and re-scanning an
// already-terminal reservation is a no-op, which makes sweep passes
// idempotent.
func (s *Service) sweepTransition(ctx context.Context, id uint64) (string, error) {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return "", err
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
            return "", nil
        }
        return "", err
    }
    target := s.sweepTarget(res, s.now())
    if target == "" {
        return "", nil
    }
    ok, err := s.reservations.TransitionTx(ctx, tx, res.ID, model.ReservationActive, target)
    if err != nil {
        return "", err
    }
    if !ok {
        return "", nil
    }
    res.Status = target
    if err := s.syncSeatTx(ctx, tx, res.SeatID); err != nil {
        return "", err
    }
    if err := tx.Commit(); err != nil {
        return "", err
    }
    committed = true

    switch target {
    case model.ReservationExpired:
        s.emit(ctx, queue.EventExpired, res)
    case model.ReservationNoShow:
        s.emit(ctx, queue.EventNoShow, res)
    }
    return target, nil
}
