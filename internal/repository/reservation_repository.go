package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/study-room-reservation/internal/model"
)

// ReservationRepo provides persistence for reservations.  Reservations
// are never deleted; lifecycle transitions move them between statuses.
// All timestamp columns are stored in UTC.  Methods suffixed Tx operate
// inside a caller-owned transaction; the caller commits or rolls back.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `id, code, user_id, seat_id, starts_at, ends_at, status,
payment_status, total_cents, check_in_at, check_out_at, notes, created_at, updated_at`

func scanReservation(row interface{ Scan(...interface{}) error }) (*model.Reservation, error) {
    var res model.Reservation
    var checkIn, checkOut sql.NullTime
    var notes sql.NullString
    err := row.Scan(
        &res.ID, &res.Code, &res.UserID, &res.SeatID, &res.StartsAt, &res.EndsAt,
        &res.Status, &res.PaymentStatus, &res.TotalCents,
        &checkIn, &checkOut, &notes, &res.CreatedAt, &res.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    if checkIn.Valid {
        t := checkIn.Time.UTC()
        res.CheckInAt = &t
    }
    if checkOut.Valid {
        t := checkOut.Time.UTC()
        res.CheckOutAt = &t
    }
    if notes.Valid {
        n := notes.String
        res.Notes = &n
    }
    return &res, nil
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction and populates the generated ID and timestamps on the
// provided record.  Status and payment status must already be set by
// the caller ('ACTIVE' / 'PENDING' for fresh bookings).
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
    const q = `INSERT INTO reservations
        (code, user_id, seat_id, starts_at, ends_at, status, payment_status, total_cents, notes)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    result, err := tx.ExecContext(ctx, q,
        res.Code, res.UserID, res.SeatID,
        res.StartsAt.UTC(), res.EndsAt.UTC(),
        res.Status, res.PaymentStatus, res.TotalCents, res.Notes,
    )
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    // Query back the full row to populate timestamps and defaults.
    sel := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
    got, err := scanReservation(tx.QueryRowContext(ctx, sel, res.ID))
    if err != nil {
        return err
    }
    *res = *got
    return nil
}

// GetByID loads a single reservation.  sql.ErrNoRows when absent.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
    return scanReservation(r.db.QueryRowContext(ctx, q, id))
}

// GetByCode loads a reservation by its external code.
func (r *ReservationRepo) GetByCode(ctx context.Context, code string) (*model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations WHERE code = ?`
    return scanReservation(r.db.QueryRowContext(ctx, q, code))
}

// GetByIDForUpdateTx loads a reservation inside a transaction with a row
// lock, so interactive transitions and the sweeper cannot race each
// other on the same row.
func (r *ReservationRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ? FOR UPDATE`
    return scanReservation(tx.QueryRowContext(ctx, q, id))
}

// CountOverlappingForSeatTx counts ACTIVE reservations on a seat whose
// interval overlaps the half-open candidate [start, end).  Two intervals
// overlap iff NOT (e1 <= s2 OR s1 >= e2); back-to-back intervals do not
// conflict.  excludeID skips a reservation being edited (0 = none).
func (r *ReservationRepo) CountOverlappingForSeatTx(ctx context.Context, tx *sql.Tx, seatID uint64, start, end time.Time, excludeID uint64) (int, error) {
    const q = `SELECT COUNT(*) FROM reservations
               WHERE seat_id = ? AND status = 'ACTIVE' AND id <> ?
                 AND NOT (ends_at <= ? OR starts_at >= ?)`
    var n int
    err := tx.QueryRowContext(ctx, q, seatID, excludeID, start.UTC(), end.UTC()).Scan(&n)
    return n, err
}

// CountOverlappingForUserTx is the same overlap test applied across all
// seats for one user, answering the "one seat at a time per user" question.
func (r *ReservationRepo) CountOverlappingForUserTx(ctx context.Context, tx *sql.Tx, userID uint64, start, end time.Time, excludeID uint64) (int, error) {
    const q = `SELECT COUNT(*) FROM reservations
               WHERE user_id = ? AND status = 'ACTIVE' AND id <> ?
                 AND NOT (ends_at <= ? OR starts_at >= ?)`
    var n int
    err := tx.QueryRowContext(ctx, q, userID, excludeID, start.UTC(), end.UTC()).Scan(&n)
    return n, err
}

// ListActiveForSeatTx returns the ACTIVE reservations touching a seat,
// used by the seat state synchronizer when recomputing the seat row.
func (r *ReservationRepo) ListActiveForSeatTx(ctx context.Context, tx *sql.Tx, seatID uint64) ([]model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations
          WHERE seat_id = ? AND status = 'ACTIVE' ORDER BY starts_at`
    rows, err := tx.QueryContext(ctx, q, seatID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Reservation
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *res)
    }
    return out, rows.Err()
}

// TransitionTx atomically moves a reservation from one status to
// another.  It reports false when the row was not in the expected
// status, which callers treat as "another path won the race".
func (r *ReservationRepo) TransitionTx(ctx context.Context, tx *sql.Tx, id uint64, from, to string) (bool, error) {
    const q = `UPDATE reservations SET status = ? WHERE id = ? AND status = ?`
    result, err := tx.ExecContext(ctx, q, to, id, from)
    if err != nil {
        return false, err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// SetPaymentStatusTx updates the payment status of a reservation.
func (r *ReservationRepo) SetPaymentStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
    _, err := tx.ExecContext(ctx, `UPDATE reservations SET payment_status = ? WHERE id = ?`, status, id)
    return err
}

// SetCheckInTx stamps the check-in time.
func (r *ReservationRepo) SetCheckInTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
    _, err := tx.ExecContext(ctx, `UPDATE reservations SET check_in_at = ? WHERE id = ?`, at.UTC(), id)
    return err
}

// SetCheckOutTx stamps the check-out time.
func (r *ReservationRepo) SetCheckOutTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
    _, err := tx.ExecContext(ctx, `UPDATE reservations SET check_out_at = ? WHERE id = ?`, at.UTC(), id)
    return err
}

// SetEndTx rewrites the interval end and the recomputed total after an
// extension.
func (r *ReservationRepo) SetEndTx(ctx context.Context, tx *sql.Tx, id uint64, end time.Time, totalCents int64) error {
    _, err := tx.ExecContext(ctx, `UPDATE reservations SET ends_at = ?, total_cents = ? WHERE id = ?`, end.UTC(), totalCents, id)
    return err
}

// ListDue returns sweep candidates in a bounded batch: ACTIVE
// reservations that either ended in the past, or are unpaid, never
// checked in and past the unpaid grace window after their start.
func (r *ReservationRepo) ListDue(ctx context.Context, now time.Time, grace time.Duration, limit int) ([]model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations
          WHERE status = 'ACTIVE'
            AND (ends_at <= ?
                 OR (payment_status = 'PENDING' AND check_in_at IS NULL AND starts_at <= ?))
          ORDER BY ends_at
          LIMIT ?`
    cutoff := now.UTC().Add(-grace)
    rows, err := r.db.QueryContext(ctx, q, now.UTC(), cutoff, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Reservation
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *res)
    }
    return out, rows.Err()
}

// ListByUser returns all reservations for a user, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = ? ORDER BY created_at DESC`
    return r.list(ctx, q, userID)
}

// ListBySeat returns all reservations on a seat, newest first.
func (r *ReservationRepo) ListBySeat(ctx context.Context, seatID uint64) ([]model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations WHERE seat_id = ? ORDER BY created_at DESC`
    return r.list(ctx, q, seatID)
}

// ListAll returns a page of reservations across all users for admin
// listings, newest first.
func (r *ReservationRepo) ListAll(ctx context.Context, limit, offset int) ([]model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations ORDER BY created_at DESC LIMIT ? OFFSET ?`
    return r.list(ctx, q, limit, offset)
}

func (r *ReservationRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Reservation, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *res)
    }
    return out, rows.Err()
}
