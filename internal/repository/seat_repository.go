package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/study-room-reservation/internal/model"
)

// SeatRepo encapsulates database operations for seats.  The status
// column is a materialized view over the seat's reservation set and is
// only ever written through UpdateStatusTx inside the same transaction
// as the reservation change that invalidated it.
type SeatRepo struct {
    db *sql.DB
}

// NewSeatRepo constructs a SeatRepo given a DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

const seatColumns = `id, room_id, seat_number, seat_type, status, admin_override, created_at, updated_at`

func scanSeat(row interface{ Scan(...interface{}) error }) (*model.Seat, error) {
    var s model.Seat
    var override sql.NullString
    err := row.Scan(&s.ID, &s.RoomID, &s.Number, &s.SeatType, &s.Status, &override, &s.CreatedAt, &s.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if override.Valid {
        o := override.String
        s.AdminOverride = &o
    }
    return &s, nil
}

// GetByID loads a seat.  sql.ErrNoRows when absent.
func (r *SeatRepo) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
    q := `SELECT ` + seatColumns + ` FROM seats WHERE id = ?`
    return scanSeat(r.db.QueryRowContext(ctx, q, id))
}

// GetByIDForUpdateTx loads a seat with a row lock so the derived status
// write cannot interleave with another transaction on the same seat.
func (r *SeatRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Seat, error) {
    q := `SELECT ` + seatColumns + ` FROM seats WHERE id = ? FOR UPDATE`
    return scanSeat(tx.QueryRowContext(ctx, q, id))
}

// ListByRoom returns all seats of a room ordered by seat number.
func (r *SeatRepo) ListByRoom(ctx context.Context, roomID uint64) ([]model.Seat, error) {
    q := `SELECT ` + seatColumns + ` FROM seats WHERE room_id = ? ORDER BY seat_number`
    rows, err := r.db.QueryContext(ctx, q, roomID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Seat, 0)
    for rows.Next() {
        s, err := scanSeat(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *s)
    }
    return out, rows.Err()
}

// ListAvailableForInterval returns the seats of a room that carry no
// administrative override and no ACTIVE reservation overlapping the
// half-open interval [start, end).
func (r *SeatRepo) ListAvailableForInterval(ctx context.Context, roomID uint64, start, end time.Time) ([]model.Seat, error) {
    q := `SELECT ` + seatColumns + ` FROM seats s
          WHERE s.room_id = ? AND s.admin_override IS NULL
            AND NOT EXISTS (
                SELECT 1 FROM reservations res
                WHERE res.seat_id = s.id AND res.status = 'ACTIVE'
                  AND NOT (res.ends_at <= ? OR res.starts_at >= ?)
            )
          ORDER BY s.seat_number`
    rows, err := r.db.QueryContext(ctx, q, roomID, start.UTC(), end.UTC())
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Seat, 0)
    for rows.Next() {
        s, err := scanSeat(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *s)
    }
    return out, rows.Err()
}

// UpdateStatusTx writes the freshly derived status for a seat.
func (r *SeatRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, seatID uint64, status string) error {
    _, err := tx.ExecContext(ctx, `UPDATE seats SET status = ? WHERE id = ?`, status, seatID)
    return err
}

// SetOverrideTx sets or clears (nil) the administrative override for a
// seat.  The derived status must be recomputed in the same transaction.
func (r *SeatRepo) SetOverrideTx(ctx context.Context, tx *sql.Tx, seatID uint64, override *string) error {
    _, err := tx.ExecContext(ctx, `UPDATE seats SET admin_override = ? WHERE id = ?`, override, seatID)
    return err
}
