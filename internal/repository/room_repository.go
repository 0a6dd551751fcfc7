package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/study-room-reservation/internal/model"
)

// RoomRepo reads room records.  Room administration (creation, rate
// changes) is outside the booking core; the repo only needs lookups.
type RoomRepo struct {
    db *sql.DB
}

// NewRoomRepo constructs a RoomRepo given a DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

const roomColumns = `id, name, capacity, rate_cents, open_time, close_time, status, created_at, updated_at`

func scanRoom(row interface{ Scan(...interface{}) error }) (*model.Room, error) {
    var rm model.Room
    err := row.Scan(&rm.ID, &rm.Name, &rm.Capacity, &rm.RateCents,
        &rm.OpenTime, &rm.CloseTime, &rm.Status, &rm.CreatedAt, &rm.UpdatedAt)
    if err != nil {
        return nil, err
    }
    return &rm, nil
}

// GetByID loads a room.  sql.ErrNoRows when absent.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
    q := `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
    return scanRoom(r.db.QueryRowContext(ctx, q, id))
}

// GetBySeatTx resolves the owning room of a seat inside a transaction.
func (r *RoomRepo) GetBySeatTx(ctx context.Context, tx *sql.Tx, seatID uint64) (*model.Room, error) {
    q := `SELECT ` + roomPrefixed + ` FROM rooms r JOIN seats s ON s.room_id = r.id WHERE s.id = ?`
    return scanRoom(tx.QueryRowContext(ctx, q, seatID))
}

const roomPrefixed = `r.id, r.name, r.capacity, r.rate_cents, r.open_time, r.close_time, r.status, r.created_at, r.updated_at`

// List returns all rooms ordered by name.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
    q := `SELECT ` + roomColumns + ` FROM rooms ORDER BY name`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Room, 0)
    for rows.Next() {
        rm, err := scanRoom(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *rm)
    }
    return out, rows.Err()
}
