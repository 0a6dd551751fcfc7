package booking

import (
    "context"
    "database/sql"

    "github.com/iliyamo/study-room-reservation/internal/model"
)

// DeriveSeatStatus computes a seat's displayed status from its
// administrative override and the ACTIVE reservations touching it.
// Priority order, highest wins:
//
//	admin MAINTENANCE / OUT_OF_ORDER  >  OCCUPIED (checked in, not out)
//	>  RESERVED (any active booking)  >  AVAILABLE
//
// The function is a pure derivation; the seat row is only ever a
// materialized view of this result.
func DeriveSeatStatus(override *string, active []model.Reservation) string {
    if override != nil {
        switch *override {
        case model.SeatMaintenance, model.SeatOutOfOrder:
            return *override
        }
    }
    reserved := false
    for i := range active {
        r := &active[i]
        if r.Status != model.ReservationActive {
            continue
        }
        if r.CheckInAt != nil && r.CheckOutAt == nil {
            return model.SeatOccupied
        }
        reserved = true
    }
    if reserved {
        return model.SeatReserved
    }
    return model.SeatAvailable
}

// syncSeatTx recomputes and writes the derived status for a seat inside
// the same transaction as the reservation change that invalidated it,
// so no intermediate inconsistent state is ever visible.
func (s *Service) syncSeatTx(ctx context.Context, tx *sql.Tx, seatID uint64) error {
    seat, err := s.seats.GetByIDForUpdateTx(ctx, tx, seatID)
    if err != nil {
        return err
    }
    active, err := s.reservations.ListActiveForSeatTx(ctx, tx, seatID)
    if err != nil {
        return err
    }
    status := DeriveSeatStatus(seat.AdminOverride, active)
    if status == seat.Status {
        return nil
    }
    return s.seats.UpdateStatusTx(ctx, tx, seatID, status)
}
