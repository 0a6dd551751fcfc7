package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/study-room-reservation/internal/model"
	"github.com/iliyamo/study-room-reservation/internal/repository"
)

var fixedNow = time.Date(2026, 1, 10, 10, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	svc := NewService(db,
		repository.NewRoomRepo(db),
		repository.NewSeatRepo(db),
		repository.NewReservationRepo(db),
		nil, 15*time.Minute)
	svc.now = func() time.Time { return fixedNow }
	return svc, mock
}

var (
	seatCols = []string{"id", "room_id", "seat_number", "seat_type", "status", "admin_override", "created_at", "updated_at"}
	roomCols = []string{"id", "name", "capacity", "rate_cents", "open_time", "close_time", "status", "created_at", "updated_at"}
	resCols  = []string{"id", "code", "user_id", "seat_id", "starts_at", "ends_at", "status", "payment_status",
		"total_cents", "check_in_at", "check_out_at", "notes", "created_at", "updated_at"}
)

func seatRow(status string) *sqlmock.Rows {
	return sqlmock.NewRows(seatCols).
		AddRow(5, 2, 12, "STANDARD", status, nil, fixedNow, fixedNow)
}

func roomRow(status string) *sqlmock.Rows {
	return sqlmock.NewRows(roomCols).
		AddRow(2, "Quiet Room", 40, 1500, "08:00", "22:00", status, fixedNow, fixedNow)
}

func reservationRow(id uint64, status, payment string, start, end time.Time, checkIn interface{}) *sqlmock.Rows {
	return sqlmock.NewRows(resCols).
		AddRow(id, "7KQ2MWPX4R", 9, 5, start, end, status, payment, 3750, checkIn, nil, nil, fixedNow, fixedNow)
}

const (
	qSeatForUpdate = `FROM seats WHERE id = \? FOR UPDATE`
	qRoomBySeat    = `FROM rooms r JOIN seats`
	qSeatOverlap   = `WHERE seat_id = \? AND status = 'ACTIVE' AND id <> \?`
	qUserOverlap   = `WHERE user_id = \? AND status = 'ACTIVE' AND id <> \?`
	qInsertRes     = `INSERT INTO reservations`
	qResByID       = `FROM reservations WHERE id = \?`
	qResForUpdate  = `FROM reservations WHERE id = \? FOR UPDATE`
	qActiveForSeat = `AND status = 'ACTIVE' ORDER BY starts_at`
	qSeatStatus    = `UPDATE seats SET status`
	qResTransition = `UPDATE reservations SET status`
)

// expectCreateSuccess enqueues the full happy-path expectation sequence
// for one Create call booking seat 5 for [start, end).
func expectCreateSuccess(mock sqlmock.Sqlmock, start, end time.Time) {
	mock.ExpectBegin()
	mock.ExpectQuery(qSeatForUpdate).WillReturnRows(seatRow(model.SeatAvailable))
	mock.ExpectQuery(qRoomBySeat).WillReturnRows(roomRow(model.RoomAvailable))
	mock.ExpectQuery(qSeatOverlap).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery(qUserOverlap).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(qInsertRes).WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectQuery(qResByID).
		WillReturnRows(reservationRow(41, model.ReservationActive, model.PaymentPending, start, end, nil))
	// Seat state sync inside the same transaction.
	mock.ExpectQuery(qSeatForUpdate).WillReturnRows(seatRow(model.SeatAvailable))
	mock.ExpectQuery(qActiveForSeat).
		WillReturnRows(reservationRow(41, model.ReservationActive, model.PaymentPending, start, end, nil))
	mock.ExpectExec(qSeatStatus).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func TestCreate_Success(t *testing.T) {
	svc, mock := newTestService(t)
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	end := start.Add(2*time.Hour + 30*time.Minute)
	expectCreateSuccess(mock, start, end)

	res, err := svc.Create(context.Background(), 9, 5, start, end, nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if res.Status != model.ReservationActive || res.PaymentStatus != model.PaymentPending {
		t.Fatalf("fresh booking must be ACTIVE/PENDING, got %s/%s", res.Status, res.PaymentStatus)
	}
	if res.TotalCents != 3750 {
		t.Fatalf("2.5h at 1500c/h should cost 3750, got %d", res.TotalCents)
	}
	if res.Code == "" {
		t.Fatalf("reservation must carry a code")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_SeatConflict(t *testing.T) {
	svc, mock := newTestService(t)
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(qSeatForUpdate).WillReturnRows(seatRow(model.SeatAvailable))
	mock.ExpectQuery(qRoomBySeat).WillReturnRows(roomRow(model.RoomAvailable))
	mock.ExpectQuery(qSeatOverlap).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), 9, 5, start, end, nil)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_RejectsOutsideRoomHours(t *testing.T) {
	svc, mock := newTestService(t)
	// Room opens 08:00; a 07:00 start must be refused before any
	// conflict check runs.
	start := time.Date(2026, 1, 10, 7, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(qSeatForUpdate).WillReturnRows(seatRow(model.SeatAvailable))
	mock.ExpectQuery(qRoomBySeat).WillReturnRows(roomRow(model.RoomAvailable))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), 9, 5, start, end, nil)
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("want ErrInvalidInterval, got %v", err)
	}
}

func TestCreate_SeatUnderOverride(t *testing.T) {
	svc, mock := newTestService(t)
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	row := sqlmock.NewRows(seatCols).
		AddRow(5, 2, 12, "STANDARD", model.SeatMaintenance, model.SeatMaintenance, fixedNow, fixedNow)
	mock.ExpectBegin()
	mock.ExpectQuery(qSeatForUpdate).WillReturnRows(row)
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), 9, 5, start, start.Add(time.Hour), nil)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict for overridden seat, got %v", err)
	}
}

func TestCreate_InvertedInterval(t *testing.T) {
	svc, _ := newTestService(t)
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), 9, 5, start, start, nil)
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("want ErrInvalidInterval, got %v", err)
	}
}

// Two clients racing for the same seat and window: the keyed lock
// serializes them, the first inserts, the second sees the overlap count
// and gets ErrConflict.
func TestCreate_ConcurrentExactlyOneWins(t *testing.T) {
	svc, mock := newTestService(t)
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	// Whichever goroutine enters first consumes the success sequence;
	// the other hits the conflict sequence.
	expectCreateSuccess(mock, start, end)
	mock.ExpectBegin()
	mock.ExpectQuery(qSeatForUpdate).WillReturnRows(seatRow(model.SeatReserved))
	mock.ExpectQuery(qRoomBySeat).WillReturnRows(roomRow(model.RoomAvailable))
	mock.ExpectQuery(qSeatOverlap).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), uint64(100+i), 5, start, end, nil)
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("want exactly one winner and one conflict, got %d/%d", wins, conflicts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCheckOut_WithoutCheckIn(t *testing.T) {
	svc, mock := newTestService(t)
	start := fixedNow.Add(-time.Hour)
	end := fixedNow.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(qResForUpdate).
		WillReturnRows(reservationRow(41, model.ReservationActive, model.PaymentPaid, start, end, nil))
	mock.ExpectRollback()

	_, err := svc.CheckOut(context.Background(), 9, false, 41)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("check-out before check-in must fail, got %v", err)
	}
}

func TestCheckIn_BeforeWindowOpens(t *testing.T) {
	svc, mock := newTestService(t)
	start := fixedNow.Add(time.Hour) // not started yet
	end := start.Add(2 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(qResForUpdate).
		WillReturnRows(reservationRow(41, model.ReservationActive, model.PaymentPaid, start, end, nil))
	mock.ExpectRollback()

	_, err := svc.CheckIn(context.Background(), 9, false, 41)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("early check-in must fail, got %v", err)
	}
}

func TestCheckIn_RequiresPayment(t *testing.T) {
	svc, mock := newTestService(t)
	start := fixedNow.Add(-10 * time.Minute)
	end := fixedNow.Add(2 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(qResForUpdate).
		WillReturnRows(reservationRow(41, model.ReservationActive, model.PaymentPending, start, end, nil))
	mock.ExpectRollback()

	_, err := svc.CheckIn(context.Background(), 9, false, 41)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("unpaid check-in must fail, got %v", err)
	}
}

func TestCancel_AfterCompleted(t *testing.T) {
	svc, mock := newTestService(t)
	start := fixedNow.Add(-3 * time.Hour)
	end := fixedNow.Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(qResForUpdate).
		WillReturnRows(reservationRow(41, model.ReservationCompleted, model.PaymentPaid, start, end, nil))
	// Guarded update touches no rows because the status is not ACTIVE.
	mock.ExpectExec(qResTransition).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.Cancel(context.Background(), 9, false, 41, "")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancelling a completed reservation must fail, got %v", err)
	}
}

func TestCancel_RefundsPaidBooking(t *testing.T) {
	svc, mock := newTestService(t)
	start := fixedNow.Add(time.Hour)
	end := start.Add(2 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(qResForUpdate).
		WillReturnRows(reservationRow(41, model.ReservationActive, model.PaymentPaid, start, end, nil))
	mock.ExpectExec(qResTransition).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE reservations SET payment_status`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(qSeatForUpdate).WillReturnRows(seatRow(model.SeatReserved))
	mock.ExpectQuery(qActiveForSeat).WillReturnRows(sqlmock.NewRows(resCols))
	mock.ExpectExec(qSeatStatus).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Cancel(context.Background(), 9, false, 41, "change of plans")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if res.Status != model.ReservationCancelled || res.PaymentStatus != model.PaymentRefunded {
		t.Fatalf("want CANCELLED/REFUNDED, got %s/%s", res.Status, res.PaymentStatus)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGet_ForbiddenForOtherUser(t *testing.T) {
	svc, mock := newTestService(t)
	start := fixedNow.Add(time.Hour)
	mock.ExpectQuery(qResByID).
		WillReturnRows(reservationRow(41, model.ReservationActive, model.PaymentPending, start, start.Add(time.Hour), nil))

	if _, err := svc.Get(context.Background(), 777, false, 41); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign reservation must be forbidden, got %v", err)
	}

	// Admins see everything.
	mock.ExpectQuery(qResByID).
		WillReturnRows(reservationRow(41, model.ReservationActive, model.PaymentPending, start, start.Add(time.Hour), nil))
	if _, err := svc.Get(context.Background(), 777, true, 41); err != nil {
		t.Fatalf("admin read failed: %v", err)
	}
}

func TestExtend_DeltaConflict(t *testing.T) {
	svc, mock := newTestService(t)
	start := fixedNow.Add(time.Hour)
	end := start.Add(time.Hour)
	newEnd := end.Add(time.Hour)

	mock.ExpectQuery(qResByID).
		WillReturnRows(reservationRow(41, model.ReservationActive, model.PaymentPending, start, end, nil))
	mock.ExpectBegin()
	mock.ExpectQuery(qResForUpdate).
		WillReturnRows(reservationRow(41, model.ReservationActive, model.PaymentPending, start, end, nil))
	mock.ExpectQuery(qRoomBySeat).WillReturnRows(roomRow(model.RoomAvailable))
	// Someone else already booked part of [end, newEnd).
	mock.ExpectQuery(qActiveForSeat).
		WillReturnRows(reservationRow(50, model.ReservationActive, model.PaymentPaid,
			end.Add(30*time.Minute), newEnd.Add(30*time.Minute), nil))
	mock.ExpectRollback()

	_, err := svc.Extend(context.Background(), 9, false, 41, newEnd)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict on delta overlap, got %v", err)
	}
}

func TestExtend_RecomputesTotal(t *testing.T) {
	svc, mock := newTestService(t)
	start := fixedNow.Add(time.Hour)
	end := start.Add(time.Hour)
	newEnd := end.Add(90 * time.Minute)

	mock.ExpectQuery(qResByID).
		WillReturnRows(reservationRow(41, model.ReservationActive, model.PaymentPending, start, end, nil))
	mock.ExpectBegin()
	mock.ExpectQuery(qResForUpdate).
		WillReturnRows(reservationRow(41, model.ReservationActive, model.PaymentPending, start, end, nil))
	mock.ExpectQuery(qRoomBySeat).WillReturnRows(roomRow(model.RoomAvailable))
	// The booking's own row comes back from the listing and is ignored.
	mock.ExpectQuery(qActiveForSeat).
		WillReturnRows(reservationRow(41, model.ReservationActive, model.PaymentPending, start, end, nil))
	mock.ExpectQuery(qUserOverlap).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`UPDATE reservations SET ends_at`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Extend(context.Background(), 9, false, 41, newEnd)
	if err != nil {
		t.Fatalf("extend failed: %v", err)
	}
	// 2.5h total at 1500c/h.
	if res.TotalCents != 3750 {
		t.Fatalf("total not recomputed, got %d want 3750", res.TotalCents)
	}
	if !res.EndsAt.Equal(newEnd) {
		t.Fatalf("end not moved, got %s", res.EndsAt)
	}
}

func TestExtend_MustGrow(t *testing.T) {
	svc, mock := newTestService(t)
	start := fixedNow.Add(time.Hour)
	end := start.Add(2 * time.Hour)

	mock.ExpectQuery(qResByID).
		WillReturnRows(reservationRow(41, model.ReservationActive, model.PaymentPending, start, end, nil))
	mock.ExpectBegin()
	mock.ExpectQuery(qResForUpdate).
		WillReturnRows(reservationRow(41, model.ReservationActive, model.PaymentPending, start, end, nil))
	mock.ExpectRollback()

	_, err := svc.Extend(context.Background(), 9, false, 41, end.Add(-time.Minute))
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("shrinking extend must fail, got %v", err)
	}
}
