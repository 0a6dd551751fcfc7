// Package handler contains the HTTP layer: request binding, auth context
// extraction and translation of domain errors into status codes.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-room-reservation/internal/booking"
	"github.com/iliyamo/study-room-reservation/internal/middleware"
	"github.com/iliyamo/study-room-reservation/internal/model"
)

const dbTimeout = 5 * time.Second

// currentUserID reads the authenticated user's id set by the JWT middleware.
func currentUserID(c echo.Context) (uint64, bool) {
	v, ok := c.Get(middleware.CtxUserID).(uint64)
	return v, ok && v != 0
}

func currentRole(c echo.Context) string {
	r, _ := c.Get(middleware.CtxRole).(string)
	return r
}

func isAdmin(c echo.Context) bool { return currentRole(c) == model.RoleAdmin }

// pathID parses a numeric :param from the route path.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// bookingError maps the booking package's sentinel errors onto HTTP
// responses.  Anything unrecognized is a 500.
func bookingError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, booking.ErrInvalidInterval):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_interval", "message": err.Error()})
	case errors.Is(err, booking.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict", "message": err.Error()})
	case errors.Is(err, booking.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid_transition", "message": err.Error()})
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	case errors.Is(err, booking.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, booking.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store_unavailable", "message": "try again shortly"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}
}

// reservationView is the wire shape of a reservation in responses.
type reservationView struct {
	ID            uint64     `json:"id"`
	Code          string     `json:"code"`
	UserID        uint64     `json:"user_id"`
	SeatID        uint64     `json:"seat_id"`
	StartsAt      time.Time  `json:"starts_at"`
	EndsAt        time.Time  `json:"ends_at"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	TotalCents    int64      `json:"total_cents"`
	CheckInAt     *time.Time `json:"check_in_at,omitempty"`
	CheckOutAt    *time.Time `json:"check_out_at,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toReservationView(r *model.Reservation) reservationView {
	return reservationView{
		ID:            r.ID,
		Code:          r.Code,
		UserID:        r.UserID,
		SeatID:        r.SeatID,
		StartsAt:      r.StartsAt,
		EndsAt:        r.EndsAt,
		Status:        r.Status,
		PaymentStatus: r.PaymentStatus,
		TotalCents:    r.TotalCents,
		CheckInAt:     r.CheckInAt,
		CheckOutAt:    r.CheckOutAt,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt,
	}
}

func toReservationViews(rs []model.Reservation) []reservationView {
	out := make([]reservationView, 0, len(rs))
	for i := range rs {
		out = append(out, toReservationView(&rs[i]))
	}
	return out
}
