package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-room-reservation/internal/booking"
	"github.com/iliyamo/study-room-reservation/internal/repository"
)

// ReservationHandler exposes the reservation lifecycle over HTTP.  All
// business rules live in the booking service; this layer binds requests,
// resolves the caller and replays idempotent creates.
type ReservationHandler struct {
	Svc          *booking.Service
	Reservations *repository.ReservationRepo
	Idem         *repository.IdempotencyStore
}

func NewReservationHandler(svc *booking.Service, res *repository.ReservationRepo, idem *repository.IdempotencyStore) *ReservationHandler {
	return &ReservationHandler{Svc: svc, Reservations: res, Idem: idem}
}

type createReservationReq struct {
	SeatID   uint64    `json:"seat_id"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Notes    *string   `json:"notes,omitempty"`
}

type payReq struct {
	Method string `json:"method"`
}

type cancelReq struct {
	Reason string `json:"reason"`
}

type extendReq struct {
	EndsAt time.Time `json:"ends_at"`
}

// Create books a seat for the caller.  When an Idempotency-Key header is
// present, a retried request with the same key returns the reservation
// created by the first attempt instead of booking twice.
func (h *ReservationHandler) Create(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.SeatID == 0 || req.StartsAt.IsZero() || req.EndsAt.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_id, starts_at and ends_at required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	idemKey := strings.TrimSpace(c.Request().Header.Get("Idempotency-Key"))
	if idemKey != "" && h.Idem != nil {
		if code, err := h.Idem.Lookup(ctx, uid, idemKey); err == nil && code != "" {
			prior, err := h.Reservations.GetByCode(ctx, code)
			if err == nil {
				return c.JSON(http.StatusOK, toReservationView(prior))
			}
		}
	}

	res, err := h.Svc.Create(ctx, uid, req.SeatID, req.StartsAt.UTC(), req.EndsAt.UTC(), req.Notes)
	if err != nil {
		return bookingError(c, err)
	}

	if idemKey != "" && h.Idem != nil {
		// Best effort; a failed remember only costs a duplicate on retry.
		_ = h.Idem.Remember(ctx, uid, idemKey, res.Code)
	}

	return c.JSON(http.StatusCreated, toReservationView(res))
}

// Get returns a single reservation.  Owners see their own, admins see all.
func (h *ReservationHandler) Get(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Svc.Get(ctx, uid, isAdmin(c), id)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationView(res))
}

// ListMine returns the caller's reservation history, newest first.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	rs, err := h.Reservations.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": toReservationViews(rs)})
}

// ListForUser returns one user's reservation history.  A user may only
// read their own; admins may read anyone's.
func (h *ReservationHandler) ListForUser(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	target, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if target != uid && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	rs, err := h.Reservations.ListByUser(ctx, target)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": target, "reservations": toReservationViews(rs)})
}

// ListForSeat returns the booking history of one seat, terminal rows
// included, so clients can render a seat's schedule.
func (h *ReservationHandler) ListForSeat(c echo.Context) error {
	seatID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	rs, err := h.Reservations.ListBySeat(ctx, seatID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"seat_id": seatID, "reservations": toReservationViews(rs)})
}

// Pay marks the reservation as paid.  The method field is recorded in the
// logs only; there is no payment gateway behind this endpoint.
func (h *ReservationHandler) Pay(c echo.Context) error {
	return h.transition(c, func(ctx context.Context, uid uint64, admin bool, id uint64) (interface{}, error) {
		var req payReq
		_ = c.Bind(&req)
		res, err := h.Svc.Pay(ctx, uid, admin, id, strings.TrimSpace(req.Method))
		if err != nil {
			return nil, err
		}
		return toReservationView(res), nil
	})
}

// CheckIn records physical arrival at the seat.
func (h *ReservationHandler) CheckIn(c echo.Context) error {
	return h.transition(c, func(ctx context.Context, uid uint64, admin bool, id uint64) (interface{}, error) {
		res, err := h.Svc.CheckIn(ctx, uid, admin, id)
		if err != nil {
			return nil, err
		}
		return toReservationView(res), nil
	})
}

// CheckOut ends the visit and completes the reservation.
func (h *ReservationHandler) CheckOut(c echo.Context) error {
	return h.transition(c, func(ctx context.Context, uid uint64, admin bool, id uint64) (interface{}, error) {
		res, err := h.Svc.CheckOut(ctx, uid, admin, id)
		if err != nil {
			return nil, err
		}
		return toReservationView(res), nil
	})
}

// Cancel voids an active reservation.  Paid reservations are refunded.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	return h.transition(c, func(ctx context.Context, uid uint64, admin bool, id uint64) (interface{}, error) {
		var req cancelReq
		_ = c.Bind(&req)
		res, err := h.Svc.Cancel(ctx, uid, admin, id, strings.TrimSpace(req.Reason))
		if err != nil {
			return nil, err
		}
		return toReservationView(res), nil
	})
}

// Extend pushes the reservation's end later, re-checking conflicts for the
// added interval only.
func (h *ReservationHandler) Extend(c echo.Context) error {
	return h.transition(c, func(ctx context.Context, uid uint64, admin bool, id uint64) (interface{}, error) {
		var req extendReq
		if err := c.Bind(&req); err != nil || req.EndsAt.IsZero() {
			return nil, booking.ErrInvalidInterval
		}
		res, err := h.Svc.Extend(ctx, uid, admin, id, req.EndsAt.UTC())
		if err != nil {
			return nil, err
		}
		return toReservationView(res), nil
	})
}

// transition factors the shared shape of the lifecycle endpoints: resolve
// the caller, parse the id, run the operation, map errors.
func (h *ReservationHandler) transition(c echo.Context, fn func(ctx context.Context, uid uint64, admin bool, id uint64) (interface{}, error)) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	out, err := fn(ctx, uid, isAdmin(c), id)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
