package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-room-reservation/internal/booking"
	"github.com/iliyamo/study-room-reservation/internal/model"
	"github.com/iliyamo/study-room-reservation/internal/repository"
)

// AdminHandler groups the operator endpoints: global reservation listings,
// forced cancellations, account management and seat overrides.  Route-level
// authorization guarantees only admins reach these.
type AdminHandler struct {
	Svc          *booking.Service
	Users        *repository.UserRepo
	Seats        *repository.SeatRepo
	Reservations *repository.ReservationRepo
}

func NewAdminHandler(svc *booking.Service, users *repository.UserRepo, seats *repository.SeatRepo, res *repository.ReservationRepo) *AdminHandler {
	return &AdminHandler{Svc: svc, Users: users, Seats: seats, Reservations: res}
}

// pageParams pulls limit/offset from the query string with sane bounds.
func pageParams(c echo.Context) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

// ListReservations returns a page of all reservations regardless of owner.
func (h *AdminHandler) ListReservations(c echo.Context) error {
	limit, offset := pageParams(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	rs, err := h.Reservations.ListAll(ctx, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": toReservationViews(rs), "limit": limit, "offset": offset})
}

// ForceCancel cancels any active reservation on behalf of an operator.
func (h *AdminHandler) ForceCancel(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req cancelReq
	_ = c.Bind(&req)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Svc.Cancel(ctx, uid, true, id, strings.TrimSpace(req.Reason))
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationView(res))
}

type adminUserView struct {
	ID       uint64 `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// ListUsers returns a page of accounts without password hashes.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	limit, offset := pageParams(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	users, err := h.Users.List(ctx, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]adminUserView, 0, len(users))
	for _, u := range users {
		out = append(out, adminUserView{ID: u.ID, Email: u.Email, Role: u.Role, IsActive: u.IsActive})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out, "limit": limit, "offset": offset})
}

type setUserStatusReq struct {
	Active *bool `json:"active"`
}

// SetUserStatus enables or disables an account.  Disabled accounts keep
// their reservations but can no longer log in or refresh tokens.
func (h *AdminHandler) SetUserStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req setUserStatusReq
	if err := c.Bind(&req); err != nil || req.Active == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "active (bool) required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Users.SetActive(ctx, id, *req.Active); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "active": *req.Active})
}

type seatOverrideReq struct {
	Override *string `json:"override"` // MAINTENANCE | OUT_OF_ORDER | null to clear
}

// SetSeatOverride places or clears a maintenance override on a seat.  An
// override trumps every reservation-derived status until cleared.
func (h *AdminHandler) SetSeatOverride(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req seatOverrideReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Override != nil {
		v := strings.ToUpper(strings.TrimSpace(*req.Override))
		if v != model.SeatMaintenance && v != model.SeatOutOfOrder {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "override must be MAINTENANCE, OUT_OF_ORDER or null"})
		}
		req.Override = &v
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Svc.SetSeatOverride(ctx, id, req.Override); err != nil {
		return bookingError(c, err)
	}
	seat, err := h.Seats.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reload seat failed"})
	}
	return c.JSON(http.StatusOK, seat)
}
