package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-room-reservation/internal/repository"
)

// RoomHandler serves the public browse endpoints: rooms, their seats and
// seat availability for a requested interval.
type RoomHandler struct {
	Rooms *repository.RoomRepo
	Seats *repository.SeatRepo
}

func NewRoomHandler(rooms *repository.RoomRepo, seats *repository.SeatRepo) *RoomHandler {
	return &RoomHandler{Rooms: rooms, Seats: seats}
}

// ListRooms returns every room with its rate and opening hours.
func (h *RoomHandler) ListRooms(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	rooms, err := h.Rooms.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"rooms": rooms})
}

// ListSeats returns the seats of one room with their current derived status.
func (h *RoomHandler) ListSeats(c echo.Context) error {
	roomID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, err := h.Rooms.GetByID(ctx, roomID); err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
	}
	seats, err := h.Seats.ListByRoom(ctx, roomID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"seats": seats})
}

// Availability lists the seats of a room free for the whole interval given
// by the from/to query parameters (RFC 3339).  Seats under an admin
// override are never offered.
func (h *RoomHandler) Availability(c echo.Context) error {
	roomID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	from, err := time.Parse(time.RFC3339, c.QueryParam("from"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be RFC 3339"})
	}
	to, err := time.Parse(time.RFC3339, c.QueryParam("to"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be RFC 3339"})
	}
	if !from.Before(to) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must precede to"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, err := h.Rooms.GetByID(ctx, roomID); err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
	}
	seats, err := h.Seats.ListAvailableForInterval(ctx, roomID, from.UTC(), to.UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"room_id": roomID,
		"from":    from.UTC(),
		"to":      to.UTC(),
		"seats":   seats,
	})
}
