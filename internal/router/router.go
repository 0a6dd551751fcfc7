// Package router wires HTTP routes to handlers and hangs the auth and
// rate-limit middleware on the right groups.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-room-reservation/internal/handler"
	"github.com/iliyamo/study-room-reservation/internal/middleware"
	"github.com/iliyamo/study-room-reservation/internal/model"
)

// Handlers collects everything the router needs to register the full API.
type Handlers struct {
	Auth        *handler.AuthHandler
	Rooms       *handler.RoomHandler
	Reservation *handler.ReservationHandler
	Admin       *handler.AdminHandler
}

// Register sets up the whole route table:
//
//	/healthz                      liveness, no auth
//	/v1/auth/*                    register, login, refresh, logout
//	/v1/rooms...                  public browse and availability
//	/v1/reservations...           authenticated lifecycle operations
//	/v1/admin/...                 operator endpoints, ADMIN role only
//
// rateLimit applies to mutating reservation routes so one client cannot
// hammer seat booking; browse traffic stays unthrottled.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rateLimit echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)

	// Session endpoints.  Logout also works here with a refresh token in
	// the body; the all-sessions variant lives under the protected group.
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	// Guest-visible browse endpoints.
	e.GET("/v1/rooms", h.Rooms.ListRooms)
	e.GET("/v1/rooms/:id/seats", h.Rooms.ListSeats)
	e.GET("/v1/rooms/:id/availability", h.Rooms.Availability)

	// Everything below requires a valid access token.  The declarative
	// rule table rejects non-admin calls to admin paths before any
	// handler runs.
	v1 := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.Authorize(middleware.AdminRules))
	v1.GET("/me", h.Auth.Me)
	v1.POST("/logout", h.Auth.Logout)

	v1.POST("/reservations", h.Reservation.Create, rateLimit)
	v1.GET("/reservations", h.Reservation.ListMine)
	v1.GET("/reservations/:id", h.Reservation.Get)
	v1.POST("/reservations/:id/pay", h.Reservation.Pay, rateLimit)
	v1.POST("/reservations/:id/check-in", h.Reservation.CheckIn, rateLimit)
	v1.POST("/reservations/:id/check-out", h.Reservation.CheckOut, rateLimit)
	v1.POST("/reservations/:id/cancel", h.Reservation.Cancel, rateLimit)
	v1.POST("/reservations/:id/extend", h.Reservation.Extend, rateLimit)
	v1.GET("/users/:id/reservations", h.Reservation.ListForUser)
	v1.GET("/seats/:id/reservations", h.Reservation.ListForSeat)

	admin := v1.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	admin.GET("/reservations", h.Admin.ListReservations)
	admin.POST("/reservations/:id/force-cancel", h.Admin.ForceCancel)
	admin.GET("/users", h.Admin.ListUsers)
	admin.PATCH("/users/:id/status", h.Admin.SetUserStatus)
	admin.PATCH("/seats/:id/override", h.Admin.SetSeatOverride)
}
