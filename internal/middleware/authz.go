package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/study-room-reservation/internal/model"
)

// Rule binds a routed method and path pattern to the role required to
// call it.  Patterns are Echo route patterns (the registered path,
// e.g. "/v1/admin/users/:id/status"), so matching is an exact string
// compare against c.Path() — no ad hoc prefix or substring matching.
type Rule struct {
    Method string
    Path   string
    Role   string
}

// AdminRules is the fixed set of admin-only operations: bulk listings,
// forced status changes and seat overrides.
var AdminRules = []Rule{
    {http.MethodGet, "/v1/admin/reservations", model.RoleAdmin},
    {http.MethodGet, "/v1/admin/users", model.RoleAdmin},
    {http.MethodPost, "/v1/admin/reservations/:id/force-cancel", model.RoleAdmin},
    {http.MethodPatch, "/v1/admin/users/:id/status", model.RoleAdmin},
    {http.MethodPatch, "/v1/admin/seats/:id/override", model.RoleAdmin},
}

// Authorize evaluates the rule table once at registration into a lookup
// map and enforces it per request.  Routes without a rule only require
// an authenticated caller (JWTAuth must run first); routes with a rule
// additionally require the listed role, otherwise 403.
func Authorize(rules []Rule) echo.MiddlewareFunc {
    required := make(map[string]string, len(rules))
    for _, r := range rules {
        required[r.Method+" "+r.Path] = r.Role
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, _ := c.Get(CtxRole).(string)
            if role == "" {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            if want, ok := required[c.Request().Method+" "+c.Path()]; ok && role != want {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
