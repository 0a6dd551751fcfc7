package middleware // reusable HTTP middleware for the API

import (
    "net/http"
    "strconv"
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// Context keys populated by JWTAuth for downstream middleware and handlers.
const (
    CtxUserID = "user_id"
    CtxRole   = "role"
    CtxEmail  = "email"
)

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and injects the caller's identity into the request context.
// The token must be HS256-signed with the provided secret; anything
// absent, malformed, expired or carrying a bad signature is rejected
// with 401 before the handler runs.  Expiry is checked by the parser;
// user status is deliberately not re-read from the store per request.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }

            uid, ok := numericClaim(claims["uid"])
            if !ok || uid == 0 {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }
            role, _ := claims["role"].(string)
            email, _ := claims["sub"].(string)

            c.Set(CtxUserID, uid)
            c.Set(CtxRole, role)
            c.Set(CtxEmail, email)
            return next(c)
        }
    }
}

// numericClaim converts a JWT numeric claim (decoded as float64, or as
// a string by some issuers) to uint64.
func numericClaim(v interface{}) (uint64, bool) {
    switch n := v.(type) {
    case float64:
        if n < 0 {
            return 0, false
        }
        return uint64(n), true
    case string:
        out, err := strconv.ParseUint(n, 10, 64)
        return out, err == nil
    }
    return 0, false
}
