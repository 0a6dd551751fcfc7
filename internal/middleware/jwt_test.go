package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-room-reservation/internal/model"
	"github.com/iliyamo/study-room-reservation/internal/utils"
)

const testSecret = "test-secret"

func doAuthed(t *testing.T, header string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	var captured echo.Context
	e.GET("/v1/me", func(c echo.Context) error {
		captured = c
		return c.NoContent(http.StatusOK)
	}, JWTAuth(testSecret))

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, captured
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	rec, _ := doAuthed(t, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rec.Code)
	}
}

func TestJWTAuth_GarbageToken(t *testing.T) {
	rec, _ := doAuthed(t, "Bearer not.a.token")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rec.Code)
	}
}

func TestJWTAuth_ExpiredToken(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 9, "a@b.test", model.RoleUser, -5)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	rec, _ := doAuthed(t, "Bearer "+tok.Token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token must be rejected, got %d", rec.Code)
	}
}

func TestJWTAuth_WrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("other-secret", 9, "a@b.test", model.RoleUser, 10)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	rec, _ := doAuthed(t, "Bearer "+tok.Token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("foreign signature must be rejected, got %d", rec.Code)
	}
}

func TestJWTAuth_ValidTokenSetsIdentity(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 9, "a@b.test", model.RoleAdmin, 10)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	rec, c := doAuthed(t, "Bearer "+tok.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token rejected with %d", rec.Code)
	}
	if uid, _ := c.Get(CtxUserID).(uint64); uid != 9 {
		t.Fatalf("user id not set, got %v", c.Get(CtxUserID))
	}
	if role, _ := c.Get(CtxRole).(string); role != model.RoleAdmin {
		t.Fatalf("role not set, got %v", c.Get(CtxRole))
	}
	if email, _ := c.Get(CtxEmail).(string); email != "a@b.test" {
		t.Fatalf("email not set, got %v", c.Get(CtxEmail))
	}
}
