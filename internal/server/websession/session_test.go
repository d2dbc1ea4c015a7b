package websession

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"filegate/internal/server/service"
)

func newSessionApp() *echo.Echo {
	e := echo.New()
	e.Use(NewMiddleware("test-secret", time.Hour))
	return e
}

func do(e *echo.Echo, method, target string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// carry returns the cookies to send on the next request: the response's
// fresh session cookie when present, otherwise the previous ones.
func carry(prev []*http.Cookie, rec *httptest.ResponseRecorder) []*http.Cookie {
	if fresh := rec.Result().Cookies(); len(fresh) > 0 {
		return fresh
	}
	return prev
}

func TestCaptchaSingleUse(t *testing.T) {
	e := newSessionApp()
	e.GET("/issue", func(c echo.Context) error {
		if err := SetCaptcha(c, "AbC42"); err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/check", func(c echo.Context) error {
		if CheckCaptcha(c, c.QueryParam("a")) {
			return c.String(http.StatusOK, "ok")
		}
		return c.String(http.StatusOK, "fail")
	})

	var cookies []*http.Cookie

	rec := do(e, http.MethodGet, "/issue", cookies)
	cookies = carry(cookies, rec)

	t.Run("case-insensitive match succeeds once", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/check?a=ABC42", cookies)
		cookies = carry(cookies, rec)
		if rec.Body.String() != "ok" {
			t.Errorf("first check should pass, got %q", rec.Body.String())
		}
	})

	t.Run("same answer fails the second time", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/check?a=ABC42", cookies)
		cookies = carry(cookies, rec)
		if rec.Body.String() != "fail" {
			t.Errorf("resubmitted captcha must fail, got %q", rec.Body.String())
		}
	})

	t.Run("failed check also consumes the answer", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/issue", cookies)
		cookies = carry(cookies, rec)

		rec = do(e, http.MethodGet, "/check?a=wrong", cookies)
		cookies = carry(cookies, rec)
		if rec.Body.String() != "fail" {
			t.Fatalf("wrong answer should fail, got %q", rec.Body.String())
		}

		// The right answer no longer works either.
		rec = do(e, http.MethodGet, "/check?a=abc42", cookies)
		cookies = carry(cookies, rec)
		if rec.Body.String() != "fail" {
			t.Errorf("answer must be consumed by the failed check, got %q", rec.Body.String())
		}
	})

	t.Run("no outstanding captcha fails", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/check?a=", nil)
		if rec.Body.String() != "fail" {
			t.Errorf("empty session should fail the check, got %q", rec.Body.String())
		}
	})
}

func TestFlashOneShot(t *testing.T) {
	e := newSessionApp()
	e.GET("/flash", func(c echo.Context) error {
		if err := Flash(c, "saved"); err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/read", func(c echo.Context) error {
		return c.String(http.StatusOK, TakeFlash(c))
	})

	var cookies []*http.Cookie

	rec := do(e, http.MethodGet, "/flash", cookies)
	cookies = carry(cookies, rec)

	rec = do(e, http.MethodGet, "/read", cookies)
	cookies = carry(cookies, rec)
	if rec.Body.String() != "saved" {
		t.Errorf("first read should return the flash, got %q", rec.Body.String())
	}

	rec = do(e, http.MethodGet, "/read", cookies)
	if rec.Body.String() != "" {
		t.Errorf("flash must be rendered once, got %q", rec.Body.String())
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	e := newSessionApp()
	id := service.Identity{ID: 7, Username: "alice", Email: "alice@example.com", IsAdmin: true}

	e.GET("/login", func(c echo.Context) error {
		if err := SetIdentity(c, &id); err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/whoami", func(c echo.Context) error {
		user, ok := Current(c)
		if !ok {
			return c.String(http.StatusOK, "anonymous")
		}
		return c.String(http.StatusOK, user.Username)
	})
	e.GET("/logout", func(c echo.Context) error {
		if err := Clear(c); err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	})

	var cookies []*http.Cookie

	t.Run("anonymous before login", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/whoami", cookies)
		if rec.Body.String() != "anonymous" {
			t.Errorf("expected anonymous, got %q", rec.Body.String())
		}
	})

	rec := do(e, http.MethodGet, "/login", cookies)
	cookies = carry(cookies, rec)

	t.Run("identity survives requests", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/whoami", cookies)
		if rec.Body.String() != "alice" {
			t.Errorf("expected alice, got %q", rec.Body.String())
		}
	})

	t.Run("logout clears the session", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/logout", cookies)
		cookies = carry(cookies, rec)

		rec = do(e, http.MethodGet, "/whoami", cookies)
		if rec.Body.String() != "anonymous" {
			t.Errorf("expected anonymous after logout, got %q", rec.Body.String())
		}
	})
}
