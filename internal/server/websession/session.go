// Package websession is a typed wrapper around the cookie session.
// A session carries three things: the authenticated identity snapshot,
// the pending captcha answer (consumed exactly once per check) and a
// one-shot flash message.
package websession

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"filegate/internal/server/service"
)

const sessionName = "filegate_session"

const (
	keyUserID   = "user_id"
	keyUsername = "username"
	keyEmail    = "email"
	keyIsAdmin  = "is_admin"
	keyCaptcha  = "captcha"
)

// NewMiddleware returns the echo session middleware backed by a cookie
// store with the given secret and lifetime.
func NewMiddleware(secret string, maxAge time.Duration) echo.MiddlewareFunc {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return session.Middleware(store)
}

// Current returns the identity stored in the session, if any.
func Current(c echo.Context) (service.Identity, bool) {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return service.Identity{}, false
	}
	id, ok := sess.Values[keyUserID].(int64)
	if !ok {
		return service.Identity{}, false
	}
	username, _ := sess.Values[keyUsername].(string)
	email, _ := sess.Values[keyEmail].(string)
	isAdmin, _ := sess.Values[keyIsAdmin].(bool)
	return service.Identity{ID: id, Username: username, Email: email, IsAdmin: isAdmin}, true
}

// SetIdentity stores the identity snapshot in the session.
func SetIdentity(c echo.Context, id *service.Identity) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values[keyUserID] = id.ID
	sess.Values[keyUsername] = id.Username
	sess.Values[keyEmail] = id.Email
	sess.Values[keyIsAdmin] = id.IsAdmin
	return sess.Save(c.Request(), c.Response())
}

// Clear destroys the session.
func Clear(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// SetCaptcha stores the outstanding captcha answer, lowercased.
func SetCaptcha(c echo.Context, answer string) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values[keyCaptcha] = strings.ToLower(answer)
	return sess.Save(c.Request(), c.Response())
}

// CheckCaptcha consumes the outstanding captcha answer and compares it,
// case-insensitively, against the submitted one. The stored answer is
// cleared regardless of outcome, so a stale captcha fails the second
// time it is tried.
func CheckCaptcha(c echo.Context, submitted string) bool {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return false
	}
	stored, _ := sess.Values[keyCaptcha].(string)
	delete(sess.Values, keyCaptcha)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return false
	}
	return stored != "" && stored == strings.ToLower(strings.TrimSpace(submitted))
}

// Flash attaches a one-shot message to the session.
func Flash(c echo.Context, message string) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.AddFlash(message)
	return sess.Save(c.Request(), c.Response())
}

// TakeFlash returns the pending flash message, clearing it.
func TakeFlash(c echo.Context) string {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return ""
	}
	flashes := sess.Flashes()
	if len(flashes) == 0 {
		return ""
	}
	// Reading flashes removes them; persist the removal.
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return ""
	}
	msg, _ := flashes[0].(string)
	return msg
}
