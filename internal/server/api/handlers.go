package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"filegate/internal/server/database"
	"filegate/internal/server/service"
	"filegate/internal/server/websession"
)

// Handler contains the HTTP handlers for the web front end.
type Handler struct {
	auth   *service.AuthService
	assets *service.AssetService
	db     *database.DB
}

// NewHandler creates a new handler with its service dependencies.
func NewHandler(auth *service.AuthService, assets *service.AssetService, db *database.DB) *Handler {
	return &Handler{auth: auth, assets: assets, db: db}
}

type pageData struct {
	User    *service.Identity
	Flash   string
	Next    string
	Archive *service.ArchiveInfo
	Image   string
}

func (h *Handler) page(c echo.Context) pageData {
	data := pageData{Flash: websession.TakeFlash(c)}
	if user, ok := websession.Current(c); ok {
		data.User = &user
	}
	return data
}

// HandleHome handles GET /.
// Shows the current image; authenticated users also see whether and
// what they can download.
func (h *Handler) HandleHome(c echo.Context) error {
	data := h.page(c)
	data.Image = h.assets.CurrentImageURL(c.Request().Context())

	if data.User != nil {
		info, err := h.assets.ArchiveInfo(c.Request().Context())
		if err != nil && !errors.Is(err, service.ErrNoArchive) {
			return h.unexpected(c, err)
		}
		data.Archive = info
	}

	return c.Render(http.StatusOK, "home.html", data)
}

// HandleRegisterForm handles GET /register.
func (h *Handler) HandleRegisterForm(c echo.Context) error {
	data := h.page(c)
	data.Next = safeNext(c.QueryParam("next"))
	return c.Render(http.StatusOK, "register.html", data)
}

// HandleRegister handles POST /register.
func (h *Handler) HandleRegister(c echo.Context) error {
	next := safeNext(c.FormValue("next"))
	back := "/register?next=" + url.QueryEscape(next)

	if !websession.CheckCaptcha(c, c.FormValue("captcha")) {
		return flashRedirect(c, "Wrong captcha answer, try again.", back)
	}

	user, err := h.auth.Register(c.Request().Context(),
		c.FormValue("username"), c.FormValue("email"), c.FormValue("password"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTooShort),
			errors.Is(err, service.ErrInvalidEmail),
			errors.Is(err, service.ErrEmptyPassword),
			errors.Is(err, service.ErrUsernameTaken),
			errors.Is(err, service.ErrEmailTaken):
			return flashRedirect(c, capitalize(err.Error())+".", back)
		default:
			return h.unexpected(c, err)
		}
	}

	if err := websession.SetIdentity(c, user); err != nil {
		return h.unexpected(c, err)
	}
	return c.Redirect(http.StatusFound, next)
}

// HandleLoginForm handles GET /login.
func (h *Handler) HandleLoginForm(c echo.Context) error {
	data := h.page(c)
	data.Next = safeNext(c.QueryParam("next"))
	return c.Render(http.StatusOK, "login.html", data)
}

// HandleLogin handles POST /login.
// The username field also accepts the account email.
func (h *Handler) HandleLogin(c echo.Context) error {
	next := safeNext(c.FormValue("next"))
	back := "/login?next=" + url.QueryEscape(next)

	if !websession.CheckCaptcha(c, c.FormValue("captcha")) {
		return flashRedirect(c, "Wrong captcha answer, try again.", back)
	}

	user, err := h.auth.Login(c.Request().Context(),
		c.FormValue("username"), c.FormValue("password"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownUser):
			return flashRedirect(c, "No account with that username or email.", back)
		case errors.Is(err, service.ErrWrongPassword):
			return flashRedirect(c, "Wrong password.", back)
		default:
			return h.unexpected(c, err)
		}
	}

	if err := websession.SetIdentity(c, user); err != nil {
		return h.unexpected(c, err)
	}
	return c.Redirect(http.StatusFound, next)
}

// HandleLogout handles POST /logout.
func (h *Handler) HandleLogout(c echo.Context) error {
	if err := websession.Clear(c); err != nil {
		return h.unexpected(c, err)
	}
	return c.Redirect(http.StatusFound, "/")
}

// HandleDownload handles GET /download.
// Streams the current archive as an attachment; a missing archive is a
// flash + redirect, never a server error.
func (h *Handler) HandleDownload(c echo.Context) error {
	info, err := h.assets.ArchiveInfo(c.Request().Context())
	if err != nil {
		if errors.Is(err, service.ErrNoArchive) {
			return flashRedirect(c, "The download is not available yet.", "/")
		}
		return h.unexpected(c, err)
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Attachment(info.Path, info.Name)
}

// HandleHealth handles GET /health.
func (h *Handler) HandleHealth(c echo.Context) error {
	status := "healthy"
	dbStatus := "connected"

	if err := h.db.HealthCheck(c.Request().Context()); err != nil {
		status = "degraded"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   status,
		"database": dbStatus,
	})
}

// --- Helpers ---

func flashRedirect(c echo.Context, message, to string) error {
	if err := websession.Flash(c, message); err != nil {
		slog.Error("failed to set flash", "error", err)
	}
	return c.Redirect(http.StatusFound, to)
}

// unexpected logs the error and sends the user back with a generic
// message, leaking no internals.
func (h *Handler) unexpected(c echo.Context, err error) error {
	slog.Error("request failed",
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
		"error", err,
	)
	to := c.Request().Referer()
	if to == "" {
		to = "/"
	}
	return flashRedirect(c, "Something went wrong, please try again.", to)
}

// safeNext keeps the post-login redirect on this site.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") {
		return next
	}
	return "/"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
