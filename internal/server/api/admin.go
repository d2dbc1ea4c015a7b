package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"filegate/internal/server/service"
	"filegate/internal/server/websession"
)

// HandleAdmin handles GET /admin.
func (h *Handler) HandleAdmin(c echo.Context) error {
	data := h.page(c)
	data.Image = h.assets.CurrentImageURL(c.Request().Context())

	info, err := h.assets.ArchiveInfo(c.Request().Context())
	if err != nil && !errors.Is(err, service.ErrNoArchive) {
		return h.unexpected(c, err)
	}
	data.Archive = info

	return c.Render(http.StatusOK, "admin.html", data)
}

// HandleUploadImage handles POST /admin/upload-image.
func (h *Handler) HandleUploadImage(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return flashRedirect(c, "Choose an image file to upload.", "/admin")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return h.unexpected(c, err)
	}
	defer src.Close()

	_, err = h.assets.ReplaceImage(c.Request().Context(),
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), src)
	if err != nil {
		if errors.Is(err, service.ErrNotImage) {
			return flashRedirect(c, "That file is not an image.", "/admin")
		}
		return h.unexpected(c, err)
	}

	return flashRedirect(c, "Image replaced.", "/admin")
}

// HandleUploadZip handles POST /admin/upload-zip.
func (h *Handler) HandleUploadZip(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return flashRedirect(c, "Choose a zip archive to upload.", "/admin")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return h.unexpected(c, err)
	}
	defer src.Close()

	_, err = h.assets.ReplaceArchive(c.Request().Context(), fileHeader.Filename, src)
	if err != nil {
		if errors.Is(err, service.ErrNotZip) {
			return flashRedirect(c, "That file is not a zip archive.", "/admin")
		}
		return h.unexpected(c, err)
	}

	return flashRedirect(c, "Archive replaced.", "/admin")
}

// HandleChangePassword handles POST /admin/password.
// Changes the password of the logged-in admin account.
func (h *Handler) HandleChangePassword(c echo.Context) error {
	user, _ := websession.Current(c)

	password := c.FormValue("password")
	if password != c.FormValue("password_confirm") {
		return flashRedirect(c, "The passwords do not match.", "/admin")
	}

	if err := h.auth.ChangePassword(c.Request().Context(), user.ID, password); err != nil {
		if errors.Is(err, service.ErrEmptyPassword) {
			return flashRedirect(c, "The password must not be empty.", "/admin")
		}
		return h.unexpected(c, err)
	}

	return flashRedirect(c, "Password changed.", "/admin")
}
