package api

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mojocn/base64Captcha"

	"filegate/internal/server/websession"
)

// Visually ambiguous characters (0/o, 1/l, i) are left out of the pool.
const captchaCharset = "abcdefghjkmnpqrstuvwxyz23456789"

var captchaDriver = base64Captcha.NewDriverString(
	80, 240, // height, width
	6, // noise count
	base64Captcha.OptionShowHollowLine,
	5, // challenge length
	captchaCharset,
	nil, nil, // random light background, embedded fonts
	[]string{"wqy-microhei.ttc"},
)

// HandleCaptcha handles GET /captcha.
// Serves a fresh distorted-text challenge and remembers its answer in
// the session. Caching is disabled so every page load gets a new one.
func (h *Handler) HandleCaptcha(c echo.Context) error {
	_, content, answer := captchaDriver.GenerateIdQuestionAnswer()

	item, err := captchaDriver.DrawCaptcha(content)
	if err != nil {
		return err
	}

	if err := websession.SetCaptcha(c, strings.ToLower(answer)); err != nil {
		return err
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	c.Response().Header().Set("Content-Type", "image/png")
	_, err = item.WriteTo(c.Response())
	return err
}
