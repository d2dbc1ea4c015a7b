package api

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"filegate/internal/server/config"
	"filegate/internal/server/websession"
)

// SetupRouter creates and configures the echo router with all routes and
// middleware.
func SetupRouter(handler *Handler, cfg *config.Config) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true

	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	e.Renderer = renderer

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(RequestLogger())
	e.Use(websession.NewMiddleware(cfg.SessionSecret, cfg.SessionMaxAge))
	e.Use(middleware.BodyLimit(fmt.Sprintf("%d", cfg.MaxUploadSize)))

	// Pages
	e.GET("/", handler.HandleHome)
	e.GET("/register", handler.HandleRegisterForm)
	e.POST("/register", handler.HandleRegister)
	e.GET("/login", handler.HandleLoginForm)
	e.POST("/login", handler.HandleLogin)
	e.POST("/logout", handler.HandleLogout, RequireUser)

	// Captcha challenge
	e.GET("/captcha", handler.HandleCaptcha)

	// Gated download
	e.GET("/download", handler.HandleDownload, RequireUser)

	// Admin panel
	admin := e.Group("/admin", RequireAdmin)
	admin.GET("", handler.HandleAdmin)
	admin.POST("/upload-image", handler.HandleUploadImage)
	admin.POST("/upload-zip", handler.HandleUploadZip)
	admin.POST("/password", handler.HandleChangePassword)

	// Health
	e.GET("/health", handler.HandleHealth)

	// Static assets and uploaded images
	e.StaticFS("/static", echo.MustSubFS(staticFS, "static"))
	e.Static("/media/images", cfg.ImageDir)

	return e, nil
}
