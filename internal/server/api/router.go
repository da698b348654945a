package api

import (
	"trecks/internal/server/config"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SetupRouter creates and configures the echo router with all routes and middleware.
func SetupRouter(handler *Handler, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: false,
	}))
	e.Use(RequestLogger())

	// Rate limiter on the credential endpoints only
	credLimiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// Health
	e.GET("/health", handler.HandleHealth)

	// Public catalog
	e.GET("/uploads", handler.HandleListTracks)
	e.GET("/download/:filename", handler.HandleDownload)

	// Auth (rate-limited against credential stuffing)
	e.POST("/register", handler.HandleRegister, credLimiter.Middleware())
	e.POST("/login", handler.HandleLogin, credLimiter.Middleware())
	e.POST("/logout", handler.HandleLogout)

	// Admin
	admin := handler.RequireAdmin()
	e.POST("/upload", handler.HandleUpload, admin)
	e.POST("/delete-music/:id", handler.HandleDelete, admin)

	// Static pages (served as-is from the public directory)
	e.Static("/", cfg.PublicDir)

	return e
}
