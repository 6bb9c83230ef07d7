package api

import (
	"github.com/benbjohnson/clock"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"canopy/internal/server/config"
)

// SetupRouter creates and configures the echo router with all routes and middleware.
func SetupRouter(handler *Handler, cfg *config.Config, clk clock.Clock) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization", PasswordHeader},
	}))
	e.Use(RequestLogger())

	// Rate limiter on namespace creation only
	createLimiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, clk)

	// Health & stats
	e.GET("/health", handler.HandleHealth)
	e.GET("/api/stats", handler.HandleStats)

	// Namespace lifecycle
	e.POST("/api/namespaces", handler.HandleCreate, createLimiter.Middleware())
	e.POST("/api/namespaces/import", handler.HandleImport, createLimiter.Middleware())
	e.GET("/api/namespaces/:id", handler.HandleInfo)
	e.DELETE("/api/namespaces/:id/:token", handler.HandleDelete)

	// Tree access
	ns := e.Group("/api/namespaces/:id")
	ns.GET("/tree", handler.HandleTree)
	ns.GET("/nodes", handler.HandleStat)
	ns.GET("/export", handler.HandleExport)

	ns.POST("/dirs", handler.HandleMkdir)
	ns.POST("/files", handler.HandleCreateFile)
	ns.POST("/links", handler.HandleCreateLink)
	ns.POST("/rename", handler.HandleRename)
	ns.POST("/move", handler.HandleMove)
	ns.POST("/resize", handler.HandleResize)
	ns.POST("/writable", handler.HandleWritable)
	ns.POST("/terminate", handler.HandleTerminate)

	return e
}
