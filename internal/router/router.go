package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/codesage-go-api/internal/config"
	"github.com/noah-isme/codesage-go-api/internal/handler"
	"github.com/noah-isme/codesage-go-api/internal/middleware"
	"github.com/noah-isme/codesage-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	InterviewHandler        *handler.InterviewHandler
	InterviewRecordsHandler *handler.InterviewRecordsHandler
	JWTMiddleware           fiber.Handler
	RecordsGuard            fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Interview websocket and topic listing; the upgrade endpoint is public,
	// the session itself is anonymous.
	if deps.InterviewHandler != nil {
		interview := api.Group("/interview", middleware.RateLimit("interview", 30, time.Minute))
		deps.InterviewHandler.Register(interview)
	}

	// Stored interview records for reviewers.
	if deps.InterviewRecordsHandler != nil {
		records := api.Group("/interviews", jwtMiddleware)
		if deps.RecordsGuard != nil {
			records.Use(deps.RecordsGuard)
		}
		deps.InterviewRecordsHandler.Register(records)
	}
}
