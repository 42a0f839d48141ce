package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-integrity-api/internal/config"
	"github.com/noah-isme/gema-integrity-api/internal/handler"
	"github.com/noah-isme/gema-integrity-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler *handler.AssignmentHandler
	SubmissionHandler *handler.SubmissionHandler
	AnalysisHandler   *handler.AnalysisHandler
	SeedHandler       *handler.SeedHandler
	JWTMiddleware     fiber.Handler
	HealthProbes      map[string]handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	integrity := app.Group("/api/v2/integrity", jwtMiddleware)
	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(integrity)
	}
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(integrity)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.Register(integrity)
	}

	// Seeding is guarded by its own token instead of a JWT
	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(app.Group("/api/v2/seed"))
	}
}
