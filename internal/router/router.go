package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/terakoya-dev/terakoya-api/internal/config"
	"github.com/terakoya-dev/terakoya-api/internal/handler"
	"github.com/terakoya-dev/terakoya-api/internal/middleware"
	"github.com/terakoya-dev/terakoya-api/pkg/llm"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	EvaluationHandler *handler.EvaluationHandler
	MentorHandler     *handler.MentorHandler
	SubmissionHandler *handler.SubmissionHandler
	Provider          llm.Provider
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Provider))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.EvaluationHandler != nil {
		evaluations := api.Group("/evaluations", jwtMiddleware)
		deps.EvaluationHandler.Register(evaluations)
	}

	if deps.MentorHandler != nil {
		// Mentor endpoints fan out to the LLM per request, so they get a
		// tighter per-user HTTP cap than the rest of the API.
		mentor := api.Group("/mentor", jwtMiddleware, middleware.RateLimit("mentor", 20, time.Minute))
		deps.MentorHandler.Register(mentor)
	}

	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware)
		deps.SubmissionHandler.Register(submissions)
	}
}
