package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/terakoya-dev/terakoya-api/internal/config"
	"github.com/terakoya-dev/terakoya-api/internal/utils"
	"github.com/terakoya-dev/terakoya-api/pkg/llm"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Provider    string    `json:"provider"`
	ProviderUp  bool      `json:"provider_up"`
}

// HealthCheck returns a handler that reports application and provider health.
func HealthCheck(cfg config.Config, provider llm.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}
		if provider != nil {
			payload.Provider = provider.Name()
			payload.ProviderUp = provider.CheckHealth(c.Context())
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
