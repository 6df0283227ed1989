package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/terakoya-dev/terakoya-api/internal/dto"
	"github.com/terakoya-dev/terakoya-api/internal/service"
	"github.com/terakoya-dev/terakoya-api/internal/utils"
)

// EvaluationHandler exposes ad-hoc answer grading.
type EvaluationHandler struct {
	service service.EvaluationService
	logger  zerolog.Logger
}

// NewEvaluationHandler builds an evaluation handler instance.
func NewEvaluationHandler(service service.EvaluationService, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service: service,
		logger:  logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *EvaluationHandler) Register(router fiber.Router) {
	router.Post("", h.evaluate)
}

func (h *EvaluationHandler) evaluate(c *fiber.Ctx) error {
	var payload dto.EvaluationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result := h.service.EvaluateAnswer(c.Context(), payload)

	requestLogger(h.logger, c).Info().
		Uint("user_id", userIDFromContext(c)).
		Int("score", result.Score).
		Str("level", result.Level).
		Msg("answer evaluated")

	return utils.SendSuccess(c, "answer evaluated", result)
}
