package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/terakoya-dev/terakoya-api/internal/dto"
	"github.com/terakoya-dev/terakoya-api/internal/sanitize"
	"github.com/terakoya-dev/terakoya-api/internal/service"
	"github.com/terakoya-dev/terakoya-api/internal/utils"
)

// MentorHandler manages the AI mentor endpoints.
type MentorHandler struct {
	service service.MentorChatService
	logger  zerolog.Logger
}

// NewMentorHandler builds a mentor handler instance.
func NewMentorHandler(service service.MentorChatService, logger zerolog.Logger) *MentorHandler {
	return &MentorHandler{
		service: service,
		logger:  logger.With().Str("component", "mentor_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *MentorHandler) Register(router fiber.Router) {
	router.Post("/chat", h.chat)
	router.Post("/plan", h.plan)
}

func (h *MentorHandler) chat(c *fiber.Ctx) error {
	var payload dto.MentorChatRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Chat(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "mentor reply generated", response)
}

func (h *MentorHandler) plan(c *fiber.Ctx) error {
	var payload dto.MentorPlanRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Plan(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "learning plan generated", response)
}

func (h *MentorHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	var injectionErr *sanitize.InjectionError
	switch {
	case errors.As(err, &injectionErr):
		return utils.SendError(c, fiber.StatusBadRequest, injectionErr.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("mentor request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
