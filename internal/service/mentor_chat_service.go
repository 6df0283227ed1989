package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/terakoya-dev/terakoya-api/internal/dto"
	"github.com/terakoya-dev/terakoya-api/internal/limiter"
	"github.com/terakoya-dev/terakoya-api/internal/prompt"
	"github.com/terakoya-dev/terakoya-api/internal/retry"
	"github.com/terakoya-dev/terakoya-api/internal/sanitize"
	"github.com/terakoya-dev/terakoya-api/pkg/llm"
)

// MentorChatService answers student questions and produces study plans.
type MentorChatService interface {
	Chat(ctx context.Context, request dto.MentorChatRequest) (dto.MentorChatResponse, error)
	Plan(ctx context.Context, request dto.MentorPlanRequest) (dto.MentorPlanResponse, error)
}

type mentorChatService struct {
	provider  llm.Provider
	limiter   *limiter.RateLimiter
	templates *prompt.Loader
	policy    retry.Policy
	validator *validator.Validate
	stripper  *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewMentorChatService constructs the mentor service.
func NewMentorChatService(provider llm.Provider, rateLimiter *limiter.RateLimiter, templates *prompt.Loader, validate *validator.Validate, logger zerolog.Logger) MentorChatService {
	return &mentorChatService{
		provider:  provider,
		limiter:   rateLimiter,
		templates: templates,
		policy:    retry.DefaultPolicy(llm.IsRetryable),
		validator: validate,
		stripper:  bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "mentor_chat_service").Logger(),
		tracer:    otel.Tracer("github.com/terakoya-dev/terakoya-api/internal/service/mentor"),
	}
}

// Chat generates a mentor reply for one message. The chat path is lenient:
// a message that trips the injection filters is masked with a placeholder
// rather than failing the turn.
func (s *mentorChatService) Chat(ctx context.Context, request dto.MentorChatRequest) (dto.MentorChatResponse, error) {
	ctx, span := s.tracer.Start(ctx, "mentor.chat", trace.WithAttributes(
		attribute.String("llm.provider", s.provider.Name()),
	))
	defer span.End()

	if err := s.validator.Struct(request); err != nil {
		return dto.MentorChatResponse{}, err
	}

	stripped := strings.TrimSpace(s.stripper.Sanitize(request.Message))
	message := sanitize.SanitizeOrMask(stripped, "chat_message", sanitize.Options{})

	topic, err := sanitize.Sanitize(request.Topic, "topic", sanitize.Options{})
	if err != nil {
		return dto.MentorChatResponse{}, err
	}

	template, err := s.templates.Load("mentor_chat")
	if err != nil {
		return dto.MentorChatResponse{}, err
	}

	rendered := prompt.Render(template, map[string]string{
		"CHAT_MESSAGE": message,
		"TOPIC":        topic,
	})

	reply, err := s.dispatch(ctx, rendered, llm.Options{})
	if err != nil {
		span.RecordError(err)
		return dto.MentorChatResponse{}, err
	}

	return dto.MentorChatResponse{Reply: strings.TrimSpace(reply)}, nil
}

// Plan generates an ordered study plan towards a goal. Unlike Chat, the goal
// field is strict: an injection attempt fails the request so the route can
// report the offending field.
func (s *mentorChatService) Plan(ctx context.Context, request dto.MentorPlanRequest) (dto.MentorPlanResponse, error) {
	ctx, span := s.tracer.Start(ctx, "mentor.plan", trace.WithAttributes(
		attribute.String("llm.provider", s.provider.Name()),
	))
	defer span.End()

	if err := s.validator.Struct(request); err != nil {
		return dto.MentorPlanResponse{}, err
	}

	goal, err := sanitize.Sanitize(s.stripper.Sanitize(request.Goal), "goal", sanitize.Options{})
	if err != nil {
		return dto.MentorPlanResponse{}, err
	}

	level := request.Level
	if level == "" {
		level = "beginner"
	}

	template, err := s.templates.Load("mentor_plan")
	if err != nil {
		return dto.MentorPlanResponse{}, err
	}

	rendered := prompt.Render(template, map[string]string{
		"GOAL":  goal,
		"LEVEL": level,
	})

	raw, err := s.dispatch(ctx, rendered, llm.Options{JSONMode: true})
	if err != nil {
		span.RecordError(err)
		return dto.MentorPlanResponse{}, err
	}

	steps, err := parsePlanSteps(raw)
	if err != nil {
		span.RecordError(err)
		return dto.MentorPlanResponse{}, err
	}

	return dto.MentorPlanResponse{Steps: steps}, nil
}

func (s *mentorChatService) dispatch(ctx context.Context, rendered string, options llm.Options) (string, error) {
	if err := s.limiter.Acquire(ctx, limiter.EstimateTokens(rendered)); err != nil {
		return "", err
	}

	return retry.Do(ctx, s.policy, func() (string, error) {
		return s.provider.Generate(ctx, rendered, options)
	})
}

func parsePlanSteps(raw string) ([]string, error) {
	doc := extractJSONObject(raw)
	if doc == "" {
		return nil, fmt.Errorf("no JSON object in plan output")
	}

	var payload struct {
		Steps []string `json:"steps"`
	}
	if err := json.Unmarshal([]byte(doc), &payload); err != nil {
		return nil, fmt.Errorf("decode plan output: %w", err)
	}

	if len(payload.Steps) == 0 {
		return nil, fmt.Errorf("plan output contains no steps")
	}

	return payload.Steps, nil
}
