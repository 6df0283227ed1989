package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/terakoya-dev/terakoya-api/internal/dto"
	"github.com/terakoya-dev/terakoya-api/internal/limiter"
	"github.com/terakoya-dev/terakoya-api/internal/observability"
	"github.com/terakoya-dev/terakoya-api/internal/prompt"
	"github.com/terakoya-dev/terakoya-api/internal/retry"
	"github.com/terakoya-dev/terakoya-api/internal/sanitize"
	"github.com/terakoya-dev/terakoya-api/pkg/llm"
)

// evaluationEventSubject is the NATS subject evaluation results fan out on.
const evaluationEventSubject = "terakoya.evaluation.completed"

// EvaluationService grades a single answer against its ideal criteria.
type EvaluationService interface {
	// EvaluateAnswer always returns a usable result. Failures of any kind are
	// converted into the fixed fallback so a batch of answers is never aborted
	// by one bad grade.
	EvaluateAnswer(ctx context.Context, request dto.EvaluationRequest) dto.EvaluationResult
}

// EvaluationConfig carries the tunables for the grading pipeline.
type EvaluationConfig struct {
	Temperature float32
	MaxTokens   int
	CacheTTL    time.Duration
}

type evaluationService struct {
	provider  llm.Provider
	limiter   *limiter.RateLimiter
	templates *prompt.Loader
	policy    retry.Policy
	redis     *redis.Client
	nats      *nats.Conn
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	cfg       EvaluationConfig
}

// NewEvaluationService constructs the answer evaluator. The redis client and
// NATS connection are optional; a nil value disables caching or event fanout.
func NewEvaluationService(provider llm.Provider, rateLimiter *limiter.RateLimiter, templates *prompt.Loader, redisClient *redis.Client, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger, cfg EvaluationConfig) EvaluationService {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}

	return &evaluationService{
		provider:  provider,
		limiter:   rateLimiter,
		templates: templates,
		policy:    retry.DefaultPolicy(llm.IsRetryable),
		redis:     redisClient,
		nats:      natsConn,
		validator: validate,
		logger:    logger.With().Str("component", "evaluation_service").Logger(),
		tracer:    otel.Tracer("github.com/terakoya-dev/terakoya-api/internal/service/evaluation"),
		cfg:       cfg,
	}
}

type evaluationEvent struct {
	Provider string               `json:"provider"`
	Result   dto.EvaluationResult `json:"result"`
	SentAt   time.Time            `json:"sent_at"`
}

func (s *evaluationService) EvaluateAnswer(ctx context.Context, request dto.EvaluationRequest) dto.EvaluationResult {
	ctx, span := s.tracer.Start(ctx, "evaluation.answer", trace.WithAttributes(
		attribute.String("llm.provider", s.provider.Name()),
	))
	defer span.End()

	result, err := s.evaluate(ctx, request)
	if err != nil {
		span.RecordError(err)
		observability.Evaluations().WithLabelValues("fallback").Inc()
		observability.EvaluationFallbacks().Inc()
		s.logger.Error().Err(err).Msg("evaluation failed, returning fallback result")
		return fallbackResult()
	}

	span.SetAttributes(
		attribute.Int("evaluation.score", result.Score),
		attribute.String("evaluation.level", result.Level),
	)
	observability.Evaluations().WithLabelValues("graded").Inc()
	s.publish(result)

	return result
}

// evaluate is the fallible pipeline behind EvaluateAnswer: sanitize, render,
// admit, dispatch with retry, parse.
func (s *evaluationService) evaluate(ctx context.Context, request dto.EvaluationRequest) (dto.EvaluationResult, error) {
	if err := s.validator.Struct(request); err != nil {
		return dto.EvaluationResult{}, err
	}

	code, err := sanitize.Sanitize(request.Code, "code", sanitize.Options{AllowBase64: true})
	if err != nil {
		return dto.EvaluationResult{}, err
	}
	question, err := sanitize.Sanitize(request.Question, "question", sanitize.Options{})
	if err != nil {
		return dto.EvaluationResult{}, err
	}
	userAnswer, err := sanitize.Sanitize(request.UserAnswer, "user_answer", sanitize.Options{})
	if err != nil {
		return dto.EvaluationResult{}, err
	}

	points := make([]string, 0, len(request.IdealAnswerPoints))
	for _, point := range request.IdealAnswerPoints {
		clean, err := sanitize.Sanitize(point, "ideal_answer_points", sanitize.Options{})
		if err != nil {
			return dto.EvaluationResult{}, err
		}
		points = append(points, "- "+clean)
	}

	template, err := s.templates.Load("evaluate_answer")
	if err != nil {
		return dto.EvaluationResult{}, err
	}

	rendered := prompt.Render(template, map[string]string{
		"CODE":         code,
		"QUESTION":     question,
		"IDEAL_POINTS": strings.Join(points, "\n"),
		"USER_ANSWER":  userAnswer,
	})

	if cached, ok := s.cachedResult(ctx, rendered); ok {
		observability.Evaluations().WithLabelValues("cached").Inc()
		return cached, nil
	}

	if err := s.limiter.Acquire(ctx, limiter.EstimateTokens(rendered)); err != nil {
		return dto.EvaluationResult{}, err
	}

	temperature := s.cfg.Temperature
	options := llm.Options{
		Temperature: &temperature,
		MaxTokens:   s.cfg.MaxTokens,
		JSONMode:    true,
	}

	raw, err := retry.Do(ctx, s.policy, func() (string, error) {
		return s.provider.Generate(ctx, rendered, options)
	})
	if err != nil {
		return dto.EvaluationResult{}, err
	}

	result, err := parseEvaluation(raw)
	if err != nil {
		return dto.EvaluationResult{}, err
	}

	s.cacheResult(ctx, rendered, result)

	return result, nil
}

func (s *evaluationService) cacheKey(rendered string) string {
	sum := sha256.Sum256([]byte(rendered))
	return "terakoya:eval:" + hex.EncodeToString(sum[:])
}

func (s *evaluationService) cachedResult(ctx context.Context, rendered string) (dto.EvaluationResult, bool) {
	if s.redis == nil || s.cfg.CacheTTL <= 0 {
		return dto.EvaluationResult{}, false
	}

	data, err := s.redis.Get(ctx, s.cacheKey(rendered)).Result()
	if err != nil {
		return dto.EvaluationResult{}, false
	}

	var result dto.EvaluationResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decode cached evaluation result")
		return dto.EvaluationResult{}, false
	}

	return result, true
}

func (s *evaluationService) cacheResult(ctx context.Context, rendered string, result dto.EvaluationResult) {
	if s.redis == nil || s.cfg.CacheTTL <= 0 {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return
	}

	if err := s.redis.Set(ctx, s.cacheKey(rendered), payload, s.cfg.CacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache evaluation result")
	}
}

func (s *evaluationService) publish(result dto.EvaluationResult) {
	if s.nats == nil {
		return
	}

	payload, err := json.Marshal(evaluationEvent{
		Provider: s.provider.Name(),
		Result:   result,
		SentAt:   time.Now().UTC(),
	})
	if err != nil {
		return
	}

	if err := s.nats.Publish(evaluationEventSubject, payload); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish evaluation event")
	}
}
