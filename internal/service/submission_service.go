package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/terakoya-dev/terakoya-api/internal/dto"
	"github.com/terakoya-dev/terakoya-api/internal/models"
	"github.com/terakoya-dev/terakoya-api/internal/repository"
)

// ErrSubmissionNotFound indicates the submission cannot be located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrAlreadyEvaluated indicates the submission has already completed grading.
// Re-grading is rejected here, before any provider call is made.
var ErrAlreadyEvaluated = errors.New("submission already evaluated")

// SubmissionService exposes submission grading operations.
type SubmissionService interface {
	Get(ctx context.Context, id uint) (dto.SubmissionResponse, error)
	Evaluate(ctx context.Context, id uint) (dto.SubmissionResponse, error)
}

type submissionService struct {
	repo      repository.SubmissionRepository
	evaluator EvaluationService
	logger    zerolog.Logger
}

// NewSubmissionService constructs the submission grading service.
func NewSubmissionService(repo repository.SubmissionRepository, evaluator EvaluationService, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		repo:      repo,
		evaluator: evaluator,
		logger:    logger.With().Str("component", "submission_service").Logger(),
	}
}

func (s *submissionService) Get(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

// Evaluate grades every answer of a draft submission concurrently and moves
// it to the evaluated state. Each answer is independent: the evaluator never
// fails a single answer, so the batch always completes.
func (s *submissionService) Evaluate(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	tracer := otel.Tracer("github.com/terakoya-dev/terakoya-api/internal/service/submission")
	ctx, span := tracer.Start(ctx, "submission.evaluate")
	span.SetAttributes(attribute.Int64("submission.id", int64(id)))
	defer span.End()

	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if submission.IsEvaluated() {
		return dto.SubmissionResponse{}, ErrAlreadyEvaluated
	}

	results := make([]dto.EvaluationResult, len(submission.Answers))

	var wg sync.WaitGroup
	for i := range submission.Answers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.evaluator.EvaluateAnswer(ctx, evaluationRequestFor(submission.Answers[i]))
		}(i)
	}
	wg.Wait()

	for i := range submission.Answers {
		answer := &submission.Answers[i]
		result := results[i]

		answer.Score = result.Score
		answer.Level = result.Level
		answer.Feedback = result.Feedback
		answer.Aspects = aspectsToJSONMap(result.Aspects)

		if err := s.repo.UpdateAnswer(ctx, answer); err != nil {
			span.RecordError(err)
			return dto.SubmissionResponse{}, err
		}
	}

	submission.Status = models.SubmissionStatusEvaluated
	if err := s.repo.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	span.SetAttributes(attribute.Int("submission.answers", len(submission.Answers)))

	return dto.NewSubmissionResponse(submission), nil
}

func evaluationRequestFor(answer models.Answer) dto.EvaluationRequest {
	var points []string
	if len(answer.IdealPoints) > 0 {
		_ = json.Unmarshal(answer.IdealPoints, &points)
	}

	return dto.EvaluationRequest{
		Code:              answer.Code,
		Question:          answer.Question,
		IdealAnswerPoints: points,
		UserAnswer:        answer.UserAnswer,
	}
}

func aspectsToJSONMap(aspects map[string]int) datatypes.JSONMap {
	mapped := datatypes.JSONMap{}
	for name, value := range aspects {
		mapped[name] = float64(value)
	}
	return mapped
}
