package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/terakoya-dev/terakoya-api/internal/dto"
	"github.com/terakoya-dev/terakoya-api/internal/models"
)

type fakeSubmissionRepo struct {
	submission    models.Submission
	missing       bool
	updateCalls   int
	answerUpdates int
}

func (f *fakeSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	f.submission = *submission
	return nil
}

func (f *fakeSubmissionRepo) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	if f.missing {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return f.submission, nil
}

func (f *fakeSubmissionRepo) Update(ctx context.Context, submission *models.Submission) error {
	f.updateCalls++
	f.submission = *submission
	return nil
}

func (f *fakeSubmissionRepo) UpdateAnswer(ctx context.Context, answer *models.Answer) error {
	f.answerUpdates++
	return nil
}

// fixedEvaluator returns one canned result per call, never failing, matching
// the evaluator contract.
type fixedEvaluator struct {
	result dto.EvaluationResult
	calls  int
}

func (e *fixedEvaluator) EvaluateAnswer(ctx context.Context, request dto.EvaluationRequest) dto.EvaluationResult {
	e.calls++
	return e.result
}

func draftSubmission() models.Submission {
	return models.Submission{
		ID:         1,
		StudentID:  7,
		ExerciseID: 3,
		Status:     models.SubmissionStatusDraft,
		Answers: []models.Answer{
			{ID: 1, SubmissionID: 1, Question: "q1", UserAnswer: "a1", IdealPoints: []byte(`["p1"]`), Code: "c1"},
			{ID: 2, SubmissionID: 1, Question: "q2", UserAnswer: "a2", IdealPoints: []byte(`["p2"]`), Code: "c2"},
			{ID: 3, SubmissionID: 1, Question: "q3", UserAnswer: "a3", IdealPoints: []byte(`["p3"]`), Code: "c3"},
		},
	}
}

func TestSubmissionEvaluateGradesEveryAnswer(t *testing.T) {
	repo := &fakeSubmissionRepo{submission: draftSubmission()}
	evaluator := &fixedEvaluator{result: dto.EvaluationResult{
		Score:    85,
		Level:    "B",
		Feedback: "Good",
		Aspects:  map[string]int{"Logic": 8},
	}}

	svc := NewSubmissionService(repo, evaluator, testLogger())

	response, err := svc.Evaluate(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusEvaluated, response.Status)
	require.Len(t, response.Answers, 3)
	for _, answer := range response.Answers {
		require.Equal(t, 85, answer.Score)
		require.Equal(t, "B", answer.Level)
	}
	require.Equal(t, 3, evaluator.calls)
	require.Equal(t, 3, repo.answerUpdates)
	require.Equal(t, 1, repo.updateCalls)
}

func TestSubmissionEvaluateRejectsAlreadyEvaluated(t *testing.T) {
	submission := draftSubmission()
	submission.Status = models.SubmissionStatusEvaluated
	repo := &fakeSubmissionRepo{submission: submission}
	evaluator := &fixedEvaluator{}

	svc := NewSubmissionService(repo, evaluator, testLogger())

	_, err := svc.Evaluate(context.Background(), 1)
	require.ErrorIs(t, err, ErrAlreadyEvaluated)
	require.Equal(t, 0, evaluator.calls)
}

func TestSubmissionEvaluateNotFound(t *testing.T) {
	repo := &fakeSubmissionRepo{missing: true}
	svc := NewSubmissionService(repo, &fixedEvaluator{}, testLogger())

	_, err := svc.Evaluate(context.Background(), 42)
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestSubmissionGet(t *testing.T) {
	repo := &fakeSubmissionRepo{submission: draftSubmission()}
	svc := NewSubmissionService(repo, &fixedEvaluator{}, testLogger())

	response, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, uint(1), response.ID)
	require.Equal(t, []string{"p1"}, response.Answers[0].IdealPoints)
}
