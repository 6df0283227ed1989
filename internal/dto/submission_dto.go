package dto

import (
	"encoding/json"

	"github.com/terakoya-dev/terakoya-api/internal/models"
)

// AnswerResponse represents one answer and its evaluation to API consumers.
type AnswerResponse struct {
	ID          uint           `json:"id"`
	Question    string         `json:"question"`
	Code        string         `json:"code,omitempty"`
	IdealPoints []string       `json:"ideal_points"`
	UserAnswer  string         `json:"user_answer"`
	Score       int            `json:"score"`
	Level       string         `json:"level"`
	Feedback    string         `json:"feedback"`
	Aspects     map[string]int `json:"aspects"`
}

// SubmissionResponse represents a submission with its answers.
type SubmissionResponse struct {
	ID         uint             `json:"id"`
	StudentID  uint             `json:"student_id"`
	ExerciseID uint             `json:"exercise_id"`
	Status     string           `json:"status"`
	Answers    []AnswerResponse `json:"answers"`
}

// NewAnswerResponse builds a response DTO from a model.
func NewAnswerResponse(answer models.Answer) AnswerResponse {
	var idealPoints []string
	if len(answer.IdealPoints) > 0 {
		_ = json.Unmarshal(answer.IdealPoints, &idealPoints)
	}

	aspects := make(map[string]int, len(answer.Aspects))
	for name, value := range answer.Aspects {
		if number, ok := value.(float64); ok {
			aspects[name] = int(number)
		}
	}

	return AnswerResponse{
		ID:          answer.ID,
		Question:    answer.Question,
		Code:        answer.Code,
		IdealPoints: idealPoints,
		UserAnswer:  answer.UserAnswer,
		Score:       answer.Score,
		Level:       answer.Level,
		Feedback:    answer.Feedback,
		Aspects:     aspects,
	}
}

// NewSubmissionResponse builds a response DTO from a model.
func NewSubmissionResponse(submission models.Submission) SubmissionResponse {
	answers := make([]AnswerResponse, 0, len(submission.Answers))
	for _, answer := range submission.Answers {
		answers = append(answers, NewAnswerResponse(answer))
	}

	return SubmissionResponse{
		ID:         submission.ID,
		StudentID:  submission.StudentID,
		ExerciseID: submission.ExerciseID,
		Status:     submission.Status,
		Answers:    answers,
	}
}
