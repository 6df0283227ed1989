package dto

// EvaluationRequest carries one answer to be graded against the ideal criteria.
type EvaluationRequest struct {
	Code              string   `json:"code" validate:"required"`
	Question          string   `json:"question" validate:"required"`
	IdealAnswerPoints []string `json:"ideal_answer_points" validate:"required,min=1,dive,required"`
	UserAnswer        string   `json:"user_answer" validate:"required"`
}

// EvaluationResult is the structured grade for one answer. Score is always in
// [0,100] and Level is derived from it; callers can rely on every field being
// populated even when the backend misbehaved.
type EvaluationResult struct {
	Score    int            `json:"score"`
	Level    string         `json:"level"`
	Feedback string         `json:"feedback"`
	Aspects  map[string]int `json:"aspects"`
}
