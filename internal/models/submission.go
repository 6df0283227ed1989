package models

import "time"

// Submission groups the answers a student hands in for one exercise set.
type Submission struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StudentID  uint      `gorm:"not null" json:"student_id"`
	ExerciseID uint      `gorm:"not null" json:"exercise_id"`
	Status     string    `gorm:"size:32;not null" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Answers    []Answer  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"answers"`
}

const (
	// SubmissionStatusDraft indicates the submission has not been graded yet.
	SubmissionStatusDraft = "draft"
	// SubmissionStatusEvaluated indicates every answer has an evaluation result.
	SubmissionStatusEvaluated = "evaluated"
)

// IsEvaluated reports whether the submission has completed grading.
func (s Submission) IsEvaluated() bool {
	return s.Status == SubmissionStatusEvaluated
}
