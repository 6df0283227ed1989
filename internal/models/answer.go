package models

import (
	"time"

	"gorm.io/datatypes"
)

// Answer is one graded unit within a submission: the exercise code and
// question, the ideal answer criteria, and the student's answer plus the
// evaluation attached to it.
type Answer struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	SubmissionID uint   `gorm:"not null" json:"submission_id"`
	Code         string `gorm:"type:text" json:"code"`
	Question     string `gorm:"type:text;not null" json:"question"`
	// IdealPoints holds the ordered ideal-answer criteria as a JSON array of strings.
	IdealPoints datatypes.JSON `json:"ideal_points"`
	UserAnswer  string         `gorm:"type:text" json:"user_answer"`

	Score     int               `json:"score"`
	Level     string            `gorm:"size:1" json:"level"`
	Feedback  string            `gorm:"type:text" json:"feedback"`
	Aspects   datatypes.JSONMap `json:"aspects"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
