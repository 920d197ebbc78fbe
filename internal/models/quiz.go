package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuizQuestion is one question inside a quiz. Points are the maximum the
// author intends for the question; per-question points awarded during
// grading are not capped by it.
type QuizQuestion struct {
	Index  int     `json:"index"`
	Prompt string  `json:"prompt"`
	Points float64 `json:"points"`
}

// Quiz is a multi-question assessment. Questions are stored as a JSON
// document since they are always read and written as a whole.
type Quiz struct {
	ID             uint                              `gorm:"primaryKey" json:"id"`
	CourseID       uint                              `gorm:"not null;index" json:"course_id"`
	Title          string                            `gorm:"size:255;not null" json:"title"`
	Description    string                            `gorm:"type:text" json:"description"`
	Questions      datatypes.JSONSlice[QuizQuestion] `json:"questions"`
	GradingStarted bool                              `gorm:"not null;default:false" json:"grading_started"`
	CreatedAt      time.Time                         `json:"created_at"`
	UpdatedAt      time.Time                         `json:"updated_at"`

	Submissions []QuizSubmission `json:"submissions,omitempty"`
}

// QuestionCount returns the number of questions in the quiz.
func (q Quiz) QuestionCount() int {
	return len(q.Questions)
}
