package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuizAnswer is a student's answer to a single quiz question.
type QuizAnswer struct {
	QuestionIndex int    `json:"question_index"`
	Answer        string `json:"answer"`
}

// QuestionGrade records the points a grader awarded for one question.
// Points have no upper bound; the submission grade is their sum.
type QuestionGrade struct {
	QuestionIndex int     `json:"question_index"`
	Points        float64 `json:"points"`
}

// QuizSubmission is a student's answer set for a quiz. It shares the
// optimistic-concurrency discipline of Submission: Version starts at 1
// and increments on every successful mutation.
type QuizSubmission struct {
	ID             uint                                `gorm:"primaryKey" json:"id"`
	QuizID         uint                                `gorm:"not null;index" json:"quiz_id"`
	StudentID      uint                                `gorm:"not null;index" json:"student_id"`
	Answers        datatypes.JSONSlice[QuizAnswer]     `json:"answers"`
	QuestionGrades datatypes.JSONSlice[QuestionGrade]  `json:"question_grades"`
	Status         string                              `gorm:"size:32;not null" json:"status"`
	Grade          *float64                            `json:"grade"`
	Feedback       string                              `gorm:"type:text" json:"feedback"`
	GradedBy       *uint                               `json:"graded_by"`
	Version        int64                               `gorm:"not null;default:1" json:"version"`
	SubmittedAt    *time.Time                          `json:"submitted_at"`
	GradedAt       *time.Time                          `json:"graded_at"`
	CreatedAt      time.Time                           `json:"created_at"`
	UpdatedAt      time.Time                           `json:"updated_at"`

	Quiz    Quiz    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"quiz"`
	Student Student `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

// IsGradable reports whether the submission can enter the grading protocol.
func (s QuizSubmission) IsGradable() bool {
	return s.Status == SubmissionStatusSubmitted || s.Status == SubmissionStatusGraded
}
