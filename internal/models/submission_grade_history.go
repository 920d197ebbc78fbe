package models

import "time"

// SubmissionGradeHistory keeps one row per grading pass so re-grades do
// not erase what was previously awarded.
type SubmissionGradeHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	Score        float64   `gorm:"not null" json:"score"`
	Feedback     string    `gorm:"type:text" json:"feedback"`
	GradedBy     uint      `gorm:"not null" json:"graded_by"`
	GradedAt     time.Time `gorm:"not null" json:"graded_at"`
}
