package models

import "time"

// Submission statuses form a forward-only lifecycle. A submission may be
// re-graded (graded -> graded) but never moves back to submitted.
const (
	// SubmissionStatusNotSubmitted marks a draft that has not been handed in.
	SubmissionStatusNotSubmitted = "not_submitted"
	// SubmissionStatusSubmitted indicates the work has been handed in but not graded.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusGraded indicates the submission has been evaluated.
	SubmissionStatusGraded = "graded"
)

// Submission is a student's answer to an assignment.
//
// Version is the optimistic-concurrency token: it starts at 1 on creation
// and every successful mutation increments it by exactly one. A grading
// write that supplies a stale version is rejected by the repository rather
// than silently overwriting another grader's work.
type Submission struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AssignmentID uint       `gorm:"not null;index" json:"assignment_id"`
	StudentID    uint       `gorm:"not null;index" json:"student_id"`
	Content      string     `gorm:"type:text" json:"content"`
	FileURL      string     `gorm:"size:512" json:"file_url"`
	Status       string     `gorm:"size:32;not null" json:"status"`
	Grade        *float64   `json:"grade"`
	Feedback     string     `gorm:"type:text" json:"feedback"`
	GradedBy     *uint      `json:"graded_by"`
	Version      int64      `gorm:"not null;default:1" json:"version"`
	SubmittedAt  *time.Time `json:"submitted_at"`
	GradedAt     *time.Time `json:"graded_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Assignment Assignment               `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	Student    Student                  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	History    []SubmissionGradeHistory `gorm:"foreignKey:SubmissionID" json:"history,omitempty"`
}

// IsGraded reports whether the submission has a final grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// IsGradable reports whether the submission is in a state the grading
// protocol accepts (submitted or already graded, for re-grades).
func (s Submission) IsGradable() bool {
	return s.Status == SubmissionStatusSubmitted || s.Status == SubmissionStatusGraded
}
