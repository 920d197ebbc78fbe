package models

import "time"

// Assignment represents a course assignment students submit work against.
// GradingStarted is a one-way flag: it flips to true when the first
// submission is graded and from then on the assignment no longer accepts
// new submissions.
type Assignment struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CourseID       uint      `gorm:"not null;index" json:"course_id"`
	Title          string    `gorm:"size:255;not null" json:"title"`
	Description    string    `gorm:"type:text" json:"description"`
	DueDate        time.Time `gorm:"not null" json:"due_date"`
	MaxScore       float64   `gorm:"not null;default:100" json:"max_score"`
	GradingStarted bool      `gorm:"not null;default:false" json:"grading_started"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Submissions []Submission `json:"submissions,omitempty"`
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.DueDate)
}

// AcceptsSubmissions reports whether the assignment is still open for new work.
func (a Assignment) AcceptsSubmissions(reference time.Time) bool {
	return !a.GradingStarted && !a.IsPastDue(reference)
}
