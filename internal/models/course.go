package models

import "time"

// Course groups assignments and quizzes under a teacher-owned class.
// The join code is the short identifier students use to enrol; it is
// unique across all courses.
type Course struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Code        string    `gorm:"size:12;uniqueIndex;not null" json:"code"`
	TeacherID   uint      `gorm:"not null" json:"teacher_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Assignments []Assignment `json:"assignments,omitempty"`
	Quizzes     []Quiz       `json:"quizzes,omitempty"`
}
