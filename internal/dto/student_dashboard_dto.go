package dto

import "time"

// DashboardAssignment summarizes one assignment and the student's standing on it.
type DashboardAssignment struct {
	AssignmentID uint       `json:"assignment_id"`
	Title        string     `json:"title"`
	DueDate      time.Time  `json:"due_date"`
	Status       string     `json:"status"`
	Grade        *float64   `json:"grade"`
	GradedAt     *time.Time `json:"graded_at"`
}

// StudentDashboardResponse aggregates a student's submissions and grades.
type StudentDashboardResponse struct {
	StudentID    uint                  `json:"student_id"`
	Assignments  []DashboardAssignment `json:"assignments"`
	GradedCount  int                   `json:"graded_count"`
	PendingCount int                   `json:"pending_count"`
	AverageGrade *float64              `json:"average_grade"`
	GeneratedAt  time.Time             `json:"generated_at"`
}
