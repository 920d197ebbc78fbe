package dto

import (
	"time"

	"github.com/lumenclass/lms-api/internal/models"
)

// SubmissionCreateRequest describes the multipart payload for submission intake.
type SubmissionCreateRequest struct {
	AssignmentID uint   `form:"assignment_id" validate:"required,gt=0"`
	StudentID    uint   `form:"student_id" validate:"required,gt=0"`
	Content      string `form:"content" validate:"omitempty,max=65535"`
}

// GradeSubmissionRequest is the payload teachers send to grade or re-grade
// an assignment submission. Version is the optimistic-concurrency token:
// when present, the write only succeeds if it matches the stored version;
// when absent, the update is unconditional (legacy last-write-wins mode).
type GradeSubmissionRequest struct {
	Grade    float64 `json:"grade" validate:"gte=0,lte=100"`
	Feedback string  `json:"feedback" validate:"omitempty,max=10000"`
	Version  *int64  `json:"version" validate:"omitempty,gte=1"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	AssignmentID *uint   `query:"assignment_id"`
	StudentID    *uint   `query:"student_id"`
	Status       *string `query:"status" validate:"omitempty,oneof=not_submitted submitted graded"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID           uint                             `json:"id"`
	AssignmentID uint                             `json:"assignment_id"`
	StudentID    uint                             `json:"student_id"`
	Content      string                           `json:"content"`
	FileURL      string                           `json:"file_url"`
	Status       string                           `json:"status"`
	Grade        *float64                         `json:"grade"`
	Feedback     string                           `json:"feedback"`
	GradedBy     *uint                            `json:"graded_by"`
	Version      int64                            `json:"version"`
	SubmittedAt  *time.Time                       `json:"submitted_at"`
	GradedAt     *time.Time                       `json:"graded_at"`
	History      []SubmissionGradeHistoryResponse `json:"history,omitempty"`
	CreatedAt    time.Time                        `json:"created_at"`
	UpdatedAt    time.Time                        `json:"updated_at"`
	Assignment   AssignmentLite                   `json:"assignment"`
	Student      StudentLite                      `json:"student"`
}

// SubmissionGradeHistoryResponse serializes grading history entries.
type SubmissionGradeHistoryResponse struct {
	Score    float64   `json:"score"`
	Feedback string    `json:"feedback"`
	GradedBy uint      `json:"graded_by"`
	GradedAt time.Time `json:"graded_at"`
}

// AssignmentLite summarizes an assignment in submission responses.
type AssignmentLite struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	DueDate        time.Time `json:"due_date"`
	GradingStarted bool      `json:"grading_started"`
}

// StudentLite summarizes a student without exposing full profile data.
type StudentLite struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		StudentID:    model.StudentID,
		Content:      model.Content,
		FileURL:      model.FileURL,
		Status:       model.Status,
		Grade:        model.Grade,
		Feedback:     model.Feedback,
		GradedBy:     model.GradedBy,
		Version:      model.Version,
		SubmittedAt:  model.SubmittedAt,
		GradedAt:     model.GradedAt,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}

	if model.Assignment.ID != 0 {
		response.Assignment = AssignmentLite{
			ID:             model.Assignment.ID,
			Title:          model.Assignment.Title,
			DueDate:        model.Assignment.DueDate,
			GradingStarted: model.Assignment.GradingStarted,
		}
	}

	if model.Student.ID != 0 {
		response.Student = StudentLite{
			ID:    model.Student.ID,
			Name:  model.Student.Name,
			Email: model.Student.Email,
		}
	}

	if len(model.History) > 0 {
		history := make([]SubmissionGradeHistoryResponse, 0, len(model.History))
		for _, entry := range model.History {
			history = append(history, SubmissionGradeHistoryResponse{
				Score:    entry.Score,
				Feedback: entry.Feedback,
				GradedBy: entry.GradedBy,
				GradedAt: entry.GradedAt,
			})
		}
		response.History = history
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
