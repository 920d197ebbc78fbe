package dto

import (
	"time"

	"github.com/lumenclass/lms-api/internal/models"
)

// AssignmentCreateRequest describes the payload for creating an assignment.
type AssignmentCreateRequest struct {
	CourseID    uint      `json:"course_id" validate:"required,gt=0"`
	Title       string    `json:"title" validate:"required,min=3,max=255"`
	Description string    `json:"description" validate:"omitempty,max=65535"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	MaxScore    float64   `json:"max_score" validate:"omitempty,gt=0"`
}

// AssignmentListRequest describes filters for listing assignments.
type AssignmentListRequest struct {
	CourseID *uint  `query:"course_id"`
	Search   string `query:"search"`
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
}

// AssignmentResponse serializes an assignment for API clients.
type AssignmentResponse struct {
	ID             uint      `json:"id"`
	CourseID       uint      `json:"course_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	DueDate        time.Time `json:"due_date"`
	MaxScore       float64   `json:"max_score"`
	GradingStarted bool      `json:"grading_started"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AssignmentListResponse wraps a paginated assignment response.
type AssignmentListResponse struct {
	Items      []AssignmentResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// NewAssignmentResponse converts an Assignment model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:             model.ID,
		CourseID:       model.CourseID,
		Title:          model.Title,
		Description:    model.Description,
		DueDate:        model.DueDate,
		MaxScore:       model.MaxScore,
		GradingStarted: model.GradingStarted,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts assignment models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
