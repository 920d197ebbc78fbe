package dto

import (
	"time"

	"github.com/lumenclass/lms-api/internal/models"
)

// CourseCreateRequest describes the payload for creating a course. The
// join code is generated server-side, never supplied by the client.
type CourseCreateRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Description string `json:"description" validate:"omitempty,max=65535"`
	TeacherID   uint   `json:"teacher_id" validate:"required,gt=0"`
}

// CourseResponse serializes a course for API clients.
type CourseResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Code        string    `json:"code"`
	TeacherID   uint      `json:"teacher_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewCourseResponse converts a Course model into a DTO.
func NewCourseResponse(model models.Course) CourseResponse {
	return CourseResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		Code:        model.Code,
		TeacherID:   model.TeacherID,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewCourseResponseSlice converts course models into DTOs.
func NewCourseResponseSlice(courses []models.Course) []CourseResponse {
	responses := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, NewCourseResponse(course))
	}

	return responses
}
