package dto

import (
	"time"

	"github.com/lumenclass/lms-api/internal/models"
)

// QuizQuestionInput describes one question in a quiz creation payload.
type QuizQuestionInput struct {
	Prompt string  `json:"prompt" validate:"required,min=1"`
	Points float64 `json:"points" validate:"gte=0"`
}

// QuizCreateRequest describes the payload for creating a quiz. Question
// order in the payload is the canonical question order.
type QuizCreateRequest struct {
	CourseID    uint                `json:"course_id" validate:"required,gt=0"`
	Title       string              `json:"title" validate:"required,min=3,max=255"`
	Description string              `json:"description" validate:"omitempty,max=65535"`
	Questions   []QuizQuestionInput `json:"questions" validate:"required,min=1,dive"`
}

// QuizResponse serializes a quiz for API clients.
type QuizResponse struct {
	ID             uint                  `json:"id"`
	CourseID       uint                  `json:"course_id"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Questions      []models.QuizQuestion `json:"questions"`
	GradingStarted bool                  `json:"grading_started"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// NewQuizResponse converts a Quiz model into a DTO.
func NewQuizResponse(model models.Quiz) QuizResponse {
	return QuizResponse{
		ID:             model.ID,
		CourseID:       model.CourseID,
		Title:          model.Title,
		Description:    model.Description,
		Questions:      model.Questions,
		GradingStarted: model.GradingStarted,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

// NewQuizResponseSlice converts quiz models into DTOs.
func NewQuizResponseSlice(quizzes []models.Quiz) []QuizResponse {
	responses := make([]QuizResponse, 0, len(quizzes))
	for _, quiz := range quizzes {
		responses = append(responses, NewQuizResponse(quiz))
	}

	return responses
}
