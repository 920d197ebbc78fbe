package dto

import (
	"time"

	"github.com/lumenclass/lms-api/internal/models"
)

// QuizSubmissionCreateRequest carries a student's answer set for a quiz.
type QuizSubmissionCreateRequest struct {
	QuizID    uint              `json:"quiz_id" validate:"required,gt=0"`
	StudentID uint              `json:"student_id" validate:"required,gt=0"`
	Answers   []QuizAnswerInput `json:"answers" validate:"required,min=1,dive"`
}

// QuizAnswerInput is one answer within a quiz submission payload.
type QuizAnswerInput struct {
	QuestionIndex int    `json:"question_index" validate:"gte=0"`
	Answer        string `json:"answer" validate:"required"`
}

// QuestionGradeInput awards points for a single question. Points have no
// upper bound; the final grade is the sum over all entries.
type QuestionGradeInput struct {
	QuestionIndex int     `json:"question_index" validate:"gte=0"`
	Points        float64 `json:"points" validate:"gte=0"`
}

// GradeQuizSubmissionRequest is the payload for grading a quiz submission.
// Version follows the same optional optimistic-concurrency semantics as
// GradeSubmissionRequest.
type GradeQuizSubmissionRequest struct {
	QuestionGrades  []QuestionGradeInput `json:"question_grades" validate:"required,min=1,dive"`
	GeneralFeedback string               `json:"general_feedback" validate:"omitempty,max=10000"`
	Version         *int64               `json:"version" validate:"omitempty,gte=1"`
}

// QuizSubmissionResponse is returned when viewing quiz submissions.
type QuizSubmissionResponse struct {
	ID             uint                   `json:"id"`
	QuizID         uint                   `json:"quiz_id"`
	StudentID      uint                   `json:"student_id"`
	Answers        []models.QuizAnswer    `json:"answers"`
	QuestionGrades []models.QuestionGrade `json:"question_grades,omitempty"`
	Status         string                 `json:"status"`
	Grade          *float64               `json:"grade"`
	Feedback       string                 `json:"feedback"`
	GradedBy       *uint                  `json:"graded_by"`
	Version        int64                  `json:"version"`
	SubmittedAt    *time.Time             `json:"submitted_at"`
	GradedAt       *time.Time             `json:"graded_at"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	Quiz           QuizLite               `json:"quiz"`
	Student        StudentLite            `json:"student"`
}

// QuizGradeResult pairs the updated submission with an optional advisory,
// raised when the awarded points do not sum to 100. The advisory never
// blocks the write; the grade stands as computed.
type QuizGradeResult struct {
	Submission QuizSubmissionResponse `json:"submission"`
	Warning    string                 `json:"warning,omitempty"`
}

// QuizLite summarizes a quiz in submission responses.
type QuizLite struct {
	ID            uint   `json:"id"`
	Title         string `json:"title"`
	QuestionCount int    `json:"question_count"`
}

// NewQuizSubmissionResponse converts a QuizSubmission model into a DTO.
func NewQuizSubmissionResponse(model models.QuizSubmission) QuizSubmissionResponse {
	response := QuizSubmissionResponse{
		ID:             model.ID,
		QuizID:         model.QuizID,
		StudentID:      model.StudentID,
		Answers:        model.Answers,
		QuestionGrades: model.QuestionGrades,
		Status:         model.Status,
		Grade:          model.Grade,
		Feedback:       model.Feedback,
		GradedBy:       model.GradedBy,
		Version:        model.Version,
		SubmittedAt:    model.SubmittedAt,
		GradedAt:       model.GradedAt,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}

	if model.Quiz.ID != 0 {
		response.Quiz = QuizLite{
			ID:            model.Quiz.ID,
			Title:         model.Quiz.Title,
			QuestionCount: model.Quiz.QuestionCount(),
		}
	}

	if model.Student.ID != 0 {
		response.Student = StudentLite{
			ID:    model.Student.ID,
			Name:  model.Student.Name,
			Email: model.Student.Email,
		}
	}

	return response
}
