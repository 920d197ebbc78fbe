package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lumenclass/lms-api/internal/dto"
	"github.com/lumenclass/lms-api/internal/models"
	"github.com/lumenclass/lms-api/internal/repository"
)

// ErrQuizNotFound indicates the requested quiz does not exist.
var ErrQuizNotFound = errors.New("quiz not found")

// QuizService exposes quiz authoring and reads.
type QuizService interface {
	ListByCourse(ctx context.Context, courseID uint) ([]dto.QuizResponse, error)
	Get(ctx context.Context, id uint) (dto.QuizResponse, error)
	Create(ctx context.Context, payload dto.QuizCreateRequest) (dto.QuizResponse, error)
}

type quizService struct {
	quizzes   repository.QuizRepository
	courses   repository.CourseRepository
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewQuizService builds a new quiz service.
func NewQuizService(quizzes repository.QuizRepository, courses repository.CourseRepository, validate *validator.Validate, logger zerolog.Logger) QuizService {
	return &quizService{
		quizzes:   quizzes,
		courses:   courses,
		validator: validate,
		logger:    logger.With().Str("component", "quiz_service").Logger(),
		now:       time.Now,
	}
}

func (s *quizService) ListByCourse(ctx context.Context, courseID uint) ([]dto.QuizResponse, error) {
	quizzes, err := s.quizzes.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	return dto.NewQuizResponseSlice(quizzes), nil
}

func (s *quizService) Get(ctx context.Context, id uint) (dto.QuizResponse, error) {
	quiz, err := s.quizzes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuizResponse{}, ErrQuizNotFound
		}
		return dto.QuizResponse{}, err
	}

	return dto.NewQuizResponse(quiz), nil
}

func (s *quizService) Create(ctx context.Context, payload dto.QuizCreateRequest) (dto.QuizResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuizResponse{}, err
	}

	if _, err := s.courses.GetByID(ctx, payload.CourseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuizResponse{}, ErrCourseNotFound
		}
		return dto.QuizResponse{}, err
	}

	// Payload order fixes the canonical question indexes.
	questions := make([]models.QuizQuestion, 0, len(payload.Questions))
	for i, question := range payload.Questions {
		questions = append(questions, models.QuizQuestion{
			Index:  i,
			Prompt: question.Prompt,
			Points: question.Points,
		})
	}

	quiz := models.Quiz{
		CourseID:    payload.CourseID,
		Title:       payload.Title,
		Description: payload.Description,
		Questions:   datatypes.NewJSONSlice(questions),
	}

	if err := s.quizzes.Create(ctx, &quiz); err != nil {
		return dto.QuizResponse{}, err
	}

	s.logger.Info().
		Uint("quiz_id", quiz.ID).
		Int("questions", len(questions)).
		Msg("quiz created")

	return dto.NewQuizResponse(quiz), nil
}
