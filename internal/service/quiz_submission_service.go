package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lumenclass/lms-api/internal/dto"
	"github.com/lumenclass/lms-api/internal/models"
	"github.com/lumenclass/lms-api/internal/repository"
)

// ErrQuizClosed indicates the quiz no longer accepts submissions because
// grading already started.
var ErrQuizClosed = errors.New("quiz no longer accepts submissions")

// ErrInvalidAnswers indicates an answer set that does not fit the quiz.
var ErrInvalidAnswers = errors.New("invalid answer set")

// QuizSubmissionService orchestrates quiz submission intake and reads.
type QuizSubmissionService interface {
	ListByQuiz(ctx context.Context, quizID uint) ([]dto.QuizSubmissionResponse, error)
	Get(ctx context.Context, id uint) (dto.QuizSubmissionResponse, error)
	Create(ctx context.Context, payload dto.QuizSubmissionCreateRequest) (dto.QuizSubmissionResponse, error)
}

type quizSubmissionService struct {
	submissions repository.QuizSubmissionRepository
	quizzes     repository.QuizRepository
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewQuizSubmissionService constructs a QuizSubmissionService instance.
func NewQuizSubmissionService(submissions repository.QuizSubmissionRepository, quizzes repository.QuizRepository, validate *validator.Validate, logger zerolog.Logger) QuizSubmissionService {
	return &quizSubmissionService{
		submissions: submissions,
		quizzes:     quizzes,
		validator:   validate,
		logger:      logger.With().Str("component", "quiz_submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *quizSubmissionService) ListByQuiz(ctx context.Context, quizID uint) ([]dto.QuizSubmissionResponse, error) {
	submissions, err := s.submissions.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.QuizSubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, dto.NewQuizSubmissionResponse(submission))
	}

	return responses, nil
}

func (s *quizSubmissionService) Get(ctx context.Context, id uint) (dto.QuizSubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuizSubmissionResponse{}, ErrQuizSubmissionNotFound
		}
		return dto.QuizSubmissionResponse{}, err
	}

	return dto.NewQuizSubmissionResponse(submission), nil
}

func (s *quizSubmissionService) Create(ctx context.Context, payload dto.QuizSubmissionCreateRequest) (dto.QuizSubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuizSubmissionResponse{}, err
	}

	quiz, err := s.quizzes.GetByID(ctx, payload.QuizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuizSubmissionResponse{}, ErrQuizNotFound
		}
		return dto.QuizSubmissionResponse{}, err
	}

	if quiz.GradingStarted {
		return dto.QuizSubmissionResponse{}, ErrQuizClosed
	}

	answers, err := normalizeAnswers(payload.Answers, quiz.QuestionCount())
	if err != nil {
		return dto.QuizSubmissionResponse{}, err
	}

	submittedAt := s.now()
	submission := models.QuizSubmission{
		QuizID:      payload.QuizID,
		StudentID:   payload.StudentID,
		Answers:     datatypes.NewJSONSlice(answers),
		Status:      models.SubmissionStatusSubmitted,
		Version:     1,
		SubmittedAt: &submittedAt,
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.QuizSubmissionResponse{}, err
	}

	created, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.QuizSubmissionResponse{}, err
	}

	s.logger.Info().
		Uint("quiz_submission_id", created.ID).
		Uint("quiz_id", created.QuizID).
		Msg("quiz submission created")

	return dto.NewQuizSubmissionResponse(created), nil
}

// normalizeAnswers validates answer indexes against the quiz and rejects
// duplicates. Unanswered questions are allowed; grading covers them all
// regardless.
func normalizeAnswers(inputs []dto.QuizAnswerInput, questionCount int) ([]models.QuizAnswer, error) {
	seen := make(map[int]bool, len(inputs))
	answers := make([]models.QuizAnswer, 0, len(inputs))
	for _, input := range inputs {
		if input.QuestionIndex >= questionCount {
			return nil, fmt.Errorf("%w: answer references question %d, quiz has %d questions", ErrInvalidAnswers, input.QuestionIndex, questionCount)
		}
		if seen[input.QuestionIndex] {
			return nil, fmt.Errorf("%w: duplicate answer for question %d", ErrInvalidAnswers, input.QuestionIndex)
		}
		seen[input.QuestionIndex] = true
		answers = append(answers, models.QuizAnswer{
			QuestionIndex: input.QuestionIndex,
			Answer:        input.Answer,
		})
	}

	return answers, nil
}
