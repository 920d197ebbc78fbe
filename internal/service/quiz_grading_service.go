package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/lumenclass/lms-api/internal/dto"
	"github.com/lumenclass/lms-api/internal/models"
	"github.com/lumenclass/lms-api/internal/observability"
	"github.com/lumenclass/lms-api/internal/repository"
)

// ErrQuizSubmissionNotFound indicates a quiz submission could not be located.
var ErrQuizSubmissionNotFound = errors.New("quiz submission not found")

// ErrQuestionCountMismatch indicates the grade payload does not award
// points for exactly the quiz's questions.
var ErrQuestionCountMismatch = errors.New("question grades do not match quiz questions")

// QuizGradingService runs the grading protocol for quiz submissions. The
// final grade is the sum of per-question points; a sum different from 100
// yields a non-fatal advisory alongside the updated record.
type QuizGradingService interface {
	GradeQuizSubmission(ctx context.Context, submissionID uint, payload dto.GradeQuizSubmissionRequest, actor ActivityActor) (dto.QuizGradeResult, error)
}

type quizGradingService struct {
	submissions   repository.QuizSubmissionRepository
	quizzes       repository.QuizRepository
	validator     *validator.Validate
	activity      ActivityRecorder
	notifications GradeNotifier
	sanitizer     *bluemonday.Policy
	logger        zerolog.Logger
	now           func() time.Time
}

// NewQuizGradingService constructs the quiz grading service.
func NewQuizGradingService(
	submissions repository.QuizSubmissionRepository,
	quizzes repository.QuizRepository,
	validate *validator.Validate,
	activity ActivityRecorder,
	notifications GradeNotifier,
	logger zerolog.Logger,
) QuizGradingService {
	return &quizGradingService{
		submissions:   submissions,
		quizzes:       quizzes,
		validator:     validate,
		activity:      activity,
		notifications: notifications,
		sanitizer:     bluemonday.StrictPolicy(),
		logger:        logger.With().Str("component", "quiz_grading_service").Logger(),
		now:           time.Now,
	}
}

func (s *quizGradingService) GradeQuizSubmission(ctx context.Context, submissionID uint, payload dto.GradeQuizSubmissionRequest, actor ActivityActor) (dto.QuizGradeResult, error) {
	tracer := otel.Tracer("github.com/lumenclass/lms-api/internal/service/quiz_grading")
	ctx, span := tracer.Start(ctx, "grading.quiz_submission")
	span.SetAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
		attribute.Bool("grading.guarded", payload.Version != nil),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation_failed")
		observability.GradingAttempts().WithLabelValues("quiz", "invalid").Inc()
		return dto.QuizGradeResult{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission_not_found")
			observability.GradingAttempts().WithLabelValues("quiz", "not_found").Inc()
			return dto.QuizGradeResult{}, ErrQuizSubmissionNotFound
		}
		span.RecordError(err)
		return dto.QuizGradeResult{}, err
	}

	if !submission.IsGradable() {
		span.SetStatus(codes.Error, "submission_not_gradable")
		observability.GradingAttempts().WithLabelValues("quiz", "invalid").Inc()
		return dto.QuizGradeResult{}, ErrSubmissionNotGradable
	}

	grades, total, err := normalizeQuestionGrades(payload.QuestionGrades, submission.Quiz.QuestionCount())
	if err != nil {
		span.SetStatus(codes.Error, "question_grades_invalid")
		observability.GradingAttempts().WithLabelValues("quiz", "invalid").Inc()
		return dto.QuizGradeResult{}, err
	}

	gradedAt := s.now()
	write := repository.QuizGradeWrite{
		Grade:          total,
		QuestionGrades: grades,
		Feedback:       strings.TrimSpace(s.sanitizer.Sanitize(payload.GeneralFeedback)),
		GradedBy:       actor.ID,
		GradedAt:       gradedAt,
	}

	if err := s.submissions.ApplyGrade(ctx, submissionID, payload.Version, write); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			span.SetStatus(codes.Error, "submission_vanished")
			observability.GradingAttempts().WithLabelValues("quiz", "not_found").Inc()
			return dto.QuizGradeResult{}, ErrQuizSubmissionNotFound
		case errors.Is(err, repository.ErrVersionConflict):
			span.SetStatus(codes.Error, "version_conflict")
			observability.GradingAttempts().WithLabelValues("quiz", "conflict").Inc()
			observability.GradingConflicts().WithLabelValues("quiz").Inc()
			s.logger.Warn().
				Uint("submission_id", submissionID).
				Uint("actor_id", actor.ID).
				Msg("quiz grade rejected on stale version")
			return dto.QuizGradeResult{}, ErrGradeConflict
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "grade_write_failed")
			return dto.QuizGradeResult{}, err
		}
	}

	if err := s.quizzes.MarkGradingStarted(ctx, submission.QuizID); err != nil {
		s.logger.Warn().Err(err).Uint("quiz_id", submission.QuizID).Msg("failed to close quiz gate")
	}

	s.recordActivity(ctx, actor, submission, total)
	if s.notifications != nil {
		s.notifications.NotifyGraded(ctx, submission.StudentID,
			fmt.Sprintf("Your quiz %q was graded: %.5g", submission.Quiz.Title, total))
	}

	updated, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return dto.QuizGradeResult{}, err
	}

	result := dto.QuizGradeResult{Submission: dto.NewQuizSubmissionResponse(updated)}
	if math.Abs(total-100) > 1e-9 {
		result.Warning = fmt.Sprintf("question points sum to %.5g, not 100; the grade stands as computed", total)
		span.SetAttributes(attribute.Bool("grading.sum_advisory", true))
	}

	span.SetAttributes(
		attribute.Float64("grading.score", total),
		attribute.Int64("grading.new_version", updated.Version),
	)
	observability.GradingAttempts().WithLabelValues("quiz", "success").Inc()

	return result, nil
}

// normalizeQuestionGrades checks that the payload awards points for each
// quiz question exactly once and returns the entries in question order
// together with their sum. Points are unbounded above; the sum becomes
// the submission grade even when it exceeds 100.
func normalizeQuestionGrades(inputs []dto.QuestionGradeInput, questionCount int) ([]models.QuestionGrade, float64, error) {
	if len(inputs) != questionCount {
		return nil, 0, ErrQuestionCountMismatch
	}

	seen := make(map[int]bool, len(inputs))
	grades := make([]models.QuestionGrade, questionCount)
	var total float64
	for _, input := range inputs {
		if input.QuestionIndex < 0 || input.QuestionIndex >= questionCount || seen[input.QuestionIndex] {
			return nil, 0, ErrQuestionCountMismatch
		}
		seen[input.QuestionIndex] = true
		grades[input.QuestionIndex] = models.QuestionGrade{
			QuestionIndex: input.QuestionIndex,
			Points:        input.Points,
		}
		total += input.Points
	}

	return grades, total, nil
}

func (s *quizGradingService) recordActivity(ctx context.Context, actor ActivityActor, submission models.QuizSubmission, score float64) {
	if s.activity == nil {
		return
	}

	metadata := map[string]interface{}{
		"submission_id": submission.ID,
		"student_id":    submission.StudentID,
		"quiz_id":       submission.QuizID,
		"score":         score,
	}
	_, _ = s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "quiz_submission.graded",
		EntityType: "quiz_submission",
		EntityID:   &submission.ID,
		Metadata:   metadata,
	})
}
