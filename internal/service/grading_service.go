package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
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

// ErrSubmissionNotFound indicates a submission could not be located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrGradeConflict indicates the submission changed since the grader last
// read it. The caller must re-read the current state and decide again;
// the service never retries on its own, since doing so would overwrite a
// decision made against stale data.
var ErrGradeConflict = errors.New("submission was modified concurrently")

// ErrSubmissionNotGradable indicates the submission is still a draft and
// has not entered the gradable part of its lifecycle.
var ErrSubmissionNotGradable = errors.New("submission has not been handed in")

// ErrScoreExceedsMax indicates a grading score surpasses the assignment max.
var ErrScoreExceedsMax = errors.New("score exceeds assignment max")

// GradingService runs the grade / re-grade protocol for assignment
// submissions: load, validate, one conditional write, then the idempotent
// assignment gate close.
type GradingService interface {
	GradeSubmission(ctx context.Context, submissionID uint, payload dto.GradeSubmissionRequest, actor ActivityActor) (dto.SubmissionResponse, error)
}

type gradingService struct {
	submissions   repository.SubmissionRepository
	assignments   repository.AssignmentRepository
	validator     *validator.Validate
	activity      ActivityRecorder
	notifications GradeNotifier
	sanitizer     *bluemonday.Policy
	logger        zerolog.Logger
	now           func() time.Time
}

// GradeNotifier delivers a "you have been graded" message to a student.
// Implemented by the notification service; nil disables delivery.
type GradeNotifier interface {
	NotifyGraded(ctx context.Context, studentID uint, message string)
}

// NewGradingService constructs the grading service.
func NewGradingService(
	submissions repository.SubmissionRepository,
	assignments repository.AssignmentRepository,
	validate *validator.Validate,
	activity ActivityRecorder,
	notifications GradeNotifier,
	logger zerolog.Logger,
) GradingService {
	return &gradingService{
		submissions:   submissions,
		assignments:   assignments,
		validator:     validate,
		activity:      activity,
		notifications: notifications,
		sanitizer:     bluemonday.StrictPolicy(),
		logger:        logger.With().Str("component", "grading_service").Logger(),
		now:           time.Now,
	}
}

func (s *gradingService) GradeSubmission(ctx context.Context, submissionID uint, payload dto.GradeSubmissionRequest, actor ActivityActor) (dto.SubmissionResponse, error) {
	tracer := otel.Tracer("github.com/lumenclass/lms-api/internal/service/grading")
	ctx, span := tracer.Start(ctx, "grading.submission")
	span.SetAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
		attribute.Bool("grading.guarded", payload.Version != nil),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		observability.GradingAttempts().WithLabelValues("assignment", "invalid").Inc()
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission_not_found")
			observability.GradingAttempts().WithLabelValues("assignment", "not_found").Inc()
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	if !submission.IsGradable() {
		span.SetStatus(codes.Error, "submission_not_gradable")
		observability.GradingAttempts().WithLabelValues("assignment", "invalid").Inc()
		return dto.SubmissionResponse{}, ErrSubmissionNotGradable
	}

	maxScore := submission.Assignment.MaxScore
	if maxScore <= 0 {
		maxScore = 100
	}
	if payload.Grade > maxScore+1e-9 {
		span.SetStatus(codes.Error, "score_exceeds_max")
		observability.GradingAttempts().WithLabelValues("assignment", "invalid").Inc()
		return dto.SubmissionResponse{}, ErrScoreExceedsMax
	}

	gradedAt := s.now()
	write := repository.GradeWrite{
		Grade:    payload.Grade,
		Feedback: strings.TrimSpace(s.sanitizer.Sanitize(payload.Feedback)),
		GradedBy: actor.ID,
		GradedAt: gradedAt,
	}

	if err := s.submissions.ApplyGrade(ctx, submissionID, payload.Version, write); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			span.SetStatus(codes.Error, "submission_vanished")
			observability.GradingAttempts().WithLabelValues("assignment", "not_found").Inc()
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		case errors.Is(err, repository.ErrVersionConflict):
			span.SetStatus(codes.Error, "version_conflict")
			observability.GradingAttempts().WithLabelValues("assignment", "conflict").Inc()
			observability.GradingConflicts().WithLabelValues("assignment").Inc()
			event := s.logger.Warn().
				Uint("submission_id", submissionID).
				Uint("actor_id", actor.ID)
			if payload.Version != nil {
				event = event.Int64("expected_version", *payload.Version)
			}
			event.Msg("grade rejected on stale version")
			return dto.SubmissionResponse{}, ErrGradeConflict
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "grade_write_failed")
			return dto.SubmissionResponse{}, err
		}
	}

	// The grade is durable from here on; gate close and bookkeeping are
	// best-effort and must not fail the request.
	s.closeAssignmentGate(ctx, submission.AssignmentID)

	history := models.SubmissionGradeHistory{
		SubmissionID: submission.ID,
		Score:        payload.Grade,
		Feedback:     write.Feedback,
		GradedBy:     actor.ID,
		GradedAt:     gradedAt,
	}
	if err := s.submissions.CreateHistory(ctx, &history); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to persist grading history")
	}

	s.recordActivity(ctx, actor, submission, payload.Grade)
	if s.notifications != nil {
		s.notifications.NotifyGraded(ctx, submission.StudentID,
			fmt.Sprintf("Your submission for %q was graded: %s", submission.Assignment.Title, strconv.FormatFloat(payload.Grade, 'f', -1, 64)))
	}

	updated, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	span.SetAttributes(
		attribute.Float64("grading.score", payload.Grade),
		attribute.Int64("grading.new_version", updated.Version),
	)
	observability.GradingAttempts().WithLabelValues("assignment", "success").Inc()

	return dto.NewSubmissionResponse(updated), nil
}

// closeAssignmentGate flips grading_started on the parent assignment. The
// set is monotonic: once any submission under the assignment is graded,
// the assignment stops accepting new submissions, forever.
func (s *gradingService) closeAssignmentGate(ctx context.Context, assignmentID uint) {
	if err := s.assignments.MarkGradingStarted(ctx, assignmentID); err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("failed to close assignment gate")
	}
}

func (s *gradingService) recordActivity(ctx context.Context, actor ActivityActor, submission models.Submission, score float64) {
	if s.activity == nil {
		return
	}

	metadata := map[string]interface{}{
		"submission_id": submission.ID,
		"student_id":    submission.StudentID,
		"assignment_id": submission.AssignmentID,
		"score":         score,
	}
	_, _ = s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "submission.graded",
		EntityType: "submission",
		EntityID:   &submission.ID,
		Metadata:   metadata,
	})
}
