package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/lumenclass/lms-api/internal/dto"
	"github.com/lumenclass/lms-api/internal/models"
	"github.com/lumenclass/lms-api/internal/repository"
)

// ErrStudentNotFound indicates the requested student does not exist.
var ErrStudentNotFound = errors.New("student not found")

// StudentDashboardService produces a student's aggregated grading overview.
type StudentDashboardService interface {
	GetDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error)
}

type studentDashboardService struct {
	students    repository.StudentRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewStudentDashboardService builds the dashboard aggregator.
func NewStudentDashboardService(students repository.StudentRepository, assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StudentDashboardService {
	return &studentDashboardService{
		students:    students,
		assignments: assignments,
		submissions: submissions,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "student_dashboard_service").Logger(),
		now:         time.Now,
	}
}

func (s *studentDashboardService) GetDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error) {
	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentDashboardResponse{}, ErrStudentNotFound
		}
		return dto.StudentDashboardResponse{}, err
	}

	cacheKey := fmt.Sprintf("dashboard:student:%d", studentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("student_id", studentID).Msg("dashboard cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	assignments, _, err := s.assignments.List(ctx, repository.AssignmentFilter{})
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	filter := repository.SubmissionFilter{StudentID: &studentID}
	submissions, err := s.submissions.List(ctx, filter)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	response := s.buildResponse(studentID, assignments, submissions)

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

func (s *studentDashboardService) buildResponse(studentID uint, assignments []models.Assignment, submissions []models.Submission) dto.StudentDashboardResponse {
	submissionByAssignment := map[uint]models.Submission{}
	for _, submission := range submissions {
		if _, exists := submissionByAssignment[submission.AssignmentID]; !exists {
			submissionByAssignment[submission.AssignmentID] = submission
		}
	}

	items := make([]dto.DashboardAssignment, 0, len(assignments))
	var gradeTotal float64
	var gradedCount, pendingCount int

	for _, assignment := range assignments {
		item := dto.DashboardAssignment{
			AssignmentID: assignment.ID,
			Title:        assignment.Title,
			DueDate:      assignment.DueDate,
			Status:       models.SubmissionStatusNotSubmitted,
		}

		if submission, ok := submissionByAssignment[assignment.ID]; ok {
			item.Status = submission.Status
			item.Grade = submission.Grade
			item.GradedAt = submission.GradedAt

			if submission.IsGraded() && submission.Grade != nil {
				gradeTotal += *submission.Grade
				gradedCount++
			} else {
				pendingCount++
			}
		} else {
			pendingCount++
		}

		items = append(items, item)
	}

	response := dto.StudentDashboardResponse{
		StudentID:    studentID,
		Assignments:  items,
		GradedCount:  gradedCount,
		PendingCount: pendingCount,
		GeneratedAt:  s.now().UTC(),
	}

	if gradedCount > 0 {
		average := gradeTotal / float64(gradedCount)
		response.AverageGrade = &average
	}

	return response
}
