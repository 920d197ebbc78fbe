package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/lumenclass/lms-api/internal/dto"
	"github.com/lumenclass/lms-api/internal/models"
	"github.com/lumenclass/lms-api/internal/repository"
)

// ErrAssignmentNotFound indicates the requested assignment does not exist.
var ErrAssignmentNotFound = errors.New("assignment not found")

// AssignmentService exposes assignment domain use cases.
type AssignmentService interface {
	List(ctx context.Context, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error)
	Get(ctx context.Context, id uint) (dto.AssignmentResponse, error)
	Create(ctx context.Context, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
}

type assignmentService struct {
	repo      repository.AssignmentRepository
	courses   repository.CourseRepository
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(repo repository.AssignmentRepository, courses repository.CourseRepository, validate *validator.Validate, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		repo:      repo,
		courses:   courses,
		validator: validate,
		logger:    logger.With().Str("component", "assignment_service").Logger(),
		now:       time.Now,
	}
}

func (s *assignmentService) List(ctx context.Context, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error) {
	filter := repository.AssignmentFilter{
		CourseID: req.CourseID,
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	assignments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(req.Page, 1),
		PageSize:   req.PageSize,
		TotalItems: total,
	}
	if req.PageSize > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(req.PageSize)))
	} else {
		pagination.TotalPages = 1
	}

	return dto.AssignmentListResponse{
		Items:      dto.NewAssignmentResponseSlice(assignments),
		Pagination: pagination,
	}, nil
}

func (s *assignmentService) Get(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Create(ctx context.Context, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if _, err := s.courses.GetByID(ctx, payload.CourseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrCourseNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	maxScore := payload.MaxScore
	if maxScore <= 0 {
		maxScore = 100
	}

	assignment := models.Assignment{
		CourseID:    payload.CourseID,
		Title:       payload.Title,
		Description: payload.Description,
		DueDate:     payload.DueDate,
		MaxScore:    maxScore,
	}

	if err := s.repo.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}
