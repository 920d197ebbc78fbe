package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/lumenclass/lms-api/internal/dto"
	"github.com/lumenclass/lms-api/internal/models"
	"github.com/lumenclass/lms-api/internal/repository"
	"github.com/lumenclass/lms-api/pkg/coursecode"
)

// ErrCourseNotFound indicates the requested course does not exist.
var ErrCourseNotFound = errors.New("course not found")

// CodeGenerator produces unique join codes. Satisfied by *coursecode.Generator.
type CodeGenerator interface {
	Generate(ctx context.Context) (string, error)
}

// CourseService exposes course domain use cases. Join codes are always
// produced server-side through the bounded-retry generator.
type CourseService interface {
	List(ctx context.Context) ([]dto.CourseResponse, error)
	Get(ctx context.Context, id uint) (dto.CourseResponse, error)
	Create(ctx context.Context, payload dto.CourseCreateRequest, actor ActivityActor) (dto.CourseResponse, error)
	RegenerateCode(ctx context.Context, id uint, actor ActivityActor) (dto.CourseResponse, error)
}

type courseService struct {
	repo      repository.CourseRepository
	codes     CodeGenerator
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCourseService builds a new course service.
func NewCourseService(repo repository.CourseRepository, codes CodeGenerator, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) CourseService {
	return &courseService{
		repo:      repo,
		codes:     codes,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "course_service").Logger(),
		now:       time.Now,
	}
}

func (s *courseService) List(ctx context.Context) ([]dto.CourseResponse, error) {
	courses, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewCourseResponseSlice(courses), nil
}

func (s *courseService) Get(ctx context.Context, id uint) (dto.CourseResponse, error) {
	course, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) Create(ctx context.Context, payload dto.CourseCreateRequest, actor ActivityActor) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	code, err := s.codes.Generate(ctx)
	if err != nil {
		if errors.Is(err, coursecode.ErrAttemptsExhausted) {
			s.logger.Error().Msg("course code generation exhausted its retry bound")
		}
		return dto.CourseResponse{}, err
	}

	course := models.Course{
		Title:       payload.Title,
		Description: payload.Description,
		Code:        code,
		TeacherID:   payload.TeacherID,
	}

	if err := s.repo.Create(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	s.logger.Info().Uint("course_id", course.ID).Str("code", course.Code).Msg("course created")
	s.recordActivity(ctx, actor, "course.created", course.ID, map[string]interface{}{"code": course.Code})

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) RegenerateCode(ctx context.Context, id uint, actor ActivityActor) (dto.CourseResponse, error) {
	course, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}

	code, err := s.codes.Generate(ctx)
	if err != nil {
		return dto.CourseResponse{}, err
	}

	if err := s.repo.UpdateCode(ctx, id, code); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}

	course.Code = code
	s.recordActivity(ctx, actor, "course.code_regenerated", course.ID, map[string]interface{}{"code": code})

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) recordActivity(ctx context.Context, actor ActivityActor, action string, courseID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}

	_, _ = s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "course",
		EntityID:   &courseID,
		Metadata:   metadata,
	})
}
