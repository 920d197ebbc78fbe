package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/lumenclass/lms-api/internal/models"
)

// CourseRepository defines persistence operations for courses. CodeExists
// backs the join-code generator's uniqueness oracle.
type CourseRepository interface {
	List(ctx context.Context) ([]models.Course, error)
	GetByID(ctx context.Context, id uint) (models.Course, error)
	GetByCode(ctx context.Context, code string) (models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	UpdateCode(ctx context.Context, id uint, code string) error
	CodeExists(ctx context.Context, code string) (bool, error)
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository instantiates a GORM-backed repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) List(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&courses).Error; err != nil {
		return nil, err
	}

	return courses, nil
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) GetByCode(ctx context.Context, code string) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&course).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepository) UpdateCode(ctx context.Context, id uint, code string) error {
	result := r.db.WithContext(ctx).Model(&models.Course{}).
		Where("id = ?", id).
		UpdateColumn("code", code)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *courseRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Course{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
