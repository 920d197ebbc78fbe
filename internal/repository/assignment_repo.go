package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/lumenclass/lms-api/internal/models"
)

// AssignmentFilter describes pagination & search options.
type AssignmentFilter struct {
	CourseID *uint
	Search   string
	Page     int
	PageSize int
}

// AssignmentRepository defines persistence operations for assignments.
//
// MarkGradingStarted is the assignment gate: a monotonic set of the
// grading_started flag. Setting it when already true is a no-op, so
// concurrent graders converge without any guard.
type AssignmentRepository interface {
	List(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error)
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	MarkGradingStarted(ctx context.Context, id uint) error
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) List(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Assignment{})

	if filter.CourseID != nil {
		query = query.Where("course_id = ?", *filter.CourseID)
	}

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var assignments []models.Assignment
	if err := query.Order("due_date ASC").Find(&assignments).Error; err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Save(assignment).Error
}

func (r *assignmentRepository) MarkGradingStarted(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("id = ?", id).
		UpdateColumn("grading_started", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// UpdateColumn touches the row even when the flag is already true,
		// so zero rows means the assignment is gone.
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Assignment{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}
