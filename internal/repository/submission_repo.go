package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/lumenclass/lms-api/internal/models"
)

// ErrVersionConflict indicates a conditional grade write lost a race: the
// stored version no longer matches the version the caller observed.
var ErrVersionConflict = errors.New("submission version conflict")

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	AssignmentID *uint
	StudentID    *uint
	Status       *string
}

// GradeWrite carries the fields a grading pass stores.
type GradeWrite struct {
	Grade    float64
	Feedback string
	GradedBy uint
	GradedAt time.Time
}

// SubmissionRepository defines data operations for assignment submissions.
//
// ApplyGrade is the conditional update at the heart of the grading
// protocol: when expectedVersion is non-nil the guard and the write are a
// single UPDATE statement, so two graders racing on the same observed
// version can never both win.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	ApplyGrade(ctx context.Context, id uint, expectedVersion *int64, write GradeWrite) error
	CreateHistory(ctx context.Context, history *models.SubmissionGradeHistory) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Assignment").
		Preload("Student").
		Preload("History", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("graded_at DESC")
		})
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filter.AssignmentID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var submissions []models.Submission
	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

// ApplyGrade performs the atomic compare-and-swap grade write. The version
// column is always incremented inside the same statement; when the guard
// does not match, zero rows are touched and the row is re-checked to tell
// a vanished submission apart from a stale version.
func (r *submissionRepository) ApplyGrade(ctx context.Context, id uint, expectedVersion *int64, write GradeWrite) error {
	updates := map[string]interface{}{
		"grade":     write.Grade,
		"feedback":  write.Feedback,
		"status":    models.SubmissionStatusGraded,
		"graded_by": write.GradedBy,
		"graded_at": write.GradedAt,
		"version":   gorm.Expr("version + 1"),
	}

	query := r.db.WithContext(ctx).Model(&models.Submission{}).Where("id = ?", id)
	if expectedVersion != nil {
		query = query.Where("version = ?", *expectedVersion)
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.resolveGuardFailure(ctx, id)
	}

	return nil
}

func (r *submissionRepository) CreateHistory(ctx context.Context, history *models.SubmissionGradeHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

func (r *submissionRepository) resolveGuardFailure(ctx context.Context, id uint) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Submission{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrVersionConflict
}
