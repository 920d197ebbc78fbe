package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lumenclass/lms-api/internal/models"
)

// QuizGradeWrite carries the fields a quiz grading pass stores.
type QuizGradeWrite struct {
	Grade          float64
	QuestionGrades []models.QuestionGrade
	Feedback       string
	GradedBy       uint
	GradedAt       time.Time
}

// QuizSubmissionRepository defines data operations for quiz submissions.
// ApplyGrade follows the same conditional-update contract as the
// assignment SubmissionRepository.
type QuizSubmissionRepository interface {
	GetByID(ctx context.Context, id uint) (models.QuizSubmission, error)
	ListByQuiz(ctx context.Context, quizID uint) ([]models.QuizSubmission, error)
	Create(ctx context.Context, submission *models.QuizSubmission) error
	ApplyGrade(ctx context.Context, id uint, expectedVersion *int64, write QuizGradeWrite) error
}

type quizSubmissionRepository struct {
	db *gorm.DB
}

// NewQuizSubmissionRepository instantiates the repository.
func NewQuizSubmissionRepository(db *gorm.DB) QuizSubmissionRepository {
	return &quizSubmissionRepository{db: db}
}

func (r *quizSubmissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.QuizSubmission{}).
		Preload("Quiz").
		Preload("Student")
}

func (r *quizSubmissionRepository) GetByID(ctx context.Context, id uint) (models.QuizSubmission, error) {
	var submission models.QuizSubmission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.QuizSubmission{}, err
	}

	return submission, nil
}

func (r *quizSubmissionRepository) ListByQuiz(ctx context.Context, quizID uint) ([]models.QuizSubmission, error) {
	var submissions []models.QuizSubmission
	if err := r.baseQuery(ctx).
		Where("quiz_id = ?", quizID).
		Order("created_at DESC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *quizSubmissionRepository) Create(ctx context.Context, submission *models.QuizSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *quizSubmissionRepository) ApplyGrade(ctx context.Context, id uint, expectedVersion *int64, write QuizGradeWrite) error {
	updates := map[string]interface{}{
		"grade":           write.Grade,
		"question_grades": datatypes.NewJSONSlice(write.QuestionGrades),
		"feedback":        write.Feedback,
		"status":          models.SubmissionStatusGraded,
		"graded_by":       write.GradedBy,
		"graded_at":       write.GradedAt,
		"version":         gorm.Expr("version + 1"),
	}

	query := r.db.WithContext(ctx).Model(&models.QuizSubmission{}).Where("id = ?", id)
	if expectedVersion != nil {
		query = query.Where("version = ?", *expectedVersion)
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.QuizSubmission{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrVersionConflict
	}

	return nil
}
