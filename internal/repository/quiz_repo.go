package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/lumenclass/lms-api/internal/models"
)

// QuizRepository defines persistence operations for quizzes, including the
// same monotonic grading gate assignments carry.
type QuizRepository interface {
	ListByCourse(ctx context.Context, courseID uint) ([]models.Quiz, error)
	GetByID(ctx context.Context, id uint) (models.Quiz, error)
	Create(ctx context.Context, quiz *models.Quiz) error
	MarkGradingStarted(ctx context.Context, id uint) error
}

type quizRepository struct {
	db *gorm.DB
}

// NewQuizRepository instantiates a GORM-backed repository.
func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		Find(&quizzes).Error; err != nil {
		return nil, err
	}

	return quizzes, nil
}

func (r *quizRepository) GetByID(ctx context.Context, id uint) (models.Quiz, error) {
	var quiz models.Quiz
	if err := r.db.WithContext(ctx).First(&quiz, id).Error; err != nil {
		return models.Quiz{}, err
	}

	return quiz, nil
}

func (r *quizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	return r.db.WithContext(ctx).Create(quiz).Error
}

func (r *quizRepository) MarkGradingStarted(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.Quiz{}).
		Where("id = ?", id).
		UpdateColumn("grading_started", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Quiz{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}
