package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lumenclass/lms-api/internal/models"
)

func createQuizSubmission(t *testing.T, db *gorm.DB) models.QuizSubmission {
	t.Helper()

	student := models.Student{Name: "Bob Stone", Email: "bob@example.com"}
	require.NoError(t, db.Create(&student).Error)

	quiz := models.Quiz{
		CourseID: 1,
		Title:    "Pop Quiz",
		Questions: datatypes.NewJSONSlice([]models.QuizQuestion{
			{Index: 0, Prompt: "What is 2+2?", Points: 40},
			{Index: 1, Prompt: "Name a prime.", Points: 60},
		}),
	}
	require.NoError(t, db.Create(&quiz).Error)

	submittedAt := time.Now()
	submission := models.QuizSubmission{
		QuizID:    quiz.ID,
		StudentID: student.ID,
		Answers: datatypes.NewJSONSlice([]models.QuizAnswer{
			{QuestionIndex: 0, Answer: "4"},
			{QuestionIndex: 1, Answer: "7"},
		}),
		Status:      models.SubmissionStatusSubmitted,
		Version:     1,
		SubmittedAt: &submittedAt,
	}
	require.NoError(t, db.Create(&submission).Error)

	return submission
}

func TestQuizApplyGradeStoresPerQuestionPoints(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuizSubmissionRepository(db)
	submission := createQuizSubmission(t, db)

	version := submission.Version
	write := QuizGradeWrite{
		Grade: 90,
		QuestionGrades: []models.QuestionGrade{
			{QuestionIndex: 0, Points: 40},
			{QuestionIndex: 1, Points: 50},
		},
		Feedback: "close",
		GradedBy: 7,
		GradedAt: time.Now(),
	}
	require.NoError(t, repo.ApplyGrade(context.Background(), submission.ID, &version, write))

	updated, err := repo.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, version+1, updated.Version)
	require.Equal(t, models.SubmissionStatusGraded, updated.Status)
	require.NotNil(t, updated.Grade)
	require.Equal(t, 90.0, *updated.Grade)
	require.Len(t, updated.QuestionGrades, 2)
	require.Equal(t, 50.0, updated.QuestionGrades[1].Points)
}

func TestQuizApplyGradeStaleVersionLoses(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuizSubmissionRepository(db)
	submission := createQuizSubmission(t, db)

	version := submission.Version
	write := QuizGradeWrite{Grade: 80, GradedBy: 7, GradedAt: time.Now()}
	require.NoError(t, repo.ApplyGrade(context.Background(), submission.ID, &version, write))

	err := repo.ApplyGrade(context.Background(), submission.ID, &version, QuizGradeWrite{Grade: 10, GradedBy: 8, GradedAt: time.Now()})
	require.ErrorIs(t, err, ErrVersionConflict)

	unchanged, err := repo.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, 80.0, *unchanged.Grade)
}

func TestQuizApplyGradeMissingSubmission(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuizSubmissionRepository(db)

	version := int64(1)
	err := repo.ApplyGrade(context.Background(), 9999, &version, QuizGradeWrite{Grade: 10, GradedBy: 8, GradedAt: time.Now()})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
