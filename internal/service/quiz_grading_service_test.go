package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lumenclass/lms-api/internal/dto"
	"github.com/lumenclass/lms-api/internal/models"
	"github.com/lumenclass/lms-api/internal/repository"
)

type fakeQuizSubmissionRepo struct {
	submissions map[uint]*models.QuizSubmission
}

func newFakeQuizSubmissionRepo(submissions ...*models.QuizSubmission) *fakeQuizSubmissionRepo {
	repo := &fakeQuizSubmissionRepo{submissions: map[uint]*models.QuizSubmission{}}
	for _, submission := range submissions {
		repo.submissions[submission.ID] = submission
	}
	return repo
}

func (f *fakeQuizSubmissionRepo) GetByID(ctx context.Context, id uint) (models.QuizSubmission, error) {
	submission, ok := f.submissions[id]
	if !ok {
		return models.QuizSubmission{}, gorm.ErrRecordNotFound
	}
	return *submission, nil
}

func (f *fakeQuizSubmissionRepo) ListByQuiz(ctx context.Context, quizID uint) ([]models.QuizSubmission, error) {
	var result []models.QuizSubmission
	for _, submission := range f.submissions {
		if submission.QuizID == quizID {
			result = append(result, *submission)
		}
	}
	return result, nil
}

func (f *fakeQuizSubmissionRepo) Create(ctx context.Context, submission *models.QuizSubmission) error {
	submission.ID = uint(len(f.submissions) + 1)
	f.submissions[submission.ID] = submission
	return nil
}

func (f *fakeQuizSubmissionRepo) ApplyGrade(ctx context.Context, id uint, expectedVersion *int64, write repository.QuizGradeWrite) error {
	submission, ok := f.submissions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if expectedVersion != nil && submission.Version != *expectedVersion {
		return repository.ErrVersionConflict
	}

	grade := write.Grade
	gradedBy := write.GradedBy
	gradedAt := write.GradedAt
	submission.Grade = &grade
	submission.QuestionGrades = datatypes.NewJSONSlice(write.QuestionGrades)
	submission.Feedback = write.Feedback
	submission.Status = models.SubmissionStatusGraded
	submission.GradedBy = &gradedBy
	submission.GradedAt = &gradedAt
	submission.Version++
	return nil
}

type fakeQuizRepo struct {
	quizzes   map[uint]*models.Quiz
	markCalls int
}

func newFakeQuizRepo(quizzes ...*models.Quiz) *fakeQuizRepo {
	repo := &fakeQuizRepo{quizzes: map[uint]*models.Quiz{}}
	for _, quiz := range quizzes {
		repo.quizzes[quiz.ID] = quiz
	}
	return repo
}

func (f *fakeQuizRepo) ListByCourse(ctx context.Context, courseID uint) ([]models.Quiz, error) {
	var result []models.Quiz
	for _, quiz := range f.quizzes {
		if quiz.CourseID == courseID {
			result = append(result, *quiz)
		}
	}
	return result, nil
}

func (f *fakeQuizRepo) GetByID(ctx context.Context, id uint) (models.Quiz, error) {
	quiz, ok := f.quizzes[id]
	if !ok {
		return models.Quiz{}, gorm.ErrRecordNotFound
	}
	return *quiz, nil
}

func (f *fakeQuizRepo) Create(ctx context.Context, quiz *models.Quiz) error {
	quiz.ID = uint(len(f.quizzes) + 1)
	f.quizzes[quiz.ID] = quiz
	return nil
}

func (f *fakeQuizRepo) MarkGradingStarted(ctx context.Context, id uint) error {
	quiz, ok := f.quizzes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.markCalls++
	quiz.GradingStarted = true
	return nil
}

func newQuizFixture() (*models.QuizSubmission, *models.Quiz) {
	quiz := &models.Quiz{
		ID:       5,
		CourseID: 1,
		Title:    "Pop Quiz",
		Questions: datatypes.NewJSONSlice([]models.QuizQuestion{
			{Index: 0, Prompt: "What is 2+2?", Points: 40},
			{Index: 1, Prompt: "Name a prime.", Points: 60},
		}),
	}
	submittedAt := time.Now().Add(-time.Hour)
	submission := &models.QuizSubmission{
		ID:        1,
		QuizID:    quiz.ID,
		StudentID: 3,
		Answers: datatypes.NewJSONSlice([]models.QuizAnswer{
			{QuestionIndex: 0, Answer: "4"},
			{QuestionIndex: 1, Answer: "7"},
		}),
		Status:      models.SubmissionStatusSubmitted,
		Version:     1,
		SubmittedAt: &submittedAt,
		Quiz:        *quiz,
	}
	return submission, quiz
}

func newQuizGradingFixture(t *testing.T) (QuizGradingService, *fakeQuizSubmissionRepo, *fakeQuizRepo, *fakeNotifier) {
	t.Helper()

	submission, quiz := newQuizFixture()
	submissions := newFakeQuizSubmissionRepo(submission)
	quizzes := newFakeQuizRepo(quiz)
	notifier := &fakeNotifier{}
	validate := validator.New(validator.WithRequiredStructEnabled())

	svc := NewQuizGradingService(submissions, quizzes, validate, &fakeActivityRecorder{}, notifier, testLogger())
	return svc, submissions, quizzes, notifier
}

func TestGradeQuizSubmissionSumsToHundredNoWarning(t *testing.T) {
	svc, _, quizzes, notifier := newQuizGradingFixture(t)

	payload := dto.GradeQuizSubmissionRequest{
		QuestionGrades: []dto.QuestionGradeInput{
			{QuestionIndex: 0, Points: 40},
			{QuestionIndex: 1, Points: 60},
		},
		GeneralFeedback: "all correct",
	}

	result, err := svc.GradeQuizSubmission(context.Background(), 1, payload, ActivityActor{ID: 7, Role: "teacher"})
	require.NoError(t, err)
	require.Empty(t, result.Warning)
	require.NotNil(t, result.Submission.Grade)
	require.Equal(t, 100.0, *result.Submission.Grade)
	require.Equal(t, int64(2), result.Submission.Version)
	require.True(t, quizzes.quizzes[5].GradingStarted)
	require.Equal(t, []uint{3}, notifier.studentIDs)
}

func TestGradeQuizSubmissionOffHundredSumWarnsButStands(t *testing.T) {
	svc, submissions, _, _ := newQuizGradingFixture(t)

	payload := dto.GradeQuizSubmissionRequest{
		QuestionGrades: []dto.QuestionGradeInput{
			{QuestionIndex: 0, Points: 30},
			{QuestionIndex: 1, Points: 45},
		},
	}

	result, err := svc.GradeQuizSubmission(context.Background(), 1, payload, ActivityActor{ID: 7, Role: "teacher"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Warning, "a sum away from 100 must produce an advisory")
	require.Equal(t, 75.0, *result.Submission.Grade)

	stored, err := submissions.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 75.0, *stored.Grade, "advisory must not block the write")
	require.Equal(t, models.SubmissionStatusGraded, stored.Status)
}

func TestGradeQuizSubmissionSumAboveHundredStands(t *testing.T) {
	svc, _, _, _ := newQuizGradingFixture(t)

	payload := dto.GradeQuizSubmissionRequest{
		QuestionGrades: []dto.QuestionGradeInput{
			{QuestionIndex: 0, Points: 80},
			{QuestionIndex: 1, Points: 70},
		},
	}

	result, err := svc.GradeQuizSubmission(context.Background(), 1, payload, ActivityActor{ID: 7, Role: "teacher"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Warning)
	require.Equal(t, 150.0, *result.Submission.Grade, "per-question points are not capped")
}

func TestGradeQuizSubmissionQuestionCoverage(t *testing.T) {
	cases := map[string][]dto.QuestionGradeInput{
		"too few":         {{QuestionIndex: 0, Points: 50}},
		"too many":        {{QuestionIndex: 0, Points: 30}, {QuestionIndex: 1, Points: 30}, {QuestionIndex: 1, Points: 40}},
		"duplicate index": {{QuestionIndex: 0, Points: 50}, {QuestionIndex: 0, Points: 50}},
		"out of range":    {{QuestionIndex: 0, Points: 50}, {QuestionIndex: 2, Points: 50}},
	}

	for name, inputs := range cases {
		svc, submissions, _, _ := newQuizGradingFixture(t)

		_, err := svc.GradeQuizSubmission(context.Background(), 1, dto.GradeQuizSubmissionRequest{QuestionGrades: inputs}, ActivityActor{ID: 7, Role: "teacher"})
		require.ErrorIs(t, err, ErrQuestionCountMismatch, name)

		stored, getErr := submissions.GetByID(context.Background(), 1)
		require.NoError(t, getErr)
		require.Nil(t, stored.Grade, name)
		require.Equal(t, int64(1), stored.Version, name)
	}
}

func TestGradeQuizSubmissionStaleVersionConflicts(t *testing.T) {
	svc, submissions, _, _ := newQuizGradingFixture(t)

	grades := []dto.QuestionGradeInput{
		{QuestionIndex: 0, Points: 40},
		{QuestionIndex: 1, Points: 60},
	}

	winner := int64(1)
	_, err := svc.GradeQuizSubmission(context.Background(), 1, dto.GradeQuizSubmissionRequest{QuestionGrades: grades, Version: &winner}, ActivityActor{ID: 7, Role: "teacher"})
	require.NoError(t, err)

	stale := int64(1)
	_, err = svc.GradeQuizSubmission(context.Background(), 1, dto.GradeQuizSubmissionRequest{QuestionGrades: grades, Version: &stale}, ActivityActor{ID: 8, Role: "teacher"})
	require.ErrorIs(t, err, ErrGradeConflict)

	stored, err := submissions.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), stored.Version)
}

func TestGradeQuizSubmissionNotFound(t *testing.T) {
	svc, _, _, _ := newQuizGradingFixture(t)

	payload := dto.GradeQuizSubmissionRequest{
		QuestionGrades: []dto.QuestionGradeInput{{QuestionIndex: 0, Points: 10}},
	}
	_, err := svc.GradeQuizSubmission(context.Background(), 9999, payload, ActivityActor{ID: 7, Role: "teacher"})
	require.ErrorIs(t, err, ErrQuizSubmissionNotFound)
}
