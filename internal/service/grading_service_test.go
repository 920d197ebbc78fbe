package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lumenclass/lms-api/internal/dto"
	"github.com/lumenclass/lms-api/internal/models"
	"github.com/lumenclass/lms-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type fakeSubmissionRepo struct {
	submissions   map[uint]*models.Submission
	histories     []models.SubmissionGradeHistory
	applyGradeErr error
}

func newFakeSubmissionRepo(submissions ...*models.Submission) *fakeSubmissionRepo {
	repo := &fakeSubmissionRepo{submissions: map[uint]*models.Submission{}}
	for _, submission := range submissions {
		repo.submissions[submission.ID] = submission
	}
	return repo
}

func (f *fakeSubmissionRepo) List(ctx context.Context, filter repository.SubmissionFilter) ([]models.Submission, error) {
	var result []models.Submission
	for _, submission := range f.submissions {
		if filter.StudentID != nil && submission.StudentID != *filter.StudentID {
			continue
		}
		result = append(result, *submission)
	}
	return result, nil
}

func (f *fakeSubmissionRepo) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	submission, ok := f.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	copied := *submission
	copied.History = append([]models.SubmissionGradeHistory(nil), f.historyFor(id)...)
	return copied, nil
}

func (f *fakeSubmissionRepo) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error) {
	for _, submission := range f.submissions {
		if submission.AssignmentID == assignmentID && submission.StudentID == studentID {
			return *submission, nil
		}
	}
	return models.Submission{}, gorm.ErrRecordNotFound
}

func (f *fakeSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	submission.ID = uint(len(f.submissions) + 1)
	f.submissions[submission.ID] = submission
	return nil
}

func (f *fakeSubmissionRepo) ApplyGrade(ctx context.Context, id uint, expectedVersion *int64, write repository.GradeWrite) error {
	if f.applyGradeErr != nil {
		return f.applyGradeErr
	}
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
	submission.Feedback = write.Feedback
	submission.Status = models.SubmissionStatusGraded
	submission.GradedBy = &gradedBy
	submission.GradedAt = &gradedAt
	submission.Version++
	return nil
}

func (f *fakeSubmissionRepo) CreateHistory(ctx context.Context, history *models.SubmissionGradeHistory) error {
	f.histories = append(f.histories, *history)
	return nil
}

func (f *fakeSubmissionRepo) historyFor(id uint) []models.SubmissionGradeHistory {
	var entries []models.SubmissionGradeHistory
	for _, entry := range f.histories {
		if entry.SubmissionID == id {
			entries = append(entries, entry)
		}
	}
	return entries
}

type fakeAssignmentRepo struct {
	assignments map[uint]*models.Assignment
	markCalls   int
}

func newFakeAssignmentRepo(assignments ...*models.Assignment) *fakeAssignmentRepo {
	repo := &fakeAssignmentRepo{assignments: map[uint]*models.Assignment{}}
	for _, assignment := range assignments {
		repo.assignments[assignment.ID] = assignment
	}
	return repo
}

func (f *fakeAssignmentRepo) List(ctx context.Context, filter repository.AssignmentFilter) ([]models.Assignment, int64, error) {
	var result []models.Assignment
	for _, assignment := range f.assignments {
		result = append(result, *assignment)
	}
	return result, int64(len(result)), nil
}

func (f *fakeAssignmentRepo) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, ok := f.assignments[id]
	if !ok {
		return models.Assignment{}, gorm.ErrRecordNotFound
	}
	return *assignment, nil
}

func (f *fakeAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	assignment.ID = uint(len(f.assignments) + 1)
	f.assignments[assignment.ID] = assignment
	return nil
}

func (f *fakeAssignmentRepo) Update(ctx context.Context, assignment *models.Assignment) error {
	f.assignments[assignment.ID] = assignment
	return nil
}

func (f *fakeAssignmentRepo) MarkGradingStarted(ctx context.Context, id uint) error {
	assignment, ok := f.assignments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.markCalls++
	assignment.GradingStarted = true
	return nil
}

type fakeNotifier struct {
	studentIDs []uint
	messages   []string
}

func (f *fakeNotifier) NotifyGraded(ctx context.Context, studentID uint, message string) {
	f.studentIDs = append(f.studentIDs, studentID)
	f.messages = append(f.messages, message)
}

type fakeActivityRecorder struct {
	entries []ActivityEntry
}

func (f *fakeActivityRecorder) Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	f.entries = append(f.entries, entry)
	return dto.ActivityResponse{}, nil
}

func newGradableSubmission() (*models.Submission, *models.Assignment) {
	submittedAt := time.Now().Add(-time.Hour)
	assignment := &models.Assignment{
		ID:       2,
		CourseID: 1,
		Title:    "Essay",
		DueDate:  time.Now().Add(24 * time.Hour),
		MaxScore: 100,
	}
	submission := &models.Submission{
		ID:           1,
		AssignmentID: assignment.ID,
		StudentID:    3,
		Content:      "my essay",
		Status:       models.SubmissionStatusSubmitted,
		Version:      1,
		SubmittedAt:  &submittedAt,
		Assignment:   *assignment,
	}
	return submission, assignment
}

func newGradingFixture(t *testing.T) (GradingService, *fakeSubmissionRepo, *fakeAssignmentRepo, *fakeNotifier, *fakeActivityRecorder) {
	t.Helper()

	submission, assignment := newGradableSubmission()
	submissions := newFakeSubmissionRepo(submission)
	assignments := newFakeAssignmentRepo(assignment)
	notifier := &fakeNotifier{}
	activity := &fakeActivityRecorder{}
	validate := validator.New(validator.WithRequiredStructEnabled())

	svc := NewGradingService(submissions, assignments, validate, activity, notifier, testLogger())
	return svc, submissions, assignments, notifier, activity
}

func TestGradeSubmissionGuardedSuccess(t *testing.T) {
	svc, submissions, assignments, notifier, activity := newGradingFixture(t)

	version := int64(1)
	payload := dto.GradeSubmissionRequest{Grade: 88, Feedback: "solid work", Version: &version}

	result, err := svc.GradeSubmission(context.Background(), 1, payload, ActivityActor{ID: 7, Role: "teacher"})
	require.NoError(t, err)
	require.Equal(t, int64(2), result.Version)
	require.Equal(t, models.SubmissionStatusGraded, result.Status)
	require.NotNil(t, result.Grade)
	require.Equal(t, 88.0, *result.Grade)

	require.True(t, assignments.assignments[2].GradingStarted, "gate must close after the first grade")
	require.Equal(t, 1, assignments.markCalls)
	require.Len(t, submissions.histories, 1)
	require.Equal(t, []uint{3}, notifier.studentIDs)
	require.Len(t, activity.entries, 1)
	require.Equal(t, "submission.graded", activity.entries[0].Action)
}

func TestGradeSubmissionStaleVersionConflicts(t *testing.T) {
	svc, submissions, assignments, notifier, _ := newGradingFixture(t)

	winner := int64(1)
	_, err := svc.GradeSubmission(context.Background(), 1, dto.GradeSubmissionRequest{Grade: 90, Version: &winner}, ActivityActor{ID: 7, Role: "teacher"})
	require.NoError(t, err)

	stale := int64(1)
	_, err = svc.GradeSubmission(context.Background(), 1, dto.GradeSubmissionRequest{Grade: 40, Version: &stale}, ActivityActor{ID: 8, Role: "teacher"})
	require.ErrorIs(t, err, ErrGradeConflict)

	current, getErr := submissions.GetByID(context.Background(), 1)
	require.NoError(t, getErr)
	require.Equal(t, 90.0, *current.Grade, "loser must not overwrite the stored grade")
	require.Equal(t, int64(2), current.Version)
	require.Equal(t, 1, assignments.markCalls, "conflicting attempt must not touch the gate")
	require.Len(t, notifier.studentIDs, 1)
}

func TestGradeSubmissionConflictThenRereadSucceeds(t *testing.T) {
	svc, submissions, _, _, _ := newGradingFixture(t)

	// Grader A and grader B both observe version 1.
	observedA, observedB := int64(1), int64(1)

	_, err := svc.GradeSubmission(context.Background(), 1, dto.GradeSubmissionRequest{Grade: 85, Feedback: "good", Version: &observedA}, ActivityActor{ID: 7, Role: "teacher"})
	require.NoError(t, err)

	_, err = svc.GradeSubmission(context.Background(), 1, dto.GradeSubmissionRequest{Grade: 70, Feedback: "meh", Version: &observedB}, ActivityActor{ID: 8, Role: "teacher"})
	require.ErrorIs(t, err, ErrGradeConflict)

	// B re-reads the current state and decides again.
	current, err := submissions.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), current.Version)
	require.Equal(t, 85.0, *current.Grade)

	reread := current.Version
	result, err := svc.GradeSubmission(context.Background(), 1, dto.GradeSubmissionRequest{Grade: 70, Feedback: "meh", Version: &reread}, ActivityActor{ID: 8, Role: "teacher"})
	require.NoError(t, err)
	require.Equal(t, int64(3), result.Version)
	require.Equal(t, 70.0, *result.Grade)
	require.Len(t, submissions.histories, 2, "both grading passes must be kept in history")
}

func TestGradeSubmissionUnconditionalMode(t *testing.T) {
	svc, submissions, _, _, _ := newGradingFixture(t)

	// No version supplied: last write wins, for callers predating the guard.
	_, err := svc.GradeSubmission(context.Background(), 1, dto.GradeSubmissionRequest{Grade: 60}, ActivityActor{ID: 7, Role: "teacher"})
	require.NoError(t, err)

	result, err := svc.GradeSubmission(context.Background(), 1, dto.GradeSubmissionRequest{Grade: 95}, ActivityActor{ID: 8, Role: "teacher"})
	require.NoError(t, err)
	require.Equal(t, 95.0, *result.Grade)
	require.Equal(t, int64(3), result.Version)

	current, err := submissions.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 95.0, *current.Grade)
}

func TestGradeSubmissionNotFound(t *testing.T) {
	svc, _, _, _, _ := newGradingFixture(t)

	_, err := svc.GradeSubmission(context.Background(), 9999, dto.GradeSubmissionRequest{Grade: 50}, ActivityActor{ID: 7, Role: "teacher"})
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestGradeSubmissionRejectsOutOfRangeScores(t *testing.T) {
	svc, submissions, _, _, _ := newGradingFixture(t)

	_, err := svc.GradeSubmission(context.Background(), 1, dto.GradeSubmissionRequest{Grade: -1}, ActivityActor{ID: 7, Role: "teacher"})
	require.Error(t, err)

	_, err = svc.GradeSubmission(context.Background(), 1, dto.GradeSubmissionRequest{Grade: 101}, ActivityActor{ID: 7, Role: "teacher"})
	require.Error(t, err)

	current, getErr := submissions.GetByID(context.Background(), 1)
	require.NoError(t, getErr)
	require.Nil(t, current.Grade, "rejected scores must not be written")
	require.Equal(t, int64(1), current.Version)
}

func TestGradeSubmissionAcceptsBoundaryScores(t *testing.T) {
	for _, grade := range []float64{0, 100} {
		svc, _, _, _, _ := newGradingFixture(t)

		result, err := svc.GradeSubmission(context.Background(), 1, dto.GradeSubmissionRequest{Grade: grade}, ActivityActor{ID: 7, Role: "teacher"})
		require.NoError(t, err)
		require.Equal(t, grade, *result.Grade)
	}
}

func TestGradeSubmissionScoreExceedsAssignmentMax(t *testing.T) {
	submission, assignment := newGradableSubmission()
	assignment.MaxScore = 50
	submission.Assignment = *assignment
	submissions := newFakeSubmissionRepo(submission)
	assignments := newFakeAssignmentRepo(assignment)
	validate := validator.New(validator.WithRequiredStructEnabled())

	svc := NewGradingService(submissions, assignments, validate, nil, nil, testLogger())

	_, err := svc.GradeSubmission(context.Background(), 1, dto.GradeSubmissionRequest{Grade: 80}, ActivityActor{ID: 7, Role: "teacher"})
	require.ErrorIs(t, err, ErrScoreExceedsMax)
}

func TestGradeSubmissionRejectsDrafts(t *testing.T) {
	submission, assignment := newGradableSubmission()
	submission.Status = models.SubmissionStatusNotSubmitted
	submissions := newFakeSubmissionRepo(submission)
	assignments := newFakeAssignmentRepo(assignment)
	validate := validator.New(validator.WithRequiredStructEnabled())

	svc := NewGradingService(submissions, assignments, validate, nil, nil, testLogger())

	_, err := svc.GradeSubmission(context.Background(), 1, dto.GradeSubmissionRequest{Grade: 50}, ActivityActor{ID: 7, Role: "teacher"})
	require.ErrorIs(t, err, ErrSubmissionNotGradable)
}

func TestGradeSubmissionSanitizesFeedback(t *testing.T) {
	svc, _, _, _, _ := newGradingFixture(t)

	payload := dto.GradeSubmissionRequest{Grade: 75, Feedback: "<script>alert(1)</script>well reasoned"}
	result, err := svc.GradeSubmission(context.Background(), 1, payload, ActivityActor{ID: 7, Role: "teacher"})
	require.NoError(t, err)
	require.Equal(t, "well reasoned", result.Feedback)
}

func TestGradeSubmissionConflictWithoutVersionGuard(t *testing.T) {
	svc, submissions, _, _, _ := newGradingFixture(t)
	// A row replaced between the read and the write can surface a conflict
	// even when the caller supplied no version guard.
	submissions.applyGradeErr = repository.ErrVersionConflict

	_, err := svc.GradeSubmission(context.Background(), 1, dto.GradeSubmissionRequest{Grade: 90}, ActivityActor{ID: 7, Role: "teacher"})
	require.ErrorIs(t, err, ErrGradeConflict)
}
