package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lumenclass/lms-api/internal/config"
	"github.com/lumenclass/lms-api/internal/dto"
	"github.com/lumenclass/lms-api/internal/handler"
	"github.com/lumenclass/lms-api/internal/models"
	"github.com/lumenclass/lms-api/internal/repository"
	"github.com/lumenclass/lms-api/internal/router"
	"github.com/lumenclass/lms-api/internal/service"
)

func setupGradingApp(t *testing.T, role string) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Student{},
		&models.Course{},
		&models.Assignment{},
		&models.Submission{},
		&models.SubmissionGradeHistory{},
		&models.Quiz{},
		&models.QuizSubmission{},
	))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	submissionRepo := repository.NewSubmissionRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	quizSubmissionRepo := repository.NewQuizSubmissionRepository(db)

	gradingService := service.NewGradingService(submissionRepo, assignmentRepo, validate, nil, nil, logger)
	quizGradingService := service.NewQuizGradingService(quizSubmissionRepo, quizRepo, validate, nil, nil, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, validate, nil, logger)
	quizSubmissionService := service.NewQuizSubmissionService(quizSubmissionRepo, quizRepo, validate, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test"}, router.Dependencies{
		SubmissionHandler:     handler.NewSubmissionHandler(submissionService, logger),
		QuizSubmissionHandler: handler.NewQuizSubmissionHandler(quizSubmissionService, logger),
		GradingHandler:        handler.NewGradingHandler(gradingService, quizGradingService, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_id", uint(1))
			c.Locals("user_role", role)
			return c.Next()
		},
	})

	return app, db
}

func seedGradableSubmission(t *testing.T, db *gorm.DB) models.Submission {
	t.Helper()

	student := models.Student{Name: "Jane", Email: "jane@example.com"}
	require.NoError(t, db.Create(&student).Error)

	assignment := models.Assignment{
		Title:    "Lab Report",
		DueDate:  time.Now().Add(3 * time.Hour),
		MaxScore: 100,
	}
	require.NoError(t, db.Create(&assignment).Error)

	submittedAt := time.Now().Add(-time.Hour)
	submission := models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    student.ID,
		Content:      "my lab report",
		Status:       models.SubmissionStatusSubmitted,
		Version:      1,
		SubmittedAt:  &submittedAt,
	}
	require.NoError(t, db.Create(&submission).Error)

	return submission
}

func seedGradableQuizSubmission(t *testing.T, db *gorm.DB) models.QuizSubmission {
	t.Helper()

	student := models.Student{Name: "Jane", Email: "jane@example.com"}
	require.NoError(t, db.Create(&student).Error)

	quiz := models.Quiz{
		Title: "Pop Quiz",
		Questions: datatypes.NewJSONSlice([]models.QuizQuestion{
			{Index: 0, Prompt: "What is 2+2?", Points: 40},
			{Index: 1, Prompt: "Name a prime.", Points: 60},
		}),
	}
	require.NoError(t, db.Create(&quiz).Error)

	submittedAt := time.Now().Add(-time.Hour)
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

func gradeRequest(t *testing.T, target string, payload map[string]interface{}) *http.Request {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest("PATCH", target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()

	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func submissionGradeURL(id uint) string {
	return "/api/v1/submissions/" + strconv.FormatUint(uint64(id), 10) + "/grade"
}

func quizSubmissionGradeURL(id uint) string {
	return "/api/v1/quiz-submissions/" + strconv.FormatUint(uint64(id), 10) + "/grade"
}

func TestGradeSubmissionGuardedSuccess(t *testing.T) {
	app, db := setupGradingApp(t, "teacher")
	submission := seedGradableSubmission(t, db)

	req := gradeRequest(t, submissionGradeURL(submission.ID), map[string]interface{}{
		"grade":    95,
		"feedback": "Excellent",
		"version":  1,
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                   `json:"success"`
		Data    dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, int64(2), body.Data.Version)
	require.Equal(t, "graded", body.Data.Status)
	require.NotNil(t, body.Data.Grade)
	require.Equal(t, 95.0, *body.Data.Grade)

	var assignment models.Assignment
	require.NoError(t, db.First(&assignment, submission.AssignmentID).Error)
	require.True(t, assignment.GradingStarted)
}

func TestGradeSubmissionStaleVersionConflict(t *testing.T) {
	app, db := setupGradingApp(t, "teacher")
	submission := seedGradableSubmission(t, db)

	first := gradeRequest(t, submissionGradeURL(submission.ID), map[string]interface{}{
		"grade":   90,
		"version": 1,
	})
	resp, err := app.Test(first)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	stale := gradeRequest(t, submissionGradeURL(submission.ID), map[string]interface{}{
		"grade":   60,
		"version": 1,
	})
	resp, err = app.Test(stale)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	decodeResponse(t, resp, &body)
	require.False(t, body.Success)
	require.Equal(t, "concurrent_modification", body.Code)

	var stored models.Submission
	require.NoError(t, db.First(&stored, submission.ID).Error)
	require.Equal(t, 90.0, *stored.Grade)
	require.Equal(t, int64(2), stored.Version)
}

func TestGradeSubmissionUnconditionalMode(t *testing.T) {
	app, db := setupGradingApp(t, "teacher")
	submission := seedGradableSubmission(t, db)

	for _, grade := range []float64{80, 70} {
		req := gradeRequest(t, submissionGradeURL(submission.ID), map[string]interface{}{
			"grade": grade,
		})
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	var stored models.Submission
	require.NoError(t, db.First(&stored, submission.ID).Error)
	require.Equal(t, 70.0, *stored.Grade)
	require.Equal(t, int64(3), stored.Version)
}

func TestGradeSubmissionNotFound(t *testing.T) {
	app, _ := setupGradingApp(t, "teacher")

	req := gradeRequest(t, submissionGradeURL(9999), map[string]interface{}{"grade": 90})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestGradeSubmissionRejectsOutOfRangeScore(t *testing.T) {
	app, db := setupGradingApp(t, "teacher")
	submission := seedGradableSubmission(t, db)

	req := gradeRequest(t, submissionGradeURL(submission.ID), map[string]interface{}{"grade": 150})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	var stored models.Submission
	require.NoError(t, db.First(&stored, submission.ID).Error)
	require.Nil(t, stored.Grade)
	require.Equal(t, int64(1), stored.Version)
}

func TestGradeSubmissionForbiddenForStudents(t *testing.T) {
	app, db := setupGradingApp(t, "student")
	submission := seedGradableSubmission(t, db)

	req := gradeRequest(t, submissionGradeURL(submission.ID), map[string]interface{}{"grade": 90})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestGradeQuizSubmissionOffHundredAdvisory(t *testing.T) {
	app, db := setupGradingApp(t, "teacher")
	submission := seedGradableQuizSubmission(t, db)

	req := gradeRequest(t, quizSubmissionGradeURL(submission.ID), map[string]interface{}{
		"question_grades": []map[string]interface{}{
			{"question_index": 0, "points": 30},
			{"question_index": 1, "points": 45},
		},
		"version": 1,
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                `json:"success"`
		Data    dto.QuizGradeResult `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.NotEmpty(t, body.Data.Warning)
	require.NotNil(t, body.Data.Submission.Grade)
	require.Equal(t, 75.0, *body.Data.Submission.Grade)
	require.Equal(t, int64(2), body.Data.Submission.Version)
}

func TestGradeQuizSubmissionStaleVersionConflict(t *testing.T) {
	app, db := setupGradingApp(t, "teacher")
	submission := seedGradableQuizSubmission(t, db)

	payload := map[string]interface{}{
		"question_grades": []map[string]interface{}{
			{"question_index": 0, "points": 40},
			{"question_index": 1, "points": 60},
		},
		"version": 1,
	}

	resp, err := app.Test(gradeRequest(t, quizSubmissionGradeURL(submission.ID), payload))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(gradeRequest(t, quizSubmissionGradeURL(submission.ID), payload))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, "concurrent_modification", body.Code)
}
