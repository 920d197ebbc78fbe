package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lumenclass/lms-api/internal/dto"
	"github.com/lumenclass/lms-api/internal/service"
	"github.com/lumenclass/lms-api/internal/utils"
)

// GradingHandler exposes the grade endpoints for assignment and quiz
// submissions. A stale-version write maps to 409 with a machine-readable
// code so clients can re-read and retry deliberately.
type GradingHandler struct {
	grading     service.GradingService
	quizGrading service.QuizGradingService
	logger      zerolog.Logger
}

// NewGradingHandler builds a grading handler instance.
func NewGradingHandler(grading service.GradingService, quizGrading service.QuizGradingService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		grading:     grading,
		quizGrading: quizGrading,
		logger:      logger.With().Str("component", "grading_handler").Logger(),
	}
}

// RegisterSubmissionRoutes binds the assignment grading route.
func (h *GradingHandler) RegisterSubmissionRoutes(router fiber.Router) {
	router.Patch("/:id/grade", h.gradeSubmission)
}

// RegisterQuizSubmissionRoutes binds the quiz grading route.
func (h *GradingHandler) RegisterQuizSubmissionRoutes(router fiber.Router) {
	router.Patch("/:id/grade", h.gradeQuizSubmission)
}

func (h *GradingHandler) gradeSubmission(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.grading.GradeSubmission(c.UserContext(), id, payload, activityActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission graded", submission)
}

func (h *GradingHandler) gradeQuizSubmission(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeQuizSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.quizGrading.GradeQuizSubmission(c.UserContext(), id, payload, activityActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quiz submission graded", result)
}

func (h *GradingHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrQuizSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "quiz submission not found")
	case errors.Is(err, service.ErrGradeConflict):
		return utils.SendErrorWithCode(c, fiber.StatusConflict, "concurrent_modification",
			"the submission was modified concurrently; re-read it and grade again")
	case errors.Is(err, service.ErrSubmissionNotGradable):
		return utils.SendError(c, fiber.StatusBadRequest, "submission has not been handed in")
	case errors.Is(err, service.ErrScoreExceedsMax):
		return utils.SendError(c, fiber.StatusBadRequest, "score exceeds assignment max")
	case errors.Is(err, service.ErrQuestionCountMismatch):
		return utils.SendError(c, fiber.StatusBadRequest, "question grades must cover each quiz question exactly once")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
