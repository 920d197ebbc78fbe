package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lumenclass/lms-api/internal/dto"
	"github.com/lumenclass/lms-api/internal/service"
	"github.com/lumenclass/lms-api/internal/utils"
)

// QuizSubmissionHandler manages quiz submission intake and read endpoints.
type QuizSubmissionHandler struct {
	service service.QuizSubmissionService
	logger  zerolog.Logger
}

// NewQuizSubmissionHandler builds a quiz submission handler instance.
func NewQuizSubmissionHandler(service service.QuizSubmissionService, logger zerolog.Logger) *QuizSubmissionHandler {
	return &QuizSubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "quiz_submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *QuizSubmissionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", h.create)
}

func (h *QuizSubmissionHandler) list(c *fiber.Ctx) error {
	quizID, err := parseQueryUint(c, "quiz_id")
	if err != nil || quizID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "quiz_id is required")
	}

	submissions, err := h.service.ListByQuiz(c.UserContext(), *quizID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quiz submissions retrieved", submissions)
}

func (h *QuizSubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quiz submission retrieved", submission)
}

func (h *QuizSubmissionHandler) create(c *fiber.Ctx) error {
	var payload dto.QuizSubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.Create(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "quiz submission created", submission)
}

func (h *QuizSubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrQuizNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "quiz not found")
	case errors.Is(err, service.ErrQuizSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "quiz submission not found")
	case errors.Is(err, service.ErrQuizClosed):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "quiz no longer accepts submissions")
	case errors.Is(err, service.ErrInvalidAnswers):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
