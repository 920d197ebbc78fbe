package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lumenclass/lms-api/internal/dto"
	"github.com/lumenclass/lms-api/internal/service"
	"github.com/lumenclass/lms-api/internal/utils"
)

// QuizHandler manages quiz authoring endpoints.
type QuizHandler struct {
	service service.QuizService
	logger  zerolog.Logger
}

// NewQuizHandler builds a quiz handler instance.
func NewQuizHandler(service service.QuizService, logger zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		service: service,
		logger:  logger.With().Str("component", "quiz_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *QuizHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", h.create)
}

func (h *QuizHandler) list(c *fiber.Ctx) error {
	courseID, err := parseQueryUint(c, "course_id")
	if err != nil || courseID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "course_id is required")
	}

	quizzes, err := h.service.ListByCourse(c.UserContext(), *courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quizzes retrieved", quizzes)
}

func (h *QuizHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	quiz, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quiz retrieved", quiz)
}

func (h *QuizHandler) create(c *fiber.Ctx) error {
	var payload dto.QuizCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	quiz, err := h.service.Create(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "quiz created", quiz)
}

func (h *QuizHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrQuizNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "quiz not found")
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
