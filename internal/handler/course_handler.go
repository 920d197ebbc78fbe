package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lumenclass/lms-api/internal/dto"
	"github.com/lumenclass/lms-api/internal/service"
	"github.com/lumenclass/lms-api/internal/utils"
	"github.com/lumenclass/lms-api/pkg/coursecode"
)

// CourseHandler manages course endpoints.
type CourseHandler struct {
	service service.CourseService
	logger  zerolog.Logger
}

// NewCourseHandler builds a course handler instance.
func NewCourseHandler(service service.CourseService, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		service: service,
		logger:  logger.With().Str("component", "course_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *CourseHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Post("/:id/regenerate-code", h.regenerateCode)
}

func (h *CourseHandler) list(c *fiber.Ctx) error {
	courses, err := h.service.List(c.UserContext())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "courses retrieved", courses)
}

func (h *CourseHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	course, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "course retrieved", course)
}

func (h *CourseHandler) create(c *fiber.Ctx) error {
	var payload dto.CourseCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	course, err := h.service.Create(c.UserContext(), payload, activityActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "course created", course)
}

func (h *CourseHandler) regenerateCode(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	course, err := h.service.RegenerateCode(c.UserContext(), id, activityActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "course code regenerated", course)
}

func (h *CourseHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, coursecode.ErrAttemptsExhausted):
		return utils.SendError(c, fiber.StatusInternalServerError, "could not allocate a unique course code")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
