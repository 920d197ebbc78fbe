package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lumenclass/lms-api/internal/service"
	"github.com/lumenclass/lms-api/internal/utils"
)

// StudentDashboardHandler serves the aggregated dashboard endpoint.
type StudentDashboardHandler struct {
	service service.StudentDashboardService
	logger  zerolog.Logger
}

// NewStudentDashboardHandler builds a dashboard handler instance.
func NewStudentDashboardHandler(service service.StudentDashboardService, logger zerolog.Logger) *StudentDashboardHandler {
	return &StudentDashboardHandler{
		service: service,
		logger:  logger.With().Str("component", "student_dashboard_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *StudentDashboardHandler) Register(router fiber.Router) {
	router.Get("/:id/dashboard", h.dashboard)
}

func (h *StudentDashboardHandler) dashboard(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	dashboard, err := h.service.GetDashboard(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "student not found")
		}
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "dashboard retrieved", dashboard)
}
