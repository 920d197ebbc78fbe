package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lumenclass/lms-api/internal/dto"
	"github.com/lumenclass/lms-api/internal/service"
	"github.com/lumenclass/lms-api/internal/utils"
)

// ActivityHandler serves the audit log listing endpoint.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler builds an activity handler instance.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	var req dto.ActivityListRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	activities, err := h.service.List(c.UserContext(), req)
	if err != nil {
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "activity retrieved", activities)
}
