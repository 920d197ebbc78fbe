package dto

import (
	"time"

	"github.com/lumenclass/lms-api/internal/models"
)

// NotificationCreateRequest carries a notification to be persisted and
// fanned out to connected clients.
type NotificationCreateRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Type    string `json:"type" validate:"required,max=64"`
	Message string `json:"message" validate:"required"`
}

// NotificationResponse serializes a notification for API clients.
type NotificationResponse struct {
	ID        uint      `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotificationResponse converts a Notification model into a DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Type:      model.Type,
		Message:   model.Message,
		Read:      model.Read,
		CreatedAt: model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts notification models into DTOs.
func NewNotificationResponseSlice(notifications []models.Notification) []NotificationResponse {
	responses := make([]NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		responses = append(responses, NewNotificationResponse(notification))
	}

	return responses
}
