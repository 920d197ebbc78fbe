package dto

import (
	"time"

	"github.com/lumenclass/lms-api/internal/models"
)

// ActivityListRequest defines filters for listing activity entries.
type ActivityListRequest struct {
	Page       int    `query:"page"`
	PageSize   int    `query:"page_size"`
	ActorID    uint   `query:"actor_id"`
	Action     string `query:"action"`
	EntityType string `query:"entity_type"`
}

// ActivityResponse serializes an audit entry.
type ActivityResponse struct {
	ID         uint                   `json:"id"`
	ActorID    uint                   `json:"actor_id"`
	ActorRole  string                 `json:"actor_role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   *uint                  `json:"entity_id"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// ActivityListResponse wraps a paginated activity response.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewActivityResponse converts an ActivityLog model into a DTO.
func NewActivityResponse(model models.ActivityLog) ActivityResponse {
	metadata := map[string]interface{}{}
	for key, value := range model.Metadata {
		metadata[key] = value
	}

	return ActivityResponse{
		ID:         model.ID,
		ActorID:    model.ActorID,
		ActorRole:  model.ActorRole,
		Action:     model.Action,
		EntityType: model.EntityType,
		EntityID:   model.EntityID,
		Metadata:   metadata,
		CreatedAt:  model.CreatedAt,
	}
}
