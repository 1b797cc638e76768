package items

import (
	"time"

	"github.com/google/uuid"

	"github.com/lendingloop/lendingloop-backend/pkg/db/models"
)

// CreateInput carries the fields for a newly shared item.
type CreateInput struct {
	OwnerID              uuid.UUID
	Name                 string
	Description          *string
	ImageURL             *string
	VisibleToAllLoops    bool
	VisibleToFutureLoops bool
	VisibleToLoopIDs     []uuid.UUID
}

// UpdateInput carries the mutable item fields; nil means leave unchanged.
type UpdateInput struct {
	ItemID               uuid.UUID
	ActorUserID          uuid.UUID
	Name                 *string
	Description          *string
	ImageURL             *string
	IsAvailable          *bool
	VisibleToAllLoops    *bool
	VisibleToFutureLoops *bool
	VisibleToLoopIDs     []uuid.UUID
}

// ItemDTO is the API shape of a shared item.
type ItemDTO struct {
	ID                   uuid.UUID   `json:"id"`
	OwnerID              uuid.UUID   `json:"owner_id"`
	Name                 string      `json:"name"`
	Description          *string     `json:"description,omitempty"`
	ImageURL             *string     `json:"image_url,omitempty"`
	IsAvailable          bool        `json:"is_available"`
	VisibleToAllLoops    bool        `json:"visible_to_all_loops"`
	VisibleToFutureLoops bool        `json:"visible_to_future_loops"`
	VisibleToLoopIDs     []uuid.UUID `json:"visible_to_loop_ids"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// FromModel converts a persisted item into its API shape.
func FromModel(m *models.SharedItem) ItemDTO {
	return ItemDTO{
		ID:                   m.ID,
		OwnerID:              m.UserID,
		Name:                 m.Name,
		Description:          m.Description,
		ImageURL:             m.ImageURL,
		IsAvailable:          m.IsAvailable,
		VisibleToAllLoops:    m.VisibleToAllLoops,
		VisibleToFutureLoops: m.VisibleToFutureLoops,
		VisibleToLoopIDs:     m.VisibleToLoopIDs,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}
