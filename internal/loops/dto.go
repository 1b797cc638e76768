package loops

import (
	"time"

	"github.com/google/uuid"

	"github.com/lendingloop/lendingloop-backend/pkg/db/models"
)

// CreateInput carries the fields for a new loop.
type CreateInput struct {
	Name        string
	Description *string
	IsPublic    bool
	CreatorID   uuid.UUID
}

// UpdateInput carries the mutable loop fields; nil means leave unchanged.
type UpdateInput struct {
	LoopID      uuid.UUID
	ActorUserID uuid.UUID
	Name        *string
	Description *string
	IsPublic    *bool
}

// TransferInput identifies an ownership handover.
type TransferInput struct {
	LoopID      uuid.UUID
	ActorUserID uuid.UUID
	NewOwnerID  uuid.UUID
}

// LoopDTO is the API shape of a loop.
type LoopDTO struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description *string     `json:"description,omitempty"`
	CreatorID   uuid.UUID   `json:"creator_id"`
	MemberIDs   []uuid.UUID `json:"member_ids"`
	MemberCount int         `json:"member_count"`
	IsPublic    bool        `json:"is_public"`
	IsArchived  bool        `json:"is_archived"`
	ArchivedAt  *time.Time  `json:"archived_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// TransferDTO is one ownership history entry.
type TransferDTO struct {
	ID            uuid.UUID `json:"id"`
	LoopID        uuid.UUID `json:"loop_id"`
	FromUserID    uuid.UUID `json:"from_user_id"`
	ToUserID      uuid.UUID `json:"to_user_id"`
	TransferredAt time.Time `json:"transferred_at"`
}

// FromModel converts a persisted loop into its API shape.
func FromModel(m *models.Loop) LoopDTO {
	return LoopDTO{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		CreatorID:   m.CreatorID,
		MemberIDs:   m.MemberIDs,
		MemberCount: len(m.MemberIDs),
		IsPublic:    m.IsPublic,
		IsArchived:  m.IsArchived,
		ArchivedAt:  m.ArchivedAt,
		CreatedAt:   m.CreatedAt,
	}
}

func transferFromModel(m *models.LoopOwnershipTransfer) TransferDTO {
	return TransferDTO{
		ID:            m.ID,
		LoopID:        m.LoopID,
		FromUserID:    m.FromUserID,
		ToUserID:      m.ToUserID,
		TransferredAt: m.TransferredAt,
	}
}
