package invitations

import (
	"time"

	"github.com/google/uuid"

	"github.com/lendingloop/lendingloop-backend/pkg/db/models"
	"github.com/lendingloop/lendingloop-backend/pkg/enums"
)

// CreateEmailInput invites an address that may not yet have an account.
type CreateEmailInput struct {
	LoopID        uuid.UUID
	InviterUserID uuid.UUID
	Email         string
}

// CreateUserInput invites an existing user directly.
type CreateUserInput struct {
	LoopID        uuid.UUID
	InviterUserID uuid.UUID
	InvitedUserID uuid.UUID
}

// InvitationDTO is the API shape of a loop invitation. The token is only
// populated on creation responses.
type InvitationDTO struct {
	ID              uuid.UUID              `json:"id"`
	LoopID          uuid.UUID              `json:"loop_id"`
	InvitedByUserID uuid.UUID              `json:"invited_by_user_id"`
	InvitedEmail    string                 `json:"invited_email"`
	InvitedUserID   *uuid.UUID             `json:"invited_user_id,omitempty"`
	Status          enums.InvitationStatus `json:"status"`
	ExpiresAt       time.Time              `json:"expires_at"`
	CreatedAt       time.Time              `json:"created_at"`
	AcceptedAt      *time.Time             `json:"accepted_at,omitempty"`
	Token           string                 `json:"token,omitempty"`
}

// FromModel converts a persisted invitation into its API shape, without the
// redemption token.
func FromModel(m *models.LoopInvitation) InvitationDTO {
	return InvitationDTO{
		ID:              m.ID,
		LoopID:          m.LoopID,
		InvitedByUserID: m.InvitedByUserID,
		InvitedEmail:    m.InvitedEmail,
		InvitedUserID:   m.InvitedUserID,
		Status:          m.Status,
		ExpiresAt:       m.ExpiresAt,
		CreatedAt:       m.CreatedAt,
		AcceptedAt:      m.AcceptedAt,
	}
}
