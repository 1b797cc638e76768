package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lendingloop/lendingloop-backend/pkg/enums"
)

// LoopInvitation is an offer to join a loop, redeemable by token or, when the
// invited email already maps to an account, by direct acceptance.
type LoopInvitation struct {
	ID              uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	LoopID          uuid.UUID              `gorm:"column:loop_id;type:uuid;not null;index"`
	InvitedByUserID uuid.UUID              `gorm:"column:invited_by_user_id;type:uuid;not null"`
	InvitedEmail    string                 `gorm:"column:invited_email;type:text;not null"`
	InvitedUserID   *uuid.UUID             `gorm:"column:invited_user_id;type:uuid"`
	InvitationToken string                 `gorm:"column:invitation_token;type:text;not null;uniqueIndex"`
	Status          enums.InvitationStatus `gorm:"column:status;type:invitation_status;not null"`
	ExpiresAt       time.Time              `gorm:"column:expires_at;not null"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	AcceptedAt      *time.Time             `gorm:"column:accepted_at"`
}

// IsExpired derives expiry from the clock rather than a stored transition so
// stale pending invitations fail closed even before the sweep touches them.
func (i LoopInvitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
