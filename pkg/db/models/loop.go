package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/lendingloop/lendingloop-backend/pkg/db/types"
)

// Loop is a named group of users who share item visibility.
// The creator is always present in MemberIDs; ownership transfers update
// CreatorID but never remove the previous owner from the roster.
type Loop struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string            `gorm:"type:text;not null"`
	Description *string           `gorm:"type:text"`
	CreatorID   uuid.UUID         `gorm:"column:creator_id;type:uuid;not null"`
	MemberIDs   dbtypes.UUIDArray `gorm:"type:uuid[];column:member_ids;not null;default:ARRAY[]::uuid[]"`
	IsPublic    bool              `gorm:"column:is_public;not null;default:false"`
	IsArchived  bool              `gorm:"column:is_archived;not null;default:false"`
	ArchivedAt  *time.Time        `gorm:"column:archived_at"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// LoopOwnershipTransfer records a single change of loop ownership.
type LoopOwnershipTransfer struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	LoopID        uuid.UUID `gorm:"column:loop_id;type:uuid;not null;index"`
	FromUserID    uuid.UUID `gorm:"column:from_user_id;type:uuid;not null"`
	ToUserID      uuid.UUID `gorm:"column:to_user_id;type:uuid;not null"`
	TransferredAt time.Time `gorm:"column:transferred_at;autoCreateTime"`
}
