package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/lendingloop/lendingloop-backend/pkg/db/types"
)

// SharedItem is an item a user offers for borrowing. Visibility is either an
// explicit loop set, all of the owner's loops, or all loops including ones
// the owner joins later.
type SharedItem struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Name        string    `gorm:"type:text;not null"`
	Description *string   `gorm:"type:text"`
	ImageURL    *string   `gorm:"column:image_url;type:text"`
	IsAvailable bool      `gorm:"column:is_available;not null;default:true"`

	VisibleToAllLoops    bool              `gorm:"column:visible_to_all_loops;not null;default:false"`
	VisibleToFutureLoops bool              `gorm:"column:visible_to_future_loops;not null;default:false"`
	VisibleToLoopIDs     dbtypes.UUIDArray `gorm:"type:uuid[];column:visible_to_loop_ids;not null;default:ARRAY[]::uuid[]"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
