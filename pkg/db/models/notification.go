package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lendingloop/lendingloop-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to users.
// Rows are append-only; the only mutation is the read_at flip, and users may
// delete their own rows.
type Notification struct {
	ID            uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Type          enums.NotificationType `gorm:"type:notification_type;not null"`
	Message       string                 `gorm:"type:text;not null"`
	ItemID        *uuid.UUID             `gorm:"column:item_id;type:uuid"`
	ItemRequestID *uuid.UUID             `gorm:"column:item_request_id;type:uuid"`
	RelatedUserID *uuid.UUID             `gorm:"column:related_user_id;type:uuid"`
	ReadAt        *time.Time             `gorm:"type:timestamptz"`
	CreatedAt     time.Time              `gorm:"type:timestamptz;default:now()"`
}
