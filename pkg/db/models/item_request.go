package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lendingloop/lendingloop-backend/pkg/enums"
)

// ItemRequest is a borrow request from one user to an item's owner.
// A partial unique index (ux_item_requests_open) allows at most one
// pending/approved request per (item_id, requester_id) pair.
type ItemRequest struct {
	ID          uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID      uuid.UUID           `gorm:"column:item_id;type:uuid;not null;index"`
	RequesterID uuid.UUID           `gorm:"column:requester_id;type:uuid;not null;index"`
	OwnerID     uuid.UUID           `gorm:"column:owner_id;type:uuid;not null;index"`
	Status      enums.RequestStatus `gorm:"column:status;type:request_status;not null"`

	Message            *string    `gorm:"type:text"`
	ExpectedReturnDate *time.Time `gorm:"column:expected_return_date;type:date"`

	RequestedAt time.Time  `gorm:"column:requested_at;not null"`
	RespondedAt *time.Time `gorm:"column:responded_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
