package requests

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lendingloop/lendingloop-backend/internal/notifications"
	"github.com/lendingloop/lendingloop-backend/pkg/db/models"
	"github.com/lendingloop/lendingloop-backend/pkg/outbox"
	"github.com/lendingloop/lendingloop-backend/pkg/pagination"
)

// Repository defines persistence operations for borrow requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.ItemRequest) (*models.ItemRequest, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ItemRequest, error)
	HasOpenRequest(ctx context.Context, itemID, requesterID uuid.UUID) (bool, error)
	UpdateRequest(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListIncoming(ctx context.Context, ownerID uuid.UUID, params pagination.Params, filters ListFilters) (*RequestList, error)
	ListOutgoing(ctx context.Context, requesterID uuid.UUID, params pagination.Params, filters ListFilters) (*RequestList, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, input notifications.CreateInput) error
}

// ItemStore covers the item reads and the availability flips the request
// lifecycle performs. internal/items provides the implementation.
type ItemStore interface {
	FindByID(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (*models.SharedItem, error)
	SetAvailability(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, available bool) error
}

// LoopStore lists the loops a user belongs to, for visibility checks.
type LoopStore interface {
	ListByMember(ctx context.Context, userID uuid.UUID) ([]models.Loop, error)
}
