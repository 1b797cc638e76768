package requests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lendingloop/lendingloop-backend/pkg/db/models"
	"github.com/lendingloop/lendingloop-backend/pkg/enums"
	"github.com/lendingloop/lendingloop-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a requests repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.ItemRequest) (*models.ItemRequest, error) {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ItemRequest, error) {
	var request models.ItemRequest
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) HasOpenRequest(ctx context.Context, itemID, requesterID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ItemRequest{}).
		Where("item_id = ? AND requester_id = ? AND status IN ?", itemID, requesterID,
			[]enums.RequestStatus{enums.RequestStatusPending, enums.RequestStatusApproved}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) UpdateRequest(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.ItemRequest{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// requestListRow carries the joined columns produced by the list queries.
type requestListRow struct {
	ID                 uuid.UUID
	ItemID             uuid.UUID
	ItemName           string
	RequesterID        uuid.UUID
	OwnerID            uuid.UUID
	Status             enums.RequestStatus
	Message            *string
	ExpectedReturnDate *time.Time
	RequestedAt        time.Time
	RespondedAt        *time.Time
	CompletedAt        *time.Time
	CreatedAt          time.Time
}

// ListFilters narrows list queries; both list directions share the shape.
type ListFilters struct {
	Status *enums.RequestStatus
}

func (r *repository) ListIncoming(ctx context.Context, ownerID uuid.UUID, params pagination.Params, filters ListFilters) (*RequestList, error) {
	return r.list(ctx, "item_requests.owner_id = ?", ownerID, params, filters)
}

func (r *repository) ListOutgoing(ctx context.Context, requesterID uuid.UUID, params pagination.Params, filters ListFilters) (*RequestList, error) {
	return r.list(ctx, "item_requests.requester_id = ?", requesterID, params, filters)
}

func (r *repository) list(ctx context.Context, scope string, scopeID uuid.UUID, params pagination.Params, filters ListFilters) (*RequestList, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.ItemRequest{}).
		Select("item_requests.id, item_requests.item_id, shared_items.name AS item_name, "+
			"item_requests.requester_id, item_requests.owner_id, item_requests.status, "+
			"item_requests.message, item_requests.expected_return_date, item_requests.requested_at, "+
			"item_requests.responded_at, item_requests.completed_at, item_requests.created_at").
		Joins("JOIN shared_items ON shared_items.id = item_requests.item_id").
		Where(scope, scopeID)

	if filters.Status != nil {
		query = query.Where("item_requests.status = ?", *filters.Status)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(item_requests.created_at, item_requests.id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []requestListRow
	err = query.
		Order("item_requests.created_at DESC, item_requests.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID})
	}

	summaries := make([]RequestSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, RequestSummary{
			ID:                 row.ID,
			ItemID:             row.ItemID,
			ItemName:           row.ItemName,
			RequesterID:        row.RequesterID,
			OwnerID:            row.OwnerID,
			Status:             row.Status,
			Message:            row.Message,
			ExpectedReturnDate: row.ExpectedReturnDate,
			RequestedAt:        row.RequestedAt,
			RespondedAt:        row.RespondedAt,
			CompletedAt:        row.CompletedAt,
			CreatedAt:          row.CreatedAt,
		})
	}

	return &RequestList{
		Requests:   summaries,
		NextCursor: nextCursor,
	}, nil
}
