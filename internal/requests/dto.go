package requests

import (
	"time"

	"github.com/google/uuid"

	"github.com/lendingloop/lendingloop-backend/pkg/db/models"
	"github.com/lendingloop/lendingloop-backend/pkg/enums"
)

// CreateInput captures the data a requester submits for a new borrow request.
type CreateInput struct {
	ItemID             uuid.UUID
	RequesterID        uuid.UUID
	Message            *string
	ExpectedReturnDate *time.Time
}

// DecisionInput identifies a request transition and the user attempting it.
type DecisionInput struct {
	RequestID   uuid.UUID
	ActorUserID uuid.UUID
}

// ListDirection selects which side of the request the caller sits on.
type ListDirection string

const (
	// ListDirectionIncoming lists requests against the caller's items.
	ListDirectionIncoming ListDirection = "incoming"
	// ListDirectionOutgoing lists requests the caller has made.
	ListDirectionOutgoing ListDirection = "outgoing"
)

// ListInput configures a paginated request listing.
type ListInput struct {
	UserID    uuid.UUID
	Direction ListDirection
	Status    *enums.RequestStatus
	Limit     int
	Cursor    string
}

// RequestDTO is the API shape of a borrow request.
type RequestDTO struct {
	ID                 uuid.UUID           `json:"id"`
	ItemID             uuid.UUID           `json:"item_id"`
	RequesterID        uuid.UUID           `json:"requester_id"`
	OwnerID            uuid.UUID           `json:"owner_id"`
	Status             enums.RequestStatus `json:"status"`
	Message            *string             `json:"message,omitempty"`
	ExpectedReturnDate *time.Time          `json:"expected_return_date,omitempty"`
	RequestedAt        time.Time           `json:"requested_at"`
	RespondedAt        *time.Time          `json:"responded_at,omitempty"`
	CompletedAt        *time.Time          `json:"completed_at,omitempty"`
}

// RequestSummary is the list row, including the item name for display.
type RequestSummary struct {
	ID                 uuid.UUID           `json:"id"`
	ItemID             uuid.UUID           `json:"item_id"`
	ItemName           string              `json:"item_name"`
	RequesterID        uuid.UUID           `json:"requester_id"`
	OwnerID            uuid.UUID           `json:"owner_id"`
	Status             enums.RequestStatus `json:"status"`
	Message            *string             `json:"message,omitempty"`
	ExpectedReturnDate *time.Time          `json:"expected_return_date,omitempty"`
	RequestedAt        time.Time           `json:"requested_at"`
	RespondedAt        *time.Time          `json:"responded_at,omitempty"`
	CompletedAt        *time.Time          `json:"completed_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
}

// RequestList wraps paginated request summaries plus the next cursor.
type RequestList struct {
	Requests   []RequestSummary `json:"requests"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// FromModel converts a persisted request into its API shape.
func FromModel(m *models.ItemRequest) RequestDTO {
	return RequestDTO{
		ID:                 m.ID,
		ItemID:             m.ItemID,
		RequesterID:        m.RequesterID,
		OwnerID:            m.OwnerID,
		Status:             m.Status,
		Message:            m.Message,
		ExpectedReturnDate: m.ExpectedReturnDate,
		RequestedAt:        m.RequestedAt,
		RespondedAt:        m.RespondedAt,
		CompletedAt:        m.CompletedAt,
	}
}
