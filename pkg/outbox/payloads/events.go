package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/lendingloop/lendingloop-backend/pkg/enums"
)

// ItemRequestCreatedEvent signals a new borrow request awaiting the owner.
type ItemRequestCreatedEvent struct {
	RequestID   uuid.UUID  `json:"request_id"`
	ItemID      uuid.UUID  `json:"item_id"`
	RequesterID uuid.UUID  `json:"requester_id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	LoopID      *uuid.UUID `json:"loop_id,omitempty"`
}

// ItemRequestDecidedEvent is emitted when an owner approves or rejects a request.
type ItemRequestDecidedEvent struct {
	RequestID   uuid.UUID           `json:"request_id"`
	ItemID      uuid.UUID           `json:"item_id"`
	RequesterID uuid.UUID           `json:"requester_id"`
	OwnerID     uuid.UUID           `json:"owner_id"`
	Status      enums.RequestStatus `json:"status"`
	DecidedAt   time.Time           `json:"decided_at"`
}

// ItemRequestCancelledEvent is emitted whenever a requester withdraws a request.
type ItemRequestCancelledEvent struct {
	RequestID   uuid.UUID `json:"request_id"`
	ItemID      uuid.UUID `json:"item_id"`
	RequesterID uuid.UUID `json:"requester_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// ItemRequestCompletedEvent reports a finished loan.
type ItemRequestCompletedEvent struct {
	RequestID   uuid.UUID `json:"request_id"`
	ItemID      uuid.UUID `json:"item_id"`
	RequesterID uuid.UUID `json:"requester_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// LoopMemberJoinedEvent is emitted when an invitation acceptance adds a member.
type LoopMemberJoinedEvent struct {
	LoopID       uuid.UUID  `json:"loop_id"`
	UserID       uuid.UUID  `json:"user_id"`
	InvitationID *uuid.UUID `json:"invitation_id,omitempty"`
	JoinedAt     time.Time  `json:"joined_at"`
}

// LoopOwnershipMovedEvent reports a loop creator handing the loop to a member.
type LoopOwnershipMovedEvent struct {
	LoopID        uuid.UUID `json:"loop_id"`
	PriorOwnerID  uuid.UUID `json:"prior_owner_id"`
	NewOwnerID    uuid.UUID `json:"new_owner_id"`
	TransferredAt time.Time `json:"transferred_at"`
}

// ScoreEvent feeds the lending-score pipeline when a loan completes.
type ScoreEvent struct {
	RequestID uuid.UUID `json:"request_id"`
	UserID    uuid.UUID `json:"user_id"`
	ItemID    uuid.UUID `json:"item_id"`
	Kind      string    `json:"kind"`
}
