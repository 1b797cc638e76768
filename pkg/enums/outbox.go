package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateItemRequest    OutboxAggregateType = "item_request"
	AggregateLoopInvitation OutboxAggregateType = "loop_invitation"
	AggregateLoop           OutboxAggregateType = "loop"
	AggregateSharedItem     OutboxAggregateType = "shared_item"
	AggregateUser           OutboxAggregateType = "user"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateItemRequest,
	AggregateLoopInvitation,
	AggregateLoop,
	AggregateSharedItem,
	AggregateUser,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventItemRequestCreated   OutboxEventType = "item_request_created"
	EventItemRequestDecided   OutboxEventType = "item_request_decided"
	EventItemRequestCancelled OutboxEventType = "item_request_cancelled"
	EventItemRequestCompleted OutboxEventType = "item_request_completed"
	EventLoopMemberJoined     OutboxEventType = "loop_member_joined"
	EventLoopOwnershipMoved   OutboxEventType = "loop_ownership_moved"
	EventScoreBorrowCompleted OutboxEventType = "score_borrow_completed"
	EventScoreLendCompleted   OutboxEventType = "score_lend_completed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventItemRequestCreated,
	EventItemRequestDecided,
	EventItemRequestCancelled,
	EventItemRequestCompleted,
	EventLoopMemberJoined,
	EventLoopOwnershipMoved,
	EventScoreBorrowCompleted,
	EventScoreLendCompleted,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
