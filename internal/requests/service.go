package requests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lendingloop/lendingloop-backend/internal/notifications"
	"github.com/lendingloop/lendingloop-backend/pkg/authz"
	dbpkg "github.com/lendingloop/lendingloop-backend/pkg/db"
	"github.com/lendingloop/lendingloop-backend/pkg/db/models"
	"github.com/lendingloop/lendingloop-backend/pkg/enums"
	pkgerrors "github.com/lendingloop/lendingloop-backend/pkg/errors"
	"github.com/lendingloop/lendingloop-backend/pkg/logger"
	"github.com/lendingloop/lendingloop-backend/pkg/outbox"
	"github.com/lendingloop/lendingloop-backend/pkg/outbox/payloads"
	"github.com/lendingloop/lendingloop-backend/pkg/pagination"
)

const maxMessageLength = 500

// openRequestConstraint is the partial unique index backing the
// one-open-request-per-(item, requester) invariant at the storage level.
const openRequestConstraint = "ux_item_requests_open"

// Service drives the borrow request lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*RequestDTO, error)
	Approve(ctx context.Context, input DecisionInput) error
	Reject(ctx context.Context, input DecisionInput) error
	Cancel(ctx context.Context, input DecisionInput) error
	Complete(ctx context.Context, input DecisionInput) error
	List(ctx context.Context, input ListInput) (*RequestList, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	notes  notifier
	items  ItemStore
	loops  LoopStore
	logg   *logger.Logger
}

// NewService builds a borrow request service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxPub outboxPublisher, notes notifier, items ItemStore, loops LoopStore, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxPub == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if notes == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if items == nil {
		return nil, fmt.Errorf("item store required")
	}
	if loops == nil {
		return nil, fmt.Errorf("loop store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outboxPub,
		notes:  notes,
		items:  items,
		loops:  loops,
		logg:   logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*RequestDTO, error) {
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.RequesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Message != nil && len(*input.Message) > maxMessageLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message exceeds 500 characters")
	}
	if input.ExpectedReturnDate != nil {
		today := time.Now().UTC().Truncate(24 * time.Hour)
		if !input.ExpectedReturnDate.UTC().Truncate(24 * time.Hour).After(today) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "expected return date must be in the future")
		}
	}

	memberLoops, err := s.loops.ListByMember(ctx, input.RequesterID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requester loops")
	}

	var created *models.ItemRequest
	var itemName string
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := s.items.FindByID(ctx, tx, input.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
		}
		if err := authz.EnsureCanRequestItem(item, input.RequesterID, memberLoops); err != nil {
			return err
		}

		open, err := repo.HasOpenRequest(ctx, item.ID, input.RequesterID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open requests")
		}
		if open {
			return pkgerrors.New(pkgerrors.CodeConflict, "an open request already exists for this item")
		}

		request := &models.ItemRequest{
			ItemID:             item.ID,
			RequesterID:        input.RequesterID,
			OwnerID:            item.UserID,
			Status:             enums.RequestStatusPending,
			Message:            input.Message,
			ExpectedReturnDate: input.ExpectedReturnDate,
			RequestedAt:        time.Now().UTC(),
		}
		created, err = repo.Create(ctx, request)
		if err != nil {
			if dbpkg.IsUniqueViolation(err, openRequestConstraint) {
				return pkgerrors.New(pkgerrors.CodeConflict, "an open request already exists for this item")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request")
		}
		itemName = item.Name

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventItemRequestCreated,
			AggregateType: enums.AggregateItemRequest,
			AggregateID:   created.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.RequesterID},
			Data: payloads.ItemRequestCreatedEvent{
				RequestID:   created.ID,
				ItemID:      created.ItemID,
				RequesterID: created.RequesterID,
				OwnerID:     created.OwnerID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notifications.CreateInput{
		UserID:        created.OwnerID,
		Type:          enums.NotificationTypeItemRequestCreated,
		Message:       fmt.Sprintf("New borrow request for %q", itemName),
		ItemID:        &created.ItemID,
		ItemRequestID: &created.ID,
		RelatedUserID: &created.RequesterID,
	})

	dto := FromModel(created)
	return &dto, nil
}

func (s *service) Approve(ctx context.Context, input DecisionInput) error {
	var request *models.ItemRequest
	err := s.decide(ctx, input, func(tx *gorm.DB, repo Repository, found *models.ItemRequest) error {
		if found.OwnerID != input.ActorUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the item owner may approve a request")
		}
		if found.Status != enums.RequestStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request is not pending")
		}

		now := time.Now().UTC()
		if err := repo.UpdateRequest(ctx, found.ID, map[string]any{
			"status":       enums.RequestStatusApproved,
			"responded_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request status")
		}
		if err := s.items.SetAvailability(ctx, tx, found.ItemID, false); err != nil {
			return err
		}

		found.Status = enums.RequestStatusApproved
		found.RespondedAt = &now
		request = found
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventItemRequestDecided,
			AggregateType: enums.AggregateItemRequest,
			AggregateID:   found.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID},
			Data: payloads.ItemRequestDecidedEvent{
				RequestID:   found.ID,
				ItemID:      found.ItemID,
				RequesterID: found.RequesterID,
				OwnerID:     found.OwnerID,
				Status:      enums.RequestStatusApproved,
				DecidedAt:   now,
			},
		})
	})
	if err != nil {
		return err
	}

	s.notify(ctx, notifications.CreateInput{
		UserID:        request.RequesterID,
		Type:          enums.NotificationTypeItemRequestApproved,
		Message:       "Your borrow request was approved",
		ItemID:        &request.ItemID,
		ItemRequestID: &request.ID,
		RelatedUserID: &request.OwnerID,
	})
	return nil
}

func (s *service) Reject(ctx context.Context, input DecisionInput) error {
	var request *models.ItemRequest
	err := s.decide(ctx, input, func(tx *gorm.DB, repo Repository, found *models.ItemRequest) error {
		if found.OwnerID != input.ActorUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the item owner may reject a request")
		}
		if found.Status != enums.RequestStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request is not pending")
		}

		now := time.Now().UTC()
		if err := repo.UpdateRequest(ctx, found.ID, map[string]any{
			"status":       enums.RequestStatusRejected,
			"responded_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request status")
		}

		found.Status = enums.RequestStatusRejected
		found.RespondedAt = &now
		request = found
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventItemRequestDecided,
			AggregateType: enums.AggregateItemRequest,
			AggregateID:   found.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID},
			Data: payloads.ItemRequestDecidedEvent{
				RequestID:   found.ID,
				ItemID:      found.ItemID,
				RequesterID: found.RequesterID,
				OwnerID:     found.OwnerID,
				Status:      enums.RequestStatusRejected,
				DecidedAt:   now,
			},
		})
	})
	if err != nil {
		return err
	}

	s.notify(ctx, notifications.CreateInput{
		UserID:        request.RequesterID,
		Type:          enums.NotificationTypeItemRequestRejected,
		Message:       "Your borrow request was declined",
		ItemID:        &request.ItemID,
		ItemRequestID: &request.ID,
		RelatedUserID: &request.OwnerID,
	})
	return nil
}

func (s *service) Cancel(ctx context.Context, input DecisionInput) error {
	var request *models.ItemRequest
	err := s.decide(ctx, input, func(tx *gorm.DB, repo Repository, found *models.ItemRequest) error {
		if input.ActorUserID != found.RequesterID && input.ActorUserID != found.OwnerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the requester or owner may cancel a request")
		}
		if !found.Status.IsOpen() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request is already closed")
		}
		wasApproved := found.Status == enums.RequestStatusApproved

		now := time.Now().UTC()
		if err := repo.UpdateRequest(ctx, found.ID, map[string]any{
			"status":       enums.RequestStatusCancelled,
			"responded_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request status")
		}
		if wasApproved {
			if err := s.items.SetAvailability(ctx, tx, found.ItemID, true); err != nil {
				return err
			}
		}

		found.Status = enums.RequestStatusCancelled
		found.RespondedAt = &now
		request = found
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventItemRequestCancelled,
			AggregateType: enums.AggregateItemRequest,
			AggregateID:   found.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID},
			Data: payloads.ItemRequestCancelledEvent{
				RequestID:   found.ID,
				ItemID:      found.ItemID,
				RequesterID: found.RequesterID,
				OwnerID:     found.OwnerID,
				CancelledAt: now,
			},
		})
	})
	if err != nil {
		return err
	}

	// Notify whichever party did not cancel.
	recipient := request.OwnerID
	related := request.RequesterID
	if input.ActorUserID == request.OwnerID {
		recipient = request.RequesterID
		related = request.OwnerID
	}
	s.notify(ctx, notifications.CreateInput{
		UserID:        recipient,
		Type:          enums.NotificationTypeItemRequestCancelled,
		Message:       "A borrow request was cancelled",
		ItemID:        &request.ItemID,
		ItemRequestID: &request.ID,
		RelatedUserID: &related,
	})
	return nil
}

func (s *service) Complete(ctx context.Context, input DecisionInput) error {
	var request *models.ItemRequest
	err := s.decide(ctx, input, func(tx *gorm.DB, repo Repository, found *models.ItemRequest) error {
		if found.OwnerID != input.ActorUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the item owner may complete a request")
		}
		if found.Status != enums.RequestStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request is not approved")
		}

		now := time.Now().UTC()
		if err := repo.UpdateRequest(ctx, found.ID, map[string]any{
			"status":       enums.RequestStatusCompleted,
			"completed_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request status")
		}
		if err := s.items.SetAvailability(ctx, tx, found.ItemID, true); err != nil {
			return err
		}

		found.Status = enums.RequestStatusCompleted
		found.CompletedAt = &now
		request = found

		actor := &outbox.ActorRef{UserID: input.ActorUserID}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventItemRequestCompleted,
			AggregateType: enums.AggregateItemRequest,
			AggregateID:   found.ID,
			Version:       1,
			Actor:         actor,
			Data: payloads.ItemRequestCompletedEvent{
				RequestID:   found.ID,
				ItemID:      found.ItemID,
				RequesterID: found.RequesterID,
				OwnerID:     found.OwnerID,
				CompletedAt: now,
			},
		}); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventScoreBorrowCompleted,
			AggregateType: enums.AggregateItemRequest,
			AggregateID:   found.ID,
			Version:       1,
			Actor:         actor,
			Data: payloads.ScoreEvent{
				RequestID: found.ID,
				UserID:    found.RequesterID,
				ItemID:    found.ItemID,
				Kind:      "borrow_completed",
			},
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventScoreLendCompleted,
			AggregateType: enums.AggregateItemRequest,
			AggregateID:   found.ID,
			Version:       1,
			Actor:         actor,
			Data: payloads.ScoreEvent{
				RequestID: found.ID,
				UserID:    found.OwnerID,
				ItemID:    found.ItemID,
				Kind:      "lend_completed",
			},
		})
	})
	if err != nil {
		return err
	}

	s.notify(ctx, notifications.CreateInput{
		UserID:        request.RequesterID,
		Type:          enums.NotificationTypeItemRequestCompleted,
		Message:       "Your borrow was marked as returned",
		ItemID:        &request.ItemID,
		ItemRequestID: &request.ID,
		RelatedUserID: &request.OwnerID,
	})
	return nil
}

func (s *service) List(ctx context.Context, input ListInput) (*RequestList, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}

	params := pagination.Params{Limit: input.Limit, Cursor: input.Cursor}
	filters := ListFilters{Status: input.Status}

	var list *RequestList
	var err error
	switch input.Direction {
	case ListDirectionIncoming:
		list, err = s.repo.ListIncoming(ctx, input.UserID, params, filters)
	case ListDirectionOutgoing, "":
		list, err = s.repo.ListOutgoing(ctx, input.UserID, params, filters)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "direction must be incoming or outgoing")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requests")
	}
	return list, nil
}

// decide wraps the shared transition plumbing: load the request inside a
// transaction, hand it to the transition callback, and translate lookup
// failures.
func (s *service) decide(ctx context.Context, input DecisionInput, fn func(tx *gorm.DB, repo Repository, found *models.ItemRequest) error) error {
	if input.RequestID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByID(ctx, input.RequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}
		return fn(tx, repo, found)
	})
}

func (s *service) notify(ctx context.Context, input notifications.CreateInput) {
	if err := s.notes.Notify(ctx, nil, input); err != nil {
		logCtx := s.logg.WithUserID(ctx, input.UserID.String())
		s.logg.Error(logCtx, "notification write failed", err)
	}
}
