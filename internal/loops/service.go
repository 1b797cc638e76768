package loops

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lendingloop/lendingloop-backend/internal/users"
	"github.com/lendingloop/lendingloop-backend/pkg/authz"
	"github.com/lendingloop/lendingloop-backend/pkg/db/models"
	"github.com/lendingloop/lendingloop-backend/pkg/enums"
	pkgerrors "github.com/lendingloop/lendingloop-backend/pkg/errors"
	"github.com/lendingloop/lendingloop-backend/pkg/outbox"
	"github.com/lendingloop/lendingloop-backend/pkg/outbox/payloads"
)

const maxLoopNameLength = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type userStore interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
}

// Service drives loop membership and lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*LoopDTO, error)
	Get(ctx context.Context, loopID, viewerID uuid.UUID) (*LoopDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]LoopDTO, error)
	Update(ctx context.Context, input UpdateInput) (*LoopDTO, error)
	Archive(ctx context.Context, loopID, actorUserID uuid.UUID) error
	Unarchive(ctx context.Context, loopID, actorUserID uuid.UUID) error
	Delete(ctx context.Context, loopID, actorUserID uuid.UUID) error
	TransferOwnership(ctx context.Context, input TransferInput) error
	Members(ctx context.Context, loopID, viewerID uuid.UUID) ([]users.MemberDTO, error)
	PotentialInvitees(ctx context.Context, loopID, callerID uuid.UUID) ([]users.MemberDTO, error)
	Leave(ctx context.Context, loopID, userID uuid.UUID) error
	OwnershipHistory(ctx context.Context, loopID, viewerID uuid.UUID) ([]TransferDTO, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	users  userStore
}

// NewService builds a loops service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxPub outboxPublisher, userRepo userStore) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("loops repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxPub == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("user store required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outboxPub,
		users:  userRepo,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*LoopDTO, error) {
	if input.CreatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loop name required")
	}
	if len(name) > maxLoopNameLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loop name too long")
	}

	loop := &models.Loop{
		Name:        name,
		Description: input.Description,
		CreatorID:   input.CreatorID,
		MemberIDs:   []uuid.UUID{input.CreatorID},
		IsPublic:    input.IsPublic,
	}
	created, err := s.repo.Create(ctx, loop)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create loop")
	}

	dto := FromModel(created)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, loopID, viewerID uuid.UUID) (*LoopDTO, error) {
	loop, err := s.loadLoop(ctx, s.repo, loopID)
	if err != nil {
		return nil, err
	}
	if !loop.IsPublic && !authz.IsLoopMember(loop, viewerID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loop not found")
	}

	dto := FromModel(loop)
	return &dto, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]LoopDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListByMember(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list loops")
	}

	dtos := make([]LoopDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, FromModel(&rows[i]))
	}
	return dtos, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*LoopDTO, error) {
	loop, err := s.loadLoop(ctx, s.repo, input.LoopID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureLoopOwner(loop, input.ActorUserID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "loop name required")
		}
		if len(name) > maxLoopNameLength {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "loop name too long")
		}
		updates["name"] = name
		loop.Name = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
		loop.Description = input.Description
	}
	if input.IsPublic != nil {
		updates["is_public"] = *input.IsPublic
		loop.IsPublic = *input.IsPublic
	}
	if len(updates) == 0 {
		dto := FromModel(loop)
		return &dto, nil
	}

	if err := s.repo.Update(ctx, loop.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update loop")
	}

	dto := FromModel(loop)
	return &dto, nil
}

func (s *service) Archive(ctx context.Context, loopID, actorUserID uuid.UUID) error {
	loop, err := s.loadLoop(ctx, s.repo, loopID)
	if err != nil {
		return err
	}
	if err := authz.EnsureLoopOwner(loop, actorUserID); err != nil {
		return err
	}
	if loop.IsArchived {
		return nil
	}

	err = s.repo.Update(ctx, loop.ID, map[string]any{
		"is_archived": true,
		"archived_at": time.Now().UTC(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive loop")
	}
	return nil
}

func (s *service) Unarchive(ctx context.Context, loopID, actorUserID uuid.UUID) error {
	loop, err := s.loadLoop(ctx, s.repo, loopID)
	if err != nil {
		return err
	}
	if err := authz.EnsureLoopOwner(loop, actorUserID); err != nil {
		return err
	}
	if !loop.IsArchived {
		return nil
	}

	err = s.repo.Update(ctx, loop.ID, map[string]any{
		"is_archived": false,
		"archived_at": nil,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unarchive loop")
	}
	return nil
}

func (s *service) Delete(ctx context.Context, loopID, actorUserID uuid.UUID) error {
	loop, err := s.loadLoop(ctx, s.repo, loopID)
	if err != nil {
		return err
	}
	if err := authz.EnsureLoopOwner(loop, actorUserID); err != nil {
		return err
	}
	if !loop.IsArchived {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "loop must be archived before deletion")
	}

	if err := s.repo.Delete(ctx, loop.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete loop")
	}
	return nil
}

func (s *service) TransferOwnership(ctx context.Context, input TransferInput) error {
	if input.NewOwnerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "new owner id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loop, err := s.loadLoop(ctx, repo, input.LoopID)
		if err != nil {
			return err
		}
		if err := authz.EnsureLoopOwner(loop, input.ActorUserID); err != nil {
			return err
		}
		if input.NewOwnerID == loop.CreatorID {
			return pkgerrors.New(pkgerrors.CodeValidation, "user already owns this loop")
		}
		if !authz.IsLoopMember(loop, input.NewOwnerID) {
			return pkgerrors.New(pkgerrors.CodeValidation, "new owner must be a loop member")
		}

		if err := repo.SetOwner(ctx, loop.ID, input.NewOwnerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set loop owner")
		}

		now := time.Now().UTC()
		transfer := &models.LoopOwnershipTransfer{
			LoopID:        loop.ID,
			FromUserID:    loop.CreatorID,
			ToUserID:      input.NewOwnerID,
			TransferredAt: now,
		}
		if err := repo.CreateOwnershipTransfer(ctx, transfer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record ownership transfer")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLoopOwnershipMoved,
			AggregateType: enums.AggregateLoop,
			AggregateID:   loop.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID},
			Data: payloads.LoopOwnershipMovedEvent{
				LoopID:        loop.ID,
				PriorOwnerID:  loop.CreatorID,
				NewOwnerID:    input.NewOwnerID,
				TransferredAt: now,
			},
		})
	})
}

func (s *service) Members(ctx context.Context, loopID, viewerID uuid.UUID) ([]users.MemberDTO, error) {
	loop, err := s.loadLoop(ctx, s.repo, loopID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureLoopMember(loop, viewerID); err != nil {
		return nil, err
	}
	return s.membersByIDs(ctx, loop.MemberIDs)
}

// PotentialInvitees returns users the caller could invite: everyone sharing a
// loop with the caller, minus the target loop's members and the caller.
func (s *service) PotentialInvitees(ctx context.Context, loopID, callerID uuid.UUID) ([]users.MemberDTO, error) {
	target, err := s.loadLoop(ctx, s.repo, loopID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureLoopMember(target, callerID); err != nil {
		return nil, err
	}

	callerLoops, err := s.repo.ListByMember(ctx, callerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list caller loops")
	}

	seen := map[uuid.UUID]bool{callerID: true}
	for _, id := range target.MemberIDs {
		seen[id] = true
	}
	var candidates []uuid.UUID
	for _, loop := range callerLoops {
		for _, id := range loop.MemberIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return []users.MemberDTO{}, nil
	}
	return s.membersByIDs(ctx, candidates)
}

func (s *service) Leave(ctx context.Context, loopID, userID uuid.UUID) error {
	loop, err := s.loadLoop(ctx, s.repo, loopID)
	if err != nil {
		return err
	}
	if err := authz.EnsureLoopMember(loop, userID); err != nil {
		return err
	}
	if authz.IsLoopOwner(loop, userID) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "transfer ownership before leaving the loop")
	}

	if err := s.repo.RemoveMember(ctx, loop.ID, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove loop member")
	}
	return nil
}

func (s *service) OwnershipHistory(ctx context.Context, loopID, viewerID uuid.UUID) ([]TransferDTO, error) {
	loop, err := s.loadLoop(ctx, s.repo, loopID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureLoopMember(loop, viewerID); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListOwnershipTransfers(ctx, loop.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ownership transfers")
	}
	dtos := make([]TransferDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, transferFromModel(&rows[i]))
	}
	return dtos, nil
}

func (s *service) membersByIDs(ctx context.Context, ids []uuid.UUID) ([]users.MemberDTO, error) {
	rows, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load members")
	}
	members := make([]users.MemberDTO, 0, len(rows))
	for i := range rows {
		members = append(members, users.MemberFromModel(&rows[i]))
	}
	return members, nil
}

func (s *service) loadLoop(ctx context.Context, repo Repository, loopID uuid.UUID) (*models.Loop, error) {
	if loopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loop id required")
	}
	loop, err := repo.FindByID(ctx, loopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loop")
	}
	return loop, nil
}
