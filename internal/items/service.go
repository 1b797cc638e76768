package items

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lendingloop/lendingloop-backend/pkg/authz"
	"github.com/lendingloop/lendingloop-backend/pkg/db/models"
	dbtypes "github.com/lendingloop/lendingloop-backend/pkg/db/types"
	pkgerrors "github.com/lendingloop/lendingloop-backend/pkg/errors"
)

const maxItemNameLength = 120

type loopStore interface {
	ListByMember(ctx context.Context, userID uuid.UUID) ([]models.Loop, error)
}

// Service drives shared item CRUD and visibility resolution.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*ItemDTO, error)
	Get(ctx context.Context, itemID, viewerID uuid.UUID) (*ItemDTO, error)
	Update(ctx context.Context, input UpdateInput) (*ItemDTO, error)
	Delete(ctx context.Context, itemID, actorUserID uuid.UUID) error
	ListMine(ctx context.Context, ownerID uuid.UUID) ([]ItemDTO, error)
	ListVisible(ctx context.Context, viewerID uuid.UUID) ([]ItemDTO, error)
}

type service struct {
	repo  Repository
	loops loopStore
}

// NewService builds an items service with the required dependencies.
func NewService(repo Repository, loops loopStore) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("items repository required")
	}
	if loops == nil {
		return nil, fmt.Errorf("loop store required")
	}
	return &service{repo: repo, loops: loops}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*ItemDTO, error) {
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
	}
	if len(name) > maxItemNameLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name too long")
	}
	if input.VisibleToFutureLoops && len(input.VisibleToLoopIDs) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "future-loop visibility cannot be combined with an explicit loop list")
	}

	ownerLoops, err := s.loops.ListByMember(ctx, input.OwnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list owner loops")
	}

	visibleTo, err := resolveVisibleLoops(input, ownerLoops)
	if err != nil {
		return nil, err
	}

	item := &models.SharedItem{
		UserID:               input.OwnerID,
		Name:                 name,
		Description:          input.Description,
		ImageURL:             input.ImageURL,
		IsAvailable:          true,
		VisibleToAllLoops:    input.VisibleToAllLoops,
		VisibleToFutureLoops: input.VisibleToFutureLoops,
		VisibleToLoopIDs:     visibleTo,
	}
	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
	}

	dto := FromModel(created)
	return &dto, nil
}

// resolveVisibleLoops turns the creation flags into a stored loop id set.
// Sharing to "all loops" snapshots the owner's current memberships; a
// future-loops item needs no snapshot since visibility follows live
// membership.
func resolveVisibleLoops(input CreateInput, ownerLoops []models.Loop) (dbtypes.UUIDArray, error) {
	if input.VisibleToFutureLoops {
		return dbtypes.UUIDArray{}, nil
	}
	if input.VisibleToAllLoops {
		ids := make(dbtypes.UUIDArray, 0, len(ownerLoops))
		for _, loop := range ownerLoops {
			ids = append(ids, loop.ID)
		}
		return ids, nil
	}

	membership := make(map[uuid.UUID]bool, len(ownerLoops))
	for _, loop := range ownerLoops {
		membership[loop.ID] = true
	}
	ids := make(dbtypes.UUIDArray, 0, len(input.VisibleToLoopIDs))
	for _, id := range input.VisibleToLoopIDs {
		if !membership[id] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "items can only be shared to loops you belong to")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *service) Get(ctx context.Context, itemID, viewerID uuid.UUID) (*ItemDTO, error) {
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	viewerLoops, err := s.loops.ListByMember(ctx, viewerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list viewer loops")
	}
	if err := authz.EnsureItemVisible(item, viewerID, viewerLoops); err != nil {
		return nil, err
	}

	dto := FromModel(item)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*ItemDTO, error) {
	item, err := s.loadItem(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}
	if !authz.IsItemOwner(item, input.ActorUserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the item owner may update it")
	}
	if input.VisibleToFutureLoops != nil && *input.VisibleToFutureLoops && len(input.VisibleToLoopIDs) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "future-loop visibility cannot be combined with an explicit loop list")
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
		}
		if len(name) > maxItemNameLength {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name too long")
		}
		updates["name"] = name
		item.Name = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
		item.Description = input.Description
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
		item.ImageURL = input.ImageURL
	}
	if input.IsAvailable != nil {
		updates["is_available"] = *input.IsAvailable
		item.IsAvailable = *input.IsAvailable
	}
	if input.VisibleToAllLoops != nil {
		updates["visible_to_all_loops"] = *input.VisibleToAllLoops
		item.VisibleToAllLoops = *input.VisibleToAllLoops
	}
	if input.VisibleToFutureLoops != nil {
		updates["visible_to_future_loops"] = *input.VisibleToFutureLoops
		item.VisibleToFutureLoops = *input.VisibleToFutureLoops
		if *input.VisibleToFutureLoops {
			// Mirrors create: a future-loops item stores no loop snapshot.
			updates["visible_to_loop_ids"] = dbtypes.UUIDArray{}
			item.VisibleToLoopIDs = dbtypes.UUIDArray{}
		}
	}
	if input.VisibleToLoopIDs != nil {
		ownerLoops, err := s.loops.ListByMember(ctx, input.ActorUserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list owner loops")
		}
		membership := make(map[uuid.UUID]bool, len(ownerLoops))
		for _, loop := range ownerLoops {
			membership[loop.ID] = true
		}
		ids := make(dbtypes.UUIDArray, 0, len(input.VisibleToLoopIDs))
		for _, id := range input.VisibleToLoopIDs {
			if !membership[id] {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "items can only be shared to loops you belong to")
			}
			ids = append(ids, id)
		}
		updates["visible_to_loop_ids"] = ids
		item.VisibleToLoopIDs = ids
	}
	if len(updates) == 0 {
		dto := FromModel(item)
		return &dto, nil
	}

	if err := s.repo.Update(ctx, item.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item")
	}

	dto := FromModel(item)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, itemID, actorUserID uuid.UUID) error {
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return err
	}
	if !authz.IsItemOwner(item, actorUserID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the item owner may delete it")
	}

	if err := s.repo.Delete(ctx, item.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete item")
	}
	return nil
}

func (s *service) ListMine(ctx context.Context, ownerID uuid.UUID) ([]ItemDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list items")
	}
	return toDTOs(rows), nil
}

// ListVisible returns every item the viewer can see through loop membership,
// excluding the viewer's own items.
func (s *service) ListVisible(ctx context.Context, viewerID uuid.UUID) ([]ItemDTO, error) {
	if viewerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	viewerLoops, err := s.loops.ListByMember(ctx, viewerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list viewer loops")
	}

	ownerSet := map[uuid.UUID]bool{}
	var owners []uuid.UUID
	for _, loop := range viewerLoops {
		if loop.IsArchived {
			continue
		}
		for _, memberID := range loop.MemberIDs {
			if memberID == viewerID || ownerSet[memberID] {
				continue
			}
			ownerSet[memberID] = true
			owners = append(owners, memberID)
		}
	}
	if len(owners) == 0 {
		return []ItemDTO{}, nil
	}

	candidates, err := s.repo.ListByOwners(ctx, owners)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list candidate items")
	}

	visible := make([]models.SharedItem, 0, len(candidates))
	for i := range candidates {
		if authz.IsItemVisibleToUser(&candidates[i], viewerID, viewerLoops) {
			visible = append(visible, candidates[i])
		}
	}
	return toDTOs(visible), nil
}

func toDTOs(rows []models.SharedItem) []ItemDTO {
	dtos := make([]ItemDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, FromModel(&rows[i]))
	}
	return dtos
}

func (s *service) loadItem(ctx context.Context, itemID uuid.UUID) (*models.SharedItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	return item, nil
}
