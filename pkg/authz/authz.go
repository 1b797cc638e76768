package authz

import (
	"github.com/google/uuid"

	"github.com/lendingloop/lendingloop-backend/pkg/db/models"
	pkgerrors "github.com/lendingloop/lendingloop-backend/pkg/errors"
)

// IsLoopMember reports whether the user belongs to the loop roster. The
// creator is always written into member_ids, so a single containment check
// covers both cases.
func IsLoopMember(loop *models.Loop, userID uuid.UUID) bool {
	if loop == nil || userID == uuid.Nil {
		return false
	}
	return loop.MemberIDs.Contains(userID)
}

// IsLoopOwner reports whether the user is the loop's current owner.
func IsLoopOwner(loop *models.Loop, userID uuid.UUID) bool {
	if loop == nil || userID == uuid.Nil {
		return false
	}
	return loop.CreatorID == userID
}

// IsItemOwner reports whether the user owns the shared item.
func IsItemOwner(item *models.SharedItem, userID uuid.UUID) bool {
	if item == nil || userID == uuid.Nil {
		return false
	}
	return item.UserID == userID
}

// IsItemVisibleInLoop reports whether the item is exposed through the given
// loop. Both broad flags follow the owner's live membership, so flipping
// visible_to_all_loops on an existing item takes effect immediately; the
// stored loop ID list only matters for explicitly shared items.
func IsItemVisibleInLoop(item *models.SharedItem, loop *models.Loop) bool {
	if item == nil || loop == nil || loop.IsArchived {
		return false
	}
	if !loop.MemberIDs.Contains(item.UserID) {
		return false
	}
	if item.VisibleToAllLoops || item.VisibleToFutureLoops {
		return true
	}
	return item.VisibleToLoopIDs.Contains(loop.ID)
}

// IsItemVisibleToUser reports whether the viewer can see the item through any
// of the supplied loops. Owners always see their own items.
func IsItemVisibleToUser(item *models.SharedItem, viewerID uuid.UUID, loops []models.Loop) bool {
	if item == nil || viewerID == uuid.Nil {
		return false
	}
	if IsItemOwner(item, viewerID) {
		return true
	}
	for i := range loops {
		loop := &loops[i]
		if !loop.MemberIDs.Contains(viewerID) {
			continue
		}
		if IsItemVisibleInLoop(item, loop) {
			return true
		}
	}
	return false
}

// EnsureLoopMember returns a forbidden error when the user is outside the loop.
func EnsureLoopMember(loop *models.Loop, userID uuid.UUID) error {
	if loop == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "loop not found")
	}
	if !IsLoopMember(loop, userID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "user is not a member of this loop")
	}
	return nil
}

// EnsureLoopOwner returns a forbidden error unless the user owns the loop.
func EnsureLoopOwner(loop *models.Loop, userID uuid.UUID) error {
	if loop == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "loop not found")
	}
	if !IsLoopOwner(loop, userID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the loop owner may perform this action")
	}
	return nil
}

// EnsureItemVisible hides items outside the viewer's loops behind a not-found
// so probing requests cannot distinguish hidden items from missing ones.
func EnsureItemVisible(item *models.SharedItem, viewerID uuid.UUID, loops []models.Loop) error {
	if item == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	if !IsItemVisibleToUser(item, viewerID, loops) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return nil
}

// EnsureCanRequestItem applies the borrow preconditions: the requester must
// see the item, must not own it, and the item must be marked available.
func EnsureCanRequestItem(item *models.SharedItem, requesterID uuid.UUID, loops []models.Loop) error {
	if err := EnsureItemVisible(item, requesterID, loops); err != nil {
		return err
	}
	if IsItemOwner(item, requesterID) {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot request your own item")
	}
	if !item.IsAvailable {
		return pkgerrors.New(pkgerrors.CodeConflict, "item is not available")
	}
	return nil
}
