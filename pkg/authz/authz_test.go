package authz

import (
	"testing"

	"github.com/google/uuid"

	"github.com/lendingloop/lendingloop-backend/pkg/db/models"
	dbtypes "github.com/lendingloop/lendingloop-backend/pkg/db/types"
	"github.com/lendingloop/lendingloop-backend/pkg/errors"
)

func buildLoop(creator uuid.UUID, members ...uuid.UUID) *models.Loop {
	ids := append(dbtypes.UUIDArray{creator}, members...)
	return &models.Loop{
		ID:        uuid.New(),
		Name:      "Tool Shed",
		CreatorID: creator,
		MemberIDs: ids,
	}
}

func TestIsLoopMember(t *testing.T) {
	creator := uuid.New()
	member := uuid.New()
	outsider := uuid.New()
	loop := buildLoop(creator, member)

	if !IsLoopMember(loop, creator) {
		t.Fatal("creator should be a member")
	}
	if !IsLoopMember(loop, member) {
		t.Fatal("roster member should be a member")
	}
	if IsLoopMember(loop, outsider) {
		t.Fatal("outsider should not be a member")
	}
	if IsLoopMember(nil, member) {
		t.Fatal("nil loop should never match")
	}
	if IsLoopMember(loop, uuid.Nil) {
		t.Fatal("zero user should never match")
	}
}

func TestItemVisibility(t *testing.T) {
	owner := uuid.New()
	viewer := uuid.New()
	stranger := uuid.New()
	shared := buildLoop(owner, viewer)
	other := buildLoop(owner)

	explicit := &models.SharedItem{
		ID:               uuid.New(),
		UserID:           owner,
		Name:             "Ladder",
		IsAvailable:      true,
		VisibleToLoopIDs: dbtypes.UUIDArray{shared.ID},
	}

	t.Run("owner always sees own item", func(t *testing.T) {
		if !IsItemVisibleToUser(explicit, owner, nil) {
			t.Fatal("owner should see item without loops")
		}
	})

	t.Run("member of listed loop sees item", func(t *testing.T) {
		if !IsItemVisibleToUser(explicit, viewer, []models.Loop{*shared}) {
			t.Fatal("viewer should see item via shared loop")
		}
	})

	t.Run("unlisted loop hides item", func(t *testing.T) {
		if IsItemVisibleToUser(explicit, viewer, []models.Loop{*other}) {
			t.Fatal("item should not leak through unlisted loop")
		}
	})

	t.Run("non-member never sees item", func(t *testing.T) {
		if IsItemVisibleToUser(explicit, stranger, []models.Loop{*shared}) {
			t.Fatal("stranger is not in the loop roster")
		}
	})

	t.Run("all-loops items need no stored loop list", func(t *testing.T) {
		broad := &models.SharedItem{
			ID:                uuid.New(),
			UserID:            owner,
			VisibleToAllLoops: true,
		}
		if !IsItemVisibleToUser(broad, viewer, []models.Loop{*shared}) {
			t.Fatal("all-loops item should be visible through any shared loop")
		}
		if IsItemVisibleToUser(broad, stranger, []models.Loop{*shared}) {
			t.Fatal("all-loops item must not leak outside the roster")
		}
	})

	t.Run("future-loop items follow live membership", func(t *testing.T) {
		future := &models.SharedItem{
			ID:                   uuid.New(),
			UserID:               owner,
			VisibleToFutureLoops: true,
		}
		late := buildLoop(owner, viewer)
		if !IsItemVisibleToUser(future, viewer, []models.Loop{*late}) {
			t.Fatal("future-loop item should appear in loops joined later")
		}
	})

	t.Run("archived loop hides items", func(t *testing.T) {
		archived := buildLoop(owner, viewer)
		archived.IsArchived = true
		item := &models.SharedItem{
			ID:               uuid.New(),
			UserID:           owner,
			VisibleToLoopIDs: dbtypes.UUIDArray{archived.ID},
		}
		if IsItemVisibleToUser(item, viewer, []models.Loop{*archived}) {
			t.Fatal("archived loop should not expose items")
		}
	})

	t.Run("owner left the loop", func(t *testing.T) {
		gone := buildLoop(uuid.New(), viewer)
		item := &models.SharedItem{
			ID:               uuid.New(),
			UserID:           owner,
			VisibleToLoopIDs: dbtypes.UUIDArray{gone.ID},
		}
		if IsItemVisibleToUser(item, viewer, []models.Loop{*gone}) {
			t.Fatal("items should disappear when the owner leaves the loop")
		}
	})
}

func TestEnsureHelpers(t *testing.T) {
	owner := uuid.New()
	viewer := uuid.New()
	loop := buildLoop(owner, viewer)

	t.Run("ensure member", func(t *testing.T) {
		if err := EnsureLoopMember(loop, viewer); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		err := EnsureLoopMember(loop, uuid.New())
		if err == nil || errors.As(err).Code() != errors.CodeForbidden {
			t.Fatalf("expected forbidden, got %v", err)
		}
		err = EnsureLoopMember(nil, viewer)
		if err == nil || errors.As(err).Code() != errors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("ensure owner", func(t *testing.T) {
		if err := EnsureLoopOwner(loop, owner); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		err := EnsureLoopOwner(loop, viewer)
		if err == nil || errors.As(err).Code() != errors.CodeForbidden {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("hidden item reads as missing", func(t *testing.T) {
		item := &models.SharedItem{ID: uuid.New(), UserID: owner}
		err := EnsureItemVisible(item, viewer, nil)
		if err == nil || errors.As(err).Code() != errors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("can request preconditions", func(t *testing.T) {
		item := &models.SharedItem{
			ID:               uuid.New(),
			UserID:           owner,
			IsAvailable:      true,
			VisibleToLoopIDs: dbtypes.UUIDArray{loop.ID},
		}
		if err := EnsureCanRequestItem(item, viewer, []models.Loop{*loop}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		err := EnsureCanRequestItem(item, owner, []models.Loop{*loop})
		if err == nil || errors.As(err).Code() != errors.CodeValidation {
			t.Fatalf("expected validation for own item, got %v", err)
		}

		item.IsAvailable = false
		err = EnsureCanRequestItem(item, viewer, []models.Loop{*loop})
		if err == nil || errors.As(err).Code() != errors.CodeConflict {
			t.Fatalf("expected conflict for unavailable item, got %v", err)
		}
	})
}
