package requests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lendingloop/lendingloop-backend/pkg/db/models"
	"github.com/lendingloop/lendingloop-backend/pkg/enums"
	"github.com/lendingloop/lendingloop-backend/pkg/pagination"
)

func setupRequestsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	sharedItems := `
CREATE TABLE IF NOT EXISTS shared_items (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  image_url TEXT,
  is_available INTEGER NOT NULL DEFAULT 1,
  visible_to_all_loops INTEGER NOT NULL DEFAULT 0,
  visible_to_future_loops INTEGER NOT NULL DEFAULT 0,
  visible_to_loop_ids TEXT NOT NULL DEFAULT '{}',
  created_at DATETIME,
  updated_at DATETIME
);`
	itemRequests := `
CREATE TABLE IF NOT EXISTS item_requests (
  id TEXT PRIMARY KEY,
  item_id TEXT NOT NULL,
  requester_id TEXT NOT NULL,
  owner_id TEXT NOT NULL,
  status TEXT NOT NULL,
  message TEXT,
  expected_return_date DATETIME,
  requested_at DATETIME NOT NULL,
  responded_at DATETIME,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(sharedItems).Error)
	require.NoError(t, db.Exec(itemRequests).Error)
	return db
}

func insertItem(t *testing.T, db *gorm.DB, id, ownerID uuid.UUID, name string) {
	t.Helper()
	require.NoError(t, db.Exec(
		`INSERT INTO shared_items (id, user_id, name, is_available, visible_to_loop_ids, created_at, updated_at)
		 VALUES (?, ?, ?, 1, '{}', ?, ?)`,
		id, ownerID, name, time.Now(), time.Now(),
	).Error)
}

func createRequest(t *testing.T, repo Repository, itemID, requesterID, ownerID uuid.UUID, status enums.RequestStatus, createdAt time.Time) *models.ItemRequest {
	t.Helper()
	request := &models.ItemRequest{
		ID:          uuid.New(),
		ItemID:      itemID,
		RequesterID: requesterID,
		OwnerID:     ownerID,
		Status:      status,
		RequestedAt: createdAt,
		CreatedAt:   createdAt,
	}
	created, err := repo.Create(context.Background(), request)
	require.NoError(t, err)
	return created
}

func TestRepositoryCreateAndFind(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)

	itemID := uuid.New()
	owner := uuid.New()
	requester := uuid.New()
	insertItem(t, db, itemID, owner, "Tile saw")

	msg := "For a bathroom remodel"
	request := &models.ItemRequest{
		ID:          uuid.New(),
		ItemID:      itemID,
		RequesterID: requester,
		OwnerID:     owner,
		Status:      enums.RequestStatusPending,
		Message:     &msg,
		RequestedAt: time.Now().UTC(),
	}
	created, err := repo.Create(context.Background(), request)
	require.NoError(t, err)

	found, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusPending, found.Status)
	assert.Equal(t, requester, found.RequesterID)
	require.NotNil(t, found.Message)
	assert.Equal(t, msg, *found.Message)

	_, err = repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryHasOpenRequest(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)

	itemID := uuid.New()
	owner := uuid.New()
	requester := uuid.New()
	insertItem(t, db, itemID, owner, "Pressure washer")

	open, err := repo.HasOpenRequest(context.Background(), itemID, requester)
	require.NoError(t, err)
	assert.False(t, open)

	createRequest(t, repo, itemID, requester, owner, enums.RequestStatusRejected, time.Now().UTC())
	open, err = repo.HasOpenRequest(context.Background(), itemID, requester)
	require.NoError(t, err)
	assert.False(t, open, "terminal requests do not hold the open slot")

	createRequest(t, repo, itemID, requester, owner, enums.RequestStatusApproved, time.Now().UTC())
	open, err = repo.HasOpenRequest(context.Background(), itemID, requester)
	require.NoError(t, err)
	assert.True(t, open)
}

func TestRepositoryUpdateRequest(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)

	itemID := uuid.New()
	owner := uuid.New()
	insertItem(t, db, itemID, owner, "Telescope")
	created := createRequest(t, repo, itemID, uuid.New(), owner, enums.RequestStatusPending, time.Now().UTC())

	now := time.Now().UTC()
	err := repo.UpdateRequest(context.Background(), created.ID, map[string]any{
		"status":       enums.RequestStatusApproved,
		"responded_at": now,
	})
	require.NoError(t, err)

	found, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusApproved, found.Status)
	require.NotNil(t, found.RespondedAt)
	assert.WithinDuration(t, now, *found.RespondedAt, time.Second)
}

func TestRepositoryListIncomingPagination(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)

	owner := uuid.New()
	itemID := uuid.New()
	insertItem(t, db, itemID, owner, "Chainsaw")

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		createRequest(t, repo, itemID, uuid.New(), owner, enums.RequestStatusPending, base.Add(time.Duration(i)*time.Minute))
	}

	first, err := repo.ListIncoming(context.Background(), owner, pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, first.Requests, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, "Chainsaw", first.Requests[0].ItemName)
	assert.True(t, first.Requests[0].CreatedAt.After(first.Requests[1].CreatedAt), "newest first")

	second, err := repo.ListIncoming(context.Background(), owner, pagination.Params{Limit: 2, Cursor: first.NextCursor}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, second.Requests, 1)
	assert.Empty(t, second.NextCursor)

	status := enums.RequestStatusApproved
	filtered, err := repo.ListIncoming(context.Background(), owner, pagination.Params{}, ListFilters{Status: &status})
	require.NoError(t, err)
	assert.Empty(t, filtered.Requests)

	outgoing, err := repo.ListOutgoing(context.Background(), uuid.New(), pagination.Params{}, ListFilters{})
	require.NoError(t, err)
	assert.Empty(t, outgoing.Requests)
}
