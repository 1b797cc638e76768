package requests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lendingloop/lendingloop-backend/internal/notifications"
	"github.com/lendingloop/lendingloop-backend/pkg/db/models"
	dbtypes "github.com/lendingloop/lendingloop-backend/pkg/db/types"
	"github.com/lendingloop/lendingloop-backend/pkg/enums"
	pkgerrors "github.com/lendingloop/lendingloop-backend/pkg/errors"
	"github.com/lendingloop/lendingloop-backend/pkg/logger"
	"github.com/lendingloop/lendingloop-backend/pkg/outbox"
	"github.com/lendingloop/lendingloop-backend/pkg/pagination"
)

type fakeRepo struct {
	requests map[uuid.UUID]*models.ItemRequest
	open     map[string]bool
	updates  []map[string]any
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		requests: make(map[uuid.UUID]*models.ItemRequest),
		open:     make(map[string]bool),
	}
}

func openKey(itemID, requesterID uuid.UUID) string {
	return itemID.String() + "|" + requesterID.String()
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, request *models.ItemRequest) (*models.ItemRequest, error) {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	request.CreatedAt = time.Now()
	f.requests[request.ID] = request
	f.open[openKey(request.ItemID, request.RequesterID)] = true
	return request, nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ItemRequest, error) {
	request, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *request
	return &clone, nil
}

func (f *fakeRepo) HasOpenRequest(ctx context.Context, itemID, requesterID uuid.UUID) (bool, error) {
	return f.open[openKey(itemID, requesterID)], nil
}

func (f *fakeRepo) UpdateRequest(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	f.updates = append(f.updates, updates)
	request, ok := f.requests[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if status, ok := updates["status"].(enums.RequestStatus); ok {
		request.Status = status
		if !status.IsOpen() {
			delete(f.open, openKey(request.ItemID, request.RequesterID))
		}
	}
	if respondedAt, ok := updates["responded_at"].(time.Time); ok {
		request.RespondedAt = &respondedAt
	}
	if completedAt, ok := updates["completed_at"].(time.Time); ok {
		request.CompletedAt = &completedAt
	}
	return nil
}

func (f *fakeRepo) ListIncoming(ctx context.Context, ownerID uuid.UUID, params pagination.Params, filters ListFilters) (*RequestList, error) {
	list := &RequestList{}
	for _, request := range f.requests {
		if request.OwnerID == ownerID {
			list.Requests = append(list.Requests, RequestSummary{ID: request.ID, Status: request.Status})
		}
	}
	return list, nil
}

func (f *fakeRepo) ListOutgoing(ctx context.Context, requesterID uuid.UUID, params pagination.Params, filters ListFilters) (*RequestList, error) {
	list := &RequestList{}
	for _, request := range f.requests {
		if request.RequesterID == requesterID {
			list.Requests = append(list.Requests, RequestSummary{ID: request.ID, Status: request.Status})
		}
	}
	return list, nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeNotifier struct {
	created []notifications.CreateInput
}

func (f *fakeNotifier) Notify(ctx context.Context, tx *gorm.DB, input notifications.CreateInput) error {
	f.created = append(f.created, input)
	return nil
}

type fakeItemStore struct {
	items        map[uuid.UUID]*models.SharedItem
	availability map[uuid.UUID]bool
}

func newFakeItemStore(items ...*models.SharedItem) *fakeItemStore {
	store := &fakeItemStore{
		items:        make(map[uuid.UUID]*models.SharedItem),
		availability: make(map[uuid.UUID]bool),
	}
	for _, item := range items {
		store.items[item.ID] = item
		store.availability[item.ID] = item.IsAvailable
	}
	return store
}

func (f *fakeItemStore) FindByID(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (*models.SharedItem, error) {
	item, ok := f.items[itemID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *item
	clone.IsAvailable = f.availability[itemID]
	return &clone, nil
}

func (f *fakeItemStore) SetAvailability(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, available bool) error {
	f.availability[itemID] = available
	return nil
}

type fakeLoopStore struct {
	loops []models.Loop
}

func (f *fakeLoopStore) ListByMember(ctx context.Context, userID uuid.UUID) ([]models.Loop, error) {
	var result []models.Loop
	for _, loop := range f.loops {
		if loop.MemberIDs.Contains(userID) {
			result = append(result, loop)
		}
	}
	return result, nil
}

type fixture struct {
	svc    Service
	repo   *fakeRepo
	outbox *fakeOutbox
	notes  *fakeNotifier
	items  *fakeItemStore
	loops  *fakeLoopStore

	owner     uuid.UUID
	requester uuid.UUID
	item      *models.SharedItem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	owner := uuid.New()
	requester := uuid.New()
	loopID := uuid.New()

	loop := models.Loop{
		ID:        loopID,
		Name:      "Neighbors",
		CreatorID: owner,
		MemberIDs: dbtypes.UUIDArray{owner, requester},
	}
	item := &models.SharedItem{
		ID:               uuid.New(),
		UserID:           owner,
		Name:             "Extension ladder",
		IsAvailable:      true,
		VisibleToLoopIDs: dbtypes.UUIDArray{loopID},
	}

	repo := newFakeRepo()
	outboxPub := &fakeOutbox{}
	notes := &fakeNotifier{}
	itemStore := newFakeItemStore(item)
	loopStore := &fakeLoopStore{loops: []models.Loop{loop}}

	svc, err := NewService(repo, fakeTx{}, outboxPub, notes, itemStore, loopStore,
		logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return &fixture{
		svc:       svc,
		repo:      repo,
		outbox:    outboxPub,
		notes:     notes,
		items:     itemStore,
		loops:     loopStore,
		owner:     owner,
		requester: requester,
		item:      item,
	}
}

func (f *fixture) createPending(t *testing.T) *RequestDTO {
	t.Helper()
	dto, err := f.svc.Create(context.Background(), CreateInput{
		ItemID:      f.item.ID,
		RequesterID: f.requester,
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return dto
}

func errCode(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	return pkgerrors.As(err).Code()
}

func TestCreateRequest(t *testing.T) {
	f := newFixture(t)

	msg := "Could I borrow this for the weekend?"
	returnDate := time.Now().AddDate(0, 0, 7)
	dto, err := f.svc.Create(context.Background(), CreateInput{
		ItemID:             f.item.ID,
		RequesterID:        f.requester,
		Message:            &msg,
		ExpectedReturnDate: &returnDate,
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if dto.Status != enums.RequestStatusPending {
		t.Fatalf("expected pending, got %s", dto.Status)
	}
	if dto.OwnerID != f.owner {
		t.Fatalf("expected owner %s got %s", f.owner, dto.OwnerID)
	}
	if dto.RequestedAt.IsZero() {
		t.Fatal("expected requested_at to be set")
	}

	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventItemRequestCreated {
		t.Fatalf("expected a created event, got %+v", f.outbox.events)
	}
	if len(f.notes.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(f.notes.created))
	}
	note := f.notes.created[0]
	if note.UserID != f.owner {
		t.Fatalf("expected notification for owner, got %s", note.UserID)
	}
	if note.Type != enums.NotificationTypeItemRequestCreated {
		t.Fatalf("unexpected notification type %s", note.Type)
	}
}

func TestCreateRequestOwnItem(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), CreateInput{
		ItemID:      f.item.ID,
		RequesterID: f.owner,
	})
	if code := errCode(t, err); code != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for own item, got %s", code)
	}
	if len(f.repo.requests) != 0 {
		t.Fatal("no request should be persisted")
	}
}

func TestCreateRequestDuplicateOpen(t *testing.T) {
	f := newFixture(t)
	f.createPending(t)

	_, err := f.svc.Create(context.Background(), CreateInput{
		ItemID:      f.item.ID,
		RequesterID: f.requester,
	})
	if code := errCode(t, err); code != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %s", code)
	}
	if len(f.repo.requests) != 1 {
		t.Fatalf("expected a single request, got %d", len(f.repo.requests))
	}
}

func TestCreateRequestPastReturnDate(t *testing.T) {
	f := newFixture(t)

	yesterday := time.Now().AddDate(0, 0, -1)
	_, err := f.svc.Create(context.Background(), CreateInput{
		ItemID:             f.item.ID,
		RequesterID:        f.requester,
		ExpectedReturnDate: &yesterday,
	})
	if code := errCode(t, err); code != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %s", code)
	}
	if len(f.repo.requests) != 0 {
		t.Fatal("no request should be persisted")
	}
}

func TestCreateRequestMessageTooLong(t *testing.T) {
	f := newFixture(t)

	long := make([]byte, maxMessageLength+1)
	for i := range long {
		long[i] = 'a'
	}
	msg := string(long)
	_, err := f.svc.Create(context.Background(), CreateInput{
		ItemID:      f.item.ID,
		RequesterID: f.requester,
		Message:     &msg,
	})
	if code := errCode(t, err); code != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %s", code)
	}
}

func TestCreateRequestHiddenItem(t *testing.T) {
	f := newFixture(t)
	stranger := uuid.New()

	_, err := f.svc.Create(context.Background(), CreateInput{
		ItemID:      f.item.ID,
		RequesterID: stranger,
	})
	if code := errCode(t, err); code != pkgerrors.CodeNotFound {
		t.Fatalf("hidden items should read as not found, got %s", code)
	}
}

func TestApproveRequest(t *testing.T) {
	f := newFixture(t)
	dto := f.createPending(t)
	f.outbox.events = nil
	f.notes.created = nil

	err := f.svc.Approve(context.Background(), DecisionInput{RequestID: dto.ID, ActorUserID: f.owner})
	if err != nil {
		t.Fatalf("unexpected approve error: %v", err)
	}

	stored := f.repo.requests[dto.ID]
	if stored.Status != enums.RequestStatusApproved {
		t.Fatalf("expected approved, got %s", stored.Status)
	}
	if stored.RespondedAt == nil {
		t.Fatal("expected responded_at to be set")
	}
	if f.items.availability[f.item.ID] {
		t.Fatal("item should be unavailable after approval")
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventItemRequestDecided {
		t.Fatalf("expected a decided event, got %+v", f.outbox.events)
	}
	if len(f.notes.created) != 1 || f.notes.created[0].UserID != f.requester {
		t.Fatalf("expected requester notification, got %+v", f.notes.created)
	}
	if f.notes.created[0].Type != enums.NotificationTypeItemRequestApproved {
		t.Fatalf("unexpected notification type %s", f.notes.created[0].Type)
	}
}

func TestApproveRequestWrongActor(t *testing.T) {
	f := newFixture(t)
	dto := f.createPending(t)

	err := f.svc.Approve(context.Background(), DecisionInput{RequestID: dto.ID, ActorUserID: f.requester})
	if code := errCode(t, err); code != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %s", code)
	}
	if f.repo.requests[dto.ID].Status != enums.RequestStatusPending {
		t.Fatal("status must be unchanged after a forbidden approve")
	}
}

func TestApproveRequestUnknownID(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Approve(context.Background(), DecisionInput{RequestID: uuid.New(), ActorUserID: f.owner})
	if code := errCode(t, err); code != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %s", code)
	}
}

func TestRejectRequestTwice(t *testing.T) {
	f := newFixture(t)
	dto := f.createPending(t)

	if err := f.svc.Reject(context.Background(), DecisionInput{RequestID: dto.ID, ActorUserID: f.owner}); err != nil {
		t.Fatalf("first reject should succeed: %v", err)
	}
	err := f.svc.Reject(context.Background(), DecisionInput{RequestID: dto.ID, ActorUserID: f.owner})
	if code := errCode(t, err); code != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on second reject, got %s", code)
	}
	if f.repo.requests[dto.ID].Status != enums.RequestStatusRejected {
		t.Fatal("status must stay rejected")
	}
}

func TestCancelApprovedRestoresAvailability(t *testing.T) {
	f := newFixture(t)
	dto := f.createPending(t)
	if err := f.svc.Approve(context.Background(), DecisionInput{RequestID: dto.ID, ActorUserID: f.owner}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	f.notes.created = nil

	err := f.svc.Cancel(context.Background(), DecisionInput{RequestID: dto.ID, ActorUserID: f.requester})
	if err != nil {
		t.Fatalf("unexpected cancel error: %v", err)
	}
	if f.repo.requests[dto.ID].Status != enums.RequestStatusCancelled {
		t.Fatalf("expected cancelled, got %s", f.repo.requests[dto.ID].Status)
	}
	if !f.items.availability[f.item.ID] {
		t.Fatal("item should be available again after cancelling an approved request")
	}
	if len(f.notes.created) != 1 || f.notes.created[0].UserID != f.owner {
		t.Fatalf("expected owner notification when requester cancels, got %+v", f.notes.created)
	}
}

func TestCancelByStranger(t *testing.T) {
	f := newFixture(t)
	dto := f.createPending(t)

	err := f.svc.Cancel(context.Background(), DecisionInput{RequestID: dto.ID, ActorUserID: uuid.New()})
	if code := errCode(t, err); code != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %s", code)
	}
}

func TestCompleteRequest(t *testing.T) {
	f := newFixture(t)
	dto := f.createPending(t)
	if err := f.svc.Approve(context.Background(), DecisionInput{RequestID: dto.ID, ActorUserID: f.owner}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	f.outbox.events = nil
	f.notes.created = nil

	err := f.svc.Complete(context.Background(), DecisionInput{RequestID: dto.ID, ActorUserID: f.owner})
	if err != nil {
		t.Fatalf("unexpected complete error: %v", err)
	}

	stored := f.repo.requests[dto.ID]
	if stored.Status != enums.RequestStatusCompleted {
		t.Fatalf("expected completed, got %s", stored.Status)
	}
	if stored.CompletedAt == nil {
		t.Fatal("expected completed_at to be set")
	}
	if !f.items.availability[f.item.ID] {
		t.Fatal("item should be available again after completion")
	}

	if len(f.outbox.events) != 3 {
		t.Fatalf("expected completed + two score events, got %d", len(f.outbox.events))
	}
	types := map[enums.OutboxEventType]bool{}
	for _, event := range f.outbox.events {
		types[event.EventType] = true
	}
	for _, want := range []enums.OutboxEventType{
		enums.EventItemRequestCompleted,
		enums.EventScoreBorrowCompleted,
		enums.EventScoreLendCompleted,
	} {
		if !types[want] {
			t.Fatalf("missing event %s", want)
		}
	}
	if len(f.notes.created) != 1 || f.notes.created[0].Type != enums.NotificationTypeItemRequestCompleted {
		t.Fatalf("expected completed notification, got %+v", f.notes.created)
	}
}

func TestCompleteFromPending(t *testing.T) {
	f := newFixture(t)
	dto := f.createPending(t)

	err := f.svc.Complete(context.Background(), DecisionInput{RequestID: dto.ID, ActorUserID: f.owner})
	if code := errCode(t, err); code != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %s", code)
	}
}

func TestListDirections(t *testing.T) {
	f := newFixture(t)
	dto := f.createPending(t)

	incoming, err := f.svc.List(context.Background(), ListInput{UserID: f.owner, Direction: ListDirectionIncoming})
	if err != nil {
		t.Fatalf("list incoming: %v", err)
	}
	if len(incoming.Requests) != 1 || incoming.Requests[0].ID != dto.ID {
		t.Fatalf("expected the request in the owner's incoming list, got %+v", incoming.Requests)
	}

	outgoing, err := f.svc.List(context.Background(), ListInput{UserID: f.requester, Direction: ListDirectionOutgoing})
	if err != nil {
		t.Fatalf("list outgoing: %v", err)
	}
	if len(outgoing.Requests) != 1 {
		t.Fatalf("expected the request in the requester's outgoing list, got %+v", outgoing.Requests)
	}

	_, err = f.svc.List(context.Background(), ListInput{UserID: f.owner, Direction: "sideways"})
	if code := errCode(t, err); code != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for bad direction, got %s", code)
	}
}
