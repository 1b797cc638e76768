package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/lendingloop/lendingloop-backend/api/middleware"
	"github.com/lendingloop/lendingloop-backend/internal/requests"
	"github.com/lendingloop/lendingloop-backend/pkg/enums"
	pkgerrors "github.com/lendingloop/lendingloop-backend/pkg/errors"
)

type testRequestsService struct {
	createFn   func(ctx context.Context, input requests.CreateInput) (*requests.RequestDTO, error)
	approveFn  func(ctx context.Context, input requests.DecisionInput) error
	rejectFn   func(ctx context.Context, input requests.DecisionInput) error
	cancelFn   func(ctx context.Context, input requests.DecisionInput) error
	completeFn func(ctx context.Context, input requests.DecisionInput) error
	listFn     func(ctx context.Context, input requests.ListInput) (*requests.RequestList, error)
}

func (s *testRequestsService) Create(ctx context.Context, input requests.CreateInput) (*requests.RequestDTO, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return &requests.RequestDTO{}, nil
}

func (s *testRequestsService) Approve(ctx context.Context, input requests.DecisionInput) error {
	if s.approveFn != nil {
		return s.approveFn(ctx, input)
	}
	return nil
}

func (s *testRequestsService) Reject(ctx context.Context, input requests.DecisionInput) error {
	if s.rejectFn != nil {
		return s.rejectFn(ctx, input)
	}
	return nil
}

func (s *testRequestsService) Cancel(ctx context.Context, input requests.DecisionInput) error {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, input)
	}
	return nil
}

func (s *testRequestsService) Complete(ctx context.Context, input requests.DecisionInput) error {
	if s.completeFn != nil {
		return s.completeFn(ctx, input)
	}
	return nil
}

func (s *testRequestsService) List(ctx context.Context, input requests.ListInput) (*requests.RequestList, error) {
	if s.listFn != nil {
		return s.listFn(ctx, input)
	}
	return &requests.RequestList{}, nil
}

func TestRequestCreateSuccess(t *testing.T) {
	userID := uuid.New()
	itemID := uuid.New()
	var got requests.CreateInput
	svc := &testRequestsService{
		createFn: func(ctx context.Context, input requests.CreateInput) (*requests.RequestDTO, error) {
			got = input
			return &requests.RequestDTO{ID: uuid.New()}, nil
		},
	}

	body := `{"item_id":"` + itemID.String() + `","message":"could I borrow this?","expected_return_date":"2026-09-15T00:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	RequestCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if got.ItemID != itemID {
		t.Fatalf("unexpected item %s", got.ItemID)
	}
	if got.RequesterID != userID {
		t.Fatalf("unexpected requester %s", got.RequesterID)
	}
	if got.Message == nil || *got.Message != "could I borrow this?" {
		t.Fatal("message not propagated")
	}
	if got.ExpectedReturnDate == nil {
		t.Fatal("expected return date not propagated")
	}
}

func TestRequestCreateRejectsBadReturnDate(t *testing.T) {
	userID := uuid.New()
	body := `{"item_id":"` + uuid.NewString() + `","expected_return_date":"next tuesday"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	RequestCreate(&testRequestsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRequestDecisionHandlers(t *testing.T) {
	userID := uuid.New()
	requestID := uuid.New()

	cases := []struct {
		name    string
		handler func(*testRequestsService) http.HandlerFunc
		wire    func(*testRequestsService, *requests.DecisionInput, *bool)
		status  string
	}{
		{
			name: "approve",
			handler: func(svc *testRequestsService) http.HandlerFunc {
				return RequestApprove(svc, testLogger())
			},
			wire: func(svc *testRequestsService, got *requests.DecisionInput, called *bool) {
				svc.approveFn = func(ctx context.Context, input requests.DecisionInput) error {
					*got, *called = input, true
					return nil
				}
			},
			status: "approved",
		},
		{
			name: "reject",
			handler: func(svc *testRequestsService) http.HandlerFunc {
				return RequestReject(svc, testLogger())
			},
			wire: func(svc *testRequestsService, got *requests.DecisionInput, called *bool) {
				svc.rejectFn = func(ctx context.Context, input requests.DecisionInput) error {
					*got, *called = input, true
					return nil
				}
			},
			status: "rejected",
		},
		{
			name: "cancel",
			handler: func(svc *testRequestsService) http.HandlerFunc {
				return RequestCancel(svc, testLogger())
			},
			wire: func(svc *testRequestsService, got *requests.DecisionInput, called *bool) {
				svc.cancelFn = func(ctx context.Context, input requests.DecisionInput) error {
					*got, *called = input, true
					return nil
				}
			},
			status: "cancelled",
		},
		{
			name: "complete",
			handler: func(svc *testRequestsService) http.HandlerFunc {
				return RequestComplete(svc, testLogger())
			},
			wire: func(svc *testRequestsService, got *requests.DecisionInput, called *bool) {
				svc.completeFn = func(ctx context.Context, input requests.DecisionInput) error {
					*got, *called = input, true
					return nil
				}
			},
			status: "completed",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &testRequestsService{}
			var got requests.DecisionInput
			called := false
			tc.wire(svc, &got, &called)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/"+requestID.String()+"/"+tc.name, nil)
			req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
			req = addRouteParam(req, "requestId", requestID.String())
			resp := httptest.NewRecorder()
			tc.handler(svc)(resp, req)

			if resp.Code != http.StatusOK {
				t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
			}
			if !called {
				t.Fatal("expected service called")
			}
			if got.RequestID != requestID || got.ActorUserID != userID {
				t.Fatalf("unexpected input %+v", got)
			}
			var envelope struct {
				Data map[string]string `json:"data"`
			}
			if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
				t.Fatalf("unmarshal response: %v", err)
			}
			if envelope.Data["status"] != tc.status {
				t.Fatalf("expected status %q got %q", tc.status, envelope.Data["status"])
			}
		})
	}
}

func TestRequestDecisionStateConflict(t *testing.T) {
	userID := uuid.New()
	requestID := uuid.New()
	svc := &testRequestsService{
		approveFn: func(ctx context.Context, input requests.DecisionInput) error {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request is not pending")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/"+requestID.String()+"/approve", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	req = addRouteParam(req, "requestId", requestID.String())
	resp := httptest.NewRecorder()
	RequestApprove(svc, testLogger())(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestRequestListIncomingFilters(t *testing.T) {
	userID := uuid.New()
	var got requests.ListInput
	svc := &testRequestsService{
		listFn: func(ctx context.Context, input requests.ListInput) (*requests.RequestList, error) {
			got = input
			return &requests.RequestList{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests/incoming?limit=25&status=pending", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	RequestListIncoming(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if got.Direction != requests.ListDirectionIncoming {
		t.Fatalf("unexpected direction %v", got.Direction)
	}
	if got.Limit != 25 {
		t.Fatalf("unexpected limit %d", got.Limit)
	}
	if got.Status == nil || *got.Status != enums.RequestStatusPending {
		t.Fatal("expected pending status filter")
	}
}

func TestRequestListRejectsUnknownStatus(t *testing.T) {
	userID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests/outgoing?status=waiting", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	RequestListOutgoing(&testRequestsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
