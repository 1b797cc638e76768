package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/lendingloop/lendingloop-backend/api/responses"
	"github.com/lendingloop/lendingloop-backend/api/validators"
	"github.com/lendingloop/lendingloop-backend/internal/requests"
	"github.com/lendingloop/lendingloop-backend/pkg/enums"
	pkgerrors "github.com/lendingloop/lendingloop-backend/pkg/errors"
	"github.com/lendingloop/lendingloop-backend/pkg/logger"
)

type requestCreateRequest struct {
	ItemID             string  `json:"item_id" validate:"required,uuid"`
	Message            *string `json:"message,omitempty" validate:"omitempty,max=1000"`
	ExpectedReturnDate *string `json:"expected_return_date,omitempty"`
}

// RequestCreate opens a borrow request against a visible item.
func RequestCreate(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body requestCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := parseUUIDField(body.ItemID, "item_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var returnDate *time.Time
		if body.ExpectedReturnDate != nil && strings.TrimSpace(*body.ExpectedReturnDate) != "" {
			parsed, err := time.Parse(time.RFC3339, *body.ExpectedReturnDate)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid expected_return_date"))
				return
			}
			returnDate = &parsed
		}

		request, err := svc.Create(r.Context(), requests.CreateInput{
			ItemID:             itemID,
			RequesterID:        userID,
			Message:            body.Message,
			ExpectedReturnDate: returnDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

type decisionFn func(ctx context.Context, input requests.DecisionInput) error

func requestDecisionHandler(svc requests.Service, logg *logger.Logger, pick func(requests.Service) decisionFn, status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := requests.DecisionInput{RequestID: requestID, ActorUserID: userID}
		if err := pick(svc)(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": status})
	}
}

// RequestApprove marks a pending request approved by the item owner.
func RequestApprove(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return requestDecisionHandler(svc, logg, func(svc requests.Service) decisionFn { return svc.Approve }, "approved")
}

// RequestReject marks a pending request rejected by the item owner.
func RequestReject(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return requestDecisionHandler(svc, logg, func(svc requests.Service) decisionFn { return svc.Reject }, "rejected")
}

// RequestCancel withdraws the caller's own request.
func RequestCancel(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return requestDecisionHandler(svc, logg, func(svc requests.Service) decisionFn { return svc.Cancel }, "cancelled")
}

// RequestComplete closes out an approved loan.
func RequestComplete(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return requestDecisionHandler(svc, logg, func(svc requests.Service) decisionFn { return svc.Complete }, "completed")
}

// RequestListIncoming lists requests made against the caller's items.
func RequestListIncoming(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return requestListHandler(svc, logg, requests.ListDirectionIncoming)
}

// RequestListOutgoing lists requests the caller has made.
func RequestListOutgoing(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return requestListHandler(svc, logg, requests.ListDirectionOutgoing)
}

func requestListHandler(svc requests.Service, logg *logger.Logger, direction requests.ListDirection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := requests.ListInput{UserID: userID, Direction: direction}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Limit = limit

		if cursor := strings.TrimSpace(r.URL.Query().Get("cursor")); cursor != "" {
			input.Cursor = cursor
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.RequestStatus(raw)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			input.Status = &status
		}

		list, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}
