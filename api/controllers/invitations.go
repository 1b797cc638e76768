package controllers

import (
	"net/http"
	"strings"

	"github.com/lendingloop/lendingloop-backend/api/responses"
	"github.com/lendingloop/lendingloop-backend/api/validators"
	"github.com/lendingloop/lendingloop-backend/internal/invitations"
	pkgerrors "github.com/lendingloop/lendingloop-backend/pkg/errors"
	"github.com/lendingloop/lendingloop-backend/pkg/logger"
)

// invitationCreateRequest carries one of email or user_id; exactly one must
// be present.
type invitationCreateRequest struct {
	Email  string `json:"email,omitempty" validate:"omitempty,email"`
	UserID string `json:"user_id,omitempty" validate:"omitempty,uuid"`
}

// InvitationCreate invites a person to a loop, by email or by existing user.
func InvitationCreate(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invitations service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		loopID, err := pathUUID(r, "loopId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body invitationCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		email := strings.TrimSpace(body.Email)
		hasEmail := email != ""
		hasUser := strings.TrimSpace(body.UserID) != ""
		if hasEmail == hasUser {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "provide exactly one of email or user_id"))
			return
		}

		var invitation *invitations.InvitationDTO
		if hasEmail {
			invitation, err = svc.CreateEmailInvitation(r.Context(), invitations.CreateEmailInput{
				LoopID:        loopID,
				InviterUserID: userID,
				Email:         email,
			})
		} else {
			invitedID, parseErr := parseUUIDField(body.UserID, "user_id")
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, parseErr)
				return
			}
			invitation, err = svc.CreateUserInvitation(r.Context(), invitations.CreateUserInput{
				LoopID:        loopID,
				InviterUserID: userID,
				InvitedUserID: invitedID,
			})
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, invitation)
	}
}

type invitationAcceptTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// InvitationAcceptByToken redeems an email invitation token for the caller.
func InvitationAcceptByToken(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invitations service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body invitationAcceptTokenRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invitation, err := svc.AcceptByToken(r.Context(), body.Token, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invitation)
	}
}

// InvitationAccept accepts a direct invitation addressed to the caller.
func InvitationAccept(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invitations service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invitationID, err := pathUUID(r, "invitationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invitation, err := svc.AcceptByUser(r.Context(), invitationID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invitation)
	}
}

// InvitationDecline declines an invitation addressed to the caller.
func InvitationDecline(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invitations service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invitationID, err := pathUUID(r, "invitationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Decline(r.Context(), invitationID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "declined"})
	}
}

// InvitationListPending lists open invitations addressed to the caller.
func InvitationListPending(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invitations service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListPending(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}
