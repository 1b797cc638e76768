package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/lendingloop/lendingloop-backend/api/responses"
	"github.com/lendingloop/lendingloop-backend/api/validators"
	"github.com/lendingloop/lendingloop-backend/internal/loops"
	pkgerrors "github.com/lendingloop/lendingloop-backend/pkg/errors"
	"github.com/lendingloop/lendingloop-backend/pkg/logger"
)

type loopCreateRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=120"`
	Description *string `json:"description,omitempty"`
	IsPublic    bool    `json:"is_public"`
}

// LoopCreate starts a new loop owned by the caller.
func LoopCreate(svc loops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loops service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body loopCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		loop, err := svc.Create(r.Context(), loops.CreateInput{
			Name:        body.Name,
			Description: body.Description,
			IsPublic:    body.IsPublic,
			CreatorID:   userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, loop)
	}
}

// LoopGet returns a single loop visible to the caller.
func LoopGet(svc loops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loops service unavailable"))
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

		loop, err := svc.Get(r.Context(), loopID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, loop)
	}
}

// LoopList returns the loops the caller belongs to.
func LoopList(svc loops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loops service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListMine(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

type loopUpdateRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

// LoopUpdate adjusts mutable loop fields; only the owner may call it.
func LoopUpdate(svc loops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loops service unavailable"))
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

		var body loopUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		loop, err := svc.Update(r.Context(), loops.UpdateInput{
			LoopID:      loopID,
			ActorUserID: userID,
			Name:        body.Name,
			Description: body.Description,
			IsPublic:    body.IsPublic,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, loop)
	}
}

type loopAction func(ctx context.Context, loopID, actorUserID uuid.UUID) error

func loopActionHandler(svc loops.Service, logg *logger.Logger, pick func(loops.Service) loopAction, status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loops service unavailable"))
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

		if err := pick(svc)(r.Context(), loopID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": status})
	}
}

// LoopArchive soft-retires a loop without losing its history.
func LoopArchive(svc loops.Service, logg *logger.Logger) http.HandlerFunc {
	return loopActionHandler(svc, logg, func(svc loops.Service) loopAction { return svc.Archive }, "archived")
}

// LoopUnarchive restores an archived loop.
func LoopUnarchive(svc loops.Service, logg *logger.Logger) http.HandlerFunc {
	return loopActionHandler(svc, logg, func(svc loops.Service) loopAction { return svc.Unarchive }, "unarchived")
}

// LoopDelete removes a loop entirely; only the owner may call it.
func LoopDelete(svc loops.Service, logg *logger.Logger) http.HandlerFunc {
	return loopActionHandler(svc, logg, func(svc loops.Service) loopAction { return svc.Delete }, "deleted")
}

// LoopLeave removes the caller from the loop roster.
func LoopLeave(svc loops.Service, logg *logger.Logger) http.HandlerFunc {
	return loopActionHandler(svc, logg, func(svc loops.Service) loopAction { return svc.Leave }, "left")
}

type loopTransferRequest struct {
	NewOwnerID string `json:"new_owner_id" validate:"required,uuid"`
}

// LoopTransferOwnership hands the loop to another member.
func LoopTransferOwnership(svc loops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loops service unavailable"))
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

		var body loopTransferRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		newOwnerID, err := parseUUIDField(body.NewOwnerID, "new_owner_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.TransferOwnership(r.Context(), loops.TransferInput{
			LoopID:      loopID,
			ActorUserID: userID,
			NewOwnerID:  newOwnerID,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "transferred"})
	}
}

// LoopMembers returns the member roster for a loop the caller belongs to.
func LoopMembers(svc loops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loops service unavailable"))
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

		members, err := svc.Members(r.Context(), loopID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, members)
	}
}

// LoopPotentialInvitees lists users the caller could invite to the loop.
func LoopPotentialInvitees(svc loops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loops service unavailable"))
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

		invitees, err := svc.PotentialInvitees(r.Context(), loopID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invitees)
	}
}

// LoopOwnershipHistory returns past ownership transfers for a loop.
func LoopOwnershipHistory(svc loops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loops service unavailable"))
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

		history, err := svc.OwnershipHistory(r.Context(), loopID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, history)
	}
}
