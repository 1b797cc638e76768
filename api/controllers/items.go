package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/lendingloop/lendingloop-backend/api/responses"
	"github.com/lendingloop/lendingloop-backend/api/validators"
	"github.com/lendingloop/lendingloop-backend/internal/items"
	pkgerrors "github.com/lendingloop/lendingloop-backend/pkg/errors"
	"github.com/lendingloop/lendingloop-backend/pkg/logger"
)

type itemCreateRequest struct {
	Name                 string   `json:"name" validate:"required,min=1,max=200"`
	Description          *string  `json:"description,omitempty"`
	ImageURL             *string  `json:"image_url,omitempty"`
	VisibleToAllLoops    bool     `json:"visible_to_all_loops"`
	VisibleToFutureLoops bool     `json:"visible_to_future_loops"`
	VisibleToLoopIDs     []string `json:"visible_to_loop_ids,omitempty" validate:"omitempty,dive,uuid"`
}

// ItemCreate shares a new item owned by the caller.
func ItemCreate(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body itemCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		loopIDs, err := parseUUIDList(body.VisibleToLoopIDs, "visible_to_loop_ids")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Create(r.Context(), items.CreateInput{
			OwnerID:              userID,
			Name:                 body.Name,
			Description:          body.Description,
			ImageURL:             body.ImageURL,
			VisibleToAllLoops:    body.VisibleToAllLoops,
			VisibleToFutureLoops: body.VisibleToFutureLoops,
			VisibleToLoopIDs:     loopIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// ItemGet returns a single item visible to the caller.
func ItemGet(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Get(r.Context(), itemID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

type itemUpdateRequest struct {
	Name                 *string  `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description          *string  `json:"description,omitempty"`
	ImageURL             *string  `json:"image_url,omitempty"`
	IsAvailable          *bool    `json:"is_available,omitempty"`
	VisibleToAllLoops    *bool    `json:"visible_to_all_loops,omitempty"`
	VisibleToFutureLoops *bool    `json:"visible_to_future_loops,omitempty"`
	VisibleToLoopIDs     []string `json:"visible_to_loop_ids,omitempty" validate:"omitempty,dive,uuid"`
}

// ItemUpdate adjusts mutable item fields; only the owner may call it.
func ItemUpdate(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body itemUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		loopIDs, err := parseUUIDList(body.VisibleToLoopIDs, "visible_to_loop_ids")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), items.UpdateInput{
			ItemID:               itemID,
			ActorUserID:          userID,
			Name:                 body.Name,
			Description:          body.Description,
			ImageURL:             body.ImageURL,
			IsAvailable:          body.IsAvailable,
			VisibleToAllLoops:    body.VisibleToAllLoops,
			VisibleToFutureLoops: body.VisibleToFutureLoops,
			VisibleToLoopIDs:     loopIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

// ItemDelete removes a shared item; only the owner may call it.
func ItemDelete(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), itemID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ItemListMine returns every item the caller owns.
func ItemListMine(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return itemListHandler(svc, logg, func(svc items.Service) itemListFn { return svc.ListMine })
}

// ItemListVisible returns items the caller can see across their loops.
func ItemListVisible(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return itemListHandler(svc, logg, func(svc items.Service) itemListFn { return svc.ListVisible })
}

type itemListFn func(ctx context.Context, userID uuid.UUID) ([]items.ItemDTO, error)

func itemListHandler(svc items.Service, logg *logger.Logger, pick func(items.Service) itemListFn) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := pick(svc)(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

func parseUUIDList(raw []string, field string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
