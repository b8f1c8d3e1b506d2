package items

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"github.com/Diamondrubix/ScrapBook/core"
	"github.com/Diamondrubix/ScrapBook/middleware"
)

type CreateItemResponse struct {
	ID     string `json:"id"`
	ZIndex int    `json:"z_index"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// HandleList returns every item on a board in stacking order.
func HandleList(store core.ItemStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		boardID := chi.URLParam(r, "boardId")

		items, err := store.List(r.Context(), boardID)
		if err != nil {
			logrus.WithError(err).WithField("board_id", boardID).Error("Failed to list items")
			renderError(w, r, http.StatusInternalServerError, "Failed to list items")
			return
		}
		if items == nil {
			items = []core.Item{}
		}
		render.JSON(w, r, items)
	}
}

// HandleCreate stores a new item. A client-chosen id is kept so optimistic
// creates reconcile with their echo.
func HandleCreate(store core.ItemStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		boardID := chi.URLParam(r, "boardId")

		var item core.Item
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			logrus.WithError(err).Error("Failed to decode request")
			renderError(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
		if !item.Type.Valid() {
			renderError(w, r, http.StatusBadRequest, "Unknown item type")
			return
		}
		item.BoardID = boardID
		item.CreatedBy = middleware.UserID(r.Context())

		if err := store.Create(r.Context(), &item); err != nil {
			logrus.WithError(err).WithField("board_id", boardID).Error("Failed to create item")
			renderError(w, r, http.StatusConflict, "Failed to create item")
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, CreateItemResponse{ID: item.ID, ZIndex: item.ZIndex})
	}
}

// HandleUpdate applies a partial patch to an item.
func HandleUpdate(store core.ItemStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := chi.URLParam(r, "itemId")

		var patch core.Patch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			logrus.WithError(err).Error("Failed to decode request")
			renderError(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
		if patch.IsEmpty() {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if err := store.Update(r.Context(), itemID, patch); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				renderError(w, r, http.StatusNotFound, "Item not found")
				return
			}
			logrus.WithError(err).WithField("item_id", itemID).Error("Failed to update item")
			renderError(w, r, http.StatusInternalServerError, "Failed to update item")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleDelete(store core.ItemStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := chi.URLParam(r, "itemId")

		if err := store.Delete(r.Context(), itemID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				renderError(w, r, http.StatusNotFound, "Item not found")
				return
			}
			logrus.WithError(err).WithField("item_id", itemID).Error("Failed to delete item")
			renderError(w, r, http.StatusInternalServerError, "Failed to delete item")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
