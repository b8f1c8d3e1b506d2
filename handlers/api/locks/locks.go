package locks

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"github.com/Diamondrubix/ScrapBook/core"
	"github.com/Diamondrubix/ScrapBook/middleware"
)

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// HandleList returns the live locks on a board.
func HandleList(store core.LockStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		boardID := chi.URLParam(r, "boardId")

		locks, err := store.ListLocks(r.Context(), boardID)
		if err != nil {
			logrus.WithError(err).WithField("board_id", boardID).Error("Failed to list locks")
			renderError(w, r, http.StatusInternalServerError, "Failed to list locks")
			return
		}
		if locks == nil {
			locks = []core.Lock{}
		}
		render.JSON(w, r, locks)
	}
}

// HandleAcquire takes (or refreshes) the caller's lock on an item.
func HandleAcquire(store core.LockStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := chi.URLParam(r, "itemId")
		userID := middleware.UserID(r.Context())
		if userID == "" {
			renderError(w, r, http.StatusUnauthorized, "Unknown user")
			return
		}

		if err := store.Acquire(r.Context(), itemID, userID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				renderError(w, r, http.StatusNotFound, "Item not found")
				return
			}
			logrus.WithError(err).WithField("item_id", itemID).Error("Failed to acquire lock")
			renderError(w, r, http.StatusInternalServerError, "Failed to acquire lock")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleRelease drops the caller's lock. Releasing a lock someone else
// holds is a no-op.
func HandleRelease(store core.LockStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := chi.URLParam(r, "itemId")
		userID := middleware.UserID(r.Context())
		if userID == "" {
			renderError(w, r, http.StatusUnauthorized, "Unknown user")
			return
		}

		if err := store.Release(r.Context(), itemID, userID); err != nil {
			logrus.WithError(err).WithField("item_id", itemID).Error("Failed to release lock")
			renderError(w, r, http.StatusInternalServerError, "Failed to release lock")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
