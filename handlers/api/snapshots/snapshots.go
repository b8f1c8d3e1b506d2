package snapshots

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

type (
	CreateSnapshotRequest struct {
		Name string `json:"name"`
	}

	CreateSnapshotResponse struct {
		ID    string `json:"id"`
		Items int    `json:"items"`
	}

	RestoreResponse struct {
		Restored int `json:"restored"`
	}

	// BoardStore is what a restore needs: the snapshot and the live items
	// it replaces.
	BoardStore interface {
		core.ItemStore
		core.SnapshotStore
	}
)

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// HandleCreateSnapshot copies a board's current items
func HandleCreateSnapshot(store core.SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		boardID := chi.URLParam(r, "boardId")

		var req CreateSnapshotRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				logrus.WithField("error", err).Error("Failed to decode request")
				renderError(w, r, http.StatusBadRequest, "Invalid request body")
				return
			}
		}

		snapshot := &core.Snapshot{
			BoardID:   boardID,
			Name:      req.Name,
			CreatedBy: middleware.UserID(r.Context()),
		}
		id, err := store.CreateSnapshot(r.Context(), snapshot)
		if err != nil {
			logrus.WithField("error", err).Error("Failed to create snapshot")
			renderError(w, r, http.StatusInternalServerError, "Failed to create snapshot")
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, CreateSnapshotResponse{ID: id, Items: len(snapshot.Items)})
	}
}

// HandleListSnapshots lists all snapshots for a board
func HandleListSnapshots(store core.SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		boardID := chi.URLParam(r, "boardId")

		snapshots, err := store.ListSnapshots(r.Context(), boardID)
		if err != nil {
			logrus.WithField("error", err).Error("Failed to list snapshots")
			renderError(w, r, http.StatusInternalServerError, "Failed to list snapshots")
			return
		}
		if snapshots == nil {
			snapshots = []core.Snapshot{}
		}

		render.JSON(w, r, snapshots)
	}
}

// HandleGetSnapshot retrieves a specific snapshot
func HandleGetSnapshot(store core.SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshotID := chi.URLParam(r, "snapshotId")

		snapshot, err := store.GetSnapshot(r.Context(), snapshotID)
		if err != nil {
			renderError(w, r, http.StatusNotFound, "Snapshot not found")
			return
		}

		render.JSON(w, r, snapshot)
	}
}

// HandleDeleteSnapshot deletes a snapshot
func HandleDeleteSnapshot(store core.SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshotID := chi.URLParam(r, "snapshotId")

		if err := store.DeleteSnapshot(r.Context(), snapshotID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				renderError(w, r, http.StatusNotFound, "Snapshot not found")
				return
			}
			logrus.WithField("error", err).Error("Failed to delete snapshot")
			renderError(w, r, http.StatusInternalServerError, "Failed to delete snapshot")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleRestoreSnapshot replaces the snapshot's board with the snapshot's
// items. Items keep their ids, so open sessions see deletes followed by
// inserts through the change feed.
func HandleRestoreSnapshot(store BoardStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshotID := chi.URLParam(r, "snapshotId")
		ctx := r.Context()

		snapshot, err := store.GetSnapshot(ctx, snapshotID)
		if err != nil {
			renderError(w, r, http.StatusNotFound, "Snapshot not found")
			return
		}
		log := logrus.WithFields(logrus.Fields{
			"snapshot_id": snapshotID,
			"board_id":    snapshot.BoardID,
		})

		current, err := store.List(ctx, snapshot.BoardID)
		if err != nil {
			log.WithError(err).Error("Failed to list items")
			renderError(w, r, http.StatusInternalServerError, "Failed to restore snapshot")
			return
		}
		for _, item := range current {
			if err := store.Delete(ctx, item.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
				log.WithError(err).Error("Failed to clear board")
				renderError(w, r, http.StatusInternalServerError, "Failed to restore snapshot")
				return
			}
		}
		for _, item := range snapshot.Items {
			item := item.Clone()
			if err := store.Create(ctx, &item); err != nil {
				log.WithError(err).WithField("item_id", item.ID).Error("Failed to restore item")
				renderError(w, r, http.StatusInternalServerError, "Failed to restore snapshot")
				return
			}
		}

		log.WithField("items", len(snapshot.Items)).Info("Snapshot restored successfully")
		render.JSON(w, r, RestoreResponse{Restored: len(snapshot.Items)})
	}
}
