package thumbnails

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/Diamondrubix/ScrapBook/canvas/render"
	"github.com/Diamondrubix/ScrapBook/core"
)

const (
	DefaultWidth  = 320
	DefaultHeight = 200
	MaxDimension  = 2048
)

// ParseIntParam parses a query parameter, falling back to defaultValue when
// it is missing or outside [1, MaxDimension].
func ParseIntParam(r *http.Request, param string, defaultValue int) int {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil || intValue < 1 || intValue > MaxDimension {
		return defaultValue
	}

	return intValue
}

// HandleThumbnail renders the board's items framed into a PNG.
func HandleThumbnail(store core.ItemStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		boardID := chi.URLParam(r, "boardId")
		width := ParseIntParam(r, "w", DefaultWidth)
		height := ParseIntParam(r, "h", DefaultHeight)

		items, err := store.List(r.Context(), boardID)
		if err != nil {
			logrus.WithError(err).WithField("board_id", boardID).Error("Failed to list items")
			http.Error(w, "Failed to render thumbnail", http.StatusInternalServerError)
			return
		}

		var buf bytes.Buffer
		if err := render.Thumbnail(&buf, items, width, height); err != nil {
			logrus.WithError(err).WithField("board_id", boardID).Error("Failed to render thumbnail")
			http.Error(w, "Failed to render thumbnail", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(buf.Bytes())
	}
}
