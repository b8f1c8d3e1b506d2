package assets

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"github.com/Diamondrubix/ScrapBook/core"
)

// MaxUploadSize caps a single multipart upload.
const MaxUploadSize = 64 << 20

type UploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// PublicURL joins the public base with the served path of key.
func PublicURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/assets/" + key
}

// HandleUpload stores the multipart "file" field and answers with the URL
// image and video items should reference.
func HandleUpload(store core.AssetStore, publicBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		boardID := chi.URLParam(r, "boardId")
		r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)

		file, header, err := r.FormFile("file")
		if err != nil {
			logrus.WithError(err).Error("Failed to read upload")
			renderError(w, r, http.StatusBadRequest, "A file field is required")
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		key, err := store.Put(r.Context(), boardID, header.Filename, contentType, file)
		if err != nil {
			logrus.WithError(err).WithField("board_id", boardID).Error("Failed to store asset")
			renderError(w, r, http.StatusInternalServerError, "Failed to store asset")
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, UploadResponse{Key: key, URL: PublicURL(publicBase, key)})
	}
}

// HandleServe streams an asset mounted under /assets/*.
func HandleServe(store core.AssetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")

		body, contentType, err := store.Open(r.Context(), key)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			logrus.WithError(err).WithField("asset_key", key).Warn("Failed to open asset")
			http.Error(w, "Invalid asset", http.StatusBadRequest)
			return
		}
		defer body.Close()

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		if _, err := io.Copy(w, body); err != nil {
			logrus.WithError(err).WithField("asset_key", key).Warn("Failed to stream asset")
		}
	}
}
