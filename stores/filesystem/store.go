package filesystem

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/Diamondrubix/ScrapBook/core"
)

type fsStore struct {
	basePath string
}

// NewStore creates a new filesystem-based asset store.
func NewStore(basePath string) *fsStore {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		logrus.WithError(err).Fatal("Failed to create base directory")
	}
	return &fsStore{basePath: basePath}
}

// AssetKey names a new asset of a board, keeping the upload's extension.
func AssetKey(boardID, filename string) (string, error) {
	if boardID == "" || path.Base(boardID) != boardID || boardID == "." || boardID == ".." {
		return "", fmt.Errorf("invalid board id %q", boardID)
	}
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	return path.Join(boardID, ulid.Make().String()+ext), nil
}

// ValidKey reports whether key has the board/name shape AssetKey produces.
func ValidKey(key string) bool {
	parts := strings.Split(key, "/")
	if len(parts) != 2 {
		return false
	}
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			return false
		}
	}
	return true
}

// Put writes the asset body to disk. Part of the AssetStore interface.
func (s *fsStore) Put(ctx context.Context, boardID, filename, contentType string, body io.Reader) (string, error) {
	key, err := AssetKey(boardID, filename)
	if err != nil {
		return "", err
	}
	filePath := filepath.Join(s.basePath, filepath.FromSlash(key))
	log := logrus.WithFields(logrus.Fields{
		"asset_key": key,
		"file_path": filePath,
	})

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		log.WithError(err).Error("Failed to create board directory")
		return "", err
	}
	f, err := os.Create(filePath)
	if err != nil {
		log.WithError(err).Error("Failed to create asset")
		return "", err
	}
	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(filePath)
		log.WithError(err).Error("Failed to write asset")
		return "", err
	}

	log.WithField("bytes", n).Info("Asset stored successfully")
	return key, nil
}

func (s *fsStore) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if !ValidKey(key) {
		return nil, "", fmt.Errorf("invalid asset key %q", key)
	}
	f, err := os.Open(filepath.Join(s.basePath, filepath.FromSlash(key)))
	if err != nil {
		if os.IsNotExist(err) {
			logrus.WithField("asset_key", key).Warn("Asset with specified key not found")
			return nil, "", fmt.Errorf("asset with key %s %w", key, core.ErrNotFound)
		}
		return nil, "", err
	}
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return f, contentType, nil
}
