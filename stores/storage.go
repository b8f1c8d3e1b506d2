package stores

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Diamondrubix/ScrapBook/core"
	"github.com/Diamondrubix/ScrapBook/stores/aws"
	"github.com/Diamondrubix/ScrapBook/stores/filesystem"
	"github.com/Diamondrubix/ScrapBook/stores/memory"
	"github.com/Diamondrubix/ScrapBook/stores/sqlite"
)

// Store is a union interface that includes every board-side store type.
type Store interface {
	core.ItemStore
	core.LockStore
	core.LockReaper
	core.PresenceChannel
	core.SnapshotStore
}

// LockTTL reads LOCK_TTL. Unset or invalid means locks never expire.
func LockTTL() time.Duration {
	raw := os.Getenv("LOCK_TTL")
	if raw == "" {
		return 0
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil || ttl < 0 {
		logrus.WithField("LOCK_TTL", raw).Warn("Ignoring invalid lock TTL")
		return 0
	}
	return ttl
}

func GetStore() Store {
	storageType := os.Getenv("STORAGE_TYPE")
	lockTTL := LockTTL()
	var store Store

	storageField := logrus.Fields{
		"storageType": storageType,
		"lockTTL":     lockTTL,
	}

	switch storageType {
	case "sqlite":
		dataSourceName := os.Getenv("DATA_SOURCE_NAME")
		if dataSourceName == "" {
			dataSourceName = "scrapbook.db" // Default filename
		}
		storageField["dataSourceName"] = dataSourceName
		store = sqlite.NewStore(dataSourceName, lockTTL)
	default:
		store = memory.NewStoreWithTTL(lockTTL)
		storageField["storageType"] = "in-memory"
	}
	logrus.WithFields(storageField).Info("Use storage")
	return store
}

func GetAssetStore() core.AssetStore {
	storageType := os.Getenv("ASSET_STORAGE_TYPE")
	var store core.AssetStore

	storageField := logrus.Fields{
		"assetStorageType": storageType,
	}

	switch storageType {
	case "s3":
		bucketName := os.Getenv("S3_BUCKET_NAME")
		if bucketName == "" {
			logrus.Fatal("S3_BUCKET_NAME environment variable must be set for s3 asset storage")
		}
		storageField["bucketName"] = bucketName
		store = aws.NewStore(bucketName)
	default:
		basePath := os.Getenv("LOCAL_STORAGE_PATH")
		if basePath == "" {
			basePath = "./data" // Default path
		}
		storageField["assetStorageType"] = "filesystem"
		storageField["basePath"] = basePath
		store = filesystem.NewStore(basePath)
	}
	logrus.WithFields(storageField).Info("Use asset storage")
	return store
}
