package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	"github.com/Diamondrubix/ScrapBook/core"
	"github.com/Diamondrubix/ScrapBook/stores/filesystem"
)

type s3Store struct {
	s3Client *s3.Client
	bucket   string
}

// NewStore creates a new S3-based asset store.
func NewStore(bucketName string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		logrus.WithError(err).Fatal("Unable to load SDK config")
	}

	return &s3Store{
		s3Client: s3.NewFromConfig(cfg),
		bucket:   bucketName,
	}
}

// Put uploads the asset body. Part of the AssetStore interface.
func (s *s3Store) Put(ctx context.Context, boardID, filename, contentType string, body io.Reader) (string, error) {
	key, err := filesystem.AssetKey(boardID, filename)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read asset data: %v", err)
	}

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %v", err)
	}

	logrus.WithFields(logrus.Fields{"asset_key": key, "bucket": s.bucket}).Info("Asset uploaded successfully")
	return key, nil
}

func (s *s3Store) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if !filesystem.ValidKey(key) {
		return nil, "", fmt.Errorf("invalid asset key %q", key)
	}
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	var missing *s3types.NoSuchKey
	if errors.As(err, &missing) {
		return nil, "", fmt.Errorf("asset with key %s %w", key, core.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get asset with key %s: %v", key, err)
	}
	return resp.Body, aws.ToString(resp.ContentType), nil
}
