package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/therealutkarshpriyadarshi/audioextract/internal/config"
	"github.com/therealutkarshpriyadarshi/audioextract/internal/logging"
	"github.com/therealutkarshpriyadarshi/audioextract/internal/metrics"
)

// ObjectPutter is the subset of the MinIO client used for archiving
type ObjectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Archive uploads produced audio files to an S3-compatible bucket
type Archive struct {
	client     ObjectPutter
	bucketName string
	prefix     string
	logger     *logging.Logger
}

// New creates a MinIO client and makes sure the bucket exists
func New(cfg config.ArchiveConfig, logger *logging.Logger) (*Archive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return NewWithClient(client, cfg.BucketName, cfg.Prefix, logger), nil
}

// NewWithClient builds an archive over an existing client
func NewWithClient(client ObjectPutter, bucketName, prefix string, logger *logging.Logger) *Archive {
	return &Archive{
		client:     client,
		bucketName: bucketName,
		prefix:     prefix,
		logger:     logger,
	}
}

// ObjectName returns the full object name for key
func (a *Archive) ObjectName(key string) string {
	if a.prefix == "" {
		return key
	}
	return path.Join(a.prefix, key)
}

// Archive uploads data under the archive prefix
func (a *Archive) Archive(ctx context.Context, key string, data []byte, contentType string) error {
	objectName := a.ObjectName(key)
	size := int64(len(data))
	start := time.Now()

	_, err := a.client.PutObject(ctx, a.bucketName, objectName, bytes.NewReader(data), size, minio.PutObjectOptions{
		ContentType: contentType,
	})

	duration := time.Since(start)
	status := "success"
	if err != nil {
		status = "error"
		err = fmt.Errorf("failed to upload object: %w", err)
	}
	metrics.RecordStorageOperation("upload", status, duration.Seconds(), size)
	a.logger.LogStorageOperation("upload", a.bucketName, objectName, size, duration, err)

	return err
}
