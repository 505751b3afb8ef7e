// Package minio stores the CSV inputs and exports of the gibbs engine in an
// S3-compatible bucket: equilibrium tables, measured-reaction tables, row
// dumps and reverse-transform results.
package minio

import (
	"context"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jasmincar/milo-lab/internal/config"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

// ObjectAPI is the subset of *minio.Client the store needs. GetObject
// returns an io.ReadCloser so that tests can serve objects from memory.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// clientAdapter narrows *minio.Client's GetObject to ObjectAPI.
type clientAdapter struct {
	*minio.Client
}

func (a clientAdapter) GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	obj, err := a.Client.GetObject(ctx, bucket, key, opts)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

var (
	ErrStoreClosed    = errors.New(errors.ErrCodeStorageError, "object store is closed")
	ErrBucketNotFound = errors.New(errors.ErrCodeNotFound, "bucket not found")
)

// ObjectStore reads and writes objects in a single bucket.
type ObjectStore struct {
	api    ObjectAPI
	bucket string
	region string
	logger logging.Logger

	presignExpiry time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewObjectStore connects to cfg.Endpoint and makes sure the bucket exists.
func NewObjectStore(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (*ObjectStore, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Bucket == "" {
		cfg.Bucket = config.DefaultMinIOBucket
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create minio client").
			WithDetail("endpoint=" + cfg.Endpoint)
	}

	s := NewObjectStoreWithAPI(clientAdapter{client}, cfg.Bucket, log)
	s.region = cfg.Region

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("minio object store connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return s, nil
}

// NewObjectStoreWithAPI wraps an existing API, typically a mock.
func NewObjectStoreWithAPI(api ObjectAPI, bucket string, log logging.Logger) *ObjectStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ObjectStore{
		api:           api,
		bucket:        bucket,
		region:        "us-east-1",
		logger:        log,
		presignExpiry: time.Hour,
	}
}

// Bucket returns the bucket name.
func (s *ObjectStore) Bucket() string { return s.bucket }

// EnsureBucket creates the bucket when it does not exist.
func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to check bucket").WithDetail("bucket=" + s.bucket)
	}
	if exists {
		return nil
	}
	if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to create bucket").WithDetail("bucket=" + s.bucket)
	}
	s.logger.Info("created bucket", logging.String("bucket", s.bucket))
	return nil
}

// HealthCheck verifies that the bucket is reachable.
func (s *ObjectStore) HealthCheck(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "minio health check failed")
	}
	if !exists {
		return ErrBucketNotFound.WithDetail("bucket=" + s.bucket)
	}
	return nil
}

// Close marks the store closed. The underlying client holds no connections
// that need releasing.
func (s *ObjectStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *ObjectStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

//Personal.AI order the ending
