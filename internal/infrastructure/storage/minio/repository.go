package minio

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

// ContentTypeCSV is the content type of every table the engine writes.
const ContentTypeCSV = "text/csv"

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")
	ErrInvalidKey     = errors.New(errors.ErrCodeValidation, "object key is required")
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func (s *ObjectStore) notFound(key string) error {
	return ErrObjectNotFound.WithDetail("bucket=" + s.bucket + " key=" + key)
}

// Open returns a reader over the object. The caller closes it. A missing
// object is reported before any byte is read.
func (s *ObjectStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, ErrInvalidKey
	}
	if _, err := s.api.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil, s.notFound(key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to stat object").WithDetail("key=" + key)
	}
	rc, err := s.api.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to open object").WithDetail("key=" + key)
	}
	return rc, nil
}

// Get reads the whole object.
func (s *ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, s.notFound(key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to read object").WithDetail("key=" + key)
	}
	return data, nil
}

// Put writes data under key. An empty contentType is inferred from the key
// suffix, defaulting to application/octet-stream.
func (s *ObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) (*ObjectInfo, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, ErrInvalidKey
	}
	if contentType == "" {
		contentType = contentTypeFor(key)
	}

	info, err := s.api.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "upload failed").WithDetail("key=" + key)
	}
	s.logger.Debug("object uploaded",
		logging.String("bucket", s.bucket),
		logging.String("key", key),
		logging.Int("bytes", len(data)))
	return &ObjectInfo{
		Key:          key,
		Size:         info.Size,
		ContentType:  contentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

// Exists reports whether key is present.
func (s *ObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	_, err := s.api.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	return false, errors.Wrap(err, errors.ErrCodeStorageError, "failed to stat object").WithDetail("key=" + key)
}

// Delete removes key. Deleting a missing object is not an error.
func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.api.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to delete object").WithDetail("key=" + key)
	}
	return nil
}

// List returns the objects under prefix, recursively.
func (s *ObjectStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var out []ObjectInfo
	for obj := range s.api.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "failed to list objects").
				WithDetail("prefix=" + prefix)
		}
		out = append(out, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			ContentType:  obj.ContentType,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}
	return out, nil
}

// PresignedGetURL returns a temporary download URL. A zero expiry uses the
// store default of one hour.
func (s *ObjectStore) PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}
	if expiry == 0 {
		expiry = s.presignExpiry
	}
	u, err := s.api.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "failed to presign object").WithDetail("key=" + key)
	}
	return u.String(), nil
}

func contentTypeFor(key string) string {
	switch {
	case strings.HasSuffix(key, ".csv"):
		return ContentTypeCSV
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

//Personal.AI order the ending
