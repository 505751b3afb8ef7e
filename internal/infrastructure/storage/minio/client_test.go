package minio

import (
	"context"
	"errors"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/jasmincar/milo-lab/internal/testutil"
	apperrors "github.com/jasmincar/milo-lab/pkg/errors"
)

type MockObjectAPI struct {
	mock.Mock
}

func (m *MockObjectAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucketName, opts).Error(0)
}

func (m *MockObjectAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockObjectAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockObjectAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *MockObjectAPI) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucketName, objectName, opts).Error(0)
}

func (m *MockObjectAPI) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	return m.Called(ctx, bucketName, opts).Get(0).(<-chan minio.ObjectInfo)
}

func (m *MockObjectAPI) PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
	args := m.Called(ctx, bucketName, objectName, expiry, reqParams)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*url.URL), args.Error(1)
}

type ClientTestSuite struct {
	suite.Suite
	api   *MockObjectAPI
	store *ObjectStore
}

func (s *ClientTestSuite) SetupTest() {
	s.api = new(MockObjectAPI)
	s.store = NewObjectStoreWithAPI(s.api, "gibbs", testutil.NewMockLogger())
}

func (s *ClientTestSuite) TearDownTest() {
	s.api.AssertExpectations(s.T())
}

func (s *ClientTestSuite) TestEnsureBucket_Exists() {
	s.api.On("BucketExists", mock.Anything, "gibbs").Return(true, nil).Once()
	s.NoError(s.store.EnsureBucket(context.Background()))
	s.api.AssertNotCalled(s.T(), "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ClientTestSuite) TestEnsureBucket_Creates() {
	s.api.On("BucketExists", mock.Anything, "gibbs").Return(false, nil).Once()
	s.api.On("MakeBucket", mock.Anything, "gibbs", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil).Once()
	s.NoError(s.store.EnsureBucket(context.Background()))
}

func (s *ClientTestSuite) TestEnsureBucket_CheckFails() {
	s.api.On("BucketExists", mock.Anything, "gibbs").Return(false, errors.New("dial tcp: refused")).Once()
	err := s.store.EnsureBucket(context.Background())
	s.True(apperrors.IsCode(err, apperrors.ErrCodeStorageError))
}

func (s *ClientTestSuite) TestHealthCheck() {
	s.api.On("BucketExists", mock.Anything, "gibbs").Return(true, nil).Once()
	s.NoError(s.store.HealthCheck(context.Background()))

	s.api.On("BucketExists", mock.Anything, "gibbs").Return(false, nil).Once()
	s.True(apperrors.IsNotFound(s.store.HealthCheck(context.Background())))

	s.api.On("BucketExists", mock.Anything, "gibbs").Return(false, errors.New("timeout")).Once()
	s.True(apperrors.IsCode(s.store.HealthCheck(context.Background()), apperrors.ErrCodeServiceUnavailable))
}

func (s *ClientTestSuite) TestClosedStoreRejectsCalls() {
	s.Require().NoError(s.store.Close())

	_, err := s.store.Get(context.Background(), "a.csv")
	s.ErrorIs(err, ErrStoreClosed)
	_, err = s.store.Put(context.Background(), "a.csv", []byte("x"), "")
	s.ErrorIs(err, ErrStoreClosed)
	s.ErrorIs(s.store.HealthCheck(context.Background()), ErrStoreClosed)
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func TestClientAdapter_SatisfiesObjectAPI(t *testing.T) {
	t.Parallel()
	var api ObjectAPI = clientAdapter{}
	require.NotNil(t, api)
	assert.Equal(t, "gibbs", NewObjectStoreWithAPI(api, "gibbs", nil).Bucket())
}

//Personal.AI order the ending
