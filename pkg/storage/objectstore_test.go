package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberbase/memberbase/pkg/observability"
)

type stubS3 struct {
	objects map[string][]byte

	putCalls    int
	deleteCalls int
	listCalls   int

	// failures is consumed one error per call before operations succeed.
	failures []error
}

func newStubS3() *stubS3 {
	return &stubS3{objects: make(map[string][]byte)}
}

func (s *stubS3) nextFailure() error {
	if len(s.failures) == 0 {
		return nil
	}
	err := s.failures[0]
	s.failures = s.failures[1:]
	return err
}

func (s *stubS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	s.putCalls++
	if err := s.nextFailure(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	s.objects[*params.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (s *stubS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if err := s.nextFailure(); err != nil {
		return nil, err
	}
	data, ok := s.objects[*params.Key]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "not found"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func (s *stubS3) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	s.deleteCalls++
	if err := s.nextFailure(); err != nil {
		return nil, err
	}
	delete(s.objects, *params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (s *stubS3) DeleteObjects(_ context.Context, params *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	s.deleteCalls++
	if err := s.nextFailure(); err != nil {
		return nil, err
	}
	for _, obj := range params.Delete.Objects {
		delete(s.objects, *obj.Key)
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (s *stubS3) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	s.listCalls++
	if err := s.nextFailure(); err != nil {
		return nil, err
	}
	var contents []s3types.Object
	for key := range s.objects {
		if strings.HasPrefix(key, *params.Prefix) {
			contents = append(contents, s3types.Object{Key: aws.String(key)})
		}
	}
	return &s3.ListObjectsV2Output{
		Contents:    contents,
		IsTruncated: aws.Bool(false),
	}, nil
}

func newTestStore(stub *stubS3) *ObjectStore {
	cfg := DefaultConfig()
	cfg.S3Bucket = "test-bucket"
	cfg.RetryAttempts = 3
	cfg.RetryPause = time.Millisecond
	return NewObjectStoreWithClient(stub, cfg)
}

func transientErr() error {
	return &smithy.GenericAPIError{Code: "InternalError", Message: "we encountered an internal error"}
}

func TestObjectStorePutGet(t *testing.T) {
	stub := newStubS3()
	store := newTestStore(stub)
	ctx := context.Background()

	key := FileKey(uuid.New(), "logo.png")
	require.NoError(t, store.Put(ctx, key, strings.NewReader("image-bytes"), "image/png"))

	body, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))
}

func TestObjectStoreRetriesTransientFailures(t *testing.T) {
	stub := newStubS3()
	stub.failures = []error{transientErr(), transientErr()}
	store := newTestStore(stub)

	key := FileKey(uuid.New(), "logo.png")
	require.NoError(t, store.Put(context.Background(), key, strings.NewReader("x"), "image/png"))
	assert.Equal(t, 3, stub.putCalls)
}

func TestObjectStoreGivesUpAfterMaxAttempts(t *testing.T) {
	stub := newStubS3()
	stub.failures = []error{transientErr(), transientErr(), transientErr()}
	store := newTestStore(stub)

	err := store.Put(context.Background(), FileKey(uuid.New(), "f"), strings.NewReader("x"), "text/plain")
	require.Error(t, err)
	assert.Equal(t, 3, stub.putCalls)
}

func TestObjectStoreDoesNotRetryCallerErrors(t *testing.T) {
	stub := newStubS3()
	stub.failures = []error{&smithy.GenericAPIError{Code: "AccessDenied", Message: "no"}}
	store := newTestStore(stub)

	err := store.Put(context.Background(), FileKey(uuid.New(), "f"), strings.NewReader("x"), "text/plain")
	require.Error(t, err)
	assert.Equal(t, 1, stub.putCalls)

	// Plain errors are not transient either.
	assert.False(t, isTransient(errors.New("boom")))
}

func TestObjectStoreMetrics(t *testing.T) {
	stub := newStubS3()
	stub.failures = []error{transientErr(), transientErr()}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	store := newTestStore(stub).WithMetrics(metrics)
	ctx := context.Background()

	key := FileKey(uuid.New(), "logo.png")
	require.NoError(t, store.Put(ctx, key, strings.NewReader("x"), "image/png"))

	// Two transient failures before success: two retries, one completed put.
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.StorageRetriesTotal.WithLabelValues("put")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StorageOperationsTotal.WithLabelValues("put", "success")))

	// A missing key surfaces as a failed get.
	_, err := store.Get(ctx, FileKey(uuid.New(), "missing.png"))
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StorageOperationsTotal.WithLabelValues("get", "error")))
}

func TestObjectStoreDeletePrefix(t *testing.T) {
	stub := newStubS3()
	store := newTestStore(stub)
	ctx := context.Background()

	companyID := uuid.New()
	otherID := uuid.New()
	require.NoError(t, store.Put(ctx, FileKey(companyID, "a.png"), strings.NewReader("a"), "image/png"))
	require.NoError(t, store.Put(ctx, FileKey(companyID, "b.png"), strings.NewReader("b"), "image/png"))
	require.NoError(t, store.Put(ctx, FileKey(otherID, "keep.png"), strings.NewReader("k"), "image/png"))

	require.NoError(t, store.DeletePrefix(ctx, CompanyPrefix(companyID)))

	assert.Len(t, stub.objects, 1)
	_, ok := stub.objects[FileKey(otherID, "keep.png")]
	assert.True(t, ok)
}

func TestCompanyPrefix(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "companies/"+id.String()+"/", CompanyPrefix(id))
	assert.Equal(t, "companies/"+id.String()+"/logo.png", FileKey(id, "logo.png"))
}
