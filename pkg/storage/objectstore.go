package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/memberbase/memberbase/pkg/observability"
)

// S3API is the subset of the S3 client the object store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// ObjectStore handles company file uploads in S3-compatible storage.
type ObjectStore struct {
	client   S3API
	bucket   string
	attempts int
	pause    time.Duration
	metrics  *observability.Metrics
}

// NewObjectStore creates an object store from configuration.
func NewObjectStore(cfg Config) (*ObjectStore, error) {
	ctx := context.Background()

	var awsConfig aws.Config
	var err error

	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		// Static credentials, for MinIO or AWS with explicit keys.
		awsConfig, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.S3Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.S3AccessKey,
				cfg.S3SecretKey,
				"",
			)),
		)
	} else {
		awsConfig, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.S3Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		if cfg.S3UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return NewObjectStoreWithClient(client, cfg), nil
}

// NewObjectStoreWithClient creates an object store over an existing client.
func NewObjectStoreWithClient(client S3API, cfg Config) *ObjectStore {
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &ObjectStore{
		client:   client,
		bucket:   cfg.S3Bucket,
		attempts: attempts,
		pause:    cfg.RetryPause,
	}
}

// WithMetrics enables operation and retry instrumentation. Nil is a no-op.
func (o *ObjectStore) WithMetrics(m *observability.Metrics) *ObjectStore {
	o.metrics = m
	return o
}

// instrument records one completed operation.
func (o *ObjectStore) instrument(op string, start time.Time, err error) {
	if o.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	o.metrics.StorageOperationsTotal.WithLabelValues(op, status).Inc()
	o.metrics.StorageOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// CompanyPrefix returns the key prefix holding one company's files.
func CompanyPrefix(companyID uuid.UUID) string {
	return "companies/" + companyID.String() + "/"
}

// FileKey returns the object key for a named file within a company.
func FileKey(companyID uuid.UUID, name string) string {
	return CompanyPrefix(companyID) + name
}

// Put uploads content under key.
func (o *ObjectStore) Put(ctx context.Context, key string, content io.Reader, contentType string) (err error) {
	start := time.Now()
	defer func() { o.instrument("put", start, err) }()

	data, err := io.ReadAll(content)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	return o.withRetry(ctx, "put", func() error {
		_, err := o.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(o.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return fmt.Errorf("failed to upload object: %w", err)
		}
		return nil
	})
}

// Get retrieves the object under key. The caller closes the reader.
func (o *ObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	start := time.Now()
	var body io.ReadCloser
	err := o.withRetry(ctx, "get", func() error {
		result, err := o.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(o.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("failed to get object: %w", err)
		}
		body = result.Body
		return nil
	})
	o.instrument("get", start, err)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Delete removes a single object.
func (o *ObjectStore) Delete(ctx context.Context, key string) (err error) {
	start := time.Now()
	defer func() { o.instrument("delete", start, err) }()

	return o.withRetry(ctx, "delete", func() error {
		_, err := o.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(o.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("failed to delete object: %w", err)
		}
		return nil
	})
}

// DeletePrefix removes every object under prefix, page by page. Used when a
// company is deleted to sweep its files.
func (o *ObjectStore) DeletePrefix(ctx context.Context, prefix string) (err error) {
	start := time.Now()
	defer func() { o.instrument("delete_prefix", start, err) }()

	var continuation *string
	for {
		var page *s3.ListObjectsV2Output
		err := o.withRetry(ctx, "delete_prefix", func() error {
			result, err := o.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
				Bucket:            aws.String(o.bucket),
				Prefix:            aws.String(prefix),
				ContinuationToken: continuation,
			})
			if err != nil {
				return fmt.Errorf("failed to list objects: %w", err)
			}
			page = result
			return nil
		})
		if err != nil {
			return err
		}

		if len(page.Contents) > 0 {
			objects := make([]s3types.ObjectIdentifier, 0, len(page.Contents))
			for _, obj := range page.Contents {
				objects = append(objects, s3types.ObjectIdentifier{Key: obj.Key})
			}
			err = o.withRetry(ctx, "delete_prefix", func() error {
				_, err := o.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
					Bucket: aws.String(o.bucket),
					Delete: &s3types.Delete{Objects: objects},
				})
				if err != nil {
					return fmt.Errorf("failed to delete objects: %w", err)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}

		if page.IsTruncated == nil || !*page.IsTruncated {
			return nil
		}
		continuation = page.NextContinuationToken
	}
}

// withRetry runs op, retrying transient failures up to the configured
// attempt count with a fixed pause between tries.
func (o *ObjectStore) withRetry(ctx context.Context, name string, op func() error) error {
	var err error
	for attempt := 1; attempt <= o.attempts; attempt++ {
		err = op()
		if err == nil || !isTransient(err) {
			return err
		}
		if attempt == o.attempts {
			break
		}
		if o.metrics != nil {
			o.metrics.StorageRetriesTotal.WithLabelValues(name).Inc()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.pause):
		}
	}
	return err
}

// isTransient reports whether the failure is worth retrying. Only
// server-side hiccups qualify; anything shaped like a caller mistake
// (missing key, access denied) fails immediately.
func isTransient(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "InternalError", "SlowDown", "RequestTimeout", "ServiceUnavailable":
		return true
	}
	return false
}
