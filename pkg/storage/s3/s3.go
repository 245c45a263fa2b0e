// Package s3 implements S3-backed storage for PartFS.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mcav91/partfs/pkg/storage"
)

// S3Store implements storage.Store using Amazon S3 or S3-compatible storage.
//
// Path-Based Key Design:
//   - The object path is used directly as the S3 key (with optional prefix)
//   - Format: "docs/report.pdf" -> "partfs/docs/report.pdf"
//   - The bucket mirrors the published namespace, so contents stay
//     inspectable and can be reconstructed after a metadata loss
//
// Pass-Through Behavior:
// S3Store reports IsPassThrough() == true. S3 PutObject is already atomic
// from a reader's perspective (readers see the old object or the new one,
// never a partial write), so an intermediate part file on top of it would be
// wasted I/O. The upload pipeline therefore writes S3 targets directly.
//
// Thread Safety:
// This implementation is safe for concurrent use by multiple goroutines.
// Concurrent writes to the same key are last-write-wins per S3 semantics.
type S3Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// S3StoreConfig contains configuration for the S3 store.
type S3StoreConfig struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	// Example: "partfs/" results in keys like "partfs/docs/report.pdf"
	KeyPrefix string
}

// hexETag matches a plain (non-multipart) S3 ETag, which is the MD5 of the
// object body.
var hexETag = regexp.MustCompile(`^[0-9a-f]{32}$`)

// NewS3Store creates a new S3-backed store.
//
// The bucket must already exist - this function verifies access but does not
// create it.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: Store configuration (client and bucket are required)
//
// Returns:
//   - *S3Store: Initialized store
//   - error: Configuration or bucket access error
func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3Store{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// IsPassThrough reports true: S3 writes are already remote and atomic, so
// staged part files are skipped for this backend.
func (s *S3Store) IsPassThrough() bool {
	return true
}

// objectKey returns the full S3 object key for a given path.
func (s *S3Store) objectKey(path string) string {
	if s.keyPrefix != "" {
		return s.keyPrefix + path
	}
	return path
}

// isNotFound reports whether an S3 API error indicates a missing object.
//
// GetObject reports *types.NoSuchKey while HeadObject reports *types.NotFound,
// so both are checked.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

// Write uploads data to the given path, replacing any existing object.
func (s *S3Store) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if path == "" {
		return fmt.Errorf("empty path: %w", storage.ErrInvalidPath)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", path, err)
	}

	return nil
}

// Read returns a reader streaming the object at path.
func (s *S3Store) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("object %s: %w", path, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get object %s: %w", path, err)
	}

	return result.Body, nil
}

// Delete removes the object at path (idempotent; S3 DeleteObject succeeds
// for missing keys).
func (s *S3Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", path, err)
	}

	return nil
}

// Exists reports whether an object is present at path.
func (s *S3Store) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object %s: %w", path, err)
	}

	return true, nil
}

// Size returns the byte length of the object at path.
func (s *S3Store) Size(ctx context.Context, path string) (int64, error) {
	info, err := s.Metadata(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

// Touch is not supported: S3 object timestamps are immutable. The caller
// treats Touch as best effort and records client mtimes in the metadata
// store instead.
func (s *S3Store) Touch(ctx context.Context, path string, mtime time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("touch on S3 object %s: %w", path, storage.ErrNotSupported)
}

// Metadata returns size, mtime and checksums for the object at path.
//
// When the object's ETag is a plain hash (non-multipart upload), it is the
// MD5 of the body and is surfaced as an "MD5:" checksum token.
func (s *S3Store) Metadata(ctx context.Context, path string) (*storage.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("object %s: %w", path, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to head object %s: %w", path, err)
	}

	info := &storage.ObjectInfo{Path: path}
	if result.ContentLength != nil {
		info.Size = *result.ContentLength
	}
	if result.LastModified != nil {
		info.MTime = *result.LastModified
	}
	if result.ETag != nil {
		etag := strings.Trim(*result.ETag, `"`)
		if hexETag.MatchString(etag) {
			info.Checksums = "MD5:" + etag
		}
	}

	return info, nil
}

// MoveObject moves an object between keys using a server-side copy followed
// by a delete of the source.
//
// This implements the storage.Mover interface. CopyObject is atomic for the
// destination key; the delete of the source is a separate call, which is
// acceptable because the upload pipeline only moves staging keys it owns.
func (s *S3Store) MoveObject(ctx context.Context, fromPath, toPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(s.objectKey(toPath)),
		CopySource: aws.String(s.bucket + "/" + s.objectKey(fromPath)),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("object %s: %w", fromPath, storage.ErrNotFound)
		}
		return fmt.Errorf("failed to copy object %s: %w", fromPath, err)
	}

	if err := s.Delete(ctx, fromPath); err != nil {
		return fmt.Errorf("failed to remove source after copy: %w", err)
	}

	return nil
}
