package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"voicecollect/internal/audio"
	"voicecollect/internal/config"
)

// ObjectAPI is the subset of the minio client the S3 backend uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

// S3 stores clips in an S3-compatible bucket.
type S3 struct {
	api     ObjectAPI
	bucket  string
	baseURL string
	prefix  string
	now     Clock
}

// NewS3 connects a minio client for the configured endpoint.
func NewS3(_ context.Context, cfg config.S3, publicBaseURL, prefix string) (*S3, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	secure := cfg.UseSSL
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint, secure = strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		endpoint, secure = strings.TrimPrefix(endpoint, "http://"), false
	}
	endpoint = strings.TrimRight(endpoint, "/")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	if strings.TrimSpace(publicBaseURL) == "" {
		scheme := "http"
		if secure {
			scheme = "https"
		}
		publicBaseURL = fmt.Sprintf("%s://%s/%s", scheme, endpoint, cfg.Bucket)
	}
	return NewS3WithAPI(client, cfg.Bucket, publicBaseURL, prefix), nil
}

// NewS3WithAPI builds the backend around an existing client.
func NewS3WithAPI(api ObjectAPI, bucket, publicBaseURL, prefix string) *S3 {
	return &S3{
		api:     api,
		bucket:  bucket,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		prefix:  prefix,
		now:     time.Now,
	}
}

func (s *S3) Name() string { return "s3" }

// Put uploads the clip unless an object with the same key and size exists.
func (s *S3) Put(ctx context.Context, id string, clip audio.NormalizedAudio) (Object, error) {
	if err := validateClip(id, clip); err != nil {
		return Object{}, err
	}
	key := Key(s.prefix, s.now(), id, clip)
	obj := Object{AudioRef: s.baseURL + "/" + key, StorageID: key}

	info, err := s.api.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err == nil && info.Size == clip.Size() {
		return obj, nil
	}
	if err != nil && !isMissing(err) {
		return Object{}, storageError("put", "stat object", err)
	}

	_, err = s.api.PutObject(ctx, s.bucket, key, bytes.NewReader(clip.Data), clip.Size(), minio.PutObjectOptions{
		ContentType:  clip.ContentType,
		UserMetadata: map[string]string{"sha256": clip.Checksum},
	})
	if err != nil {
		if isPermanentS3(err) {
			return Object{}, permanent(storageError("put", "upload rejected", err))
		}
		return Object{}, storageError("put", "upload object", err)
	}
	return obj, nil
}

// Health confirms the bucket exists and credentials work.
func (s *S3) Health(ctx context.Context) error {
	ok, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return storageError("health", "check bucket", err)
	}
	if !ok {
		return storageError("health", "bucket "+s.bucket+" does not exist", nil)
	}
	return nil
}

func isMissing(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey"
}

func isPermanentS3(err error) bool {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "AccessDenied", "NoSuchBucket", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return true
	default:
		return false
	}
}
