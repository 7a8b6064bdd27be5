package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/indieinfra/ingest/config"
	ingest "github.com/indieinfra/ingest/media"
	"github.com/indieinfra/ingest/storage/media"
	storageutil "github.com/indieinfra/ingest/storage/util"
)

type s3Client interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

var newMinioClient = func(endpoint string, opts *minio.Options) (s3Client, error) {
	return minio.New(endpoint, opts)
}

// StoreImpl uploads media to S3 or any compatible service (R2, Backblaze, MinIO).
type StoreImpl struct {
	client     s3Client
	bucket     string
	publicBase string
	pattern    *storageutil.PathPattern
}

func NewS3MediaStore(cfg *config.S3MediaStrategy) (*StoreImpl, error) {
	if cfg == nil {
		return nil, fmt.Errorf("s3 media config is nil")
	}

	region := strings.TrimSpace(cfg.Region)
	if strings.EqualFold(region, "auto") {
		region = ""
	}

	endpointHost := endpointHostFor(cfg.Endpoint, region)

	client, err := newMinioClient(endpointHost, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyId, cfg.SecretKeyId, ""),
		Secure:       !cfg.Insecure,
		Region:       region,
		BucketLookup: minio.BucketLookupAuto,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to verify s3 bucket %q: %w", cfg.Bucket, err)
	}

	if !exists {
		return nil, fmt.Errorf("s3 bucket %q does not exist or is not accessible", cfg.Bucket)
	}

	return &StoreImpl{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: storageutil.NormalizeBaseURL(cfg.PublicUrl),
		pattern:    media.ResolvePattern(cfg.PathPattern),
	}, nil
}

func endpointHostFor(endpoint, region string) string {
	host := strings.TrimSpace(endpoint)
	if host == "" {
		if region == "" {
			return "s3.amazonaws.com"
		}
		return fmt.Sprintf("s3.%s.amazonaws.com", region)
	}

	if parsed, err := url.Parse(host); err == nil && parsed.Host != "" {
		return parsed.Host
	}

	return host
}

func (s *StoreImpl) Upload(ctx context.Context, file *ingest.File, ownerID string) (*ingest.MediaFile, error) {
	d, err := media.Describe(file, ownerID)
	if err != nil {
		return nil, err
	}

	key, err := media.ObjectPath(s.pattern, d, "")
	if err != nil {
		return nil, fmt.Errorf("failed to build object key: %w", err)
	}

	body, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", file.Name, err)
	}
	defer body.Close()

	opts := minio.PutObjectOptions{
		ContentType:  file.MediaType,
		UserMetadata: map[string]string{"owner": ownerID, "media-id": d.ID},
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, body, file.Size, opts); err != nil {
		return nil, fmt.Errorf("upload to s3 failed: %w", err)
	}

	d.URL = s.objectURL(key)
	return d, nil
}

func (s *StoreImpl) objectURL(key string) string {
	return storageutil.JoinPublicURL(s.publicBase, key)
}
