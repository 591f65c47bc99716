package artifact

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Options describes how to reach MinIO or any S3 compatible service.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// NewMinioClient creates a MinIO client from opts.
func NewMinioClient(opts S3Options) (*minio.Client, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return client, nil
}

// Bucket keeps artifacts as objects. Locations are object keys.
type Bucket struct {
	client *minio.Client
	name   string
	region string
	prefix string
}

// NewBucket wraps one bucket; keys are stored under prefix.
func NewBucket(client *minio.Client, name, region, prefix string) *Bucket {
	return &Bucket{client: client, name: name, region: region, prefix: prefix}
}

// EnsureBucket makes sure the bucket exists before use.
func (b *Bucket) EnsureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.name)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", b.name, err)
	}
	if !exists {
		if err := b.client.MakeBucket(ctx, b.name, minio.MakeBucketOptions{Region: b.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", b.name, err)
		}
	}
	return nil
}

// Put uploads r under prefix/base(name).
func (b *Bucket) Put(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	key := path.Join(b.prefix, path.Base(name))
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := b.client.PutObject(ctx, b.name, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload object %s: %w", key, err)
	}
	return key, nil
}

// Get downloads the object stored at location.
func (b *Bucket) Get(ctx context.Context, location string) ([]byte, error) {
	obj, err := b.client.GetObject(ctx, b.name, location, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", location, err)
	}
	defer obj.Close()
	buf, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%s: %w", location, ErrNotFound)
		}
		return nil, fmt.Errorf("read object %s: %w", location, err)
	}
	return buf, nil
}

// Remove deletes the object at location.
func (b *Bucket) Remove(ctx context.Context, location string) error {
	if err := b.client.RemoveObject(ctx, b.name, location, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", location, err)
	}
	return nil
}

// PresignGet returns a signed GET URL for location.
func (b *Bucket) PresignGet(ctx context.Context, location string, ttl time.Duration) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(location)))
	u, err := b.client.PresignedGetObject(ctx, b.name, location, ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", location, err)
	}
	return u.String(), nil
}
