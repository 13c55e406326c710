// Package minio stores uploaded images in a MinIO or S3-compatible bucket.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kailas-cloud/pixdex/internal/domain"
	"github.com/kailas-cloud/pixdex/internal/version"
)

// Config holds object storage connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Secure    bool
	// PublicBaseURL overrides the scheme://endpoint part of object URLs,
	// e.g. when the bucket is served through a CDN or reverse proxy.
	PublicBaseURL string
	// KeyPrefix is prepended to every object name (e.g. "images/").
	KeyPrefix string
}

// Store implements image object storage on top of minio-go.
type Store struct {
	client  *minio.Client
	bucket  string
	region  string
	prefix  string
	baseURL string
}

// New connects a MinIO client. It does not perform network I/O.
func New(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	client.SetAppInfo(version.Name, version.Version)
	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *minio.Client, cfg Config) *Store {
	return &Store{
		client:  client,
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		prefix:  strings.Trim(cfg.KeyPrefix, "/"),
		baseURL: baseURL(cfg),
	}
}

func baseURL(cfg Config) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	scheme := "http"
	if cfg.Secure {
		scheme = "https"
	}
	return scheme + "://" + cfg.Endpoint
}

func (s *Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// URL returns the public path-style URL of an object.
func (s *Store) URL(name string) string {
	u, err := url.JoinPath(s.baseURL, s.bucket, s.key(name))
	if err != nil {
		return s.baseURL + "/" + s.bucket + "/" + s.key(name)
	}
	return u
}

// EnsureBucket creates the bucket when it does not exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: bucket exists %s: %w", domain.ErrStorageUnavailable, s.bucket, err)
	}
	if exists {
		return nil
	}
	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	if err != nil {
		if code := minio.ToErrorResponse(err).Code; code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
			return nil
		}
		return fmt.Errorf("%w: make bucket %s: %w", domain.ErrStorageUnavailable, s.bucket, err)
	}
	return nil
}

// Ping checks that the bucket is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("%w: bucket %s does not exist", domain.ErrStorageUnavailable, s.bucket)
	}
	return nil
}

// Upload writes data under name and returns the object URL.
func (s *Store) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("%w: put %s: %w", domain.ErrStorageUnavailable, name, err)
	}
	return s.URL(name), nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: remove %s: %w", domain.ErrStorageUnavailable, name, err)
	}
	return nil
}

// Get reads an object fully and returns its bytes and content type.
func (s *Store) Get(ctx context.Context, name string) (data []byte, contentType string, err error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, "", mapGetErr(name, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, "", mapGetErr(name, err)
	}
	data, err = io.ReadAll(obj)
	if err != nil {
		return nil, "", mapGetErr(name, err)
	}
	return data, info.ContentType, nil
}

func mapGetErr(name string, err error) error {
	if code := minio.ToErrorResponse(err).Code; code == "NoSuchKey" || code == "NotFound" {
		return fmt.Errorf("object %s: %w", name, domain.ErrNotFound)
	}
	return fmt.Errorf("%w: get %s: %w", domain.ErrStorageUnavailable, name, err)
}

// List returns every object name under the key prefix, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	opts := minio.ListObjectsOptions{Recursive: true}
	if s.prefix != "" {
		opts.Prefix = s.prefix + "/"
	}

	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: list %s: %w", domain.ErrStorageUnavailable, s.bucket, obj.Err)
		}
		if name := s.trimKey(obj.Key); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) trimKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimPrefix(strings.TrimPrefix(key, s.prefix), "/")
}
