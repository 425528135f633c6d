// Package minio provides a BlobStore backed by MinIO or any
// S3-compatible object store reachable through the MinIO client.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/fasttextgo/blobstore"
)

// Options configure the store.
type Options struct {
	// Prefix is prepended to every blob name.
	Prefix string

	// AccessKey and SecretKey are static credentials; when empty the
	// client falls back to environment credentials.
	AccessKey string
	SecretKey string

	// Secure selects TLS.
	Secure bool

	// Client overrides the client built from the options above.
	Client *minio.Client
}

// WithPrefix sets the object-name prefix.
func WithPrefix(prefix string) func(*Options) {
	return func(o *Options) {
		o.Prefix = prefix
	}
}

// WithCredentials sets static credentials.
func WithCredentials(accessKey, secretKey string) func(*Options) {
	return func(o *Options) {
		o.AccessKey = accessKey
		o.SecretKey = secretKey
	}
}

// WithSecure enables TLS.
func WithSecure(secure bool) func(*Options) {
	return func(o *Options) {
		o.Secure = secure
	}
}

// WithClient injects a pre-configured MinIO client.
func WithClient(client *minio.Client) func(*Options) {
	return func(o *Options) {
		o.Client = client
	}
}

// Store is a MinIO-backed BlobStore.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ blobstore.BlobStore = (*Store)(nil)

// New creates a store for the given endpoint and bucket.
func New(endpoint, bucket string, optFns ...func(*Options)) (*Store, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	client := opts.Client
	if client == nil {
		var creds *credentials.Credentials
		if opts.AccessKey != "" {
			creds = credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, "")
		} else {
			creds = credentials.NewEnvMinio()
		}
		var err error
		client, err = minio.New(endpoint, &minio.Options{
			Creds:  creds,
			Secure: opts.Secure,
		})
		if err != nil {
			return nil, fmt.Errorf("minio: new client: %w", err)
		}
	}
	return &Store{client: client, bucket: bucket, prefix: opts.Prefix}, nil
}

// Fetch downloads the blob into w.
func (s *Store) Fetch(ctx context.Context, name string, w io.Writer) error {
	key := s.prefix + name
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("minio: fetch %s: %w", key, err)
	}
	defer obj.Close()
	if _, err := io.Copy(w, obj); err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return fmt.Errorf("%w: %s/%s", blobstore.ErrNotFound, s.bucket, key)
		}
		return fmt.Errorf("minio: fetch %s: %w", key, err)
	}
	return nil
}

// List returns the blob names under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix + prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("minio: list %s: %w", prefix, obj.Err)
		}
		names = append(names, obj.Key[len(s.prefix):])
	}
	return names, nil
}
