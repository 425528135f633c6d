// Package s3 provides a BlobStore backed by Amazon S3 (or any
// S3-compatible endpoint). Models are fetched into a local cache
// directory before opening.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/fasttextgo/blobstore"
)

// Options configure the store.
type Options struct {
	// Prefix is prepended to every blob name.
	Prefix string

	// Client overrides the S3 client built from the default AWS config.
	Client *awss3.Client

	// PartSize is the download part size in bytes (default 8 MiB).
	PartSize int64
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) func(*Options) {
	return func(o *Options) {
		o.Prefix = prefix
	}
}

// WithClient injects a pre-configured S3 client.
func WithClient(client *awss3.Client) func(*Options) {
	return func(o *Options) {
		o.Client = client
	}
}

// Store is an S3-backed BlobStore.
type Store struct {
	client     *awss3.Client
	downloader *manager.Downloader
	bucket     string
	prefix     string
}

var _ blobstore.BlobStore = (*Store)(nil)

// New creates a store for the given bucket, using the default AWS
// configuration chain unless a client is injected.
func New(ctx context.Context, bucket string, optFns ...func(*Options)) (*Store, error) {
	opts := Options{PartSize: 8 * 1024 * 1024}
	for _, fn := range optFns {
		fn(&opts)
	}
	client := opts.Client
	if client == nil {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: load aws config: %w", err)
		}
		client = awss3.NewFromConfig(cfg)
	}
	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		d.PartSize = opts.PartSize
		// Sequential parts let us stream into a plain writer.
		d.Concurrency = 1
	})
	return &Store{
		client:     client,
		downloader: downloader,
		bucket:     bucket,
		prefix:     opts.Prefix,
	}, nil
}

// sequentialWriterAt adapts a streaming writer to the downloader's
// WriterAt contract. Valid only with Concurrency == 1, where parts
// arrive in order.
type sequentialWriterAt struct {
	w      io.Writer
	offset int64
	mu     sync.Mutex
}

func (s *sequentialWriterAt) WriteAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if off != s.offset {
		return 0, fmt.Errorf("s3: out-of-order write at %d, expected %d", off, s.offset)
	}
	n, err := s.w.Write(p)
	s.offset += int64(n)
	return n, err
}

// Fetch downloads the blob into w.
func (s *Store) Fetch(ctx context.Context, name string, w io.Writer) error {
	key := s.prefix + name
	_, err := s.downloader.Download(ctx, &sequentialWriterAt{w: w}, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return fmt.Errorf("%w: s3://%s/%s", blobstore.ErrNotFound, s.bucket, key)
		}
		return fmt.Errorf("s3: fetch %s: %w", key, err)
	}
	return nil
}

// List returns the blob names under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	paginator := awss3.NewListObjectsV2Paginator(s.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix + prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			names = append(names, aws.ToString(obj.Key)[len(s.prefix):])
		}
	}
	return names, nil
}
