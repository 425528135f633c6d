package fasttextgo

import (
	"golang.org/x/time/rate"
)

type options struct {
	logger       *Logger
	preload      bool
	maxChunkSize int
	cacheDir     string
	downloadRate *rate.Limiter
}

// Option configures model loading.
type Option func(*options)

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithPreload asks the OS to page mapped model files into physical
// memory on open. Best-effort and operating system dependent. Only
// meaningful for memory-mapped models.
func WithPreload(preload bool) Option {
	return func(o *options) {
		o.preload = preload
	}
}

// WithMaxChunkSize caps the size of a single mapped chunk. Must be a
// power of two. The default is 1 GiB on 64-bit platforms and 256 MiB on
// 32-bit ones; reduce it when virtual address space is tight.
func WithMaxChunkSize(size int) Option {
	return func(o *options) {
		o.maxChunkSize = size
	}
}

// WithCacheDir sets the local directory blob-store models are fetched
// into before opening. Defaults to a new temporary directory created on
// each LoadModelFromStore call.
func WithCacheDir(dir string) Option {
	return func(o *options) {
		o.cacheDir = dir
	}
}

// WithDownloadRateLimit throttles blob-store downloads to the given
// number of bytes per second. Zero or negative disables throttling.
func WithDownloadRateLimit(bytesPerSecond int) Option {
	return func(o *options) {
		if bytesPerSecond <= 0 {
			o.downloadRate = nil
			return
		}
		o.downloadRate = rate.NewLimiter(rate.Limit(bytesPerSecond), bytesPerSecond)
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		logger: NoopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
