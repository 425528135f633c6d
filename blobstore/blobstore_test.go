package blobstore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestLocalStoreFetchAndList(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "models", "langid"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models", "langid", "model.bin"), []byte("abc"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.bin"), []byte("x"), 0o644))

	s := NewLocalStore(dir)
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, s.Fetch(ctx, "models/langid/model.bin", &buf))
	assert.Equal(t, "abc", buf.String())

	names, err := s.List(ctx, "models/langid/")
	require.NoError(t, err)
	assert.Equal(t, []string{"models/langid/model.bin"}, names)

	err = s.Fetch(ctx, "missing.bin", &buf)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	s.Put("a/model.bin", []byte{1, 2, 3})
	s.Put("b.bin", []byte{9})
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, s.Fetch(ctx, "a/model.bin", &buf))
	assert.Equal(t, []byte{1, 2, 3}, buf.Bytes())

	names, err := s.List(ctx, "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/model.bin"}, names)

	err = s.Fetch(ctx, "nope", &buf)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRateLimitedWriterThrottles(t *testing.T) {
	var buf bytes.Buffer
	// 1 KiB/s with a 512-byte burst: writing 1 KiB must take a
	// measurable fraction of a second.
	limiter := rate.NewLimiter(1024, 512)
	w := NewRateLimitedWriter(context.Background(), &buf, limiter)

	start := time.Now()
	n, err := w.Write(make([]byte, 1024))
	require.NoError(t, err)
	assert.Equal(t, 1024, n)
	assert.Equal(t, 1024, buf.Len())
	assert.Greater(t, time.Since(start), 200*time.Millisecond)
}

func TestRateLimitedWriterNilLimiter(t *testing.T) {
	var buf bytes.Buffer
	w := NewRateLimitedWriter(context.Background(), &buf, nil)
	assert.Same(t, &buf, w)
}
