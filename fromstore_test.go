package fasttextgo

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fasttextgo/blobstore"
)

func TestLoadModelFromStoreSingleFile(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	bs.Put("models/tiny.bin", supSpec().bytes(t))

	ft, err := LoadModelFromStore(ctx, bs, "models/tiny.bin",
		WithCacheDir(t.TempDir()),
		WithDownloadRateLimit(10<<20),
	)
	require.NoError(t, err)
	defer ft.Close()

	preds, err := ft.Predict("hello world", 1, 0)
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, "__label__greeting", preds[0].Label)
}

func TestLoadModelFromStoreDirectory(t *testing.T) {
	ctx := context.Background()

	// Convert a model locally, then serve the sidecar files from a
	// local store rooted at the conversion output.
	ft, err := ReadModel(ctx, bytes.NewReader(supSpec().bytes(t)))
	require.NoError(t, err)
	defer ft.Close()

	root := t.TempDir()
	require.NoError(t, ft.SaveAsMemoryMappedModel(ctx, filepath.Join(root, "langid")))

	bs := blobstore.NewLocalStore(root)
	mm, err := LoadModelFromStore(ctx, bs, "langid", WithCacheDir(t.TempDir()))
	require.NoError(t, err)
	defer mm.Close()

	assert.True(t, mm.MemoryMapped())

	want, err := ft.Predict("hello world", 2, 0)
	require.NoError(t, err)
	got, err := mm.Predict("hello world", 2, 0)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Label, got[i].Label)
	}
}

func TestLoadModelFromStoreMissing(t *testing.T) {
	bs := blobstore.NewMemoryStore()
	_, err := LoadModelFromStore(context.Background(), bs, "nope.bin", WithCacheDir(t.TempDir()))
	assert.Error(t, err)
}
