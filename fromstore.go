package fasttextgo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/fasttextgo/blobstore"
)

// LoadModelFromStore fetches a model from a blob store into the local
// cache directory and opens it. When listing name + "/" returns any
// blobs, name is treated as a converted memory-mapped model directory;
// otherwise it is fetched as a single native model file.
func LoadModelFromStore(ctx context.Context, bs blobstore.BlobStore, name string, opts ...Option) (*FastText, error) {
	o := applyOptions(opts)

	cacheDir := o.cacheDir
	if cacheDir == "" {
		dir, err := os.MkdirTemp("", "fasttextgo-cache-*")
		if err != nil {
			return nil, err
		}
		cacheDir = dir
	} else if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, err
	}

	dirName := strings.TrimSuffix(name, "/")
	entries, err := bs.List(ctx, dirName+"/")
	if err != nil {
		return nil, err
	}

	if len(entries) > 0 {
		localDir := filepath.Join(cacheDir, filepath.Base(dirName))
		if err := fetchDir(ctx, bs, entries, localDir, o); err != nil {
			return nil, err
		}
		return LoadModel(ctx, localDir, opts...)
	}

	localPath := filepath.Join(cacheDir, filepath.Base(name))
	if err := fetchBlob(ctx, bs, name, localPath, o); err != nil {
		return nil, err
	}
	return LoadModel(ctx, localPath, opts...)
}

// fetchDir downloads a converted model's sidecar files concurrently.
func fetchDir(ctx context.Context, bs blobstore.BlobStore, entries []string, localDir string, o *options) error {
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return err
	}
	wanted := map[string]bool{
		modelBinName: true,
		modelFtzName: true,
		dictMMapName: true,
		inMMapName:   true,
	}
	g, gctx := errgroup.WithContext(ctx)
	found := 0
	for _, entry := range entries {
		base := entry[strings.LastIndex(entry, "/")+1:]
		if !wanted[base] {
			continue
		}
		found++
		g.Go(func() error {
			return fetchBlob(gctx, bs, entry, filepath.Join(localDir, base), o)
		})
	}
	if found == 0 {
		return fmt.Errorf("%w: no model files found", blobstore.ErrNotFound)
	}
	return g.Wait()
}

func fetchBlob(ctx context.Context, bs blobstore.BlobStore, name, localPath string, o *options) error {
	f, err := os.CreateTemp(filepath.Dir(localPath), filepath.Base(localPath)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := f.Name()
	defer func() {
		_ = f.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	w := blobstore.NewRateLimitedWriter(ctx, f, o.downloadRate)
	if err := bs.Fetch(ctx, name, w); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, localPath); err != nil {
		return err
	}
	tmpName = ""
	return nil
}
