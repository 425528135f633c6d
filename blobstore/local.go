package blobstore

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore serves blobs from a directory tree. Blob names use
// forward slashes relative to the base directory.
type LocalStore struct {
	baseDir string
}

var _ BlobStore = (*LocalStore)(nil)

// NewLocalStore creates a store rooted at baseDir.
func NewLocalStore(baseDir string) *LocalStore {
	return &LocalStore{baseDir: baseDir}
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(name))
}

// Fetch copies the named file into w.
func (s *LocalStore) Fetch(ctx context.Context, name string, w io.Writer) error {
	f, err := os.Open(s.path(name))
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// List returns the relative paths of all files under prefix.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}
