package fasttextgo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/fasttextgo/internal/dict"
	"github.com/hupe1980/fasttextgo/internal/matrix"
	"github.com/hupe1980/fasttextgo/internal/store"
)

// saveFile writes a file atomically: into a temp sibling first, then
// renamed over the target.
func saveFile(path string, write func(out *store.Output) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()
	_ = tmp.Chmod(0o644)

	out := store.NewOutput(tmp)
	if err := write(out); err != nil {
		return err
	}
	if err := out.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	tmpName = ""

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// memDict returns the in-memory dictionary, which the save paths need.
func (ft *FastText) memDict() (*dict.Dict, error) {
	d, ok := ft.dict.(*dict.Dict)
	if !ok {
		return nil, fmt.Errorf("%w: cannot save a memory-mapped model", ErrInvalidArgument)
	}
	return d, nil
}

func (ft *FastText) signModel(out *store.Output) error {
	if err := out.WriteInt32(formatMagic); err != nil {
		return err
	}
	return out.WriteInt32(int32(ft.version))
}

// WriteModel writes the model in the native single-file layout.
func (ft *FastText) WriteModel(out *store.Output) error {
	d, err := ft.memDict()
	if err != nil {
		return err
	}
	if err := ft.signModel(out); err != nil {
		return err
	}
	if err := ft.cfg.Save(out); err != nil {
		return err
	}
	if err := d.Save(out); err != nil {
		return err
	}
	if err := out.WriteBool(ft.quant); err != nil {
		return err
	}
	if ft.quant {
		if err := ft.qinput.(*matrix.QMatrix).Save(out); err != nil {
			return err
		}
	} else {
		if err := ft.input.(*matrix.Matrix).Save(out); err != nil {
			return err
		}
	}
	if err := out.WriteBool(ft.cfg.QOut); err != nil {
		return err
	}
	if ft.quant && ft.cfg.QOut {
		return ft.qoutput.Save(out)
	}
	return ft.output.Save(out)
}

// SaveModel writes the model in the native single-file layout to path,
// appending ".ftz" for quantized models and ".bin" otherwise.
// Memory-mapped handles cannot be saved.
func (ft *FastText) SaveModel(ctx context.Context, path string) error {
	if err := ft.checkOpen(); err != nil {
		return err
	}
	if _, err := ft.memDict(); err != nil {
		return err
	}
	if ft.quant {
		path += ".ftz"
	} else {
		path += ".bin"
	}
	ft.logger.InfoContext(ctx, "saving model", "path", path)
	return saveFile(path, ft.WriteModel)
}

// SaveAsMemoryMappedModel converts the model into the split on-disk
// layout under dir: model.bin or model.ftz with args and the output
// matrix, dict.mmap with the dictionary, and in.mmap with the input
// matrix. The three files are written concurrently.
func (ft *FastText) SaveAsMemoryMappedModel(ctx context.Context, dir string) error {
	if err := ft.checkOpen(); err != nil {
		return err
	}
	d, err := ft.memDict()
	if err != nil {
		return err
	}

	start := time.Now()
	modelName := modelBinName
	if ft.quant {
		modelName = modelFtzName
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return saveFile(filepath.Join(dir, modelName), func(out *store.Output) error {
			if err := ft.signModel(out); err != nil {
				return err
			}
			if err := ft.cfg.Save(out); err != nil {
				return err
			}
			if err := out.WriteBool(ft.quant); err != nil {
				return err
			}
			if err := out.WriteBool(ft.cfg.QOut); err != nil {
				return err
			}
			if ft.quant && ft.cfg.QOut {
				return ft.qoutput.Save(out)
			}
			return ft.output.Save(out)
		})
	})
	g.Go(func() error {
		return saveFile(filepath.Join(dir, dictMMapName), d.SaveMMap)
	})
	g.Go(func() error {
		return saveFile(filepath.Join(dir, inMMapName), func(out *store.Output) error {
			if ft.quant {
				return ft.qinput.(*matrix.QMatrix).Save(out)
			}
			return ft.input.(*matrix.Matrix).Save(out)
		})
	})

	err = g.Wait()
	ft.logger.LogConvert(ctx, dir, time.Since(start).Seconds(), err)
	return err
}
