package fasttextgo

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/fasttextgo/args"
	"github.com/hupe1980/fasttextgo/internal/dict"
	"github.com/hupe1980/fasttextgo/internal/matrix"
	"github.com/hupe1980/fasttextgo/internal/mmap"
	"github.com/hupe1980/fasttextgo/internal/model"
	"github.com/hupe1980/fasttextgo/internal/store"
)

const (
	// FormatVersion is the newest supported binary format version.
	FormatVersion = 12

	// formatMagic signs every fastText model file.
	formatMagic int32 = 793712314

	// oldestVersion is the oldest version loadable with back-compat flags.
	oldestVersion = 11
)

// Sidecar file names of the memory-mapped layout.
const (
	modelBinName = "model.bin"
	modelFtzName = "model.ftz"
	dictMMapName = "dict.mmap"
	inMMapName   = "in.mmap"
)

// FastText is a loaded model handle. It keeps internal state (mmap
// cursors, the model's scratch vectors) and may only be used from one
// goroutine; use Clone for concurrent access.
type FastText struct {
	cfg     *args.Args
	version int

	dict dict.Dictionary

	input  matrix.Readable // nil when quantized
	output *matrix.Matrix  // nil when quantized with qout

	qinput  matrix.QReadable
	qoutput *matrix.QMatrix

	quant   bool
	mmapped bool

	model *model.Model

	logger *Logger
	opts   *options

	// Shared across clones: the lazily published word-vector matrix and
	// the closed flag of the owning handle.
	wordVectors *atomic.Pointer[matrix.Matrix]
	precompute  *singleflight.Group
	closed      *atomic.Bool
}

// Args returns the model's hyper-parameter record.
func (ft *FastText) Args() *args.Args { return ft.cfg }

// Version returns the loaded binary format version.
func (ft *FastText) Version() int { return ft.version }

// Quantized reports whether the input matrix is product-quantized.
func (ft *FastText) Quantized() bool { return ft.quant }

// MemoryMapped reports whether the model reads from mapped files.
func (ft *FastText) MemoryMapped() bool { return ft.mmapped }

// Dimension returns the embedding dimension.
func (ft *FastText) Dimension() int { return ft.cfg.Dim }

// Size returns the number of dictionary entries.
func (ft *FastText) Size() int { return ft.dict.Size() }

// NWords returns the vocabulary size.
func (ft *FastText) NWords() int { return ft.dict.NWords() }

// NLabels returns the label count.
func (ft *FastText) NLabels() int { return ft.dict.NLabels() }

// Words returns the vocabulary in id order.
func (ft *FastText) Words() ([]string, error) {
	words := make([]string, ft.dict.NWords())
	for i := range words {
		w, err := ft.dict.Word(i)
		if err != nil {
			return nil, translateError(err)
		}
		words[i] = w
	}
	return words, nil
}

// Labels returns the label set in label-id order.
func (ft *FastText) Labels() ([]string, error) {
	labels := make([]string, ft.dict.NLabels())
	for i := range labels {
		l, err := ft.dict.Label(i)
		if err != nil {
			return nil, translateError(err)
		}
		labels[i] = l
	}
	return labels, nil
}

// WordID returns the vocabulary id of word, or -1 if absent.
func (ft *FastText) WordID(word string) (int, error) {
	id, err := ft.dict.ID(word)
	return id, translateError(err)
}

// Contains reports whether word is in the vocabulary.
func (ft *FastText) Contains(word string) (bool, error) {
	ok, err := ft.dict.Contains(word)
	return ok, translateError(err)
}

// Subwords returns the subword ids of word alongside the n-gram strings,
// the word itself first (id -1 when out of vocabulary).
func (ft *FastText) Subwords(word string) ([]int32, []string, error) {
	ids, substrings, err := ft.dict.SubwordsWithStrings(word)
	return ids, substrings, translateError(err)
}

func (ft *FastText) checkOpen() error {
	if ft.closed.Load() {
		return ErrAlreadyClosed
	}
	return nil
}

// LoadModel loads a fastText model from path. A directory is opened as
// a memory-mapped model (model.bin or model.ftz, dict.mmap, in.mmap); a
// single file is loaded fully into memory, transparently decompressed
// when gzip/zstd/lz4 compressed.
func LoadModel(ctx context.Context, path string, opts ...Option) (*FastText, error) {
	o := applyOptions(opts)

	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var ft *FastText
	if fi.IsDir() {
		ft, err = loadMMapModel(ctx, path, o)
	} else {
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		ft, err = readModel(ctx, f, o)
	}
	o.logger.LogLoad(ctx, path, fi.IsDir(), time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}
	return ft, nil
}

// ReadModel loads an in-memory model from r, transparently decompressed
// when gzip/zstd/lz4 compressed.
func ReadModel(ctx context.Context, r io.Reader, opts ...Option) (*FastText, error) {
	o := applyOptions(opts)
	return readModel(ctx, r, o)
}

func readModel(ctx context.Context, r io.Reader, o *options) (*FastText, error) {
	raw, err := store.MaybeDecompress(r)
	if err != nil {
		return nil, err
	}
	in := store.NewInput(raw)

	version, cfg, err := readSignedArgs(in)
	if err != nil {
		return nil, err
	}

	d, err := dict.Load(cfg, in)
	if err != nil {
		return nil, translateError(err)
	}

	quant, err := in.ReadBool()
	if err != nil {
		return nil, translateError(err)
	}

	ft := &FastText{
		cfg:     cfg,
		version: version,
		dict:    d,
		quant:   quant,
		logger:  o.logger,
		opts:    o,
	}
	if quant {
		if ft.qinput, err = matrix.LoadQMatrix(in); err != nil {
			return nil, translateError(err)
		}
	} else {
		var input *matrix.Matrix
		if input, err = matrix.Load(in); err != nil {
			return nil, translateError(err)
		}
		ft.input = input
	}

	if err := checkPruning(quant, d); err != nil {
		return nil, err
	}

	qout, err := in.ReadBool()
	if err != nil {
		return nil, translateError(err)
	}
	cfg.QOut = qout

	if quant && qout {
		if ft.qoutput, err = matrix.LoadQMatrix(in); err != nil {
			return nil, translateError(err)
		}
	} else {
		if ft.output, err = matrix.Load(in); err != nil {
			return nil, translateError(err)
		}
	}

	if err := ft.buildModel(); err != nil {
		return nil, err
	}
	return ft, nil
}

func loadMMapModel(ctx context.Context, dirPath string, o *options) (*FastText, error) {
	modelPath := filepath.Join(dirPath, modelBinName)
	if _, err := os.Stat(modelPath); err != nil {
		modelPath = filepath.Join(dirPath, modelFtzName)
		if _, err := os.Stat(modelPath); err != nil {
			return nil, fmt.Errorf("%w: no %s or %s in %s", ErrInvalidModel, modelBinName, modelFtzName, dirPath)
		}
	}

	f, err := os.Open(modelPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	in := store.NewInput(f)

	version, cfg, err := readSignedArgs(in)
	if err != nil {
		return nil, err
	}

	mmapOpts := mmap.Options{MaxChunkSize: o.maxChunkSize, Preload: o.preload}
	dictFile, err := mmap.Open(filepath.Join(dirPath, dictMMapName), mmapOpts)
	if err != nil {
		return nil, translateError(err)
	}
	d, err := dict.LoadMMap(cfg, dictFile)
	if err != nil {
		dictFile.Close()
		return nil, translateError(err)
	}

	quant, err := in.ReadBool()
	if err != nil {
		d.Close()
		return nil, translateError(err)
	}
	qout, err := in.ReadBool()
	if err != nil {
		d.Close()
		return nil, translateError(err)
	}
	cfg.QOut = qout

	ft := &FastText{
		cfg:     cfg,
		version: version,
		dict:    d,
		quant:   quant,
		mmapped: true,
		logger:  o.logger,
		opts:    o,
	}

	inFile, err := mmap.Open(filepath.Join(dirPath, inMMapName), mmapOpts)
	if err != nil {
		d.Close()
		return nil, translateError(err)
	}
	if quant {
		if ft.qinput, err = matrix.LoadMMapQMatrix(inFile); err != nil {
			inFile.Close()
			d.Close()
			return nil, translateError(err)
		}
	} else {
		var input *matrix.MMapMatrix
		if input, err = matrix.LoadMMapMatrix(inFile); err != nil {
			inFile.Close()
			d.Close()
			return nil, translateError(err)
		}
		ft.input = input
	}

	if err := checkPruning(quant, d); err != nil {
		ft.closeMatrices()
		d.Close()
		return nil, err
	}

	if quant && qout {
		if ft.qoutput, err = matrix.LoadQMatrix(in); err != nil {
			ft.closeMatrices()
			d.Close()
			return nil, translateError(err)
		}
	} else {
		if ft.output, err = matrix.Load(in); err != nil {
			ft.closeMatrices()
			d.Close()
			return nil, translateError(err)
		}
	}

	if err := ft.buildModel(); err != nil {
		ft.closeMatrices()
		d.Close()
		return nil, err
	}
	return ft, nil
}

// readSignedArgs checks the model signature and loads the args section,
// applying version back-compat.
func readSignedArgs(in store.DataInput) (int, *args.Args, error) {
	magic, err := in.ReadInt32()
	if err != nil {
		return 0, nil, translateError(err)
	}
	if magic != formatMagic {
		return 0, nil, fmt.Errorf("%w: unhandled file format (magic %d)", ErrInvalidModel, magic)
	}
	version32, err := in.ReadInt32()
	if err != nil {
		return 0, nil, translateError(err)
	}
	version := int(version32)
	if version < oldestVersion || version > FormatVersion {
		return 0, nil, &ErrUnsupportedVersion{Version: version}
	}

	cfg, err := args.Load(in)
	if err != nil {
		return 0, nil, translateError(err)
	}
	cfg.ApplyVersionCompat(version)
	return version, cfg, nil
}

// checkPruning rejects pruned dictionaries paired with unquantized
// matrices; that combination only arises from corrupt or outdated files.
func checkPruning(quant bool, d dict.Dictionary) error {
	if !quant && d.Pruned() {
		return fmt.Errorf("%w: pruned dictionary without quantized matrix; please download the updated model", ErrInvalidModel)
	}
	return nil
}

func (ft *FastText) buildModel() error {
	countType := dict.Word
	if ft.cfg.Model == args.ModelSup {
		countType = dict.Label
	}
	counts, err := ft.dict.Counts(countType)
	if err != nil {
		return translateError(err)
	}
	ft.model = model.New(ft.cfg, ft.input, ft.output, ft.quant, ft.qinput, ft.qoutput, 0)
	if err := ft.model.SetTargetCounts(counts); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}
	ft.wordVectors = &atomic.Pointer[matrix.Matrix]{}
	ft.precompute = &singleflight.Group{}
	ft.closed = &atomic.Bool{}
	return nil
}

func (ft *FastText) closeMatrices() {
	if ft.quant {
		if ft.qinput != nil {
			_ = ft.qinput.Close()
		}
	} else if ft.input != nil {
		_ = ft.input.Close()
	}
}

// Clone returns a handle over the same model with independent cursors
// and scratch vectors. The receiver must outlive the clone; closing the
// receiver invalidates it. Cloning is O(1) in the model size.
func (ft *FastText) Clone() *FastText {
	c := *ft
	c.dict = ft.dict.Clone()
	if ft.quant {
		c.qinput = ft.qinput.CloneReader()
	} else {
		c.input = ft.input.CloneReader()
	}
	c.model = ft.model.CloneWith(c.input, c.output, c.qinput, c.qoutput)
	return &c
}

// Close releases the model's resources. For memory-mapped models this
// unmaps the dictionary and input matrix files; reads through clones
// fail with ErrAlreadyClosed afterwards. Close only the original
// handle, not clones.
func (ft *FastText) Close() error {
	if !ft.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := ft.dict.Close()
	if ft.quant {
		if cerr := ft.qinput.Close(); cerr != nil && err == nil {
			err = cerr
		}
	} else {
		if cerr := ft.input.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
