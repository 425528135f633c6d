// Package mmap maps model files into memory as a sequence of read-only
// chunks and exposes absolute-position cursors over them.
//
// Memory mapping uses up a portion of the virtual address space of the
// process equal to the size of the file being mapped. On 32-bit
// platforms the chunk size is reduced so large models still map.
package mmap

import (
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
)

// DefaultMaxChunkSize bounds a single mapped chunk: 1 GiB on 64-bit
// platforms, 256 MiB on 32-bit ones.
var DefaultMaxChunkSize = func() int {
	if strconv.IntSize == 64 {
		return 1 << 30
	}
	return 1 << 28
}()

// ErrMapFailed wraps an mmap syscall failure with advisory context on
// address-space limits.
type ErrMapFailed struct {
	Path  string
	Size  int64
	cause error
}

func (e *ErrMapFailed) Error() string {
	advice := "review 'ulimit -v', 'ulimit -m' and vm.max_map_count"
	if strconv.IntSize != 64 {
		advice = "32-bit address space is too small for large models; use a 64-bit build"
	}
	return fmt.Sprintf("mmap %s failed mapping %d bytes (%s): %v", e.Path, e.Size, advice, e.cause)
}

func (e *ErrMapFailed) Unwrap() error { return e.cause }

// Options configure how a file is mapped.
type Options struct {
	// MaxChunkSize caps the size of a single mapped chunk. Must be a
	// power of two; zero selects DefaultMaxChunkSize.
	MaxChunkSize int

	// Preload asks the OS to page the mapping into physical memory on
	// open. Best-effort and operating system dependent.
	Preload bool
}

// File is a read-only memory-mapped file split into fixed-size chunks.
// It is safe to read from multiple cursors concurrently. Close belongs to
// the owning handle; calls after the first are no-ops.
type File struct {
	path           string
	size           int64
	chunkSizePower uint
	chunks         [][]byte
	f              *os.File
	closed         atomic.Bool
}

// Open maps the file at path.
func Open(path string, opts Options) (*File, error) {
	maxChunk := opts.MaxChunkSize
	if maxChunk <= 0 {
		maxChunk = DefaultMaxChunkSize
	}
	if maxChunk&(maxChunk-1) != 0 {
		return nil, fmt.Errorf("mmap: max chunk size %d is not a power of two", maxChunk)
	}
	power := uint(0)
	for 1<<(power+1) <= maxChunk {
		power++
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := fi.Size()

	m := &File{
		path:           path,
		size:           size,
		chunkSizePower: power,
		f:              f,
	}

	chunkSize := int64(1) << power
	for start := int64(0); start < size; start += chunkSize {
		length := min(chunkSize, size-start)
		data, err := mapChunk(f, start, int(length))
		if err != nil {
			m.unmapAll()
			f.Close()
			return nil, &ErrMapFailed{Path: path, Size: length, cause: err}
		}
		if opts.Preload {
			// Best-effort paging hint; failures are ignored.
			_ = preload(data)
		}
		m.chunks = append(m.chunks, data)
	}

	return m, nil
}

// Path returns the mapped file's path.
func (m *File) Path() string { return m.path }

// Size returns the mapped file's length in bytes.
func (m *File) Size() int64 { return m.size }

// Cursor returns a new independent cursor positioned at the start.
func (m *File) Cursor() *Cursor {
	return &Cursor{f: m}
}

func (m *File) unmapAll() {
	for _, c := range m.chunks {
		_ = unmapChunk(c)
	}
	m.chunks = nil
}

// Close unmaps the file and closes the underlying descriptor. Reads
// through any cursor fail afterwards.
func (m *File) Close() error {
	if m == nil || !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	m.unmapAll()
	if m.f != nil {
		err := m.f.Close()
		m.f = nil
		return err
	}
	return nil
}
