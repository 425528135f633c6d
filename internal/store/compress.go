package store

import (
	"bufio"
	"compress/gzip"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compressed-model magic bytes. Models are often shipped gzip-, zstd- or
// lz4-frame compressed; sniffing keeps the loader oblivious to how the
// file was stored. Only the in-memory loader can use this: the
// memory-mapped form requires raw files.
var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

// MaybeDecompress sniffs the stream's leading bytes and transparently
// wraps r in the matching decompressor. Uncompressed streams are
// returned as-is (buffered).
func MaybeDecompress(r io.Reader) (io.Reader, error) {
	br := bufio.NewReaderSize(r, 256*1024)
	head, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return nil, err
	}

	switch {
	case hasPrefix(head, gzipMagic):
		return gzip.NewReader(br)
	case hasPrefix(head, zstdMagic):
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case hasPrefix(head, lz4Magic):
		return lz4.NewReader(br), nil
	default:
		return br, nil
	}
}
