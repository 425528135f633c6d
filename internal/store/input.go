package store

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"unicode/utf8"
)

// Input reads model fields sequentially from a stream. It buffers
// internally, so the caller should hand over the underlying reader and
// not touch it again.
//
// Input keeps internal state (the stream position) and may only be used
// from one thread. Concurrent handles read from independent cursors over
// a memory-mapped file instead (see internal/mmap).
type Input struct {
	r   *bufio.Reader
	buf [8]byte
}

// NewInput wraps r for sequential field reads.
func NewInput(r io.Reader) *Input {
	return &Input{r: bufio.NewReaderSize(r, 256*1024)}
}

func mapEOF(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTruncated
	}
	return err
}

// ReadByte reads a single byte.
func (in *Input) ReadByte() (byte, error) {
	b, err := in.r.ReadByte()
	if err != nil {
		return 0, mapEOF(err)
	}
	return b, nil
}

// ReadBytes fills p from the stream.
func (in *Input) ReadBytes(p []byte) error {
	if _, err := io.ReadFull(in.r, p); err != nil {
		return mapEOF(err)
	}
	return nil
}

// ReadInt32 reads four little-endian bytes as a signed 32-bit integer.
func (in *Input) ReadInt32() (int32, error) {
	if err := in.ReadBytes(in.buf[:4]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(in.buf[:4])), nil
}

// ReadInt64 reads eight little-endian bytes as a signed 64-bit integer.
func (in *Input) ReadInt64() (int64, error) {
	if err := in.ReadBytes(in.buf[:8]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(in.buf[:8])), nil
}

// ReadFloat32 reads a little-endian IEEE-754 single.
func (in *Input) ReadFloat32() (float32, error) {
	if err := in.ReadBytes(in.buf[:4]); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(in.buf[:4])), nil
}

// ReadFloat32Into bulk-reads len(dst) singles into dst.
func (in *Input) ReadFloat32Into(dst []float32) error {
	const chunk = 4096
	raw := make([]byte, 4*min(len(dst), chunk))
	for len(dst) > 0 {
		n := min(len(dst), chunk)
		if err := in.ReadBytes(raw[:4*n]); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
		}
		dst = dst[n:]
	}
	return nil
}

// ReadFloat64 reads a little-endian IEEE-754 double.
func (in *Input) ReadFloat64() (float64, error) {
	if err := in.ReadBytes(in.buf[:8]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(in.buf[:8])), nil
}

// ReadBool reads a single byte as a boolean.
func (in *Input) ReadBool() (bool, error) {
	b, err := in.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// isCStringTerminator reports whether b ends a native-dialect string.
func isCStringTerminator(b byte) bool {
	return b == 0x00 || b == 0x20 || b == 0x0A
}

// ReadCString reads a native-dialect string. The terminating byte is
// consumed but not part of the result.
func (in *Input) ReadCString() (string, error) {
	var sb bytes.Buffer
	for {
		b, err := in.r.ReadByte()
		if err != nil {
			return "", mapEOF(err)
		}
		if isCStringTerminator(b) {
			break
		}
		sb.WriteByte(b)
	}
	if !utf8.Valid(sb.Bytes()) {
		return "", ErrInvalidUTF8
	}
	return sb.String(), nil
}

// ReadString reads a length-prefixed string.
func (in *Input) ReadString() (string, error) {
	n, err := in.ReadInt32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", ErrTruncated
	}
	raw := make([]byte, n)
	if err := in.ReadBytes(raw); err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", ErrInvalidUTF8
	}
	return string(raw), nil
}

var _ DataInput = (*Input)(nil)
