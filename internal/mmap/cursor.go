package mmap

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/hupe1980/fasttextgo/internal/store"
)

// Cursor is an absolute-position reader over a mapped file. Cursors keep
// internal state (the position) and may only be used from one goroutine;
// Clone returns an independent cursor over the same mapping for use by
// another handle.
type Cursor struct {
	f   *File
	pos int64
	buf [8]byte
}

// Clone returns an independent cursor at the same position.
func (c *Cursor) Clone() *Cursor {
	return &Cursor{f: c.f, pos: c.pos}
}

// Pos returns the position of the next read.
func (c *Cursor) Pos() int64 { return c.pos }

// Seek sets the position of the next read.
func (c *Cursor) Seek(pos int64) error {
	if pos < 0 || pos > c.f.size {
		return fmt.Errorf("mmap: seek %d out of range [0, %d]", pos, c.f.size)
	}
	c.pos = pos
	return nil
}

// Skip advances the position by n bytes.
func (c *Cursor) Skip(n int64) error {
	return c.Seek(c.pos + n)
}

// ReadBytes fills p from the current position, crossing chunk boundaries
// as needed.
func (c *Cursor) ReadBytes(p []byte) error {
	if c.f.closed.Load() {
		return fmt.Errorf("%w: %s", store.ErrAlreadyClosed, c.f.path)
	}
	if c.pos+int64(len(p)) > c.f.size {
		return store.ErrTruncated
	}
	pos := c.pos
	power := c.f.chunkSizePower
	for len(p) > 0 {
		chunk := c.f.chunks[pos>>power]
		off := int(pos & ((1 << power) - 1))
		n := copy(p, chunk[off:])
		p = p[n:]
		pos += int64(n)
	}
	c.pos = pos
	return nil
}

// ReadByte reads a single byte.
func (c *Cursor) ReadByte() (byte, error) {
	if err := c.ReadBytes(c.buf[:1]); err != nil {
		return 0, err
	}
	return c.buf[0], nil
}

// ReadInt32 reads four little-endian bytes as a signed 32-bit integer.
func (c *Cursor) ReadInt32() (int32, error) {
	if err := c.ReadBytes(c.buf[:4]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(c.buf[:4])), nil
}

// ReadInt64 reads eight little-endian bytes as a signed 64-bit integer.
func (c *Cursor) ReadInt64() (int64, error) {
	if err := c.ReadBytes(c.buf[:8]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(c.buf[:8])), nil
}

// ReadFloat32 reads a little-endian IEEE-754 single.
func (c *Cursor) ReadFloat32() (float32, error) {
	if err := c.ReadBytes(c.buf[:4]); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(c.buf[:4])), nil
}

// ReadFloat32Into bulk-reads len(dst) singles into dst.
func (c *Cursor) ReadFloat32Into(dst []float32) error {
	const chunk = 4096
	raw := make([]byte, 4*min(len(dst), chunk))
	for len(dst) > 0 {
		n := min(len(dst), chunk)
		if err := c.ReadBytes(raw[:4*n]); err != nil {
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
func (c *Cursor) ReadFloat64() (float64, error) {
	if err := c.ReadBytes(c.buf[:8]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(c.buf[:8])), nil
}

// ReadBool reads a single byte as a boolean.
func (c *Cursor) ReadBool() (bool, error) {
	b, err := c.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// ReadCString reads a native-dialect string terminated by '\0', ' ' or '\n'.
func (c *Cursor) ReadCString() (string, error) {
	var raw []byte
	for {
		b, err := c.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0x00 || b == 0x20 || b == 0x0A {
			break
		}
		raw = append(raw, b)
	}
	if !utf8.Valid(raw) {
		return "", store.ErrInvalidUTF8
	}
	return string(raw), nil
}

// ReadString reads a length-prefixed string.
func (c *Cursor) ReadString() (string, error) {
	n, err := c.ReadInt32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", store.ErrTruncated
	}
	raw := make([]byte, n)
	if err := c.ReadBytes(raw); err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", store.ErrInvalidUTF8
	}
	return string(raw), nil
}

var _ store.DataInput = (*Cursor)(nil)
