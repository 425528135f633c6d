package store

import (
	"bufio"
	"encoding/binary"
	"hash"
	"io"
	"math"

	internalhash "github.com/hupe1980/fasttextgo/internal/hash"
)

// Output writes model fields sequentially to a stream while maintaining
// a running CRC32 and a byte counter. Flush flushes the buffer; the
// underlying writer is not closed.
type Output struct {
	w   *bufio.Writer
	crc hash.Hash32
	n   int64
	buf [8]byte
}

// NewOutput wraps w for sequential field writes.
func NewOutput(w io.Writer) *Output {
	return &Output{
		w:   bufio.NewWriterSize(w, 256*1024),
		crc: internalhash.NewCRC32(),
	}
}

func (out *Output) write(p []byte) error {
	if _, err := out.w.Write(p); err != nil {
		return err
	}
	_, _ = out.crc.Write(p)
	out.n += int64(len(p))
	return nil
}

// WriteByte writes a single byte.
func (out *Output) WriteByte(b byte) error {
	return out.write([]byte{b})
}

// WriteBytes writes p verbatim.
func (out *Output) WriteBytes(p []byte) error {
	return out.write(p)
}

// WriteInt32 writes a signed 32-bit integer, low-order bytes first.
func (out *Output) WriteInt32(v int32) error {
	binary.LittleEndian.PutUint32(out.buf[:4], uint32(v))
	return out.write(out.buf[:4])
}

// WriteInt64 writes a signed 64-bit integer, low-order bytes first.
func (out *Output) WriteInt64(v int64) error {
	binary.LittleEndian.PutUint64(out.buf[:8], uint64(v))
	return out.write(out.buf[:8])
}

// WriteFloat32 writes a little-endian IEEE-754 single.
func (out *Output) WriteFloat32(v float32) error {
	binary.LittleEndian.PutUint32(out.buf[:4], math.Float32bits(v))
	return out.write(out.buf[:4])
}

// WriteFloat32Slice bulk-writes src.
func (out *Output) WriteFloat32Slice(src []float32) error {
	for _, v := range src {
		if err := out.WriteFloat32(v); err != nil {
			return err
		}
	}
	return nil
}

// WriteFloat64 writes a little-endian IEEE-754 double.
func (out *Output) WriteFloat64(v float64) error {
	binary.LittleEndian.PutUint64(out.buf[:8], math.Float64bits(v))
	return out.write(out.buf[:8])
}

// WriteBool writes a boolean as a 0/1 byte.
func (out *Output) WriteBool(v bool) error {
	if v {
		return out.WriteByte(1)
	}
	return out.WriteByte(0)
}

// WriteCString writes a native-dialect string: the UTF-8 bytes followed
// by a single 0x00 terminator.
func (out *Output) WriteCString(s string) error {
	if err := out.write([]byte(s)); err != nil {
		return err
	}
	return out.WriteByte(0)
}

// WriteString writes a length-prefixed string.
func (out *Output) WriteString(s string) error {
	if err := out.WriteInt32(int32(len(s))); err != nil {
		return err
	}
	return out.write([]byte(s))
}

// WritePadded writes p into a field of the given width, zero-filling
// the remainder. len(p) must not exceed width.
func (out *Output) WritePadded(p []byte, width int) error {
	if err := out.write(p); err != nil {
		return err
	}
	return out.WriteZeros(width - len(p))
}

// WriteZeros writes n zero bytes.
func (out *Output) WriteZeros(n int) error {
	var zeros [64]byte
	for n > 0 {
		step := min(n, len(zeros))
		if err := out.write(zeros[:step]); err != nil {
			return err
		}
		n -= step
	}
	return nil
}

// BytesWritten returns the number of bytes written so far.
func (out *Output) BytesWritten() int64 {
	return out.n
}

// Checksum returns the CRC32 of the bytes written so far.
func (out *Output) Checksum() uint32 {
	return out.crc.Sum32()
}

// Flush flushes buffered bytes to the underlying writer.
func (out *Output) Flush() error {
	return out.w.Flush()
}
