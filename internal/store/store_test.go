package store

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf)

	require.NoError(t, out.WriteInt32(-42))
	require.NoError(t, out.WriteInt64(1<<40))
	require.NoError(t, out.WriteFloat32(3.5))
	require.NoError(t, out.WriteFloat64(-1.25))
	require.NoError(t, out.WriteBool(true))
	require.NoError(t, out.WriteBool(false))
	require.NoError(t, out.WriteByte(0xAB))
	require.NoError(t, out.Flush())

	in := NewInput(&buf)

	i32, err := in.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-42), i32)

	i64, err := in.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<40), i64)

	f32, err := in.ReadFloat32()
	require.NoError(t, err)
	assert.Equal(t, float32(3.5), f32)

	f64, err := in.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, -1.25, f64)

	b, err := in.ReadBool()
	require.NoError(t, err)
	assert.True(t, b)

	b, err = in.ReadBool()
	require.NoError(t, err)
	assert.False(t, b)

	by, err := in.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), by)
}

func TestLittleEndianLayout(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf)
	require.NoError(t, out.WriteInt32(0x01020304))
	require.NoError(t, out.Flush())
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf.Bytes())
}

func TestCStringTerminators(t *testing.T) {
	for _, terminator := range []byte{0x00, 0x20, 0x0A} {
		in := NewInput(bytes.NewReader(append([]byte("hello"), terminator)))
		s, err := in.ReadCString()
		require.NoError(t, err)
		assert.Equal(t, "hello", s)
	}
}

func TestCStringWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf)
	require.NoError(t, out.WriteCString("héllo"))
	require.NoError(t, out.Flush())
	assert.Equal(t, byte(0), buf.Bytes()[buf.Len()-1])

	in := NewInput(&buf)
	s, err := in.ReadCString()
	require.NoError(t, err)
	assert.Equal(t, "héllo", s)
}

func TestLengthPrefixedString(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf)
	require.NoError(t, out.WriteString("wörld"))
	require.NoError(t, out.Flush())

	in := NewInput(&buf)
	s, err := in.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "wörld", s)
}

func TestTruncatedReads(t *testing.T) {
	in := NewInput(bytes.NewReader([]byte{0x01, 0x02}))
	_, err := in.ReadInt32()
	assert.ErrorIs(t, err, ErrTruncated)

	// C-string without terminator.
	in = NewInput(bytes.NewReader([]byte("abc")))
	_, err = in.ReadCString()
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestInvalidUTF8(t *testing.T) {
	in := NewInput(bytes.NewReader([]byte{0xFF, 0xFE, 0x00}))
	_, err := in.ReadCString()
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestOutputCountsAndChecksum(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf)
	require.NoError(t, out.WriteInt32(7))
	require.NoError(t, out.WriteBytes([]byte{1, 2, 3}))
	require.NoError(t, out.Flush())

	assert.Equal(t, int64(7), out.BytesWritten())
	assert.NotZero(t, out.Checksum())
}

func TestWritePadded(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf)
	require.NoError(t, out.WritePadded([]byte("ab"), 5))
	require.NoError(t, out.Flush())
	assert.Equal(t, []byte{'a', 'b', 0, 0, 0}, buf.Bytes())
}

func TestReadFloat32Into(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf)
	want := []float32{1, -2.5, 3e6, 0}
	require.NoError(t, out.WriteFloat32Slice(want))
	require.NoError(t, out.Flush())

	in := NewInput(&buf)
	got := make([]float32, len(want))
	require.NoError(t, in.ReadFloat32Into(got))
	assert.Equal(t, want, got)
}

func TestMaybeDecompress(t *testing.T) {
	payload := []byte("fasttext model bytes, definitely")

	t.Run("plain", func(t *testing.T) {
		r, err := MaybeDecompress(bytes.NewReader(payload))
		require.NoError(t, err)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("gzip", func(t *testing.T) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write(payload)
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		r, err := MaybeDecompress(&buf)
		require.NoError(t, err)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("zstd", func(t *testing.T) {
		var buf bytes.Buffer
		zw, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		_, err = zw.Write(payload)
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		r, err := MaybeDecompress(&buf)
		require.NoError(t, err)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("lz4", func(t *testing.T) {
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		_, err := zw.Write(payload)
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		r, err := MaybeDecompress(&buf)
		require.NoError(t, err)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})
}
