package mmap

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fasttextgo/internal/store"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestOpenAndReadScalars(t *testing.T) {
	data := make([]byte, 0, 32)
	data = binary.LittleEndian.AppendUint32(data, 0xDEADBEEF)
	data = binary.LittleEndian.AppendUint64(data, 1<<40)
	data = binary.LittleEndian.AppendUint32(data, math.Float32bits(2.5))
	data = append(data, 1)

	f, err := Open(writeTempFile(t, data), Options{})
	require.NoError(t, err)
	defer f.Close()

	cur := f.Cursor()

	i32, err := cur.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-559038737), i32) // 0xDEADBEEF as signed

	i64, err := cur.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<40), i64)

	f32, err := cur.ReadFloat32()
	require.NoError(t, err)
	assert.Equal(t, float32(2.5), f32)

	b, err := cur.ReadBool()
	require.NoError(t, err)
	assert.True(t, b)
}

func TestSeekAndChunkBoundary(t *testing.T) {
	// A tiny chunk size forces reads across chunk boundaries.
	data := make([]byte, 300)
	for i := range data {
		data[i] = byte(i)
	}
	f, err := Open(writeTempFile(t, data), Options{MaxChunkSize: 128})
	require.NoError(t, err)
	defer f.Close()

	require.Len(t, f.chunks, 3)

	cur := f.Cursor()
	require.NoError(t, cur.Seek(126))
	got := make([]byte, 6)
	require.NoError(t, cur.ReadBytes(got))
	assert.Equal(t, []byte{126, 127, 128, 129, 130, 131}, got)

	require.NoError(t, cur.Seek(299))
	b, err := cur.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(299%256), b)
}

func TestSeekOutOfRange(t *testing.T) {
	f, err := Open(writeTempFile(t, make([]byte, 10)), Options{})
	require.NoError(t, err)
	defer f.Close()

	cur := f.Cursor()
	assert.Error(t, cur.Seek(11))
	assert.Error(t, cur.Seek(-1))
}

func TestTruncatedRead(t *testing.T) {
	f, err := Open(writeTempFile(t, make([]byte, 3)), Options{})
	require.NoError(t, err)
	defer f.Close()

	cur := f.Cursor()
	_, err = cur.ReadInt32()
	assert.ErrorIs(t, err, store.ErrTruncated)
}

func TestCloneIsolation(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	f, err := Open(writeTempFile(t, data), Options{})
	require.NoError(t, err)
	defer f.Close()

	a := f.Cursor()
	b := a.Clone()

	_, err = a.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int64(4), a.Pos())
	assert.Equal(t, int64(0), b.Pos())

	got, err := b.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(1), got)
	assert.Equal(t, int64(4), a.Pos())
}

func TestReadAfterClose(t *testing.T) {
	f, err := Open(writeTempFile(t, make([]byte, 8)), Options{})
	require.NoError(t, err)

	cur := f.Cursor()
	clone := cur.Clone()
	require.NoError(t, f.Close())

	_, err = cur.ReadInt32()
	assert.ErrorIs(t, err, store.ErrAlreadyClosed)
	_, err = clone.ReadInt32()
	assert.ErrorIs(t, err, store.ErrAlreadyClosed)

	// Double close is a no-op.
	assert.NoError(t, f.Close())
}

func TestPreload(t *testing.T) {
	f, err := Open(writeTempFile(t, make([]byte, 4096)), Options{Preload: true})
	require.NoError(t, err)
	assert.NoError(t, f.Close())
}

func TestLengthPrefixedString(t *testing.T) {
	data := binary.LittleEndian.AppendUint32(nil, 3)
	data = append(data, 'a', 'b', 'c')
	f, err := Open(writeTempFile(t, data), Options{})
	require.NoError(t, err)
	defer f.Close()

	s, err := f.Cursor().ReadString()
	require.NoError(t, err)
	assert.Equal(t, "abc", s)
}
