package matrix

import (
	"fmt"
	"math"

	"github.com/hupe1980/fasttextgo/internal/mmap"
)

// mmapHeaderSize covers m and n, two int64 values, before the row data.
const mmapHeaderSize = 16

// MMapMatrix is a dense matrix backed by random-access reads from a
// mapped file. Element (i, j) lives at byte offset 16 + (i*n + j)*4.
type MMapMatrix struct {
	m, n int
	cur  *mmap.Cursor
	row  []float32

	// file is set on the owning reader; clones leave it nil.
	file *mmap.File
}

// LoadMMapMatrix opens a dense matrix over a mapped file.
func LoadMMapMatrix(f *mmap.File) (*MMapMatrix, error) {
	cur := f.Cursor()
	m, err := cur.ReadInt64()
	if err != nil {
		return nil, err
	}
	n, err := cur.ReadInt64()
	if err != nil {
		return nil, err
	}
	if m < 0 || n < 0 {
		return nil, fmt.Errorf("matrix: invalid shape %dx%d", m, n)
	}
	return &MMapMatrix{
		m:    int(m),
		n:    int(n),
		cur:  cur,
		row:  make([]float32, n),
		file: f,
	}, nil
}

// M returns the number of rows.
func (mt *MMapMatrix) M() int { return mt.m }

// N returns the number of columns.
func (mt *MMapMatrix) N() int { return mt.n }

func (mt *MMapMatrix) checkRow(i int) {
	if i < 0 || i >= mt.m {
		panic(fmt.Sprintf("matrix: row %d out of range [0, %d)", i, mt.m))
	}
}

// At returns element (i, j).
func (mt *MMapMatrix) At(i, j int) (float32, error) {
	mt.checkRow(i)
	if j < 0 || j >= mt.n {
		panic(fmt.Sprintf("matrix: column %d out of range [0, %d)", j, mt.n))
	}
	if err := mt.cur.Seek(mmapHeaderSize + (int64(i)*int64(mt.n)+int64(j))*4); err != nil {
		return 0, err
	}
	return mt.cur.ReadFloat32()
}

// readRow fills the scratch row buffer with row i.
func (mt *MMapMatrix) readRow(i int) error {
	if err := mt.cur.Seek(mmapHeaderSize + int64(i)*int64(mt.n)*4); err != nil {
		return err
	}
	return mt.cur.ReadFloat32Into(mt.row)
}

// DotRow returns the dot product of v with row i.
func (mt *MMapMatrix) DotRow(v Vector, i int) (float32, error) {
	mt.checkRow(i)
	if len(v) != mt.n {
		panic(fmt.Sprintf("matrix: vector size %d does not match column count %d", len(v), mt.n))
	}
	if err := mt.readRow(i); err != nil {
		return 0, err
	}
	var d float32
	for j, x := range mt.row {
		d += x * v[j]
	}
	return d, nil
}

// AddRowTo adds a times row i into v.
func (mt *MMapMatrix) AddRowTo(v Vector, i int, a float32) error {
	mt.checkRow(i)
	if len(v) != mt.n {
		panic(fmt.Sprintf("matrix: vector size %d does not match column count %d", len(v), mt.n))
	}
	if err := mt.readRow(i); err != nil {
		return err
	}
	for j, x := range mt.row {
		v[j] += a * x
	}
	return nil
}

// L2NormRow returns the Euclidean norm of row i.
func (mt *MMapMatrix) L2NormRow(i int) (float32, error) {
	mt.checkRow(i)
	if err := mt.readRow(i); err != nil {
		return 0, err
	}
	var norm float32
	for _, x := range mt.row {
		norm += x * x
	}
	return float32(math.Sqrt(float64(norm))), nil
}

// CloneReader returns a view with an independent cursor and scratch row.
func (mt *MMapMatrix) CloneReader() Readable {
	return &MMapMatrix{
		m:   mt.m,
		n:   mt.n,
		cur: mt.cur.Clone(),
		row: make([]float32, mt.n),
	}
}

// Close releases the mapped file. Closing invalidates clones.
func (mt *MMapMatrix) Close() error {
	if mt.file != nil {
		return mt.file.Close()
	}
	return nil
}

var _ Readable = (*MMapMatrix)(nil)
