// Package matrix implements the dense and product-quantized embedding
// matrices and their dot-product / accumulation primitives, backed
// either by heap arrays or by random-access reads from a mapped file.
package matrix

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/hupe1980/fasttextgo/internal/store"
)

// Readable is the read surface shared by the in-memory and the
// memory-mapped dense matrix.
type Readable interface {
	M() int
	N() int
	DotRow(v Vector, i int) (float32, error)
	AddRowTo(v Vector, i int, a float32) error
	L2NormRow(i int) (float32, error)

	// CloneReader returns a view over the same data with an independent
	// read cursor, for use by a cloned handle.
	CloneReader() Readable
	Close() error
}

// QReadable is the read surface shared by the in-memory and the
// memory-mapped quantized matrix.
type QReadable interface {
	M() int
	N() int
	DotRow(v Vector, i int) (float32, error)
	AddTo(v Vector, i int) error
	CloneReader() QReadable
	Close() error
}

// Matrix is a row-major dense float32 matrix. Out-of-range access is an
// invariant violation and panics.
type Matrix struct {
	m, n int
	data []float32
}

// New returns a zeroed m-by-n matrix.
func New(m, n int) *Matrix {
	return &Matrix{m: m, n: n, data: make([]float32, m*n)}
}

// Copy returns a deep copy of other.
func Copy(other *Matrix) *Matrix {
	c := New(other.m, other.n)
	copy(c.data, other.data)
	return c
}

// M returns the number of rows.
func (mt *Matrix) M() int { return mt.m }

// N returns the number of columns.
func (mt *Matrix) N() int { return mt.n }

// Data returns the backing row-major array.
func (mt *Matrix) Data() []float32 { return mt.data }

func (mt *Matrix) checkRow(i int) {
	if i < 0 || i >= mt.m {
		panic(fmt.Sprintf("matrix: row %d out of range [0, %d)", i, mt.m))
	}
}

func (mt *Matrix) checkDim(v Vector) {
	if len(v) != mt.n {
		panic(fmt.Sprintf("matrix: vector size %d does not match column count %d", len(v), mt.n))
	}
}

// Zero sets every element to zero.
func (mt *Matrix) Zero() {
	for i := range mt.data {
		mt.data[i] = 0
	}
}

// Uniform fills the matrix with values drawn uniformly from [-a, a)
// using an independent generator seeded at 1.
func (mt *Matrix) Uniform(a float32) {
	rng := rand.New(rand.NewSource(1))
	for i := range mt.data {
		mt.data[i] = rng.Float32()*(2*a) - a
	}
}

// At returns element (i, j).
func (mt *Matrix) At(i, j int) float32 {
	mt.checkRow(i)
	if j < 0 || j >= mt.n {
		panic(fmt.Sprintf("matrix: column %d out of range [0, %d)", j, mt.n))
	}
	return mt.data[i*mt.n+j]
}

// Row returns row i as a slice view into the backing array.
func (mt *Matrix) Row(i int) []float32 {
	mt.checkRow(i)
	return mt.data[i*mt.n : (i+1)*mt.n]
}

// DotRow returns the dot product of v with row i.
func (mt *Matrix) DotRow(v Vector, i int) (float32, error) {
	mt.checkRow(i)
	mt.checkDim(v)
	var d float32
	row := mt.data[i*mt.n : (i+1)*mt.n]
	for j, x := range row {
		d += x * v[j]
	}
	return d, nil
}

// AddRowTo adds a times row i into v.
func (mt *Matrix) AddRowTo(v Vector, i int, a float32) error {
	mt.checkRow(i)
	mt.checkDim(v)
	row := mt.data[i*mt.n : (i+1)*mt.n]
	for j, x := range row {
		v[j] += a * x
	}
	return nil
}

// AddRow adds a times v into row i (row i += a*v).
func (mt *Matrix) AddRow(v Vector, i int, a float32) {
	mt.checkRow(i)
	mt.checkDim(v)
	row := mt.data[i*mt.n : (i+1)*mt.n]
	for j := range row {
		row[j] += a * v[j]
	}
}

// MultiplyRow scales rows [ib, ie) element-wise by nums[i-ib]. ie < 0
// selects all rows from ib.
func (mt *Matrix) MultiplyRow(nums Vector, ib, ie int) {
	if ie < 0 {
		ie = mt.m
	}
	if ie-ib > len(nums) {
		panic(fmt.Sprintf("matrix: row range [%d, %d) exceeds scale vector size %d", ib, ie, len(nums)))
	}
	for i := ib; i < ie; i++ {
		num := nums[i-ib]
		row := mt.data[i*mt.n : (i+1)*mt.n]
		for j := range row {
			row[j] *= num
		}
	}
}

// DivideRow divides rows [ib, ie) element-wise by denoms[i-ib], skipping
// zero denominators. ie < 0 selects all rows from ib.
func (mt *Matrix) DivideRow(denoms Vector, ib, ie int) {
	if ie < 0 {
		ie = mt.m
	}
	if ie-ib > len(denoms) {
		panic(fmt.Sprintf("matrix: row range [%d, %d) exceeds denom vector size %d", ib, ie, len(denoms)))
	}
	for i := ib; i < ie; i++ {
		denom := denoms[i-ib]
		if denom == 0 {
			continue
		}
		row := mt.data[i*mt.n : (i+1)*mt.n]
		for j := range row {
			row[j] /= denom
		}
	}
}

// L2NormRow returns the Euclidean norm of row i.
func (mt *Matrix) L2NormRow(i int) (float32, error) {
	mt.checkRow(i)
	var norm float32
	row := mt.data[i*mt.n : (i+1)*mt.n]
	for _, x := range row {
		norm += x * x
	}
	return float32(math.Sqrt(float64(norm))), nil
}

// L2NormRows fills norms with the per-row Euclidean norms.
func (mt *Matrix) L2NormRows(norms Vector) {
	if len(norms) != mt.m {
		panic(fmt.Sprintf("matrix: norm vector size %d does not match row count %d", len(norms), mt.m))
	}
	for i := 0; i < mt.m; i++ {
		n, _ := mt.L2NormRow(i)
		norms[i] = n
	}
}

// CloneReader returns the matrix itself: the dense form is position-free
// and safe for shared reads.
func (mt *Matrix) CloneReader() Readable { return mt }

// Close is a no-op for the in-memory form.
func (mt *Matrix) Close() error { return nil }

// Load reads a dense matrix: m (i64), n (i64), then m*n float32 values.
func Load(in store.DataInput) (*Matrix, error) {
	m, err := in.ReadInt64()
	if err != nil {
		return nil, err
	}
	n, err := in.ReadInt64()
	if err != nil {
		return nil, err
	}
	if m < 0 || n < 0 {
		return nil, fmt.Errorf("matrix: invalid shape %dx%d", m, n)
	}
	mt := New(int(m), int(n))
	if err := in.ReadFloat32Into(mt.data); err != nil {
		return nil, err
	}
	return mt, nil
}

// Save writes the dense matrix in its wire layout.
func (mt *Matrix) Save(out *store.Output) error {
	if err := out.WriteInt64(int64(mt.m)); err != nil {
		return err
	}
	if err := out.WriteInt64(int64(mt.n)); err != nil {
		return err
	}
	return out.WriteFloat32Slice(mt.data)
}

var _ Readable = (*Matrix)(nil)
