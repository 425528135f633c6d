package matrix

import (
	"fmt"
	"math"
)

// Vector is a dense float32 vector.
type Vector []float32

// NewVector returns a zeroed vector of the given size.
func NewVector(size int) Vector {
	return make(Vector, size)
}

// Zero sets every element to zero.
func (v Vector) Zero() {
	for i := range v {
		v[i] = 0
	}
}

// Norm returns the Euclidean norm.
func (v Vector) Norm() float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	return float32(math.Sqrt(float64(sum)))
}

// Mul scales the vector by a.
func (v Vector) Mul(a float32) {
	for i := range v {
		v[i] *= a
	}
}

// AddVector adds src element-wise.
func (v Vector) AddVector(src Vector) {
	v.AddVectorScaled(src, 1)
}

// AddVectorScaled adds s times src element-wise.
func (v Vector) AddVectorScaled(src Vector, s float32) {
	if len(src) != len(v) {
		panic(fmt.Sprintf("vector: size mismatch %d != %d", len(src), len(v)))
	}
	for i, x := range src {
		v[i] += s * x
	}
}

// AddRow adds row i of m into v.
func (v Vector) AddRow(m Readable, i int) error {
	return m.AddRowTo(v, i, 1)
}

// AddQRow adds the dequantized row i of q into v.
func (v Vector) AddQRow(q QReadable, i int) error {
	return q.AddTo(v, i)
}

// Argmax returns the index of the largest element.
func (v Vector) Argmax() int {
	maxVal := v[0]
	argmax := 0
	for i, x := range v[1:] {
		if x > maxVal {
			maxVal = x
			argmax = i + 1
		}
	}
	return argmax
}

// MulMatrix sets v[i] to the dot product of vec with row i of m.
func (v Vector) MulMatrix(m Readable, vec Vector) error {
	if len(v) != m.M() {
		panic(fmt.Sprintf("vector: size %d does not match row count %d", len(v), m.M()))
	}
	for i := range v {
		d, err := m.DotRow(vec, i)
		if err != nil {
			return err
		}
		v[i] = d
	}
	return nil
}

// MulQMatrix sets v[i] to the dot product of vec with row i of q.
func (v Vector) MulQMatrix(q QReadable, vec Vector) error {
	if len(v) != q.M() {
		panic(fmt.Sprintf("vector: size %d does not match row count %d", len(v), q.M()))
	}
	for i := range v {
		d, err := q.DotRow(vec, i)
		if err != nil {
			return err
		}
		v[i] = d
	}
	return nil
}
