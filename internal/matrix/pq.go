package matrix

import (
	"fmt"

	"github.com/hupe1980/fasttextgo/internal/store"
)

const (
	pqNumBits = 8

	// KSub is the number of centroids per subquantizer; codes are single
	// bytes.
	KSub = 1 << pqNumBits
)

// ProductQuantizer holds the codebooks of a product-quantized matrix.
// Only the lookup side is implemented; quantizer fitting happens in the
// trainer.
type ProductQuantizer struct {
	dim      int
	nsubq    int
	dsub     int
	lastdsub int

	// centroids is laid out per subquantizer; its length equals dim*KSub.
	centroids []float32
}

// NewProductQuantizer derives the subquantizer geometry for a vector
// dimension and subvector size. When dim is not divisible by dsub, the
// final subquantizer covers the short tail of dim%dsub dimensions.
func NewProductQuantizer(dim, dsub int) *ProductQuantizer {
	pq := &ProductQuantizer{
		dim:       dim,
		nsubq:     dim / dsub,
		dsub:      dsub,
		lastdsub:  dim % dsub,
		centroids: make([]float32, dim*KSub),
	}
	if pq.lastdsub == 0 {
		pq.lastdsub = dsub
	} else {
		pq.nsubq++
	}
	return pq
}

// Dim returns the quantized vector dimension.
func (pq *ProductQuantizer) Dim() int { return pq.dim }

// NSubq returns the number of subquantizers.
func (pq *ProductQuantizer) NSubq() int { return pq.nsubq }

// Centroids returns the flat centroid table.
func (pq *ProductQuantizer) Centroids() []float32 { return pq.centroids }

// CentroidPos returns the base offset of centroid i of subquantizer m.
func (pq *ProductQuantizer) CentroidPos(m, i int) int {
	if m == pq.nsubq-1 {
		return m*KSub*pq.dsub + i*pq.lastdsub
	}
	return (m*KSub + i) * pq.dsub
}

// Centroid returns the centroid element at pos.
func (pq *ProductQuantizer) Centroid(pos int) float32 {
	return pq.centroids[pos]
}

// MulCode returns alpha times the dot product of x with the
// reconstructed row t encoded in codes.
func (pq *ProductQuantizer) MulCode(x Vector, codes Codes, t int, alpha float32) (float32, error) {
	var res float32
	d := pq.dsub
	rowStart := t * pq.nsubq
	for m := 0; m < pq.nsubq; m++ {
		code, err := codes.At(rowStart + m)
		if err != nil {
			return 0, err
		}
		c := pq.CentroidPos(m, code)
		if m == pq.nsubq-1 {
			d = pq.lastdsub
		}
		for n := 0; n < d; n++ {
			res += x[m*pq.dsub+n] * pq.centroids[c+n]
		}
	}
	return res * alpha, nil
}

// AddCode accumulates alpha times the reconstructed row t into x.
func (pq *ProductQuantizer) AddCode(x Vector, codes Codes, t int, alpha float32) error {
	d := pq.dsub
	rowStart := t * pq.nsubq
	for m := 0; m < pq.nsubq; m++ {
		code, err := codes.At(rowStart + m)
		if err != nil {
			return err
		}
		c := pq.CentroidPos(m, code)
		if m == pq.nsubq-1 {
			d = pq.lastdsub
		}
		for n := 0; n < d; n++ {
			x[m*pq.dsub+n] += alpha * pq.centroids[c+n]
		}
	}
	return nil
}

// LoadProductQuantizer reads the codebook section: dim, nsubq, dsub,
// lastdsub as int32 followed by dim*KSub centroid values.
func LoadProductQuantizer(in store.DataInput) (*ProductQuantizer, error) {
	var ints [4]int32
	for i := range ints {
		v, err := in.ReadInt32()
		if err != nil {
			return nil, err
		}
		ints[i] = v
	}
	if ints[0] < 0 {
		return nil, fmt.Errorf("pq: invalid dimension %d", ints[0])
	}
	pq := &ProductQuantizer{
		dim:       int(ints[0]),
		nsubq:     int(ints[1]),
		dsub:      int(ints[2]),
		lastdsub:  int(ints[3]),
		centroids: make([]float32, int(ints[0])*KSub),
	}
	if err := in.ReadFloat32Into(pq.centroids); err != nil {
		return nil, err
	}
	return pq, nil
}

// Save writes the codebook section.
func (pq *ProductQuantizer) Save(out *store.Output) error {
	for _, v := range [4]int32{int32(pq.dim), int32(pq.nsubq), int32(pq.dsub), int32(pq.lastdsub)} {
		if err := out.WriteInt32(v); err != nil {
			return err
		}
	}
	return out.WriteFloat32Slice(pq.centroids)
}
