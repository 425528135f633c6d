package matrix

import (
	"fmt"

	"github.com/hupe1980/fasttextgo/internal/mmap"
	"github.com/hupe1980/fasttextgo/internal/store"
)

// QMatrix is a row matrix compressed by product quantization: each row
// is nsubq bytes indexing sub-codebooks of KSub centroids, optionally
// with a separately quantized per-row norm.
type QMatrix struct {
	qnorm    bool
	m, n     int
	codeSize int

	codes     Codes
	normCodes Codes

	pq  *ProductQuantizer
	npq *ProductQuantizer

	// file is set for the memory-mapped form; the owning handle closes it.
	file *mmap.File
}

// NewQMatrix assembles a quantized matrix from its parts. Used by tests;
// models normally arrive through LoadQMatrix or LoadMMapQMatrix.
func NewQMatrix(m, n int, codes Codes, pq *ProductQuantizer, qnorm bool, normCodes Codes, npq *ProductQuantizer) *QMatrix {
	return &QMatrix{
		qnorm:     qnorm,
		m:         m,
		n:         n,
		codeSize:  codes.Len(),
		codes:     codes,
		normCodes: normCodes,
		pq:        pq,
		npq:       npq,
	}
}

// M returns the number of rows.
func (q *QMatrix) M() int { return q.m }

// N returns the number of columns of the reconstructed matrix.
func (q *QMatrix) N() int { return q.n }

// QNorm reports whether per-row norms are quantized separately.
func (q *QMatrix) QNorm() bool { return q.qnorm }

func (q *QMatrix) rowScale(i int) (float32, error) {
	if !q.qnorm {
		return 1, nil
	}
	code, err := q.normCodes.At(i)
	if err != nil {
		return 0, err
	}
	return q.npq.Centroid(q.npq.CentroidPos(0, code)), nil
}

// DotRow returns the dot product of v with the reconstructed row i.
func (q *QMatrix) DotRow(v Vector, i int) (float32, error) {
	if i < 0 || i >= q.m {
		panic(fmt.Sprintf("qmatrix: row %d out of range [0, %d)", i, q.m))
	}
	if len(v) != q.n {
		panic(fmt.Sprintf("qmatrix: vector size %d does not match column count %d", len(v), q.n))
	}
	norm, err := q.rowScale(i)
	if err != nil {
		return 0, err
	}
	return q.pq.MulCode(v, q.codes, i, norm)
}

// AddTo accumulates the reconstructed row i into v.
func (q *QMatrix) AddTo(v Vector, i int) error {
	if i < 0 || i >= q.m {
		panic(fmt.Sprintf("qmatrix: row %d out of range [0, %d)", i, q.m))
	}
	norm, err := q.rowScale(i)
	if err != nil {
		return err
	}
	return q.pq.AddCode(v, q.codes, i, norm)
}

// CloneReader returns a view with independent code cursors.
func (q *QMatrix) CloneReader() QReadable {
	c := *q
	c.codes = q.codes.Clone()
	if q.normCodes != nil {
		c.normCodes = q.normCodes.Clone()
	}
	c.file = nil
	return &c
}

// Close releases the mapped file for the memory-mapped form. Closing
// invalidates clones.
func (q *QMatrix) Close() error {
	if q.file != nil {
		return q.file.Close()
	}
	return nil
}

// LoadQMatrix reads a quantized matrix into memory.
func LoadQMatrix(in store.DataInput) (*QMatrix, error) {
	qnorm, err := in.ReadBool()
	if err != nil {
		return nil, err
	}
	m, err := in.ReadInt64()
	if err != nil {
		return nil, err
	}
	n, err := in.ReadInt64()
	if err != nil {
		return nil, err
	}
	codeSize, err := in.ReadInt32()
	if err != nil {
		return nil, err
	}
	if codeSize < 0 {
		return nil, fmt.Errorf("qmatrix: invalid code size %d", codeSize)
	}
	codes := make(ByteCodes, codeSize)
	if err := in.ReadBytes(codes); err != nil {
		return nil, err
	}
	pq, err := LoadProductQuantizer(in)
	if err != nil {
		return nil, err
	}
	q := &QMatrix{
		qnorm:    qnorm,
		m:        int(m),
		n:        int(n),
		codeSize: int(codeSize),
		codes:    codes,
		pq:       pq,
	}
	if qnorm {
		normCodes := make(ByteCodes, m)
		if err := in.ReadBytes(normCodes); err != nil {
			return nil, err
		}
		npq, err := LoadProductQuantizer(in)
		if err != nil {
			return nil, err
		}
		q.normCodes = normCodes
		q.npq = npq
	}
	return q, nil
}

// Save writes the quantized matrix in its wire layout. Codes backed by a
// mapped file are materialized through the cursor.
func (q *QMatrix) Save(out *store.Output) error {
	if err := out.WriteBool(q.qnorm); err != nil {
		return err
	}
	if err := out.WriteInt64(int64(q.m)); err != nil {
		return err
	}
	if err := out.WriteInt64(int64(q.n)); err != nil {
		return err
	}
	if err := out.WriteInt32(int32(q.codeSize)); err != nil {
		return err
	}
	if err := writeCodes(out, q.codes); err != nil {
		return err
	}
	if err := q.pq.Save(out); err != nil {
		return err
	}
	if q.qnorm {
		if err := writeCodes(out, q.normCodes); err != nil {
			return err
		}
		if err := q.npq.Save(out); err != nil {
			return err
		}
	}
	return nil
}

func writeCodes(out *store.Output, codes Codes) error {
	if bc, ok := codes.(ByteCodes); ok {
		return out.WriteBytes(bc)
	}
	for i := 0; i < codes.Len(); i++ {
		c, err := codes.At(i)
		if err != nil {
			return err
		}
		if err := out.WriteByte(byte(c)); err != nil {
			return err
		}
	}
	return nil
}

// LoadMMapQMatrix opens a quantized matrix over a mapped file. Codes are
// read on demand through cursors; codebooks are small and loaded eagerly.
func LoadMMapQMatrix(f *mmap.File) (*QMatrix, error) {
	cur := f.Cursor()
	qnorm, err := cur.ReadBool()
	if err != nil {
		return nil, err
	}
	m, err := cur.ReadInt64()
	if err != nil {
		return nil, err
	}
	n, err := cur.ReadInt64()
	if err != nil {
		return nil, err
	}
	codeSize, err := cur.ReadInt32()
	if err != nil {
		return nil, err
	}
	if codeSize < 0 {
		return nil, fmt.Errorf("qmatrix: invalid code size %d", codeSize)
	}

	// codes start right after the 21-byte header.
	codesOffset := cur.Pos()
	codes := &mmapCodes{cur: f.Cursor(), offset: codesOffset, size: int(codeSize)}
	if err := cur.Skip(int64(codeSize)); err != nil {
		return nil, err
	}
	pq, err := LoadProductQuantizer(cur)
	if err != nil {
		return nil, err
	}
	q := &QMatrix{
		qnorm:    qnorm,
		m:        int(m),
		n:        int(n),
		codeSize: int(codeSize),
		codes:    codes,
		pq:       pq,
		file:     f,
	}
	if qnorm {
		normOffset := cur.Pos()
		q.normCodes = &mmapCodes{cur: f.Cursor(), offset: normOffset, size: int(m)}
		if err := cur.Skip(m); err != nil {
			return nil, err
		}
		npq, err := LoadProductQuantizer(cur)
		if err != nil {
			return nil, err
		}
		q.npq = npq
	}
	return q, nil
}

var _ QReadable = (*QMatrix)(nil)
