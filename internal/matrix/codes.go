package matrix

import (
	"fmt"

	"github.com/hupe1980/fasttextgo/internal/mmap"
)

// Codes is a read-only array of 8-bit centroid indexes, one per
// subquantizer per row.
type Codes interface {
	At(i int) (int, error)
	Len() int

	// Clone returns codes over the same data with an independent cursor.
	Clone() Codes
}

// ByteCodes holds codes on the heap.
type ByteCodes []byte

// At returns code i.
func (c ByteCodes) At(i int) (int, error) {
	if i < 0 || i >= len(c) {
		panic(fmt.Sprintf("codes: index %d out of range [0, %d)", i, len(c)))
	}
	return int(c[i]), nil
}

// Len returns the number of codes.
func (c ByteCodes) Len() int { return len(c) }

// Clone returns the codes themselves: heap codes are position-free.
func (c ByteCodes) Clone() Codes { return c }

// mmapCodes reads codes from a fixed region of a mapped file.
type mmapCodes struct {
	cur    *mmap.Cursor
	offset int64
	size   int
}

func (c *mmapCodes) At(i int) (int, error) {
	if i < 0 || i >= c.size {
		panic(fmt.Sprintf("codes: index %d out of range [0, %d)", i, c.size))
	}
	if err := c.cur.Seek(c.offset + int64(i)); err != nil {
		return 0, err
	}
	b, err := c.cur.ReadByte()
	if err != nil {
		return 0, err
	}
	return int(b), nil
}

func (c *mmapCodes) Len() int { return c.size }

func (c *mmapCodes) Clone() Codes {
	return &mmapCodes{cur: c.cur.Clone(), offset: c.offset, size: c.size}
}
