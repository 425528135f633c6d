package dict

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"unicode/utf8"

	"github.com/hupe1980/fasttextgo/args"
	"github.com/hupe1980/fasttextgo/internal/mmap"
	"github.com/hupe1980/fasttextgo/internal/store"
)

// mmapHeaderBase covers the two width fields plus the dictionary
// metadata (size, nWords, nLabels as int32, nTokens and pruneIdxSize as
// int64).
const mmapHeaderBase = 36

// MMapDict is the memory-mapped dictionary: the hash-to-id mapping is a
// sorted probe-slot array with a parallel id array resolved by binary
// search, and entries are fixed-width records read on demand through a
// cursor.
type MMapDict struct {
	cfg *args.Args

	sizeVal   int
	nwords    int
	nlabels   int
	ntokens   int64
	pruneSize int64

	wordWidth     int
	subwordsWidth int
	entriesOffset int64

	slots []int64
	ids   []int32

	pruneKeys   []int32
	pruneValues []int32

	pDiscard []float64

	cur *mmap.Cursor

	// file is set on the owning handle; clones leave it nil.
	file *mmap.File
}

var _ Dictionary = (*MMapDict)(nil)
var _ accessor = (*MMapDict)(nil)

// LoadMMap opens a dictionary over its mapped sidecar file.
func LoadMMap(cfg *args.Args, f *mmap.File) (*MMapDict, error) {
	cur := f.Cursor()

	wordWidth, err := cur.ReadInt32()
	if err != nil {
		return nil, err
	}
	subwordsWidth, err := cur.ReadInt32()
	if err != nil {
		return nil, err
	}
	size, err := cur.ReadInt32()
	if err != nil {
		return nil, err
	}
	nwords, err := cur.ReadInt32()
	if err != nil {
		return nil, err
	}
	nlabels, err := cur.ReadInt32()
	if err != nil {
		return nil, err
	}
	ntokens, err := cur.ReadInt64()
	if err != nil {
		return nil, err
	}
	pruneSize, err := cur.ReadInt64()
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, ErrEmptyVocabulary
	}

	d := &MMapDict{
		cfg:           cfg,
		sizeVal:       int(size),
		nwords:        int(nwords),
		nlabels:       int(nlabels),
		ntokens:       ntokens,
		pruneSize:     pruneSize,
		wordWidth:     int(wordWidth),
		subwordsWidth: int(subwordsWidth),
		cur:           cur,
		file:          f,
	}

	nPrune := int(max(0, pruneSize))
	d.pruneKeys = make([]int32, nPrune)
	d.pruneValues = make([]int32, nPrune)
	for i := range d.pruneKeys {
		if d.pruneKeys[i], err = cur.ReadInt32(); err != nil {
			return nil, err
		}
	}
	for i := range d.pruneValues {
		if d.pruneValues[i], err = cur.ReadInt32(); err != nil {
			return nil, err
		}
	}

	d.slots = make([]int64, size)
	d.ids = make([]int32, size)
	for i := range d.slots {
		if d.slots[i], err = cur.ReadInt64(); err != nil {
			return nil, err
		}
	}
	for i := range d.ids {
		if d.ids[i], err = cur.ReadInt32(); err != nil {
			return nil, err
		}
	}
	for i := 1; i < len(d.slots); i++ {
		if d.slots[i] <= d.slots[i-1] {
			return nil, ErrDuplicateHash
		}
	}

	d.entriesOffset = int64(mmapHeaderBase) + 8*int64(nPrune) + 12*int64(size)

	counts := make([]int64, size)
	for i := range counts {
		if counts[i], err = d.Count(i); err != nil {
			return nil, err
		}
	}
	d.pDiscard = initDiscard(counts, ntokens, cfg.T)

	return d, nil
}

// Entry record layout, relative to the record start:
//
//	wordLen  int32
//	word     [wordWidth]byte, zero padded
//	count    int64
//	type     byte
//	swLen    int32
//	subwords [subwordsWidth]byte, int32 values then zero padding
func (d *MMapDict) entryByteLen() int64 {
	return int64(4 + d.wordWidth + 8 + 1 + 4 + d.subwordsWidth)
}

func (d *MMapDict) entryPos(id int) int64 {
	return d.entriesOffset + d.entryByteLen()*int64(id)
}

func (d *MMapDict) countPos(id int) int64 {
	return d.entryPos(id) + int64(4+d.wordWidth)
}

func (d *MMapDict) typePos(id int) int64 {
	return d.countPos(id) + 8
}

func (d *MMapDict) subwordsPos(id int) int64 {
	return d.typePos(id) + 1
}

func (d *MMapDict) readWordAt(pos int64) (string, error) {
	if err := d.cur.Seek(pos); err != nil {
		return "", err
	}
	n, err := d.cur.ReadInt32()
	if err != nil {
		return "", err
	}
	if n < 0 || int(n) > d.wordWidth {
		return "", fmt.Errorf("dict: corrupt word length %d", n)
	}
	raw := make([]byte, n)
	if err := d.cur.ReadBytes(raw); err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", store.ErrInvalidUTF8
	}
	return string(raw), nil
}

// accessor

func (d *MMapDict) argsRef() *args.Args { return d.cfg }
func (d *MMapDict) size() int           { return d.sizeVal }
func (d *MMapDict) nWords() int         { return d.nwords }
func (d *MMapDict) pruneIdxSize() int64 { return d.pruneSize }

func (d *MMapDict) hashToID(slot int64) (int, error) {
	i := sort.Search(len(d.slots), func(i int) bool { return d.slots[i] >= slot })
	if i < len(d.slots) && d.slots[i] == slot {
		return int(d.ids[i]), nil
	}
	return -1, nil
}

func (d *MMapDict) entryWord(id int) (string, error) {
	return d.readWordAt(d.entryPos(id))
}

func (d *MMapDict) entryType(id int) (EntryType, error) {
	if err := d.cur.Seek(d.typePos(id)); err != nil {
		return 0, err
	}
	b, err := d.cur.ReadByte()
	if err != nil {
		return 0, err
	}
	return entryTypeFromByte(b)
}

func (d *MMapDict) entrySubwords(id int) ([]int32, error) {
	if err := d.cur.Seek(d.subwordsPos(id)); err != nil {
		return nil, err
	}
	n, err := d.cur.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 || int(n)*4 > d.subwordsWidth {
		return nil, fmt.Errorf("dict: corrupt subword count %d", n)
	}
	sw := make([]int32, n)
	for i := range sw {
		if sw[i], err = d.cur.ReadInt32(); err != nil {
			return nil, err
		}
	}
	return sw, nil
}

func (d *MMapDict) pruning(bucket int32) (int32, bool) {
	i := sort.Search(len(d.pruneKeys), func(i int) bool { return d.pruneKeys[i] >= bucket })
	if i < len(d.pruneKeys) && d.pruneKeys[i] == bucket {
		return d.pruneValues[i], true
	}
	return 0, false
}

// Dictionary

// Size returns the number of entries.
func (d *MMapDict) Size() int { return d.sizeVal }

// NWords returns the number of word entries.
func (d *MMapDict) NWords() int { return d.nwords }

// NLabels returns the number of label entries.
func (d *MMapDict) NLabels() int { return d.nlabels }

// NTokens returns the training token count.
func (d *MMapDict) NTokens() int64 { return d.ntokens }

// PruneIdxSize returns the pruning-map size (-1 when unpruned).
func (d *MMapDict) PruneIdxSize() int64 { return d.pruneSize }

// Pruned reports whether the model was pruned.
func (d *MMapDict) Pruned() bool { return d.pruneSize >= 0 }

// ID returns the id of word, or -1 if absent.
func (d *MMapDict) ID(word string) (int, error) {
	return idWithHash(d, word, Hash(word))
}

// Contains reports whether word is in the vocabulary.
func (d *MMapDict) Contains(word string) (bool, error) {
	id, err := d.ID(word)
	return id >= 0, err
}

func (d *MMapDict) checkID(id, bound int) error {
	if id < 0 || id >= bound {
		return fmt.Errorf("dict: id %d out of range [0, %d)", id, bound)
	}
	return nil
}

// Word returns the word with the given id.
func (d *MMapDict) Word(id int) (string, error) {
	if err := d.checkID(id, d.nwords); err != nil {
		return "", err
	}
	return d.readWordAt(d.entryPos(id))
}

// Label returns the label with the given label id.
func (d *MMapDict) Label(lid int) (string, error) {
	if err := d.checkID(lid, d.nlabels); err != nil {
		return "", err
	}
	return d.readWordAt(d.entryPos(lid + d.nwords))
}

// Count returns the training count of the given id.
func (d *MMapDict) Count(id int) (int64, error) {
	if err := d.checkID(id, d.sizeVal); err != nil {
		return 0, err
	}
	if err := d.cur.Seek(d.countPos(id)); err != nil {
		return 0, err
	}
	return d.cur.ReadInt64()
}

// Type returns the entry type of the given id.
func (d *MMapDict) Type(id int) (EntryType, error) {
	if err := d.checkID(id, d.sizeVal); err != nil {
		return 0, err
	}
	return d.entryType(id)
}

// Subwords returns the subword ids of word.
func (d *MMapDict) Subwords(word string) ([]int32, error) {
	return subwordsOf(d, word)
}

// SubwordsByID returns the stored subword list of an in-vocabulary word.
func (d *MMapDict) SubwordsByID(id int) ([]int32, error) {
	if err := d.checkID(id, d.nwords); err != nil {
		return nil, err
	}
	return d.entrySubwords(id)
}

// SubwordsWithStrings returns subword ids alongside the n-gram strings.
func (d *MMapDict) SubwordsWithStrings(word string) ([]int32, []string, error) {
	id, err := d.ID(word)
	if err != nil {
		return nil, nil, err
	}
	ngrams := []int32{int32(id)}
	substrings := []string{word}
	computeSubwords(d, bow+word+eow, func(bucket int32) {
		ngrams = append(ngrams, bucket)
	}, func(s string) {
		substrings = append(substrings, s)
	})
	return ngrams, substrings, nil
}

// Line decodes text for the supervised prediction path.
func (d *MMapDict) Line(text string) (words, labels []int32, err error) {
	return d.LineTokens(Tokenize(text))
}

// LineTokens decodes pre-tokenised text for the prediction path.
func (d *MMapDict) LineTokens(tokens []string) (words, labels []int32, err error) {
	return supervisedLine(d, lineTokens(tokens))
}

// SampledLine decodes text for word-vector paths, with sub-sampling.
func (d *MMapDict) SampledLine(text string, rng *rand.Rand) ([]int32, error) {
	return sampledLine(d, lineTokens(Tokenize(text)), d.pDiscard, rng)
}

// Counts returns counts of all entries of type t in id order.
func (d *MMapDict) Counts(t EntryType) ([]int64, error) {
	var counts []int64
	for i := 0; i < d.sizeVal; i++ {
		et, err := d.entryType(i)
		if err != nil {
			return nil, err
		}
		if et != t {
			continue
		}
		c, err := d.Count(i)
		if err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, nil
}

// SaveMMap is not supported: the memory-mapped form is already the
// sidecar layout.
func (d *MMapDict) SaveMMap(out *store.Output) error {
	return errors.ErrUnsupported
}

// Clone returns a view sharing the mapping and lookup arrays but reading
// through an independent cursor.
func (d *MMapDict) Clone() Dictionary {
	c := *d
	c.cur = d.cur.Clone()
	c.file = nil
	return &c
}

// Close releases the mapped file. Closing invalidates clones.
func (d *MMapDict) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}
