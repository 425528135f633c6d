package dict

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/hupe1980/fasttextgo/args"
	"github.com/hupe1980/fasttextgo/internal/store"
)

// prunePair is one bucket remapping, kept in file order so that saving
// reproduces the loaded byte sequence.
type prunePair struct {
	First, Second int32
}

// Dict is the in-memory dictionary: all entries on the heap, lookups
// through an open-addressed linear-probing table.
type Dict struct {
	cfg *args.Args

	entries    []Entry
	nwords     int
	nlabels    int
	ntokens    int64
	pruneSize  int64
	prunePairs []prunePair
	pruneIdx   map[int32]int32

	// table maps probe slots to ids; -1 marks an empty slot.
	table []int32

	pDiscard []float64
}

var _ Dictionary = (*Dict)(nil)
var _ accessor = (*Dict)(nil)

// Load reads the dictionary section of a native model.
func Load(cfg *args.Args, in store.DataInput) (*Dict, error) {
	size, err := in.ReadInt32()
	if err != nil {
		return nil, err
	}
	nwords, err := in.ReadInt32()
	if err != nil {
		return nil, err
	}
	nlabels, err := in.ReadInt32()
	if err != nil {
		return nil, err
	}
	ntokens, err := in.ReadInt64()
	if err != nil {
		return nil, err
	}
	pruneSize, err := in.ReadInt64()
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, ErrEmptyVocabulary
	}

	d := &Dict{
		cfg:       cfg,
		entries:   make([]Entry, size),
		nwords:    int(nwords),
		nlabels:   int(nlabels),
		ntokens:   ntokens,
		pruneSize: pruneSize,
		pruneIdx:  map[int32]int32{},
	}
	for i := range d.entries {
		word, err := in.ReadCString()
		if err != nil {
			return nil, err
		}
		count, err := in.ReadInt64()
		if err != nil {
			return nil, err
		}
		tb, err := in.ReadByte()
		if err != nil {
			return nil, err
		}
		t, err := entryTypeFromByte(tb)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d", err, i)
		}
		d.entries[i] = Entry{Word: word, Count: count, Type: t}
	}
	if pruneSize >= 0 {
		d.prunePairs = make([]prunePair, pruneSize)
		for i := range d.prunePairs {
			first, err := in.ReadInt32()
			if err != nil {
				return nil, err
			}
			second, err := in.ReadInt32()
			if err != nil {
				return nil, err
			}
			d.prunePairs[i] = prunePair{First: first, Second: second}
			d.pruneIdx[first] = second
		}
	}

	if err := d.initTable(); err != nil {
		return nil, err
	}
	d.initSubwords()
	d.initDiscardTable()
	return d, nil
}

// initTable builds the open-addressed slot-to-id table.
func (d *Dict) initTable() error {
	d.table = make([]int32, tableSize(d))
	for i := range d.table {
		d.table[i] = -1
	}
	for i := range d.entries {
		slot, err := find(d, d.entries[i].Word, Hash(d.entries[i].Word))
		if err != nil {
			return err
		}
		d.table[slot] = int32(i)
	}
	return nil
}

// initSubwords stores each entry's subword list: its own id first, then
// the character-n-gram buckets. EOS has no n-grams computed.
func (d *Dict) initSubwords() {
	for i := range d.entries {
		e := &d.entries[i]
		e.Subwords = append(e.Subwords, int32(i))
		if e.Word != EOS {
			computeSubwords(d, bow+e.Word+eow, func(bucket int32) {
				e.Subwords = append(e.Subwords, bucket)
			}, nil)
		}
	}
}

func (d *Dict) initDiscardTable() {
	counts := make([]int64, len(d.entries))
	for i := range d.entries {
		counts[i] = d.entries[i].Count
	}
	d.pDiscard = initDiscard(counts, d.ntokens, d.cfg.T)
}

// accessor

func (d *Dict) argsRef() *args.Args { return d.cfg }
func (d *Dict) size() int           { return len(d.entries) }
func (d *Dict) nWords() int         { return d.nwords }
func (d *Dict) pruneIdxSize() int64 { return d.pruneSize }

func (d *Dict) hashToID(slot int64) (int, error) {
	return int(d.table[slot]), nil
}

func (d *Dict) entryWord(id int) (string, error) {
	return d.entries[id].Word, nil
}

func (d *Dict) entryType(id int) (EntryType, error) {
	return d.entries[id].Type, nil
}

func (d *Dict) entrySubwords(id int) ([]int32, error) {
	return d.entries[id].Subwords, nil
}

func (d *Dict) pruning(bucket int32) (int32, bool) {
	v, ok := d.pruneIdx[bucket]
	return v, ok
}

// Dictionary

// Size returns the number of entries.
func (d *Dict) Size() int { return len(d.entries) }

// NWords returns the number of word entries.
func (d *Dict) NWords() int { return d.nwords }

// NLabels returns the number of label entries.
func (d *Dict) NLabels() int { return d.nlabels }

// NTokens returns the training token count.
func (d *Dict) NTokens() int64 { return d.ntokens }

// PruneIdxSize returns the pruning-map size (-1 when unpruned).
func (d *Dict) PruneIdxSize() int64 { return d.pruneSize }

// Pruned reports whether the model was pruned.
func (d *Dict) Pruned() bool { return d.pruneSize >= 0 }

// ID returns the id of word, or -1 if absent.
func (d *Dict) ID(word string) (int, error) {
	return idWithHash(d, word, Hash(word))
}

// Contains reports whether word is in the vocabulary.
func (d *Dict) Contains(word string) (bool, error) {
	id, err := d.ID(word)
	return id >= 0, err
}

func (d *Dict) checkID(id, bound int) error {
	if id < 0 || id >= bound {
		return fmt.Errorf("dict: id %d out of range [0, %d)", id, bound)
	}
	return nil
}

// Word returns the word with the given id.
func (d *Dict) Word(id int) (string, error) {
	if err := d.checkID(id, d.nwords); err != nil {
		return "", err
	}
	return d.entries[id].Word, nil
}

// Label returns the label with the given label id.
func (d *Dict) Label(lid int) (string, error) {
	if err := d.checkID(lid, d.nlabels); err != nil {
		return "", err
	}
	return d.entries[lid+d.nwords].Word, nil
}

// Count returns the training count of the given id.
func (d *Dict) Count(id int) (int64, error) {
	if err := d.checkID(id, len(d.entries)); err != nil {
		return 0, err
	}
	return d.entries[id].Count, nil
}

// Type returns the entry type of the given id.
func (d *Dict) Type(id int) (EntryType, error) {
	if err := d.checkID(id, len(d.entries)); err != nil {
		return 0, err
	}
	return d.entries[id].Type, nil
}

// Subwords returns the subword ids of word.
func (d *Dict) Subwords(word string) ([]int32, error) {
	return subwordsOf(d, word)
}

// SubwordsByID returns the stored subword list of an in-vocabulary word.
func (d *Dict) SubwordsByID(id int) ([]int32, error) {
	if err := d.checkID(id, d.nwords); err != nil {
		return nil, err
	}
	return d.entries[id].Subwords, nil
}

// SubwordsWithStrings returns subword ids alongside the n-gram strings.
func (d *Dict) SubwordsWithStrings(word string) ([]int32, []string, error) {
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
func (d *Dict) Line(text string) (words, labels []int32, err error) {
	return d.LineTokens(Tokenize(text))
}

// LineTokens decodes pre-tokenised text for the prediction path.
func (d *Dict) LineTokens(tokens []string) (words, labels []int32, err error) {
	return supervisedLine(d, lineTokens(tokens))
}

// SampledLine decodes text for word-vector paths, with sub-sampling.
func (d *Dict) SampledLine(text string, rng *rand.Rand) ([]int32, error) {
	return sampledLine(d, lineTokens(Tokenize(text)), d.pDiscard, rng)
}

// Counts returns counts of all entries of type t in id order.
func (d *Dict) Counts(t EntryType) ([]int64, error) {
	var counts []int64
	for i := range d.entries {
		if d.entries[i].Type == t {
			counts = append(counts, d.entries[i].Count)
		}
	}
	return counts, nil
}

// Discard reports whether to drop word id given a uniform sample r.
func (d *Dict) Discard(id int, r float64) bool {
	return discard(d, d.pDiscard, id, r)
}

// PDiscard exposes the discard table for verification.
func (d *Dict) PDiscard() []float64 { return d.pDiscard }

// Save writes the dictionary section in its native wire layout,
// reproducing the loaded byte sequence.
func (d *Dict) Save(out *store.Output) error {
	if err := out.WriteInt32(int32(len(d.entries))); err != nil {
		return err
	}
	if err := out.WriteInt32(int32(d.nwords)); err != nil {
		return err
	}
	if err := out.WriteInt32(int32(d.nlabels)); err != nil {
		return err
	}
	if err := out.WriteInt64(d.ntokens); err != nil {
		return err
	}
	if err := out.WriteInt64(d.pruneSize); err != nil {
		return err
	}
	for i := range d.entries {
		e := &d.entries[i]
		if err := out.WriteCString(e.Word); err != nil {
			return err
		}
		if err := out.WriteInt64(e.Count); err != nil {
			return err
		}
		if err := out.WriteByte(byte(e.Type)); err != nil {
			return err
		}
	}
	for _, p := range d.prunePairs {
		if err := out.WriteInt32(p.First); err != nil {
			return err
		}
		if err := out.WriteInt32(p.Second); err != nil {
			return err
		}
	}
	return nil
}

// SaveMMap writes the dictionary in the memory-mapped sidecar layout:
// fixed-width entry records addressed by id, plus the sorted probe-slot
// array the mmap variant binary-searches instead of probing a table.
func (d *Dict) SaveMMap(out *store.Output) error {
	type slotID struct {
		slot int64
		id   int32
	}
	ordered := make([]slotID, 0, len(d.entries))
	for slot, id := range d.table {
		if id >= 0 {
			ordered = append(ordered, slotID{slot: int64(slot), id: id})
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].slot < ordered[j].slot })
	for i := 1; i < len(ordered); i++ {
		if ordered[i].slot == ordered[i-1].slot {
			return ErrDuplicateHash
		}
	}

	orderedPrune := make([]prunePair, len(d.prunePairs))
	copy(orderedPrune, d.prunePairs)
	sort.Slice(orderedPrune, func(i, j int) bool { return orderedPrune[i].First < orderedPrune[j].First })

	wordWidth := 0
	subwordsLen := 0
	for i := range d.entries {
		wordWidth = max(wordWidth, len(d.entries[i].Word))
		subwordsLen = max(subwordsLen, len(d.entries[i].Subwords))
	}
	subwordsWidth := 4 * subwordsLen

	if err := out.WriteInt32(int32(wordWidth)); err != nil {
		return err
	}
	if err := out.WriteInt32(int32(subwordsWidth)); err != nil {
		return err
	}
	if err := out.WriteInt32(int32(len(d.entries))); err != nil {
		return err
	}
	if err := out.WriteInt32(int32(d.nwords)); err != nil {
		return err
	}
	if err := out.WriteInt32(int32(d.nlabels)); err != nil {
		return err
	}
	if err := out.WriteInt64(d.ntokens); err != nil {
		return err
	}
	if err := out.WriteInt64(d.pruneSize); err != nil {
		return err
	}
	for _, p := range orderedPrune {
		if err := out.WriteInt32(p.First); err != nil {
			return err
		}
	}
	for _, p := range orderedPrune {
		if err := out.WriteInt32(p.Second); err != nil {
			return err
		}
	}
	for _, s := range ordered {
		if err := out.WriteInt64(s.slot); err != nil {
			return err
		}
	}
	for _, s := range ordered {
		if err := out.WriteInt32(s.id); err != nil {
			return err
		}
	}
	for i := range d.entries {
		e := &d.entries[i]
		if err := out.WriteInt32(int32(len(e.Word))); err != nil {
			return err
		}
		if err := out.WritePadded([]byte(e.Word), wordWidth); err != nil {
			return err
		}
		if err := out.WriteInt64(e.Count); err != nil {
			return err
		}
		if err := out.WriteByte(byte(e.Type)); err != nil {
			return err
		}
		if err := out.WriteInt32(int32(len(e.Subwords))); err != nil {
			return err
		}
		for _, sw := range e.Subwords {
			if err := out.WriteInt32(sw); err != nil {
				return err
			}
		}
		if err := out.WriteZeros(subwordsWidth - 4*len(e.Subwords)); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns the dictionary itself: the in-memory form is
// position-free and safe for shared reads.
func (d *Dict) Clone() Dictionary { return d }

// Close is a no-op for the in-memory form.
func (d *Dict) Close() error { return nil }

// Entries exposes the entry table for the converter and tests.
func (d *Dict) Entries() []Entry { return d.entries }
