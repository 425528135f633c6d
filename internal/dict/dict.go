// Package dict implements the model vocabulary: word and label entries,
// the character-n-gram subword index, word-n-gram hashing, tokenisation
// and the sub-sampling discard table. Two implementations share one
// contract: an in-memory dictionary backed by an open-addressed hash
// table, and a memory-mapped dictionary backed by sorted arrays and
// random-access reads.
package dict

import (
	"errors"
	"math"
	"math/rand"

	"github.com/hupe1980/fasttextgo/args"
	"github.com/hupe1980/fasttextgo/internal/store"
)

const (
	// MaxVocabSize is the legacy probing-table size used by version 11
	// models.
	MaxVocabSize = 30_000_000

	// maxLineSize caps tokens consumed per line for unsupervised models.
	maxLineSize = 1024

	// EOS is the sentinel token appended to every tokenised line.
	EOS = "</s>"

	bow = "<"
	eow = ">"
)

var (
	// ErrEmptyVocabulary is returned when a model carries no entries.
	ErrEmptyVocabulary = errors.New("dict: empty vocabulary")

	// ErrInvalidEntryType is returned for an unknown entry type byte.
	ErrInvalidEntryType = errors.New("dict: invalid entry type")

	// ErrDuplicateHash is returned when the memory-mapped hash array
	// holds the same probe slot for two distinct ids. The sorted-array
	// layout cannot represent collisions; the trainer guarantees
	// uniqueness and loading asserts it.
	ErrDuplicateHash = errors.New("dict: duplicate word hash in mmap table")
)

// EntryType discriminates vocabulary words from labels.
type EntryType uint8

const (
	Word  EntryType = 0
	Label EntryType = 1
)

func (t EntryType) String() string {
	switch t {
	case Word:
		return "word"
	case Label:
		return "label"
	default:
		return "unknown"
	}
}

// entryTypeFromByte decodes a serialized entry type.
func entryTypeFromByte(b byte) (EntryType, error) {
	if b > 1 {
		return 0, ErrInvalidEntryType
	}
	return EntryType(b), nil
}

// Entry is one vocabulary record. Subwords holds the entry's own id
// followed by the bucket ids of its character n-grams.
type Entry struct {
	Word     string
	Count    int64
	Type     EntryType
	Subwords []int32
}

// Dictionary is the vocabulary contract shared by the in-memory and the
// memory-mapped implementation.
type Dictionary interface {
	Size() int
	NWords() int
	NLabels() int
	NTokens() int64

	// PruneIdxSize is -1 for unpruned models, 0 when pruning removed
	// every bucket, and the mapping size otherwise.
	PruneIdxSize() int64
	Pruned() bool

	// ID returns the id of word, or -1 if absent.
	ID(word string) (int, error)
	Contains(word string) (bool, error)

	Word(id int) (string, error)
	Label(lid int) (string, error)
	Count(id int) (int64, error)
	Type(id int) (EntryType, error)

	// Subwords returns the subword ids of word: the stored list for
	// in-vocabulary words, or bucket ids computed on the fly for OOV
	// words.
	Subwords(word string) ([]int32, error)
	SubwordsByID(id int) ([]int32, error)

	// SubwordsWithStrings additionally returns the n-gram strings, with
	// the word itself first (id -1 when OOV).
	SubwordsWithStrings(word string) ([]int32, []string, error)

	// Line tokenises text for the supervised prediction path: word
	// tokens contribute their subword ids, labels their label ids, and
	// word-n-gram buckets are appended. No RNG is consulted.
	Line(text string) (words, labels []int32, err error)
	LineTokens(tokens []string) (words, labels []int32, err error)

	// SampledLine tokenises text for word-vector paths of unsupervised
	// models, returning word ids only, with sub-sampling applied.
	SampledLine(text string, rng *rand.Rand) ([]int32, error)

	// Counts returns the counts of all entries of the given type in id
	// order.
	Counts(t EntryType) ([]int64, error)

	// SaveMMap writes the dictionary in the memory-mapped sidecar layout.
	SaveMMap(out *store.Output) error

	// Clone returns a view sharing read-only data but positioned
	// independently, for use by another handle.
	Clone() Dictionary
	Close() error
}

// accessor is the entry-access surface the shared behaviour is
// parameterised by.
type accessor interface {
	argsRef() *args.Args
	size() int
	nWords() int
	pruneIdxSize() int64

	// hashToID resolves a probe slot to an id, or -1.
	hashToID(slot int64) (int, error)
	entryWord(id int) (string, error)
	entryType(id int) (EntryType, error)
	entrySubwords(id int) ([]int32, error)

	// pruning maps a bucket to its compacted bucket, if present.
	pruning(bucket int32) (int32, bool)
}

// tableSize returns the probing-table size the hash-to-id mapping is
// truncated into.
func tableSize(a accessor) int64 {
	if a.argsRef().UseMaxVocabularySize {
		return MaxVocabSize
	}
	return int64(math.Ceil(float64(a.size()) / 0.7))
}

// find probes for the slot of w: either the slot holding w's id or the
// first empty slot of its probe chain.
func find(a accessor, w string, h uint32) (int64, error) {
	tSize := tableSize(a)
	slot := int64(h) % tSize
	for {
		id, err := a.hashToID(slot)
		if err != nil {
			return 0, err
		}
		if id < 0 {
			return slot, nil
		}
		word, err := a.entryWord(id)
		if err != nil {
			return 0, err
		}
		if word == w {
			return slot, nil
		}
		slot = (slot + 1) % tSize
	}
}

// idWithHash resolves w (whose 32-bit hash is h) to its id, or -1.
func idWithHash(a accessor, w string, h uint32) (int, error) {
	slot, err := find(a, w, h)
	if err != nil {
		return -1, err
	}
	return a.hashToID(slot)
}

// typeOfToken classifies a raw token by its prefix.
func typeOfToken(a accessor, token string) EntryType {
	if len(token) >= len(a.argsRef().Label) && token[:len(a.argsRef().Label)] == a.argsRef().Label {
		return Label
	}
	return Word
}

// subwordsOf returns the subword ids for word: stored for in-vocabulary
// entries, computed for OOV. EOS never has subwords computed.
func subwordsOf(a accessor, word string) ([]int32, error) {
	id, err := idWithHash(a, word, Hash(word))
	if err != nil {
		return nil, err
	}
	if id >= 0 {
		return a.entrySubwords(id)
	}
	var ngrams []int32
	if word != EOS {
		computeSubwords(a, bow+word+eow, func(bucket int32) {
			ngrams = append(ngrams, bucket)
		}, nil)
	}
	return ngrams, nil
}

// initDiscard computes the sub-sampling discard table from entry counts.
func initDiscard(counts []int64, nTokens int64, t float64) []float64 {
	pDiscard := make([]float64, len(counts))
	for i, c := range counts {
		f := float64(c) / float64(nTokens)
		pDiscard[i] = math.Sqrt(t/f) + t/f
	}
	return pDiscard
}

// discard reports whether to drop word id given a uniform sample r.
// Supervised models never discard.
func discard(a accessor, pDiscard []float64, id int, r float64) bool {
	if a.argsRef().Model == args.ModelSup {
		return false
	}
	return r > pDiscard[id]
}
