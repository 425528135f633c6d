package dict

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fasttextgo/args"
	"github.com/hupe1980/fasttextgo/internal/store"
)

type testEntry struct {
	word  string
	count int64
	typ   EntryType
}

func buildDictBytes(t *testing.T, entries []testEntry, nWords, nLabels int, nTokens, pruneIdxSize int64, prunePairs [][2]int32) []byte {
	t.Helper()
	var buf bytes.Buffer
	out := store.NewOutput(&buf)
	require.NoError(t, out.WriteInt32(int32(len(entries))))
	require.NoError(t, out.WriteInt32(int32(nWords)))
	require.NoError(t, out.WriteInt32(int32(nLabels)))
	require.NoError(t, out.WriteInt64(nTokens))
	require.NoError(t, out.WriteInt64(pruneIdxSize))
	for _, e := range entries {
		require.NoError(t, out.WriteCString(e.word))
		require.NoError(t, out.WriteInt64(e.count))
		require.NoError(t, out.WriteByte(byte(e.typ)))
	}
	for _, p := range prunePairs {
		require.NoError(t, out.WriteInt32(p[0]))
		require.NoError(t, out.WriteInt32(p[1]))
	}
	require.NoError(t, out.Flush())
	return buf.Bytes()
}

func supArgs() *args.Args {
	return &args.Args{
		Dim: 4, Bucket: 2_000_000, WordNgrams: 1,
		Loss: args.LossSoftmax, Model: args.ModelSup,
		T: 1e-4, Label: args.DefaultLabelPrefix,
	}
}

func loadTestDict(t *testing.T, cfg *args.Args, entries []testEntry, nWords, nLabels int, nTokens, pruneIdxSize int64, prunePairs [][2]int32) *Dict {
	t.Helper()
	raw := buildDictBytes(t, entries, nWords, nLabels, nTokens, pruneIdxSize, prunePairs)
	d, err := Load(cfg, store.NewInput(bytes.NewReader(raw)))
	require.NoError(t, err)
	return d
}

func TestHashReferenceValues(t *testing.T) {
	assert.Equal(t, uint32(0x811C9DC5), Hash(""))
	assert.Equal(t, uint32(0x1A47E90B), Hash("abc"))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Tokenize("a b"))
	assert.Equal(t, []string{"a", "b"}, Tokenize("  a\t\tb \n"))
	assert.Equal(t, []string{"日本", "語"}, Tokenize("日本　語"))
	assert.Equal(t, []string{"x"}, Tokenize(" x "))
	assert.Empty(t, Tokenize(" \t\r\n"))
}

func TestDictionaryRoundTrip(t *testing.T) {
	entries := []testEntry{
		{"cat", 5, Word},
		{"dog", 7, Word},
		{"__label__pet", 5, Label},
	}
	raw := buildDictBytes(t, entries, 2, 1, 17, -1, nil)
	d, err := Load(supArgs(), store.NewInput(bytes.NewReader(raw)))
	require.NoError(t, err)

	assert.Equal(t, 3, d.Size())
	assert.Equal(t, 2, d.NWords())
	assert.Equal(t, 1, d.NLabels())
	assert.Equal(t, int64(17), d.NTokens())
	assert.Equal(t, int64(-1), d.PruneIdxSize())
	assert.False(t, d.Pruned())

	for i, e := range entries {
		count, err := d.Count(i)
		require.NoError(t, err)
		assert.Equal(t, e.count, count)

		typ, err := d.Type(i)
		require.NoError(t, err)
		assert.Equal(t, e.typ, typ)

		id, err := d.ID(e.word)
		require.NoError(t, err)
		assert.Equal(t, i, id)
	}

	word, err := d.Word(0)
	require.NoError(t, err)
	assert.Equal(t, "cat", word)

	label, err := d.Label(0)
	require.NoError(t, err)
	assert.Equal(t, "__label__pet", label)

	missing, err := d.ID("ferret")
	require.NoError(t, err)
	assert.Equal(t, -1, missing)

	// Saving reproduces the loaded byte sequence exactly.
	var buf bytes.Buffer
	out := store.NewOutput(&buf)
	require.NoError(t, d.Save(out))
	require.NoError(t, out.Flush())
	assert.Equal(t, raw, buf.Bytes())
}

func TestLoadFailures(t *testing.T) {
	raw := buildDictBytes(t, nil, 0, 0, 0, -1, nil)
	_, err := Load(supArgs(), store.NewInput(bytes.NewReader(raw)))
	assert.ErrorIs(t, err, ErrEmptyVocabulary)

	raw = buildDictBytes(t, []testEntry{{"x", 1, EntryType(7)}}, 1, 0, 1, -1, nil)
	_, err = Load(supArgs(), store.NewInput(bytes.NewReader(raw)))
	assert.ErrorIs(t, err, ErrInvalidEntryType)

	_, err = Load(supArgs(), store.NewInput(bytes.NewReader([]byte{1, 0})))
	assert.ErrorIs(t, err, store.ErrTruncated)
}

func tenWordArgs() *args.Args {
	return &args.Args{
		Dim: 4, Bucket: 100_000, WordNgrams: 1,
		Minn: 3, Maxn: 3,
		Loss: args.LossNS, Model: args.ModelSG,
		T: 1e-4, Label: args.DefaultLabelPrefix,
	}
}

func tenWordDict(t *testing.T) *Dict {
	var entries []testEntry
	for _, w := range []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel", "india", "juliet"} {
		entries = append(entries, testEntry{w, 10, Word})
	}
	return loadTestDict(t, tenWordArgs(), entries, 10, 0, 100, -1, nil)
}

func TestSubwordsOOV(t *testing.T) {
	d := tenWordDict(t)

	sw, err := d.Subwords("cat")
	require.NoError(t, err)

	want := []int32{
		10 + int32(uint64(Hash("<ca"))%100_000),
		10 + int32(uint64(Hash("cat"))%100_000),
		10 + int32(uint64(Hash("at>"))%100_000),
	}
	assert.Equal(t, want, sw)
}

func TestSubwordInvariants(t *testing.T) {
	d := tenWordDict(t)
	for i := 0; i < d.NWords(); i++ {
		sw, err := d.SubwordsByID(i)
		require.NoError(t, err)
		require.NotEmpty(t, sw)
		assert.Equal(t, int32(i), sw[0])
		for _, id := range sw[1:] {
			assert.GreaterOrEqual(t, id, int32(10))
			assert.Less(t, id, int32(10+100_000))
		}
	}
}

func TestEOSHasNoSubwords(t *testing.T) {
	entries := []testEntry{
		{"cat", 5, Word},
		{EOS, 3, Word},
	}
	cfg := tenWordArgs()
	d := loadTestDict(t, cfg, entries, 2, 0, 8, -1, nil)

	sw, err := d.SubwordsByID(1)
	require.NoError(t, err)
	assert.Equal(t, []int32{1}, sw)

	catSw, err := d.SubwordsByID(0)
	require.NoError(t, err)
	assert.Greater(t, len(catSw), 1)
}

func TestDiscardTable(t *testing.T) {
	entries := []testEntry{
		{"cat", 5, Word},
		{"dog", 7, Word},
	}
	cfg := tenWordArgs()
	d := loadTestDict(t, cfg, entries, 2, 0, 12, -1, nil)

	for i, count := range []int64{5, 7} {
		f := float64(count) / 12.0
		want := math.Sqrt(cfg.T/f) + cfg.T/f
		assert.InDelta(t, want, d.PDiscard()[i], 1e-6)
	}

	// Unsupervised models drop words when the sample exceeds pDiscard.
	assert.True(t, d.Discard(0, 1.0))
	assert.False(t, d.Discard(0, 0.0))
}

func TestDiscardNeverFiresForSupervised(t *testing.T) {
	entries := []testEntry{
		{"cat", 5, Word},
		{"__label__pet", 5, Label},
	}
	d := loadTestDict(t, supArgs(), entries, 1, 1, 10, -1, nil)
	assert.False(t, d.Discard(0, 1.0))
}

func TestLineSupervised(t *testing.T) {
	entries := []testEntry{
		{"hello", 5, Word},
		{"world", 4, Word},
		{EOS, 2, Word},
		{"__label__greeting", 3, Label},
	}
	cfg := supArgs() // maxn=0: words contribute their own id only
	d := loadTestDict(t, cfg, entries, 3, 1, 14, -1, nil)

	words, labels, err := d.Line("hello world __label__greeting")
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 2}, words) // EOS appended by tokenisation
	assert.Equal(t, []int32{0}, labels)

	// Unknown tokens are dropped.
	words, labels, err = d.Line("hello unseen")
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 2}, words)
	assert.Empty(t, labels)
}

func TestLineWordNgrams(t *testing.T) {
	entries := []testEntry{
		{"hello", 5, Word},
		{"world", 4, Word},
		{EOS, 2, Word},
		{"__label__greeting", 3, Label},
	}
	cfg := supArgs()
	cfg.WordNgrams = 2
	cfg.Bucket = 1000
	d := loadTestDict(t, cfg, entries, 3, 1, 14, -1, nil)

	words, _, err := d.Line("hello world")
	require.NoError(t, err)

	// Rolling bigram hashes with the sign-extension widening rule.
	bigram := func(a, b string) int32 {
		h := uint64(int64(int32(Hash(a))))
		h = h*116049371 + uint64(int64(int32(Hash(b))))
		return 3 + int32(h%1000)
	}
	want := []int32{0, 1, 2, bigram("hello", "world"), bigram("world", EOS)}
	assert.Equal(t, want, words)
}

func TestPruneGateZeroDisablesNgrams(t *testing.T) {
	entries := []testEntry{
		{"hello", 5, Word},
		{"__label__x", 3, Label},
	}
	cfg := tenWordArgs()
	cfg.Model = args.ModelSup
	cfg.WordNgrams = 2
	d := loadTestDict(t, cfg, entries, 1, 1, 8, 0, nil)

	assert.True(t, d.Pruned())

	// Char n-grams are suppressed: the stored subword list holds only
	// the word id itself.
	sw, err := d.SubwordsByID(0)
	require.NoError(t, err)
	assert.Equal(t, []int32{0}, sw)

	// And no word n-grams are emitted.
	words, _, err := d.Line("hello hello")
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 0}, words)
}

func TestPruneMappingRewritesBuckets(t *testing.T) {
	cfg := tenWordArgs()
	cfg.Model = args.ModelSup

	// Find the bucket of one n-gram of "cat" so the mapping can target it.
	catBucket := int32(uint64(Hash("<ca")) % uint64(cfg.Bucket))

	entries := []testEntry{
		{"cat", 5, Word},
		{"__label__x", 3, Label},
	}
	d := loadTestDict(t, cfg, entries, 1, 1, 8, 1, [][2]int32{{catBucket, 7}})

	sw, err := d.SubwordsByID(0)
	require.NoError(t, err)
	// Only the mapped bucket survives, rewritten to its compacted id.
	assert.Equal(t, []int32{0, 1 + 7}, sw)
}

func TestSampledLine(t *testing.T) {
	entries := []testEntry{
		{"hello", 5, Word},
		{"world", 4, Word},
		{EOS, 2, Word},
	}
	cfg := tenWordArgs()
	cfg.T = 1e9 // pDiscard far above 1: nothing is ever discarded
	d := loadTestDict(t, cfg, entries, 3, 0, 11, -1, nil)

	words, err := d.SampledLine("hello world", rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 2}, words)
}

func TestCounts(t *testing.T) {
	entries := []testEntry{
		{"cat", 5, Word},
		{"dog", 7, Word},
		{"__label__a", 2, Label},
		{"__label__b", 9, Label},
	}
	d := loadTestDict(t, supArgs(), entries, 2, 2, 23, -1, nil)

	wc, err := d.Counts(Word)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 7}, wc)

	lc, err := d.Counts(Label)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 9}, lc)
}

func TestSubwordsWithStrings(t *testing.T) {
	d := tenWordDict(t)

	ids, substrings, err := d.SubwordsWithStrings("cat")
	require.NoError(t, err)
	require.Equal(t, len(ids), len(substrings))
	assert.Equal(t, int32(-1), ids[0]) // OOV word itself
	assert.Equal(t, "cat", substrings[0])
	assert.Equal(t, []string{"cat", "<ca", "cat", "at>"}, substrings)
}
