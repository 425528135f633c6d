package args

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fasttextgo/internal/store"
)

func sample() *Args {
	return &Args{
		Dim:          100,
		WS:           5,
		Epoch:        5,
		MinCount:     1,
		Neg:          5,
		WordNgrams:   2,
		Loss:         LossSoftmax,
		Model:        ModelSup,
		Bucket:       2_000_000,
		Minn:         3,
		Maxn:         6,
		LRUpdateRate: 100,
		T:            1e-4,
		Label:        DefaultLabelPrefix,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	out := store.NewOutput(&buf)
	require.NoError(t, sample().Save(out))
	require.NoError(t, out.Flush())

	// 12 int32 fields plus one float64.
	assert.Equal(t, int64(12*4+8), out.BytesWritten())

	got, err := Load(store.NewInput(&buf))
	require.NoError(t, err)
	assert.Equal(t, sample(), got)
}

func TestLoadRejectsUnknownEnums(t *testing.T) {
	a := sample()

	var buf bytes.Buffer
	out := store.NewOutput(&buf)
	a.Loss = Loss(9)
	require.NoError(t, a.Save(out))
	require.NoError(t, out.Flush())
	_, err := Load(store.NewInput(&buf))
	assert.ErrorIs(t, err, ErrUnknownEnum)

	buf.Reset()
	out = store.NewOutput(&buf)
	a.Loss = LossHS
	a.Model = Model(0)
	require.NoError(t, a.Save(out))
	require.NoError(t, out.Flush())
	_, err = Load(store.NewInput(&buf))
	assert.ErrorIs(t, err, ErrUnknownEnum)
}

func TestApplyVersionCompat(t *testing.T) {
	a := sample()
	a.ApplyVersionCompat(11)
	assert.Equal(t, 0, a.Maxn)
	assert.True(t, a.UseMaxVocabularySize)

	b := sample()
	b.Model = ModelSG
	b.ApplyVersionCompat(11)
	assert.Equal(t, 6, b.Maxn)
	assert.True(t, b.UseMaxVocabularySize)

	c := sample()
	c.ApplyVersionCompat(12)
	assert.Equal(t, 6, c.Maxn)
	assert.False(t, c.UseMaxVocabularySize)
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "hs", LossHS.String())
	assert.Equal(t, "softmax", LossSoftmax.String())
	assert.Equal(t, "supervised", ModelSup.String())
	assert.Equal(t, "cbow", ModelCBOW.String())
}
