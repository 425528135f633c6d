package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fasttextgo/args"
	"github.com/hupe1980/fasttextgo/internal/matrix"
)

func softmaxArgs(dim int) *args.Args {
	return &args.Args{
		Dim: dim, Loss: args.LossSoftmax, Model: args.ModelSup,
		T: 1e-4, Label: args.DefaultLabelPrefix,
	}
}

func hsArgs(dim int) *args.Args {
	return &args.Args{
		Dim: dim, Loss: args.LossHS, Model: args.ModelSup,
		T: 1e-4, Label: args.DefaultLabelPrefix,
	}
}

func newSoftmaxModel(t *testing.T, wi, wo *matrix.Matrix, counts []int64) *Model {
	t.Helper()
	m := New(softmaxArgs(wi.N()), wi, wo, false, nil, nil, 0)
	require.NoError(t, m.SetTargetCounts(counts))
	return m
}

func TestSigmoidTable(t *testing.T) {
	m := New(softmaxArgs(2), matrix.New(1, 2), matrix.New(2, 2), false, nil, nil, 0)

	assert.Equal(t, float32(0), m.Sigmoid(-9))
	assert.Equal(t, float32(1), m.Sigmoid(9))
	assert.InDelta(t, 0.5, float64(m.Sigmoid(0)), 1e-3)
	assert.InDelta(t, 1/(1+math.Exp(2)), float64(m.Sigmoid(-2)), 1e-2)
}

func TestLogTable(t *testing.T) {
	m := New(softmaxArgs(2), matrix.New(1, 2), matrix.New(2, 2), false, nil, nil, 0)

	assert.Equal(t, float32(0), m.Log(1.5))
	assert.InDelta(t, math.Log(0.5), float64(m.Log(0.5)), 1e-2)
	assert.InDelta(t, math.Log(0.25), float64(m.Log(0.25)), 1e-2)
	// The table floor keeps log(≈0) finite.
	assert.False(t, math.IsInf(float64(m.Log(0)), 0))
}

func TestComputeHiddenAveragesRows(t *testing.T) {
	wi := matrix.New(3, 2)
	copy(wi.Data(), []float32{1, 2, 3, 4, 5, 6})
	m := newSoftmaxModel(t, wi, matrix.New(2, 2), []int64{1, 1})

	hidden := matrix.NewVector(2)
	require.NoError(t, m.ComputeHidden([]int32{0, 2}, hidden))
	assert.InDelta(t, 3, float64(hidden[0]), 1e-6)
	assert.InDelta(t, 4, float64(hidden[1]), 1e-6)
}

func TestSoftmaxSumsToOne(t *testing.T) {
	wi := matrix.New(5, 4)
	wi.Uniform(0.7)
	wo := matrix.New(3, 4)
	wo.Uniform(0.9)
	m := newSoftmaxModel(t, wi, wo, []int64{3, 2, 1})

	hidden := matrix.NewVector(4)
	require.NoError(t, m.ComputeHidden([]int32{0, 1, 4}, hidden))

	output := matrix.NewVector(3)
	require.NoError(t, m.ComputeOutputSoftmax(hidden, output))

	var sum float64
	for _, p := range output {
		assert.GreaterOrEqual(t, float64(p), 0.0)
		sum += float64(p)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestSupervisedPredict(t *testing.T) {
	// dim=4, 2 classes, input (5,4): the argmax must match the class
	// whose output row has the larger dot product with the averaged
	// hidden vector.
	wi := matrix.New(5, 4)
	copy(wi.Data(), []float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
		1, 1, 1, 1,
	})
	wo := matrix.New(2, 4)
	copy(wo.Data(), []float32{
		2, 2, 0, 0, // strongly matches hidden of rows {0,1}
		-1, -1, 1, 1,
	})
	m := newSoftmaxModel(t, wi, wo, []int64{1, 1})

	heap := NewTopK(2)
	require.NoError(t, m.Predict([]int32{0, 1}, 2, heap, m.Hidden(), m.Output()))
	preds := heap.Drain()

	require.Len(t, preds, 2)
	assert.Equal(t, int32(0), preds[0].ID)
	assert.Equal(t, int32(1), preds[1].ID)

	var sum float64
	for _, p := range preds {
		sum += math.Exp(float64(p.Score))
	}
	assert.InDelta(t, 1.0, sum, 1e-2)
}

func TestPredictDeterministic(t *testing.T) {
	wi := matrix.New(4, 4)
	wi.Uniform(0.5)
	wo := matrix.New(3, 4)
	wo.Uniform(0.5)
	m := newSoftmaxModel(t, wi, wo, []int64{1, 1, 1})

	run := func() []Candidate {
		heap := NewTopK(3)
		require.NoError(t, m.Predict([]int32{1, 2}, 3, heap, m.Hidden(), m.Output()))
		return heap.Drain()
	}
	assert.Equal(t, run(), run())
}

func TestHuffmanTree(t *testing.T) {
	counts := []int64{8, 4, 2, 1}
	osz := len(counts)
	wo := matrix.New(osz, 4)
	m := New(hsArgs(4), matrix.New(4, 4), wo, false, nil, nil, 0)
	require.NoError(t, m.SetTargetCounts(counts))

	paths, codes, treeCounts := m.Tree()

	// The root accumulates the total count.
	var total int64
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, total, treeCounts[2*osz-2])

	for i := 0; i < osz; i++ {
		require.NotEmpty(t, paths[i])
		assert.Equal(t, len(paths[i]), len(codes[i]))
		// Every leaf's path terminates at the root.
		assert.Equal(t, int32(2*osz-2-osz), paths[i][len(paths[i])-1])
	}
}

func TestHSPredictProbabilitiesSumToOne(t *testing.T) {
	counts := []int64{8, 4, 2, 1}
	osz := len(counts)

	// Zero output rows make every split a fair coin, so leaf
	// probabilities are exact powers of two.
	wo := matrix.New(osz, 4)
	wi := matrix.New(4, 4)
	wi.Uniform(0.3)
	m := New(hsArgs(4), wi, wo, false, nil, nil, 0)
	require.NoError(t, m.SetTargetCounts(counts))

	heap := NewTopK(osz)
	require.NoError(t, m.Predict([]int32{0, 1}, osz, heap, m.Hidden(), m.Output()))
	preds := heap.Drain()

	require.Len(t, preds, osz)
	var sum float64
	for _, p := range preds {
		sum += math.Exp(float64(p.Score))
	}
	assert.InDelta(t, 1.0, sum, 1e-4)

	// All leaves are distinct classes.
	seen := map[int32]bool{}
	for _, p := range preds {
		assert.False(t, seen[p.ID])
		seen[p.ID] = true
		assert.Less(t, p.ID, int32(osz))
	}
}

func TestNegativeSamplingTable(t *testing.T) {
	counts := []int64{16, 4, 1}
	cfg := softmaxArgs(2)
	cfg.Loss = args.LossNS
	m := New(cfg, matrix.New(2, 2), matrix.New(3, 2), false, nil, nil, 0)
	require.NoError(t, m.SetTargetCounts(counts))

	negs := m.Negatives()
	require.NotEmpty(t, negs)

	var freq [3]int
	for _, id := range negs {
		freq[id]++
	}
	// Multiplicities follow sqrt(count): 4 : 2 : 1.
	assert.InDelta(t, 4.0, float64(freq[0])/float64(freq[2]), 0.01)
	assert.InDelta(t, 2.0, float64(freq[1])/float64(freq[2]), 0.01)
}

func TestSetTargetCountsSizeMismatch(t *testing.T) {
	m := New(hsArgs(2), matrix.New(2, 2), matrix.New(3, 2), false, nil, nil, 0)
	assert.Error(t, m.SetTargetCounts([]int64{1, 2}))
}

func TestCloneWithSharesTreeButNotScratch(t *testing.T) {
	counts := []int64{8, 4, 2, 1}
	wo := matrix.New(4, 4)
	wi := matrix.New(4, 4)
	wi.Uniform(0.3)
	m := New(hsArgs(4), wi, wo, false, nil, nil, 0)
	require.NoError(t, m.SetTargetCounts(counts))

	c := m.CloneWith(wi, wo, nil, nil)
	assert.NotSame(t, &m.Hidden()[0], &c.Hidden()[0])

	heap := NewTopK(4)
	require.NoError(t, c.Predict([]int32{0}, 4, heap, c.Hidden(), c.Output()))
	assert.Equal(t, 4, heap.Len())
}
