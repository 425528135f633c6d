// Package model implements the inference engine: hidden-layer averaging,
// the softmax and hierarchical-softmax output heads, k-best search and
// the sigmoid/log lookup tables.
package model

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/hupe1980/fasttextgo/args"
	"github.com/hupe1980/fasttextgo/internal/matrix"
)

const (
	sigmoidTableSize = 512
	maxSigmoid       = 8
	logTableSize     = 512

	negativeTableSize = 10_000_000
)

// node is one Huffman-tree node.
type node struct {
	parent int32
	left   int32
	right  int32
	count  int64
	binary bool
}

// Model evaluates a trained model. It reuses its hidden/output/grad
// scratch vectors between calls and may only be used from one
// goroutine; concurrent use requires CloneWith.
type Model struct {
	wi  matrix.Readable
	wo  *matrix.Matrix
	qwi matrix.QReadable
	qwo *matrix.QMatrix

	cfg *args.Args

	hidden matrix.Vector
	output matrix.Vector
	grad   matrix.Vector

	quant bool
	osz   int
	hsz   int

	tSigmoid []float32
	tLog     []float32

	negatives []int32
	negpos    int

	paths [][]int32
	codes [][]bool
	tree  []node

	// rng is seeded at construction and never consulted; getNegative
	// walks the sampling table in order.
	rng *rand.Rand
}

// New builds a model over the given matrices. Exactly one of wi/qwi is
// set; wo is nil only when the output matrix is quantized.
func New(cfg *args.Args, wi matrix.Readable, wo *matrix.Matrix, quant bool, qwi matrix.QReadable, qwo *matrix.QMatrix, seed int64) *Model {
	osz := 0
	if quant && cfg.QOut {
		osz = qwo.M()
	} else {
		osz = wo.M()
	}
	m := &Model{
		wi:     wi,
		wo:     wo,
		qwi:    qwi,
		qwo:    qwo,
		cfg:    cfg,
		hidden: matrix.NewVector(cfg.Dim),
		output: matrix.NewVector(osz),
		grad:   matrix.NewVector(cfg.Dim),
		quant:  quant,
		osz:    osz,
		hsz:    cfg.Dim,
		rng:    rand.New(rand.NewSource(seed)),
	}
	m.initSigmoid()
	m.initLog()
	return m
}

// OutputSize returns the number of output classes.
func (m *Model) OutputSize() int { return m.osz }

// SetTargetCounts builds the loss-specific structures: the Huffman tree
// for hierarchical softmax, the sampling table for negative sampling.
func (m *Model) SetTargetCounts(counts []int64) error {
	if len(counts) != m.osz {
		return fmt.Errorf("model: got %d target counts for %d outputs", len(counts), m.osz)
	}
	switch m.cfg.Loss {
	case args.LossNS:
		m.initTableNegative(counts)
	case args.LossHS:
		m.buildTree(counts)
	}
	return nil
}

// ComputeHidden averages the input rows into hidden.
func (m *Model) ComputeHidden(input []int32, hidden matrix.Vector) error {
	if len(hidden) != m.hsz {
		panic(fmt.Sprintf("model: hidden size %d does not match dimension %d", len(hidden), m.hsz))
	}
	hidden.Zero()
	for _, id := range input {
		var err error
		if m.quant {
			err = hidden.AddQRow(m.qwi, int(id))
		} else {
			err = hidden.AddRow(m.wi, int(id))
		}
		if err != nil {
			return err
		}
	}
	hidden.Mul(1.0 / float32(len(input)))
	return nil
}

// ComputeOutputSoftmax fills output with softmax probabilities over the
// classes, numerically stabilised by the running maximum.
func (m *Model) ComputeOutputSoftmax(hidden, output matrix.Vector) error {
	var err error
	if m.quant && m.cfg.QOut {
		err = output.MulQMatrix(m.qwo, hidden)
	} else {
		err = output.MulMatrix(m.wo, hidden)
	}
	if err != nil {
		return err
	}
	maxVal := output[0]
	for _, v := range output[:m.osz] {
		maxVal = max(maxVal, v)
	}
	var z float32
	for i := 0; i < m.osz; i++ {
		p := float32(math.Exp(float64(output[i] - maxVal)))
		z += p
		output[i] = p
	}
	for i := 0; i < m.osz; i++ {
		output[i] /= z
	}
	return nil
}

// Predict scores input against the output head and pushes up to k
// candidates into heap. The caller provides scratch vectors so cloned
// handles do not share state.
func (m *Model) Predict(input []int32, k int, heap *TopK, hidden, output matrix.Vector) error {
	if k <= 0 {
		return fmt.Errorf("model: k must be positive, got %d", k)
	}
	if err := m.ComputeHidden(input, hidden); err != nil {
		return err
	}
	if m.cfg.Loss == args.LossHS {
		return m.dfs(k, int32(2*m.osz-2), 0, heap, hidden)
	}
	return m.findKBest(k, heap, hidden, output)
}

// findKBest pushes the softmax log-probabilities, skipping classes that
// cannot beat the current heap minimum.
func (m *Model) findKBest(k int, heap *TopK, hidden, output matrix.Vector) error {
	if err := m.ComputeOutputSoftmax(hidden, output); err != nil {
		return err
	}
	for i := 0; i < m.osz; i++ {
		lp := m.Log(output[i])
		if heap.Full() && lp < heap.Min() {
			continue
		}
		heap.Push(lp, int32(i))
	}
	return nil
}

// dfs descends the Huffman tree, pruning branches whose accumulated
// score already falls below the heap minimum.
func (m *Model) dfs(k int, nodeID int32, score float32, heap *TopK, hidden matrix.Vector) error {
	if heap.Full() && score < heap.Min() {
		return nil
	}
	n := &m.tree[nodeID]
	if n.left == -1 && n.right == -1 {
		heap.Push(score, nodeID)
		return nil
	}
	var dot float32
	var err error
	if m.quant && m.cfg.QOut {
		dot, err = m.qwo.DotRow(hidden, int(nodeID)-m.osz)
	} else {
		dot, err = m.wo.DotRow(hidden, int(nodeID)-m.osz)
	}
	if err != nil {
		return err
	}
	f := m.Sigmoid(dot)
	if err := m.dfs(k, n.left, score+m.Log(1-f), heap, hidden); err != nil {
		return err
	}
	return m.dfs(k, n.right, score+m.Log(f), heap, hidden)
}

// initTableNegative builds the sampling table: class i appears with
// multiplicity proportional to sqrt(count_i).
func (m *Model) initTableNegative(counts []int64) {
	var z float32
	for _, c := range counts {
		z += float32(math.Sqrt(float64(c)))
	}
	negatives := make([]int32, 0, negativeTableSize)
	for i, c := range counts {
		sc := float32(math.Sqrt(float64(c)))
		for j := 0; float32(j) < sc*negativeTableSize/z; j++ {
			negatives = append(negatives, int32(i))
		}
	}
	m.negatives = negatives
	m.negpos = 0
}

// Negatives exposes the sampling table for verification.
func (m *Model) Negatives() []int32 { return m.negatives }

// getNegative draws the next sampled class distinct from target.
func (m *Model) getNegative(target int32) int32 {
	for {
		negative := m.negatives[m.negpos]
		m.negpos = (m.negpos + 1) % len(m.negatives)
		if negative != target {
			return negative
		}
	}
}

// buildTree constructs the Huffman coding tree over label counts and
// derives each leaf's root path and binary code.
func (m *Model) buildTree(counts []int64) {
	osz := m.osz
	m.tree = make([]node, 2*osz-1)
	for i := range m.tree {
		m.tree[i] = node{parent: -1, left: -1, right: -1, count: 1e15}
	}
	for i := 0; i < osz; i++ {
		m.tree[i].count = counts[i]
	}
	leaf := osz - 1
	nodeCur := osz
	for i := osz; i < 2*osz-1; i++ {
		var mini [2]int
		for j := 0; j < 2; j++ {
			if leaf >= 0 && m.tree[leaf].count < m.tree[nodeCur].count {
				mini[j] = leaf
				leaf--
			} else {
				mini[j] = nodeCur
				nodeCur++
			}
		}
		m.tree[i].left = int32(mini[0])
		m.tree[i].right = int32(mini[1])
		m.tree[i].count = m.tree[mini[0]].count + m.tree[mini[1]].count
		m.tree[mini[0]].parent = int32(i)
		m.tree[mini[1]].parent = int32(i)
		m.tree[mini[1]].binary = true
	}
	m.paths = make([][]int32, osz)
	m.codes = make([][]bool, osz)
	for i := 0; i < osz; i++ {
		var path []int32
		var code []bool
		for j := int32(i); m.tree[j].parent != -1; j = m.tree[j].parent {
			path = append(path, m.tree[j].parent-int32(osz))
			code = append(code, m.tree[j].binary)
		}
		m.paths[i] = path
		m.codes[i] = code
	}
}

// Tree exposes the Huffman nodes for verification.
func (m *Model) Tree() (paths [][]int32, codes [][]bool, counts []int64) {
	counts = make([]int64, len(m.tree))
	for i := range m.tree {
		counts[i] = m.tree[i].count
	}
	return m.paths, m.codes, counts
}

func (m *Model) initSigmoid() {
	m.tSigmoid = make([]float32, sigmoidTableSize+1)
	for i := range m.tSigmoid {
		x := float64(i*2*maxSigmoid)/sigmoidTableSize - maxSigmoid
		m.tSigmoid[i] = float32(1.0 / (1.0 + math.Exp(-x)))
	}
}

func (m *Model) initLog() {
	m.tLog = make([]float32, logTableSize+1)
	for i := range m.tLog {
		x := (float64(i) + 1e-5) / logTableSize
		m.tLog[i] = float32(math.Log(x))
	}
}

// Log is the piecewise-constant log lookup; x > 1 clamps to 0.
func (m *Model) Log(x float32) float32 {
	if x > 1.0 {
		return 0
	}
	return m.tLog[int(x*logTableSize)]
}

// Sigmoid is the piecewise-constant sigmoid lookup; out-of-range inputs
// saturate.
func (m *Model) Sigmoid(x float32) float32 {
	if x < -maxSigmoid {
		return 0
	}
	if x > maxSigmoid {
		return 1
	}
	i := int((x + maxSigmoid) * sigmoidTableSize / maxSigmoid / 2)
	return m.tSigmoid[i]
}

// Hidden returns the model's own hidden scratch vector.
func (m *Model) Hidden() matrix.Vector { return m.hidden }

// Output returns the model's own output scratch vector.
func (m *Model) Output() matrix.Vector { return m.output }

// CloneWith returns a model sharing the loss structures and lookup
// tables but reading through the given matrix views and using fresh
// scratch vectors.
func (m *Model) CloneWith(wi matrix.Readable, wo *matrix.Matrix, qwi matrix.QReadable, qwo *matrix.QMatrix) *Model {
	c := *m
	c.wi = wi
	c.wo = wo
	c.qwi = qwi
	c.qwo = qwo
	c.hidden = matrix.NewVector(m.hsz)
	c.output = matrix.NewVector(m.osz)
	c.grad = matrix.NewVector(m.hsz)
	c.rng = rand.New(rand.NewSource(0))
	return &c
}
