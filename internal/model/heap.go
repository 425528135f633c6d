package model

import "sort"

// Candidate is one scored prediction: a log-probability and a class id.
type Candidate struct {
	Score float32
	ID    int32
}

type heapEntry struct {
	Candidate
	seq int
}

// TopK is a bounded priority queue keeping the k highest-scoring
// candidates, ties broken by insertion order. It is a hand-rolled
// value-based binary min-heap; container/heap interface overhead is not
// worth it on the predict path.
type TopK struct {
	k     int
	items []heapEntry
	seq   int
}

// NewTopK returns an empty queue bounded to k entries.
func NewTopK(k int) *TopK {
	return &TopK{k: k, items: make([]heapEntry, 0, min(k, 16))}
}

// Reset clears the queue for reuse.
func (q *TopK) Reset() {
	q.items = q.items[:0]
	q.seq = 0
}

// Len returns the number of queued candidates.
func (q *TopK) Len() int { return len(q.items) }

// K returns the bound.
func (q *TopK) K() int { return q.k }

// Min returns the current lowest score. Only valid when Len() > 0.
func (q *TopK) Min() float32 {
	return q.items[0].Score
}

// Full reports whether the queue holds k candidates.
func (q *TopK) Full() bool { return len(q.items) >= q.k }

// less orders the min-heap: lower scores first; among equal scores the
// later insertion is evicted first, so earlier entries win ties.
func (q *TopK) less(i, j int) bool {
	if q.items[i].Score != q.items[j].Score {
		return q.items[i].Score < q.items[j].Score
	}
	return q.items[i].seq > q.items[j].seq
}

func (q *TopK) swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

func (q *TopK) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !q.less(i, parent) {
			break
		}
		q.swap(i, parent)
		i = parent
	}
}

func (q *TopK) siftDown(i int) {
	n := len(q.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		smallest := left
		if right := left + 1; right < n && q.less(right, left) {
			smallest = right
		}
		if !q.less(smallest, i) {
			break
		}
		q.swap(i, smallest)
		i = smallest
	}
}

// Push offers a candidate. When full, a candidate not beating the
// current minimum is discarded.
func (q *TopK) Push(score float32, id int32) {
	e := heapEntry{Candidate: Candidate{Score: score, ID: id}, seq: q.seq}
	q.seq++
	if len(q.items) < q.k {
		q.items = append(q.items, e)
		q.siftUp(len(q.items) - 1)
		return
	}
	if score <= q.items[0].Score {
		return
	}
	q.items[0] = e
	q.siftDown(0)
}

// Drain empties the queue into a slice ordered by descending score
// (insertion order on ties).
func (q *TopK) Drain() []Candidate {
	out := make([]Candidate, len(q.items))
	idx := make([]heapEntry, len(q.items))
	copy(idx, q.items)
	sort.Slice(idx, func(i, j int) bool {
		if idx[i].Score != idx[j].Score {
			return idx[i].Score > idx[j].Score
		}
		return idx[i].seq < idx[j].seq
	})
	for i, e := range idx {
		out[i] = e.Candidate
	}
	q.items = q.items[:0]
	return out
}
