package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopKBoundAndOrder(t *testing.T) {
	q := NewTopK(3)
	for i, score := range []float32{0.1, 0.9, 0.5, 0.3, 0.7} {
		q.Push(score, int32(i))
	}

	require.Equal(t, 3, q.Len())
	got := q.Drain()
	require.Len(t, got, 3)
	assert.Equal(t, []Candidate{
		{Score: 0.9, ID: 1},
		{Score: 0.7, ID: 4},
		{Score: 0.5, ID: 2},
	}, got)
}

func TestTopKDiscardsBelowMinimum(t *testing.T) {
	q := NewTopK(2)
	q.Push(0.8, 0)
	q.Push(0.6, 1)
	assert.True(t, q.Full())
	assert.Equal(t, float32(0.6), q.Min())

	q.Push(0.1, 2) // below minimum: discarded
	assert.Equal(t, float32(0.6), q.Min())

	q.Push(0.7, 3) // evicts the 0.6 entry
	assert.Equal(t, float32(0.7), q.Min())
}

func TestTopKTiesKeepInsertionOrder(t *testing.T) {
	q := NewTopK(2)
	q.Push(0.5, 10)
	q.Push(0.5, 20)
	q.Push(0.5, 30) // tie with the minimum: earlier entries win

	got := q.Drain()
	assert.Equal(t, []Candidate{
		{Score: 0.5, ID: 10},
		{Score: 0.5, ID: 20},
	}, got)
}

func TestTopKReset(t *testing.T) {
	q := NewTopK(2)
	q.Push(1, 0)
	q.Reset()
	assert.Zero(t, q.Len())
	q.Push(0.5, 1)
	assert.Equal(t, []Candidate{{Score: 0.5, ID: 1}}, q.Drain())
}

func TestTopKSmallerThanK(t *testing.T) {
	q := NewTopK(10)
	q.Push(0.2, 0)
	q.Push(0.4, 1)
	got := q.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, int32(1), got[0].ID)
}
