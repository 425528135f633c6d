package fasttextgo

import (
	"context"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/fasttextgo/internal/matrix"
	"github.com/hupe1980/fasttextgo/internal/model"
)

// Synonym is one nearest-neighbour result.
type Synonym struct {
	Word string

	// Cosine is the cosine similarity to the query vector.
	Cosine float32
}

// precomputeWordVectors publishes the L2-normalised word-vector matrix
// on first use. The singleflight group guarantees the first caller
// completes before any other observes the table; recomputation is
// idempotent, and the table is never observed partially built.
func (ft *FastText) precomputeWordVectors(ctx context.Context) (*matrix.Matrix, error) {
	if wv := ft.wordVectors.Load(); wv != nil {
		return wv, nil
	}
	v, err, _ := ft.precompute.Do("wordVectors", func() (any, error) {
		if wv := ft.wordVectors.Load(); wv != nil {
			return wv, nil
		}
		nWords := ft.dict.NWords()
		wv := matrix.New(nWords, ft.cfg.Dim)
		for i := 0; i < nWords; i++ {
			word, err := ft.dict.Word(i)
			if err != nil {
				return nil, err
			}
			vec, err := ft.wordVector(word)
			if err != nil {
				return nil, err
			}
			if norm := vec.Norm(); norm > 0 {
				wv.AddRow(vec, i, 1.0/norm)
			}
		}
		ft.wordVectors.Store(wv)
		ft.logger.LogPrecompute(ctx, nWords, nil)
		return wv, nil
	})
	if err != nil {
		ft.logger.LogPrecompute(ctx, 0, err)
		return nil, translateError(err)
	}
	return v.(*matrix.Matrix), nil
}

// findNN scores every vocabulary word by cosine similarity to query and
// returns the k best not present in the ban set.
func (ft *FastText) findNN(ctx context.Context, query matrix.Vector, k int, ban *roaring.Bitmap) ([]Synonym, error) {
	wv, err := ft.precomputeWordVectors(ctx)
	if err != nil {
		return nil, err
	}
	queryNorm := query.Norm()
	if math.Abs(float64(queryNorm)) < 1e-8 {
		queryNorm = 1
	}

	heap := model.NewTopK(k)
	for i := 0; i < ft.dict.NWords(); i++ {
		if ban.Contains(uint32(i)) {
			continue
		}
		dp, err := wv.DotRow(query, i)
		if err != nil {
			return nil, translateError(err)
		}
		heap.Push(dp/queryNorm, int32(i))
	}

	candidates := heap.Drain()
	syns := make([]Synonym, 0, len(candidates))
	for _, c := range candidates {
		word, err := ft.dict.Word(int(c.ID))
		if err != nil {
			return nil, translateError(err)
		}
		syns = append(syns, Synonym{Word: word, Cosine: c.Score})
	}
	return syns, nil
}

// ban adds word's vocabulary id to the ban set, if present.
func (ft *FastText) ban(set *roaring.Bitmap, word string) error {
	id, err := ft.dict.ID(word)
	if err != nil {
		return translateError(err)
	}
	if id >= 0 {
		set.Add(uint32(id))
	}
	return nil
}

// NN returns the k vocabulary words closest to queryWord by cosine
// similarity, the query word itself excluded. The first call builds the
// normalised word-vector table.
func (ft *FastText) NN(queryWord string, k int) ([]Synonym, error) {
	if err := ft.checkOpen(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
	}
	ctx := context.Background()
	ban := roaring.New()
	if err := ft.ban(ban, queryWord); err != nil {
		return nil, err
	}
	query, err := ft.wordVector(queryWord)
	if err != nil {
		return nil, translateError(err)
	}
	return ft.findNN(ctx, query, k, ban)
}

// Analogies answers "a is to b as c is to ?": the k words closest to
// vector(a) - vector(b) + vector(c), the three query words excluded.
func (ft *FastText) Analogies(a, b, c string, k int) ([]Synonym, error) {
	if err := ft.checkOpen(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
	}
	ctx := context.Background()
	if _, err := ft.precomputeWordVectors(ctx); err != nil {
		return nil, err
	}

	ban := roaring.New()
	query := matrix.NewVector(ft.cfg.Dim)
	for _, q := range []struct {
		word string
		sign float32
	}{{a, 1}, {b, -1}, {c, 1}} {
		if err := ft.ban(ban, q.word); err != nil {
			return nil, err
		}
		vec, err := ft.wordVector(q.word)
		if err != nil {
			return nil, translateError(err)
		}
		query.AddVectorScaled(vec, q.sign)
	}
	return ft.findNN(ctx, query, k, ban)
}
