package fasttextgo

import (
	"github.com/hupe1980/fasttextgo/args"
	"github.com/hupe1980/fasttextgo/internal/matrix"
)

// addInputRow accumulates row id of the active input matrix into vec.
func (ft *FastText) addInputRow(vec matrix.Vector, id int32) error {
	if ft.quant {
		return vec.AddQRow(ft.qinput, int(id))
	}
	return vec.AddRow(ft.input, int(id))
}

func (ft *FastText) wordVector(word string) (matrix.Vector, error) {
	vec := matrix.NewVector(ft.cfg.Dim)
	ngrams, err := ft.dict.Subwords(word)
	if err != nil {
		return nil, err
	}
	for _, id := range ngrams {
		if err := ft.addInputRow(vec, id); err != nil {
			return nil, err
		}
	}
	if len(ngrams) > 0 {
		vec.Mul(1.0 / float32(len(ngrams)))
	}
	return vec, nil
}

// WordVector returns the embedding of word. Out-of-vocabulary words are
// composed from their character n-grams; with subwords disabled the
// result is the zero vector.
func (ft *FastText) WordVector(word string) ([]float32, error) {
	if err := ft.checkOpen(); err != nil {
		return nil, err
	}
	vec, err := ft.wordVector(word)
	if err != nil {
		return nil, translateError(err)
	}
	return vec, nil
}

// WordVectors returns the embeddings of words.
func (ft *FastText) WordVectors(words []string) ([][]float32, error) {
	vecs := make([][]float32, len(words))
	for i, w := range words {
		v, err := ft.WordVector(w)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	return vecs, nil
}

// SentenceVector returns the embedding of a tokenised sentence. For
// supervised models it averages the raw input rows of the decoded line;
// for unsupervised models it averages the L2-normalised word vectors of
// tokens with non-zero norm.
func (ft *FastText) SentenceVector(tokens []string) ([]float32, error) {
	if err := ft.checkOpen(); err != nil {
		return nil, err
	}
	svec := matrix.NewVector(ft.cfg.Dim)
	if ft.cfg.Model == args.ModelSup {
		words, _, err := ft.dict.LineTokens(tokens)
		if err != nil {
			return nil, translateError(err)
		}
		for _, id := range words {
			if err := ft.addInputRow(svec, id); err != nil {
				return nil, translateError(err)
			}
		}
		if len(words) > 0 {
			svec.Mul(1.0 / float32(len(words)))
		}
		return svec, nil
	}

	count := 0
	for _, word := range tokens {
		vec, err := ft.wordVector(word)
		if err != nil {
			return nil, translateError(err)
		}
		if norm := vec.Norm(); norm > 0 {
			vec.Mul(1.0 / norm)
			svec.AddVector(vec)
			count++
		}
	}
	if count > 0 {
		svec.Mul(1.0 / float32(count))
	}
	return svec, nil
}

// SentenceVectors returns embeddings for a batch of tokenised sentences.
func (ft *FastText) SentenceVectors(sentences [][]string) ([][]float32, error) {
	vecs := make([][]float32, len(sentences))
	for i, s := range sentences {
		v, err := ft.SentenceVector(s)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	return vecs, nil
}

// NgramVector is the embedding of one character n-gram of a word.
type NgramVector struct {
	Ngram  string
	Vector []float32
}

// NgramVectors returns the per-n-gram vectors of word, the word's own
// row first. N-grams without a row (the word itself when OOV) get a
// zero vector.
func (ft *FastText) NgramVectors(word string) ([]NgramVector, error) {
	if err := ft.checkOpen(); err != nil {
		return nil, err
	}
	ids, substrings, err := ft.dict.SubwordsWithStrings(word)
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]NgramVector, len(ids))
	for i, id := range ids {
		vec := matrix.NewVector(ft.cfg.Dim)
		if id >= 0 {
			if err := ft.addInputRow(vec, id); err != nil {
				return nil, translateError(err)
			}
		}
		out[i] = NgramVector{Ngram: substrings[i], Vector: vec}
	}
	return out, nil
}

// TextVector returns the supervised text embedding: the average of the
// input rows of the decoded line, from whichever input matrix the
// handle holds.
func (ft *FastText) TextVector(text string) ([]float32, error) {
	if err := ft.checkOpen(); err != nil {
		return nil, err
	}
	vec := matrix.NewVector(ft.cfg.Dim)
	words, _, err := ft.dict.Line(text)
	if err != nil {
		return nil, translateError(err)
	}
	for _, id := range words {
		if err := ft.addInputRow(vec, id); err != nil {
			return nil, translateError(err)
		}
	}
	if len(words) > 0 {
		vec.Mul(1.0 / float32(len(words)))
	}
	return vec, nil
}

// TextVectors returns embeddings for a batch of texts.
func (ft *FastText) TextVectors(texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := ft.TextVector(t)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	return vecs, nil
}
