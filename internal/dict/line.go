package dict

import (
	"math/rand"

	"github.com/hupe1980/fasttextgo/args"
)

// supervisedLine decodes tokens for the prediction path. In-vocabulary
// word tokens contribute their stored subword list (the id itself first,
// then n-gram buckets; just the id when subwords are disabled), labels
// contribute label ids, and OOV word tokens contribute only their hash
// for word-n-gram bucketing. Word n-grams are bolted on afterwards.
func supervisedLine(a accessor, tokens []string) (words, labels []int32, err error) {
	words, hashes, labels, err := decodeLine(a, tokens, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	if a.argsRef().Model == args.ModelSup {
		words = addWordNgrams(a, words, hashes, a.argsRef().WordNgrams)
	}
	return words, labels, nil
}

// sampledLine decodes tokens for word-vector paths of unsupervised
// models: word ids only, sub-sampled through the discard table.
func sampledLine(a accessor, tokens []string, pDiscard []float64, rng *rand.Rand) ([]int32, error) {
	words, _, _, err := decodeLine(a, tokens, pDiscard, rng)
	return words, err
}

func decodeLine(a accessor, tokens []string, pDiscard []float64, rng *rand.Rand) (words []int32, hashes []uint32, labels []int32, err error) {
	sampled := rng != nil
	nTokens := 0
	for _, token := range tokens {
		h := Hash(token)
		wid, err := idWithHash(a, token, h)
		if err != nil {
			return nil, nil, nil, err
		}
		if wid < 0 {
			if typeOfToken(a, token) == Word {
				hashes = append(hashes, h)
			}
			continue
		}
		t, err := a.entryType(wid)
		if err != nil {
			return nil, nil, nil, err
		}
		nTokens++
		switch t {
		case Word:
			if sampled {
				if !discard(a, pDiscard, wid, rng.Float64()) {
					words = append(words, int32(wid))
					hashes = append(hashes, h)
				}
			} else {
				sw, err := a.entrySubwords(wid)
				if err != nil {
					return nil, nil, nil, err
				}
				words = append(words, sw...)
				hashes = append(hashes, h)
			}
		case Label:
			labels = append(labels, int32(wid-a.nWords()))
		}
		if token == EOS {
			break
		}
		if nTokens > maxLineSize && a.argsRef().Model != args.ModelSup {
			break
		}
	}
	return words, hashes, labels, nil
}
