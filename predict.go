package fasttextgo

import (
	"context"
	"fmt"
	"math"

	"github.com/hupe1980/fasttextgo/internal/model"
)

// Prediction is one scored label.
type Prediction struct {
	Label string

	// LogProb is the natural log of the label probability.
	LogProb float32
}

// Probability returns the label probability.
func (p Prediction) Probability() float32 {
	return float32(math.Exp(float64(p.LogProb)))
}

// Predict classifies a document given as whitespace-separated tokens
// and returns up to k labels ordered by descending probability,
// dropping labels below threshold. The EOS token is appended to every
// document, so no predictions come back only when the decoded line holds
// no input ids: no in-vocabulary token (EOS included) and no word n-gram
// bucket.
func (ft *FastText) Predict(text string, k int, threshold float32) ([]Prediction, error) {
	if err := ft.checkOpen(); err != nil {
		return nil, err
	}
	words, _, err := ft.dict.Line(text)
	if err != nil {
		return nil, translateError(err)
	}
	return ft.predict(words, k, threshold)
}

// PredictTokens classifies a pre-tokenised document.
func (ft *FastText) PredictTokens(tokens []string, k int, threshold float32) ([]Prediction, error) {
	if err := ft.checkOpen(); err != nil {
		return nil, err
	}
	words, _, err := ft.dict.LineTokens(tokens)
	if err != nil {
		return nil, translateError(err)
	}
	return ft.predict(words, k, threshold)
}

// PredictOne returns the most probable label, or nil when no label
// clears threshold.
func (ft *FastText) PredictOne(text string, threshold float32) (*Prediction, error) {
	preds, err := ft.Predict(text, 1, threshold)
	if err != nil || len(preds) == 0 {
		return nil, err
	}
	return &preds[0], nil
}

// PredictAll returns predictions for every label above threshold.
func (ft *FastText) PredictAll(text string, threshold float32) ([]Prediction, error) {
	return ft.Predict(text, ft.dict.NLabels(), threshold)
}

// PredictAllTokens returns predictions for every label above threshold
// for a pre-tokenised document.
func (ft *FastText) PredictAllTokens(tokens []string, threshold float32) ([]Prediction, error) {
	return ft.PredictTokens(tokens, ft.dict.NLabels(), threshold)
}

func (ft *FastText) predict(words []int32, k int, threshold float32) ([]Prediction, error) {
	ctx := context.Background()
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
	}
	if len(words) == 0 {
		ft.logger.LogPredict(ctx, k, 0, nil)
		return nil, nil
	}

	heap := model.NewTopK(k)
	if err := ft.model.Predict(words, k, heap, ft.model.Hidden(), ft.model.Output()); err != nil {
		ft.logger.LogPredict(ctx, k, 0, err)
		return nil, translateError(err)
	}

	candidates := heap.Drain()
	preds := make([]Prediction, 0, len(candidates))
	for _, c := range candidates {
		if float32(math.Exp(float64(c.Score))) < threshold {
			continue
		}
		label, err := ft.dict.Label(int(c.ID))
		if err != nil {
			return nil, translateError(err)
		}
		preds = append(preds, Prediction{Label: label, LogProb: c.Score})
	}
	ft.logger.LogPredict(ctx, k, len(preds), nil)
	return preds, nil
}
