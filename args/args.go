// Package args holds the configuration record of an already-trained
// fastText model. It is populated at load time and immutable afterwards.
package args

import (
	"errors"
	"fmt"

	"github.com/hupe1980/fasttextgo/internal/store"
)

// ErrUnknownEnum is returned when a serialized loss or model value does
// not match a known variant.
var ErrUnknownEnum = errors.New("args: unknown enum value")

// Loss identifies the output layer the model was trained with.
type Loss int32

const (
	LossHS Loss = iota + 1
	LossNS
	LossSoftmax
)

func (l Loss) String() string {
	switch l {
	case LossHS:
		return "hs"
	case LossNS:
		return "ns"
	case LossSoftmax:
		return "softmax"
	default:
		return fmt.Sprintf("Unknown(%d)", int32(l))
	}
}

// LossFromValue decodes a serialized loss value.
func LossFromValue(v int32) (Loss, error) {
	if v < int32(LossHS) || v > int32(LossSoftmax) {
		return 0, fmt.Errorf("%w: loss %d", ErrUnknownEnum, v)
	}
	return Loss(v), nil
}

// Model identifies the training objective.
type Model int32

const (
	ModelCBOW Model = iota + 1
	ModelSG
	ModelSup
)

func (m Model) String() string {
	switch m {
	case ModelCBOW:
		return "cbow"
	case ModelSG:
		return "skipgram"
	case ModelSup:
		return "supervised"
	default:
		return fmt.Sprintf("Unknown(%d)", int32(m))
	}
}

// ModelFromValue decodes a serialized model value.
func ModelFromValue(v int32) (Model, error) {
	if v < int32(ModelCBOW) || v > int32(ModelSup) {
		return 0, fmt.Errorf("%w: model %d", ErrUnknownEnum, v)
	}
	return Model(v), nil
}

// DefaultLabelPrefix marks label tokens in supervised training data.
const DefaultLabelPrefix = "__label__"

// Args is the hyper-parameter record serialized in every model file: a
// fixed sequence of 12 int32 fields followed by one float64.
type Args struct {
	Dim          int
	WS           int
	Epoch        int
	MinCount     int
	Neg          int
	WordNgrams   int
	Loss         Loss
	Model        Model
	Bucket       int
	Minn         int
	Maxn         int
	LRUpdateRate int
	T            float64

	// Label is the label prefix; it is not serialized.
	Label string

	// QOut records whether the output matrix is quantized. Set from the
	// model file's qout flag, not from the args section.
	QOut bool

	// UseMaxVocabularySize selects the legacy (version 11) probing table
	// size for the dictionary's hash-to-id mapping.
	UseMaxVocabularySize bool
}

// Load reads the args section.
func Load(in store.DataInput) (*Args, error) {
	var ints [12]int32
	for i := range ints {
		v, err := in.ReadInt32()
		if err != nil {
			return nil, err
		}
		ints[i] = v
	}
	t, err := in.ReadFloat64()
	if err != nil {
		return nil, err
	}
	loss, err := LossFromValue(ints[6])
	if err != nil {
		return nil, err
	}
	model, err := ModelFromValue(ints[7])
	if err != nil {
		return nil, err
	}
	return &Args{
		Dim:          int(ints[0]),
		WS:           int(ints[1]),
		Epoch:        int(ints[2]),
		MinCount:     int(ints[3]),
		Neg:          int(ints[4]),
		WordNgrams:   int(ints[5]),
		Loss:         loss,
		Model:        model,
		Bucket:       int(ints[8]),
		Minn:         int(ints[9]),
		Maxn:         int(ints[10]),
		LRUpdateRate: int(ints[11]),
		T:            t,
		Label:        DefaultLabelPrefix,
	}, nil
}

// Save writes the args section.
func (a *Args) Save(out *store.Output) error {
	ints := [12]int32{
		int32(a.Dim), int32(a.WS), int32(a.Epoch), int32(a.MinCount),
		int32(a.Neg), int32(a.WordNgrams), int32(a.Loss), int32(a.Model),
		int32(a.Bucket), int32(a.Minn), int32(a.Maxn), int32(a.LRUpdateRate),
	}
	for _, v := range ints {
		if err := out.WriteInt32(v); err != nil {
			return err
		}
	}
	return out.WriteFloat64(a.T)
}

// ApplyVersionCompat adjusts the record for older model versions.
// Version 11 supervised models predate character n-grams, and version 11
// dictionaries were probed over the full max-vocabulary table.
func (a *Args) ApplyVersionCompat(version int) {
	if version == 11 {
		if a.Model == ModelSup {
			a.Maxn = 0
		}
		a.UseMaxVocabularySize = true
	}
}
