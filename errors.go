package fasttextgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/fasttextgo/args"
	"github.com/hupe1980/fasttextgo/internal/dict"
	"github.com/hupe1980/fasttextgo/internal/mmap"
	"github.com/hupe1980/fasttextgo/internal/store"
)

var (
	// ErrInvalidModel indicates a malformed model: magic mismatch,
	// truncated section, inconsistent pruning, or invalid enum bytes.
	ErrInvalidModel = errors.New("invalid model")

	// ErrInvalidArgument indicates an out-of-bounds or empty caller input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTruncated indicates EOF in the middle of a model field.
	ErrTruncated = store.ErrTruncated

	// ErrInvalidUTF8 indicates a dictionary string that fails UTF-8
	// validation.
	ErrInvalidUTF8 = store.ErrInvalidUTF8

	// ErrAlreadyClosed indicates access after the owning handle released
	// its resources.
	ErrAlreadyClosed = store.ErrAlreadyClosed
)

// ErrUnsupportedVersion indicates a model format version outside the
// supported range.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrUnsupportedVersion struct {
	Version int
	cause   error
}

func (e *ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("unsupported model version %d (supported: 11-%d)", e.Version, FormatVersion)
}

func (e *ErrUnsupportedVersion) Unwrap() error { return e.cause }

// translateError normalizes internal failures into the package's public
// error kinds.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, store.ErrTruncated),
		errors.Is(err, dict.ErrEmptyVocabulary),
		errors.Is(err, dict.ErrInvalidEntryType),
		errors.Is(err, dict.ErrDuplicateHash),
		errors.Is(err, args.ErrUnknownEnum):
		return fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}

	var mf *mmap.ErrMapFailed
	if errors.As(err, &mf) {
		return fmt.Errorf("map failed: %w", err)
	}

	return err
}
