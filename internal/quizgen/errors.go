package quizgen

import (
	"errors"
	"fmt"

	"github.com/abhisek/assessd/internal/quiz"
)

// ErrorKind classifies a generation failure.
type ErrorKind string

const (
	KindInputInvalid         ErrorKind = "input_invalid"
	KindOutputNotJSON        ErrorKind = "output_not_json"
	KindOutputSchemaMismatch ErrorKind = "output_schema_mismatch"
	KindProviderUnavailable  ErrorKind = "provider_unavailable"
)

// GenerationError is returned by Generate for every failure. Raw holds the
// provider text when there was any.
type GenerationError struct {
	Kind ErrorKind
	Raw  string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("quiz generation (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is matches the quiz sentinel that corresponds to the error's kind.
func (e *GenerationError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *GenerationError) sentinel() error {
	switch e.Kind {
	case KindInputInvalid:
		return quiz.ErrInputInvalid
	case KindOutputNotJSON:
		return quiz.ErrOutputNotJSON
	case KindOutputSchemaMismatch:
		return quiz.ErrOutputSchemaMismatch
	case KindProviderUnavailable:
		return quiz.ErrProviderUnavailable
	}
	return nil
}

// AsGenerationError unwraps err into a *GenerationError.
func AsGenerationError(err error) (*GenerationError, bool) {
	var gerr *GenerationError
	ok := errors.As(err, &gerr)
	return gerr, ok
}
