package quiz

import (
	"errors"
	"fmt"
)

var (
	// ErrInputInvalid means the caller supplied missing or malformed input.
	ErrInputInvalid = errors.New("invalid input")
	// ErrOutputNotJSON means provider text could not be parsed as JSON.
	ErrOutputNotJSON = errors.New("generated output is not JSON")
	// ErrOutputSchemaMismatch means parsed provider output failed validation.
	ErrOutputSchemaMismatch = errors.New("generated output does not match the question schema")
	// ErrProviderUnavailable means the text-generation provider could not be reached or is not configured.
	ErrProviderUnavailable = errors.New("text generation provider unavailable")
	// ErrAttemptNotFound covers unknown ids, foreign owners and already-completed attempts.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrStoreUnavailable means the persistence layer failed.
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrQuizNotFound   = errors.New("quiz not found")
	ErrLessonNotFound = errors.New("lesson not found")
	ErrCourseNotFound = errors.New("course not found")
	ErrForbidden      = errors.New("forbidden")
	ErrNotEnrolled    = errors.New("not enrolled in course")
	// ErrQuizChanged means the lesson quiz was replaced after the learner loaded it.
	ErrQuizChanged = errors.New("quiz has changed since it was loaded")
)

// SchemaError describes why a candidate question set was rejected.
// Index is -1 when the failure concerns the set as a whole.
type SchemaError struct {
	Index   int
	Field   string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("question set: %s", e.Message)
	}
	if e.Field == "" {
		return fmt.Sprintf("question %d: %s", e.Index, e.Message)
	}
	return fmt.Sprintf("question %d: %s: %s", e.Index, e.Field, e.Message)
}

// Invalid wraps a message as an ErrInputInvalid error.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInputInvalid, fmt.Sprintf(format, args...))
}
