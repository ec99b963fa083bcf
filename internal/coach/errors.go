package coach

import (
	"errors"
)

// Kind classifies every failure the service reports. The set is closed.
type Kind int

const (
	KindInvalidInput Kind = iota + 1
	KindUnknownSession
	KindIngestionFailure
	KindGenerationFailure
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindUnknownSession:
		return "unknown_session"
	case KindIngestionFailure:
		return "ingestion_failure"
	case KindGenerationFailure:
		return "generation_failure"
	default:
		return "unknown"
	}
}

var (
	ErrNotPDF          = errors.New("Please upload a PDF syllabus.")
	ErrUnknownSyllabus = errors.New("Unknown syllabus_id. Upload first.")
	ErrEmptyHeading    = errors.New("heading must not be empty")
	ErrInvalidMinutes  = errors.New("minutes must be a positive integer")
)

// Error carries a Kind and the underlying cause. Its message is the cause's
// message so callers can surface it unchanged.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf reports the Kind of err, if err is or wraps an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
